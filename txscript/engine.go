// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txscript implements the Bitcoin Script interpreter: a small
// stack machine that evaluates scriptSig/scriptPubKey pairs (and, for
// witness v0 programs, the witness stack) to decide whether an input is
// authorized to spend the output it references. This is the "biggest
// effort" package the chain engine and mempool both lean on for
// signature and spend-authorization checks.
package txscript

import (
	"bytes"

	"github.com/dworznik/bcoin/wire"
)

// maxScriptSize bounds a single scriptSig or scriptPubKey.
const maxScriptSize = 10000

// MaxOpsPerScript bounds the number of non-push opcodes a script pair (plus
// any P2SH redeem script) may execute.
const MaxOpsPerScript = 201

// MaxPubKeysPerMultiSig bounds the n in an m-of-n CHECKMULTISIG.
const MaxPubKeysPerMultiSig = 20

// condition values tracked on the if/else/endif branch stack.
const (
	condFalse = 0
	condTrue  = 1
	condSkip  = 2
)

// parseScript decodes a raw script into its sequence of opcodes, failing on
// any push whose declared length would run past the end of the script.
func parseScript(script []byte) ([]parsedOpcode, error) {
	var parsed []parsedOpcode
	for i := 0; i < len(script); {
		instr := script[i]
		op := &opcodeArray[instr]
		pop := parsedOpcode{opcode: op}

		switch {
		case op.length == 1:
			i++
		case op.length > 1:
			if len(script[i:]) < op.length {
				return nil, scriptError(ErrMalformedPush, "opcode %s requires %d bytes, only %d remain", op.name, op.length, len(script[i:]))
			}
			pop.data = script[i+1 : i+op.length]
			i += op.length
		case op.length < 0:
			var l int
			off := i + 1
			switch op.length {
			case lenPushData1:
				if len(script[off:]) < 1 {
					return nil, scriptError(ErrMalformedPush, "OP_PUSHDATA1 requires 1 byte")
				}
				l = int(script[off])
				off++
			case lenPushData2:
				if len(script[off:]) < 2 {
					return nil, scriptError(ErrMalformedPush, "OP_PUSHDATA2 requires 2 bytes")
				}
				l = int(script[off]) | int(script[off+1])<<8
				off += 2
			case lenPushData4:
				if len(script[off:]) < 4 {
					return nil, scriptError(ErrMalformedPush, "OP_PUSHDATA4 requires 4 bytes")
				}
				l = int(script[off]) | int(script[off+1])<<8 | int(script[off+2])<<16 | int(script[off+3])<<24
				off += 4
			}
			if l < 0 || len(script[off:]) < l {
				return nil, scriptError(ErrMalformedPush, "push data element does not fit")
			}
			pop.data = script[off : off+l]
			i = off + l
		}
		parsed = append(parsed, pop)
	}
	return parsed, nil
}

// Engine is a reusable script-evaluation state machine. One Engine
// evaluates exactly one input's scriptSig/scriptPubKey (and witness) pair.
type Engine struct {
	scripts       [][]parsedOpcode
	scriptIdx     int
	scriptOff     int
	lastCodeSep   int
	dstack        stack
	astack        stack
	tx            *wire.MsgTx
	txIdx         int
	condStack     []int
	numOps        int
	flags         ScriptFlags
	bip16         bool
	sigVersion    sigVersion
	savedFirstStack [][]byte
	witnessVersion  int
	witnessProgram  []byte
	inputAmount     int64
	hashCache       *TxSigHashes
	earlyTrue       bool
}

type sigVersion int

const (
	sigVersionBase sigVersion = iota
	sigVersionWitnessV0
)

// hasFlag reports whether flag is set on the engine.
func (vm *Engine) hasFlag(flag ScriptFlags) bool { return vm.flags.HasFlag(flag) }

func (vm *Engine) isBranchExecuting() bool {
	if len(vm.condStack) == 0 {
		return true
	}
	return vm.condStack[len(vm.condStack)-1] == condTrue
}

func (vm *Engine) curPC() (script int, off int, err error) {
	if vm.scriptIdx >= len(vm.scripts) {
		return 0, 0, scriptError(ErrInvalidProgramCounter, "past input scripts")
	}
	return vm.scriptIdx, vm.scriptOff, nil
}

// No DisasmPC-style disassembly helper is provided.

// Step executes the next instruction and returns true once every opcode in
// every script has been executed.
func (vm *Engine) Step() (done bool, err error) {
	opcode := &vm.scripts[vm.scriptIdx][vm.scriptOff]
	vm.scriptOff++

	if err := vm.executeOpcode(opcode); err != nil {
		return true, err
	}

	if vm.dstack.Depth()+vm.astack.Depth() > maxStackSize {
		return true, scriptError(ErrStackOverflow, "combined stack size exceeds limit")
	}

	if vm.scriptOff < len(vm.scripts[vm.scriptIdx]) {
		return false, nil
	}

	if len(vm.condStack) != 0 {
		return true, scriptError(ErrUnbalancedConditional, "end of script reached in conditional execution")
	}

	vm.scriptOff = 0
	if vm.scriptIdx == 0 && vm.bip16 {
		vm.scriptIdx++
		vm.savedFirstStack = append([][]byte(nil), vm.dstack.stk...)
	} else if vm.scriptIdx == 1 && vm.bip16 {
		vm.scriptIdx++
		matched, err := vm.dstack.PopBool()
		if err != nil {
			return true, err
		}
		if !matched {
			return true, scriptError(ErrEvalFalse, "redeem script does not match the P2SH script hash")
		}
		// Execute the P2SH redeem script with the pre-image of its hash
		// (the last element scriptSig pushed) as the new script.
		if len(vm.savedFirstStack) == 0 {
			return true, scriptError(ErrEvalFalse, "signature script has no elements to satisfy P2SH")
		}
		redeemScript := vm.savedFirstStack[len(vm.savedFirstStack)-1]
		pops, err := parseScript(redeemScript)
		if err != nil {
			return true, err
		}
		vm.scripts = append(vm.scripts, pops)
		vm.dstack.stk = vm.savedFirstStack[:len(vm.savedFirstStack)-1]
	} else {
		vm.scriptIdx++
	}

	if vm.scriptIdx >= len(vm.scripts) {
		return true, nil
	}
	if len(vm.scripts[vm.scriptIdx]) == 0 {
		return true, nil
	}
	return false, nil
}

func (vm *Engine) executeOpcode(pop *parsedOpcode) error {
	if len(pop.data) > maxScriptElementSize {
		return scriptError(ErrElementTooBig, "element size %d exceeds max allowed size %d", len(pop.data), maxScriptElementSize)
	}

	if pop.opcode.value > OP_16 && vm.isBranchExecuting() {
		vm.numOps++
		if vm.numOps > MaxOpsPerScript {
			return scriptError(ErrTooManyOperations, "exceeded max operation limit of %d", MaxOpsPerScript)
		}
	} else if len(pop.data) > maxScriptElementSize {
		return scriptError(ErrElementTooBig, "element size exceeds limit")
	}

	if pop.alwaysIllegal() {
		return scriptError(ErrReservedOpcode, "%s is always illegal", pop.opcode.name)
	}

	if pop.opcode.value > OP_16 && !vm.isBranchExecuting() && !pop.isConditional() {
		return nil
	}

	if vm.isBranchExecuting() && pop.opcode.value >= OP_0 && pop.opcode.value <= OP_PUSHDATA4 {
		if vm.hasFlag(ScriptVerifyMinimalData) {
			if err := vm.checkMinimalPush(pop); err != nil {
				return err
			}
		}
	}

	if !vm.isBranchExecuting() && !pop.isConditional() {
		return nil
	}

	if pop.isDisabled() {
		return scriptError(ErrDisabledOpcode, "%s is disabled", pop.opcode.name)
	}

	return pop.opcode.opfunc(pop, vm)
}

func (vm *Engine) checkMinimalPush(pop *parsedOpcode) error {
	data := pop.data
	opcodeVal := int(pop.opcode.value)
	if opcodeVal == OP_0 {
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	if opcodeVal == OP_1NEGATE || (opcodeVal >= OP_1 && opcodeVal <= OP_16) {
		return nil
	}
	if len(data) == 1 && data[0] >= 1 && data[0] <= 16 {
		return scriptError(ErrMinimalData, "single byte push should use OP_1 through OP_16")
	}
	if len(data) == 1 && data[0] == 0x81 {
		return scriptError(ErrMinimalData, "single byte push of 0x81 should use OP_1NEGATE")
	}
	if opcodeVal <= OP_DATA_75 {
		if opcodeVal != OP_DATA_1 && len(data) <= int(OP_DATA_1) {
			return scriptError(ErrMinimalData, "data push should use OP_DATA")
		}
	} else if opcodeVal == OP_PUSHDATA1 {
		if len(data) <= OP_DATA_75 {
			return scriptError(ErrMinimalData, "data push of %d bytes should use OP_DATA", len(data))
		}
	} else if opcodeVal == OP_PUSHDATA2 {
		if len(data) <= 0xff {
			return scriptError(ErrMinimalData, "data push of %d bytes should use OP_PUSHDATA1", len(data))
		}
	} else if opcodeVal == OP_PUSHDATA4 {
		if len(data) <= 0xffff {
			return scriptError(ErrMinimalData, "data push of %d bytes should use OP_PUSHDATA2", len(data))
		}
	}
	return nil
}

// Execute runs the engine to completion, returning nil if the script pair
// authorizes the spend.
func (vm *Engine) Execute() error {
	if vm.earlyTrue {
		return nil
	}
	done := false
	for !done {
		var err error
		done, err = vm.Step()
		if err != nil {
			return err
		}
	}

	if vm.dstack.Depth() < 1 {
		return scriptError(ErrEvalFalse, "stack empty at end of script execution")
	}
	v, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !v {
		return scriptError(ErrEvalFalse, "false stack entry at end of script execution")
	}

	if vm.hasFlag(ScriptVerifyCleanStack) && (vm.bip16 || vm.sigVersion == sigVersionWitnessV0) {
		if vm.dstack.Depth() != 0 {
			return scriptError(ErrCleanStack, "stack contains %d unexpected elements", vm.dstack.Depth())
		}
	}

	return nil
}

// NewEngine returns an Engine ready to verify txIdx's spend of the output
// carrying scriptPubKey/inputAmount, given the spending input's
// SignatureScript/Witness already attached to tx.
func NewEngine(scriptPubKey []byte, tx *wire.MsgTx, txIdx int, flags ScriptFlags, inputAmount int64, hashCache *TxSigHashes) (*Engine, error) {
	if txIdx < 0 || txIdx >= len(tx.TxIn) {
		return nil, scriptError(ErrInvalidIndex, "transaction input index %d is negative or >= %d", txIdx, len(tx.TxIn))
	}
	scriptSig := tx.TxIn[txIdx].SignatureScript
	if len(scriptSig) > maxScriptSize || len(scriptPubKey) > maxScriptSize {
		return nil, scriptError(ErrElementTooBig, "script pair exceeds max script size")
	}

	vm := &Engine{tx: tx, txIdx: txIdx, flags: flags, inputAmount: inputAmount, hashCache: hashCache}

	if flags.HasFlag(ScriptVerifySigPushOnly) {
		if err := checkScriptPushOnly(scriptSig); err != nil {
			return nil, err
		}
	}

	sigPops, err := parseScript(scriptSig)
	if err != nil {
		return nil, err
	}
	pkPops, err := parseScript(scriptPubKey)
	if err != nil {
		return nil, err
	}
	vm.scripts = [][]parsedOpcode{sigPops, pkPops}
	// An empty scriptSig has no opcode for Step to run; start at the
	// scriptPubKey.
	if len(sigPops) == 0 {
		vm.scriptIdx = 1
	}

	if flags.HasFlag(ScriptBip16) && isScriptHash(pkPops) {
		if !isPushOnly(sigPops) {
			return nil, scriptError(ErrNotPushOnly, "signature script for P2SH is not push only")
		}
		vm.bip16 = true
	}

	witness := tx.TxIn[txIdx].Witness
	if flags.HasFlag(ScriptVerifyWitness) {
		witnessProgram := scriptPubKey
		if vm.bip16 {
			if len(sigPops) == 0 {
				return nil, scriptError(ErrWitnessMalleatedP2SH, "P2SH script is empty")
			}
			witnessProgram = sigPops[len(sigPops)-1].data
		}

		valid, version, program := extractWitnessProgram(witnessProgram)
		if valid {
			if version != 0 {
				if flags.HasFlag(ScriptVerifyDiscourageUpgradableWitnessProgram) {
					return nil, scriptError(ErrDiscourageUpgradableWitnessProgram, "new witness program versions are discouraged")
				}
				// Unknown versions execute trivially true; nothing left to do.
				vm.earlyTrue = true
				return vm, nil
			}
			if err := vm.verifyWitnessProgram(version, program, witness); err != nil {
				return nil, err
			}
			// Witness evaluation has already replaced vm.scripts/scriptIdx
			// wholesale; bip16 must not also trigger Step's P2SH redeem-
			// script replay on top of that.
			vm.bip16 = false
		} else if len(witness) != 0 {
			return nil, scriptError(ErrWitnessUnexpected, "unexpected witness data")
		}
	}

	// WitnessPubKeyType constrains only witness v0 signature checks.
	if vm.sigVersion != sigVersionWitnessV0 {
		vm.flags &^= ScriptVerifyWitnessPubKeyType
	}

	vm.condStack = nil
	return vm, nil
}

// verifyWitnessProgram builds the v0 script to execute against the
// witness stack: P2WPKH synthesizes a P2PKH script, P2WSH uses the
// witness's last item as the script and checks its hash.
func (vm *Engine) verifyWitnessProgram(version int, program []byte, witness wire.TxWitness) error {
	vm.sigVersion = sigVersionWitnessV0
	vm.witnessVersion = version
	vm.witnessProgram = program

	switch len(program) {
	case 20: // P2WPKH
		if len(witness) != 2 {
			return scriptError(ErrWitnessProgramMismatch, "P2WPKH witness must have two items")
		}
		pkScript, err := payToPubKeyHashScript(program)
		if err != nil {
			return err
		}
		pops, err := parseScript(pkScript)
		if err != nil {
			return err
		}
		vm.scripts = [][]parsedOpcode{nil, pops}
		vm.dstack.stk = append([][]byte{}, witness...)
	case 32: // P2WSH
		if len(witness) == 0 {
			return scriptError(ErrWitnessProgramEmpty, "P2WSH witness is empty")
		}
		witnessScript := witness[len(witness)-1]
		h := sha256Sum(witnessScript)
		if !bytes.Equal(h[:], program) {
			return scriptError(ErrWitnessProgramMismatch, "witness script does not match program")
		}
		pops, err := parseScript(witnessScript)
		if err != nil {
			return err
		}
		vm.scripts = [][]parsedOpcode{nil, pops}
		vm.dstack.stk = append([][]byte{}, witness[:len(witness)-1]...)
	default:
		return scriptError(ErrWitnessProgramWrongLength, "witness program has invalid length %d", len(program))
	}
	vm.scriptIdx = 1
	return nil
}

func checkScriptPushOnly(script []byte) error {
	pops, err := parseScript(script)
	if err != nil {
		return err
	}
	if !isPushOnly(pops) {
		return scriptError(ErrSigPushOnly, "signature script is not push only")
	}
	return nil
}

func isPushOnly(pops []parsedOpcode) bool {
	for _, pop := range pops {
		if pop.opcode.value > OP_16 {
			return false
		}
	}
	return true
}

func isScriptHash(pops []parsedOpcode) bool {
	return len(pops) == 3 &&
		pops[0].opcode.value == OP_HASH160 &&
		len(pops[1].data) == 20 &&
		pops[2].opcode.value == OP_EQUAL
}

// extractWitnessProgram reports whether script is a valid witness program:
// OP_0/OP_1..OP_16 followed by a single 2-40 byte push.
func extractWitnessProgram(script []byte) (valid bool, version int, program []byte) {
	pops, err := parseScript(script)
	if err != nil || len(pops) != 2 {
		return false, 0, nil
	}
	op := pops[0].opcode.value
	if op != OP_0 && (op < OP_1 || op > OP_16) {
		return false, 0, nil
	}
	if pops[1].opcode.value > OP_DATA_75 {
		return false, 0, nil
	}
	if len(pops[1].data) < 2 || len(pops[1].data) > 40 {
		return false, 0, nil
	}
	v := 0
	if op != OP_0 {
		v = int(op-OP_1) + 1
	}
	return true, v, pops[1].data
}
