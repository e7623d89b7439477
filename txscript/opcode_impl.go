// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/dworznik/bcoin/wire"
)

func opcodeInvalid(pop *parsedOpcode, vm *Engine) error {
	return scriptError(ErrUnknownOpcode, "attempt to execute unknown/reserved opcode %s", pop.opcode.name)
}

func opcodeReserved(pop *parsedOpcode, vm *Engine) error {
	return scriptError(ErrReservedOpcode, "attempt to execute reserved opcode %s", pop.opcode.name)
}

func opcodeDisabled(pop *parsedOpcode, vm *Engine) error {
	return scriptError(ErrDisabledOpcode, "attempt to execute disabled opcode %s", pop.opcode.name)
}

func opcodeNop(pop *parsedOpcode, vm *Engine) error {
	switch pop.opcode.value {
	case OP_NOP1, OP_NOP4, OP_NOP5, OP_NOP6, OP_NOP7, OP_NOP8, OP_NOP9, OP_NOP10:
		if vm.hasFlag(ScriptDiscourageUpgradableNops) {
			return scriptError(ErrDiscourageUpgradableNOPs, "%s reserved for soft-fork upgrades", pop.opcode.name)
		}
	}
	return nil
}

func opcodePushData(pop *parsedOpcode, vm *Engine) error {
	return vm.dstack.PushByteArray(pop.data)
}

func opcodeFalse(pop *parsedOpcode, vm *Engine) error {
	vm.dstack.PushByteArray(nil)
	return nil
}

func opcode1Negate(pop *parsedOpcode, vm *Engine) error {
	vm.dstack.PushInt(scriptNum(-1))
	return nil
}

// conditional execution: OP_IF/OP_NOTIF/OP_ELSE/OP_ENDIF track nesting on
// vm.condStack independent of whether the enclosing branch is executing,
// so a false outer branch still balances inner IF/ENDIF pairs.
func opcodeIf(pop *parsedOpcode, vm *Engine) error {
	cond := condFalse
	if vm.isBranchExecuting() {
		if vm.sigVersion == sigVersionWitnessV0 && vm.hasFlag(ScriptVerifyMinimalIf) {
			b, err := vm.dstack.PopByteArray()
			if err != nil {
				return err
			}
			if len(b) > 1 || (len(b) == 1 && b[0] != 1) {
				return scriptError(ErrMinimalIf, "conditional argument must be minimally encoded boolean")
			}
			if asBool(b) {
				cond = condTrue
			}
		} else {
			ok, err := vm.dstack.PopBool()
			if err != nil {
				return err
			}
			if ok {
				cond = condTrue
			}
		}
	} else {
		cond = condSkip
	}
	vm.condStack = append(vm.condStack, cond)
	return nil
}

func opcodeNotIf(pop *parsedOpcode, vm *Engine) error {
	cond := condFalse
	if vm.isBranchExecuting() {
		ok, err := vm.dstack.PopBool()
		if err != nil {
			return err
		}
		if !ok {
			cond = condTrue
		}
	} else {
		cond = condSkip
	}
	vm.condStack = append(vm.condStack, cond)
	return nil
}

func opcodeElse(pop *parsedOpcode, vm *Engine) error {
	if len(vm.condStack) == 0 {
		return scriptError(ErrUnbalancedConditional, "encountered opcode else with no matching if")
	}
	idx := len(vm.condStack) - 1
	switch vm.condStack[idx] {
	case condTrue:
		vm.condStack[idx] = condFalse
	case condFalse:
		vm.condStack[idx] = condTrue
	case condSkip:
		// remains condSkip
	}
	return nil
}

func opcodeEndif(pop *parsedOpcode, vm *Engine) error {
	if len(vm.condStack) == 0 {
		return scriptError(ErrUnbalancedConditional, "encountered opcode endif with no matching if")
	}
	vm.condStack = vm.condStack[:len(vm.condStack)-1]
	return nil
}

func opcodeVerify(pop *parsedOpcode, vm *Engine) error {
	verified, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !verified {
		return scriptError(ErrVerify, "OP_VERIFY failed")
	}
	return nil
}

func opcodeReturn(pop *parsedOpcode, vm *Engine) error {
	return scriptError(ErrEarlyReturn, "script called OP_RETURN")
}

func opcodeToAltStack(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	return vm.astack.PushByteArray(so)
}

func opcodeFromAltStack(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.astack.PopByteArray()
	if err != nil {
		return scriptError(ErrInvalidAltStackOperation, "%v", err)
	}
	return vm.dstack.PushByteArray(so)
}

func opcode2Drop(pop *parsedOpcode, vm *Engine) error { return vm.dstack.DropN(2) }
func opcode2Dup(pop *parsedOpcode, vm *Engine) error  { return vm.dstack.DupN(2) }
func opcode3Dup(pop *parsedOpcode, vm *Engine) error  { return vm.dstack.DupN(3) }
func opcode2Over(pop *parsedOpcode, vm *Engine) error { return vm.dstack.OverN(2) }
func opcode2Rot(pop *parsedOpcode, vm *Engine) error  { return vm.dstack.RotN(2) }
func opcode2Swap(pop *parsedOpcode, vm *Engine) error { return vm.dstack.SwapN(2) }

func opcodeIfDup(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	if asBool(so) {
		return vm.dstack.PushByteArray(so)
	}
	return nil
}

func opcodeDepth(pop *parsedOpcode, vm *Engine) error {
	vm.dstack.PushInt(scriptNum(vm.dstack.Depth()))
	return nil
}

func opcodeDrop(pop *parsedOpcode, vm *Engine) error { return vm.dstack.DropN(1) }
func opcodeDup(pop *parsedOpcode, vm *Engine) error  { return vm.dstack.DupN(1) }

func opcodeNip(pop *parsedOpcode, vm *Engine) error { return vm.dstack.NipN(1) }
func opcodeOver(pop *parsedOpcode, vm *Engine) error { return vm.dstack.OverN(1) }

func opcodePick(pop *parsedOpcode, vm *Engine) error {
	val, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	return vm.dstack.PickN(int32(val))
}

func opcodeRoll(pop *parsedOpcode, vm *Engine) error {
	val, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	return vm.dstack.RollN(int32(val))
}

func opcodeRot(pop *parsedOpcode, vm *Engine) error  { return vm.dstack.RotN(1) }
func opcodeSwap(pop *parsedOpcode, vm *Engine) error { return vm.dstack.SwapN(1) }
func opcodeTuck(pop *parsedOpcode, vm *Engine) error { return vm.dstack.Tuck() }

func opcodeSize(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	vm.dstack.PushInt(scriptNum(len(so)))
	return nil
}

func opcodeEqual(pop *parsedOpcode, vm *Engine) error {
	a, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	b, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(bytes.Equal(a, b))
	return nil
}

func opcodeEqualVerify(pop *parsedOpcode, vm *Engine) error {
	if err := opcodeEqual(pop, vm); err != nil {
		return err
	}
	ok, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !ok {
		return scriptError(ErrEqualVerify, "OP_EQUALVERIFY failed")
	}
	return nil
}

func arith1(vm *Engine, f func(scriptNum) scriptNum) error {
	n, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(f(n))
	return nil
}

func arith2(vm *Engine, f func(a, b scriptNum) scriptNum) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushInt(f(a, b))
	return nil
}

func opcode1Add(pop *parsedOpcode, vm *Engine) error {
	return arith1(vm, func(n scriptNum) scriptNum { return n + 1 })
}
func opcode1Sub(pop *parsedOpcode, vm *Engine) error {
	return arith1(vm, func(n scriptNum) scriptNum { return n - 1 })
}
func opcodeNegate(pop *parsedOpcode, vm *Engine) error {
	return arith1(vm, func(n scriptNum) scriptNum { return -n })
}
func opcodeAbs(pop *parsedOpcode, vm *Engine) error {
	return arith1(vm, func(n scriptNum) scriptNum {
		if n < 0 {
			return -n
		}
		return n
	})
}
func opcodeNot(pop *parsedOpcode, vm *Engine) error {
	return arith1(vm, func(n scriptNum) scriptNum {
		if n == 0 {
			return 1
		}
		return 0
	})
}
func opcode0NotEqual(pop *parsedOpcode, vm *Engine) error {
	return arith1(vm, func(n scriptNum) scriptNum {
		if n != 0 {
			return 1
		}
		return 0
	})
}
func opcodeAdd(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return a + b })
}
func opcodeSub(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return a - b })
}
func boolToNum(b bool) scriptNum {
	if b {
		return 1
	}
	return 0
}
func opcodeBoolAnd(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return boolToNum(a != 0 && b != 0) })
}
func opcodeBoolOr(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return boolToNum(a != 0 || b != 0) })
}
func opcodeNumEqual(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return boolToNum(a == b) })
}
func opcodeNumEqualVerify(pop *parsedOpcode, vm *Engine) error {
	if err := opcodeNumEqual(pop, vm); err != nil {
		return err
	}
	ok, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !ok {
		return scriptError(ErrNumEqualVerify, "OP_NUMEQUALVERIFY failed")
	}
	return nil
}
func opcodeNumNotEqual(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return boolToNum(a != b) })
}
func opcodeLessThan(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return boolToNum(a < b) })
}
func opcodeGreaterThan(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return boolToNum(a > b) })
}
func opcodeLessThanOrEqual(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return boolToNum(a <= b) })
}
func opcodeGreaterThanOrEqual(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum { return boolToNum(a >= b) })
}
func opcodeMin(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum {
		if a < b {
			return a
		}
		return b
	})
}
func opcodeMax(pop *parsedOpcode, vm *Engine) error {
	return arith2(vm, func(a, b scriptNum) scriptNum {
		if a > b {
			return a
		}
		return b
	})
}

func opcodeWithin(pop *parsedOpcode, vm *Engine) error {
	maxVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	minVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	x, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(x >= minVal && x < maxVal)
	return nil
}

func opcodeRipemd160(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	return vm.dstack.PushByteArray(ripemd160Sum(so))
}

func opcodeSha1(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	h := sha1Sum(so)
	return vm.dstack.PushByteArray(h[:])
}

func opcodeSha256(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	h := sha256Sum(so)
	return vm.dstack.PushByteArray(h[:])
}

func opcodeHash160(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	return vm.dstack.PushByteArray(hash160(so))
}

func opcodeHash256(pop *parsedOpcode, vm *Engine) error {
	so, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	h := hash256(so)
	return vm.dstack.PushByteArray(h[:])
}

// opcodeCodeSeparator records the position codeSeparator removal starts
// from for the *remainder* of this script's signature checks; earlier
// signatures already checked are unaffected because they hashed the
// script as it stood at their own execution point.
func opcodeCodeSeparator(pop *parsedOpcode, vm *Engine) error {
	vm.lastCodeSep = vm.scriptOff
	return nil
}

// subScriptForSigCheck returns the currently-executing script with
// everything up to and including the last-executed OP_CODESEPARATOR
// trimmed off, the input to CalcSignatureHash/CalcWitnessSigHash.
func (vm *Engine) subScriptForSigCheck() []byte {
	pops := vm.scripts[vm.scriptIdx]
	var out []byte
	for _, pop := range pops[vm.lastCodeSep:] {
		out = append(out, pop.opcode.value)
		if pop.data != nil {
			out = append(out, pop.data...)
		}
	}
	return out
}

func opcodeCheckSig(pop *parsedOpcode, vm *Engine) error {
	pkBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	fullSig, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	if len(fullSig) == 0 {
		vm.dstack.PushBool(false)
		return nil
	}

	if err := checkSignatureEncoding(fullSig, vm.flags); err != nil {
		return err
	}
	if err := checkPubKeyEncoding(pkBytes, vm.flags); err != nil {
		return err
	}

	hashType := SigHashType(fullSig[len(fullSig)-1])
	rawSig := fullSig[:len(fullSig)-1]
	subScript := vm.subScriptForSigCheck()

	var hash [32]byte
	if vm.sigVersion == sigVersionWitnessV0 {
		h, err := CalcWitnessSigHash(subScript, vm.hashCache, hashType, vm.tx, vm.txIdx, vm.inputAmount)
		if err != nil {
			return err
		}
		hash = h
	} else {
		h, err := CalcSignatureHash(subScript, hashType, vm.tx, vm.txIdx)
		if err != nil {
			return err
		}
		hash = h
	}

	valid := verifyECDSA(pkBytes, hash[:], rawSig)
	if !valid && vm.hasFlag(ScriptVerifyNullFail) && len(fullSig) > 0 {
		return scriptError(ErrNullFail, "signatures not empty on failed checksig")
	}
	vm.dstack.PushBool(valid)
	return nil
}

func verifyECDSA(pkBytes, hash, rawSig []byte) bool {
	pubKey, err := btcec.ParsePubKey(pkBytes)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(rawSig)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}

func opcodeCheckSigVerify(pop *parsedOpcode, vm *Engine) error {
	if err := opcodeCheckSig(pop, vm); err != nil {
		return err
	}
	ok, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !ok {
		return scriptError(ErrCheckSigVerify, "OP_CHECKSIGVERIFY failed")
	}
	return nil
}

func opcodeCheckMultiSig(pop *parsedOpcode, vm *Engine) error {
	numKeys, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	numPubKeys := int(numKeys)
	if numPubKeys < 0 || numPubKeys > MaxPubKeysPerMultiSig {
		return scriptError(ErrInvalidPubKeyCount, "invalid pubkey count %d", numPubKeys)
	}
	vm.numOps += numPubKeys
	if vm.numOps > MaxOpsPerScript {
		return scriptError(ErrTooManyOperations, "exceeded max operation limit of %d", MaxOpsPerScript)
	}

	pubKeys := make([][]byte, numPubKeys)
	for i := numPubKeys - 1; i >= 0; i-- {
		pk, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		pubKeys[i] = pk
	}

	numSigs, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	numSignatures := int(numSigs)
	if numSignatures < 0 || numSignatures > numPubKeys {
		return scriptError(ErrInvalidSignatureCount, "invalid signature count %d", numSignatures)
	}

	sigs := make([][]byte, numSignatures)
	for i := numSignatures - 1; i >= 0; i-- {
		s, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		sigs[i] = s
	}

	// The historical off-by-one bug: CHECKMULTISIG pops one extra
	// element that scripts conventionally supply as OP_0.
	dummy, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if vm.hasFlag(ScriptStrictMultiSig) && len(dummy) != 0 {
		return scriptError(ErrSigNullDummy, "multisig dummy argument is not empty")
	}

	subScript := vm.subScriptForSigCheck()

	success := true
	pkIdx, sigIdx := 0, 0
	for sigIdx < numSignatures {
		if sigIdx >= len(sigs) || pkIdx >= len(pubKeys) {
			success = false
			break
		}
		sig := sigs[sigIdx]
		pk := pubKeys[pkIdx]

		if len(sig) == 0 {
			pkIdx++
			continue
		}
		if err := checkSignatureEncoding(sig, vm.flags); err != nil {
			return err
		}
		if err := checkPubKeyEncoding(pk, vm.flags); err != nil {
			return err
		}

		hashType := SigHashType(sig[len(sig)-1])
		rawSig := sig[:len(sig)-1]

		var hash [32]byte
		if vm.sigVersion == sigVersionWitnessV0 {
			h, err := CalcWitnessSigHash(subScript, vm.hashCache, hashType, vm.tx, vm.txIdx, vm.inputAmount)
			if err != nil {
				return err
			}
			hash = h
		} else {
			h, err := CalcSignatureHash(subScript, hashType, vm.tx, vm.txIdx)
			if err != nil {
				return err
			}
			hash = h
		}

		if verifyECDSA(pk, hash[:], rawSig) {
			sigIdx++
		}
		pkIdx++
		if numSignatures-sigIdx > len(pubKeys)-pkIdx {
			success = false
			break
		}
	}

	if !success && vm.hasFlag(ScriptVerifyNullFail) {
		for _, sig := range sigs {
			if len(sig) != 0 {
				return scriptError(ErrNullFail, "signature not empty on failed checkmultisig")
			}
		}
	}

	vm.dstack.PushBool(success)
	return nil
}

func opcodeCheckMultiSigVerify(pop *parsedOpcode, vm *Engine) error {
	if err := opcodeCheckMultiSig(pop, vm); err != nil {
		return err
	}
	ok, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !ok {
		return scriptError(ErrCheckMultiSigVerify, "OP_CHECKMULTISIGVERIFY failed")
	}
	return nil
}

// lockTimeThreshold is the boundary (BIP65) between block-height and
// unix-time interpretations of a locktime/CLTV argument.
const lockTimeThreshold = 500000000

func opcodeCheckLockTimeVerify(pop *parsedOpcode, vm *Engine) error {
	if !vm.hasFlag(ScriptVerifyCheckLockTimeVerify) {
		return opcodeNop(pop, vm)
	}

	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	lockTime, err := makeScriptNum(so, vm.hasFlag(ScriptVerifyMinimalData), 5)
	if err != nil {
		return err
	}
	if lockTime < 0 {
		return scriptError(ErrNegativeLockTime, "negative locktime: %d", lockTime)
	}

	txLockTime := int64(vm.tx.LockTime)
	if !((txLockTime < lockTimeThreshold && int64(lockTime) < lockTimeThreshold) ||
		(txLockTime >= lockTimeThreshold && int64(lockTime) >= lockTimeThreshold)) {
		return scriptError(ErrUnsatisfiedLockTime, "mismatched locktime types")
	}
	if int64(lockTime) > txLockTime {
		return scriptError(ErrUnsatisfiedLockTime, "locktime requirement not satisfied")
	}
	if vm.tx.TxIn[vm.txIdx].Sequence == wire.MaxTxInSequenceNum {
		return scriptError(ErrUnsatisfiedLockTime, "transaction input is finalized")
	}
	return nil
}

func opcodeCheckSequenceVerify(pop *parsedOpcode, vm *Engine) error {
	if !vm.hasFlag(ScriptVerifyCheckSequenceVerify) {
		return opcodeNop(pop, vm)
	}

	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	stackSequence, err := makeScriptNum(so, vm.hasFlag(ScriptVerifyMinimalData), 5)
	if err != nil {
		return err
	}
	if stackSequence < 0 {
		return scriptError(ErrNegativeLockTime, "negative sequence: %d", stackSequence)
	}

	sequence := int64(stackSequence)
	if sequence&wire.SequenceLockTimeDisabled != 0 {
		return nil
	}

	if vm.tx.Version < 2 {
		return scriptError(ErrUnsatisfiedLockTime, "tx version %d is less than 2", vm.tx.Version)
	}

	txSequence := int64(vm.tx.TxIn[vm.txIdx].Sequence)
	if txSequence&wire.SequenceLockTimeDisabled != 0 {
		return scriptError(ErrUnsatisfiedLockTime, "transaction sequence has disable flag set")
	}

	lockTimeMask := int64(wire.SequenceLockTimeIsSeconds | wire.SequenceLockTimeMask)
	if !((txSequence&lockTimeMask < wire.SequenceLockTimeIsSeconds && sequence&lockTimeMask < wire.SequenceLockTimeIsSeconds) ||
		(txSequence&lockTimeMask >= wire.SequenceLockTimeIsSeconds && sequence&lockTimeMask >= wire.SequenceLockTimeIsSeconds)) {
		return scriptError(ErrUnsatisfiedLockTime, "mismatched sequence lock-time types")
	}
	if sequence&int64(wire.SequenceLockTimeMask) > txSequence&int64(wire.SequenceLockTimeMask) {
		return scriptError(ErrUnsatisfiedLockTime, "sequence lock-time requirement not satisfied")
	}
	return nil
}
