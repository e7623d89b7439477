// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainutil"
)

// ScriptClass names the recognized scriptPubKey templates.
type ScriptClass int

const (
	NonStandardTy ScriptClass = iota
	PubKeyHashTy
	ScriptHashTy
	PubKeyTy
	MultiSigTy
	NullDataTy
	WitnessV0PubKeyHashTy
	WitnessV0ScriptHashTy
)

func (t ScriptClass) String() string {
	names := [...]string{"nonstandard", "pubkeyhash", "scripthash", "pubkey", "multisig", "nulldata", "witness_v0_keyhash", "witness_v0_scripthash"}
	if int(t) < 0 || int(t) >= len(names) {
		return "nonstandard"
	}
	return names[t]
}

// ScriptBuilder assembles a script one push/opcode at a time, matching the
// teacher pack's builder style used to construct scriptPubKeys and
// scriptSigs without hand-concatenating byte slices.
type ScriptBuilder struct {
	script []byte
	err    error
}

func NewScriptBuilder() *ScriptBuilder { return &ScriptBuilder{} }

func (b *ScriptBuilder) AddOp(op byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	b.script = append(b.script, op)
	return b
}

func (b *ScriptBuilder) AddInt64(val int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if val == 0 {
		b.script = append(b.script, OP_0)
		return b
	}
	if val == -1 || (val >= 1 && val <= 16) {
		b.script = append(b.script, byte((OP_1-1)+val))
		return b
	}
	return b.AddData(scriptNum(val).Bytes())
}

func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > maxScriptElementSize {
		b.err = errors.Errorf("data push of %d bytes exceeds max allowed size", len(data))
		return b
	}
	b.addRawPush(data)
	return b
}

func (b *ScriptBuilder) addRawPush(data []byte) {
	l := len(data)
	switch {
	case l == 0:
		b.script = append(b.script, OP_0)
	case l == 1 && data[0] >= 1 && data[0] <= 16:
		b.script = append(b.script, byte((OP_1-1)+data[0]))
	case l == 1 && data[0] == 0x81:
		b.script = append(b.script, OP_1NEGATE)
	case l <= 75:
		b.script = append(b.script, byte(l))
		b.script = append(b.script, data...)
	case l <= 0xff:
		b.script = append(b.script, OP_PUSHDATA1, byte(l))
		b.script = append(b.script, data...)
	case l <= 0xffff:
		b.script = append(b.script, OP_PUSHDATA2, byte(l), byte(l>>8))
		b.script = append(b.script, data...)
	default:
		b.script = append(b.script, OP_PUSHDATA4, byte(l), byte(l>>8), byte(l>>16), byte(l>>24))
		b.script = append(b.script, data...)
	}
}

func (b *ScriptBuilder) Script() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.script, nil
}

// payToPubKeyHashScript returns OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func payToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return NewScriptBuilder().
		AddOp(OP_DUP).AddOp(OP_HASH160).
		AddData(pubKeyHash).
		AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).
		Script()
}

// payToScriptHashScript returns OP_HASH160 <hash> OP_EQUAL.
func payToScriptHashScript(scriptHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_HASH160).AddData(scriptHash).AddOp(OP_EQUAL).Script()
}

// payToWitnessPubKeyHashScript returns OP_0 <20-byte-hash>.
func payToWitnessPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_0).AddData(pubKeyHash).Script()
}

// payToWitnessScriptHashScript returns OP_0 <32-byte-hash>.
func payToWitnessScriptHashScript(scriptHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_0).AddData(scriptHash).Script()
}

// payToPubKeyScript returns <pubkey> OP_CHECKSIG.
func payToPubKeyScript(serializedPubKey []byte) ([]byte, error) {
	return NewScriptBuilder().AddData(serializedPubKey).AddOp(OP_CHECKSIG).Script()
}

// PayToAddrScript creates a script paying to addr, dispatching on its
// concrete chainutil.Address type.
func PayToAddrScript(addr chainutil.Address) ([]byte, error) {
	switch a := addr.(type) {
	case *chainutil.AddressPubKeyHash:
		return payToPubKeyHashScript(a.ScriptAddress())
	case *chainutil.AddressScriptHash:
		return payToScriptHashScript(a.ScriptAddress())
	case *chainutil.AddressWitnessPubKeyHash:
		return payToWitnessPubKeyHashScript(a.ScriptAddress())
	case *chainutil.AddressWitnessScriptHash:
		return payToWitnessScriptHashScript(a.ScriptAddress())
	default:
		return nil, scriptError(ErrUnsupportedAddress, "unsupported address type %T", addr)
	}
}

// GetScriptClass classifies a scriptPubKey by its shape.
func GetScriptClass(script []byte) ScriptClass {
	pops, err := parseScript(script)
	if err != nil {
		return NonStandardTy
	}
	return typeOfScript(pops)
}

func typeOfScript(pops []parsedOpcode) ScriptClass {
	if isPubKeyHash(pops) {
		return PubKeyHashTy
	}
	if isScriptHash(pops) {
		return ScriptHashTy
	}
	if isPubKey(pops) {
		return PubKeyTy
	}
	if isMultiSig(pops) {
		return MultiSigTy
	}
	if isNullData(pops) {
		return NullDataTy
	}
	if valid, version, program := extractWitnessProgramFromPops(pops); valid && version == 0 {
		switch len(program) {
		case 20:
			return WitnessV0PubKeyHashTy
		case 32:
			return WitnessV0ScriptHashTy
		}
	}
	return NonStandardTy
}

func extractWitnessProgramFromPops(pops []parsedOpcode) (bool, int, []byte) {
	if len(pops) != 2 {
		return false, 0, nil
	}
	op := pops[0].opcode.value
	if op != OP_0 && (op < OP_1 || op > OP_16) {
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

func isPubKeyHash(pops []parsedOpcode) bool {
	return len(pops) == 5 &&
		pops[0].opcode.value == OP_DUP &&
		pops[1].opcode.value == OP_HASH160 &&
		len(pops[2].data) == 20 &&
		pops[3].opcode.value == OP_EQUALVERIFY &&
		pops[4].opcode.value == OP_CHECKSIG
}

func isPubKey(pops []parsedOpcode) bool {
	return len(pops) == 2 &&
		(len(pops[0].data) == 33 || len(pops[0].data) == 65) &&
		pops[1].opcode.value == OP_CHECKSIG
}

func isMultiSig(pops []parsedOpcode) bool {
	if len(pops) < 4 {
		return false
	}
	last := pops[len(pops)-1]
	if last.opcode.value != OP_CHECKMULTISIG {
		return false
	}
	nOp := pops[len(pops)-2].opcode.value
	if nOp != OP_0 && (nOp < OP_1 || nOp > OP_16) {
		return false
	}
	n := 0
	if nOp != OP_0 {
		n = int(nOp-OP_1) + 1
	}
	if n != len(pops)-3 {
		return false
	}
	for i := 1; i <= n; i++ {
		d := pops[i].data
		if len(d) != 33 && len(d) != 65 {
			return false
		}
	}
	mOp := pops[0].opcode.value
	return mOp == OP_0 || (mOp >= OP_1 && mOp <= OP_16)
}

func isNullData(pops []parsedOpcode) bool {
	if len(pops) < 1 || pops[0].opcode.value != OP_RETURN {
		return false
	}
	for _, pop := range pops[1:] {
		if pop.opcode.value > OP_PUSHDATA4 {
			return false
		}
	}
	return true
}

// IsPushOnlyScript reports whether script contains only data pushes, the
// requirement a standard signature script must meet.
func IsPushOnlyScript(script []byte) (bool, error) {
	pops, err := parseScript(script)
	if err != nil {
		return false, err
	}
	return isPushOnly(pops), nil
}

// IsUnspendable reports whether script can never be satisfied by any
// signature script, e.g. an OP_RETURN data carrier, making an output
// carrying it dust regardless of its value.
func IsUnspendable(script []byte) bool {
	pops, err := parseScript(script)
	if err != nil {
		return true
	}
	return len(pops) > 0 && pops[0].opcode.value == OP_RETURN
}

// ExtractPkScriptAddr returns the class and, when unambiguous, the single
// destination address encoded in script.
func ExtractPkScriptAddr(script []byte, pubKeyHashID, scriptHashID byte, bech32HRP string) (ScriptClass, chainutil.Address, error) {
	pops, err := parseScript(script)
	if err != nil {
		return NonStandardTy, nil, err
	}
	class := typeOfScript(pops)
	switch class {
	case PubKeyHashTy:
		addr, err := chainutil.NewAddressPubKeyHash(pops[2].data, pubKeyHashID)
		return class, addr, err
	case ScriptHashTy:
		addr, err := chainutil.NewAddressScriptHashFromHash(pops[1].data, scriptHashID)
		return class, addr, err
	case WitnessV0PubKeyHashTy:
		addr, err := chainutil.NewAddressWitnessPubKeyHash(pops[1].data, bech32HRP)
		return class, addr, err
	case WitnessV0ScriptHashTy:
		addr, err := chainutil.NewAddressWitnessScriptHash(pops[1].data, bech32HRP)
		return class, addr, err
	default:
		return class, nil, nil
	}
}

// ExtractCoinbaseHeight decodes the BIP34 height commitment that must be
// the first push of a coinbase's signature script once BIP34 is active.
func ExtractCoinbaseHeight(sigScript []byte) (int32, error) {
	pops, err := parseScript(sigScript)
	if err != nil || len(pops) == 0 {
		return 0, scriptError(ErrMalformedPush, "coinbase signature script does not begin with a height push")
	}
	op := pops[0]
	switch {
	case op.opcode.value == OP_0:
		return 0, nil
	case op.opcode.value >= OP_1 && op.opcode.value <= OP_16:
		return int32(op.opcode.value - (OP_1 - 1)), nil
	case op.opcode.value <= OP_PUSHDATA4:
		num, err := makeScriptNum(op.data, true, 4)
		if err != nil {
			return 0, err
		}
		return num.Int32(), nil
	default:
		return 0, scriptError(ErrMalformedPush, "coinbase signature script does not begin with a height push")
	}
}

// GetSigOpCount returns the (non-P2SH-accurate) signature operation count
// of script, counting CHECKSIG as 1 and CHECKMULTISIG as its declared n
// (or MaxPubKeysPerMultiSig if that count could not be determined, e.g.
// when the pubkey count opcode is not a small integer).
func GetSigOpCount(script []byte) int {
	pops, err := parseScript(script)
	if err != nil {
		return 0
	}
	return countSigOps(pops, true)
}

func countSigOps(pops []parsedOpcode, precise bool) int {
	n := 0
	var prevOp byte = OP_INVALIDOPCODE
	for _, pop := range pops {
		switch pop.opcode.value {
		case OP_CHECKSIG, OP_CHECKSIGVERIFY:
			n++
		case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
			if precise && prevOp >= OP_1 && prevOp <= OP_16 {
				n += int(prevOp-OP_1) + 1
			} else {
				n += MaxPubKeysPerMultiSig
			}
		}
		prevOp = pop.opcode.value
	}
	return n
}

// GetPreciseSigOpCount returns the P2SH-aware sigop count: scriptSig's
// pushed redeem script (if scriptPubKey is P2SH) is evaluated instead of
// scriptPubKey itself.
func GetPreciseSigOpCount(scriptSig, scriptPubKey []byte, bip16 bool) int {
	pkPops, err := parseScript(scriptPubKey)
	if err != nil {
		return 0
	}
	if !(bip16 && isScriptHash(pkPops)) {
		return countSigOps(pkPops, true)
	}
	sigPops, err := parseScript(scriptSig)
	if err != nil || len(sigPops) == 0 {
		return 0
	}
	redeemScript := sigPops[len(sigPops)-1].data
	rPops, err := parseScript(redeemScript)
	if err != nil {
		return 0
	}
	return countSigOps(rPops, true)
}

// GetWitnessSigOpCount returns the witness sigop count (weighted 1x, not
// the 4x legacy weight) for a v0 program, or 0 if none applies.
func GetWitnessSigOpCount(scriptSig, scriptPubKey []byte, witness [][]byte) int {
	valid, version, program := extractWitnessProgram(scriptPubKey)
	if !valid {
		pkPops, err := parseScript(scriptPubKey)
		if err == nil && isScriptHash(pkPops) {
			sigPops, err := parseScript(scriptSig)
			if err == nil && len(sigPops) > 0 {
				valid, version, program = extractWitnessProgram(sigPops[len(sigPops)-1].data)
			}
		}
	}
	if !valid || version != 0 {
		return 0
	}
	switch len(program) {
	case 20:
		return 1
	case 32:
		if len(witness) == 0 {
			return 0
		}
		pops, err := parseScript(witness[len(witness)-1])
		if err != nil {
			return 0
		}
		return countSigOps(pops, true)
	}
	return 0
}
