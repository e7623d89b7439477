// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// ScriptFlags is a bitmask of the standardness/consensus toggles script
// verification must be parameterized by: a block-validation
// caller enables only the flags active at the block's height (BIP16/65/
// 66/68/112/141 activation), while a mempool caller enables the full
// current-policy set.
type ScriptFlags uint32

const (
	// ScriptBip16 enables P2SH evaluation (BIP16).
	ScriptBip16 ScriptFlags = 1 << iota

	// ScriptVerifyDERSignatures rejects non-strict-DER signature encodings.
	ScriptVerifyDERSignatures

	// ScriptVerifyLowS rejects signatures with a high S value (BIP62 rule 5).
	ScriptVerifyLowS

	// ScriptStrictMultiSig rejects a non-empty CHECKMULTISIG dummy element.
	ScriptStrictMultiSig

	// ScriptDiscourageUpgradableNops rejects OP_NOP1 and OP_NOP4-OP_NOP10,
	// reserving them for future soft forks.
	ScriptDiscourageUpgradableNops

	// ScriptVerifyCheckLockTimeVerify enables BIP65 OP_CHECKLOCKTIMEVERIFY.
	ScriptVerifyCheckLockTimeVerify

	// ScriptVerifyCheckSequenceVerify enables BIP112 OP_CHECKSEQUENCEVERIFY.
	ScriptVerifyCheckSequenceVerify

	// ScriptVerifyCleanStack requires exactly one true element remaining
	// on the stack after execution; Execute checks it only for P2SH and
	// witness v0 executions.
	ScriptVerifyCleanStack

	// ScriptVerifyWitness enables BIP141 witness program evaluation.
	ScriptVerifyWitness

	// ScriptVerifyDiscourageUpgradableWitnessProgram rejects witness
	// program versions other than 0, reserving them for future soft forks.
	ScriptVerifyDiscourageUpgradableWitnessProgram

	// ScriptVerifyMinimalIf requires OP_IF/OP_NOTIF's argument, under
	// witness v0 execution, to be exactly empty or a single 0x01 byte.
	ScriptVerifyMinimalIf

	// ScriptVerifyWitnessPubKeyType requires a compressed pubkey in
	// witness v0 P2WPKH/P2WSH CHECKSIG operations.
	ScriptVerifyWitnessPubKeyType

	// ScriptVerifyNullFail requires failed CHECKSIG/CHECKMULTISIG
	// signatures to be the empty byte string.
	ScriptVerifyNullFail

	// ScriptVerifyMinimalData requires all numeric pushes to use the
	// shortest possible encoding.
	ScriptVerifyMinimalData

	// ScriptVerifySigPushOnly requires a scriptSig to contain only data
	// pushes.
	ScriptVerifySigPushOnly

	// ScriptVerifyStrictEncoding rejects pubkey encodings other than
	// compressed/uncompressed SEC1 and hash-type bytes outside the four
	// recognized modes (STRICTENC). It is relay policy, not consensus:
	// historical blocks may contain non-standard (e.g. hybrid-format)
	// pubkeys that must still validate.
	ScriptVerifyStrictEncoding
)

// StandardVerifyFlags is the flag set a mempool admission check applies: the
// full current relay policy.
const StandardVerifyFlags = ScriptBip16 |
	ScriptVerifyDERSignatures |
	ScriptVerifyLowS |
	ScriptStrictMultiSig |
	ScriptDiscourageUpgradableNops |
	ScriptVerifyCheckLockTimeVerify |
	ScriptVerifyCheckSequenceVerify |
	ScriptVerifyCleanStack |
	ScriptVerifyWitness |
	ScriptVerifyDiscourageUpgradableWitnessProgram |
	ScriptVerifyMinimalIf |
	ScriptVerifyWitnessPubKeyType |
	ScriptVerifyNullFail |
	ScriptVerifyMinimalData |
	ScriptVerifySigPushOnly |
	ScriptVerifyStrictEncoding

// MandatoryVerifyFlags is the minimal flag set every block must satisfy
// regardless of mempool policy (it excludes purely-relay-standardness
// rules like CleanStack/MinimalData/SigPushOnly that are not consensus
// critical pre-witness, but includes BIP16/65/112/141 once active).
const MandatoryVerifyFlags = ScriptBip16 |
	ScriptVerifyDERSignatures |
	ScriptStrictMultiSig |
	ScriptVerifyCheckLockTimeVerify |
	ScriptVerifyCheckSequenceVerify |
	ScriptVerifyWitness |
	ScriptVerifyNullFail

// HasFlag reports whether flags has f set.
func (flags ScriptFlags) HasFlag(f ScriptFlags) bool { return flags&f == f }
