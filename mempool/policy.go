// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/dworznik/bcoin/blockchain"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/txscript"
	"github.com/dworznik/bcoin/wire"
)

// maxStandardP2SHSigOps is the maximum number of signature operations
// considered standard in a pay-to-script-hash input.
const maxStandardP2SHSigOps = 15

// maxStandardSigScriptSize bounds a standard input's signature script, big
// enough for a 15-of-15 CHECKMULTISIG P2SH redemption.
const maxStandardSigScriptSize = 1650

// maxStandardTxWeight bounds a standard transaction's BIP141 weight.
const maxStandardTxWeight = 400_000

// maxStandardVersion is the highest transaction version this policy
// relays/mines regardless of what consensus itself accepts.
const maxStandardVersion = 2

// baseRelayFee is a minimum relay fee of 1000 sat per 1000 vbytes. Admission
// never falls back to it: the fee checks read chaincfg.Params.MinRelayTxFee
// as given, even when it is zero.
const baseRelayFee = 1000

// countingWriter discards bytes written to it, counting only how many.
type countingWriter struct{ n int }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}

// virtualSize computes a transaction's BIP141 virtual size: (base*4 +
// witness + 3) / 4, the glossary's Virtual size definition.
func virtualSize(tx *wire.MsgTx) int64 {
	var base, total countingWriter
	_ = tx.SerializeNoWitness(&base)
	_ = tx.Serialize(&total)
	witness := total.n - base.n
	return int64(base.n*4+witness+3) / 4
}

// isSane performs the first stage of admission: structural checks
// independent of any other transaction or chain state.
func isSane(tx *wire.MsgTx) error {
	if len(tx.TxIn) == 0 {
		return txRuleError(RejectInvalid, "transaction has no inputs")
	}
	if len(tx.TxOut) == 0 {
		return txRuleError(RejectInvalid, "transaction has no outputs")
	}
	if w := virtualSize(tx) * 4; w > blockchain.MaxBlockWeight/4 {
		return txRuleError(RejectInvalid, fmt.Sprintf(
			"transaction weight of %d exceeds max allowed %d", w, blockchain.MaxBlockWeight/4))
	}

	var total int64
	for _, out := range tx.TxOut {
		if out.Value < 0 {
			return txRuleError(RejectInvalid, "transaction output has negative value")
		}
		if out.Value > maxSatoshi {
			return txRuleError(RejectInvalid, "transaction output value exceeds max allowed")
		}
		total += out.Value
		if total < 0 || total > maxSatoshi {
			return txRuleError(RejectInvalid, "total transaction output value exceeds max allowed")
		}
	}

	seen := make(map[wire.OutPoint]bool, len(tx.TxIn))
	for _, in := range tx.TxIn {
		if seen[in.PreviousOutPoint] {
			return txRuleError(RejectDuplicate, "transaction spends the same outpoint more than once")
		}
		seen[in.PreviousOutPoint] = true
	}

	if isCoinbaseTx(tx) {
		return txRuleError(RejectInvalid, "transaction is an individually submitted coinbase")
	}

	return nil
}

// maxSatoshi is the maximum number of satoshis/sompis possible (21 million
// BTC, 8 decimal places).
const maxSatoshi = 21_000_000 * 1e8

func isCoinbaseTx(tx *wire.MsgTx) bool {
	return len(tx.TxIn) == 1 &&
		tx.TxIn[0].PreviousOutPoint.Index == 0xffffffff &&
		tx.TxIn[0].PreviousOutPoint.Hash == (chainhash.Hash{})
}

// isStandard performs step 2 of admission: the additional policy
// restrictions a "standard" transaction must meet beyond mere sanity,
// covering version range, weight, scriptSig size and push-only form,
// recognized output script forms, and dust. Witness data carried before
// segwit activation is rejected separately by addTransactionLocked.
func isStandard(tx *wire.MsgTx, minRelayTxFee int64) error {
	if tx.Version < 1 || tx.Version > maxStandardVersion {
		return txRuleError(RejectNonstandard, fmt.Sprintf(
			"transaction version %d is not in the valid range of 1-%d", tx.Version, maxStandardVersion))
	}

	if w := virtualSize(tx) * 4; w > maxStandardTxWeight {
		return txRuleError(RejectNonstandard, fmt.Sprintf(
			"transaction weight of %d is larger than max standard weight of %d", w, maxStandardTxWeight))
	}

	for i, in := range tx.TxIn {
		if len(in.SignatureScript) > maxStandardSigScriptSize {
			return txRuleError(RejectNonstandard, fmt.Sprintf(
				"transaction input %d: signature script size of %d bytes is larger than max allowed size of %d bytes",
				i, len(in.SignatureScript), maxStandardSigScriptSize))
		}
		pushOnly, err := txscript.IsPushOnlyScript(in.SignatureScript)
		if err != nil {
			return txRuleError(RejectNonstandard, fmt.Sprintf(
				"transaction input %d: unparsable signature script: %v", i, err))
		}
		if !pushOnly {
			return txRuleError(RejectNonstandard, fmt.Sprintf(
				"transaction input %d: signature script is not push only", i))
		}
	}

	for i, out := range tx.TxOut {
		class := txscript.GetScriptClass(out.PkScript)
		if class == txscript.NonStandardTy {
			return txRuleError(RejectNonstandard, fmt.Sprintf(
				"transaction output %d: non-standard script form", i))
		}
		if isDust(out, minRelayTxFee) {
			return txRuleError(RejectDust, fmt.Sprintf(
				"transaction output %d: payment of %d is dust", i, out.Value))
		}
	}

	return nil
}

// isDust reports whether out is uneconomical to ever spend: the cost of
// spending it (input size * relay fee rate) exceeds a third of its value.
func isDust(out *wire.TxOut, minRelayTxFee int64) bool {
	if txscript.IsUnspendable(out.PkScript) {
		return true
	}

	// 8 value + varint(len pkscript) + pkscript, plus a typical p2pkh
	// input's 148 bytes to redeem it.
	totalSize := int64(8 + wire.VarIntSerializeSize(uint64(len(out.PkScript))) + len(out.PkScript) + 148)
	return out.Value*1000/(3*totalSize) < minRelayTxFee
}

// checkInputsStandard performs the input half of standardness that can
// only run once inputs are resolved to their claimed coins: every P2SH
// input must not exceed the standard sigop budget, and no input may spend
// a non-standard output script form.
func checkInputsStandard(tx *wire.MsgTx, prevScripts [][]byte) error {
	for i, in := range tx.TxIn {
		switch txscript.GetScriptClass(prevScripts[i]) {
		case txscript.ScriptHashTy:
			numSigOps := txscript.GetPreciseSigOpCount(in.SignatureScript, prevScripts[i], true)
			if numSigOps > maxStandardP2SHSigOps {
				return txRuleError(RejectNonstandard, fmt.Sprintf(
					"transaction input #%d has %d signature operations which is more than the allowed max amount of %d",
					i, numSigOps, maxStandardP2SHSigOps))
			}
		case txscript.NonStandardTy:
			return txRuleError(RejectNonstandard, fmt.Sprintf(
				"transaction input #%d has a non-standard script form", i))
		}
	}
	return nil
}

// minimumRelayFee scales minRelayTxFee (sat/1000vbytes) by vsize.
func minimumRelayFee(vsize int64, minRelayTxFee int64) int64 {
	fee := vsize * minRelayTxFee / 1000
	if fee == 0 && minRelayTxFee > 0 {
		fee = minRelayTxFee
	}
	if fee < 0 || fee > maxSatoshi {
		fee = maxSatoshi
	}
	return fee
}

// getPriority computes a transaction's coin-age-based mining priority:
// sum(input_value * confirmations) / virtual_size. nextHeight is the
// height the transaction would first be eligible to be mined at.
func getPriority(inputValues []int64, inputHeights []int32, nextHeight int32, vsize int64) float64 {
	if vsize == 0 {
		return 0
	}
	var sum float64
	for i, v := range inputValues {
		confs := nextHeight - inputHeights[i]
		if confs < 0 {
			confs = 0
		}
		sum += float64(v) * float64(confs)
	}
	return sum / float64(vsize)
}
