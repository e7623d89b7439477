// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorCode identifies the specific reason a candidate block or transaction
// was rejected, grounded on the Verify taxonomy: malformed, invalid,
// obsolete, duplicate, nonstandard, dust, insufficientfee, checkpoint.
type ErrorCode int

const (
	// ErrDuplicateBlock indicates the block was seen before and rejected
	// as invalid. Blocks already on disk or in the orphan pool are reported
	// through the AlreadyKnown outcome without an error.
	ErrDuplicateBlock ErrorCode = iota
	// ErrMissingParent indicates the block's parent is not known.
	ErrMissingParent
	// ErrBadPOW indicates the block's header hash does not satisfy the
	// difficulty target encoded in bits.
	ErrBadPOW
	// ErrUnexpectedDifficulty indicates bits does not match the value
	// computed by the retarget rule.
	ErrUnexpectedDifficulty
	// ErrTimeTooOld indicates the timestamp is not greater than the
	// median of the last 11 blocks.
	ErrTimeTooOld
	// ErrTimeTooNew indicates the timestamp is too far in the future.
	ErrTimeTooNew
	// ErrBadMerkleRoot indicates the computed merkle root does not match
	// the header.
	ErrBadMerkleRoot
	// ErrBadWitnessCommitment indicates the witness commitment output
	// does not match the block's witness data.
	ErrBadWitnessCommitment
	// ErrBlockTooBig indicates the block exceeds MaxBlockWeight.
	ErrBlockTooBig
	// ErrMissingCoin indicates a transaction spends an outpoint that does
	// not exist.
	ErrMissingCoin
	// ErrImmatureSpend indicates a coinbase output was spent before
	// reaching CoinbaseMaturity confirmations.
	ErrImmatureSpend
	// ErrSpendTooHigh indicates the sum of inputs is less than the sum
	// of outputs.
	ErrSpendTooHigh
	// ErrTooManySigOps indicates the block's total sigop cost exceeds
	// the per-block limit.
	ErrTooManySigOps
	// ErrScriptValidation indicates a transaction input's script failed
	// to validate against its claimed coin.
	ErrScriptValidation
	// ErrDuplicateTx indicates a BIP30 duplicate-txid violation.
	ErrDuplicateTx
	// ErrCheckpointMismatch indicates a candidate fork contradicts a
	// compiled-in checkpoint.
	ErrCheckpointMismatch
	// ErrBadCoinbaseHeight indicates the BIP34 coinbase height commitment
	// does not match the connecting height.
	ErrBadCoinbaseHeight
	// ErrNoTransactions indicates a block has an empty tx vector.
	ErrNoTransactions
	// ErrFirstTxNotCoinbase indicates the block's first transaction is
	// not a coinbase.
	ErrFirstTxNotCoinbase
	// ErrMultipleCoinbases indicates more than one coinbase transaction
	// is present.
	ErrMultipleCoinbases
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:       "ErrDuplicateBlock",
	ErrMissingParent:        "ErrMissingParent",
	ErrBadPOW:               "ErrBadPOW",
	ErrUnexpectedDifficulty: "ErrUnexpectedDifficulty",
	ErrTimeTooOld:           "ErrTimeTooOld",
	ErrTimeTooNew:           "ErrTimeTooNew",
	ErrBadMerkleRoot:        "ErrBadMerkleRoot",
	ErrBadWitnessCommitment: "ErrBadWitnessCommitment",
	ErrBlockTooBig:          "ErrBlockTooBig",
	ErrMissingCoin:          "ErrMissingCoin",
	ErrImmatureSpend:        "ErrImmatureSpend",
	ErrSpendTooHigh:         "ErrSpendTooHigh",
	ErrTooManySigOps:        "ErrTooManySigOps",
	ErrScriptValidation:     "ErrScriptValidation",
	ErrDuplicateTx:          "ErrDuplicateTx",
	ErrCheckpointMismatch:   "ErrCheckpointMismatch",
	ErrBadCoinbaseHeight:    "ErrBadCoinbaseHeight",
	ErrNoTransactions:       "ErrNoTransactions",
	ErrFirstTxNotCoinbase:   "ErrFirstTxNotCoinbase",
	ErrMultipleCoinbases:    "ErrMultipleCoinbases",
}

func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("unknown ErrorCode (%d)", int(e))
}

// misbehaviorScore maps an ErrorCode to the ban score a peer-sourced
// violation of that kind earns, per the Verify{code,score} contract. A
// checkpoint contradiction always scores 100; malformed/consensus failures
// score high; the rest are more forgiving.
var misbehaviorScore = map[ErrorCode]int{
	ErrCheckpointMismatch:   100,
	ErrBadPOW:               100,
	ErrUnexpectedDifficulty: 100,
	ErrBadMerkleRoot:        100,
	ErrBadWitnessCommitment: 100,
	ErrBlockTooBig:          100,
	ErrDuplicateTx:          100,
	ErrMissingCoin:          10,
	ErrImmatureSpend:        10,
	ErrSpendTooHigh:         10,
	ErrTooManySigOps:        100,
	ErrScriptValidation:     10,
	ErrBadCoinbaseHeight:    100,
	ErrNoTransactions:       100,
	ErrFirstTxNotCoinbase:   100,
	ErrMultipleCoinbases:    100,
	ErrTimeTooOld:           0,
	ErrTimeTooNew:           0,
	ErrMissingParent:        0,
	ErrDuplicateBlock:       0,
}

// RuleError identifies an error that happened while validating a block or
// transaction against consensus rules. It carries the score a peer that
// offered the offending data should be penalized.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e RuleError) Error() string { return e.Description }

// Score returns the ban-score contribution this error earns a peer that
// relayed the offending block or transaction.
func (e RuleError) Score() int { return misbehaviorScore[e.ErrorCode] }

func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode reports whether err is a RuleError carrying code c.
func IsErrorCode(err error, c ErrorCode) bool {
	rerr, ok := err.(RuleError)
	return ok && rerr.ErrorCode == c
}
