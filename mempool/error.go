// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "fmt"

// RejectCode identifies the category of a transaction's rejection,
// matching the wire `reject` message's ccode byte.
type RejectCode uint8

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectDust            RejectCode = 0x41
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
	// RejectPoolFull marks a rejection caused by mempool/orphan-pool
	// exhaustion rather than anything wrong with the transaction itself;
	// its Score is -1, so the caller never turns it into a reject packet
	// or a misbehavior strike.
	RejectPoolFull RejectCode = 0x44
)

var rejectCodeStrings = map[RejectCode]string{
	RejectMalformed:       "REJECT_MALFORMED",
	RejectInvalid:         "REJECT_INVALID",
	RejectObsolete:        "REJECT_OBSOLETE",
	RejectDuplicate:       "REJECT_DUPLICATE",
	RejectNonstandard:     "REJECT_NONSTANDARD",
	RejectDust:            "REJECT_DUST",
	RejectInsufficientFee: "REJECT_INSUFFICIENTFEE",
	RejectCheckpoint:      "REJECT_CHECKPOINT",
	RejectPoolFull:        "REJECT_POOL_FULL",
}

func (c RejectCode) String() string {
	if s, ok := rejectCodeStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown RejectCode (%#x)", uint8(c))
}

// rejectScore maps a RejectCode to the ban-score contribution a peer that
// relayed the offending transaction earns. RejectPoolFull scores -1: a
// capacity rejection is never the remote peer's fault, so it never
// produces a misbehavior strike: the score range is [-1,100], with -1
// meaning "suppress the reject packet entirely".
var rejectScore = map[RejectCode]int{
	RejectMalformed:       100,
	RejectInvalid:         100,
	RejectObsolete:        0,
	RejectDuplicate:       0,
	RejectNonstandard:     0,
	RejectDust:            0,
	RejectInsufficientFee: 0,
	RejectCheckpoint:      100,
	RejectPoolFull:        -1,
}

// TxRuleError describes why addTransaction refused a transaction.
type TxRuleError struct {
	RejectCode  RejectCode
	Description string
}

func (e TxRuleError) Error() string { return e.Description }

// Score returns the ban-score contribution this rejection earns the peer
// that relayed the transaction, or -1 if it should never produce a
// reject packet or misbehavior strike.
func (e TxRuleError) Score() int { return rejectScore[e.RejectCode] }

// RuleError wraps any error that caused admission to fail, giving mempool
// callers a single type to type-switch on regardless of whether the
// underlying cause was a TxRuleError or a consensus-level
// blockchain.RuleError surfaced while resolving or verifying inputs.
type RuleError struct {
	Err error
}

func (e RuleError) Error() string { return e.Err.Error() }
func (e RuleError) Unwrap() error { return e.Err }

func txRuleError(code RejectCode, desc string) RuleError {
	return RuleError{Err: TxRuleError{RejectCode: code, Description: desc}}
}

// newRuleError wraps an arbitrary non-nil error (e.g. one surfaced by the
// chain engine while resolving or verifying a transaction's inputs) as a
// RuleError so callers can treat every admission failure uniformly.
func newRuleError(err error) RuleError { return RuleError{Err: err} }

// RejectCodeOf extracts the RejectCode carried by err, if any.
func RejectCodeOf(err error) (RejectCode, bool) {
	rerr, ok := err.(RuleError)
	if !ok {
		return 0, false
	}
	if txErr, ok := rerr.Err.(TxRuleError); ok {
		return txErr.RejectCode, true
	}
	return RejectInvalid, true
}
