// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// ErrorCode enumerates the tagged script-verification failure reasons the
// interpreter must distinguish.
type ErrorCode int

const (
	ErrInternal ErrorCode = iota
	ErrInvalidFlags
	ErrInvalidIndex
	ErrUnsupportedAddress
	ErrNotMultisigScript
	ErrTooManyRequiredSigs
	ErrTooMuchNullData

	// Failures recognized by the consensus-critical execution path.
	ErrEarlyReturn
	ErrEmptyStack
	ErrEvalFalse
	ErrScriptUnfinished
	ErrInvalidProgramCounter
	ErrScriptDone
	ErrUnknownOpcode
	ErrReservedOpcode
	ErrMalformedPush
	ErrInvalidStackOperation
	ErrInvalidAltStackOperation
	ErrOpReturn
	ErrVerify
	ErrEqualVerify
	ErrNumEqualVerify
	ErrCheckSigVerify
	ErrCheckMultiSigVerify
	ErrDisabledOpcode
	ErrTooManyOperations
	ErrElementTooBig
	ErrTooManyPubKeys
	ErrTooMuchSignatureOps
	ErrStackOverflow
	ErrInvalidPubKeyCount
	ErrInvalidSignatureCount
	ErrNumberTooBig
	ErrMinimalData
	ErrNegativeLockTime
	ErrUnsatisfiedLockTime
	ErrSigNullDummy
	ErrDiscourageUpgradableNOPs
	ErrMinimalIf
	ErrDiscourageUpgradableWitnessProgram
	ErrWitnessProgramEmpty
	ErrWitnessProgramMismatch
	ErrWitnessProgramWrongLength
	ErrWitnessUnexpected
	ErrWitnessMalleated
	ErrWitnessMalleatedP2SH
	ErrWitnessPubKeyType
	ErrCleanStack
	ErrNullFail
	ErrSigDER
	ErrSigHighS
	ErrSigHashType
	ErrPubKeyType
	ErrNotPushOnly
	ErrUnbalancedConditional
	ErrSigPushOnly
	ErrCodeSeparator
)

// Error wraps a consensus-rule violation encountered during script
// execution or static checking, tagged with the ErrorCode callers
// (mempool, blockchain) switch on to decide ban score / reject reason.
type Error struct {
	ErrorCode   ErrorCode
	Description string
}

func (e Error) Error() string { return e.Description }

func scriptError(c ErrorCode, format string, args ...interface{}) Error {
	return Error{ErrorCode: c, Description: fmt.Sprintf(format, args...)}
}

// IsErrorCode reports whether err is a txscript Error of the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	serr, ok := err.(Error)
	return ok && serr.ErrorCode == c
}
