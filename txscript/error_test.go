// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "testing"

func TestIsErrorCodeMatches(t *testing.T) {
	err := scriptError(ErrEvalFalse, "false stack entry")
	if !IsErrorCode(err, ErrEvalFalse) {
		t.Fatalf("IsErrorCode did not recognize matching code")
	}
	if IsErrorCode(err, ErrStackOverflow) {
		t.Fatalf("IsErrorCode incorrectly matched a different code")
	}
}

func TestIsErrorCodeNonTxscriptError(t *testing.T) {
	if IsErrorCode(errPlain("boom"), ErrEvalFalse) {
		t.Fatalf("IsErrorCode matched a non-txscript error")
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestErrorMessagePreserved(t *testing.T) {
	err := scriptError(ErrDisabledOpcode, "opcode %s is disabled", "OP_CAT")
	if err.Error() != "opcode OP_CAT is disabled" {
		t.Fatalf("Error() = %q, want %q", err.Error(), "opcode OP_CAT is disabled")
	}
}
