// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "testing"

func TestRuleErrorScoreMatchesTable(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCheckpointMismatch, 100},
		{ErrBadPOW, 100},
		{ErrMissingCoin, 10},
		{ErrTimeTooOld, 0},
		{ErrDuplicateBlock, 0},
	}
	for _, tc := range cases {
		err := ruleError(tc.code, "test")
		if got := err.Score(); got != tc.want {
			t.Errorf("ruleError(%s).Score() = %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestIsErrorCode(t *testing.T) {
	err := ruleError(ErrBadMerkleRoot, "bad root")
	if !IsErrorCode(err, ErrBadMerkleRoot) {
		t.Fatalf("IsErrorCode did not recognize matching code")
	}
	if IsErrorCode(err, ErrBadPOW) {
		t.Fatalf("IsErrorCode incorrectly matched a different code")
	}
	if IsErrorCode(nil, ErrBadMerkleRoot) {
		t.Fatalf("IsErrorCode incorrectly matched a non-RuleError nil error")
	}
}

func TestErrorCodeStringUnknown(t *testing.T) {
	var unknown ErrorCode = 9999
	if got := unknown.String(); got == "" {
		t.Fatalf("ErrorCode.String() on an unknown code returned empty string")
	}
}

func TestRuleErrorImplementsError(t *testing.T) {
	var err error = ruleError(ErrNoTransactions, "no transactions")
	if err.Error() != "no transactions" {
		t.Fatalf("RuleError.Error() = %q, want %q", err.Error(), "no transactions")
	}
}
