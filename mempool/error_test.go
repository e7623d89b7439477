// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "testing"

func TestTxRuleErrorScore(t *testing.T) {
	cases := []struct {
		code RejectCode
		want int
	}{
		{RejectMalformed, 100},
		{RejectDuplicate, 0},
		{RejectPoolFull, -1},
	}
	for _, c := range cases {
		err := txRuleError(c.code, "test")
		txErr, ok := err.Err.(TxRuleError)
		if !ok {
			t.Fatalf("expected TxRuleError, got %T", err.Err)
		}
		if got := txErr.Score(); got != c.want {
			t.Errorf("code %v: Score() = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestRejectCodeOf(t *testing.T) {
	err := txRuleError(RejectDust, "dust output")
	code, ok := RejectCodeOf(err)
	if !ok || code != RejectDust {
		t.Fatalf("RejectCodeOf() = (%v, %v), want (%v, true)", code, ok, RejectDust)
	}

	_, ok = RejectCodeOf(nil)
	if ok {
		t.Fatal("expected RejectCodeOf(nil) to report false")
	}
}

func TestRuleErrorUnwrap(t *testing.T) {
	inner := txRuleError(RejectInvalid, "bad script")
	wrapped := newRuleError(inner)
	if wrapped.Unwrap() != error(inner) && wrapped.Unwrap().Error() != inner.Error() {
		t.Fatalf("Unwrap() did not return the wrapped error")
	}
}
