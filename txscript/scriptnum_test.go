// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "testing"

func TestScriptNumBytesRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 127, 128, -128, 32767, 32768, -32768, 1234567890}
	for _, v := range cases {
		n := scriptNum(v)
		encoded := n.Bytes()
		decoded, err := makeScriptNum(encoded, true, 5)
		if err != nil {
			t.Fatalf("makeScriptNum(%d): %v", v, err)
		}
		if int64(decoded) != v {
			t.Fatalf("round trip of %d = %d", v, int64(decoded))
		}
	}
}

func TestScriptNumZeroEncodesEmpty(t *testing.T) {
	if b := scriptNum(0).Bytes(); b != nil {
		t.Fatalf("scriptNum(0).Bytes() = %x, want nil", b)
	}
}

func TestMakeScriptNumRejectsOversized(t *testing.T) {
	_, err := makeScriptNum([]byte{1, 2, 3, 4, 5}, true, 4)
	if !IsErrorCode(err, ErrNumberTooBig) {
		t.Fatalf("expected ErrNumberTooBig, got %v", err)
	}
}

func TestMakeScriptNumRejectsNonMinimal(t *testing.T) {
	_, err := makeScriptNum([]byte{0x00, 0x80}, true, 5)
	if !IsErrorCode(err, ErrMinimalData) {
		t.Fatalf("expected ErrMinimalData for non-minimal encoding, got %v", err)
	}
}

func TestMakeScriptNumAllowsNonMinimalWhenNotRequired(t *testing.T) {
	n, err := makeScriptNum([]byte{0x00, 0x80}, false, 5)
	if err != nil {
		t.Fatalf("makeScriptNum: %v", err)
	}
	if n != 0 {
		t.Fatalf("makeScriptNum([0x00, 0x80]) = %d, want 0", n)
	}
}

func TestScriptNumInt32Clamps(t *testing.T) {
	if got := scriptNum(1 << 40).Int32(); got != 2147483647 {
		t.Fatalf("Int32 overflow clamp = %d, want max int32", got)
	}
	if got := scriptNum(-(1 << 40)).Int32(); got != -2147483648 {
		t.Fatalf("Int32 underflow clamp = %d, want min int32", got)
	}
}
