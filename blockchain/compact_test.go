// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"testing"
)

func TestCompactRoundTripsKnownBits(t *testing.T) {
	// 0x1d00ffff is Bitcoin mainnet's genesis difficulty; its round trip
	// through compactToBig/bigToCompact is a well-known fixed point.
	const bits = 0x1d00ffff
	target := compactToBig(bits)
	if got := bigToCompact(target); got != bits {
		t.Fatalf("bigToCompact(compactToBig(0x%x)) = 0x%x, want 0x%x", bits, got, bits)
	}
}

func TestCompactToBigZeroMantissa(t *testing.T) {
	if got := compactToBig(0); got.Sign() != 0 {
		t.Fatalf("compactToBig(0) = %s, want 0", got)
	}
}

func TestBigToCompactZero(t *testing.T) {
	if got := bigToCompact(big.NewInt(0)); got != 0 {
		t.Fatalf("bigToCompact(0) = 0x%x, want 0", got)
	}
}

func TestCalcWorkDecreasesAsTargetGrows(t *testing.T) {
	easyBits := uint32(0x1d00ffff)  // large target, low work
	hardBits := uint32(0x1a05db8b)  // smaller target, higher work

	easyWork := calcWork(easyBits)
	hardWork := calcWork(hardBits)
	if hardWork.Cmp(easyWork) <= 0 {
		t.Fatalf("calcWork(harder bits) = %s, want > calcWork(easier bits) = %s", hardWork, easyWork)
	}
}

func TestCalcWorkZeroTarget(t *testing.T) {
	if got := calcWork(0); got.Sign() != 0 {
		t.Fatalf("calcWork(0) = %s, want 0", got)
	}
}
