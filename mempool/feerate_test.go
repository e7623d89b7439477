// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/dworznik/bcoin/chainhash"
)

func entryWithFeeRate(tag byte, fee, vsize int64) *txEntry {
	return &txEntry{
		txid:  chainhash.Hash{tag},
		fee:   fee,
		vsize: vsize,
	}
}

func TestByFeeRateOrdering(t *testing.T) {
	var b byFeeRate
	cheap := entryWithFeeRate(1, 100, 1000)  // 0.1 sat/vbyte
	mid := entryWithFeeRate(2, 1000, 1000)   // 1 sat/vbyte
	rich := entryWithFeeRate(3, 10000, 1000) // 10 sat/vbyte

	b.push(mid)
	b.push(rich)
	b.push(cheap)

	if b.cheapest() != cheap {
		t.Fatalf("expected cheapest() to return the lowest fee-rate entry")
	}

	b.remove(cheap)
	if b.cheapest() != mid {
		t.Fatalf("expected cheapest() to return mid after removing cheap")
	}
	if len(b.entries) != 2 {
		t.Fatalf("expected 2 entries remaining, got %d", len(b.entries))
	}
}

func TestByFeeRateEmptyCheapest(t *testing.T) {
	var b byFeeRate
	if b.cheapest() != nil {
		t.Fatal("expected cheapest() on an empty set to return nil")
	}
}
