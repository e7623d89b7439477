// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"sort"
)

// byFeeRate keeps every mempool entry sorted ascending by fee rate, so
// index 0 is always the cheapest transaction — the first candidate for
// eviction once the pool exceeds its memory cap.
type byFeeRate struct {
	entries []*txEntry
}

func (b *byFeeRate) find(e *txEntry) int {
	rate := e.feeRate()
	return sort.Search(len(b.entries), func(i int) bool {
		other := b.entries[i]
		if other.feeRate() > rate {
			return true
		}
		if other.feeRate() == rate {
			return bytes.Compare(other.txid[:], e.txid[:]) <= 0
		}
		return false
	})
}

func (b *byFeeRate) push(e *txEntry) {
	i := b.find(e)
	b.entries = append(b.entries, nil)
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = e
}

func (b *byFeeRate) remove(e *txEntry) {
	i := b.find(e)
	for i < len(b.entries) && b.entries[i].txid != e.txid {
		i++
	}
	if i >= len(b.entries) {
		return
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
}

// cheapest returns the lowest-fee-rate entry, or nil if empty.
func (b *byFeeRate) cheapest() *txEntry {
	if len(b.entries) == 0 {
		return nil
	}
	return b.entries[0]
}
