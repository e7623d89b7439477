// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// txEntry is one admitted transaction's bookkeeping: the transaction
// itself plus everything addTX step 7-11 and eviction need without
// recomputing it from the raw tx each time.
type txEntry struct {
	tx       *wire.MsgTx
	txid     chainhash.Hash
	addedAt  time.Time
	height   int32 // chain tip height at admission time
	fee      int64
	vsize    int64
	isHighPriority bool

	// parentTxids are the txids of this entry's in-mempool parents, kept
	// so ancestor-count checks and removal-cascades don't need to
	// re-derive them from inputs each time.
	parentTxids map[chainhash.Hash]struct{}
}

func (e *txEntry) feeRate() float64 {
	if e.vsize == 0 {
		return 0
	}
	return float64(e.fee) / float64(e.vsize)
}
