// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/wire"
)

// LockTimeFlags controls which BIP68/BIP113 refinements CheckFinal and
// CheckLocks apply, mirroring Bitcoin Core's STANDARD_LOCKTIME_VERIFY_FLAGS.
type LockTimeFlags uint32

const (
	// LockTimeVerifySequence enables BIP68 relative locktime enforcement.
	LockTimeVerifySequence LockTimeFlags = 1 << iota
	// LockTimeMedianTimePast uses the median of the last 11 blocks,
	// rather than the block's own timestamp, for time-based finality
	// (BIP113).
	LockTimeMedianTimePast
)

// StandardLockTimeFlags is the policy default applied to relayed and
// mempool-admitted transactions.
const StandardLockTimeFlags = LockTimeVerifySequence | LockTimeMedianTimePast

// lockTimeThreshold distinguishes a locktime interpreted as a block height
// (below) from one interpreted as a unix timestamp (at or above).
const lockTimeThreshold = 500000000

// CheckFinal reports whether tx may be included in a block extending tip,
// per nLockTime finality (BIP113-aware when flags requests it).
func (c *Chain) CheckFinal(tip *chainstore.ChainEntry, tx *wire.MsgTx, flags LockTimeFlags) (bool, error) {
	if tx.LockTime == 0 {
		return true, nil
	}

	blockHeight := tip.Height + 1
	var blockTime int64
	if flags&LockTimeMedianTimePast != 0 {
		mt, err := c.calcPastMedianTime(tip)
		if err != nil {
			return false, err
		}
		blockTime = mt.Unix()
	} else {
		blockTime = c.now().Unix()
	}

	var compareTo int64
	if int64(tx.LockTime) < lockTimeThreshold {
		compareTo = int64(blockHeight)
	} else {
		compareTo = blockTime
	}
	if int64(tx.LockTime) < compareTo {
		return true, nil
	}

	for _, in := range tx.TxIn {
		if in.Sequence != wire.MaxTxInSequenceNum {
			return false, nil
		}
	}
	return true, nil
}

// sequenceLockDisableFlag/sequenceLockIsSeconds/sequenceLockMask mirror the
// constants already carried on wire.MsgTx's doc comments (BIP68's encoding
// of a relative locktime inside the 32-bit sequence field).
const (
	sequenceLockDisableFlag = wire.SequenceLockTimeDisabled
	sequenceLockIsSeconds   = wire.SequenceLockTimeIsSeconds
	sequenceLockMask        = wire.SequenceLockTimeMask
	sequenceLockGranularity = 9 // time-based locks are counted in 512-second units
)

// CheckLocks reports whether every input of tx satisfies its BIP68
// relative locktime against tip, given the height each referenced coin was
// created at (coinHeight, indexed the same as tx.TxIn).
func (c *Chain) CheckLocks(tip *chainstore.ChainEntry, tx *wire.MsgTx, coinHeights []int32, flags LockTimeFlags) (bool, error) {
	if flags&LockTimeVerifySequence == 0 || tx.Version < 2 {
		return true, nil
	}

	var minHeight int32 = -1
	var minTime int64 = -1

	for i, in := range tx.TxIn {
		if in.Sequence&sequenceLockDisableFlag != 0 {
			continue
		}
		coinHeight := coinHeights[i]

		if in.Sequence&sequenceLockIsSeconds != 0 {
			depthEntry, err := c.ancestorAtOrAboveHeight(tip, coinHeight-1)
			if err != nil {
				return false, err
			}
			mt, err := c.calcPastMedianTime(depthEntry)
			if err != nil {
				return false, err
			}
			candidate := mt.Unix() + (int64(in.Sequence&sequenceLockMask) << sequenceLockGranularity) - 1
			if candidate > minTime {
				minTime = candidate
			}
		} else {
			candidate := coinHeight + int32(in.Sequence&sequenceLockMask) - 1
			if candidate > minHeight {
				minHeight = candidate
			}
		}
	}

	if minHeight >= tip.Height+1 {
		return false, nil
	}
	if minTime >= 0 {
		mt, err := c.calcPastMedianTime(tip)
		if err != nil {
			return false, err
		}
		if minTime >= mt.Unix() {
			return false, nil
		}
	}
	return true, nil
}

// ancestorAtOrAboveHeight walks back from entry to the highest ancestor at
// or below height (used to find the block just before a coin's own
// confirmation, whose median-time-past anchors a seconds-based sequence
// lock).
func (c *Chain) ancestorAtOrAboveHeight(entry *chainstore.ChainEntry, height int32) (*chainstore.ChainEntry, error) {
	if height < 0 {
		height = 0
	}
	return c.entryAtHeight(entry, height)
}

func (c *Chain) entryAtHeight(entry *chainstore.ChainEntry, height int32) (*chainstore.ChainEntry, error) {
	cur := entry
	for cur.Height > height {
		parentHash := cur.Header.PrevBlock
		parent, err := c.store.Entry(&parentHash)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return cur, nil
}
