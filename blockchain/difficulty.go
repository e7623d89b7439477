// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"sort"
	"time"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/chainstore"
)

// medianTimeBlocks is the number of preceding blocks used to calculate the
// median time used to validate block timestamps.
const medianTimeBlocks = 11

// maxTimeOffset is how far into the future, relative to the network-adjusted
// clock, a block's timestamp may be.
const maxTimeOffset = 2 * time.Hour

// calcPastMedianTime walks up to medianTimeBlocks ancestors of entry
// (inclusive) and returns the median of their timestamps.
func (c *Chain) calcPastMedianTime(entry *chainstore.ChainEntry) (time.Time, error) {
	timestamps := make([]int64, 0, medianTimeBlocks)
	cur := entry
	for i := 0; i < medianTimeBlocks && cur != nil; i++ {
		timestamps = append(timestamps, cur.Header.Timestamp)
		if cur.Height == 0 {
			break
		}
		parentHash := cur.Header.PrevBlock
		parent, err := c.store.Entry(&parentHash)
		if err != nil {
			break
		}
		cur = parent
	}

	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return time.Unix(timestamps[len(timestamps)/2], 0), nil
}

// calcNextRequiredDifficulty computes the bits field a block extending
// parent must carry: unchanged within a retarget window, recomputed from
// the window's actual timespan every RetargetWindow blocks, bounded to
// RetargetAdjustmentFactor either direction and never easier than PowLimit.
func (c *Chain) calcNextRequiredDifficulty(parent *chainstore.ChainEntry, newBlockTime time.Time) (uint32, error) {
	nextHeight := parent.Height + 1

	if c.params.ReduceMinDifficulty && !c.params.NoDifficultyAdjustment {
		if newBlockTime.After(timeFromUnix(parent.Header.Timestamp).Add(c.params.MinDiffReductionTime)) {
			return c.params.PowLimitBits, nil
		}
	}

	if c.params.NoDifficultyAdjustment || nextHeight%c.params.RetargetWindow != 0 {
		return parent.Header.Bits, nil
	}

	// Walk back RetargetWindow-1 blocks from parent to find the first
	// block of the window just completed.
	firstHeight := nextHeight - c.params.RetargetWindow
	firstHash, err := c.hashAtHeightOnChainOf(parent, firstHeight)
	if err != nil {
		return 0, err
	}
	firstEntry, err := c.store.Entry(firstHash)
	if err != nil {
		return 0, err
	}

	actualTimespan := parent.Header.Timestamp - firstEntry.Header.Timestamp
	targetTimespan := int64(c.params.TargetTimePerBlock) * int64(c.params.RetargetWindow) / int64(time.Second)

	minTimespan := targetTimespan / c.params.RetargetAdjustmentFactor
	maxTimespan := targetTimespan * c.params.RetargetAdjustmentFactor
	switch {
	case actualTimespan < minTimespan:
		actualTimespan = minTimespan
	case actualTimespan > maxTimespan:
		actualTimespan = maxTimespan
	}

	oldTarget := compactToBig(parent.Header.Bits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))
	if newTarget.Cmp(c.params.PowLimit) > 0 {
		newTarget = c.params.PowLimit
	}
	return bigToCompact(newTarget), nil
}

// hashAtHeightOnChainOf walks backward from entry to height, following
// prev-hash pointers. Used during retarget before the candidate block (and
// hence its ancestry) is the main chain, so the H/ index cannot be trusted.
func (c *Chain) hashAtHeightOnChainOf(entry *chainstore.ChainEntry, height int32) (*chainhash.Hash, error) {
	cur := entry
	for cur.Height > height {
		parentHash := cur.Header.PrevBlock
		parent, err := c.store.Entry(&parentHash)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	h := cur.Hash()
	return &h, nil
}

func timeFromUnix(ts int64) time.Time { return time.Unix(ts, 0) }
