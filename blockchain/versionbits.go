// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/chainstore"
)

// ThresholdState is a BIP9 deployment's state relative to an ancestor
// block, evaluated once per retarget window.
type ThresholdState int

const (
	ThresholdDefined ThresholdState = iota
	ThresholdStarted
	ThresholdLockedIn
	ThresholdActive
	ThresholdFailed
)

func (s ThresholdState) String() string {
	switch s {
	case ThresholdDefined:
		return "defined"
	case ThresholdStarted:
		return "started"
	case ThresholdLockedIn:
		return "locked-in"
	case ThresholdActive:
		return "active"
	case ThresholdFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// vbTopBits/vbTopMask identify a versionbits signal: the top three bits of
// the 32-bit version field must be 0b001, leaving 29 signaling bits.
const (
	vbTopBits uint32 = 0x20000000
	vbTopMask uint32 = 0xe0000000
)

// ruleChangeActivationThreshold is the fraction of blocks in a window that
// must signal for a deployment to lock in (95% on mainnet-style networks).
func (c *Chain) ruleChangeActivationThreshold() int32 {
	return c.params.RetargetWindow * 95 / 100
}

// thresholdState walks backward from entry to the start of its containing
// retarget window, then evaluates the BIP9 state machine window by window
// from genesis forward. Results are not cached: every call re-walks the
// window boundaries back to genesis.
func (c *Chain) thresholdState(entry *chainstore.ChainEntry, dep uint32) (ThresholdState, error) {
	deployment := c.params.Deployments[dep]

	// Walk back to the last block of the *previous* completed window; the
	// state of the window entry belongs to is decided by the median time
	// of that boundary block.
	prevWindowEntry := entry
	for (prevWindowEntry.Height+1)%c.params.RetargetWindow != 0 {
		if prevWindowEntry.Height == 0 {
			return ThresholdDefined, nil
		}
		parentHash := prevWindowEntry.Header.PrevBlock
		parent, err := c.store.Entry(&parentHash)
		if err != nil {
			return ThresholdDefined, err
		}
		prevWindowEntry = parent
	}

	// Collect window boundaries from genesis to prevWindowEntry.
	var boundaries []*chainstore.ChainEntry
	cur := prevWindowEntry
	for {
		boundaries = append([]*chainstore.ChainEntry{cur}, boundaries...)
		if cur.Height < c.params.RetargetWindow {
			break
		}
		hash, err := c.hashAtHeightOnChainOf(cur, cur.Height-c.params.RetargetWindow)
		if err != nil {
			return ThresholdDefined, err
		}
		prev, err := c.store.Entry(hash)
		if err != nil {
			return ThresholdDefined, err
		}
		cur = prev
	}

	state := ThresholdDefined
	for _, boundary := range boundaries {
		medianTime, err := c.calcPastMedianTime(boundary)
		if err != nil {
			return state, err
		}
		mt := uint64(medianTime.Unix())

		switch state {
		case ThresholdDefined:
			if mt >= deployment.ExpireTime {
				state = ThresholdFailed
			} else if mt >= deployment.StartTime {
				state = ThresholdStarted
			}
		case ThresholdStarted:
			if mt >= deployment.ExpireTime {
				state = ThresholdFailed
				break
			}
			count, err := c.countSignalingBlocks(boundary, deployment.BitNumber)
			if err != nil {
				return state, err
			}
			if count >= c.ruleChangeActivationThreshold() {
				state = ThresholdLockedIn
			}
		case ThresholdLockedIn:
			state = ThresholdActive
		}
	}
	return state, nil
}

// countSignalingBlocks counts, over the RetargetWindow blocks ending at
// boundary, how many carry the versionbits signal for bit.
func (c *Chain) countSignalingBlocks(boundary *chainstore.ChainEntry, bit uint8) (int32, error) {
	var count int32
	cur := boundary
	for i := int32(0); i < c.params.RetargetWindow; i++ {
		if uint32(cur.Header.Version)&vbTopMask == vbTopBits &&
			uint32(cur.Header.Version)&(1<<bit) != 0 {
			count++
		}
		if cur.Height == 0 {
			break
		}
		parentHash := cur.Header.PrevBlock
		parent, err := c.store.Entry(&parentHash)
		if err != nil {
			return count, err
		}
		cur = parent
	}
	return count, nil
}

// deploymentActive reports whether a BIP9 deployment is active at entry.
func (c *Chain) deploymentActive(entry *chainstore.ChainEntry, dep uint32) (bool, error) {
	if dep >= chaincfg.DefinedDeployments {
		return false, nil
	}
	state, err := c.thresholdState(entry, dep)
	if err != nil {
		return false, err
	}
	return state == ThresholdActive, nil
}
