// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/chainhash"
)

// latestCheckpoint returns the highest checkpoint at or below height, or
// nil if none qualify (e.g. height is below the first checkpoint).
func (c *Chain) latestCheckpoint(height int32) *chaincfg.Checkpoint {
	var best *chaincfg.Checkpoint
	for i := range c.params.Checkpoints {
		cp := &c.params.Checkpoints[i]
		if cp.Height <= height && (best == nil || cp.Height > best.Height) {
			best = cp
		}
	}
	return best
}

// checkCheckpoints rejects a candidate chain that passes through a height
// carrying a compiled-in checkpoint with a different hash.
func (c *Chain) checkCheckpoints(height int32, hash *chainhash.Hash) error {
	for _, cp := range c.params.Checkpoints {
		if cp.Height == height && !cp.Hash.IsEqual(hash) {
			return ruleError(ErrCheckpointMismatch, fmt.Sprintf(
				"block at height %d (%s) contradicts checkpoint %s", height, hash, cp.Hash))
		}
	}
	return nil
}

// verifyCheckpoint reports whether a reorg candidate is even allowed to
// replace the current tip: it must not attempt to rewrite history below the
// highest checkpoint known to both chains.
func (c *Chain) verifyCheckpoint(forkHeight int32) error {
	cp := c.latestCheckpoint(forkHeight)
	if cp == nil {
		return nil
	}
	if forkHeight < cp.Height {
		return ruleError(ErrCheckpointMismatch, fmt.Sprintf(
			"fork point at height %d is below checkpoint at height %d", forkHeight, cp.Height))
	}
	return nil
}
