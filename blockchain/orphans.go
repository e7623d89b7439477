// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"time"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// maxOrphanBlocks caps the orphan pool; beyond this, the oldest orphan is
// evicted to make room for a new one.
const maxOrphanBlocks = 100

// orphanExpiration is how long an orphan is kept if nothing ever claims it.
const orphanExpiration = time.Hour

// orphanBlock is a block whose parent is not yet known, held in case the
// parent shows up later in the sync.
type orphanBlock struct {
	block      *wire.MsgBlock
	expiration time.Time
}

// addOrphanBlock parks block in the orphan pool, evicting the oldest entry
// first if the pool is at capacity. Callers must hold writerMu; this
// function takes mu itself (directly and through removeOrphanBlock) around
// each map write to keep the orphan maps consistent for concurrent
// IsKnownOrphan/GetOrphanRoot readers.
func (c *Chain) addOrphanBlock(block *wire.MsgBlock) {
	for hash, ob := range c.orphans {
		if time.Now().After(ob.expiration) {
			c.removeOrphanBlock(hash)
			continue
		}
	}

	if len(c.orphans) >= maxOrphanBlocks {
		var oldestHash chainhash.Hash
		var oldestTime time.Time
		first := true
		for hash, ob := range c.orphans {
			if first || ob.expiration.Before(oldestTime) {
				oldestHash = hash
				oldestTime = ob.expiration
				first = false
			}
		}
		c.removeOrphanBlock(oldestHash)
	}

	hash := block.BlockHash()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orphans[hash] = &orphanBlock{block: block, expiration: time.Now().Add(orphanExpiration)}
	prevHash := block.Header.PrevBlock
	c.prevOrphans[prevHash] = append(c.prevOrphans[prevHash], hash)
}

// removeOrphanBlock deletes hash from both orphan indexes. Callers must
// hold writerMu.
func (c *Chain) removeOrphanBlock(hash chainhash.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ob, exists := c.orphans[hash]
	if !exists {
		return
	}
	delete(c.orphans, hash)

	prevHash := ob.block.Header.PrevBlock
	siblings := c.prevOrphans[prevHash]
	for i, h := range siblings {
		if h == hash {
			siblings = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	if len(siblings) == 0 {
		delete(c.prevOrphans, prevHash)
	} else {
		c.prevOrphans[prevHash] = siblings
	}
}

// IsKnownOrphan reports whether hash is currently parked in the orphan pool.
func (c *Chain) IsKnownOrphan(hash *chainhash.Hash) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.orphans[*hash]
	return exists
}

// GetOrphanRoot walks the orphan chain rooted at hash back to the earliest
// ancestor whose parent is still unknown.
func (c *Chain) GetOrphanRoot(hash *chainhash.Hash) *chainhash.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()

	root := hash
	for {
		ob, exists := c.orphans[*root]
		if !exists {
			break
		}
		prev := ob.block.Header.PrevBlock
		if _, stillOrphan := c.orphans[prev]; !stillOrphan {
			return root
		}
		root = &prev
	}
	return root
}

// orphansByParent returns the orphan blocks waiting on parentHash, if any.
func (c *Chain) orphansByParent(parentHash chainhash.Hash) []*wire.MsgBlock {
	hashes := c.prevOrphans[parentHash]
	if len(hashes) == 0 {
		return nil
	}
	blocks := make([]*wire.MsgBlock, 0, len(hashes))
	for _, h := range hashes {
		if ob, ok := c.orphans[h]; ok {
			blocks = append(blocks, ob.block)
		}
	}
	return blocks
}
