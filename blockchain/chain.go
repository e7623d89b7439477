// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain is the sole writer to a chainstore.Store: it executes
// connect/disconnect/reorg, enforces consensus, and maintains the tip and
// its accumulated work, built around a linear chain rather than a DAG.
package blockchain

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/wire"
)

// AddOutcome classifies the result of Add.
type AddOutcome int

const (
	// Connected indicates the block became (part of) the new main-chain
	// tip.
	Connected AddOutcome = iota
	// Orphaned indicates the block's parent is unknown; it was parked.
	Orphaned
	// AlreadyKnown indicates the block was already on disk or orphaned.
	AlreadyKnown
	// SideBranch indicates the block validated but did not overtake the
	// current tip's cumulative work.
	SideBranch
)

func (o AddOutcome) String() string {
	switch o {
	case Connected:
		return "connected"
	case Orphaned:
		return "orphaned"
	case AlreadyKnown:
		return "already-known"
	case SideBranch:
		return "side-branch"
	default:
		return "unknown"
	}
}

// Chain is the single writer over a chainstore.Store. All connect,
// disconnect, and reorg operations hold writerMu for their entire duration;
// readers may take the store's own read lock concurrently.
type Chain struct {
	writerMu sync.Mutex
	mu       sync.RWMutex // guards orphans/invalid/tip, read independent of writerMu

	store  *chainstore.Store
	params *chaincfg.Params

	notifications *notificationManager

	orphans     map[chainhash.Hash]*orphanBlock
	prevOrphans map[chainhash.Hash][]chainhash.Hash

	invalid map[chainhash.Hash]error

	tip *chainstore.ChainEntry

	// now is the network-adjusted clock; overridable in tests.
	now func() time.Time
}

// New opens a Chain over store. If store has never seen a tip, the
// network's genesis block is connected first.
func New(store *chainstore.Store, params *chaincfg.Params) (*Chain, error) {
	c := &Chain{
		store:         store,
		params:        params,
		notifications: newNotificationManager(),
		orphans:       make(map[chainhash.Hash]*orphanBlock),
		prevOrphans:   make(map[chainhash.Hash][]chainhash.Hash),
		invalid:       make(map[chainhash.Hash]error),
		now:           time.Now,
	}

	store.SetCacheSize(int(2*params.RetargetWindow + 100))

	tipHash, err := store.Tip()
	if err != nil {
		if err := c.initGenesis(); err != nil {
			return nil, err
		}
	} else {
		tip, err := store.Entry(tipHash)
		if err != nil {
			return nil, errors.Wrap(err, "loading tip entry")
		}
		c.tip = tip
	}
	return c, nil
}

func (c *Chain) initGenesis() error {
	genesis := c.params.GenesisBlock
	work := calcWork(genesis.Header.Bits)
	entry := &chainstore.ChainEntry{Header: genesis.Header, Height: 0, ChainWork: work}

	batch := chainstore.NewBatch()
	batch.PutEntry(entry)
	batch.PutMainChainIndex(nil, 0, c.params.GenesisHash)
	batch.PutBlock(genesis)
	for i, out := range genesis.Transactions[0].TxOut {
		txid := genesis.Transactions[0].TxHash()
		batch.PutCoin(&txid, uint32(i), &chainstore.Coin{
			Value: out.Value, PkScript: out.PkScript, Height: 0, IsCoinBase: true,
		})
	}
	batch.SetTip(c.params.GenesisHash)
	if err := c.store.Write(batch); err != nil {
		return errors.Wrap(err, "writing genesis block")
	}
	c.tip = entry
	return nil
}

// Subscribe registers cb to receive future chain engine notifications.
func (c *Chain) Subscribe(cb NotificationCallback) { c.notifications.Subscribe(cb) }

// Tip returns the current best-chain entry. Safe for concurrent use.
func (c *Chain) Tip() *chainstore.ChainEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tip
}

// Store exposes the underlying persistence layer for read-mostly callers
// (mempool coin resolution, RPC-style queries).
func (c *Chain) Store() *chainstore.Store { return c.store }

// Params returns the network parameters this chain validates against.
func (c *Chain) Params() *chaincfg.Params { return c.params }

// Add runs the full acceptance pipeline for block B with parent P:
// existence check, orphan parking, header sanity, fork/reorg
// detection by cumulative work, full contextual validation, and orphan
// pool re-scan from the new tip.
func (c *Chain) Add(block *wire.MsgBlock) (AddOutcome, error) {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	return c.addLocked(block, c.now())
}

func (c *Chain) addLocked(block *wire.MsgBlock, now time.Time) (AddOutcome, error) {
	hash := block.BlockHash()

	if _, err := c.store.Entry(&hash); err == nil {
		c.notifications.send(&Notification{Type: NTBlockExists, Data: &hash})
		return AlreadyKnown, nil
	}
	if c.IsKnownOrphan(&hash) {
		return AlreadyKnown, nil
	}
	c.mu.RLock()
	_, wasInvalid := c.invalid[hash]
	c.mu.RUnlock()
	if wasInvalid {
		return AlreadyKnown, ruleError(ErrDuplicateBlock, "block was previously rejected as invalid")
	}

	parentHash := block.Header.PrevBlock
	if _, err := c.store.Entry(&parentHash); err != nil {
		if len(c.orphans) >= maxOrphanBlocks {
			c.notifications.send(&Notification{Type: NTOrphanPoolFull})
		}
		c.addOrphanBlock(block)
		c.notifications.send(&Notification{Type: NTOrphanBlock, Data: block})
		return Orphaned, nil
	}

	outcome, err := c.acceptBlock(block, now)
	if err != nil {
		c.mu.Lock()
		c.invalid[hash] = err
		c.mu.Unlock()
		c.notifications.send(&Notification{Type: NTInvalidBlock, Data: err})
		return outcome, err
	}

	if outcome == Connected {
		c.extendFromOrphans(hash, now)
		c.notifications.send(&Notification{Type: NTChainProgress, Data: c.Tip()})
	}
	return outcome, nil
}

// acceptBlock validates block against its (now-known) parent and either
// connects it as the new tip, triggers a reorg, or records it as a
// validated side branch.
func (c *Chain) acceptBlock(block *wire.MsgBlock, now time.Time) (AddOutcome, error) {
	parentHash := block.Header.PrevBlock
	parent, err := c.store.Entry(&parentHash)
	if err != nil {
		return AlreadyKnown, err
	}

	if err := c.checkHeaderSanity(&block.Header, now); err != nil {
		return AlreadyKnown, err
	}
	if err := c.checkHeaderContext(&block.Header, parent); err != nil {
		return AlreadyKnown, err
	}
	if err := c.checkBlockSanity(block, now); err != nil {
		return AlreadyKnown, err
	}

	hash := block.BlockHash()
	height := parent.Height + 1
	if err := c.checkCheckpoints(height, &hash); err != nil {
		return AlreadyKnown, err
	}

	work := new(big.Int).Add(parent.ChainWork, calcWork(block.Header.Bits))
	entry := &chainstore.ChainEntry{Header: block.Header, Height: height, ChainWork: work}

	tip := c.Tip()
	tipHash := tipHashOf(tip)
	if parentHash.IsEqual(&tipHash) {
		if err := c.connectBlock(entry, block); err != nil {
			return AlreadyKnown, err
		}
		return Connected, nil
	}

	if work.Cmp(tip.ChainWork) <= 0 {
		batch := chainstore.NewBatch()
		batch.PutEntry(entry)
		batch.PutBlock(block)
		if err := c.store.Write(batch); err != nil {
			return AlreadyKnown, err
		}
		c.notifications.send(&Notification{Type: NTFork, Data: entry})
		return SideBranch, nil
	}

	return c.reorganize(entry, block)
}

func tipHashOf(e *chainstore.ChainEntry) chainhash.Hash {
	if e == nil {
		return chainhash.Hash{}
	}
	return e.Hash()
}

// extendFromOrphans recursively accepts any orphan whose parent hash now
// matches a freshly connected hash.
func (c *Chain) extendFromOrphans(hash chainhash.Hash, now time.Time) {
	children := c.orphansByParent(hash)
	for _, child := range children {
		childHash := child.BlockHash()
		c.removeOrphanBlock(childHash)
		outcome, err := c.acceptBlock(child, now)
		if err != nil {
			c.mu.Lock()
			c.invalid[childHash] = err
			c.mu.Unlock()
			c.notifications.send(&Notification{Type: NTInvalidBlock, Data: err})
			continue
		}
		if outcome == Connected {
			c.extendFromOrphans(childHash, now)
		}
	}
}

// GetLocator builds a block locator starting from the current tip: hashes
// at distance 0,1,2,...,9, then doubling the step until genesis (which is
// always last), built from the chain store's height index without
// touching block bodies.
func (c *Chain) GetLocator() ([]*chainhash.Hash, error) {
	tip := c.Tip()
	if tip == nil {
		return nil, fmt.Errorf("blockchain: no tip to build a locator from")
	}

	var locator []*chainhash.Hash
	height := tip.Height
	step := int32(1)
	for height >= 0 {
		hash, err := c.store.HashAtHeight(height)
		if err != nil {
			break
		}
		locator = append(locator, hash)
		if height == 0 {
			break
		}
		if len(locator) >= 10 {
			step *= 2
		}
		height -= step
		if height < 0 {
			height = 0
		}
	}
	return locator, nil
}

// Reset rewinds the chain to the entry at hash, disconnecting every block
// above it, for recovery or checkpoint-synced fast-forward scenarios.
func (c *Chain) Reset(hash *chainhash.Hash) error {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()

	target, err := c.store.Entry(hash)
	if err != nil {
		return err
	}
	tip := c.Tip()
	for tip.Height > target.Height {
		if err := c.disconnectTip(tip); err != nil {
			return err
		}
		tip = c.Tip()
	}
	return nil
}
