// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/wire"
)

// connectBlock runs full contextual validation on block/entry and, on
// success, writes the resulting coin/undo/index updates plus the new tip
// pointer as a single atomic batch, then updates the in-memory tip.
func (c *Chain) connectBlock(entry *chainstore.ChainEntry, block *wire.MsgBlock) error {
	undo, batch, err := c.checkConnectBlock(block, entry)
	if err != nil {
		return err
	}

	hash := entry.Hash()
	prevHash := entry.Header.PrevBlock
	batch.PutEntry(entry)
	batch.PutMainChainIndex(&prevHash, entry.Height, &hash)
	batch.PutBlock(block)
	batch.PutUndo(&hash, serializeUndo(undo))
	batch.SetTip(&hash)

	if err := c.store.Write(batch); err != nil {
		return errors.Wrap(err, "writing connect batch")
	}

	c.mu.Lock()
	c.tip = entry
	c.mu.Unlock()

	c.notifications.send(&Notification{Type: NTBlockConnected, Data: entry})
	return nil
}

// disconnectBlock loads the undo record for entry, restores every coin it
// spent, deletes the coins it created, and moves the tip back to entry's
// parent.
func (c *Chain) disconnectBlock(entry *chainstore.ChainEntry) error {
	hash := entry.Hash()
	block, err := c.store.Block(&hash)
	if err != nil {
		return errors.Wrap(err, "loading block body for disconnect")
	}
	undoRaw, err := c.store.Undo(&hash)
	if err != nil {
		return errors.Wrap(err, "loading undo record for disconnect")
	}
	undo, err := deserializeUndo(undoRaw)
	if err != nil {
		return err
	}

	batch := chainstore.NewBatch()
	for _, tx := range block.Transactions {
		txid := tx.TxHash()
		for i := range tx.TxOut {
			batch.DeleteCoin(&txid, uint32(i))
		}
	}
	for _, sc := range undo {
		batch.PutCoin(&sc.txid, sc.index, sc.coin)
	}

	batch.DeleteMainChainIndex(entry.Height)
	batch.DeleteUndo(&hash)
	prevHash := entry.Header.PrevBlock
	batch.SetTip(&prevHash)

	if err := c.store.Write(batch); err != nil {
		return errors.Wrap(err, "writing disconnect batch")
	}

	parent, err := c.store.Entry(&prevHash)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.tip = parent
	c.mu.Unlock()

	c.notifications.send(&Notification{Type: NTBlockDisconnected, Data: entry})
	return nil
}

// disconnectTip is disconnectBlock specialized for Reset's rewind loop.
func (c *Chain) disconnectTip(tip *chainstore.ChainEntry) error {
	return c.disconnectBlock(tip)
}

// findFork walks both the current tip and the candidate entry back to
// their common ancestor, returning the ancestor and the list of currently
// connected blocks that must be disconnected (tip-first order).
func (c *Chain) findFork(tip, candidate *chainstore.ChainEntry) (*chainstore.ChainEntry, []*chainstore.ChainEntry, error) {
	var disconnect []*chainstore.ChainEntry

	a, b := tip, candidate
	for a.Height > b.Height {
		disconnect = append(disconnect, a)
		parentHash := a.Header.PrevBlock
		parent, err := c.store.Entry(&parentHash)
		if err != nil {
			return nil, nil, err
		}
		a = parent
	}
	for b.Height > a.Height {
		parentHash := b.Header.PrevBlock
		parent, err := c.store.Entry(&parentHash)
		if err != nil {
			return nil, nil, err
		}
		b = parent
	}

	for a.Hash() != b.Hash() {
		disconnect = append(disconnect, a)
		aParent := a.Header.PrevBlock
		bParent := b.Header.PrevBlock
		pa, err := c.store.Entry(&aParent)
		if err != nil {
			return nil, nil, err
		}
		pb, err := c.store.Entry(&bParent)
		if err != nil {
			return nil, nil, err
		}
		a, b = pa, pb
	}
	return a, disconnect, nil
}

// reorganize disconnects the current best chain down to the fork point
// with candidate, then connects candidate's own ancestry (loading bodies
// from the store for any that were previously validated as side branches)
// followed by candidate itself.
func (c *Chain) reorganize(candidate *chainstore.ChainEntry, candidateBlock *wire.MsgBlock) (AddOutcome, error) {
	tip := c.Tip()
	ancestor, disconnectList, err := c.findFork(tip, candidate)
	if err != nil {
		return AlreadyKnown, err
	}
	if err := c.verifyCheckpoint(ancestor.Height); err != nil {
		return AlreadyKnown, err
	}

	for _, entry := range disconnectList {
		if err := c.disconnectBlock(entry); err != nil {
			return AlreadyKnown, err
		}
	}

	var connectAncestry []*chainstore.ChainEntry
	cur := candidate
	for cur.Height > ancestor.Height {
		connectAncestry = append([]*chainstore.ChainEntry{cur}, connectAncestry...)
		parentHash := cur.Header.PrevBlock
		parent, err := c.store.Entry(&parentHash)
		if err != nil {
			return AlreadyKnown, err
		}
		cur = parent
	}

	for _, entry := range connectAncestry {
		hash := entry.Hash()
		var block *wire.MsgBlock
		if hash == candidate.Hash() {
			block = candidateBlock
		} else {
			block, err = c.store.Block(&hash)
			if err != nil {
				return AlreadyKnown, errors.Wrap(err, "loading side-branch block body to connect during reorg")
			}
		}
		if err := c.connectBlock(entry, block); err != nil {
			return AlreadyKnown, err
		}
	}

	return Connected, nil
}
