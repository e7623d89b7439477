// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// Batch stages every mutation of one connect/disconnect/reorg step so it
// can be installed atomically. The chain engine builds exactly one Batch
// per block transition and calls Store.Write once.
type Batch struct {
	lb *leveldb.Batch

	entryUpdates  map[chainhash.Hash]*ChainEntry
	heightUpdates map[int32]chainhash.Hash
	coinUpdates   map[string]*Coin // nil value means deleted
	newTip        *chainhash.Hash
}

// NewBatch returns an empty Batch ready for staging.
func NewBatch() *Batch {
	return &Batch{
		lb:            new(leveldb.Batch),
		entryUpdates:  make(map[chainhash.Hash]*ChainEntry),
		heightUpdates: make(map[int32]chainhash.Hash),
		coinUpdates:   make(map[string]*Coin),
	}
}

// SetTip stages the R key update.
func (b *Batch) SetTip(hash *chainhash.Hash) {
	b.lb.Put(tipKey, hash[:])
	b.newTip = hash
}

// PutEntry stages a header/height/chainwork record.
func (b *Batch) PutEntry(e *ChainEntry) {
	hash := e.Hash()
	b.lb.Put(entryKey(&hash), serializeChainEntry(e))
	var hb [4]byte
	putUint32BE(hb[:], uint32(e.Height))
	b.lb.Put(heightKey(&hash), hb[:])
	b.entryUpdates[hash] = e
}

// PutMainChainIndex stages the H/ (height→hash) and n/ (prev→next) main
// chain pointers for a newly-connected block.
func (b *Batch) PutMainChainIndex(prevHash *chainhash.Hash, height int32, hash *chainhash.Hash) {
	b.lb.Put(hashAtHeightKey(height), hash[:])
	b.heightUpdates[height] = *hash
	if prevHash != nil {
		b.lb.Put(nextKey(prevHash), hash[:])
	}
}

// DeleteMainChainIndex removes the H/ entry for height on disconnect (the
// n/ pointer from the disconnected block's parent is left stale; readers
// only ever walk n/ forward from a height confirmed via H/, so a dangling
// pointer past the current tip is never followed).
func (b *Batch) DeleteMainChainIndex(height int32) {
	b.lb.Delete(hashAtHeightKey(height))
	b.heightUpdates[height] = chainhash.Hash{}
}

// PutBlock stages a full block body write (no-op target for SPV callers,
// which simply never call it).
func (b *Batch) PutBlock(block *wire.MsgBlock) {
	hash := block.BlockHash()
	var buf bytes.Buffer
	_ = block.Serialize(&buf)
	b.lb.Put(blockKey(&hash), buf.Bytes())
}

// DeleteBlock removes a pruned block body.
func (b *Batch) DeleteBlock(hash *chainhash.Hash) { b.lb.Delete(blockKey(hash)) }

// PutUndo stages an undo record for a connected block.
func (b *Batch) PutUndo(hash *chainhash.Hash, undo []byte) { b.lb.Put(undoKey(hash), undo) }

// DeleteUndo removes an undo record once it is no longer reachable by
// disconnect (this store never prunes undo records automatically; callers
// prune them alongside pruned blocks).
func (b *Batch) DeleteUndo(hash *chainhash.Hash) { b.lb.Delete(undoKey(hash)) }

// PutCoin stages a new UTXO.
func (b *Batch) PutCoin(txid *chainhash.Hash, index uint32, c *Coin) {
	k := string(coinKey(txid, index))
	b.lb.Put([]byte(k), serializeCoin(c))
	b.coinUpdates[k] = c
}

// DeleteCoin stages a spend.
func (b *Batch) DeleteCoin(txid *chainhash.Hash, index uint32) {
	k := string(coinKey(txid, index))
	b.lb.Delete([]byte(k))
	b.coinUpdates[k] = nil
}

// PutTxIndex stages an optional full transaction index entry.
func (b *Batch) PutTxIndex(txid *chainhash.Hash, raw []byte) {
	b.lb.Put(txIndexKey(txid), raw)
}

// PutAddrTx stages an optional address→tx index entry.
func (b *Batch) PutAddrTx(addrHash []byte, txid *chainhash.Hash) {
	b.lb.Put(addrTxKey(addrHash, txid), []byte{0x00})
}

// PutAddrCoin stages an optional address→coin index entry.
func (b *Batch) PutAddrCoin(addrHash []byte, txid *chainhash.Hash, index uint32) {
	b.lb.Put(addrCoinKey(addrHash, txid, index), []byte{0x00})
}

// SchedulePrune stages a pruning-queue entry: the block at hash should be
// deleted once the chain reaches height.
func (b *Batch) SchedulePrune(height int32, hash *chainhash.Hash) {
	b.lb.Put(pruneQueueKey(height), hash[:])
}

// DequeuePrune stages removal of a pruning-queue entry once serviced.
func (b *Batch) DequeuePrune(height int32) {
	b.lb.Delete(pruneQueueKey(height))
}

// Write installs batch atomically and updates the in-memory hot caches to
// match, so subsequent reads never observe a partially-applied step.
func (s *Store) Write(batch *Batch) error {
	if err := s.db.Write(batch.lb, nil); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, e := range batch.entryUpdates {
		s.entryCache.Add(hash, e)
	}
	for height, hash := range batch.heightUpdates {
		if hash == (chainhash.Hash{}) {
			s.heightCache.Remove(height)
		} else {
			s.heightCache.Add(height, hash)
		}
	}
	for k, c := range batch.coinUpdates {
		if c == nil {
			s.coinCache.Remove(k)
		} else {
			s.coinCache.Add(k, c)
		}
	}
	return nil
}

// PruneQueueEntry returns the hash scheduled for pruning at height, if any.
func (s *Store) PruneQueueEntry(height int32) (*chainhash.Hash, error) {
	v, err := s.db.Get(pruneQueueKey(height), nil)
	if err == leveldb.ErrNotFound {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return chainhash.NewHash(v)
}
