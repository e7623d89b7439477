// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"bytes"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// defaultCacheSize sizes the entry and height LRUs, held to at least 2*retarget+100
// per spec, sized generously here for any reasonable RetargetWindow; the
// chain engine may grow them further at Open time via SetCacheSize.
const defaultCacheSize = 4132

// Store is the sole persistence layer for chain state. It is safe for
// concurrent reads; writes must be serialized by the caller (the chain
// engine's single-writer lock).
type Store struct {
	db  *leveldb.DB
	spv bool

	mu sync.RWMutex

	entryCache  *lru.Cache[chainhash.Hash, *ChainEntry]
	heightCache *lru.Cache[int32, chainhash.Hash]
	coinCache   *lru.Cache[string, *Coin]

	pruneEnabled     bool
	pruneKeepBlocks  int32
	pruneAfterHeight int32
}

// Open opens (creating if absent) a leveldb-backed store at path. spv is
// recorded on the Store, but no Store or Batch method consults it: block,
// undo, coin, tx and address-index writes happen whenever a caller stages
// them.
func Open(path string, spv bool) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening chain store")
	}
	entryCache, _ := lru.New[chainhash.Hash, *ChainEntry](defaultCacheSize)
	heightCache, _ := lru.New[int32, chainhash.Hash](defaultCacheSize)
	coinCache, _ := lru.New[string, *Coin](100000)
	return &Store{
		db:          db,
		spv:         spv,
		entryCache:  entryCache,
		heightCache: heightCache,
		coinCache:   coinCache,
	}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SetCacheSize resizes the hot header LRUs; the chain engine calls this
// once it knows the active network's RetargetWindow (2*window+100 per
// spec).
func (s *Store) SetCacheSize(n int) {
	s.entryCache.Resize(n)
	s.heightCache.Resize(n)
}

// SetPruning configures block pruning: keep the most recent keepBlocks
// full block bodies, and never prune below afterHeight.
func (s *Store) SetPruning(keepBlocks, afterHeight int32) {
	s.pruneEnabled = true
	s.pruneKeepBlocks = keepBlocks
	s.pruneAfterHeight = afterHeight
}

// Tip returns the current best-chain tip hash, or errNotFound if the
// store has never had a tip set (a fresh database).
func (s *Store) Tip() (*chainhash.Hash, error) {
	v, err := s.db.Get(tipKey, nil)
	if err == leveldb.ErrNotFound {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	h, err := chainhash.NewHash(v)
	return h, err
}

// Entry returns the ChainEntry for hash, consulting the hot cache first.
func (s *Store) Entry(hash *chainhash.Hash) (*ChainEntry, error) {
	if e, ok := s.entryCache.Get(*hash); ok {
		return e, nil
	}
	v, err := s.db.Get(entryKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	e, err := deserializeChainEntry(v)
	if err != nil {
		return nil, err
	}
	s.entryCache.Add(*hash, e)
	return e, nil
}

// HashAtHeight returns the main-chain hash at height, consulting the hot
// cache first.
func (s *Store) HashAtHeight(height int32) (*chainhash.Hash, error) {
	if h, ok := s.heightCache.Get(height); ok {
		return &h, nil
	}
	v, err := s.db.Get(hashAtHeightKey(height), nil)
	if err == leveldb.ErrNotFound {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	h, err := chainhash.NewHash(v)
	if err != nil {
		return nil, err
	}
	s.heightCache.Add(height, *h)
	return h, nil
}

// HeightOf returns the height stored for hash (any known header, not just
// main-chain).
func (s *Store) HeightOf(hash *chainhash.Hash) (int32, error) {
	v, err := s.db.Get(heightKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return 0, errNotFound
	}
	if err != nil {
		return 0, err
	}
	return int32(uint32(v[0])<<24 | uint32(v[1])<<16 | uint32(v[2])<<8 | uint32(v[3])), nil
}

// Next returns the main-chain forward pointer from hash, if any.
func (s *Store) Next(hash *chainhash.Hash) (*chainhash.Hash, error) {
	v, err := s.db.Get(nextKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return chainhash.NewHash(v)
}

// Block returns the full block body for hash, or errNotFound if pruned or
// running in SPV mode.
func (s *Store) Block(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	v, err := s.db.Get(blockKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	block := &wire.MsgBlock{}
	if err := block.Deserialize(bytes.NewReader(v)); err != nil {
		return nil, err
	}
	return block, nil
}

// Coin returns the unspent output at outpoint, consulting the coin cache.
func (s *Store) Coin(txid *chainhash.Hash, index uint32) (*Coin, error) {
	ck := string(coinKey(txid, index))
	if c, ok := s.coinCache.Get(ck); ok {
		return c, nil
	}
	v, err := s.db.Get([]byte(ck), nil)
	if err == leveldb.ErrNotFound {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	c, err := deserializeCoin(v)
	if err != nil {
		return nil, err
	}
	s.coinCache.Add(ck, c)
	return c, nil
}

// Undo returns the serialized undo record for a connected block.
func (s *Store) Undo(hash *chainhash.Hash) ([]byte, error) {
	v, err := s.db.Get(undoKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, errNotFound
	}
	return v, err
}

// IterateAddressTxs walks all txids indexed against addrHash.
func (s *Store) IterateAddressTxs(addrHash []byte, fn func(txid chainhash.Hash) error) error {
	prefix := append([]byte{prefixAddrTx}, addrHash...)
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		var txid chainhash.Hash
		copy(txid[:], key[len(prefix):])
		if err := fn(txid); err != nil {
			return err
		}
	}
	return iter.Error()
}
