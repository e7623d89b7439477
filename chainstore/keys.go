// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainstore is the sole persistence layer for headers, blocks,
// coins, and undo data, backed by goleveldb. Every key is a short
// byte prefix (matching Bitcoin Core's own leveldb chainstate convention)
// followed by a hash, height, or outpoint.
package chainstore

import (
	"encoding/binary"

	"github.com/dworznik/bcoin/chainhash"
)

var (
	tipKey = []byte("R")

	prefixEntry     = byte('e')
	prefixHeight    = byte('h')
	prefixHashAtHt  = byte('H')
	prefixNext      = byte('n')
	prefixBlock     = byte('b')
	prefixUndo      = byte('u')
	prefixCoin      = byte('c')
	prefixTx        = byte('t')
	prefixAddrTx    = byte('T')
	prefixAddrCoin  = byte('C')
	prefixPruneQ    = byte('q') // stored under b/q/<height>
)

func entryKey(hash *chainhash.Hash) []byte {
	return append([]byte{prefixEntry}, hash[:]...)
}

func heightKey(hash *chainhash.Hash) []byte {
	return append([]byte{prefixHeight}, hash[:]...)
}

func hashAtHeightKey(height int32) []byte {
	k := make([]byte, 5)
	k[0] = prefixHashAtHt
	binary.BigEndian.PutUint32(k[1:], uint32(height))
	return k
}

func nextKey(hash *chainhash.Hash) []byte {
	return append([]byte{prefixNext}, hash[:]...)
}

func blockKey(hash *chainhash.Hash) []byte {
	return append([]byte{prefixBlock}, hash[:]...)
}

func undoKey(hash *chainhash.Hash) []byte {
	return append([]byte{prefixUndo}, hash[:]...)
}

func coinKey(txid *chainhash.Hash, index uint32) []byte {
	k := make([]byte, 1+chainhash.HashSize+4)
	k[0] = prefixCoin
	copy(k[1:], txid[:])
	binary.LittleEndian.PutUint32(k[1+chainhash.HashSize:], index)
	return k
}

func txIndexKey(txid *chainhash.Hash) []byte {
	return append([]byte{prefixTx}, txid[:]...)
}

func addrTxKey(addrHash []byte, txid *chainhash.Hash) []byte {
	k := make([]byte, 0, 1+len(addrHash)+chainhash.HashSize)
	k = append(k, prefixAddrTx)
	k = append(k, addrHash...)
	k = append(k, txid[:]...)
	return k
}

func addrCoinKey(addrHash []byte, txid *chainhash.Hash, index uint32) []byte {
	k := make([]byte, 0, 1+len(addrHash)+chainhash.HashSize+4)
	k = append(k, prefixAddrCoin)
	k = append(k, addrHash...)
	k = append(k, txid[:]...)
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], index)
	k = append(k, idx[:]...)
	return k
}

func pruneQueueKey(height int32) []byte {
	k := make([]byte, 6)
	k[0] = prefixBlock
	k[1] = prefixPruneQ
	binary.BigEndian.PutUint32(k[2:], uint32(height))
	return k
}
