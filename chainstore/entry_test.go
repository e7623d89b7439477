// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"math/big"
	"testing"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

func TestSerializeChainEntryRoundTrip(t *testing.T) {
	e := &ChainEntry{
		Header: wire.BlockHeader{
			Version:    2,
			PrevBlock:  chainhash.Hash{0x01},
			MerkleRoot: chainhash.Hash{0x02},
			Timestamp:  1500000000,
			Bits:       0x1a05db8b,
			Nonce:      123456,
		},
		Height:    210000,
		ChainWork: big.NewInt(987654321),
	}

	got, err := deserializeChainEntry(serializeChainEntry(e))
	if err != nil {
		t.Fatalf("deserializeChainEntry: %v", err)
	}
	if got.Height != e.Height {
		t.Fatalf("Height round trip = %d, want %d", got.Height, e.Height)
	}
	if got.ChainWork.Cmp(e.ChainWork) != 0 {
		t.Fatalf("ChainWork round trip = %s, want %s", got.ChainWork, e.ChainWork)
	}
	if got.Header.BlockHash() != e.Header.BlockHash() {
		t.Fatalf("Header round trip produced a different block hash")
	}
}

func TestSerializeChainEntryZeroChainWork(t *testing.T) {
	e := &ChainEntry{Header: wire.BlockHeader{}, Height: 0, ChainWork: big.NewInt(0)}
	got, err := deserializeChainEntry(serializeChainEntry(e))
	if err != nil {
		t.Fatalf("deserializeChainEntry: %v", err)
	}
	if got.ChainWork.Sign() != 0 {
		t.Fatalf("ChainWork round trip = %s, want 0", got.ChainWork)
	}
}

func TestChainEntryHash(t *testing.T) {
	e := &ChainEntry{Header: wire.BlockHeader{Version: 1, Bits: 0x1d00ffff}}
	if e.Hash() != e.Header.BlockHash() {
		t.Fatalf("Hash() did not match Header.BlockHash()")
	}
}
