// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

func TestCalcMerkleRootEmpty(t *testing.T) {
	if got := calcMerkleRoot(nil); got != (chainhash.Hash{}) {
		t.Fatalf("calcMerkleRoot(nil) = %s, want zero hash", got)
	}
}

func TestCalcMerkleRootSingleLeaf(t *testing.T) {
	var h chainhash.Hash
	h[0] = 0x42
	if got := calcMerkleRoot([]chainhash.Hash{h}); got != h {
		t.Fatalf("calcMerkleRoot single leaf = %s, want %s (the leaf itself)", got, h)
	}
}

func TestCalcMerkleRootOddCountDuplicatesLast(t *testing.T) {
	var a, b, c chainhash.Hash
	a[0], b[0], c[0] = 1, 2, 3

	// Three leaves: level becomes [a,b,c,c] before combining.
	got := calcMerkleRoot([]chainhash.Hash{a, b, c})

	var buf1 [64]byte
	copy(buf1[:32], a[:])
	copy(buf1[32:], b[:])
	left := chainhash.DoubleHashH(buf1[:])

	var buf2 [64]byte
	copy(buf2[:32], c[:])
	copy(buf2[32:], c[:])
	right := chainhash.DoubleHashH(buf2[:])

	var buf3 [64]byte
	copy(buf3[:32], left[:])
	copy(buf3[32:], right[:])
	want := chainhash.DoubleHashH(buf3[:])

	if got != want {
		t.Fatalf("calcMerkleRoot([a,b,c]) = %s, want %s", got, want)
	}
}

func TestBlockMerkleRootMatchesSingleCoinbase(t *testing.T) {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 0xffffffff}})
	tx.AddTxOut(&wire.TxOut{Value: 50 * 1e8, PkScript: []byte{0x51}})

	block := wire.NewMsgBlock(&wire.BlockHeader{})
	block.AddTransaction(tx)

	if got, want := blockMerkleRoot(block), tx.TxHash(); got != want {
		t.Fatalf("blockMerkleRoot(single-tx block) = %s, want %s", got, want)
	}
}

func TestWitnessCommitmentMerkleRootZeroesCoinbaseWTxid(t *testing.T) {
	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 0xffffffff}, Witness: wire.TxWitness{{0x00}}})
	coinbase.AddTxOut(&wire.TxOut{Value: 50 * 1e8, PkScript: []byte{0x51}})

	block := wire.NewMsgBlock(&wire.BlockHeader{})
	block.AddTransaction(coinbase)

	// A block with only the coinbase commits to the zero hash: the
	// coinbase's own wtxid is never included in its own commitment.
	if got := witnessCommitmentMerkleRoot(block); got != (chainhash.Hash{}) {
		t.Fatalf("witnessCommitmentMerkleRoot(coinbase-only block) = %s, want zero hash", got)
	}
}

func TestWitnessCommitmentScriptStructure(t *testing.T) {
	var root chainhash.Hash
	root[0] = 0xaa
	var nonce [32]byte

	script := witnessCommitmentScript(root, nonce)
	if len(script) != 38 {
		t.Fatalf("witness commitment script length = %d, want 38", len(script))
	}
	wantPrefix := []byte{0x6a, 0x24, 0xaa, 0x21, 0xa9, 0xed}
	for i, b := range wantPrefix {
		if script[i] != b {
			t.Fatalf("witness commitment script[%d] = 0x%x, want 0x%x", i, script[i], b)
		}
	}
}
