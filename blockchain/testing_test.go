// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"testing"
	"time"

	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/wire"
)

// coinbaseScript is a trivially-true output script (OP_TRUE), used so test
// blocks can be connected and spent without a signing key.
var coinbaseScript = []byte{0x51} // OP_TRUE

// newTestParams returns network parameters sized for fast, deterministic
// tests: a permissive PowLimit (so mining a block is a handful of nonce
// tries rather than real work), no retarget/versionbits activity within the
// small heights these tests reach, and zero coinbase maturity so a test can
// spend a coinbase output in the very next block.
func newTestParams() *chaincfg.Params {
	oneLsh256 := new(big.Int).Lsh(big.NewInt(1), 256)
	maxTarget := new(big.Int).Sub(oneLsh256, big.NewInt(1))
	bits := bigToCompact(maxTarget)
	powLimit := compactToBig(bits)

	genesisCoinbase := wire.NewMsgTx(1)
	genesisCoinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte{0x00},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	genesisCoinbase.AddTxOut(&wire.TxOut{Value: 50 * 1e8, PkScript: coinbaseScript})

	genesisHeader := wire.BlockHeader{
		Version:    1,
		MerkleRoot: genesisCoinbase.TxHash(),
		Timestamp:  1231006505,
		Bits:       bits,
	}
	genesisBlock := wire.NewMsgBlock(&genesisHeader)
	genesisBlock.AddTransaction(genesisCoinbase)
	genesisHash := genesisBlock.BlockHash()

	return &chaincfg.Params{
		Name:                     "unittest",
		Net:                      wire.RegTest,
		GenesisBlock:             genesisBlock,
		GenesisHash:              &genesisHash,
		PowLimit:                 powLimit,
		PowLimitBits:             bits,
		TargetTimePerBlock:       10 * time.Minute,
		RetargetAdjustmentFactor: 4,
		RetargetWindow:           2016,
		NoDifficultyAdjustment:   true,
		SubsidyHalvingInterval:   210000,
		BIP0034Height:            1 << 30,
		BIP0065Height:            1 << 30,
		BIP0066Height:            1 << 30,
		CoinbaseMaturity:         0,
		MinRelayTxFee:            1000,
	}
}

// newTestChain opens a fresh, genesis-initialized chain backed by a leveldb
// store under t.TempDir().
func newTestChain(t *testing.T) (*Chain, *chaincfg.Params) {
	t.Helper()
	params := newTestParams()
	store, err := chainstore.Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c, err := New(store, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, params
}

// mineBlock assembles a block extending parent and finds a nonce satisfying
// checkProofOfWork against params' permissive target (usually the first
// nonce, since newTestParams' target of 0xffff<<240 admits all but about
// one hash in 65536).
func mineBlock(t *testing.T, params *chaincfg.Params, parent *wire.BlockHeader, txs []*wire.MsgTx, ts int64, bits uint32) *wire.MsgBlock {
	t.Helper()
	header := wire.BlockHeader{
		Version:    1,
		PrevBlock:  parent.BlockHash(),
		MerkleRoot: calcMerkleRootForTest(txs),
		Timestamp:  ts,
		Bits:       bits,
	}
	block := wire.NewMsgBlock(&header)
	for _, tx := range txs {
		block.AddTransaction(tx)
	}

	for nonce := uint32(0); nonce < 100000; nonce++ {
		block.Header.Nonce = nonce
		if err := checkProofOfWork(&block.Header, params.PowLimit); err == nil {
			return block
		}
	}
	t.Fatalf("failed to mine a test block within the nonce budget")
	return nil
}

func calcMerkleRootForTest(txs []*wire.MsgTx) chainhash.Hash {
	hashes := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.TxHash()
	}
	return calcMerkleRoot(hashes)
}

// coinbaseSeq makes every coinbaseTx signature script, and hence txid,
// unique, so no test coinbase duplicates the still-unspent genesis coinbase
// or an earlier block's coinbase (which BIP30 rejects).
var coinbaseSeq uint16

// coinbaseTx builds a maturity-free coinbase transaction paying the given
// subsidy+fees to an OP_TRUE output. Each call yields a distinct txid.
func coinbaseTx(value int64) *wire.MsgTx {
	coinbaseSeq++
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte{0x00, 0x00, byte(coinbaseSeq), byte(coinbaseSeq >> 8)},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: coinbaseScript})
	return tx
}

// coinbaseTxTagged is coinbaseTx with a distinguishing signature-script byte,
// so two coinbases built for sibling blocks (same height, same value) don't
// collide on txid.
func coinbaseTxTagged(value int64, tag byte) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte{0x00, tag},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: coinbaseScript})
	return tx
}

// spendTx builds a transaction trivially spending outpoint (whose output
// must carry coinbaseScript) into a fresh OP_TRUE output.
func spendTx(prevHash chainhash.Hash, prevIndex uint32, value int64) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: prevHash, Index: prevIndex},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: coinbaseScript})
	return tx
}
