// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"math/big"
	"testing"
	"time"

	"github.com/dworznik/bcoin/blockchain"
	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/wire"
)

// opTrueScript is a trivially-true output script, letting tests spend
// coinbase outputs without a signing key.
var opTrueScript = []byte{0x51} // OP_TRUE

// compactToBig and bigToCompact reproduce the standard nBits encoding
// locally so tests can mine against a known, permissive target without
// depending on blockchain's unexported copy of the same routine.
func compactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)
	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}
	return bn
}

func bigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}
	exponent := uint(len(n.Bytes()))
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Rsh(n, 8*(exponent-3))
		mantissa = uint32(tn.Bits()[0])
	}
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}
	return uint32(exponent<<24) | mantissa
}

func testParams() *chaincfg.Params {
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
	genesisCoinbase.AddTxOut(&wire.TxOut{Value: 50 * 1e8, PkScript: opTrueScript})

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
		RelayNonStdTxs:           true,
		FreeTxRelayLimit:         15000,
		DynamicFeeHalfLife:       10 * time.Minute,
		FreePriorityThreshold:    57_600_000.0,
		PubKeyHashAddrID:         0x6f,
		ScriptHashAddrID:         0xc4,
		Bech32HRPSegwit:          "tb",
	}
}

// newTestChain opens a fresh, genesis-initialized chain backed by a
// leveldb store under t.TempDir().
func newTestChain(t *testing.T) (*blockchain.Chain, *chaincfg.Params) {
	t.Helper()
	params := testParams()
	store, err := chainstore.Open(t.TempDir(), false)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c, err := blockchain.New(store, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, params
}

// newTestMempool builds a Mempool over a freshly genesis-initialized chain,
// accepting non-standard scripts so OP_TRUE-scripted test transactions pass
// the policy gate.
func newTestMempool(t *testing.T) (*Mempool, *blockchain.Chain, *chaincfg.Params) {
	t.Helper()
	chain, params := newTestChain(t)
	cfg := DefaultConfig(params)
	cfg.AcceptNonStandard = true
	return New(chain, cfg), chain, params
}

func coinbaseTx(value int64) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte{0x00},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: opTrueScript})
	return tx
}

func coinbaseTxTagged(value int64, tag byte) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte{0x00, tag},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: opTrueScript})
	return tx
}

// spendTx builds a transaction trivially spending outpoint (whose output
// must carry opTrueScript) into a fresh OP_TRUE output, with an explicit
// push-only signature script so isStandard's push-only check passes.
func spendTx(prevHash chainhash.Hash, prevIndex uint32, value int64) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: prevHash, Index: prevIndex},
		SignatureScript:  []byte{},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: opTrueScript})
	return tx
}

// spendTxTagged is spendTx with a distinguishing signature-script byte, so
// two transactions spending the same outpoint into the same value don't
// collide on txid.
func spendTxTagged(prevHash chainhash.Hash, prevIndex uint32, value int64, tag byte) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: prevHash, Index: prevIndex},
		SignatureScript:  []byte{tag},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{Value: value, PkScript: opTrueScript})
	return tx
}

// randomHash returns a deterministic, distinguishable hash for tests that
// need an outpoint no real transaction will ever produce.
func randomHash(tag byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = tag
	return h
}

func mineBlock(t *testing.T, params *chaincfg.Params, parent *wire.BlockHeader, txs []*wire.MsgTx, ts int64) *wire.MsgBlock {
	t.Helper()
	header := wire.BlockHeader{
		Version:    1,
		PrevBlock:  parent.BlockHash(),
		MerkleRoot: calcMerkleRootForTest(txs),
		Timestamp:  ts,
		Bits:       params.PowLimitBits,
	}
	block := wire.NewMsgBlock(&header)
	for _, tx := range txs {
		block.AddTransaction(tx)
	}

	target := compactToBig(header.Bits)
	for nonce := uint32(0); nonce < 100000; nonce++ {
		block.Header.Nonce = nonce
		hash := block.Header.BlockHash()
		hashNum := new(big.Int).SetBytes(reverseBytes(hash[:]))
		if hashNum.Cmp(target) <= 0 {
			return block
		}
	}
	t.Fatalf("failed to mine a test block within the nonce budget")
	return nil
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func calcMerkleRootForTest(txs []*wire.MsgTx) chainhash.Hash {
	if len(txs) == 1 {
		return txs[0].TxHash()
	}
	hashes := make([]chainhash.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.TxHash()
	}
	for len(hashes) > 1 {
		if len(hashes)%2 == 1 {
			hashes = append(hashes, hashes[len(hashes)-1])
		}
		next := make([]chainhash.Hash, len(hashes)/2)
		for i := range next {
			next[i] = chainhash.DoubleHashH(append(append([]byte{}, hashes[2*i][:]...), hashes[2*i+1][:]...))
		}
		hashes = next
	}
	return hashes[0]
}
