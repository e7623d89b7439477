// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"math/big"
	"testing"
	"time"

	"github.com/dworznik/bcoin/blockchain"
	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/mempool"
	"github.com/dworznik/bcoin/wire"
)

var opTrueScript = []byte{0x51} // OP_TRUE

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
func newTestMempool(t *testing.T) (*mempool.Mempool, *blockchain.Chain, *chaincfg.Params) {
	t.Helper()
	chain, params := newTestChain(t)
	cfg := mempool.DefaultConfig(params)
	cfg.AcceptNonStandard = true
	return mempool.New(chain, cfg), chain, params
}
