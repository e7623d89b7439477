// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/dworznik/bcoin/wire"
)

func TestNewInitializesGenesis(t *testing.T) {
	c, params := newTestChain(t)

	tip := c.Tip()
	if tip.Height != 0 {
		t.Fatalf("genesis tip height = %d, want 0", tip.Height)
	}
	gotHash := tip.Hash()
	if !gotHash.IsEqual(params.GenesisHash) {
		t.Fatalf("genesis tip hash = %s, want %s", gotHash, params.GenesisHash)
	}

	genesisTxid := params.GenesisBlock.Transactions[0].TxHash()
	coin, err := c.Store().Coin(&genesisTxid, 0)
	if err != nil {
		t.Fatalf("genesis coinbase output not found: %v", err)
	}
	if coin.Value != 50*1e8 || !coin.IsCoinBase {
		t.Fatalf("unexpected genesis coin: %+v", coin)
	}
}

func TestAddConnectsAndSpendsAcrossBlocks(t *testing.T) {
	c, params := newTestChain(t)
	genesisTxid := params.GenesisBlock.Transactions[0].TxHash()
	genesisHeader := &params.GenesisBlock.Header

	spend := spendTx(genesisTxid, 0, 50*1e8)
	cb1 := coinbaseTx(50 * 1e8)
	block1 := mineBlock(t, params, genesisHeader, []*wire.MsgTx{cb1, spend}, 1231006605, params.PowLimitBits)

	outcome, err := c.Add(block1)
	if err != nil {
		t.Fatalf("Add(block1): %v", err)
	}
	if outcome != Connected {
		t.Fatalf("Add(block1) outcome = %s, want connected", outcome)
	}
	if c.Tip().Height != 1 {
		t.Fatalf("tip height = %d, want 1", c.Tip().Height)
	}

	if _, err := c.Store().Coin(&genesisTxid, 0); err == nil {
		t.Fatalf("genesis coinbase output still unspent after block1 connected")
	}
	spendTxid := spend.TxHash()
	coin, err := c.Store().Coin(&spendTxid, 0)
	if err != nil {
		t.Fatalf("spend tx output not found: %v", err)
	}
	if coin.Value != 50*1e8 {
		t.Fatalf("spend tx output value = %d, want %v", coin.Value, 50*1e8)
	}
}

func TestAddRejectsDuplicateBlock(t *testing.T) {
	c, params := newTestChain(t)
	genesisHeader := &params.GenesisBlock.Header

	cb1 := coinbaseTx(50 * 1e8)
	block1 := mineBlock(t, params, genesisHeader, []*wire.MsgTx{cb1}, 1231006605, params.PowLimitBits)

	if outcome, err := c.Add(block1); err != nil || outcome != Connected {
		t.Fatalf("first Add(block1) = %s, %v; want connected, nil", outcome, err)
	}
	outcome, err := c.Add(block1)
	if err != nil {
		t.Fatalf("duplicate Add(block1) returned an error: %v", err)
	}
	if outcome != AlreadyKnown {
		t.Fatalf("duplicate Add(block1) outcome = %s, want already-known", outcome)
	}
}

func TestAddParksAndReplaysOrphans(t *testing.T) {
	c, params := newTestChain(t)
	genesisHeader := &params.GenesisBlock.Header

	cb1 := coinbaseTx(50 * 1e8)
	block1 := mineBlock(t, params, genesisHeader, []*wire.MsgTx{cb1}, 1231006605, params.PowLimitBits)
	cb2 := coinbaseTx(50 * 1e8)
	block2 := mineBlock(t, params, &block1.Header, []*wire.MsgTx{cb2}, 1231006705, params.PowLimitBits)

	outcome, err := c.Add(block2)
	if err != nil {
		t.Fatalf("Add(block2) as orphan: %v", err)
	}
	if outcome != Orphaned {
		t.Fatalf("Add(block2) outcome = %s, want orphaned", outcome)
	}
	block2Hash := block2.BlockHash()
	if !c.IsKnownOrphan(&block2Hash) {
		t.Fatalf("block2 not recorded as a known orphan")
	}

	outcome, err = c.Add(block1)
	if err != nil {
		t.Fatalf("Add(block1): %v", err)
	}
	if outcome != Connected {
		t.Fatalf("Add(block1) outcome = %s, want connected", outcome)
	}

	if c.IsKnownOrphan(&block2Hash) {
		t.Fatalf("block2 still parked as orphan after its parent connected")
	}
	if c.Tip().Height != 2 {
		t.Fatalf("tip height = %d, want 2 (orphan should have replayed)", c.Tip().Height)
	}
	tipHash := c.Tip().Hash()
	if !tipHash.IsEqual(&block2Hash) {
		t.Fatalf("tip hash = %s, want block2 hash %s", tipHash, block2Hash)
	}
}

func TestGetLocatorWalksBackToGenesis(t *testing.T) {
	c, params := newTestChain(t)
	genesisHeader := &params.GenesisBlock.Header

	cb1 := coinbaseTx(50 * 1e8)
	block1 := mineBlock(t, params, genesisHeader, []*wire.MsgTx{cb1}, 1231006605, params.PowLimitBits)
	if _, err := c.Add(block1); err != nil {
		t.Fatalf("Add(block1): %v", err)
	}
	cb2 := coinbaseTx(50 * 1e8)
	block2 := mineBlock(t, params, &block1.Header, []*wire.MsgTx{cb2}, 1231006705, params.PowLimitBits)
	if _, err := c.Add(block2); err != nil {
		t.Fatalf("Add(block2): %v", err)
	}

	locator, err := c.GetLocator()
	if err != nil {
		t.Fatalf("GetLocator: %v", err)
	}
	if len(locator) != 3 {
		t.Fatalf("locator length = %d, want 3 (tip, block1, genesis)", len(locator))
	}
	block2Hash := block2.BlockHash()
	block1Hash := block1.BlockHash()
	if !locator[0].IsEqual(&block2Hash) {
		t.Fatalf("locator[0] = %s, want tip %s", locator[0], block2Hash)
	}
	if !locator[1].IsEqual(&block1Hash) {
		t.Fatalf("locator[1] = %s, want block1 %s", locator[1], block1Hash)
	}
	if !locator[2].IsEqual(params.GenesisHash) {
		t.Fatalf("locator[2] (last) = %s, want genesis %s", locator[2], params.GenesisHash)
	}
}

func TestAddReorganizesToHeavierSideBranch(t *testing.T) {
	c, params := newTestChain(t)
	genesisHeader := &params.GenesisBlock.Header

	cbA1 := coinbaseTxTagged(50*1e8, 0xA1)
	blockA1 := mineBlock(t, params, genesisHeader, []*wire.MsgTx{cbA1}, 1231006605, params.PowLimitBits)
	if outcome, err := c.Add(blockA1); err != nil || outcome != Connected {
		t.Fatalf("Add(blockA1) = %s, %v; want connected, nil", outcome, err)
	}

	cbB1 := coinbaseTxTagged(50*1e8, 0xB1)
	blockB1 := mineBlock(t, params, genesisHeader, []*wire.MsgTx{cbB1}, 1231006610, params.PowLimitBits)
	outcome, err := c.Add(blockB1)
	if err != nil {
		t.Fatalf("Add(blockB1): %v", err)
	}
	if outcome != SideBranch {
		t.Fatalf("Add(blockB1) outcome = %s, want side-branch", outcome)
	}
	if c.Tip().Height != 1 {
		t.Fatalf("tip height after equal-work side branch = %d, want 1", c.Tip().Height)
	}
	tipHash := c.Tip().Hash()
	blockA1Hash := blockA1.BlockHash()
	if !tipHash.IsEqual(&blockA1Hash) {
		t.Fatalf("tip after side branch = %s, want blockA1 %s (first-seen should keep tip on equal work)", tipHash, blockA1Hash)
	}

	cbB2 := coinbaseTxTagged(50*1e8, 0xB2)
	blockB2 := mineBlock(t, params, &blockB1.Header, []*wire.MsgTx{cbB2}, 1231006705, params.PowLimitBits)
	outcome, err = c.Add(blockB2)
	if err != nil {
		t.Fatalf("Add(blockB2): %v", err)
	}
	if outcome != Connected {
		t.Fatalf("Add(blockB2) outcome = %s, want connected (reorg onto heavier branch)", outcome)
	}

	blockB2Hash := blockB2.BlockHash()
	gotTipHash := c.Tip().Hash()
	if !gotTipHash.IsEqual(&blockB2Hash) {
		t.Fatalf("tip after reorg = %s, want blockB2 %s", gotTipHash, blockB2Hash)
	}
	if c.Tip().Height != 2 {
		t.Fatalf("tip height after reorg = %d, want 2", c.Tip().Height)
	}

	blockB1Hash := blockB1.BlockHash()
	hashAt1, err := c.Store().HashAtHeight(1)
	if err != nil {
		t.Fatalf("HashAtHeight(1): %v", err)
	}
	if !hashAt1.IsEqual(&blockB1Hash) {
		t.Fatalf("main-chain hash at height 1 = %s, want blockB1 %s", hashAt1, blockB1Hash)
	}

	// blockA1's coinbase output must have been undone (it is no longer on
	// the best chain) and blockB1/blockB2's coinbase outputs must exist.
	cbA1Txid := cbA1.TxHash()
	if _, err := c.Store().Coin(&cbA1Txid, 0); err == nil {
		t.Fatalf("blockA1's coinbase output still present as unspent after reorg disconnected it")
	}
	cbB1Txid := cbB1.TxHash()
	if _, err := c.Store().Coin(&cbB1Txid, 0); err != nil {
		t.Fatalf("blockB1's coinbase output missing after reorg connected it: %v", err)
	}
	cbB2Txid := cbB2.TxHash()
	if _, err := c.Store().Coin(&cbB2Txid, 0); err != nil {
		t.Fatalf("blockB2's coinbase output missing after reorg connected it: %v", err)
	}
}

func TestSubscribeReceivesChainProgress(t *testing.T) {
	c, params := newTestChain(t)
	genesisHeader := &params.GenesisBlock.Header

	var got []NotificationType
	c.Subscribe(func(n *Notification) { got = append(got, n.Type) })

	cb1 := coinbaseTx(50 * 1e8)
	block1 := mineBlock(t, params, genesisHeader, []*wire.MsgTx{cb1}, 1231006605, params.PowLimitBits)
	if _, err := c.Add(block1); err != nil {
		t.Fatalf("Add(block1): %v", err)
	}

	var sawConnected, sawProgress bool
	for _, n := range got {
		switch n {
		case NTBlockConnected:
			sawConnected = true
		case NTChainProgress:
			sawProgress = true
		}
	}
	if !sawConnected {
		t.Fatalf("expected an NTBlockConnected notification, got %v", got)
	}
	if !sawProgress {
		t.Fatalf("expected an NTChainProgress notification, got %v", got)
	}
}
