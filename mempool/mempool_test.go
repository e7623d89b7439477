// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/dworznik/bcoin/wire"
)

func TestAddTransactionAcceptsSpendOfConfirmedCoin(t *testing.T) {
	mp, chain, params := newTestMempool(t)
	genesisCoinbase := params.GenesisBlock.Transactions[0]

	tx := spendTx(genesisCoinbase.TxHash(), 0, genesisCoinbase.TxOut[0].Value-1000)
	accepted, err := mp.AddTransaction(tx, false, true)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if len(accepted) != 1 || accepted[0].TxHash() != tx.TxHash() {
		t.Fatalf("expected tx to be accepted, got %v", accepted)
	}
	if !mp.HaveTransaction(tx.TxHash()) {
		t.Fatal("expected HaveTransaction to report the admitted tx")
	}
	if mp.Count() != 1 {
		t.Fatalf("expected pool count 1, got %d", mp.Count())
	}

	_ = chain
}

func TestAddTransactionRejectsDuplicate(t *testing.T) {
	mp, _, params := newTestMempool(t)
	genesisCoinbase := params.GenesisBlock.Transactions[0]
	tx := spendTx(genesisCoinbase.TxHash(), 0, genesisCoinbase.TxOut[0].Value-1000)

	if _, err := mp.AddTransaction(tx, false, true); err != nil {
		t.Fatalf("first AddTransaction: %v", err)
	}
	if _, err := mp.AddTransaction(tx, false, true); err == nil {
		t.Fatal("expected the second AddTransaction to be rejected as a duplicate")
	}
}

func TestAddTransactionRejectsDoubleSpend(t *testing.T) {
	mp, _, params := newTestMempool(t)
	genesisCoinbase := params.GenesisBlock.Transactions[0]
	outpoint := genesisCoinbase.TxHash()

	first := spendTx(outpoint, 0, genesisCoinbase.TxOut[0].Value-1000)
	second := spendTxTagged(outpoint, 0, genesisCoinbase.TxOut[0].Value-2000, 1)

	if _, err := mp.AddTransaction(first, false, true); err != nil {
		t.Fatalf("first AddTransaction: %v", err)
	}
	if _, err := mp.AddTransaction(second, false, true); err == nil {
		t.Fatal("expected a second spend of the same outpoint to be rejected")
	}
}

func TestAddTransactionOrphansOnMissingParent(t *testing.T) {
	mp, _, _ := newTestMempool(t)
	tx := spendTx(randomHash(7), 0, 1000)

	accepted, err := mp.AddTransaction(tx, false, true)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if len(accepted) != 0 {
		t.Fatalf("expected an orphan to report zero immediately-accepted transactions, got %v", accepted)
	}
	if !mp.orphans.has(tx.TxHash()) {
		t.Fatal("expected the transaction to be parked as an orphan")
	}
}

func TestAddTransactionPromotesOrphanOnParentArrival(t *testing.T) {
	mp, _, params := newTestMempool(t)
	genesisCoinbase := params.GenesisBlock.Transactions[0]

	parent := spendTx(genesisCoinbase.TxHash(), 0, genesisCoinbase.TxOut[0].Value-1000)
	child := spendTx(parent.TxHash(), 0, 900)

	if _, err := mp.AddTransaction(child, false, true); err != nil {
		t.Fatalf("orphaning child: %v", err)
	}
	if !mp.orphans.has(child.TxHash()) {
		t.Fatal("expected child to be orphaned before its parent arrives")
	}

	accepted, err := mp.AddTransaction(parent, false, true)
	if err != nil {
		t.Fatalf("AddTransaction parent: %v", err)
	}
	if len(accepted) != 2 {
		t.Fatalf("expected parent acceptance to also promote the orphaned child, got %d accepted", len(accepted))
	}
	if mp.orphans.has(child.TxHash()) {
		t.Fatal("expected child to have been removed from the orphan pool once promoted")
	}
	if !mp.HaveTransaction(child.TxHash()) {
		t.Fatal("expected the promoted child to now be a full mempool entry")
	}
}

func TestRemoveTransaction(t *testing.T) {
	mp, _, params := newTestMempool(t)
	genesisCoinbase := params.GenesisBlock.Transactions[0]
	tx := spendTx(genesisCoinbase.TxHash(), 0, genesisCoinbase.TxOut[0].Value-1000)

	if _, err := mp.AddTransaction(tx, false, true); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	mp.RemoveTransaction(tx.TxHash(), false)
	if mp.HaveTransaction(tx.TxHash()) {
		t.Fatal("expected RemoveTransaction to drop the entry")
	}
}

func TestProcessBlockConnectedRemovesIncludedTransactions(t *testing.T) {
	mp, _, params := newTestMempool(t)
	genesisCoinbase := params.GenesisBlock.Transactions[0]
	tx := spendTx(genesisCoinbase.TxHash(), 0, genesisCoinbase.TxOut[0].Value-1000)

	if _, err := mp.AddTransaction(tx, false, true); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	block := mineBlock(t, params, &params.GenesisBlock.Header, []*wire.MsgTx{coinbaseTx(50 * 1e8), tx}, 1231006605)
	mp.ProcessBlockConnected(block)

	if mp.HaveTransaction(tx.TxHash()) {
		t.Fatal("expected a transaction included in a connected block to leave the mempool")
	}
}
