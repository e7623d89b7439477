// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/dworznik/bcoin/chainhash"
)

func TestOrphanPoolAddHasRemove(t *testing.T) {
	mp, _, _ := newTestMempool(t)
	parentTxid := chainhash.Hash{0xaa}
	child := spendTx(parentTxid, 0, 1000)

	if err := mp.orphans.maybeAdd(child, false); err != nil {
		t.Fatalf("maybeAdd: %v", err)
	}
	if !mp.orphans.has(child.TxHash()) {
		t.Fatal("expected orphan to be present after maybeAdd")
	}
	if mp.orphans.count() != 1 {
		t.Fatalf("expected count 1, got %d", mp.orphans.count())
	}

	mp.orphans.remove(child.TxHash(), false)
	if mp.orphans.has(child.TxHash()) {
		t.Fatal("expected orphan to be gone after remove")
	}
}

func TestOrphanPoolEvictsOnCountCap(t *testing.T) {
	mp, _, _ := newTestMempool(t)
	mp.config.MaxOrphanTxs = 2

	for i := byte(0); i < 3; i++ {
		parentTxid := chainhash.Hash{i}
		tx := spendTx(parentTxid, 0, 1000)
		if err := mp.orphans.maybeAdd(tx, false); err != nil {
			t.Fatalf("maybeAdd #%d: %v", i, err)
		}
	}
	if mp.orphans.count() != 2 {
		t.Fatalf("expected eviction to cap the pool at 2, got %d", mp.orphans.count())
	}
}

func TestOrphanPoolRejectsOversized(t *testing.T) {
	mp, _, _ := newTestMempool(t)
	mp.config.MaxOrphanTxSize = 1

	tx := spendTx(chainhash.Hash{1}, 0, 1000)
	if err := mp.orphans.maybeAdd(tx, false); err == nil {
		t.Fatal("expected an oversized orphan to be rejected")
	}
}

func TestOrphanPoolRemoveRedeemers(t *testing.T) {
	mp, _, _ := newTestMempool(t)
	parent := spendTx(chainhash.Hash{0xaa}, 0, 1000)
	parentTxid := parent.TxHash()
	child := spendTx(parentTxid, 0, 500)

	if err := mp.orphans.maybeAdd(parent, false); err != nil {
		t.Fatalf("maybeAdd parent: %v", err)
	}
	if err := mp.orphans.maybeAdd(child, false); err != nil {
		t.Fatalf("maybeAdd child: %v", err)
	}

	mp.orphans.remove(parentTxid, true)
	if mp.orphans.has(child.TxHash()) {
		t.Fatal("expected removing a parent with removeRedeemers to drop its orphaned child too")
	}
}
