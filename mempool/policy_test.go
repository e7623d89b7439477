// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

func TestVirtualSizeNoWitness(t *testing.T) {
	tx := coinbaseTx(50 * 1e8)
	vsize := virtualSize(tx)
	if vsize <= 0 {
		t.Fatalf("expected positive virtual size, got %d", vsize)
	}
	var buf countingWriter
	_ = tx.Serialize(&buf)
	if int64(buf.n) != vsize {
		t.Fatalf("witness-free tx should have vsize == full size: vsize=%d full=%d", vsize, buf.n)
	}
}

func TestIsSaneRejectsEmptyInputsOutputs(t *testing.T) {
	tx := wire.NewMsgTx(1)
	tx.AddTxOut(&wire.TxOut{Value: 1, PkScript: opTrueScript})
	if err := isSane(tx); err == nil {
		t.Fatal("expected error for transaction with no inputs")
	}

	tx2 := wire.NewMsgTx(1)
	tx2.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 1}})
	if err := isSane(tx2); err == nil {
		t.Fatal("expected error for transaction with no outputs")
	}
}

func TestIsSaneRejectsDuplicateInputs(t *testing.T) {
	tx := wire.NewMsgTx(1)
	outpoint := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: outpoint})
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: outpoint})
	tx.AddTxOut(&wire.TxOut{Value: 1, PkScript: opTrueScript})
	if err := isSane(tx); err == nil {
		t.Fatal("expected error for transaction spending the same outpoint twice")
	}
}

func TestIsSaneRejectsIndividuallySubmittedCoinbase(t *testing.T) {
	tx := coinbaseTx(50 * 1e8)
	if err := isSane(tx); err == nil {
		t.Fatal("expected error rejecting a lone coinbase from mempool admission")
	}
}

func TestIsSaneRejectsNegativeAndOversizedOutputs(t *testing.T) {
	tx := spendTx(chainhash.Hash{1}, 0, -1)
	if err := isSane(tx); err == nil {
		t.Fatal("expected error for negative output value")
	}

	tx2 := spendTx(chainhash.Hash{1}, 0, maxSatoshi+1)
	if err := isSane(tx2); err == nil {
		t.Fatal("expected error for output exceeding max satoshi")
	}
}

func TestIsStandardRejectsHighVersion(t *testing.T) {
	tx := spendTx(chainhash.Hash{1}, 0, 1000)
	tx.Version = maxStandardVersion + 1
	if err := isStandard(tx, 1000); err == nil {
		t.Fatal("expected error for out-of-range version")
	}
}

func TestIsStandardRejectsNonPushOnlySigScript(t *testing.T) {
	tx := spendTx(chainhash.Hash{1}, 0, 1000)
	tx.TxIn[0].SignatureScript = []byte{0xac} // OP_CHECKSIG, not a push
	if err := isStandard(tx, 1000); err == nil {
		t.Fatal("expected error for non-push-only signature script")
	}
}

func TestIsDustBelowThreshold(t *testing.T) {
	out := &wire.TxOut{Value: 1, PkScript: opTrueScript}
	if !isDust(out, 1000) {
		t.Fatal("expected a 1-satoshi output to be dust at the default relay fee")
	}
	out2 := &wire.TxOut{Value: 100000, PkScript: opTrueScript}
	if isDust(out2, 1000) {
		t.Fatal("expected a well-funded output not to be dust")
	}
}

func TestGetPriorityFreeThreshold(t *testing.T) {
	// A single, well-aged, large input should clear the historical free
	// threshold; a freshly-received one should not.
	highPriority := getPriority([]int64{50 * 1e8}, []int32{0}, 200, 250)
	if highPriority <= 57_600_000.0 {
		t.Fatalf("expected an aged coinbase input to clear the free threshold, got %f", highPriority)
	}
	lowPriority := getPriority([]int64{50 * 1e8}, []int32{199}, 200, 250)
	if lowPriority > 57_600_000.0 {
		t.Fatalf("expected a freshly confirmed input not to clear the free threshold, got %f", lowPriority)
	}
}

func TestMinimumRelayFeeScalesWithSize(t *testing.T) {
	small := minimumRelayFee(250, 1000)
	large := minimumRelayFee(2500, 1000)
	if large != small*10 {
		t.Fatalf("expected minimum relay fee to scale linearly with vsize: small=%d large=%d", small, large)
	}
}
