// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/dworznik/bcoin/wire"
)

// chainAtHeight1 returns a test chain whose tip is height 1, for locktime
// checks that need a real ChainEntry to compare against.
func chainAtHeight1(t *testing.T) *Chain {
	t.Helper()
	c, params := newTestChain(t)
	cb1 := coinbaseTx(50 * 1e8)
	block1 := mineBlock(t, params, &params.GenesisBlock.Header, []*wire.MsgTx{cb1}, 1231006605, params.PowLimitBits)
	if outcome, err := c.Add(block1); err != nil || outcome != Connected {
		t.Fatalf("Add(block1) = %s, %v; want connected, nil", outcome, err)
	}
	return c
}

func TestCheckFinalZeroLockTimeIsAlwaysFinal(t *testing.T) {
	c := chainAtHeight1(t)
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{Sequence: 0})

	final, err := c.CheckFinal(c.Tip(), tx, StandardLockTimeFlags)
	if err != nil {
		t.Fatalf("CheckFinal: %v", err)
	}
	if !final {
		t.Fatalf("CheckFinal(locktime=0) = false, want true")
	}
}

func TestCheckFinalLockTimeBelowNextHeight(t *testing.T) {
	c := chainAtHeight1(t) // tip height 1, next block height 2
	tx := wire.NewMsgTx(1)
	tx.LockTime = 1
	tx.AddTxIn(&wire.TxIn{Sequence: 0}) // non-final sequence; comparison alone must decide

	final, err := c.CheckFinal(c.Tip(), tx, StandardLockTimeFlags)
	if err != nil {
		t.Fatalf("CheckFinal: %v", err)
	}
	if !final {
		t.Fatalf("CheckFinal(locktime=1, nextHeight=2) = false, want true")
	}
}

func TestCheckFinalLockTimeAtOrAboveNextHeightRequiresMaxSequence(t *testing.T) {
	c := chainAtHeight1(t)

	txMaxSeq := wire.NewMsgTx(1)
	txMaxSeq.LockTime = 100
	txMaxSeq.AddTxIn(&wire.TxIn{Sequence: wire.MaxTxInSequenceNum})
	final, err := c.CheckFinal(c.Tip(), txMaxSeq, StandardLockTimeFlags)
	if err != nil {
		t.Fatalf("CheckFinal: %v", err)
	}
	if !final {
		t.Fatalf("CheckFinal(locktime=100, all inputs max-sequence) = false, want true")
	}

	txLowSeq := wire.NewMsgTx(1)
	txLowSeq.LockTime = 100
	txLowSeq.AddTxIn(&wire.TxIn{Sequence: 5})
	final, err = c.CheckFinal(c.Tip(), txLowSeq, StandardLockTimeFlags)
	if err != nil {
		t.Fatalf("CheckFinal: %v", err)
	}
	if final {
		t.Fatalf("CheckFinal(locktime=100, non-final input sequence) = true, want false")
	}
}

func TestCheckLocksDisabledWhenFlagUnset(t *testing.T) {
	c := chainAtHeight1(t)
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{Sequence: 0xffff}) // would fail a height-based lock if evaluated

	ok, err := c.CheckLocks(c.Tip(), tx, []int32{1}, 0)
	if err != nil {
		t.Fatalf("CheckLocks: %v", err)
	}
	if !ok {
		t.Fatalf("CheckLocks with LockTimeVerifySequence unset = false, want true (no-op)")
	}
}

func TestCheckLocksDisabledForVersion1(t *testing.T) {
	c := chainAtHeight1(t)
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{Sequence: 0xffff})

	ok, err := c.CheckLocks(c.Tip(), tx, []int32{1}, StandardLockTimeFlags)
	if err != nil {
		t.Fatalf("CheckLocks: %v", err)
	}
	if !ok {
		t.Fatalf("CheckLocks on a version-1 tx = false, want true (BIP68 only applies to v2+)")
	}
}

func TestCheckLocksHeightBasedRelativeLock(t *testing.T) {
	c := chainAtHeight1(t) // tip height 1; next block would be height 2

	// coin confirmed at height 1, sequence requests a 1-block relative
	// lock: satisfied by height 1+1-1=1, which is below the next height 2.
	txSatisfied := wire.NewMsgTx(2)
	txSatisfied.AddTxIn(&wire.TxIn{Sequence: 1})
	ok, err := c.CheckLocks(c.Tip(), txSatisfied, []int32{1}, StandardLockTimeFlags)
	if err != nil {
		t.Fatalf("CheckLocks: %v", err)
	}
	if !ok {
		t.Fatalf("CheckLocks(relative lock satisfied) = false, want true")
	}

	// A 5-block relative lock from a coin confirmed at height 1 requires
	// height 1+5-1=5, which is not yet reached at next height 2.
	txUnsatisfied := wire.NewMsgTx(2)
	txUnsatisfied.AddTxIn(&wire.TxIn{Sequence: 5})
	ok, err = c.CheckLocks(c.Tip(), txUnsatisfied, []int32{1}, StandardLockTimeFlags)
	if err != nil {
		t.Fatalf("CheckLocks: %v", err)
	}
	if ok {
		t.Fatalf("CheckLocks(relative lock unsatisfied) = true, want false")
	}
}

func TestCheckLocksSkipsDisabledInput(t *testing.T) {
	c := chainAtHeight1(t)
	tx := wire.NewMsgTx(2)
	// A far-future relative lock that would otherwise fail, but the
	// disable flag means BIP68 ignores this input entirely.
	tx.AddTxIn(&wire.TxIn{Sequence: wire.SequenceLockTimeDisabled | 0xffff})

	ok, err := c.CheckLocks(c.Tip(), tx, []int32{1}, StandardLockTimeFlags)
	if err != nil {
		t.Fatalf("CheckLocks: %v", err)
	}
	if !ok {
		t.Fatalf("CheckLocks with a disabled-flag input = false, want true")
	}
}
