// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"time"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// orphanTx is a transaction parked because one or more of its inputs could
// not be resolved against the mempool or the chain store.
type orphanTx struct {
	tx             *wire.MsgTx
	txid           chainhash.Hash
	isHighPriority bool
	addedAt        time.Time
}

// orphanPool holds transactions whose parents are not yet visible,
// indexed both by their own txid and by the outpoints they're waiting on
// so a newly accepted transaction can find its waiting children in O(1)
// per output.
type orphanPool struct {
	mp            *Mempool
	byTxid        map[chainhash.Hash]*orphanTx
	byOutpoint    map[wire.OutPoint]map[chainhash.Hash]*orphanTx
	lastExpireRun time.Time
}

func newOrphanPool(mp *Mempool) *orphanPool {
	return &orphanPool{
		mp:         mp,
		byTxid:     make(map[chainhash.Hash]*orphanTx),
		byOutpoint: make(map[wire.OutPoint]map[chainhash.Hash]*orphanTx),
	}
}

// maybeAdd enforces the size/count caps (random eviction, never a
// redeemer cascade: an evicted-for-space orphan might resolve again
// shortly) before parking tx.
func (op *orphanPool) maybeAdd(tx *wire.MsgTx, isHighPriority bool) error {
	if virtualSize(tx) > op.mp.config.MaxOrphanTxSize {
		return txRuleError(RejectNonstandard, fmt.Sprintf(
			"orphan transaction size of %d bytes is larger than max allowed size of %d bytes",
			virtualSize(tx), op.mp.config.MaxOrphanTxSize))
	}
	if op.mp.config.MaxOrphanTxs <= 0 {
		return nil
	}
	for len(op.byTxid) >= op.mp.config.MaxOrphanTxs {
		victim := op.randomOrphan()
		if victim == nil {
			break
		}
		op.remove(victim.txid, false)
	}
	op.add(tx, isHighPriority)
	return nil
}

func (op *orphanPool) add(tx *wire.MsgTx, isHighPriority bool) {
	o := &orphanTx{tx: tx, txid: tx.TxHash(), isHighPriority: isHighPriority, addedAt: time.Now()}
	op.byTxid[o.txid] = o
	for _, in := range tx.TxIn {
		if op.byOutpoint[in.PreviousOutPoint] == nil {
			op.byOutpoint[in.PreviousOutPoint] = make(map[chainhash.Hash]*orphanTx)
		}
		op.byOutpoint[in.PreviousOutPoint][o.txid] = o
	}
}

// remove drops txid from the pool. If removeRedeemers is set, every
// orphan that itself depends on one of txid's outputs is removed too
// (recursively); otherwise they're left to fail resolution again on
// their own.
func (op *orphanPool) remove(txid chainhash.Hash, removeRedeemers bool) {
	o, ok := op.byTxid[txid]
	if !ok {
		return
	}
	delete(op.byTxid, txid)
	for _, in := range o.tx.TxIn {
		set := op.byOutpoint[in.PreviousOutPoint]
		delete(set, txid)
		if len(set) == 0 {
			delete(op.byOutpoint, in.PreviousOutPoint)
		}
	}
	if removeRedeemers {
		op.removeRedeemersOf(o.tx, txid)
	}
}

func (op *orphanPool) removeRedeemersOf(tx *wire.MsgTx, txid chainhash.Hash) {
	outpoint := wire.OutPoint{Hash: txid}
	for i := range tx.TxOut {
		outpoint.Index = uint32(i)
		for childTxid := range op.byOutpoint[outpoint] {
			op.remove(childTxid, true)
		}
	}
}

func (op *orphanPool) randomOrphan() *orphanTx {
	for _, o := range op.byTxid {
		return o
	}
	return nil
}

// resolvableChildrenOf returns every orphan waiting on one of acceptedTxid's
// outputs whose inputs are now fully resolvable (every other input also
// already lives in the mempool or chain), called after a transaction is
// admitted so its orphaned children can be promoted.
func (op *orphanPool) resolvableChildrenOf(acceptedTxid chainhash.Hash, numOutputs int) []*orphanTx {
	var resolvable []*orphanTx
	outpoint := wire.OutPoint{Hash: acceptedTxid}
	for i := 0; i < numOutputs; i++ {
		outpoint.Index = uint32(i)
		for _, o := range op.byOutpoint[outpoint] {
			if op.allInputsResolvable(o.tx) {
				resolvable = append(resolvable, o)
			}
		}
	}
	return resolvable
}

func (op *orphanPool) allInputsResolvable(tx *wire.MsgTx) bool {
	for _, in := range tx.TxIn {
		if op.mp.resolveCoin(in.PreviousOutPoint) == nil {
			return false
		}
	}
	return true
}

// expireStale evicts orphans (never high-priority ones) that have sat
// unresolved longer than the configured expire interval, paced by the
// configured scan interval so it doesn't run on every call.
func (op *orphanPool) expireStale(now time.Time) {
	if now.Sub(op.lastExpireRun) < op.mp.config.OrphanExpireScanInterval {
		return
	}
	op.lastExpireRun = now
	for txid, o := range op.byTxid {
		if o.isHighPriority {
			continue
		}
		if now.Sub(o.addedAt) > op.mp.config.OrphanExpireInterval {
			op.remove(txid, true)
		}
	}
}

func (op *orphanPool) count() int { return len(op.byTxid) }

func (op *orphanPool) has(txid chainhash.Hash) bool {
	_, ok := op.byTxid[txid]
	return ok
}
