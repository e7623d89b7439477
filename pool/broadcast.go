// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dworznik/bcoin/wire"
)

// BroadcastResult is delivered to a Broadcast caller once the network has
// either acknowledged (an inv naming the item came back from some peer) or
// rejected it, or the wait timed out.
type BroadcastResult struct {
	Acked    bool
	RejectMsg *wire.MsgReject
	TimedOut bool
}

// BroadcastItem is one outstanding push-to-network request: an inv
// announcement to every connected peer, tracked until acknowledged,
// rejected, or timed out.
type BroadcastItem struct {
	id     uuid.UUID
	invVect *wire.InvVect
	data    interface{}
	done    chan BroadcastResult
}

// broadcastTable tracks outstanding BroadcastItems by inventory vector so
// an incoming inv or reject message can resolve the right one.
type broadcastTable struct {
	mu    sync.Mutex
	byInv map[wire.InvVect]*BroadcastItem
}

func newBroadcastTable() *broadcastTable {
	return &broadcastTable{byInv: make(map[wire.InvVect]*BroadcastItem)}
}

func (b *broadcastTable) register(iv *wire.InvVect, data interface{}) *BroadcastItem {
	item := &BroadcastItem{id: uuid.New(), invVect: iv, data: data, done: make(chan BroadcastResult, 1)}
	b.mu.Lock()
	b.byInv[*iv] = item
	b.mu.Unlock()
	go b.expireAfter(item)
	return item
}

func (b *broadcastTable) expireAfter(item *BroadcastItem) {
	timer := time.NewTimer(broadcastTimeout)
	defer timer.Stop()
	<-timer.C
	b.mu.Lock()
	if cur, ok := b.byInv[*item.invVect]; ok && cur == item {
		delete(b.byInv, *item.invVect)
		b.mu.Unlock()
		item.done <- BroadcastResult{TimedOut: true}
		return
	}
	b.mu.Unlock()
}

// ack resolves the item tracking iv, if any, as acknowledged.
func (b *broadcastTable) ack(iv *wire.InvVect) {
	b.mu.Lock()
	item, ok := b.byInv[*iv]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.byInv, *iv)
	b.mu.Unlock()
	item.done <- BroadcastResult{Acked: true}
}

// reject resolves the item named by msg.Hash under the given inv type as
// rejected.
func (b *broadcastTable) reject(typ wire.InvType, msg *wire.MsgReject) {
	iv := wire.InvVect{Type: typ, Hash: msg.Hash}
	b.mu.Lock()
	item, ok := b.byInv[iv]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.byInv, iv)
	b.mu.Unlock()
	item.done <- BroadcastResult{RejectMsg: msg}
}
