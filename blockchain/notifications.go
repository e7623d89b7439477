// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "sync"

// NotificationType identifies one of the chain engine's emitted events, per
// the {block, fork, invalid, exists, orphan, full, chain-progress} set.
type NotificationType int

const (
	// NTBlockConnected indicates a block was connected to the main chain.
	NTBlockConnected NotificationType = iota
	// NTBlockDisconnected indicates a block was removed from the main
	// chain during a reorg.
	NTBlockDisconnected
	// NTFork indicates a valid block was accepted onto a side branch.
	NTFork
	// NTInvalidBlock indicates a candidate block failed consensus
	// validation.
	NTInvalidBlock
	// NTBlockExists indicates a candidate block was already known.
	NTBlockExists
	// NTOrphanBlock indicates a candidate block was parked awaiting its
	// parent.
	NTOrphanBlock
	// NTOrphanPoolFull indicates a new orphan arrived while the orphan pool
	// was at capacity; the oldest orphan is evicted to make room for it.
	NTOrphanPoolFull
	// NTChainProgress is emitted once per Add call that connects a block,
	// after all connect/disconnect events, carrying the resulting tip.
	NTChainProgress
)

func (n NotificationType) String() string {
	switch n {
	case NTBlockConnected:
		return "NTBlockConnected"
	case NTBlockDisconnected:
		return "NTBlockDisconnected"
	case NTFork:
		return "NTFork"
	case NTInvalidBlock:
		return "NTInvalidBlock"
	case NTBlockExists:
		return "NTBlockExists"
	case NTOrphanBlock:
		return "NTOrphanBlock"
	case NTOrphanPoolFull:
		return "NTOrphanPoolFull"
	case NTChainProgress:
		return "NTChainProgress"
	default:
		return "unknown notification"
	}
}

// Notification carries one event and its associated data. The concrete type
// of Data depends on Type: *ChainEntry for connect/disconnect/fork/
// chain-progress, *chainhash.Hash for exists, error for invalid,
// *wire.MsgBlock for orphan, nil for full.
type Notification struct {
	Type NotificationType
	Data interface{}
}

// NotificationCallback is the signature subscribers register to receive
// chain engine events.
type NotificationCallback func(*Notification)

// notificationManager fans one Notification out to every subscriber,
// synchronously, on the goroutine that produced it (the chain engine holds
// its writer lock for the whole call, so subscribers observe a consistent
// but possibly-stale-by-the-time-they-act view; they must not assume the
// tip is still what the notification reports).
type notificationManager struct {
	mu        sync.RWMutex
	callbacks []NotificationCallback
}

func newNotificationManager() *notificationManager {
	return &notificationManager{}
}

// Subscribe registers cb to receive every future notification.
func (m *notificationManager) Subscribe(cb NotificationCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

func (m *notificationManager) send(n *Notification) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, cb := range m.callbacks {
		cb(n)
	}
}
