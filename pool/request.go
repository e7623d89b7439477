// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"sync"
	"time"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/peer"
)

// loadKind distinguishes a block getdata from a transaction getdata. Both
// kinds share the request map and the single requestTimeout, and an expired
// request of either kind is dropped rather than re-requested.
type loadKind uint8

const (
	loadBlock loadKind = iota
	loadTx
)

// loadRequest is one outstanding getdata: the hash asked for, who it was
// asked of, and when that ask must be answered by.
type loadRequest struct {
	hash     chainhash.Hash
	kind     loadKind
	peer     *peer.Peer
	deadline time.Time
}

// requestTracker is the single global table of in-flight loads: at most one
// active request per hash, so two peers racing to announce the same
// inventory only cost one getdata round trip.
type requestTracker struct {
	mu       sync.Mutex
	byHash   map[chainhash.Hash]*loadRequest
	byPeer   map[int32]map[chainhash.Hash]struct{}
}

func newRequestTracker() *requestTracker {
	return &requestTracker{
		byHash: make(map[chainhash.Hash]*loadRequest),
		byPeer: make(map[int32]map[chainhash.Hash]struct{}),
	}
}

// tryStart registers hash as requested from p, returning false if some peer
// already has an outstanding request for it.
func (t *requestTracker) tryStart(hash chainhash.Hash, kind loadKind, p *peer.Peer) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byHash[hash]; exists {
		return false
	}
	t.byHash[hash] = &loadRequest{hash: hash, kind: kind, peer: p, deadline: time.Now().Add(requestTimeout)}
	if t.byPeer[p.ID()] == nil {
		t.byPeer[p.ID()] = make(map[chainhash.Hash]struct{})
	}
	t.byPeer[p.ID()][hash] = struct{}{}
	return true
}

// finish clears hash's outstanding request, if any, regardless of which
// peer it was assigned to (a notfound or a delivery from an unrelated peer
// still resolves it).
func (t *requestTracker) finish(hash chainhash.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.byHash[hash]
	if !ok {
		return
	}
	delete(t.byHash, hash)
	if peerReqs := t.byPeer[req.peer.ID()]; peerReqs != nil {
		delete(peerReqs, hash)
	}
}

// releasePeer drops every request assigned to p, called when p disconnects
// so its in-flight hashes become requestable from someone else.
func (t *requestTracker) releasePeer(p *peer.Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for hash := range t.byPeer[p.ID()] {
		delete(t.byHash, hash)
	}
	delete(t.byPeer, p.ID())
}

// expired returns every request past its deadline, clearing them so they
// can be retried against a different peer.
func (t *requestTracker) expired(now time.Time) []*loadRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*loadRequest
	for hash, req := range t.byHash {
		if now.After(req.deadline) {
			out = append(out, req)
			delete(t.byHash, hash)
			if peerReqs := t.byPeer[req.peer.ID()]; peerReqs != nil {
				delete(peerReqs, hash)
			}
		}
	}
	return out
}

// orphanFlood counts orphan blocks offered by each peer within
// orphanFloodWindow so a peer flooding orphans can be banned.
type orphanFlood struct {
	mu      sync.Mutex
	seen    map[int32][]time.Time
}

func newOrphanFlood() *orphanFlood {
	return &orphanFlood{seen: make(map[int32][]time.Time)}
}

// record notes one more orphan from p and reports whether p has now crossed
// orphanFloodThreshold within the trailing orphanFloodWindow.
func (f *orphanFlood) record(p *peer.Peer, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := now.Add(-orphanFloodWindow)
	times := f.seen[p.ID()]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	f.seen[p.ID()] = kept
	return len(kept) > orphanFloodThreshold
}

func (f *orphanFlood) forget(p *peer.Peer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, p.ID())
}
