// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"sync"
	"time"
)

// misbehaving tracks accumulated ban score per address, and addresses
// currently serving out a ban. The manager owns this table; a peer only
// ever reports scores through its AddBanScore callback, never keeping one
// of its own beyond a convenience counter.
type misbehaving struct {
	mu      sync.Mutex
	score   map[string]uint32
	bannedUntil map[string]time.Time
}

func newMisbehaving() *misbehaving {
	return &misbehaving{
		score:       make(map[string]uint32),
		bannedUntil: make(map[string]time.Time),
	}
}

// add applies persistent+transient to addr's running score and reports
// whether that brings it to banThreshold or above. The two parts are summed
// into one score, matching peer.Peer.AddBanScore's own persistent+transient
// sum; forget drops that whole score, persistent part included, when the
// peer disconnects below the threshold.
func (m *misbehaving) add(addr string, persistent, transient uint32, reason string) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.score[addr] += persistent + transient
	score := m.score[addr]
	if score >= banThreshold {
		m.bannedUntil[addr] = time.Now().Add(banDuration)
		log.Warnf("banning %s for %s: score %d (%s)", addr, banDuration, score, reason)
		return score, true
	}
	return score, false
}

// isBanned reports whether addr is currently serving out a ban, clearing
// the entry if the ban has expired.
func (m *misbehaving) isBanned(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.bannedUntil[addr]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(m.bannedUntil, addr)
		delete(m.score, addr)
		return false
	}
	return true
}

// forget drops addr's running score without banning it, called when a peer
// disconnects with a score under the ban threshold (no part of the score
// outlives the connection that earned it unless it led to a ban).
func (m *misbehaving) forget(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, banned := m.bannedUntil[addr]; !banned {
		delete(m.score, addr)
	}
}
