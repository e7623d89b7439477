// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

// dynamicFeeTracker raises the pool's effective minimum relay fee rate
// above the static configured floor whenever eviction is needed to stay
// under the memory cap, and decays that floor geometrically back toward
// zero over time. It also gates how many free
// (below-minimum-fee but high-priority-exempt) bytes the pool accepts per
// window, using a token bucket sized off the same configured budget.
type dynamicFeeTracker struct {
	minRate     float64 // satoshis per vbyte, added on top of the static floor
	lastDecay   time.Time
	halfLife    time.Duration
	freeLimiter *rate.Limiter
}

// newDynamicFeeTracker builds a tracker whose minRate decays to half its
// value every halfLife, and whose free-relay budget refills at
// freeLimitBytesPer10Min bytes every ten minutes, bursting up to that
// same amount.
func newDynamicFeeTracker(halfLife time.Duration, freeLimitBytesPer10Min int64) *dynamicFeeTracker {
	if halfLife <= 0 {
		halfLife = 10 * time.Minute
	}
	ratePerSec := rate.Limit(float64(freeLimitBytesPer10Min) / (10 * 60))
	return &dynamicFeeTracker{
		lastDecay:   time.Now(),
		halfLife:    halfLife,
		freeLimiter: rate.NewLimiter(ratePerSec, int(freeLimitBytesPer10Min)),
	}
}

// decay applies geometric half-life decay to minRate for the elapsed
// time since the last call, so a burst of evictions doesn't leave the
// floor permanently elevated.
func (d *dynamicFeeTracker) decay(now time.Time) {
	elapsed := now.Sub(d.lastDecay)
	if elapsed <= 0 {
		return
	}
	d.lastDecay = now
	if d.minRate == 0 {
		return
	}
	halfLives := float64(elapsed) / float64(d.halfLife)
	d.minRate *= math.Pow(0.5, halfLives)
	if d.minRate < 1e-6 {
		d.minRate = 0
	}
}

// bump raises the floor by the fee rate of a just-evicted transaction
// plus a constant margin, so an identically cheap transaction offered
// again is rejected outright instead of being re-admitted and
// immediately re-evicted.
func (d *dynamicFeeTracker) bump(evictedFeeRate float64) {
	d.minRate += evictedFeeRate + minReasonableFee
}

// allowFree reports whether a transaction of the given virtual size may
// bypass the fee floor under the free-relay budget.
func (d *dynamicFeeTracker) allowFree(vsize int) bool {
	return d.freeLimiter.AllowN(time.Now(), vsize)
}
