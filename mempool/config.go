// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/dworznik/bcoin/chaincfg"
)

const (
	// defaultMaxOrphanTxs is MAX_ORPHAN_TX: the most orphan transactions
	// the orphan pool holds before evicting a random member to make room
	// for a new one.
	defaultMaxOrphanTxs = 100

	// defaultMaxOrphanTxSize bounds how large a single orphan may be,
	// independent of the pool-wide count cap.
	defaultMaxOrphanTxSize = 100_000

	// defaultAncestorLimit is ANCESTOR_LIMIT: the maximum number of
	// in-mempool ancestors (via chained, unconfirmed parents) a
	// transaction may have.
	defaultAncestorLimit = 25

	// defaultMaxMempoolSize is the in-memory byte budget that triggers
	// eviction once exceeded.
	defaultMaxMempoolSize = 300_000_000

	// defaultOrphanExpireInterval is how long an orphan may sit unfilled
	// before a sweep evicts it (never applied to high-priority orphans).
	defaultOrphanExpireInterval = 20 * time.Minute
	// defaultOrphanExpireScanInterval paces how often the sweep runs.
	defaultOrphanExpireScanInterval = 5 * time.Minute

	// defaultTransactionExpireInterval is how long an admitted, non-high-
	// priority transaction may sit unmined before a sweep evicts it,
	// independent of the fee-driven eviction step 11 also runs (Bitcoin
	// Core's historical DEFAULT_MEMPOOL_EXPIRY of 336 hours (14 days)).
	defaultTransactionExpireInterval = 336 * time.Hour
	// defaultTransactionExpireScanInterval paces how often the sweep runs.
	defaultTransactionExpireScanInterval = 20 * time.Minute

	// minReasonableFee is folded into dynamicFeeTracker.minRate on every eviction,
	// ensuring the bumped rate always clears the evicted transaction's
	// own rate by a reasonable margin.
	minReasonableFee = 1000
)

// Config parameterizes one Mempool instance with everything admission and
// eviction need beyond the transaction itself: network policy from
// chaincfg.Params plus local resource caps that have no consensus meaning.
type Config struct {
	Params *chaincfg.Params

	MaxOrphanTxs            int
	MaxOrphanTxSize         int64
	AncestorLimit            int
	MaxMempoolSize          int64
	OrphanExpireInterval     time.Duration
	OrphanExpireScanInterval time.Duration

	// TransactionExpireInterval/ScanInterval parameterize the rolling
	// time-based eviction sweep independent of the fee-driven eviction
	// the fee-driven eviction sweep also runs (the "rolling expiry").
	TransactionExpireInterval     time.Duration
	TransactionExpireScanInterval time.Duration

	// AcceptNonStandard disables the isStandard policy gate, relaying
	// and mining any otherwise-sane transaction (mirrors
	// chaincfg.Params.RelayNonStdTxs but lets a caller override it
	// independent of network defaults, e.g. for a mining node on a
	// standards-enforcing network).
	AcceptNonStandard bool
	// RejectAbsurdFees rejects a transaction paying more than
	// absurdFeeMultiplier times the minimum relay fee, a spam-typo
	// safety net.
	RejectAbsurdFees bool
}

// absurdFeeMultiplier is the factor applied to the minimum relay fee rate
// to flag a fee as absurd rather than merely generous (10 000 *
// minRelayFee*vsize).
const absurdFeeMultiplier = 10000

// DefaultConfig returns policy defaults for params, following Bitcoin
// Core's historical relay-policy numbers.
func DefaultConfig(params *chaincfg.Params) *Config {
	return &Config{
		Params:                   params,
		MaxOrphanTxs:             defaultMaxOrphanTxs,
		MaxOrphanTxSize:          defaultMaxOrphanTxSize,
		AncestorLimit:            defaultAncestorLimit,
		MaxMempoolSize:           defaultMaxMempoolSize,
		OrphanExpireInterval:     defaultOrphanExpireInterval,
		OrphanExpireScanInterval: defaultOrphanExpireScanInterval,
		TransactionExpireInterval:     defaultTransactionExpireInterval,
		TransactionExpireScanInterval: defaultTransactionExpireScanInterval,
		AcceptNonStandard:        params.RelayNonStdTxs,
		RejectAbsurdFees:         true,
	}
}
