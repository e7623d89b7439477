// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

// Ban score constants a peer applies to itself or asks its pool to apply.
// Block/transaction validity scores are not listed here: those come from
// blockchain.RuleError.Score()
// and mempool.TxRuleError.Score() respectively, computed where the
// violation is detected rather than duplicated into a second table.
const (
	// BanScoreMalformedMessage is the penalty for a message that fails to
	// decode (bad varint, truncated payload, checksum mismatch surfaced
	// above the wire layer).
	BanScoreMalformedMessage = 100

	// BanScoreDuplicateVersion/VerAck penalize a peer that repeats its
	// handshake messages after the handshake already completed.
	BanScoreDuplicateVersion = 1
	BanScoreDuplicateVerAck  = 1

	// BanScoreWitnessMaskFromNonWitnessPeer penalizes a peer that sets the
	// getdata WITNESS_MASK bit despite never having advertised
	// SFNodeWitness in its version message.
	BanScoreWitnessMaskFromNonWitnessPeer = 100

	// BanScoreStallTimeout penalizes a peer that fails to respond to a
	// pending request (block/tx getdata, getheaders, ping) within its
	// deadline.
	BanScoreStallTimeout = 10

	// BanScoreOrphanFlood penalizes a peer that has offered more than
	// orphanFloodThreshold orphan blocks within orphanFloodWindow.
	BanScoreOrphanFlood = 100
)
