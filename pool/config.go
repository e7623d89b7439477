// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pool is the sync driver: it owns every connected peer, decides
// who the chain is downloaded from, forwards decoded wire messages into
// the chain engine and mempool, relays their outcomes back out, and
// tracks peer misbehavior.
package pool

import (
	"time"

	"github.com/dworznik/bcoin/blockchain"
	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/mempool"
)

// Config holds everything New needs to build a Manager.
type Config struct {
	ChainParams *chaincfg.Params
	Chain       *blockchain.Chain
	Mempool     *mempool.Mempool

	// MaxPeers is the connected-peer count (inbound and outbound together)
	// at which new inbound connections are refused; outbound dials are
	// bounded by TargetOutbound alone.
	MaxPeers int

	// TargetOutbound is the number of outbound connections the connect
	// loop tries to maintain.
	TargetOutbound int

	// Seeds lists the host:port addresses the connect loop dials in turn;
	// it has no other source of outbound addresses. Normally these are
	// ChainParams.DNSSeeds resolved externally into concrete addresses.
	Seeds []string

	// Listen, if non-empty, is the address to accept inbound connections
	// on.
	Listen string

	// UserAgentName/Version identify this node in the version handshake.
	// UserAgentComments is not passed on to the peers, so the advertised
	// user agent carries no comments.
	UserAgentName    string
	UserAgentVersion string
	UserAgentComments []string

	// Proxy is copied into each peer's Config. The manager dials outbound
	// connections itself with a plain net.Dialer, so those dials do not go
	// through the proxy.
	Proxy string

	// DisableRelayTx asks connected peers to withhold inv/tx until a
	// bloom filter is loaded.
	DisableRelayTx bool
}

// requestTimeout bounds how long a getdata (block or tx) may go
// unanswered before the request is dropped and its peer given a transient
// stall score; the hash is requested again only when it is next announced.
const requestTimeout = 30 * time.Second

// orphanFloodWindow/orphanFloodThreshold ban a peer that offers more than
// orphanFloodThreshold orphan blocks within orphanFloodWindow.
const (
	orphanFloodWindow    = 3 * time.Minute
	orphanFloodThreshold = 200
)

// banThreshold is the accumulated misbehavior score at which a peer is
// banned outright rather than merely disconnected.
const banThreshold = 100

// banDuration is how long a banned address is refused a new connection.
const banDuration = 24 * time.Hour

// broadcastTimeout bounds how long a Broadcast waits for the network to
// acknowledge (via inv) or reject a pushed item.
const broadcastTimeout = 60 * time.Second

// maxBlocksPerGetData limits a headers-driven getdata to blocks among the
// first maxBlocksPerGetData headers of the message; the limit is fixed and
// does not change with chain height.
const maxBlocksPerGetData = 16
