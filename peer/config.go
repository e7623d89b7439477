// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"time"

	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/wire"
)

// MessageListeners defines the set of callback functions a Peer's owner
// registers to be notified of arriving messages. A nil listener is simply
// skipped, so a caller only wires up the commands it cares about.
type MessageListeners struct {
	OnVersion      func(p *Peer, msg *wire.MsgVersion)
	OnVerAck       func(p *Peer, msg *wire.MsgVerAck)
	OnGetAddr      func(p *Peer, msg *wire.MsgGetAddr)
	OnAddr         func(p *Peer, msg *wire.MsgAddr)
	OnInv          func(p *Peer, msg *wire.MsgInv)
	OnGetData      func(p *Peer, msg *wire.MsgGetData)
	OnNotFound     func(p *Peer, msg *wire.MsgNotFound)
	OnGetBlocks    func(p *Peer, msg *wire.MsgGetBlocks)
	OnGetHeaders   func(p *Peer, msg *wire.MsgGetHeaders)
	OnHeaders      func(p *Peer, msg *wire.MsgHeaders)
	OnTx           func(p *Peer, msg *wire.MsgTx)
	OnBlock        func(p *Peer, msg *wire.MsgBlock, buf []byte)
	OnMerkleBlock  func(p *Peer, msg *wire.MsgMerkleBlock)
	OnMemPool      func(p *Peer, msg *wire.MsgMemPool)
	OnFilterLoad   func(p *Peer, msg *wire.MsgFilterLoad)
	OnFilterAdd    func(p *Peer, msg *wire.MsgFilterAdd)
	OnFilterClear  func(p *Peer, msg *wire.MsgFilterClear)
	OnReject       func(p *Peer, msg *wire.MsgReject)
	OnSendHeaders  func(p *Peer, msg *wire.MsgSendHeaders)
	OnFeeFilter    func(p *Peer, msg *wire.MsgFeeFilter)
	OnSendCmpct    func(p *Peer, msg *wire.MsgSendCmpct)
	OnRead         func(p *Peer, bytesRead int, msg wire.Message, err error)
	OnWrite        func(p *Peer, bytesWritten int, msg wire.Message, err error)
}

// Config holds everything NewInboundPeer/NewOutboundPeer need beyond the
// network connection itself: identity, policy, and the callback
// owner uses both to observe traffic and to enforce misbehavior scoring.
type Config struct {
	// NewestBlock returns the header and height of the tip this node
	// advertises in its version message.
	NewestBlock func() (*wire.BlockHeader, int32, error)

	// HostToNetAddress resolves a host:port into a wire.NetAddress,
	// optionally via a configured proxy resolver.
	HostToNetAddress func(host string, port uint16, services wire.ServiceFlag) (*wire.NetAddress, error)

	Proxy string

	UserAgentName    string
	UserAgentVersion string
	UserAgentComments []string

	// ChainParams selects the network magic/genesis this peer validates
	// its counterpart's handshake against.
	ChainParams *chaincfg.Params

	Services wire.ServiceFlag

	ProtocolVersion uint32

	// DisableRelayTx sets the wire "relay" byte to false in our own
	// version message, asking the remote to withhold inv/tx until we
	// load a bloom filter.
	DisableRelayTx bool

	// TrickleInterval paces how often queued inv announcements flush to
	// the wire, batching them instead of sending one inv per item.
	TrickleInterval time.Duration

	// AddBanScore is called whenever this peer's behavior earns a
	// misbehavior strike; the pool (not the peer) owns the ban table and
	// disconnect/ban decision.
	AddBanScore func(peer *Peer, persistentScore, transientScore uint32, reason string)

	Listeners MessageListeners
}

// defaultTrickleInterval matches Bitcoin Core's historical inv-batching
// interval.
const defaultTrickleInterval = 10 * time.Second

// negotiateTimeout bounds how long the handshake (version/verack exchange)
// may take before the connection is dropped as unresponsive.
const negotiateTimeout = 30 * time.Second

// idleTimeout disconnects a peer that has sent nothing at all for this
// long, independent of any specific pending-request deadline.
const idleTimeout = 5 * time.Minute

// stallResponseTimeout bounds how long a request (getdata, getheaders,
// getblocks, mempool, ping) may go unanswered before the peer is judged
// stalling.
const stallResponseTimeout = 30 * time.Second

// pingInterval paces unsolicited keepalive pings.
const pingInterval = 2 * time.Minute

// outputBufferSize sizes the peer's outbound message channel.
const outputBufferSize = 50

// maxKnownInventory bounds the per-peer recently-announced-item set used
// to suppress redundant inv/getdata round trips.
const maxKnownInventory = 1000

// maxInvTrickleSize caps how many items a single trickled inv message
// carries; a pending set larger than this flushes across multiple
// messages on later ticks.
const maxInvTrickleSize = 1000
