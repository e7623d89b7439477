// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements one end of a Bitcoin-style wire protocol
// connection: handshake negotiation, message framing via the wire
// package, send queuing with inv trickling, stall detection, and the
// bookkeeping (known inventory, fee filter, bloom filter, ban score) a
// sync driver needs to treat a remote node as a source and sink of
// blocks and transactions.
package peer

import (
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dworznik/bcoin/bloom"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

var cryptoRandReader io.Reader = rand.Reader

// outMsg wraps a message queued for the outHandler, with an optional
// channel the sender is signaled on once the write completes.
type outMsg struct {
	msg      wire.Message
	doneChan chan<- struct{}
}

// StatsSnap is a point-in-time copy of the peer's statistics, safe to read
// without racing the peer's own goroutines.
type StatsSnap struct {
	ID             int32
	Addr           string
	Services       wire.ServiceFlag
	LastSend       time.Time
	LastRecv       time.Time
	BytesSent      uint64
	BytesRecv      uint64
	UserAgent      string
	LastBlock      int32
	TimeOffset     int64
	ProtocolVersion uint32
}

var nextPeerID int32

// Peer provides control and observation of one connection to a remote
// Bitcoin-style node. Callers drive it via QueueMessage/QueueInventory and
// observe it via the Config's MessageListeners.
type Peer struct {
	conn net.Conn

	id        int32
	addr      string
	inbound   bool
	na        *wire.NetAddress
	cfg       Config

	connected  int32
	disconnect int32

	bytesReceived uint64
	bytesSent     uint64
	lastRecv      int64 // unix nanos, atomic
	lastSend      int64 // unix nanos, atomic

	timeConnected time.Time
	timeOffset    int64

	versionKnown   int32 // atomic bool
	verAckReceived int32 // atomic bool

	protocolVersion uint32
	services        wire.ServiceFlag
	userAgent       string
	lastBlock       int32
	sendHeaders     bool
	witnessEnabled  bool
	disableRelayTx  bool

	feeFilterMu sync.Mutex
	feeFilter   int64

	filterMu sync.Mutex
	filter   bloom.Filter

	knownInventory *lru.Cache[wire.InvVect, struct{}]

	outputQueue    chan outMsg
	sendQueue      chan outMsg
	sendDoneQueue  chan struct{}
	outputInvChan  chan *wire.InvVect
	inQuit         chan struct{}
	queueQuit      chan struct{}
	outQuit        chan struct{}
	quit           chan struct{}
	wg             sync.WaitGroup

	stallControl chan stallControlMsg

	lastPingNonce uint64
	lastPingTime  time.Time
	lastPingMicros int64

	banScore uint32
}

type stallControlCmd uint8

const (
	sccSendMessage stallControlCmd = iota
	sccReceiveMessage
	sccHandlerStart
	sccHandlerDone
)

type stallControlMsg struct {
	command stallControlCmd
	message wire.Message
}

// ID returns the peer's unique identifier within the owning process.
func (p *Peer) ID() int32 { return p.id }

// Addr returns the peer's remote address string.
func (p *Peer) Addr() string { return p.addr }

// Inbound reports whether the connection was accepted rather than dialed.
func (p *Peer) Inbound() bool { return p.inbound }

// Services returns the service flags the peer advertised in its version.
func (p *Peer) Services() wire.ServiceFlag { return wire.ServiceFlag(atomic.LoadUint64((*uint64)(&p.services))) }

// UserAgent returns the peer's advertised user agent string.
func (p *Peer) UserAgent() string { return p.userAgent }

// LastBlock returns the height the peer advertised in its version message.
func (p *Peer) LastBlock() int32 { return atomic.LoadInt32(&p.lastBlock) }

// VersionKnown reports whether the peer's version message has been
// processed.
func (p *Peer) VersionKnown() bool { return atomic.LoadInt32(&p.versionKnown) != 0 }

// VerAckReceived reports whether the peer's verack has arrived.
func (p *Peer) VerAckReceived() bool { return atomic.LoadInt32(&p.verAckReceived) != 0 }

// ProtocolVersion returns the negotiated protocol version (the lower of
// ours and theirs).
func (p *Peer) ProtocolVersion() uint32 { return atomic.LoadUint32(&p.protocolVersion) }

// SendHeadersPreferred reports whether the peer asked for header-only
// block announcements (BIP130).
func (p *Peer) SendHeadersPreferred() bool { return p.sendHeaders }

// WitnessEnabled reports whether the peer advertised SFNodeWitness.
func (p *Peer) WitnessEnabled() bool { return p.witnessEnabled }

// BytesSent returns the total bytes written to the connection so far.
func (p *Peer) BytesSent() uint64 { return atomic.LoadUint64(&p.bytesSent) }

// BytesReceived returns the total bytes read from the connection so far.
func (p *Peer) BytesReceived() uint64 { return atomic.LoadUint64(&p.bytesReceived) }

// LastSend returns the time of the most recent successful write.
func (p *Peer) LastSend() time.Time { return time.Unix(0, atomic.LoadInt64(&p.lastSend)) }

// LastRecv returns the time of the most recent successful read.
func (p *Peer) LastRecv() time.Time { return time.Unix(0, atomic.LoadInt64(&p.lastRecv)) }

// TimeConnected returns when the connection was established.
func (p *Peer) TimeConnected() time.Time { return p.timeConnected }

// TimeOffset returns the peer-reported clock offset from our own clock,
// seconds, as sampled from its version message.
func (p *Peer) TimeOffset() int64 { return atomic.LoadInt64(&p.timeOffset) }

// BanScore returns the peer's current accumulated misbehavior score.
func (p *Peer) BanScore() uint32 { return atomic.LoadUint32(&p.banScore) }

// String renders an identifying label for logs.
func (p *Peer) String() string {
	dir := "outbound"
	if p.inbound {
		dir = "inbound"
	}
	return fmt.Sprintf("%s (%s)", p.addr, dir)
}

// AddKnownInventory records invVect as something this peer already knows
// about, suppressing a future redundant inv/getdata round trip.
func (p *Peer) AddKnownInventory(invVect *wire.InvVect) {
	p.knownInventory.Add(*invVect, struct{}{})
}

// knowsInventory reports whether invVect was previously recorded via
// AddKnownInventory.
func (p *Peer) knowsInventory(invVect *wire.InvVect) bool {
	return p.knownInventory.Contains(*invVect)
}

// SetFeeFilter records the minimum relay fee rate (satoshis per 1000
// bytes) the remote asked us to honor (BIP133).
func (p *Peer) SetFeeFilter(rate int64) {
	p.feeFilterMu.Lock()
	p.feeFilter = rate
	p.feeFilterMu.Unlock()
}

// FeeFilter returns the minimum relay fee rate currently requested by the
// remote peer, or 0 if none was set.
func (p *Peer) FeeFilter() int64 {
	p.feeFilterMu.Lock()
	defer p.feeFilterMu.Unlock()
	return p.feeFilter
}

// SetFilter installs f as the bloom filter this peer's relay path must
// consult before sending a transaction or merkleblock in place of a full
// block (BIP37). Passing nil (or bloom.NullFilter()) returns to unfiltered
// relay.
func (p *Peer) SetFilter(f bloom.Filter) {
	p.filterMu.Lock()
	if f == nil {
		f = bloom.NullFilter()
	}
	p.filter = f
	p.filterMu.Unlock()
}

// Filter returns the currently installed bloom filter, never nil.
func (p *Peer) Filter() bloom.Filter {
	p.filterMu.Lock()
	defer p.filterMu.Unlock()
	if p.filter == nil {
		return bloom.NullFilter()
	}
	return p.filter
}

// AddBanScore reports a misbehavior of the given persistent/transient
// weight to the pool that owns this peer's ban accounting. The peer holds
// no ban table itself: it only forwards the event.
func (p *Peer) AddBanScore(persistent, transient uint32, reason string) {
	atomic.AddUint32(&p.banScore, persistent+transient)
	if p.cfg.AddBanScore != nil {
		p.cfg.AddBanScore(p, persistent, transient, reason)
	}
}

// PushRejectMsg queues a reject message naming cmd/code/hash, optionally
// blocking until it is written (used right before a Disconnect so the
// remote learns why).
func (p *Peer) PushRejectMsg(cmd string, code wire.RejectCode, reason string, hash *chainhash.Hash, wait bool) {
	msg := wire.NewMsgReject(cmd, code, reason)
	if hash != nil {
		msg.Hash = *hash
	}
	if !wait {
		p.QueueMessage(msg, nil)
		return
	}
	doneChan := make(chan struct{}, 1)
	p.QueueMessage(msg, doneChan)
	select {
	case <-doneChan:
	case <-p.quit:
	}
}

// PushGetHeadersMsg queues a getheaders request built from locator,
// stopping at hashStop (all-zero for "as many as fit").
func (p *Peer) PushGetHeadersMsg(locator []*chainhash.Hash, hashStop *chainhash.Hash) error {
	msg := wire.NewMsgGetHeaders(hashStop)
	for _, hash := range locator {
		if err := msg.AddBlockLocatorHash(hash); err != nil {
			return err
		}
	}
	p.QueueMessage(msg, nil)
	return nil
}

// PushGetBlocksMsg queues a getblocks request built from locator, stopping
// at hashStop.
func (p *Peer) PushGetBlocksMsg(locator []*chainhash.Hash, hashStop *chainhash.Hash) error {
	msg := wire.NewMsgGetBlocks(hashStop)
	for _, hash := range locator {
		if err := msg.AddBlockLocatorHash(hash); err != nil {
			return err
		}
	}
	p.QueueMessage(msg, nil)
	return nil
}

// PushAddrMsg queues as many of addresses as fit in a single addr message,
// returning the ones actually sent.
func (p *Peer) PushAddrMsg(addresses []*wire.NetAddress) []*wire.NetAddress {
	msg := wire.NewMsgAddr()
	sent := make([]*wire.NetAddress, 0, len(addresses))
	for _, na := range addresses {
		if err := msg.AddAddress(na); err != nil {
			break
		}
		sent = append(sent, na)
	}
	p.QueueMessage(msg, nil)
	return sent
}

// localVersionMsg builds this side's version message (sent first on an
// outbound connection, second on an inbound one).
func (p *Peer) localVersionMsg() (*wire.MsgVersion, error) {
	var blockHeight int32
	if p.cfg.NewestBlock != nil {
		_, height, err := p.cfg.NewestBlock()
		if err != nil {
			return nil, err
		}
		blockHeight = height
	}

	theirNA := p.na
	if theirNA == nil {
		theirNA = &wire.NetAddress{}
	}

	ourNA := &wire.NetAddress{Services: p.cfg.Services}

	nonce, err := randomUint64()
	if err != nil {
		return nil, err
	}

	msg := wire.NewMsgVersion(ourNA, theirNA, nonce, blockHeight)
	msg.Timestamp = time.Now().Unix()
	msg.Services = p.cfg.Services
	msg.ProtocolVersion = int32(p.cfg.ProtocolVersion)
	msg.DisableRelayTx = p.cfg.DisableRelayTx
	if p.cfg.UserAgentName != "" {
		msg.AddUserAgent(p.cfg.UserAgentName, p.cfg.UserAgentVersion)
	}
	return msg, nil
}

// randomUint64 returns a cryptographically-irrelevant random nonce, used
// for the version message nonce and ping round-trip identification.
func randomUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(cryptoRandReader, b[:]); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// handleRemoteVersionMsg records what the remote told us about itself and
// queues a verack. Only a repeated version message is rejected; the
// remote's nonce and protocol version are not checked.
func (p *Peer) handleRemoteVersionMsg(msg *wire.MsgVersion) error {
	if atomic.SwapInt32(&p.versionKnown, 1) != 0 {
		p.AddBanScore(BanScoreDuplicateVersion, 0, "duplicate version message")
		return errors.New("duplicate version message")
	}

	atomic.StoreUint32(&p.protocolVersion, minUint32(p.cfg.ProtocolVersion, uint32(msg.ProtocolVersion)))
	p.services = msg.Services
	p.userAgent = msg.UserAgent
	atomic.StoreInt32(&p.lastBlock, msg.LastBlock)
	atomic.StoreInt64(&p.timeOffset, msg.Timestamp-time.Now().Unix())
	p.disableRelayTx = msg.DisableRelayTx
	p.witnessEnabled = msg.Services&wire.SFNodeWitness == wire.SFNodeWitness

	p.QueueMessage(&wire.MsgVerAck{}, nil)
	return nil
}

// handlePingMsg answers a ping with a pong echoing its nonce.
func (p *Peer) handlePingMsg(msg *wire.MsgPing) {
	p.QueueMessage(&wire.MsgPong{Nonce: msg.Nonce}, nil)
}

// handlePongMsg records the round trip time for an outstanding ping.
func (p *Peer) handlePongMsg(msg *wire.MsgPong) {
	if p.lastPingNonce != 0 && msg.Nonce == p.lastPingNonce {
		p.lastPingMicros = time.Since(p.lastPingTime).Microseconds()
		p.lastPingNonce = 0
	}
}

// readMessage reads and decodes one message, tracking the bytes consumed
// (header plus payload, since wire.ReadMessage reports only the payload).
func (p *Peer) readMessage() (wire.Message, []byte, error) {
	msg, buf, err := wire.ReadMessage(p.conn, p.ProtocolVersion(), p.cfg.ChainParams.Net)
	n := len(buf) + 24
	atomic.AddUint64(&p.bytesReceived, uint64(n))
	if p.cfg.Listeners.OnRead != nil {
		p.cfg.Listeners.OnRead(p, n, msg, err)
	}
	if err != nil {
		return nil, nil, err
	}
	atomic.StoreInt64(&p.lastRecv, time.Now().UnixNano())
	return msg, buf, nil
}

// writeMessage encodes and sends msg, tracking bytes written.
func (p *Peer) writeMessage(msg wire.Message) error {
	var counting countingWriter
	counting.w = p.conn
	err := wire.WriteMessage(&counting, msg, p.ProtocolVersion(), p.cfg.ChainParams.Net)
	if p.cfg.Listeners.OnWrite != nil {
		p.cfg.Listeners.OnWrite(p, counting.n, msg, err)
	}
	if err != nil {
		return err
	}
	atomic.AddUint64(&p.bytesSent, uint64(counting.n))
	atomic.StoreInt64(&p.lastSend, time.Now().UnixNano())
	return nil
}

// countingWriter wraps an io.Writer to tally bytes written, letting
// writeMessage report the full framed size (header+payload) wire.WriteMessage
// itself does not return.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// inHandler is the single goroutine that reads from the connection and
// dispatches each decoded message to the matching Config.Listeners
// callback. It exits on any read error or when the peer is disconnected.
func (p *Peer) inHandler() {
	defer p.wg.Done()

	idleTimer := time.AfterFunc(idleTimeout, func() {
		log.Warnf("peer %s has been idle for %s, disconnecting", p, idleTimeout)
		p.Disconnect()
	})

out:
	for atomic.LoadInt32(&p.disconnect) == 0 {
		msg, buf, err := p.readMessage()
		idleTimer.Reset(idleTimeout)
		if err != nil {
			if atomic.LoadInt32(&p.disconnect) != 0 {
				break out
			}
			log.Errorf("failed to read message from %s: %v", p, err)
			break out
		}

		select {
		case p.stallControl <- stallControlMsg{command: sccReceiveMessage, message: msg}:
		default:
		}

		switch m := msg.(type) {
		case *wire.MsgVersion:
			if err := p.handleRemoteVersionMsg(m); err != nil {
				log.Errorf("version negotiation with %s failed: %v", p, err)
				break out
			}
			if p.cfg.Listeners.OnVersion != nil {
				p.cfg.Listeners.OnVersion(p, m)
			}
		case *wire.MsgVerAck:
			if atomic.SwapInt32(&p.verAckReceived, 1) != 0 {
				p.AddBanScore(BanScoreDuplicateVerAck, 0, "duplicate verack")
				break
			}
			if p.cfg.Listeners.OnVerAck != nil {
				p.cfg.Listeners.OnVerAck(p, m)
			}
		case *wire.MsgPing:
			p.handlePingMsg(m)
		case *wire.MsgPong:
			p.handlePongMsg(m)
		case *wire.MsgGetAddr:
			if p.cfg.Listeners.OnGetAddr != nil {
				p.cfg.Listeners.OnGetAddr(p, m)
			}
		case *wire.MsgAddr:
			if p.cfg.Listeners.OnAddr != nil {
				p.cfg.Listeners.OnAddr(p, m)
			}
		case *wire.MsgInv:
			if p.cfg.Listeners.OnInv != nil {
				p.cfg.Listeners.OnInv(p, m)
			}
		case *wire.MsgGetData:
			if p.cfg.Listeners.OnGetData != nil {
				p.cfg.Listeners.OnGetData(p, m)
			}
		case *wire.MsgNotFound:
			if p.cfg.Listeners.OnNotFound != nil {
				p.cfg.Listeners.OnNotFound(p, m)
			}
		case *wire.MsgGetBlocks:
			if p.cfg.Listeners.OnGetBlocks != nil {
				p.cfg.Listeners.OnGetBlocks(p, m)
			}
		case *wire.MsgGetHeaders:
			if p.cfg.Listeners.OnGetHeaders != nil {
				p.cfg.Listeners.OnGetHeaders(p, m)
			}
		case *wire.MsgHeaders:
			if p.cfg.Listeners.OnHeaders != nil {
				p.cfg.Listeners.OnHeaders(p, m)
			}
		case *wire.MsgTx:
			if p.cfg.Listeners.OnTx != nil {
				p.cfg.Listeners.OnTx(p, m)
			}
		case *wire.MsgBlock:
			if p.cfg.Listeners.OnBlock != nil {
				p.cfg.Listeners.OnBlock(p, m, buf)
			}
		case *wire.MsgMerkleBlock:
			if p.cfg.Listeners.OnMerkleBlock != nil {
				p.cfg.Listeners.OnMerkleBlock(p, m)
			}
		case *wire.MsgMemPool:
			if p.cfg.Listeners.OnMemPool != nil {
				p.cfg.Listeners.OnMemPool(p, m)
			}
		case *wire.MsgFilterLoad:
			p.SetFilter(nil) // replaced below once the owner decodes Filter bytes
			if p.cfg.Listeners.OnFilterLoad != nil {
				p.cfg.Listeners.OnFilterLoad(p, m)
			}
		case *wire.MsgFilterAdd:
			if p.cfg.Listeners.OnFilterAdd != nil {
				p.cfg.Listeners.OnFilterAdd(p, m)
			}
		case *wire.MsgFilterClear:
			p.SetFilter(nil)
			if p.cfg.Listeners.OnFilterClear != nil {
				p.cfg.Listeners.OnFilterClear(p, m)
			}
		case *wire.MsgReject:
			if p.cfg.Listeners.OnReject != nil {
				p.cfg.Listeners.OnReject(p, m)
			}
		case *wire.MsgSendHeaders:
			p.sendHeaders = true
			if p.cfg.Listeners.OnSendHeaders != nil {
				p.cfg.Listeners.OnSendHeaders(p, m)
			}
		case *wire.MsgFeeFilter:
			if m.MinFee < 0 {
				p.AddBanScore(BanScoreMalformedMessage, 0, "negative feefilter rate")
				break out
			}
			p.SetFeeFilter(m.MinFee)
			if p.cfg.Listeners.OnFeeFilter != nil {
				p.cfg.Listeners.OnFeeFilter(p, m)
			}
		case *wire.MsgSendCmpct:
			if p.cfg.Listeners.OnSendCmpct != nil {
				p.cfg.Listeners.OnSendCmpct(p, m)
			}
		default:
			log.Debugf("received unhandled message of type %T from %s", msg, p)
		}
	}

	idleTimer.Stop()
	close(p.inQuit)
}
