// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/btcsuite/go-socks/socks"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dworznik/bcoin/wire"
)

// NewInboundPeer returns a new peer wrapping an already-accepted
// connection, ready to have AssociateConnection called on it.
func NewInboundPeer(cfg *Config) *Peer {
	return newPeerBase(cfg, true)
}

// NewOutboundPeer returns a new peer for addr, ready to be dialed via
// Connect. addr is validated but not yet connected.
func NewOutboundPeer(cfg *Config, addr string) (*Peer, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, err
	}

	p := newPeerBase(cfg, false)
	p.addr = addr

	if cfg.HostToNetAddress != nil {
		na, err := cfg.HostToNetAddress(host, uint16(port), 0)
		if err != nil {
			return nil, err
		}
		p.na = na
	} else {
		ip := net.ParseIP(host)
		p.na = wire.NewNetAddressIPPort(ip, uint16(port), 0)
	}
	return p, nil
}

func newPeerBase(cfg *Config, inbound bool) *Peer {
	knownInv, _ := lru.New[wire.InvVect, struct{}](maxKnownInventory)
	return &Peer{
		id:              atomic.AddInt32(&nextPeerID, 1),
		inbound:         inbound,
		cfg:             *cfg,
		protocolVersion: cfg.ProtocolVersion,
		knownInventory:  knownInv,
		filter:          nil,
		outputQueue:     make(chan outMsg, outputBufferSize),
		sendQueue:       make(chan outMsg, 1),
		sendDoneQueue:   make(chan struct{}, 1),
		outputInvChan:   make(chan *wire.InvVect, outputBufferSize),
		inQuit:          make(chan struct{}),
		queueQuit:       make(chan struct{}),
		outQuit:         make(chan struct{}),
		quit:            make(chan struct{}),
		stallControl:    make(chan stallControlMsg, 1),
	}
}

// Connect dials addr and performs the outbound handshake.
func (p *Peer) Connect() error {
	if p.inbound {
		return errors.New("Connect called on an inbound peer")
	}
	dialer := net.Dialer{Timeout: negotiateTimeout}
	var conn net.Conn
	var err error
	if p.cfg.Proxy != "" {
		proxy := &socks.Proxy{Addr: p.cfg.Proxy}
		conn, err = proxy.Dial("tcp", p.addr)
	} else {
		conn, err = dialer.Dial("tcp", p.addr)
	}
	if err != nil {
		return err
	}
	return p.AssociateConnection(conn)
}

// AssociateConnection binds conn to the peer and starts its goroutines,
// performing the handshake first.
func (p *Peer) AssociateConnection(conn net.Conn) error {
	if !atomic.CompareAndSwapInt32(&p.connected, 0, 1) {
		return errors.New("peer already connected")
	}
	p.conn = conn
	p.timeConnected = time.Now()

	var err error
	if p.inbound {
		err = p.negotiateInboundProtocol()
	} else {
		err = p.negotiateOutboundProtocol()
	}
	if err != nil {
		p.Disconnect()
		return err
	}

	p.wg.Add(5)
	go p.stallHandler()
	go p.inHandler()
	go p.queueHandler()
	go p.outHandler()
	go p.pingHandler()
	return nil
}

func (p *Peer) negotiateOutboundProtocol() error {
	localVer, err := p.localVersionMsg()
	if err != nil {
		return err
	}
	if err := p.writeMessage(localVer); err != nil {
		return err
	}
	return p.readRemoteVersionMsg()
}

func (p *Peer) negotiateInboundProtocol() error {
	if err := p.readRemoteVersionMsg(); err != nil {
		return err
	}
	localVer, err := p.localVersionMsg()
	if err != nil {
		return err
	}
	return p.writeMessage(localVer)
}

// readRemoteVersionMsg reads the handshake's version message (and only
// that message; anything else arriving first is a protocol violation).
func (p *Peer) readRemoteVersionMsg() error {
	p.conn.SetReadDeadline(time.Now().Add(negotiateTimeout))
	msg, _, err := p.readMessage()
	if err != nil {
		return err
	}
	vmsg, ok := msg.(*wire.MsgVersion)
	if !ok {
		return errors.Errorf("expected version message, got %T", msg)
	}
	if err := p.handleRemoteVersionMsg(vmsg); err != nil {
		return err
	}
	p.conn.SetReadDeadline(time.Time{})
	if p.cfg.Listeners.OnVersion != nil {
		p.cfg.Listeners.OnVersion(p, vmsg)
	}
	return nil
}

// Connected reports whether AssociateConnection has run and Disconnect has
// not.
func (p *Peer) Connected() bool {
	return atomic.LoadInt32(&p.connected) != 0 && atomic.LoadInt32(&p.disconnect) == 0
}

// Disconnect closes the connection and signals every goroutine to exit.
// Safe to call multiple times or concurrently.
func (p *Peer) Disconnect() {
	if !atomic.CompareAndSwapInt32(&p.disconnect, 0, 1) {
		return
	}
	if p.conn != nil {
		p.conn.Close()
	}
	close(p.quit)
}

// WaitForDisconnect blocks until the peer's goroutines have fully exited.
func (p *Peer) WaitForDisconnect() {
	p.wg.Wait()
}

// StatsSnapshot returns a copy of the peer's current statistics.
func (p *Peer) StatsSnapshot() *StatsSnap {
	return &StatsSnap{
		ID:              p.id,
		Addr:            p.addr,
		Services:        p.Services(),
		LastSend:        p.LastSend(),
		LastRecv:        p.LastRecv(),
		BytesSent:       p.BytesSent(),
		BytesRecv:       p.BytesReceived(),
		UserAgent:       p.UserAgent(),
		LastBlock:       p.LastBlock(),
		TimeOffset:      p.TimeOffset(),
		ProtocolVersion: p.ProtocolVersion(),
	}
}
