// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dworznik/bcoin/blockchain"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/peer"
	"github.com/dworznik/bcoin/wire"
)

// peerState is everything the manager tracks about one connected peer
// beyond what peer.Peer itself exposes.
type peerState struct {
	peer *peer.Peer
	addr string
}

// Manager is the sync driver: it owns the peer set, the loader-peer
// designation, in-flight request bookkeeping, and the connect loop.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	peers   map[int32]*peerState
	loader  *peer.Peer

	outboundCount int32

	requests    *requestTracker
	orphans     *orphanFlood
	misbehavior *misbehaving
	broadcasts  *broadcastTable

	quit chan struct{}
	wg   sync.WaitGroup
}

// New builds a Manager from cfg. Call Start to begin connecting.
func New(cfg *Config) *Manager {
	m := &Manager{
		cfg:         *cfg,
		peers:       make(map[int32]*peerState),
		requests:    newRequestTracker(),
		orphans:     newOrphanFlood(),
		misbehavior: newMisbehaving(),
		broadcasts:  newBroadcastTable(),
		quit:        make(chan struct{}),
	}
	cfg.Chain.Subscribe(m.handleChainNotification)
	return m
}

// Start launches the connect loop, the optional accept loop, and the
// periodic timeout sweeper.
func (m *Manager) Start() error {
	m.wg.Add(2)
	go m.connectLoop()
	go m.timeoutLoop()

	if m.cfg.Listen != "" {
		ln, err := net.Listen("tcp", m.cfg.Listen)
		if err != nil {
			return err
		}
		m.wg.Add(1)
		go m.acceptLoop(ln)
	}
	return nil
}

// Stop signals every goroutine to exit and disconnects all peers.
func (m *Manager) Stop() {
	close(m.quit)
	m.mu.Lock()
	for _, ps := range m.peers {
		ps.peer.Disconnect()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) hasOutbound(addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ps := range m.peers {
		if !ps.peer.Inbound() && ps.addr == addr {
			return true
		}
	}
	return false
}

func (m *Manager) peerConfig() *peer.Config {
	return &peer.Config{
		NewestBlock: func() (*wire.BlockHeader, int32, error) {
			tip := m.cfg.Chain.Tip()
			if tip == nil {
				return nil, 0, nil
			}
			return &tip.Header, tip.Height, nil
		},
		ChainParams:      m.cfg.ChainParams,
		Services:         wire.SFNodeNetwork,
		ProtocolVersion:  wire.ProtocolVersion,
		UserAgentName:    m.cfg.UserAgentName,
		UserAgentVersion: m.cfg.UserAgentVersion,
		DisableRelayTx:   m.cfg.DisableRelayTx,
		Proxy:            m.cfg.Proxy,
		AddBanScore:      m.addBanScore,
		Listeners: peer.MessageListeners{
			OnVerAck:     m.onVerAck,
			OnGetAddr:    m.onGetAddr,
			OnAddr:       m.onAddr,
			OnInv:        m.onInv,
			OnGetData:    m.onGetData,
			OnNotFound:   m.onNotFound,
			OnGetBlocks:  m.onGetBlocks,
			OnGetHeaders: m.onGetHeaders,
			OnHeaders:    m.onHeaders,
			OnTx:         m.onTx,
			OnBlock:      m.onBlock,
			OnMemPool:    m.onMemPool,
			OnReject:     m.onReject,
			OnFeeFilter:  m.onFeeFilter,
			OnSendCmpct:  m.onSendCmpct,
		},
	}
}

func (m *Manager) handleOutboundConnection(addr string, conn net.Conn) {
	p, err := peer.NewOutboundPeer(m.peerConfig(), addr)
	if err != nil {
		conn.Close()
		return
	}
	if err := p.AssociateConnection(conn); err != nil {
		return
	}
	atomic.AddInt32(&m.outboundCount, 1)
	isLoader := m.registerPeer(p, addr)
	p.QueueMessage(&wire.MsgSendCmpct{Announce: false, Version: 1}, nil)
	if isLoader {
		m.startSyncIfNeeded(p)
	}

	p.WaitForDisconnect()
	atomic.AddInt32(&m.outboundCount, -1)
	m.unregisterPeer(p)
}

func (m *Manager) handleInboundConnection(conn net.Conn) {
	addr := conn.RemoteAddr().String()
	host, _, _ := net.SplitHostPort(addr)
	if m.misbehavior.isBanned(host) {
		conn.Close()
		return
	}

	m.mu.Lock()
	tooMany := len(m.peers) >= m.cfg.MaxPeers
	m.mu.Unlock()
	if tooMany {
		conn.Close()
		return
	}

	p := peer.NewInboundPeer(m.peerConfig())
	if err := p.AssociateConnection(conn); err != nil {
		return
	}
	isLoader := m.registerPeer(p, addr)
	p.QueueMessage(&wire.MsgSendCmpct{Announce: false, Version: 1}, nil)
	if isLoader {
		m.startSyncIfNeeded(p)
	}

	p.WaitForDisconnect()
	m.unregisterPeer(p)
}

// registerPeer adds p to the peer set, promoting it to loader if there is
// none yet, and reports whether it became the loader.
func (m *Manager) registerPeer(p *peer.Peer, addr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[p.ID()] = &peerState{peer: p, addr: addr}
	if m.loader == nil {
		m.loader = p
		return true
	}
	return false
}

func (m *Manager) unregisterPeer(p *peer.Peer) {
	m.mu.Lock()
	delete(m.peers, p.ID())
	if m.loader == p {
		m.loader = nil
		for _, ps := range m.peers {
			m.loader = ps.peer
			break
		}
	}
	m.mu.Unlock()

	m.requests.releasePeer(p)
	m.orphans.forget(p)
	if p.BanScore() < banThreshold {
		host, _, _ := net.SplitHostPort(p.Addr())
		m.misbehavior.forget(host)
	}
	if m.loader != nil {
		m.startSyncIfNeeded(m.loader)
	}
}

// addBanScore is wired as peer.Config.AddBanScore: it forwards every strike
// into the manager's ban table and disconnects the peer once it crosses
// banThreshold.
func (m *Manager) addBanScore(p *peer.Peer, persistent, transient uint32, reason string) {
	host, _, _ := net.SplitHostPort(p.Addr())
	if host == "" {
		host = p.Addr()
	}
	_, banned := m.misbehavior.add(host, persistent, transient, reason)
	if banned {
		p.Disconnect()
	}
}

// startSyncIfNeeded asks p (the loader peer) for headers from our current
// tip, headers-first.
func (m *Manager) startSyncIfNeeded(p *peer.Peer) {
	locator, err := m.cfg.Chain.GetLocator()
	if err != nil {
		log.Errorf("GetLocator: %v", err)
		return
	}
	if err := p.PushGetHeadersMsg(locator, &chainhash.Hash{}); err != nil {
		log.Errorf("PushGetHeadersMsg to %s: %v", p, err)
	}
}

// timeoutLoop periodically drops requests that blew through
// requestTimeout and gives each one's peer a transient stall score.
func (m *Manager) timeoutLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(requestTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, req := range m.requests.expired(time.Now()) {
				log.Debugf("request for %s to %s timed out", req.hash, req.peer)
				req.peer.AddBanScore(0, peer.BanScoreStallTimeout, "getdata timeout")
			}
		case <-m.quit:
			return
		}
	}
}

// Broadcast announces data (a block or transaction) to every connected
// peer and returns a BroadcastItem the caller can wait on for an ack,
// reject, or timeout.
func (m *Manager) Broadcast(iv *wire.InvVect, data interface{}) *BroadcastItem {
	item := m.broadcasts.register(iv, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ps := range m.peers {
		ps.peer.QueueInventory(iv)
	}
	return item
}

// Wait blocks until item is acked, rejected, or times out.
func (item *BroadcastItem) Wait() BroadcastResult {
	return <-item.done
}

// handleChainNotification relays the chain engine's connect/disconnect
// events into the mempool and out to the network. It runs synchronously
// on whatever goroutine called
// Chain.Add, with Chain's writer lock held, so it must never call back into
// a Chain method that also takes that lock (Add, Reset); reading through
// Store() is fine.
func (m *Manager) handleChainNotification(n *blockchain.Notification) {
	entry, ok := n.Data.(*chainstore.ChainEntry)
	if !ok {
		return
	}
	hash := entry.Hash()

	switch n.Type {
	case blockchain.NTBlockConnected:
		block, err := m.cfg.Chain.Store().Block(&hash)
		if err != nil {
			log.Errorf("fetching connected block %s: %v", hash, err)
			return
		}
		if m.cfg.Mempool != nil {
			m.cfg.Mempool.ProcessBlockConnected(block)
		}
		m.Broadcast(wire.NewInvVect(wire.InvTypeBlock, &hash), block)

	case blockchain.NTBlockDisconnected:
		block, err := m.cfg.Chain.Store().Block(&hash)
		if err != nil {
			log.Errorf("fetching disconnected block %s: %v", hash, err)
			return
		}
		if m.cfg.Mempool != nil {
			m.cfg.Mempool.ProcessBlockDisconnected(block)
		}
	}
}
