// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"errors"
	"time"

	"github.com/dworznik/bcoin/blockchain"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/mempool"
	"github.com/dworznik/bcoin/peer"
	"github.com/dworznik/bcoin/wire"
)

func (m *Manager) onVerAck(p *peer.Peer, msg *wire.MsgVerAck) {
	p.QueueMessage(&wire.MsgGetAddr{}, nil)
}

func (m *Manager) onGetAddr(p *peer.Peer, msg *wire.MsgGetAddr) {
	// Address-book persistence and gossip are out of scope; there is
	// nothing to answer with yet.
	p.PushAddrMsg(nil)
}

func (m *Manager) onAddr(p *peer.Peer, msg *wire.MsgAddr) {
	// Address-book persistence is out of scope; addresses arrive here for
	// observability only.
}

func (m *Manager) onInv(p *peer.Peer, msg *wire.MsgInv) {
	getData := wire.NewMsgGetData()
	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeTx, wire.InvTypeWitnessTx:
			if iv.Type == wire.InvTypeWitnessTx && !p.WitnessEnabled() {
				p.AddBanScore(peer.BanScoreWitnessMaskFromNonWitnessPeer, 0, "witness inv from non-witness peer")
				return
			}
			m.broadcasts.ack(iv)
			if m.cfg.Mempool.HaveTransaction(iv.Hash) {
				continue
			}
			if !m.requests.tryStart(iv.Hash, loadTx, p) {
				continue
			}
			getData.AddInvVect(iv)
			p.AddKnownInventory(iv)

		case wire.InvTypeBlock, wire.InvTypeWitnessBlock:
			if iv.Type == wire.InvTypeWitnessBlock && !p.WitnessEnabled() {
				p.AddBanScore(peer.BanScoreWitnessMaskFromNonWitnessPeer, 0, "witness inv from non-witness peer")
				return
			}
			m.broadcasts.ack(iv)
			if m.cfg.Chain.IsKnownOrphan(&iv.Hash) {
				continue
			}
			if _, err := m.cfg.Chain.Store().Entry(&iv.Hash); err == nil {
				continue
			}
			if !m.requests.tryStart(iv.Hash, loadBlock, p) {
				continue
			}
			getData.AddInvVect(iv)
			p.AddKnownInventory(iv)
		}
	}
	if len(getData.InvList) > 0 {
		p.QueueMessage(getData, nil)
	}
}

func (m *Manager) onGetData(p *peer.Peer, msg *wire.MsgGetData) {
	notFound := wire.NewMsgNotFound()
	for _, iv := range msg.InvList {
		switch iv.Type {
		case wire.InvTypeTx, wire.InvTypeWitnessTx:
			tx, ok := m.cfg.Mempool.FetchTransaction(iv.Hash)
			if !ok {
				notFound.AddInvVect(iv)
				continue
			}
			p.QueueMessage(tx, nil)

		case wire.InvTypeBlock, wire.InvTypeWitnessBlock:
			block, err := m.cfg.Chain.Store().Block(&iv.Hash)
			if err != nil {
				notFound.AddInvVect(iv)
				continue
			}
			p.QueueMessage(block, nil)
		}
	}
	if len(notFound.InvList) > 0 {
		p.QueueMessage(notFound, nil)
	}
}

func (m *Manager) onNotFound(p *peer.Peer, msg *wire.MsgNotFound) {
	for _, iv := range msg.InvList {
		m.requests.finish(iv.Hash)
	}
}

func (m *Manager) onGetBlocks(p *peer.Peer, msg *wire.MsgGetBlocks) {
	// Incoming getblocks requests are not served and get no reply. This
	// driver itself sends getblocks only from onBlock, to ask for an orphan
	// block's missing ancestors.
}

func (m *Manager) onGetHeaders(p *peer.Peer, msg *wire.MsgGetHeaders) {
	tip := m.cfg.Chain.Tip()
	if tip == nil {
		return
	}
	hash := tip.Hash()
	var chain []*wire.BlockHeader
	for i := 0; i < wire.MaxBlockHeadersPerMsg; i++ {
		entry, err := m.cfg.Chain.Store().Entry(&hash)
		if err != nil {
			break
		}
		found := len(msg.BlockLocatorHashes) == 0
		for _, loc := range msg.BlockLocatorHashes {
			if *loc == hash {
				found = true
				break
			}
		}
		if found {
			break
		}
		chain = append(chain, &entry.Header)
		hash = entry.Header.PrevBlock
	}

	headers := wire.NewMsgHeaders()
	for i := len(chain) - 1; i >= 0; i-- {
		if err := headers.AddBlockHeader(chain[i]); err != nil {
			break
		}
	}
	if len(headers.Headers) > 0 {
		p.QueueMessage(headers, nil)
	}
}

func (m *Manager) onHeaders(p *peer.Peer, msg *wire.MsgHeaders) {
	if len(msg.Headers) == 0 {
		return
	}
	getData := wire.NewMsgGetData()
	for i, bh := range msg.Headers {
		hash := bh.BlockHash()
		if _, err := m.cfg.Chain.Store().Entry(&hash); err == nil {
			continue
		}
		if i >= maxBlocksPerGetData {
			break
		}
		if !m.requests.tryStart(hash, loadBlock, p) {
			continue
		}
		getData.AddInvVect(wire.NewInvVect(wire.InvTypeBlock, &hash))
	}
	if len(getData.InvList) > 0 {
		p.QueueMessage(getData, nil)
	}

	if len(msg.Headers) == wire.MaxBlockHeadersPerMsg {
		lastHash := msg.Headers[len(msg.Headers)-1].BlockHash()
		p.PushGetHeadersMsg([]*chainhash.Hash{&lastHash}, &chainhash.Hash{})
	}
}

func (m *Manager) onTx(p *peer.Peer, msg *wire.MsgTx) {
	hash := msg.TxHash()
	m.requests.finish(hash)

	_, err := m.cfg.Mempool.AddTransaction(msg, false, true)
	if err == nil {
		m.Broadcast(wire.NewInvVect(wire.InvTypeTx, &hash), msg)
		return
	}

	code, ok := mempool.RejectCodeOf(err)
	if !ok {
		return
	}
	score := (mempool.TxRuleError{RejectCode: code}).Score()
	if score < 0 {
		return
	}
	if score > 0 {
		p.AddBanScore(uint32(score), 0, err.Error())
	}
	p.PushRejectMsg(wire.CmdTx, wire.RejectCode(code), err.Error(), &hash, false)
}

func (m *Manager) onBlock(p *peer.Peer, msg *wire.MsgBlock, buf []byte) {
	hash := msg.BlockHash()
	m.requests.finish(hash)

	outcome, err := m.cfg.Chain.Add(msg)
	if err != nil {
		var ruleErr blockchain.RuleError
		if errors.As(err, &ruleErr) {
			if score := ruleErr.Score(); score > 0 {
				p.AddBanScore(uint32(score), 0, err.Error())
			}
		}
		log.Errorf("rejecting block %s from %s: %v", hash, p, err)
		return
	}

	switch outcome {
	case blockchain.Orphaned:
		if m.orphans.record(p, time.Now()) {
			p.AddBanScore(peer.BanScoreOrphanFlood, 0, "orphan flood")
			return
		}
		root := m.cfg.Chain.GetOrphanRoot(&hash)
		locator, lerr := m.cfg.Chain.GetLocator()
		if lerr == nil {
			p.PushGetBlocksMsg(locator, root)
		}
	case blockchain.Connected:
		// handleChainNotification, subscribed to Chain's own
		// NTBlockConnected event, relays this block; broadcasting it here
		// too would just double the inv announcement.
	case blockchain.SideBranch:
		m.Broadcast(wire.NewInvVect(wire.InvTypeBlock, &hash), msg)
	case blockchain.AlreadyKnown:
	}
}

func (m *Manager) onMemPool(p *peer.Peer, msg *wire.MsgMemPool) {
	inv := wire.NewMsgInv()
	for _, hash := range m.cfg.Mempool.TxHashes() {
		h := hash
		if err := inv.AddInvVect(wire.NewInvVect(wire.InvTypeTx, &h)); err != nil {
			break
		}
	}
	if len(inv.InvList) > 0 {
		p.QueueMessage(inv, nil)
	}
}

func (m *Manager) onReject(p *peer.Peer, msg *wire.MsgReject) {
	switch msg.Cmd {
	case wire.CmdTx:
		m.broadcasts.reject(wire.InvTypeTx, msg)
	case wire.CmdBlock:
		m.broadcasts.reject(wire.InvTypeBlock, msg)
	}
}

func (m *Manager) onFeeFilter(p *peer.Peer, msg *wire.MsgFeeFilter) {
	// peer.Peer.SetFeeFilter already recorded the rate; nothing further to
	// do here until relay code consults p.FeeFilter() before announcing.
}

func (m *Manager) onSendCmpct(p *peer.Peer, msg *wire.MsgSendCmpct) {
	// Compact-block relay is not implemented; this node already sent its
	// own sendcmpct(false, 1) when the connection was registered.
}
