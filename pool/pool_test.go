// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"net"
	"testing"
	"time"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/peer"
	"github.com/dworznik/bcoin/wire"
)

func TestMisbehavingBansAtThreshold(t *testing.T) {
	m := newMisbehaving()
	if m.isBanned("1.2.3.4") {
		t.Fatal("fresh address must not start banned")
	}

	score, banned := m.add("1.2.3.4", 50, 0, "test")
	if banned || score != 50 {
		t.Fatalf("add() = (%d, %v), want (50, false)", score, banned)
	}
	if m.isBanned("1.2.3.4") {
		t.Fatal("address must not be banned before crossing the threshold")
	}

	score, banned = m.add("1.2.3.4", 50, 0, "test again")
	if !banned || score != 100 {
		t.Fatalf("add() = (%d, %v), want (100, true)", score, banned)
	}
	if !m.isBanned("1.2.3.4") {
		t.Fatal("address must be banned once its score reaches banThreshold")
	}
}

func TestMisbehavingForgetLeavesActiveBan(t *testing.T) {
	m := newMisbehaving()
	m.add("5.6.7.8", banThreshold, 0, "over the line")
	if !m.isBanned("5.6.7.8") {
		t.Fatal("expected the address to be banned")
	}
	m.forget("5.6.7.8")
	if !m.isBanned("5.6.7.8") {
		t.Fatal("forget must not lift an active ban")
	}
}

func TestRequestTrackerOnePerHash(t *testing.T) {
	tr := newRequestTracker()
	p1 := peer.NewInboundPeer(&peer.Config{})
	p2 := peer.NewInboundPeer(&peer.Config{})

	var hash chainhash.Hash
	hash[0] = 1

	if !tr.tryStart(hash, loadBlock, p1) {
		t.Fatal("first tryStart for a hash must succeed")
	}
	if tr.tryStart(hash, loadBlock, p2) {
		t.Fatal("a second tryStart for the same in-flight hash must fail")
	}

	tr.finish(hash)
	if !tr.tryStart(hash, loadBlock, p2) {
		t.Fatal("tryStart must succeed again once the request is finished")
	}
}

func TestRequestTrackerReleasePeer(t *testing.T) {
	tr := newRequestTracker()
	p := peer.NewInboundPeer(&peer.Config{})

	var h1, h2 chainhash.Hash
	h1[0], h2[0] = 1, 2
	tr.tryStart(h1, loadBlock, p)
	tr.tryStart(h2, loadTx, p)

	tr.releasePeer(p)

	other := peer.NewInboundPeer(&peer.Config{})
	if !tr.tryStart(h1, loadBlock, other) {
		t.Fatal("releasePeer must free h1 for another peer to request")
	}
	if !tr.tryStart(h2, loadTx, other) {
		t.Fatal("releasePeer must free h2 for another peer to request")
	}
}

func TestRequestTrackerExpired(t *testing.T) {
	tr := newRequestTracker()
	p := peer.NewInboundPeer(&peer.Config{})
	var hash chainhash.Hash
	hash[0] = 9
	tr.tryStart(hash, loadBlock, p)

	if got := tr.expired(time.Now()); len(got) != 0 {
		t.Fatalf("expired() = %d entries before the deadline, want 0", len(got))
	}

	past := time.Now().Add(2 * requestTimeout)
	expired := tr.expired(past)
	if len(expired) != 1 || expired[0].hash != hash {
		t.Fatalf("expired() = %+v, want a single entry for %x", expired, hash)
	}

	// expired requests are cleared, so the hash becomes requestable again.
	if !tr.tryStart(hash, loadBlock, p) {
		t.Fatal("tryStart must succeed again once expired() has cleared the request")
	}
}

func TestOrphanFloodThreshold(t *testing.T) {
	f := newOrphanFlood()
	p := peer.NewInboundPeer(&peer.Config{})
	now := time.Now()

	tripped := false
	for i := 0; i <= orphanFloodThreshold; i++ {
		if f.record(p, now) {
			tripped = true
			break
		}
	}
	if !tripped {
		t.Fatalf("expected orphan flood to trip within %d reports", orphanFloodThreshold+1)
	}
}

func TestOrphanFloodWindowSlides(t *testing.T) {
	f := newOrphanFlood()
	p := peer.NewInboundPeer(&peer.Config{})

	old := time.Now().Add(-orphanFloodWindow - time.Second)
	for i := 0; i < orphanFloodThreshold; i++ {
		f.record(p, old)
	}

	// The old reports have aged out of the window, so one more recent
	// report should not trip the threshold on its own.
	if f.record(p, time.Now()) {
		t.Fatal("stale reports outside orphanFloodWindow must not count")
	}
}

func TestBroadcastTableAck(t *testing.T) {
	b := newBroadcastTable()
	var hash chainhash.Hash
	hash[0] = 3
	iv := wire.NewInvVect(wire.InvTypeTx, &hash)

	item := b.register(iv, nil)
	b.ack(iv)

	select {
	case res := <-item.done:
		if !res.Acked {
			t.Fatalf("expected Acked result, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ack to resolve the item")
	}
}

func TestBroadcastTableReject(t *testing.T) {
	b := newBroadcastTable()
	var hash chainhash.Hash
	hash[0] = 4
	iv := wire.NewInvVect(wire.InvTypeBlock, &hash)

	item := b.register(iv, nil)
	reject := wire.NewMsgReject(wire.CmdBlock, wire.RejectInvalid, "bad block")
	reject.Hash = hash
	b.reject(wire.InvTypeBlock, reject)

	select {
	case res := <-item.done:
		if res.RejectMsg == nil || res.RejectMsg.Reason != "bad block" {
			t.Fatalf("expected the reject message to come through, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reject to resolve the item")
	}
}

// TestManagerSendsGetHeadersToFirstPeer wires a Manager's inbound side
// against a plain outbound peer over net.Pipe and checks that becoming the
// loader peer makes the manager kick off headers-first sync.
func TestManagerSendsGetHeadersToFirstPeer(t *testing.T) {
	mp, chain, params := newTestMempool(t)
	cfg := &Config{
		ChainParams:      params,
		Chain:            chain,
		Mempool:          mp,
		MaxPeers:         10,
		UserAgentName:    "pooltest",
		UserAgentVersion: "0.0.1",
	}
	m := New(cfg)
	t.Cleanup(m.Stop)

	inConn, outConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		m.handleInboundConnection(inConn)
		close(done)
	}()

	gotHeaders := make(chan *wire.MsgGetHeaders, 1)
	outCfg := &peer.Config{
		NewestBlock: func() (*wire.BlockHeader, int32, error) {
			return nil, 0, nil
		},
		ChainParams:      params,
		Services:         wire.SFNodeNetwork,
		ProtocolVersion:  wire.ProtocolVersion,
		UserAgentName:    "peertest",
		UserAgentVersion: "0.0.1",
		TrickleInterval:  10 * time.Millisecond,
		Listeners: peer.MessageListeners{
			OnGetHeaders: func(p *peer.Peer, msg *wire.MsgGetHeaders) {
				select {
				case gotHeaders <- msg:
				default:
				}
			},
		},
	}
	outPeer, err := peer.NewOutboundPeer(outCfg, "127.0.0.1:18444")
	if err != nil {
		t.Fatalf("NewOutboundPeer: %v", err)
	}
	if err := outPeer.AssociateConnection(outConn); err != nil {
		t.Fatalf("AssociateConnection: %v", err)
	}
	t.Cleanup(outPeer.Disconnect)

	select {
	case msg := <-gotHeaders:
		if len(msg.BlockLocatorHashes) == 0 {
			t.Fatal("expected a non-empty locator")
		}
		if *msg.BlockLocatorHashes[0] != *params.GenesisHash {
			t.Fatalf("locator tip = %s, want genesis %s", msg.BlockLocatorHashes[0], params.GenesisHash)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for getheaders from the newly registered loader peer")
	}

	outPeer.Disconnect()
	<-done
}
