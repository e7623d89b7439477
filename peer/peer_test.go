// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"
	"time"

	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

func testConfig() *Config {
	return &Config{
		NewestBlock: func() (*wire.BlockHeader, int32, error) {
			return nil, 0, nil
		},
		ChainParams:     &chaincfg.RegressionNetParams,
		Services:        wire.SFNodeNetwork,
		ProtocolVersion: wire.ProtocolVersion,
		UserAgentName:   "peertest",
		UserAgentVersion: "0.0.1",
		TrickleInterval: 10 * time.Millisecond,
	}
}

// pipePeers returns an inbound/outbound peer pair wired together over
// net.Pipe, with AssociateConnection not yet called.
func pipePeers(t *testing.T, inCfg, outCfg *Config) (*Peer, *Peer, net.Conn, net.Conn) {
	t.Helper()
	inConn, outConn := net.Pipe()
	inPeer := NewInboundPeer(inCfg)
	outPeer, err := NewOutboundPeer(outCfg, "127.0.0.1:18444")
	if err != nil {
		t.Fatalf("NewOutboundPeer: %v", err)
	}
	return inPeer, outPeer, inConn, outConn
}

func TestHandshakeCompletes(t *testing.T) {
	inCfg, outCfg := testConfig(), testConfig()
	inPeer, outPeer, inConn, outConn := pipePeers(t, inCfg, outCfg)

	errCh := make(chan error, 2)
	go func() { errCh <- inPeer.AssociateConnection(inConn) }()
	go func() { errCh <- outPeer.AssociateConnection(outConn) }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("AssociateConnection: %v", err)
		}
	}
	defer inPeer.Disconnect()
	defer outPeer.Disconnect()

	if !inPeer.VersionKnown() || !outPeer.VersionKnown() {
		t.Fatal("expected both peers to know each other's version")
	}
	if inPeer.UserAgent() != wire.DefaultUserAgent+"/peertest:0.0.1/" {
		t.Fatalf("unexpected user agent: %q", inPeer.UserAgent())
	}
	if inPeer.ProtocolVersion() != outPeer.ProtocolVersion() {
		t.Fatal("expected negotiated protocol versions to match")
	}
}

func TestDuplicateVersionMessageAddsBanScore(t *testing.T) {
	inCfg, outCfg := testConfig(), testConfig()

	scored := make(chan string, 1)
	inCfg.AddBanScore = func(p *Peer, persistent, transient uint32, reason string) {
		select {
		case scored <- reason:
		default:
		}
	}

	inPeer, outPeer, inConn, outConn := pipePeers(t, inCfg, outCfg)

	errCh := make(chan error, 2)
	go func() { errCh <- inPeer.AssociateConnection(inConn) }()
	go func() { errCh <- outPeer.AssociateConnection(outConn) }()
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("AssociateConnection: %v", err)
		}
	}
	defer inPeer.Disconnect()
	defer outPeer.Disconnect()

	done := make(chan struct{}, 1)
	outPeer.QueueMessage(&wire.MsgVersion{ProtocolVersion: int32(wire.ProtocolVersion)}, done)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for duplicate version message to be written")
	}

	select {
	case reason := <-scored:
		if reason == "" {
			t.Fatal("expected a non-empty ban reason")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ban score callback")
	}
}

func TestFeeFilterRoundTrip(t *testing.T) {
	p := NewInboundPeer(testConfig())
	if got := p.FeeFilter(); got != 0 {
		t.Fatalf("expected zero fee filter before any set, got %d", got)
	}
	p.SetFeeFilter(5000)
	if got := p.FeeFilter(); got != 5000 {
		t.Fatalf("FeeFilter() = %d, want 5000", got)
	}
}

func TestFilterDefaultsToNullFilter(t *testing.T) {
	p := NewInboundPeer(testConfig())
	f := p.Filter()
	if f == nil {
		t.Fatal("Filter() must never return nil")
	}
	if f.Matches([]byte("anything")) {
		t.Fatal("default filter must not match any data")
	}
}

func TestKnownInventorySuppression(t *testing.T) {
	p := NewInboundPeer(testConfig())
	var hash chainhash.Hash
	iv := wire.NewInvVect(wire.InvTypeTx, &hash)
	if p.knowsInventory(iv) {
		t.Fatal("peer should not know inventory before it is added")
	}
	p.AddKnownInventory(iv)
	if !p.knowsInventory(iv) {
		t.Fatal("peer should know inventory after AddKnownInventory")
	}
}

func TestBanScoreAccumulates(t *testing.T) {
	p := NewInboundPeer(testConfig())
	p.AddBanScore(10, 5, "test")
	if got := p.BanScore(); got != 15 {
		t.Fatalf("BanScore() = %d, want 15", got)
	}
	p.AddBanScore(BanScoreStallTimeout, 0, "stall")
	if got := p.BanScore(); got != 15+BanScoreStallTimeout {
		t.Fatalf("BanScore() = %d, want %d", got, 15+BanScoreStallTimeout)
	}
}
