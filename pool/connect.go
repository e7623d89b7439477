// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"net"
	"sync/atomic"
	"time"
)

// connState mirrors the classic connection-manager states: an address is
// either being dialed, has failed and is backing off, or is connected.
type connState uint8

const (
	connPending connState = iota
	connFailing
	connEstablished
)

// connReq is one outbound address the connect loop is responsible for,
// retried with exponential backoff on failure up to maxRetryDuration.
type connReq struct {
	id      uint64
	addr    string
	state   connState
	retries uint32
}

var nextConnReqID uint64

const (
	minRetryDuration = 5 * time.Second
	maxRetryDuration = 5 * time.Minute
)

// retryDelay returns the backoff duration for the nth retry (n starting at
// 0), doubling each time up to maxRetryDuration.
func retryDelay(n uint32) time.Duration {
	d := minRetryDuration
	for i := uint32(0); i < n && d < maxRetryDuration; i++ {
		d *= 2
	}
	if d > maxRetryDuration {
		d = maxRetryDuration
	}
	return d
}

// connectLoop maintains cfg.TargetOutbound outbound connections, pulling
// addresses from the seed list and retrying failures with backoff. It runs
// until m.quit is closed.
func (m *Manager) connectLoop() {
	defer m.wg.Done()

	nextSeed := 0
	for {
		select {
		case <-m.quit:
			return
		default:
		}

		if int(atomic.LoadInt32(&m.outboundCount)) >= m.cfg.TargetOutbound || len(m.cfg.Seeds) == 0 {
			select {
			case <-time.After(time.Second):
			case <-m.quit:
				return
			}
			continue
		}

		addr := m.cfg.Seeds[nextSeed%len(m.cfg.Seeds)]
		nextSeed++

		host, _, _ := net.SplitHostPort(addr)
		if m.misbehavior.isBanned(host) {
			continue
		}
		if m.hasOutbound(addr) {
			continue
		}

		req := &connReq{id: atomic.AddUint64(&nextConnReqID, 1), addr: addr}
		go m.dial(req)

		select {
		case <-time.After(time.Second):
		case <-m.quit:
			return
		}
	}
}

func (m *Manager) dial(req *connReq) {
	for {
		select {
		case <-m.quit:
			return
		default:
		}

		req.state = connPending
		conn, err := m.dialAddr(req.addr)
		if err != nil {
			req.state = connFailing
			req.retries++
			log.Debugf("outbound dial to %s failed: %v", req.addr, err)
			select {
			case <-time.After(retryDelay(req.retries)):
				continue
			case <-m.quit:
				return
			}
		}

		req.state = connEstablished
		m.handleOutboundConnection(req.addr, conn)
		return
	}
}

func (m *Manager) dialAddr(addr string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	return dialer.Dial("tcp", addr)
}

// acceptLoop accepts inbound connections on cfg.Listen, if configured.
func (m *Manager) acceptLoop(ln net.Listener) {
	defer m.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-m.quit:
				return
			default:
				log.Errorf("accept error: %v", err)
				return
			}
		}
		go m.handleInboundConnection(conn)
	}
}
