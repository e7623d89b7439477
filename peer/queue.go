// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"sync/atomic"
	"time"

	"github.com/dworznik/bcoin/wire"
)

// QueueMessage adds msg to the outgoing queue. If doneChan is non-nil, it
// is sent a value once msg has actually been written to the connection.
func (p *Peer) QueueMessage(msg wire.Message, doneChan chan<- struct{}) {
	if atomic.LoadInt32(&p.disconnect) != 0 {
		if doneChan != nil {
			go func() { doneChan <- struct{}{} }()
		}
		return
	}
	select {
	case p.outputQueue <- outMsg{msg: msg, doneChan: doneChan}:
	case <-p.quit:
	}
}

// QueueInventory adds invVect to the peer's trickled inv announcement
// queue, skipping it if the peer is already known to have it.
func (p *Peer) QueueInventory(invVect *wire.InvVect) {
	if p.knowsInventory(invVect) {
		return
	}
	select {
	case p.outputInvChan <- invVect:
	case <-p.quit:
	}
}

// queueHandler muxes outputQueue/outputInvChan into a single sendQueue,
// coalescing queued inventory into batched inv messages that flush on
// p.cfg.TrickleInterval rather than one wire message per item.
func (p *Peer) queueHandler() {
	defer p.wg.Done()

	trickleInterval := p.cfg.TrickleInterval
	if trickleInterval <= 0 {
		trickleInterval = defaultTrickleInterval
	}
	trickleTicker := time.NewTicker(trickleInterval)
	defer trickleTicker.Stop()

	pendingMsgs := make([]outMsg, 0, outputBufferSize)
	pendingInv := make([]*wire.InvVect, 0, outputBufferSize)
	waiting := false

	queuePacket := func(m outMsg, list *[]outMsg, w bool) bool {
		if !w {
			select {
			case p.sendQueue <- m:
			case <-p.quit:
			}
			return true
		}
		*list = append(*list, m)
		return w
	}

out:
	for {
		select {
		case msg := <-p.outputQueue:
			waiting = queuePacket(msg, &pendingMsgs, waiting)

		case iv := <-p.outputInvChan:
			if p.knowsInventory(iv) {
				continue
			}
			pendingInv = append(pendingInv, iv)
			p.AddKnownInventory(iv)

		case <-trickleTicker.C:
			if len(pendingInv) == 0 {
				continue
			}
			invMsg := wire.NewMsgInv()
			n := len(pendingInv)
			if n > maxInvTrickleSize {
				n = maxInvTrickleSize
			}
			for _, iv := range pendingInv[:n] {
				invMsg.AddInvVect(iv)
			}
			pendingInv = pendingInv[n:]
			waiting = queuePacket(outMsg{msg: invMsg}, &pendingMsgs, waiting)

		case <-p.sendDoneQueue:
			if len(pendingMsgs) == 0 {
				waiting = false
				continue
			}
			next := pendingMsgs[0]
			pendingMsgs = pendingMsgs[1:]
			select {
			case p.sendQueue <- next:
			case <-p.quit:
				break out
			}
			waiting = len(pendingMsgs) > 0 || waiting

		case <-p.quit:
			break out
		}
	}

	for {
		select {
		case msg := <-p.outputQueue:
			if msg.doneChan != nil {
				msg.doneChan <- struct{}{}
			}
		default:
			close(p.queueQuit)
			return
		}
	}
}

// outHandler is the single goroutine that writes queued messages to the
// connection, in order, signaling sendDoneQueue after each one so
// queueHandler can release the next.
func (p *Peer) outHandler() {
	defer p.wg.Done()

out:
	for {
		select {
		case msg := <-p.sendQueue:
			p.stallControl <- stallControlMsg{command: sccSendMessage, message: msg.msg}
			if err := p.writeMessage(msg.msg); err != nil {
				if atomic.LoadInt32(&p.disconnect) == 0 {
					log.Errorf("failed to write message to %s: %v", p, err)
					p.Disconnect()
				}
				if msg.doneChan != nil {
					msg.doneChan <- struct{}{}
				}
				break out
			}
			if msg.doneChan != nil {
				msg.doneChan <- struct{}{}
			}
			select {
			case p.sendDoneQueue <- struct{}{}:
			case <-p.quit:
				break out
			}
		case <-p.quit:
			break out
		}
	}

	<-p.queueQuit
	close(p.outQuit)
}

// pingHandler periodically sends an unsolicited ping to detect a dead
// connection the TCP stack has not yet noticed.
func (p *Peer) pingHandler() {
	defer p.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			nonce, err := randomUint64()
			if err != nil {
				continue
			}
			p.lastPingNonce = nonce
			p.lastPingTime = time.Now()
			p.QueueMessage(&wire.MsgPing{Nonce: nonce}, nil)
		case <-p.quit:
			return
		}
	}
}

// stallHandler tracks a deadline for every request we send that expects a
// specific response, and disconnects (with a ban-score strike) a peer that
// blows through it.
func (p *Peer) stallHandler() {
	defer p.wg.Done()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(stallResponseTimeout / 2)
	defer ticker.Stop()

	deadlineFor := func(cmd string) (string, bool) {
		switch cmd {
		case wire.CmdGetData, wire.CmdGetHeaders, wire.CmdGetBlocks, wire.CmdPing, wire.CmdMemPool:
			return cmd, true
		default:
			return "", false
		}
	}
	clears := func(cmd string) []string {
		switch cmd {
		case wire.CmdBlock, wire.CmdTx, wire.CmdNotFound:
			return []string{wire.CmdGetData}
		case wire.CmdHeaders:
			return []string{wire.CmdGetHeaders}
		case wire.CmdInv:
			return []string{wire.CmdGetBlocks, wire.CmdMemPool}
		case wire.CmdPong:
			return []string{wire.CmdPing}
		default:
			return nil
		}
	}

	for {
		select {
		case ctl := <-p.stallControl:
			switch ctl.command {
			case sccSendMessage:
				if cmd, ok := deadlineFor(ctl.message.Command()); ok {
					pending[cmd] = time.Now().Add(stallResponseTimeout)
				}
			case sccReceiveMessage:
				for _, cmd := range clears(ctl.message.Command()) {
					delete(pending, cmd)
				}
			}
		case <-ticker.C:
			now := time.Now()
			for cmd, deadline := range pending {
				if now.After(deadline) {
					log.Warnf("peer %s stalled waiting on %s", p, cmd)
					p.AddBanScore(BanScoreStallTimeout, 0, "response timeout: "+cmd)
					p.Disconnect()
					return
				}
			}
		case <-p.quit:
			return
		}
	}
}
