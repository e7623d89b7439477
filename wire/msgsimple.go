// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// MsgVerAck implements Message for the "verack" handshake reply: an empty
// payload whose arrival alone completes the handshake.
type MsgVerAck struct{}

func (msg *MsgVerAck) Command() string                          { return CmdVerAck }
func (msg *MsgVerAck) MaxPayloadLength(pver uint32) uint32       { return 0 }
func (msg *MsgVerAck) BtcEncode(w io.Writer, pver uint32) error  { return nil }
func (msg *MsgVerAck) BtcDecode(r io.Reader, pver uint32) error  { return nil }

// MsgGetAddr implements Message for the "getaddr" request: an empty payload
// asking the peer for known addresses.
type MsgGetAddr struct{}

func (msg *MsgGetAddr) Command() string                         { return CmdGetAddr }
func (msg *MsgGetAddr) MaxPayloadLength(pver uint32) uint32      { return 0 }
func (msg *MsgGetAddr) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgGetAddr) BtcDecode(r io.Reader, pver uint32) error { return nil }

// MsgMemPool implements Message for the "mempool" request: ask the peer to
// announce (via inv) every transaction currently in its mempool.
type MsgMemPool struct{}

func (msg *MsgMemPool) Command() string                         { return CmdMemPool }
func (msg *MsgMemPool) MaxPayloadLength(pver uint32) uint32      { return 0 }
func (msg *MsgMemPool) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgMemPool) BtcDecode(r io.Reader, pver uint32) error { return nil }

// MsgSendHeaders implements Message for the "sendheaders" announcement: an
// empty payload asking the remote to relay new blocks via "headers" instead
// of "inv".
type MsgSendHeaders struct{}

func (msg *MsgSendHeaders) Command() string                         { return CmdSendHeaders }
func (msg *MsgSendHeaders) MaxPayloadLength(pver uint32) uint32      { return 0 }
func (msg *MsgSendHeaders) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgSendHeaders) BtcDecode(r io.Reader, pver uint32) error { return nil }

// MsgFilterClear implements Message for the "filterclear" BIP37 request:
// drop any loaded bloom filter and resume unfiltered relay.
type MsgFilterClear struct{}

func (msg *MsgFilterClear) Command() string                         { return CmdFilterClear }
func (msg *MsgFilterClear) MaxPayloadLength(pver uint32) uint32      { return 0 }
func (msg *MsgFilterClear) BtcEncode(w io.Writer, pver uint32) error { return nil }
func (msg *MsgFilterClear) BtcDecode(r io.Reader, pver uint32) error { return nil }

// MsgPing implements Message for the "ping" liveness probe.
type MsgPing struct {
	Nonce uint64
}

func (msg *MsgPing) Command() string                    { return CmdPing }
func (msg *MsgPing) MaxPayloadLength(pver uint32) uint32 { return 8 }

func (msg *MsgPing) BtcEncode(w io.Writer, pver uint32) error {
	return writeElement(w, msg.Nonce)
}

func (msg *MsgPing) BtcDecode(r io.Reader, pver uint32) error {
	return readElement(r, &msg.Nonce)
}

// MsgPong implements Message for the "pong" reply to a ping, echoing its
// nonce.
type MsgPong struct {
	Nonce uint64
}

func (msg *MsgPong) Command() string                    { return CmdPong }
func (msg *MsgPong) MaxPayloadLength(pver uint32) uint32 { return 8 }

func (msg *MsgPong) BtcEncode(w io.Writer, pver uint32) error {
	return writeElement(w, msg.Nonce)
}

func (msg *MsgPong) BtcDecode(r io.Reader, pver uint32) error {
	return readElement(r, &msg.Nonce)
}

// MsgFeeFilter implements Message for the "feefilter" BIP133 request: the
// remote should not relay any transaction below this fee rate (satoshis
// per 1000 bytes) to us.
type MsgFeeFilter struct {
	MinFee int64
}

func (msg *MsgFeeFilter) Command() string                    { return CmdFeeFilter }
func (msg *MsgFeeFilter) MaxPayloadLength(pver uint32) uint32 { return 8 }

func (msg *MsgFeeFilter) BtcEncode(w io.Writer, pver uint32) error {
	return writeElement(w, msg.MinFee)
}

func (msg *MsgFeeFilter) BtcDecode(r io.Reader, pver uint32) error {
	return readElement(r, &msg.MinFee)
}

// MsgSendCmpct implements Message for the "sendcmpct" BIP152 negotiation.
// Compact-block flows are not implemented: this node only
// ever sends {Announce: false, Version: 1} once and ignores any sendcmpct
// a peer sends.
type MsgSendCmpct struct {
	Announce bool
	Version  uint64
}

func (msg *MsgSendCmpct) Command() string                    { return CmdSendCmpct }
func (msg *MsgSendCmpct) MaxPayloadLength(pver uint32) uint32 { return 9 }

func (msg *MsgSendCmpct) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElement(w, msg.Announce); err != nil {
		return err
	}
	return writeElement(w, msg.Version)
}

func (msg *MsgSendCmpct) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.Announce); err != nil {
		return err
	}
	return readElement(r, &msg.Version)
}
