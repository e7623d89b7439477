// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"
)

// MaxAddrPerMsg is the maximum number of addresses allowed per message.
const MaxAddrPerMsg = 1000

// MsgAddr implements Message for the "addr" message: a list of known peer
// addresses, each timestamped so the receiver can judge freshness.
type MsgAddr struct {
	AddrList []*NetAddress
}

func (msg *MsgAddr) Command() string { return CmdAddr }

func (msg *MsgAddr) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxAddrPerMsg)) + MaxAddrPerMsg*(maxNetAddressPayload+4)
}

// AddAddress adds a single address, rejecting once MaxAddrPerMsg is reached
// (the "more than 200... increments ban score" rule is a
// sync-driver-level concern; at the message level the cap just prevents a
// single oversized addr from growing unbounded in memory).
func (msg *MsgAddr) AddAddress(na *NetAddress) error {
	if len(msg.AddrList)+1 > MaxAddrPerMsg {
		return errors.Errorf("too many addresses in message [max %d]", MaxAddrPerMsg)
	}
	msg.AddrList = append(msg.AddrList, na)
	return nil
}

func (msg *MsgAddr) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.AddrList) > MaxAddrPerMsg {
		return errors.Errorf("too many addresses for message [max %d]", MaxAddrPerMsg)
	}
	if err := WriteVarInt(w, uint64(len(msg.AddrList))); err != nil {
		return err
	}
	for _, na := range msg.AddrList {
		if err := writeNetAddress(w, na, true); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgAddr) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxAddrPerMsg {
		return errors.Errorf("too many addresses for message [count %d, max %d]", count, MaxAddrPerMsg)
	}
	msg.AddrList = make([]*NetAddress, count)
	for i := range msg.AddrList {
		na := &NetAddress{}
		if err := readNetAddress(r, na, true); err != nil {
			return err
		}
		msg.AddrList[i] = na
	}
	return nil
}

// NewMsgAddr returns a new empty addr message.
func NewMsgAddr() *MsgAddr { return &MsgAddr{AddrList: make([]*NetAddress, 0, 10)} }
