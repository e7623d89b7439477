// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"
)

const maxInvPerMsgDecode = maxInvPerMsg

// invList is the shared payload shape of inv/getdata/notfound: a varint
// count followed by that many InvVects.
type invList struct {
	InvList []*InvVect
}

func (l *invList) addInvVect(iv *InvVect) error {
	if len(l.InvList)+1 > maxInvPerMsg {
		return errors.Errorf("too many inventory vectors [max %d]", maxInvPerMsg)
	}
	l.InvList = append(l.InvList, iv)
	return nil
}

func (l *invList) encode(w io.Writer) error {
	if len(l.InvList) > maxInvPerMsg {
		return errors.Errorf("too many inventory vectors for message [max %d]", maxInvPerMsg)
	}
	if err := WriteVarInt(w, uint64(len(l.InvList))); err != nil {
		return err
	}
	for _, iv := range l.InvList {
		if err := writeInvVect(w, iv); err != nil {
			return err
		}
	}
	return nil
}

func (l *invList) decode(r io.Reader) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxInvPerMsgDecode {
		return errors.Errorf("too many inventory vectors [count %d, max %d]", count, maxInvPerMsgDecode)
	}
	l.InvList = make([]*InvVect, count)
	for i := range l.InvList {
		iv := &InvVect{}
		if err := readInvVect(r, iv); err != nil {
			return err
		}
		l.InvList[i] = iv
	}
	return nil
}

func (l *invList) maxPayloadLength() uint32 {
	return uint32(VarIntSerializeSize(maxInvPerMsg)) + maxInvPerMsg*invVectSize
}

// MsgInv implements Message for the "inv" announcement: items the sender
// has and believes the receiver may want.
type MsgInv struct{ invList }

func (msg *MsgInv) Command() string                         { return CmdInv }
func (msg *MsgInv) MaxPayloadLength(pver uint32) uint32      { return msg.maxPayloadLength() }
func (msg *MsgInv) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w) }
func (msg *MsgInv) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r) }
func (msg *MsgInv) AddInvVect(iv *InvVect) error             { return msg.addInvVect(iv) }

// NewMsgInv returns a new empty inv message.
func NewMsgInv() *MsgInv { return &MsgInv{invList{InvList: make([]*InvVect, 0, 10)}} }

// MsgGetData implements Message for the "getdata" request: ask the peer to
// send the full item for each listed inventory vector. The WITNESS_MASK bit
// may be set on BLOCK/TX types here and only here.
type MsgGetData struct{ invList }

func (msg *MsgGetData) Command() string                         { return CmdGetData }
func (msg *MsgGetData) MaxPayloadLength(pver uint32) uint32      { return msg.maxPayloadLength() }
func (msg *MsgGetData) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w) }
func (msg *MsgGetData) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r) }
func (msg *MsgGetData) AddInvVect(iv *InvVect) error             { return msg.addInvVect(iv) }

// NewMsgGetData returns a new empty getdata message.
func NewMsgGetData() *MsgGetData { return &MsgGetData{invList{InvList: make([]*InvVect, 0, 10)}} }

// MsgNotFound implements Message for the "notfound" reply: items from a
// getdata the sender could not provide (already pruned, unknown, etc).
type MsgNotFound struct{ invList }

func (msg *MsgNotFound) Command() string                         { return CmdNotFound }
func (msg *MsgNotFound) MaxPayloadLength(pver uint32) uint32      { return msg.maxPayloadLength() }
func (msg *MsgNotFound) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w) }
func (msg *MsgNotFound) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r) }
func (msg *MsgNotFound) AddInvVect(iv *InvVect) error             { return msg.addInvVect(iv) }

// NewMsgNotFound returns a new empty notfound message.
func NewMsgNotFound() *MsgNotFound { return &MsgNotFound{invList{InvList: make([]*InvVect, 0, 10)}} }
