// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/dworznik/bcoin/chainhash"
)

// RejectCode represents the ccode byte of a "reject" message, matching
// the bitcoind Verify error code taxonomy.
type RejectCode uint8

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectDust            RejectCode = 0x41
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
)

func (c RejectCode) String() string {
	switch c {
	case RejectMalformed:
		return "malformed"
	case RejectInvalid:
		return "invalid"
	case RejectObsolete:
		return "obsolete"
	case RejectDuplicate:
		return "duplicate"
	case RejectNonstandard:
		return "nonstandard"
	case RejectDust:
		return "dust"
	case RejectInsufficientFee:
		return "insufficientfee"
	case RejectCheckpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}

// MsgReject implements Message for the "reject" message: tells a peer why
// their tx/block/message was refused. Hash is encoded and decoded only
// when Cmd names a tx or block.
type MsgReject struct {
	Cmd    string
	Code   RejectCode
	Reason string
	Hash   chainhash.Hash
}

func (msg *MsgReject) Command() string { return CmdReject }

func (msg *MsgReject) MaxPayloadLength(pver uint32) uint32 {
	return uint32(CommandSize) + 1 + uint32(VarIntSerializeSize(MaxMessagePayload)) + MaxMessagePayload + chainhash.HashSize
}

func (msg *MsgReject) BtcEncode(w io.Writer, pver uint32) error {
	if err := WriteVarString(w, msg.Cmd); err != nil {
		return err
	}
	if err := writeElement(w, msg.Code); err != nil {
		return err
	}
	if err := WriteVarString(w, msg.Reason); err != nil {
		return err
	}
	if msg.Cmd == CmdBlock || msg.Cmd == CmdTx {
		return WriteHash(w, &msg.Hash)
	}
	return nil
}

func (msg *MsgReject) BtcDecode(r io.Reader, pver uint32) error {
	cmd, err := ReadVarString(r, CommandSize)
	if err != nil {
		return err
	}
	msg.Cmd = cmd
	if err := readElement(r, &msg.Code); err != nil {
		return err
	}
	reason, err := ReadVarString(r, MaxMessagePayload)
	if err != nil {
		return err
	}
	msg.Reason = reason
	if msg.Cmd == CmdBlock || msg.Cmd == CmdTx {
		return ReadHash(r, &msg.Hash)
	}
	return nil
}

// NewMsgReject returns a new reject message.
func NewMsgReject(cmd string, code RejectCode, reason string) *MsgReject {
	return &MsgReject{Cmd: cmd, Code: code, Reason: reason}
}
