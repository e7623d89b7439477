// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"
)

// MaxBlockHeadersPerMsg is the maximum number of headers allowed per
// message, per the Bitcoin wire protocol's "headers" response cap.
const MaxBlockHeadersPerMsg = 2000

// MsgHeaders implements Message for the "headers" response to a
// "getheaders" request: a run of block headers, each followed by a zero
// transaction count byte for historical-format compatibility.
type MsgHeaders struct {
	Headers []*BlockHeader
}

func (msg *MsgHeaders) Command() string { return CmdHeaders }

func (msg *MsgHeaders) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxBlockHeadersPerMsg)) + MaxBlockHeadersPerMsg*(MaxBlockHeaderPayload+1)
}

// AddBlockHeader adds a single header, enforcing MaxBlockHeadersPerMsg.
func (msg *MsgHeaders) AddBlockHeader(bh *BlockHeader) error {
	if len(msg.Headers)+1 > MaxBlockHeadersPerMsg {
		return errors.Errorf("too many block headers in message [max %d]", MaxBlockHeadersPerMsg)
	}
	msg.Headers = append(msg.Headers, bh)
	return nil
}

func (msg *MsgHeaders) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.Headers) > MaxBlockHeadersPerMsg {
		return errors.Errorf("too many block headers for message [max %d]", MaxBlockHeadersPerMsg)
	}
	if err := WriteVarInt(w, uint64(len(msg.Headers))); err != nil {
		return err
	}
	for _, bh := range msg.Headers {
		if err := bh.Serialize(w); err != nil {
			return err
		}
		// Zero transaction count: headers never carry transactions,
		// but the byte is part of the wire format for historical
		// compatibility with the full "block" encoding.
		if err := WriteVarInt(w, 0); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgHeaders) BtcDecode(r io.Reader, pver uint32) error {
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockHeadersPerMsg {
		return errors.Errorf("too many block headers [count %d, max %d]", count, MaxBlockHeadersPerMsg)
	}
	msg.Headers = make([]*BlockHeader, count)
	for i := range msg.Headers {
		bh := &BlockHeader{}
		if err := bh.Deserialize(r); err != nil {
			return err
		}
		txCount, err := ReadVarInt(r)
		if err != nil {
			return err
		}
		if txCount != 0 {
			return errors.New("headers message header has non-zero tx count")
		}
		msg.Headers[i] = bh
	}
	return nil
}

// NewMsgHeaders returns a new empty headers message.
func NewMsgHeaders() *MsgHeaders {
	return &MsgHeaders{Headers: make([]*BlockHeader, 0, MaxBlockHeadersPerMsg)}
}
