// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Commands used in the Bitcoin message header which identify the payload
// that follows it.
const (
	CmdVersion      = "version"
	CmdVerAck       = "verack"
	CmdGetAddr      = "getaddr"
	CmdAddr         = "addr"
	CmdInv          = "inv"
	CmdGetData      = "getdata"
	CmdNotFound     = "notfound"
	CmdGetBlocks    = "getblocks"
	CmdGetHeaders   = "getheaders"
	CmdHeaders      = "headers"
	CmdTx           = "tx"
	CmdBlock        = "block"
	CmdMerkleBlock  = "merkleblock"
	CmdMemPool      = "mempool"
	CmdFilterLoad   = "filterload"
	CmdFilterAdd    = "filteradd"
	CmdFilterClear  = "filterclear"
	CmdReject       = "reject"
	CmdSendHeaders  = "sendheaders"
	CmdFeeFilter    = "feefilter"
	CmdSendCmpct    = "sendcmpct"
	CmdPing         = "ping"
	CmdPong         = "pong"
)

// Message is the interface every wire protocol message satisfies: a fixed
// command string used in framing, and codec methods to/from the wire byte
// representation of the payload (the header is handled by WriteMessage /
// ReadMessage, not by the message itself).
type Message interface {
	BtcDecode(r io.Reader, pver uint32) error
	BtcEncode(w io.Writer, pver uint32) error
	Command() string
	MaxPayloadLength(pver uint32) uint32
}

// messageHeader holds the 24-byte envelope that precedes every message
// payload on the wire: magic, command, length, checksum.
type messageHeader struct {
	magic    BitcoinNet
	command  string
	length   uint32
	checksum [4]byte
}

// makeEmptyMessage returns a freshly allocated Message for the given command
// string, or an error if the command is unknown. This is the dispatch point
// a peer uses after validating the header but before decoding the payload.
func makeEmptyMessage(command string) (Message, error) {
	switch command {
	case CmdVersion:
		return &MsgVersion{}, nil
	case CmdVerAck:
		return &MsgVerAck{}, nil
	case CmdGetAddr:
		return &MsgGetAddr{}, nil
	case CmdAddr:
		return &MsgAddr{}, nil
	case CmdInv:
		return &MsgInv{}, nil
	case CmdGetData:
		return &MsgGetData{}, nil
	case CmdNotFound:
		return &MsgNotFound{}, nil
	case CmdGetBlocks:
		return &MsgGetBlocks{}, nil
	case CmdGetHeaders:
		return &MsgGetHeaders{}, nil
	case CmdHeaders:
		return &MsgHeaders{}, nil
	case CmdTx:
		return &MsgTx{}, nil
	case CmdBlock:
		return &MsgBlock{}, nil
	case CmdMerkleBlock:
		return &MsgMerkleBlock{}, nil
	case CmdMemPool:
		return &MsgMemPool{}, nil
	case CmdFilterLoad:
		return &MsgFilterLoad{}, nil
	case CmdFilterAdd:
		return &MsgFilterAdd{}, nil
	case CmdFilterClear:
		return &MsgFilterClear{}, nil
	case CmdReject:
		return &MsgReject{}, nil
	case CmdSendHeaders:
		return &MsgSendHeaders{}, nil
	case CmdFeeFilter:
		return &MsgFeeFilter{}, nil
	case CmdSendCmpct:
		return &MsgSendCmpct{}, nil
	case CmdPing:
		return &MsgPing{}, nil
	case CmdPong:
		return &MsgPong{}, nil
	default:
		return nil, errors.Errorf("unhandled command [%s]", command)
	}
}

// WriteMessage frames msg with magic/command/length/checksum and writes it
// to w, per the byte layout in spec §6: 4-byte magic, 12-byte ASCII command
// (null-padded), 4-byte LE payload length, 4-byte checksum (first four bytes
// of SHA-256d(payload)), payload.
func WriteMessage(w io.Writer, msg Message, pver uint32, net BitcoinNet) error {
	var bw bytes.Buffer
	if err := msg.BtcEncode(&bw, pver); err != nil {
		return err
	}
	payload := bw.Bytes()
	lenp := len(payload)

	cmd := msg.Command()
	if len(cmd) > CommandSize {
		return errors.Errorf("command [%s] is too long", cmd)
	}
	if uint32(lenp) > msg.MaxPayloadLength(pver) {
		return errors.Errorf("message payload is too large - encoded %d bytes, but maximum message payload is %d bytes", lenp, msg.MaxPayloadLength(pver))
	}

	var hdr [24]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(net))
	copy(hdr[4:16], cmd)
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(lenp))
	copy(hdr[20:24], checksum(payload))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadMessage validates the magic, bounds the declared length, verifies the
// checksum, and decodes the payload into the command's Message type. Magic
// is checked before anything else so a connection to the wrong network is
// dropped without allocating a payload buffer; length is bound to
// MaxMessagePayload before the checksum is even considered.
func ReadMessage(r io.Reader, pver uint32, net BitcoinNet) (Message, []byte, error) {
	var hdr [24]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, nil, err
	}

	gotMagic := BitcoinNet(binary.LittleEndian.Uint32(hdr[0:4]))
	if gotMagic != net {
		return nil, nil, errors.Errorf("message from another network [%v]", gotMagic)
	}

	command := stripNullPad(hdr[4:16])
	length := binary.LittleEndian.Uint32(hdr[16:20])
	if length > MaxMessagePayload {
		return nil, nil, errors.Errorf("message payload is too large - header indicates %d bytes, but max message payload is %d bytes", length, MaxMessagePayload)
	}

	msg, err := makeEmptyMessage(command)
	if err != nil {
		io.CopyN(io.Discard, r, int64(length)) //nolint:errcheck // draining an unknown command is best-effort
		return nil, nil, err
	}
	if length > msg.MaxPayloadLength(pver) {
		return nil, nil, errors.Errorf("payload exceeds max length for command [%s]", command)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, err
	}

	var wantChecksum [4]byte
	copy(wantChecksum[:], checksum(payload))
	if !bytes.Equal(wantChecksum[:], hdr[20:24]) {
		return nil, nil, errors.Errorf("payload checksum failed - header indicates %x, but actual checksum is %x", hdr[20:24], wantChecksum)
	}

	if err := msg.BtcDecode(bytes.NewReader(payload), pver); err != nil {
		return nil, nil, err
	}
	return msg, payload, nil
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

func stripNullPad(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func init() {
	// command strings must fit in the fixed 12-byte header field
	for _, cmd := range []string{
		CmdVersion, CmdVerAck, CmdGetAddr, CmdAddr, CmdInv, CmdGetData, CmdNotFound,
		CmdGetBlocks, CmdGetHeaders, CmdHeaders, CmdTx, CmdBlock, CmdMerkleBlock,
		CmdMemPool, CmdFilterLoad, CmdFilterAdd, CmdFilterClear, CmdReject,
		CmdSendHeaders, CmdFeeFilter, CmdSendCmpct, CmdPing, CmdPong,
	} {
		if len(cmd) > CommandSize {
			panic(fmt.Sprintf("command %q longer than %d bytes", cmd, CommandSize))
		}
	}
}
