// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the Bitcoin P2P wire protocol: message framing,
// the compact-size (varint) codec, and every message type in the BIP37/
// 111/130/133/144/152 subset the sync driver and peer speak.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainhash"
)

// ProtocolVersion is the latest protocol version this package understands.
const ProtocolVersion uint32 = 70016

// MaxVarIntPayload is the maximum payload size for a variable length integer.
const MaxVarIntPayload = 9

// CommandSize is the fixed size in bytes of a message command/type field.
const CommandSize = 12

// MaxMessagePayload is the maximum bytes a message payload may contain
// regardless of any individual message type's own limit.
const MaxMessagePayload = 32 * 1024 * 1024 // 32 MiB

// BitcoinNet represents the magic number identifying a Bitcoin network.
type BitcoinNet uint32

const (
	MainNet  BitcoinNet = 0xd9b4bef9
	TestNet3 BitcoinNet = 0x0709110b
	SimNet   BitcoinNet = 0x12141c16
	RegTest  BitcoinNet = 0xdab5bffa
)

func (n BitcoinNet) String() string {
	switch n {
	case MainNet:
		return "MainNet"
	case TestNet3:
		return "TestNet3"
	case SimNet:
		return "SimNet"
	case RegTest:
		return "RegTest"
	default:
		return "Unknown"
	}
}

// readElement reads a fixed-size little-endian element from r into element.
func readElement(r io.Reader, element interface{}) error {
	return binary.Read(r, binary.LittleEndian, element)
}

// writeElement writes a fixed-size little-endian element to w.
func writeElement(w io.Writer, element interface{}) error {
	return binary.Write(w, binary.LittleEndian, element)
}

// ReadVarInt reads a variable length integer (bitcoin CompactSize) from r.
func ReadVarInt(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:1]); err != nil {
		return 0, err
	}
	switch b[0] {
	case 0xff:
		if _, err := io.ReadFull(r, b[:8]); err != nil {
			return 0, err
		}
		rv := binary.LittleEndian.Uint64(b[:8])
		if rv < 0x100000000 {
			return 0, errors.New("varint not minimally encoded")
		}
		return rv, nil
	case 0xfe:
		if _, err := io.ReadFull(r, b[:4]); err != nil {
			return 0, err
		}
		rv := uint64(binary.LittleEndian.Uint32(b[:4]))
		if rv < 0x10000 {
			return 0, errors.New("varint not minimally encoded")
		}
		return rv, nil
	case 0xfd:
		if _, err := io.ReadFull(r, b[:2]); err != nil {
			return 0, err
		}
		rv := uint64(binary.LittleEndian.Uint16(b[:2]))
		if rv < 0xfd {
			return 0, errors.New("varint not minimally encoded")
		}
		return rv, nil
	default:
		return uint64(b[0]), nil
	}
}

// WriteVarInt writes val to w using the minimal CompactSize encoding.
func WriteVarInt(w io.Writer, val uint64) error {
	switch {
	case val < 0xfd:
		_, err := w.Write([]byte{byte(val)})
		return err
	case val <= 0xffff:
		var buf [3]byte
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf[:])
		return err
	case val <= 0xffffffff:
		var buf [5]byte
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf[:])
		return err
	default:
		var buf [9]byte
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], val)
		_, err := w.Write(buf[:])
		return err
	}
}

// VarIntSerializeSize returns the number of bytes it would take to serialize
// val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a variable length byte array, refusing to allocate more
// than maxAllowed bytes in one go to bound memory use from a hostile peer.
func ReadVarBytes(r io.Reader, maxAllowed uint32, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > uint64(maxAllowed) {
		return nil, errors.Errorf("%s exceeds max allowed size (%d > %d)", fieldName, count, maxAllowed)
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes writes a variable length byte array to w.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarString reads a variable length string, bitcoin-encoded as a
// varint-prefixed byte string.
func ReadVarString(r io.Reader, maxAllowed uint32) (string, error) {
	b, err := ReadVarBytes(r, maxAllowed, "variable length string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteVarString writes a variable length string to w.
func WriteVarString(w io.Writer, s string) error {
	return WriteVarBytes(w, []byte(s))
}

// ReadHash reads a 32-byte chainhash.Hash from r.
func ReadHash(r io.Reader, hash *chainhash.Hash) error {
	_, err := io.ReadFull(r, hash[:])
	return err
}

// WriteHash writes a 32-byte chainhash.Hash to w.
func WriteHash(w io.Writer, hash *chainhash.Hash) error {
	_, err := w.Write(hash[:])
	return err
}
