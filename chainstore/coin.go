// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import "bytes"

// Coin is one unspent transaction output as stored under the c/ prefix:
// enough to validate a spend and to reconstruct the output on disconnect.
type Coin struct {
	Value       int64
	PkScript    []byte
	Height      int32
	IsCoinBase  bool
}

func serializeCoin(c *Coin) []byte {
	var buf bytes.Buffer
	var v [8]byte
	putUint64LE(v[:], uint64(c.Value))
	buf.Write(v[:])
	var h [4]byte
	putUint32LEbuf(h[:], uint32(c.Height))
	buf.Write(h[:])
	if c.IsCoinBase {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	writeVarIntBuf(&buf, uint64(len(c.PkScript)))
	buf.Write(c.PkScript)
	return buf.Bytes()
}

func deserializeCoin(data []byte) (*Coin, error) {
	if len(data) < 13 {
		return nil, errNotFound
	}
	value := int64(getUint64LE(data[0:8]))
	height := int32(getUint32LE(data[8:12]))
	isCoinBase := data[12] != 0
	rest := data[13:]
	scriptLen, n := readVarIntBuf(rest)
	rest = rest[n:]
	if uint64(len(rest)) < scriptLen {
		return nil, errNotFound
	}
	pkScript := make([]byte, scriptLen)
	copy(pkScript, rest[:scriptLen])
	return &Coin{Value: value, PkScript: pkScript, Height: height, IsCoinBase: isCoinBase}, nil
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> uint(8*i))
	}
}

func putUint32LEbuf(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << uint(8*i)
	}
	return v
}

func getUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func writeVarIntBuf(buf *bytes.Buffer, v uint64) {
	switch {
	case v < 0xfd:
		buf.WriteByte(byte(v))
	case v <= 0xffff:
		buf.WriteByte(0xfd)
		buf.WriteByte(byte(v))
		buf.WriteByte(byte(v >> 8))
	case v <= 0xffffffff:
		buf.WriteByte(0xfe)
		for i := 0; i < 4; i++ {
			buf.WriteByte(byte(v >> uint(8*i)))
		}
	default:
		buf.WriteByte(0xff)
		for i := 0; i < 8; i++ {
			buf.WriteByte(byte(v >> uint(8*i)))
		}
	}
}

func readVarIntBuf(b []byte) (uint64, int) {
	if len(b) == 0 {
		return 0, 0
	}
	switch b[0] {
	case 0xfd:
		return uint64(b[1]) | uint64(b[2])<<8, 3
	case 0xfe:
		return uint64(getUint32LE(b[1:5])), 5
	case 0xff:
		return getUint64LE(b[1:9]), 9
	default:
		return uint64(b[0]), 1
	}
}
