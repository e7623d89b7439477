// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"bytes"
	"math/big"

	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// ChainEntry is the chain store's on-disk record for one header: enough to
// reconstruct height and accumulated work without touching the block body.
// The chain engine is the only writer; readers get it from the store's
// hot LRUs or a direct read.
type ChainEntry struct {
	Header    wire.BlockHeader
	Height    int32
	ChainWork *big.Int
}

// Hash returns the entry's block hash.
func (e *ChainEntry) Hash() chainhash.Hash { return e.Header.BlockHash() }

// serializeChainEntry encodes an entry as header || height(4 BE) || work-len(1) || work-bytes.
func serializeChainEntry(e *ChainEntry) []byte {
	var buf bytes.Buffer
	_ = e.Header.Serialize(&buf)
	var h [4]byte
	putUint32BE(h[:], uint32(e.Height))
	buf.Write(h[:])
	workBytes := e.ChainWork.Bytes()
	buf.WriteByte(byte(len(workBytes)))
	buf.Write(workBytes)
	return buf.Bytes()
}

func deserializeChainEntry(data []byte) (*ChainEntry, error) {
	r := bytes.NewReader(data)
	var hdr wire.BlockHeader
	if err := hdr.Deserialize(r); err != nil {
		return nil, err
	}
	var hb [4]byte
	if _, err := r.Read(hb[:]); err != nil {
		return nil, err
	}
	height := int32(uint32(hb[0])<<24 | uint32(hb[1])<<16 | uint32(hb[2])<<8 | uint32(hb[3]))
	lenByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	workBytes := make([]byte, lenByte)
	if _, err := r.Read(workBytes); err != nil && lenByte > 0 {
		return nil, err
	}
	return &ChainEntry{Header: hdr, Height: height, ChainWork: new(big.Int).SetBytes(workBytes)}, nil
}

func putUint32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

var errNotFound = errors.New("chainstore: key not found")

// ErrNotFound is returned by every Store lookup method when the requested
// key is absent; callers outside this package (e.g. mempool resolving a
// spent coin) compare against this value rather than the unexported one.
var ErrNotFound = errNotFound
