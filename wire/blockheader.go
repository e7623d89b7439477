// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/dworznik/bcoin/chainhash"
)

// MaxBlockHeaderPayload is version (4) + prev hash (32) + merkle root (32) +
// timestamp (4) + bits (4) + nonce (4).
const MaxBlockHeaderPayload = 4 + (chainhash.HashSize * 2) + 4 + 4 + 4

// BlockHeader holds the consensus-critical fields of a block: everything
// needed to validate proof-of-work and chain it to a parent without
// touching the block's transactions.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  int64 // Unix seconds, as on the wire
	Bits       uint32
	Nonce      uint32
}

// BlockHash returns the double-SHA256 hash of the serialized header, the
// value a block is identified and chained by.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf [MaxBlockHeaderPayload]byte
	w := fixedWriter{buf: buf[:0]}
	_ = h.Serialize(&w)
	return chainhash.DoubleHashH(w.buf)
}

// Serialize encodes h to w using the on-wire block header format.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := writeElement(w, h.Version); err != nil {
		return err
	}
	if err := WriteHash(w, &h.PrevBlock); err != nil {
		return err
	}
	if err := WriteHash(w, &h.MerkleRoot); err != nil {
		return err
	}
	if err := writeElement(w, uint32(h.Timestamp)); err != nil {
		return err
	}
	if err := writeElement(w, h.Bits); err != nil {
		return err
	}
	return writeElement(w, h.Nonce)
}

// Deserialize decodes a block header from r.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	if err := readElement(r, &h.Version); err != nil {
		return err
	}
	if err := ReadHash(r, &h.PrevBlock); err != nil {
		return err
	}
	if err := ReadHash(r, &h.MerkleRoot); err != nil {
		return err
	}
	var ts uint32
	if err := readElement(r, &ts); err != nil {
		return err
	}
	h.Timestamp = int64(ts)
	if err := readElement(r, &h.Bits); err != nil {
		return err
	}
	return readElement(r, &h.Nonce)
}

// NewBlockHeader builds a BlockHeader from its consensus fields.
func NewBlockHeader(version int32, prevHash, merkleRootHash *chainhash.Hash, bits uint32, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:    version,
		PrevBlock:  *prevHash,
		MerkleRoot: *merkleRootHash,
		Timestamp:  0,
		Bits:       bits,
		Nonce:      nonce,
	}
}

// fixedWriter is an io.Writer over a pre-sized byte slice, used to hash a
// header without a heap allocation per call.
type fixedWriter struct {
	buf []byte
}

func (w *fixedWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}
