// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainhash"
)

// MsgBlock implements Message for the "block" message: a header plus its
// full transaction list. It caches no serialized size or witness size;
// chain store and mempool work with the parsed MsgBlock directly.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

func (msg *MsgBlock) Command() string { return CmdBlock }

func (msg *MsgBlock) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// BlockHash returns the header's double-SHA256 hash, the block's identity.
func (msg *MsgBlock) BlockHash() chainhash.Hash { return msg.Header.BlockHash() }

// HasWitness reports whether any transaction in the block carries witness
// data, which determines whether a witness commitment output is required.
func (msg *MsgBlock) HasWitness() bool {
	for _, tx := range msg.Transactions {
		if tx.HasWitness() {
			return true
		}
	}
	return false
}

// AddTransaction appends tx to the block.
func (msg *MsgBlock) AddTransaction(tx *MsgTx) { msg.Transactions = append(msg.Transactions, tx) }

func (msg *MsgBlock) BtcEncode(w io.Writer, pver uint32) error {
	if err := msg.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.Transactions))); err != nil {
		return err
	}
	for _, tx := range msg.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (msg *MsgBlock) BtcDecode(r io.Reader, pver uint32) error {
	if err := msg.Header.Deserialize(r); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	// A block cannot legally contain more transactions than would fit
	// one per minimal-size byte in the max message payload; this just
	// bounds the allocation against a hostile declared count.
	if count > MaxMessagePayload/minTxSerializeSize {
		return errors.Errorf("too many transactions to fit into a message [count %d]", count)
	}
	msg.Transactions = make([]*MsgTx, count)
	for i := range msg.Transactions {
		tx := &MsgTx{}
		if err := tx.Deserialize(r); err != nil {
			return err
		}
		msg.Transactions[i] = tx
	}
	return nil
}

// minTxSerializeSize is a conservative lower bound (version + in-count +
// out-count + locktime, no inputs/outputs) used only to size-check a
// declared transaction count before allocating.
const minTxSerializeSize = 10

// NewMsgBlock returns a new block with the given header and no
// transactions.
func NewMsgBlock(header *BlockHeader) *MsgBlock {
	return &MsgBlock{Header: *header, Transactions: make([]*MsgTx, 0, 64)}
}

// Serialize writes the block in the format used for disk storage and
// block/merkleblock wire payloads (witness-inclusive, protocol version
// independent).
func (msg *MsgBlock) Serialize(w io.Writer) error {
	return msg.BtcEncode(w, 0)
}

// Deserialize reads a block produced by Serialize.
func (msg *MsgBlock) Deserialize(r io.Reader) error {
	return msg.BtcDecode(r, 0)
}
