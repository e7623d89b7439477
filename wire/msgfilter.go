// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainhash"
)

// BloomUpdateType controls how a matching output updates a loaded bloom
// filter (BIP37).
type BloomUpdateType uint8

const (
	BloomUpdateNone         BloomUpdateType = 0
	BloomUpdateAll          BloomUpdateType = 1
	BloomUpdateP2PubkeyOnly BloomUpdateType = 2
)

// MaxFilterLoadHashFuncs and MaxFilterLoadFilterSize bound a filterload
// payload so a hostile peer cannot force an oversized allocation.
const (
	MaxFilterLoadHashFuncs  = 50
	MaxFilterLoadFilterSize = 36000
)

// MsgFilterLoad implements Message for the "filterload" BIP37 request:
// install an opaque bloom filter the peer should test every relayed tx
// and block transaction against before deciding to send a
// "merkleblock"/filtered tx instead of the full item. Matching logic
// itself is out of scope here: this node treats Filter as an
// opaque predicate via the bloom.Filter interface it is handed to.
type MsgFilterLoad struct {
	Filter    []byte
	HashFuncs uint32
	Tweak     uint32
	Flags     BloomUpdateType
}

func (msg *MsgFilterLoad) Command() string { return CmdFilterLoad }

func (msg *MsgFilterLoad) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(MaxFilterLoadFilterSize)) + MaxFilterLoadFilterSize + 9
}

func (msg *MsgFilterLoad) BtcEncode(w io.Writer, pver uint32) error {
	if len(msg.Filter) > MaxFilterLoadFilterSize {
		return errors.Errorf("filterload filter size too large [len %d, max %d]", len(msg.Filter), MaxFilterLoadFilterSize)
	}
	if msg.HashFuncs > MaxFilterLoadHashFuncs {
		return errors.Errorf("filterload hash func count too large [%d, max %d]", msg.HashFuncs, MaxFilterLoadHashFuncs)
	}
	if err := WriteVarBytes(w, msg.Filter); err != nil {
		return err
	}
	if err := writeElement(w, msg.HashFuncs); err != nil {
		return err
	}
	if err := writeElement(w, msg.Tweak); err != nil {
		return err
	}
	return writeElement(w, msg.Flags)
}

func (msg *MsgFilterLoad) BtcDecode(r io.Reader, pver uint32) error {
	filter, err := ReadVarBytes(r, MaxFilterLoadFilterSize, "filterload filter")
	if err != nil {
		return err
	}
	msg.Filter = filter
	if err := readElement(r, &msg.HashFuncs); err != nil {
		return err
	}
	if msg.HashFuncs > MaxFilterLoadHashFuncs {
		return errors.Errorf("filterload hash func count too large [%d, max %d]", msg.HashFuncs, MaxFilterLoadHashFuncs)
	}
	if err := readElement(r, &msg.Tweak); err != nil {
		return err
	}
	return readElement(r, &msg.Flags)
}

// MsgFilterAdd implements Message for the "filteradd" BIP37 request: add a
// single data element to the currently loaded bloom filter.
type MsgFilterAdd struct {
	Data []byte
}

func (msg *MsgFilterAdd) Command() string { return CmdFilterAdd }

func (msg *MsgFilterAdd) MaxPayloadLength(pver uint32) uint32 {
	return uint32(VarIntSerializeSize(520)) + 520
}

func (msg *MsgFilterAdd) BtcEncode(w io.Writer, pver uint32) error {
	return WriteVarBytes(w, msg.Data)
}

func (msg *MsgFilterAdd) BtcDecode(r io.Reader, pver uint32) error {
	data, err := ReadVarBytes(r, 520, "filteradd data")
	if err != nil {
		return err
	}
	msg.Data = data
	return nil
}

// MsgMerkleBlock implements Message for the "merkleblock" BIP37 response:
// a header plus a partial merkle tree proving membership of the
// filter-matched transactions, whose hashes are listed separately.
type MsgMerkleBlock struct {
	Header       BlockHeader
	Transactions uint32
	Hashes       []*chainhash.Hash
	Flags        []byte
}

func (msg *MsgMerkleBlock) Command() string { return CmdMerkleBlock }

func (msg *MsgMerkleBlock) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

func (msg *MsgMerkleBlock) BtcEncode(w io.Writer, pver uint32) error {
	if err := msg.Header.Serialize(w); err != nil {
		return err
	}
	if err := writeElement(w, msg.Transactions); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(msg.Hashes))); err != nil {
		return err
	}
	for _, hash := range msg.Hashes {
		if err := WriteHash(w, hash); err != nil {
			return err
		}
	}
	return WriteVarBytes(w, msg.Flags)
}

func (msg *MsgMerkleBlock) BtcDecode(r io.Reader, pver uint32) error {
	if err := msg.Header.Deserialize(r); err != nil {
		return err
	}
	if err := readElement(r, &msg.Transactions); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > uint64(MaxBlockHeadersPerMsg) {
		return errors.Errorf("too many merkle hashes [count %d]", count)
	}
	msg.Hashes = make([]*chainhash.Hash, count)
	for i := range msg.Hashes {
		hash := &chainhash.Hash{}
		if err := ReadHash(r, hash); err != nil {
			return err
		}
		msg.Hashes[i] = hash
	}
	flags, err := ReadVarBytes(r, MaxMessagePayload, "merkleblock flags")
	if err != nil {
		return err
	}
	msg.Flags = flags
	return nil
}
