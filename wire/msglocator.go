// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainhash"
)

// MaxBlockLocatorsPerMsg is the maximum number of block locator hashes
// allowed per message.
const MaxBlockLocatorsPerMsg = 500

// locatorMsg is the shared shape of "getblocks" and "getheaders": a
// protocol version, an exponentially-spaced locator, and a
// stop hash (all-zero meaning "as many as fit").
type locatorMsg struct {
	ProtocolVersion    uint32
	BlockLocatorHashes []*chainhash.Hash
	HashStop           chainhash.Hash
}

func (m *locatorMsg) addLocatorHash(hash *chainhash.Hash) error {
	if len(m.BlockLocatorHashes)+1 > MaxBlockLocatorsPerMsg {
		return errors.Errorf("too many block locator hashes [max %d]", MaxBlockLocatorsPerMsg)
	}
	m.BlockLocatorHashes = append(m.BlockLocatorHashes, hash)
	return nil
}

func (m *locatorMsg) encode(w io.Writer) error {
	if len(m.BlockLocatorHashes) > MaxBlockLocatorsPerMsg {
		return errors.Errorf("too many block locator hashes for message [max %d]", MaxBlockLocatorsPerMsg)
	}
	if err := writeElement(w, m.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(m.BlockLocatorHashes))); err != nil {
		return err
	}
	for _, hash := range m.BlockLocatorHashes {
		if err := WriteHash(w, hash); err != nil {
			return err
		}
	}
	return WriteHash(w, &m.HashStop)
}

func (m *locatorMsg) decode(r io.Reader) error {
	if err := readElement(r, &m.ProtocolVersion); err != nil {
		return err
	}
	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > MaxBlockLocatorsPerMsg {
		return errors.Errorf("too many block locator hashes [count %d, max %d]", count, MaxBlockLocatorsPerMsg)
	}
	m.BlockLocatorHashes = make([]*chainhash.Hash, count)
	for i := range m.BlockLocatorHashes {
		hash := &chainhash.Hash{}
		if err := ReadHash(r, hash); err != nil {
			return err
		}
		m.BlockLocatorHashes[i] = hash
	}
	return ReadHash(r, &m.HashStop)
}

func (m *locatorMsg) maxPayloadLength() uint32 {
	return 4 + uint32(VarIntSerializeSize(MaxBlockLocatorsPerMsg)) + MaxBlockLocatorsPerMsg*chainhash.HashSize + chainhash.HashSize
}

// MsgGetBlocks implements Message for the "getblocks" request used in
// blocks-first sync: respond with an "inv" of up to 500 block hashes
// descending from the locator.
type MsgGetBlocks struct{ locatorMsg }

func (msg *MsgGetBlocks) Command() string                         { return CmdGetBlocks }
func (msg *MsgGetBlocks) MaxPayloadLength(pver uint32) uint32      { return msg.maxPayloadLength() }
func (msg *MsgGetBlocks) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w) }
func (msg *MsgGetBlocks) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r) }
func (msg *MsgGetBlocks) AddBlockLocatorHash(hash *chainhash.Hash) error {
	return msg.addLocatorHash(hash)
}

// NewMsgGetBlocks returns a new getblocks message stopping at hashStop.
func NewMsgGetBlocks(hashStop *chainhash.Hash) *MsgGetBlocks {
	return &MsgGetBlocks{locatorMsg{
		ProtocolVersion:    ProtocolVersion,
		BlockLocatorHashes: make([]*chainhash.Hash, 0, MaxBlockLocatorsPerMsg),
		HashStop:           *hashStop,
	}}
}

// MsgGetHeaders implements Message for the "getheaders" request used in
// headers-first sync: respond with up to 2000 headers descending from the
// locator.
type MsgGetHeaders struct{ locatorMsg }

func (msg *MsgGetHeaders) Command() string                         { return CmdGetHeaders }
func (msg *MsgGetHeaders) MaxPayloadLength(pver uint32) uint32      { return msg.maxPayloadLength() }
func (msg *MsgGetHeaders) BtcEncode(w io.Writer, pver uint32) error { return msg.encode(w) }
func (msg *MsgGetHeaders) BtcDecode(r io.Reader, pver uint32) error { return msg.decode(r) }
func (msg *MsgGetHeaders) AddBlockLocatorHash(hash *chainhash.Hash) error {
	return msg.addLocatorHash(hash)
}

// NewMsgGetHeaders returns a new getheaders message stopping at hashStop.
func NewMsgGetHeaders(hashStop *chainhash.Hash) *MsgGetHeaders {
	return &MsgGetHeaders{locatorMsg{
		ProtocolVersion:    ProtocolVersion,
		BlockLocatorHashes: make([]*chainhash.Hash, 0, MaxBlockLocatorsPerMsg),
		HashStop:           *hashStop,
	}}
}
