// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"
)

// MaxUserAgentLen is the maximum allowed length for the user agent field in
// a version message.
const MaxUserAgentLen = 256

// MsgVersion implements the Message interface for the "version" handshake
// message: the first message either side of a connection sends.
type MsgVersion struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       int64
	AddrYou         NetAddress
	AddrMe          NetAddress
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
	// DisableRelayTx is the inverse of the wire "relay" byte: when true,
	// the remote peer should not relay txs to us until it receives a
	// filterload/filterclear (BIP37).
	DisableRelayTx bool
}

func (msg *MsgVersion) Command() string { return CmdVersion }

func (msg *MsgVersion) MaxPayloadLength(pver uint32) uint32 {
	return 4 + 8 + 8 + maxNetAddressPayload*2 + 8 + uint32(VarIntSerializeSize(MaxUserAgentLen)) + MaxUserAgentLen + 4 + 1
}

func (msg *MsgVersion) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeElement(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := writeElement(w, msg.Services); err != nil {
		return err
	}
	if err := writeElement(w, msg.Timestamp); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := writeNetAddress(w, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := writeElement(w, msg.Nonce); err != nil {
		return err
	}
	if len(msg.UserAgent) > MaxUserAgentLen {
		return errors.Errorf("user agent too long [len %d, max %d]", len(msg.UserAgent), MaxUserAgentLen)
	}
	if err := WriteVarString(w, msg.UserAgent); err != nil {
		return err
	}
	if err := writeElement(w, msg.LastBlock); err != nil {
		return err
	}
	return writeElement(w, !msg.DisableRelayTx)
}

func (msg *MsgVersion) BtcDecode(r io.Reader, pver uint32) error {
	if err := readElement(r, &msg.ProtocolVersion); err != nil {
		return err
	}
	if err := readElement(r, &msg.Services); err != nil {
		return err
	}
	if err := readElement(r, &msg.Timestamp); err != nil {
		return err
	}
	if err := readNetAddress(r, &msg.AddrYou, false); err != nil {
		return err
	}
	if err := readNetAddress(r, &msg.AddrMe, false); err != nil {
		return err
	}
	if err := readElement(r, &msg.Nonce); err != nil {
		return err
	}
	ua, err := ReadVarString(r, MaxUserAgentLen)
	if err != nil {
		return err
	}
	msg.UserAgent = ua
	if err := readElement(r, &msg.LastBlock); err != nil {
		return err
	}
	relay := true
	if err := readElement(r, &relay); err != nil {
		// Relay byte is optional on old protocol versions; absence at
		// EOF is not an error.
		if err == io.EOF {
			msg.DisableRelayTx = false
			return nil
		}
		return err
	}
	msg.DisableRelayTx = !relay
	return nil
}

// NewMsgVersion returns a new version message populated from the passed
// parameters.
func NewMsgVersion(me, you *NetAddress, nonce uint64, lastBlock int32) *MsgVersion {
	return &MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Services:        0,
		Timestamp:       0,
		AddrYou:         *you,
		AddrMe:          *me,
		Nonce:           nonce,
		UserAgent:       DefaultUserAgent,
		LastBlock:       lastBlock,
	}
}

// DefaultUserAgent identifies this implementation on the wire.
const DefaultUserAgent = "/bcoin:0.1.0/"

// AddUserAgent appends name/version to the user agent in BIP14 form.
func (msg *MsgVersion) AddUserAgent(name, version string) {
	newUA := msg.UserAgent + name + ":" + version + "/"
	if msg.UserAgent == "" {
		newUA = "/" + name + ":" + version + "/"
	}
	msg.UserAgent = newUA
}
