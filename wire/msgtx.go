// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainhash"
)

// TxVersion is the version used for new transactions this node creates.
const TxVersion = 2

// segwit marker/flag bytes: present only when at least one input carries a
// non-empty witness.
const (
	witnessMarker = 0x00
	witnessFlag   = 0x01
)

// MaxTxInSequenceNum is the highest sequence number. Transactions whose
// every input carries it are final regardless of locktime.
const MaxTxInSequenceNum uint32 = 0xffffffff

// SequenceLockTimeDisabled, when set on TxIn.Sequence, disables the
// relative-locktime (BIP68/112) interpretation of the remaining bits.
const SequenceLockTimeDisabled = 1 << 31

// SequenceLockTimeIsSeconds, when set, causes the low 16 bits of Sequence to
// be read in units of 512 seconds rather than blocks (BIP68/112).
const SequenceLockTimeIsSeconds = 1 << 22

// SequenceLockTimeMask masks the relative lock-time value out of Sequence.
const SequenceLockTimeMask = 0x0000ffff

// OutPoint defines a reference to a specific transaction output.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new outpoint.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{Hash: *hash, Index: index}
}

func (o OutPoint) String() string {
	return o.Hash.String() + ":" + itoaUint32(o.Index)
}

// TxWitness is the witness stack carried by a segwit input: a sequence of
// varint-prefixed byte strings.
type TxWitness [][]byte

// SerializeSize returns the number of bytes the witness occupies on the wire.
func (w TxWitness) SerializeSize() int {
	n := VarIntSerializeSize(uint64(len(w)))
	for _, item := range w {
		n += VarIntSerializeSize(uint64(len(item))) + len(item)
	}
	return n
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          TxWitness
	Sequence         uint32
}

// SerializeSize returns the legacy (witness-excluded) serialized size.
func (t *TxIn) SerializeSize() int {
	return 40 + VarIntSerializeSize(uint64(len(t.SignatureScript))) + len(t.SignatureScript)
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// SerializeSize returns the serialized size of the output.
func (t *TxOut) SerializeSize() int {
	return 8 + VarIntSerializeSize(uint64(len(t.PkScript))) + len(t.PkScript)
}

// MsgTx implements the bitcoin tx message: an immutable-by-convention wire
// transaction, with HasWitness/segwit framing support and a lazily computed,
// cached txid/wtxid.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32

	cachedTxID  *chainhash.Hash
	cachedWTxID *chainhash.Hash
}

// NewMsgTx returns a new, empty transaction of the given version.
func NewMsgTx(version int32) *MsgTx {
	return &MsgTx{Version: version}
}

// HasWitness reports whether any input carries a non-empty witness.
func (msg *MsgTx) HasWitness() bool {
	for _, txIn := range msg.TxIn {
		if len(txIn.Witness) > 0 {
			return true
		}
	}
	return false
}

// AddTxIn adds a transaction input, invalidating cached hashes.
func (msg *MsgTx) AddTxIn(ti *TxIn) {
	msg.TxIn = append(msg.TxIn, ti)
	msg.invalidateCache()
}

// AddTxOut adds a transaction output, invalidating cached hashes.
func (msg *MsgTx) AddTxOut(to *TxOut) {
	msg.TxOut = append(msg.TxOut, to)
	msg.invalidateCache()
}

func (msg *MsgTx) invalidateCache() {
	msg.cachedTxID = nil
	msg.cachedWTxID = nil
}

// TxHash returns the double-SHA256 of the transaction serialized without
// witness data (the legacy txid). The result is cached on the struct; it is
// invalidated by AddTxIn/AddTxOut, which is sufficient for the builder (MTX)
// usage pattern of mutate-then-finalize.
func (msg *MsgTx) TxHash() chainhash.Hash {
	if msg.cachedTxID != nil {
		return *msg.cachedTxID
	}
	var buf bytes.Buffer
	_ = msg.serialize(&buf, false)
	h := chainhash.DoubleHashH(buf.Bytes())
	msg.cachedTxID = &h
	return h
}

// WitnessHash returns the double-SHA256 of the full (witness-included)
// serialization, the wtxid used to identify a transaction for relay
// deduplication and the witness commitment.
func (msg *MsgTx) WitnessHash() chainhash.Hash {
	if !msg.HasWitness() {
		return msg.TxHash()
	}
	if msg.cachedWTxID != nil {
		return *msg.cachedWTxID
	}
	var buf bytes.Buffer
	_ = msg.serialize(&buf, true)
	h := chainhash.DoubleHashH(buf.Bytes())
	msg.cachedWTxID = &h
	return h
}

// Command returns the protocol command string for a transaction message.
func (msg *MsgTx) Command() string { return CmdTx }

// MaxPayloadLength returns the maximum size a tx payload may have.
func (msg *MsgTx) MaxPayloadLength(pver uint32) uint32 { return MaxMessagePayload }

// BtcEncode writes the full (witness-included, if present) wire serialization.
func (msg *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	return msg.serialize(w, msg.HasWitness())
}

// BtcDecode reads a transaction, auto-detecting the segwit marker/flag.
func (msg *MsgTx) BtcDecode(r io.Reader, pver uint32) error {
	return msg.deserialize(r)
}

// Serialize writes the canonical (witness included when present) encoding.
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.serialize(w, msg.HasWitness())
}

// SerializeNoWitness writes the legacy, pre-segwit encoding used to compute
// the legacy txid and as the base of the legacy (pre-BIP143) sighash.
func (msg *MsgTx) SerializeNoWitness(w io.Writer) error {
	return msg.serialize(w, false)
}

// Deserialize reads a transaction from r.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	return msg.deserialize(r)
}

func (msg *MsgTx) serialize(w io.Writer, withWitness bool) error {
	if err := writeElement(w, msg.Version); err != nil {
		return err
	}
	if withWitness {
		if _, err := w.Write([]byte{witnessMarker, witnessFlag}); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if err := WriteHash(w, &ti.PreviousOutPoint.Hash); err != nil {
			return err
		}
		if err := writeElement(w, ti.PreviousOutPoint.Index); err != nil {
			return err
		}
		if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		if err := writeElement(w, ti.Sequence); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		if err := writeElement(w, to.Value); err != nil {
			return err
		}
		if err := WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}
	if withWitness {
		for _, ti := range msg.TxIn {
			if err := WriteVarInt(w, uint64(len(ti.Witness))); err != nil {
				return err
			}
			for _, item := range ti.Witness {
				if err := WriteVarBytes(w, item); err != nil {
					return err
				}
			}
		}
	}
	return writeElement(w, msg.LockTime)
}

func (msg *MsgTx) deserialize(r io.Reader) error {
	if err := readElement(r, &msg.Version); err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}

	withWitness := false
	if count == 0 {
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return err
		}
		if flag[0] != witnessFlag {
			return errors.New("witness tx but flag byte is not 0x01")
		}
		withWitness = true
		count, err = ReadVarInt(r)
		if err != nil {
			return err
		}
	}

	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		ti := &TxIn{}
		if err := ReadHash(r, &ti.PreviousOutPoint.Hash); err != nil {
			return err
		}
		if err := readElement(r, &ti.PreviousOutPoint.Index); err != nil {
			return err
		}
		ti.SignatureScript, err = ReadVarBytes(r, MaxMessagePayload, "signature script")
		if err != nil {
			return err
		}
		if err := readElement(r, &ti.Sequence); err != nil {
			return err
		}
		msg.TxIn[i] = ti
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := &TxOut{}
		if err := readElement(r, &to.Value); err != nil {
			return err
		}
		to.PkScript, err = ReadVarBytes(r, MaxMessagePayload, "pk script")
		if err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	if withWitness {
		for _, ti := range msg.TxIn {
			witCount, err := ReadVarInt(r)
			if err != nil {
				return err
			}
			ti.Witness = make(TxWitness, witCount)
			for j := range ti.Witness {
				ti.Witness[j], err = ReadVarBytes(r, MaxMessagePayload, "witness item")
				if err != nil {
					return err
				}
			}
		}
	}

	return readElement(r, &msg.LockTime)
}

func itoaUint32(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
