// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// SigHashType represents the hash type bits appended to a DER signature,
// selecting which parts of the transaction the signature commits to.
type SigHashType uint32

const (
	SigHashOld          SigHashType = 0x0
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	sigHashMask = 0x1f
)

// TxSigHashes caches the three BIP143 midstate hashes (prevouts, sequence,
// outputs) so signing or verifying every input of a large segwit
// transaction does not redundantly re-hash the whole tx each time.
type TxSigHashes struct {
	HashPrevOuts chainhash.Hash
	HashSequence chainhash.Hash
	HashOutputs  chainhash.Hash
}

// NewTxSigHashes precomputes the midstate hashes for tx.
func NewTxSigHashes(tx *wire.MsgTx) *TxSigHashes {
	return &TxSigHashes{
		HashPrevOuts: calcHashPrevOuts(tx),
		HashSequence: calcHashSequence(tx),
		HashOutputs:  calcHashOutputs(tx),
	}
}

func calcHashPrevOuts(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		b.Write(in.PreviousOutPoint.Hash[:])
		var idx [4]byte
		putUint32LE(idx[:], in.PreviousOutPoint.Index)
		b.Write(idx[:])
	}
	return chainhash.DoubleHashH(b.Bytes())
}

func calcHashSequence(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		var seq [4]byte
		putUint32LE(seq[:], in.Sequence)
		b.Write(seq[:])
	}
	return chainhash.DoubleHashH(b.Bytes())
}

func calcHashOutputs(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, out := range tx.TxOut {
		var val [8]byte
		putUint64LE(val[:], uint64(out.Value))
		b.Write(val[:])
		writeVarBytesRaw(&b, out.PkScript)
	}
	return chainhash.DoubleHashH(b.Bytes())
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> uint(8*i))
	}
}

func writeVarBytesRaw(b *bytes.Buffer, data []byte) {
	writeVarIntRaw(b, uint64(len(data)))
	b.Write(data)
}

func writeVarIntRaw(b *bytes.Buffer, v uint64) {
	switch {
	case v < 0xfd:
		b.WriteByte(byte(v))
	case v <= 0xffff:
		b.WriteByte(0xfd)
		b.WriteByte(byte(v))
		b.WriteByte(byte(v >> 8))
	case v <= 0xffffffff:
		b.WriteByte(0xfe)
		for i := 0; i < 4; i++ {
			b.WriteByte(byte(v >> uint(8*i)))
		}
	default:
		b.WriteByte(0xff)
		for i := 0; i < 8; i++ {
			b.WriteByte(byte(v >> uint(8*i)))
		}
	}
}

// CalcSignatureHash computes the legacy (pre-segwit) sighash for txIdx's
// input, evaluated against subScript with the preceding OP_CODESEPARATORs
// trimmed and any opcode matching hashType's referenced outputs zeroed or
// dropped per the SIGHASH_* rules.
func CalcSignatureHash(subScript []byte, hashType SigHashType, tx *wire.MsgTx, txIdx int) (chainhash.Hash, error) {
	if txIdx >= len(tx.TxIn) || txIdx < 0 {
		return chainhash.Hash{}, errors.Errorf("invalid tx index %d for tx with %d inputs", txIdx, len(tx.TxIn))
	}

	subScript = removeOpcode(subScript, OP_CODESEPARATOR)

	txCopy := shallowCopyTx(tx)

	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = txCopy.TxIn[txIdx : txIdx+1]
		txCopy.TxIn[0].SignatureScript = subScript
	} else {
		for i := range txCopy.TxIn {
			if i == txIdx {
				txCopy.TxIn[i].SignatureScript = subScript
			} else {
				txCopy.TxIn[i].SignatureScript = nil
			}
		}
	}

	switch hashType & sigHashMask {
	case SigHashNone:
		txCopy.TxOut = txCopy.TxOut[0:0]
		for i := range txCopy.TxIn {
			if i != txIdx {
				txCopy.TxIn[i].Sequence = 0
			}
		}
	case SigHashSingle:
		if txIdx >= len(txCopy.TxOut) {
			return chainhash.Hash{}, errors.New("SIGHASH_SINGLE index out of range of outputs")
		}
		txCopy.TxOut = txCopy.TxOut[:txIdx+1]
		for i := 0; i < txIdx; i++ {
			txCopy.TxOut[i].Value = -1
			txCopy.TxOut[i].PkScript = nil
		}
		for i := range txCopy.TxIn {
			if i != txIdx {
				txCopy.TxIn[i].Sequence = 0
			}
		}
	default:
	}

	var b bytes.Buffer
	_ = txCopy.SerializeNoWitness(&b)
	var ht [4]byte
	putUint32LE(ht[:], uint32(hashType))
	b.Write(ht[:])

	return chainhash.DoubleHashH(b.Bytes()), nil
}

// shallowCopyTx makes a copy of tx whose TxIn/TxOut slices (and their
// pointees) may be mutated without affecting the original, used as the
// scratch space for sighash masking.
func shallowCopyTx(tx *wire.MsgTx) *wire.MsgTx {
	txCopy := &wire.MsgTx{Version: tx.Version, LockTime: tx.LockTime}
	txCopy.TxIn = make([]*wire.TxIn, len(tx.TxIn))
	for i, in := range tx.TxIn {
		cp := *in
		cp.Witness = nil
		txCopy.TxIn[i] = &cp
	}
	txCopy.TxOut = make([]*wire.TxOut, len(tx.TxOut))
	for i, out := range tx.TxOut {
		cp := *out
		txCopy.TxOut[i] = &cp
	}
	return txCopy
}

func removeOpcode(script []byte, opcodeVal byte) []byte {
	pops, err := parseScript(script)
	if err != nil {
		return script
	}
	var out []byte
	for _, pop := range pops {
		if pop.opcode.value == opcodeVal {
			continue
		}
		out = append(out, pop.opcode.value)
		if pop.data != nil {
			out = append(out, pop.data...)
		}
	}
	return out
}

// CalcWitnessSigHash computes the BIP143 sighash for a witness v0 input.
func CalcWitnessSigHash(subScript []byte, sigHashes *TxSigHashes, hashType SigHashType, tx *wire.MsgTx, txIdx int, amount int64) (chainhash.Hash, error) {
	if txIdx >= len(tx.TxIn) {
		return chainhash.Hash{}, errors.Errorf("invalid tx index %d for tx with %d inputs", txIdx, len(tx.TxIn))
	}

	var b bytes.Buffer
	var ver [4]byte
	putUint32LE(ver[:], uint32(tx.Version))
	b.Write(ver[:])

	var zero chainhash.Hash
	if hashType&SigHashAnyOneCanPay == 0 {
		b.Write(sigHashes.HashPrevOuts[:])
	} else {
		b.Write(zero[:])
	}

	if hashType&SigHashAnyOneCanPay == 0 && hashType&sigHashMask != SigHashSingle && hashType&sigHashMask != SigHashNone {
		b.Write(sigHashes.HashSequence[:])
	} else {
		b.Write(zero[:])
	}

	in := tx.TxIn[txIdx]
	b.Write(in.PreviousOutPoint.Hash[:])
	var idx [4]byte
	putUint32LE(idx[:], in.PreviousOutPoint.Index)
	b.Write(idx[:])

	writeVarBytesRaw(&b, removeOpcode(subScript, OP_CODESEPARATOR))

	var val [8]byte
	putUint64LE(val[:], uint64(amount))
	b.Write(val[:])

	var seq [4]byte
	putUint32LE(seq[:], in.Sequence)
	b.Write(seq[:])

	if hashType&sigHashMask != SigHashSingle && hashType&sigHashMask != SigHashNone {
		b.Write(sigHashes.HashOutputs[:])
	} else if hashType&sigHashMask == SigHashSingle && txIdx < len(tx.TxOut) {
		h := calcHashOutputs(&wire.MsgTx{TxOut: []*wire.TxOut{tx.TxOut[txIdx]}})
		b.Write(h[:])
	} else {
		b.Write(zero[:])
	}

	var lt [4]byte
	putUint32LE(lt[:], tx.LockTime)
	b.Write(lt[:])

	var ht [4]byte
	putUint32LE(ht[:], uint32(hashType))
	b.Write(ht[:])

	return chainhash.DoubleHashH(b.Bytes()), nil
}

// checkHashTypeEncoding enforces, under STRICTENC, that a signature's
// trailing hash-type byte names one of the four recognized modes (with or
// without ANYONECANPAY).
func checkHashTypeEncoding(hashType SigHashType, flags ScriptFlags) error {
	if !flags.HasFlag(ScriptVerifyStrictEncoding) {
		return nil
	}
	sh := hashType &^ SigHashAnyOneCanPay
	if sh < SigHashAll || sh > SigHashSingle {
		return scriptError(ErrSigHashType, "invalid hash type 0x%x", uint32(hashType))
	}
	return nil
}

// checkSignatureEncoding enforces strict DER (BIP66) and, if flagged,
// low-S (BIP62 rule 5) on a raw (hash-type-suffixed) ECDSA signature.
func checkSignatureEncoding(sig []byte, flags ScriptFlags) error {
	if len(sig) == 0 {
		return nil
	}
	rawSig := sig[:len(sig)-1]
	if flags.HasFlag(ScriptVerifyDERSignatures) || flags.HasFlag(ScriptVerifyLowS) {
		if err := verifyStrictDER(rawSig); err != nil {
			return err
		}
	}
	if flags.HasFlag(ScriptVerifyLowS) {
		if _, err := ecdsa.ParseDERSignature(rawSig); err != nil {
			return scriptError(ErrSigDER, "invalid signature: %v", err)
		}
		if sigHasHighS(rawSig) {
			return scriptError(ErrSigHighS, "signature has high S value")
		}
	}
	return checkHashTypeEncoding(SigHashType(sig[len(sig)-1]), flags)
}

// halfOrder is secp256k1's group order N divided by two, the BIP62 rule 5
// low-S threshold: a valid signature's S must not exceed it.
var halfOrder = func() *big.Int {
	n := new(big.Int).Set(btcec.S256().N)
	return n.Rsh(n, 1)
}()

// sigHasHighS reports whether the already DER-validated rawSig's S value
// exceeds halfOrder.
func sigHasHighS(rawSig []byte) bool {
	rLen := int(rawSig[3])
	sOff := 4 + rLen + 2
	sLen := int(rawSig[4+rLen+1])
	if sOff+sLen > len(rawSig) {
		return false
	}
	s := new(big.Int).SetBytes(rawSig[sOff : sOff+sLen])
	return s.Cmp(halfOrder) > 0
}

// verifyStrictDER performs the BIP66 strict-DER structural check
// (independent of low-S), rejecting any signature with extra bytes,
// wrong component tags, leading zero padding, or a non-positive R/S.
func verifyStrictDER(sig []byte) error {
	const (
		minSigLen = 8
		maxSigLen = 72
	)
	if len(sig) < minSigLen {
		return scriptError(ErrSigDER, "malformed signature: too short")
	}
	if len(sig) > maxSigLen {
		return scriptError(ErrSigDER, "malformed signature: too long")
	}
	if sig[0] != 0x30 {
		return scriptError(ErrSigDER, "malformed signature: wrong type")
	}
	if int(sig[1]) != len(sig)-2 {
		return scriptError(ErrSigDER, "malformed signature: bad length")
	}
	rLen := int(sig[3])
	if 5+rLen >= len(sig) {
		return scriptError(ErrSigDER, "malformed signature: R length out of bounds")
	}
	sTypeOff := 4 + rLen
	if sig[2] != 0x02 {
		return scriptError(ErrSigDER, "malformed signature: R tag")
	}
	if rLen == 0 {
		return scriptError(ErrSigDER, "malformed signature: zero-length R")
	}
	if sig[4]&0x80 != 0 {
		return scriptError(ErrSigDER, "malformed signature: negative R")
	}
	if rLen > 1 && sig[4] == 0 && sig[5]&0x80 == 0 {
		return scriptError(ErrSigDER, "malformed signature: R padded with excess leading zero")
	}
	if sig[sTypeOff] != 0x02 {
		return scriptError(ErrSigDER, "malformed signature: S tag")
	}
	sLen := int(sig[sTypeOff+1])
	if sLen == 0 {
		return scriptError(ErrSigDER, "malformed signature: zero-length S")
	}
	if sTypeOff+2+sLen != len(sig) {
		return scriptError(ErrSigDER, "malformed signature: S length out of bounds")
	}
	if sig[sTypeOff+2]&0x80 != 0 {
		return scriptError(ErrSigDER, "malformed signature: negative S")
	}
	if sLen > 1 && sig[sTypeOff+2] == 0 && sig[sTypeOff+3]&0x80 == 0 {
		return scriptError(ErrSigDER, "malformed signature: S padded with excess leading zero")
	}
	return nil
}

// checkPubKeyEncoding enforces, under STRICTENC, that pubKey is a valid
// 33-byte compressed or 65-byte uncompressed SEC1 encoding.
// ScriptVerifyWitnessPubKeyType is checked independently of STRICTENC: it
// is its own flag and applies only inside witness execution.
func checkPubKeyEncoding(pubKey []byte, flags ScriptFlags) error {
	if flags.HasFlag(ScriptVerifyWitnessPubKeyType) && len(pubKey) != 33 {
		return scriptError(ErrWitnessPubKeyType, "only compressed pubkeys allowed in witness execution")
	}
	if !flags.HasFlag(ScriptVerifyStrictEncoding) {
		return nil
	}
	switch len(pubKey) {
	case 33:
		if pubKey[0] != 0x02 && pubKey[0] != 0x03 {
			return scriptError(ErrPubKeyType, "invalid compressed pubkey prefix 0x%x", pubKey[0])
		}
		return nil
	case 65:
		if pubKey[0] != 0x04 {
			return scriptError(ErrPubKeyType, "invalid uncompressed pubkey prefix 0x%x", pubKey[0])
		}
		return nil
	default:
		return scriptError(ErrPubKeyType, "invalid pubkey length %d", len(pubKey))
	}
}

// RawTxInSignature signs hash with privKey and returns the DER signature
// with hashType appended, the form a scriptSig/witness embeds.
func RawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte, hashType SigHashType, privKey *btcec.PrivateKey) ([]byte, error) {
	hash, err := CalcSignatureHash(subScript, hashType, tx, idx)
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(privKey, hash[:])
	return append(sig.Serialize(), byte(hashType)), nil
}

// RawTxInWitnessSignature signs the BIP143 sighash for a witness v0 input.
func RawTxInWitnessSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int, amount int64, subScript []byte, hashType SigHashType, privKey *btcec.PrivateKey) ([]byte, error) {
	hash, err := CalcWitnessSigHash(subScript, sigHashes, hashType, tx, idx, amount)
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(privKey, hash[:])
	return append(sig.Serialize(), byte(hashType)), nil
}
