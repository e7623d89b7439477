// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 32-byte double-SHA256 hash type used
// throughout the wire protocol, chain store, and script interpreter, plus
// the HASH160 (SHA-256 then RIPEMD-160) helper used by P2PKH/P2SH scripts.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // HASH160 primitive, assumed available per spec scope
)

// HashSize is the size in bytes of a hash produced by DoubleHashB.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// Hash is a 32-byte array used mainly to represent a double sha256 hash.
// Internally the bytes are stored in the order the hash function produces
// them; when displayed to a user they are reversed per Bitcoin convention.
type Hash [HashSize]byte

// String returns the Hash as the reversed, hex-encoded string.
func (hash Hash) String() string {
	for i := 0; i < HashSize/2; i++ {
		hash[i], hash[HashSize-1-i] = hash[HashSize-1-i], hash[i]
	}
	return hex.EncodeToString(hash[:])
}

// CloneBytes returns a copy of the bytes which represent the hash as a byte
// slice.
func (hash *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, hash[:])
	return newHash
}

// SetBytes sets the bytes which represent the hash. An error is returned if
// the number of bytes passed in is not HashSize.
func (hash *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return errHashLen(len(newHash))
	}
	copy(hash[:], newHash)
	return nil
}

// IsEqual returns true if target is the same as the hash.
func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

// NewHash returns a new Hash from a byte slice.
func NewHash(newHash []byte) (*Hash, error) {
	var hash Hash
	if err := hash.SetBytes(newHash); err != nil {
		return nil, err
	}
	return &hash, nil
}

// NewHashFromStr creates a Hash from a reversed hex hash string.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	if err := Decode(ret, hash); err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the reversed hex string encoding of a Hash into dst.
func Decode(dst *Hash, src string) error {
	if len(src) > MaxHashStringSize {
		return errHashStrSize(len(src))
	}
	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}
	var reversedHash Hash
	_, err := hex.Decode(reversedHash[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return err
	}
	for i, b := range reversedHash[:HashSize/2] {
		reversedHash[i], reversedHash[HashSize-1-i] = reversedHash[HashSize-1-i], b
	}
	*dst = reversedHash
	return nil
}

// DoubleHashB calculates sha256(sha256(b)) and returns the resulting bytes.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH calculates sha256(sha256(b)) and returns the resulting bytes as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// Hash160 calculates ripemd160(sha256(b)), the address-hash used by P2PKH
// and P2SH scripts.
func Hash160(b []byte) []byte {
	shaSum := sha256.Sum256(b)
	ripe := ripemd160.New()
	ripe.Write(shaSum[:])
	return ripe.Sum(nil)
}

type errHashLen int

func (e errHashLen) Error() string {
	return "invalid hash length " + strconv.Itoa(int(e)) + ", want " + strconv.Itoa(HashSize)
}

type errHashStrSize int

func (e errHashStrSize) Error() string {
	return "max hash string length is " + strconv.Itoa(MaxHashStringSize) + " bytes"
}
