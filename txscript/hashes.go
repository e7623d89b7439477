// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha1"
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // HASH160 primitive, assumed available per spec scope

	"github.com/dworznik/bcoin/chainhash"
)

func sha256Sum(b []byte) [32]byte { return sha256.Sum256(b) }

func sha1Sum(b []byte) [20]byte { return sha1.Sum(b) }

func ripemd160Sum(b []byte) []byte {
	h := ripemd160.New()
	h.Write(b)
	return h.Sum(nil)
}

// hash160 computes RIPEMD160(SHA256(b)), Bitcoin's standard pubkey/script
// hash (OP_HASH160, and the basis for P2PKH/P2SH/P2WPKH addresses).
func hash160(b []byte) []byte { return chainhash.Hash160(b) }

// hash256 computes SHA256(SHA256(b)) (OP_HASH256).
func hash256(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], chainhash.DoubleHashB(b))
	return out
}
