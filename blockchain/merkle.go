// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// calcMerkleRoot builds a Bitcoin-style merkle tree over hashes (duplicating
// the last element of any odd-length level) and returns the root. An empty
// input returns the zero hash.
func calcMerkleRoot(hashes []chainhash.Hash) chainhash.Hash {
	if len(hashes) == 0 {
		return chainhash.Hash{}
	}
	level := make([]chainhash.Hash, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := 0; i < len(next); i++ {
			var buf [64]byte
			copy(buf[:32], level[2*i][:])
			copy(buf[32:], level[2*i+1][:])
			next[i] = chainhash.DoubleHashH(buf[:])
		}
		level = next
	}
	return level[0]
}

// blockMerkleRoot computes the merkle root of a block's transaction IDs
// (legacy, non-witness).
func blockMerkleRoot(block *wire.MsgBlock) chainhash.Hash {
	hashes := make([]chainhash.Hash, len(block.Transactions))
	for i, tx := range block.Transactions {
		hashes[i] = tx.TxHash()
	}
	return calcMerkleRoot(hashes)
}

// witnessCommitmentMerkleRoot computes the root over wtxids with the
// coinbase's wtxid replaced by the zero hash, per BIP141.
func witnessCommitmentMerkleRoot(block *wire.MsgBlock) chainhash.Hash {
	hashes := make([]chainhash.Hash, len(block.Transactions))
	for i, tx := range block.Transactions {
		if i == 0 {
			hashes[i] = chainhash.Hash{}
			continue
		}
		hashes[i] = tx.WitnessHash()
	}
	return calcMerkleRoot(hashes)
}

// witnessCommitmentScript builds the OP_RETURN output script committing to
// witnessRoot||witnessNonce, per BIP141's coinbase commitment structure.
func witnessCommitmentScript(witnessRoot chainhash.Hash, witnessNonce [32]byte) []byte {
	var buf [32]byte
	copy(buf[:], witnessRoot[:])
	var preimage [64]byte
	copy(preimage[:32], buf[:])
	copy(preimage[32:], witnessNonce[:])
	commitment := chainhash.DoubleHashB(preimage[:])

	script := make([]byte, 0, 38)
	script = append(script, 0x6a, 0x24, 0xaa, 0x21, 0xa9, 0xed)
	script = append(script, commitment...)
	return script
}
