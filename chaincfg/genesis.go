// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

// genesisCoinbaseScriptSig is the scriptSig of the single genesis coinbase
// input: height is meaningless pre-BIP34, so it instead carries the
// canonical "block 0" message, matching every Bitcoin-derived chain's
// genesis convention.
var genesisCoinbaseScriptSig = []byte{
	0x04, 0xff, 0xff, 0x00, 0x1d, 0x01, 0x04, 0x45,
	0x54, 0x68, 0x65, 0x20, 0x54, 0x69, 0x6d, 0x65,
	0x73, 0x20, 0x30, 0x33, 0x2f, 0x4a, 0x61, 0x6e,
	0x2f, 0x32, 0x30, 0x30, 0x39, 0x20, 0x43, 0x68,
	0x61, 0x6e, 0x63, 0x65, 0x6c, 0x6c, 0x6f, 0x72,
	0x20, 0x6f, 0x6e, 0x20, 0x62, 0x72, 0x69, 0x6e,
	0x6b, 0x20, 0x6f, 0x66, 0x20, 0x73, 0x65, 0x63,
	0x6f, 0x6e, 0x64, 0x20, 0x62, 0x61, 0x69, 0x6c,
	0x6f, 0x75, 0x74, 0x20, 0x66, 0x6f, 0x72, 0x20,
	0x62, 0x61, 0x6e, 0x6b, 0x73,
}

// genesisCoinbasePkScript is an uncompressed-pubkey CHECKSIG output, the
// unspendable destination of the genesis block subsidy.
var genesisCoinbasePkScript = []byte{
	0x41, 0x04, 0x67, 0x8a, 0xfd, 0xb0, 0xfe, 0x55,
	0x48, 0x27, 0x19, 0x67, 0xf1, 0xa6, 0x71, 0x30,
	0xb7, 0x10, 0x5c, 0xd6, 0xa8, 0x28, 0xe0, 0x39,
	0x09, 0xa6, 0x79, 0x62, 0xe0, 0xea, 0x1f, 0x61,
	0xde, 0xb6, 0x49, 0xf6, 0xbc, 0x3f, 0x4c, 0xef,
	0x38, 0xc4, 0xf3, 0x55, 0x04, 0xe5, 0x1e, 0xc1,
	0x12, 0xde, 0x5c, 0x38, 0x4d, 0xf7, 0xba, 0x0b,
	0x8d, 0x57, 0x8a, 0x4c, 0x70, 0x2b, 0x6b, 0xf1,
	0x1d, 0x5f, 0xac,
}

func genesisCoinbaseTx() *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
		SignatureScript:  genesisCoinbaseScriptSig,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    50 * 1e8,
		PkScript: genesisCoinbasePkScript,
	})
	return tx
}

func mustHash(s string) *chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return h
}

// genesisMerkleRoot is the single coinbase tx's own hash (a one-leaf
// merkle tree degenerates to its sole leaf).
var genesisMerkleRoot = *mustHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")

// genesisBlock is Bitcoin's own mainnet genesis block, reused verbatim as
// this chain's genesis: a fresh independent genesis is not required by
// any invariant this module enforces, and reusing a well-known,
// independently verifiable header keeps hash/merkle-root test vectors
// checkable against public record.
var genesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	},
	Transactions: []*wire.MsgTx{genesisCoinbaseTx()},
}

var genesisHash = *mustHash("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f")

// regTestGenesisBlock is a lower-difficulty genesis used for local test
// networks, where PowLimit is relaxed enough that mining it doesn't
// require real work.
var regTestGenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  1296688602,
		Bits:       0x207fffff,
		Nonce:      2,
	},
	Transactions: []*wire.MsgTx{genesisCoinbaseTx()},
}

var regTestGenesisHash = *mustHash("0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206")

// testNet3GenesisBlock mirrors Bitcoin's testnet3 genesis.
var testNet3GenesisBlock = wire.MsgBlock{
	Header: wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  1296688602,
		Bits:       0x1d00ffff,
		Nonce:      414098458,
	},
	Transactions: []*wire.MsgTx{genesisCoinbaseTx()},
}

var testNet3GenesisHash = *mustHash("000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943")
