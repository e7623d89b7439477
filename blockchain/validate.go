// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/dworznik/bcoin/chaincfg"
	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/txscript"
	"github.com/dworznik/bcoin/wire"
)

// MaxBlockWeight is the maximum scaled block weight, per BIP141.
const MaxBlockWeight = 4_000_000

// WitnessScaleFactor discounts witness bytes when computing weight.
const WitnessScaleFactor = 4

// MaxBlockSigOpsCost is the per-block limit on total sigop cost.
const MaxBlockSigOpsCost = 80_000

// blockWeight computes a block's weight: 3*baseSize + totalSize, the
// BIP141 formula that makes witness bytes a quarter as expensive.
func blockWeight(block *wire.MsgBlock) int64 {
	var baseSize, totalSize int64
	for _, tx := range block.Transactions {
		var buf countingWriter
		_ = tx.SerializeNoWitness(&buf)
		baseSize += int64(buf.n)
		var wbuf countingWriter
		_ = tx.Serialize(&wbuf)
		totalSize += int64(wbuf.n)
	}
	return baseSize*(WitnessScaleFactor-1) + totalSize
}

// countingWriter discards bytes, counting only how many were written; used
// to size-check serialized forms without allocating the buffer.
type countingWriter struct{ n int }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

// checkProofOfWork verifies header's hash satisfies the target encoded in
// its bits field and that bits itself does not exceed powLimit.
func checkProofOfWork(header *wire.BlockHeader, powLimit *big.Int) error {
	target := compactToBig(header.Bits)
	if target.Sign() <= 0 {
		return ruleError(ErrBadPOW, "block target difficulty is non-positive")
	}
	if target.Cmp(powLimit) > 0 {
		return ruleError(ErrBadPOW, "block target difficulty is higher than max allowed")
	}

	hash := header.BlockHash()
	hashNum := chainhashToBig(&hash)
	if hashNum.Cmp(target) > 0 {
		return ruleError(ErrBadPOW, fmt.Sprintf("block hash %s is higher than expected target", hash))
	}
	return nil
}

// chainhashToBig interprets hash as a little-endian unsigned integer, the
// same convention compact targets are compared under.
func chainhashToBig(hash *chainhash.Hash) *big.Int {
	buf := make([]byte, chainhash.HashSize)
	for i := 0; i < chainhash.HashSize; i++ {
		buf[i] = hash[chainhash.HashSize-1-i]
	}
	return new(big.Int).SetBytes(buf)
}

// checkHeaderSanity performs context-free checks on a header: POW and the
// maximum-future-time bound. Retarget/median-time-past checks require the
// ancestry and are performed by checkHeaderContext.
func (c *Chain) checkHeaderSanity(header *wire.BlockHeader, now time.Time) error {
	if err := checkProofOfWork(header, c.params.PowLimit); err != nil {
		return err
	}
	maxTimestamp := now.Add(maxTimeOffset)
	if time.Unix(header.Timestamp, 0).After(maxTimestamp) {
		return ruleError(ErrTimeTooNew, "block timestamp is too far in the future")
	}
	return nil
}

// checkHeaderContext validates header against its parent's ancestry:
// retarget bits and median-time-past.
func (c *Chain) checkHeaderContext(header *wire.BlockHeader, parent *chainstore.ChainEntry) error {
	wantBits, err := c.calcNextRequiredDifficulty(parent, time.Unix(header.Timestamp, 0))
	if err != nil {
		return err
	}
	if header.Bits != wantBits {
		return ruleError(ErrUnexpectedDifficulty, fmt.Sprintf(
			"block difficulty of %08x is not the expected value of %08x", header.Bits, wantBits))
	}

	medianTime, err := c.calcPastMedianTime(parent)
	if err != nil {
		return err
	}
	if !time.Unix(header.Timestamp, 0).After(medianTime) {
		return ruleError(ErrTimeTooOld, "block timestamp is not after median of last 11 blocks")
	}
	return nil
}

// checkBlockSanity performs context-free structural checks on a full
// block: non-empty tx list, first-and-only coinbase, merkle root, and
// weight limit.
func (c *Chain) checkBlockSanity(block *wire.MsgBlock, now time.Time) error {
	if err := c.checkHeaderSanity(&block.Header, now); err != nil {
		return err
	}
	if len(block.Transactions) == 0 {
		return ruleError(ErrNoTransactions, "block has no transactions")
	}
	if !isCoinBaseTx(block.Transactions[0]) {
		return ruleError(ErrFirstTxNotCoinbase, "first transaction in block is not a coinbase")
	}
	for _, tx := range block.Transactions[1:] {
		if isCoinBaseTx(tx) {
			return ruleError(ErrMultipleCoinbases, "block contains second coinbase transaction")
		}
	}
	if w := blockWeight(block); w > MaxBlockWeight {
		return ruleError(ErrBlockTooBig, fmt.Sprintf("block weight of %d exceeds max allowed %d", w, MaxBlockWeight))
	}

	calculated := blockMerkleRoot(block)
	if !calculated.IsEqual(&block.Header.MerkleRoot) {
		return ruleError(ErrBadMerkleRoot, fmt.Sprintf(
			"block merkle root is invalid - block header indicates %s, but calculated value is %s",
			block.Header.MerkleRoot, calculated))
	}

	seen := make(map[chainhash.Hash]struct{}, len(block.Transactions))
	for _, tx := range block.Transactions {
		h := tx.TxHash()
		if _, dup := seen[h]; dup {
			return ruleError(ErrDuplicateTx, "block contains duplicate transaction")
		}
		seen[h] = struct{}{}
	}
	return nil
}

func isCoinBaseTx(tx *wire.MsgTx) bool {
	return len(tx.TxIn) == 1 &&
		tx.TxIn[0].PreviousOutPoint.Index == 0xffffffff &&
		tx.TxIn[0].PreviousOutPoint.Hash == (chainhash.Hash{})
}

// checkWitnessCommitment verifies the coinbase's witness commitment output
// against the block's actual witness data, when segwit is active and any
// transaction carries witness data.
func checkWitnessCommitment(block *wire.MsgBlock, segwitActive bool) error {
	if !segwitActive || !block.HasWitness() {
		return nil
	}
	coinbase := block.Transactions[0]

	var commitment []byte
	for i := len(coinbase.TxOut) - 1; i >= 0; i-- {
		script := coinbase.TxOut[i].PkScript
		if len(script) >= 38 && script[0] == 0x6a && script[1] == 0x24 &&
			script[2] == 0xaa && script[3] == 0x21 && script[4] == 0xa9 && script[5] == 0xed {
			commitment = script[6:38]
			break
		}
	}
	if commitment == nil {
		return ruleError(ErrBadWitnessCommitment, "segwit active but coinbase carries no witness commitment")
	}
	if len(coinbase.TxIn) == 0 || len(coinbase.TxIn[0].Witness) != 1 || len(coinbase.TxIn[0].Witness[0]) != 32 {
		return ruleError(ErrBadWitnessCommitment, "coinbase witness reserved value is malformed")
	}
	var nonce [32]byte
	copy(nonce[:], coinbase.TxIn[0].Witness[0])

	witnessRoot := witnessCommitmentMerkleRoot(block)
	wantScript := witnessCommitmentScript(witnessRoot, nonce)
	if !bytesEqual(commitment, wantScript[6:38]) {
		return ruleError(ErrBadWitnessCommitment, "witness commitment does not match block's witness data")
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkBIP34 verifies the coinbase's scriptSig begins with a minimally
// encoded push of the connecting height, required once BIP34Height is
// reached.
func checkBIP34(coinbase *wire.MsgTx, height int32) error {
	sig := coinbase.TxIn[0].SignatureScript
	got, err := txscript.ExtractCoinbaseHeight(sig)
	if err != nil {
		return ruleError(ErrBadCoinbaseHeight, "coinbase does not begin with a height push")
	}
	if got != height {
		return ruleError(ErrBadCoinbaseHeight, fmt.Sprintf(
			"block height mismatch in coinbase: want %d, got push %d", height, got))
	}
	return nil
}

// ScriptVerifyFlagsForNextBlock returns the flag set a transaction must
// satisfy to be valid in the block that would extend the current tip —
// the set a mempool applies when admitting or relaying a transaction.
func (c *Chain) ScriptVerifyFlagsForNextBlock() (txscript.ScriptFlags, error) {
	tip := c.Tip()
	next := &chainstore.ChainEntry{Header: tip.Header, Height: tip.Height + 1, ChainWork: tip.ChainWork}
	next.Header.PrevBlock = tip.Hash()
	return c.scriptVerifyFlagsForHeight(next)
}

// scriptVerifyFlagsForHeight returns the flag set active at height, folding
// in BIP65/66/112/141 activation and the versionbits CSV/segwit
// deployments.
func (c *Chain) scriptVerifyFlagsForHeight(entry *chainstore.ChainEntry) (txscript.ScriptFlags, error) {
	flags := txscript.ScriptBip16 | txscript.ScriptStrictMultiSig | txscript.ScriptVerifyNullFail

	if entry.Height >= c.params.BIP0066Height {
		flags |= txscript.ScriptVerifyDERSignatures | txscript.ScriptVerifyLowS
	}
	if entry.Height >= c.params.BIP0065Height {
		flags |= txscript.ScriptVerifyCheckLockTimeVerify
	}
	csvActive, err := c.deploymentActive(entry, chaincfg.DeploymentCSV)
	if err != nil {
		return 0, err
	}
	if csvActive {
		flags |= txscript.ScriptVerifyCheckSequenceVerify
	}
	segwitActive, err := c.deploymentActive(entry, chaincfg.DeploymentSegwit)
	if err != nil {
		return 0, err
	}
	if segwitActive {
		flags |= txscript.ScriptVerifyWitness | txscript.ScriptVerifyMinimalIf
	}
	return flags, nil
}
