// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"fmt"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/chainstore"
	"github.com/dworznik/bcoin/txscript"
	"github.com/dworznik/bcoin/wire"
)

// bip30ExceptionHeights are the two mainnet heights at which a duplicate
// coinbase txid is consensus-valid (blocks 91842/91880 both happen to
// duplicate an earlier coinbase), per Bitcoin Core's documented BIP30
// carve-out.
var bip30ExceptionHeights = map[int32]bool{91842: true, 91880: true}

// spentCoin is one entry of a block's undo record: the coin an input
// consumed, in the order the input appears in the block's tx-major,
// input-minor traversal.
type spentCoin struct {
	txid  chainhash.Hash
	index uint32
	coin  *chainstore.Coin
}

func overlayKey(txid *chainhash.Hash, index uint32) string {
	var b [36]byte
	copy(b[:32], txid[:])
	binary.LittleEndian.PutUint32(b[32:], index)
	return string(b[:])
}

// checkConnectBlock runs full contextual validation on block (known to
// already be sane per checkBlockSanity) and, if it validates, returns the
// undo record (spent pre-existing coins, in traversal order) and the
// batch of chainstore writes needed to connect it.
func (c *Chain) checkConnectBlock(block *wire.MsgBlock, entry *chainstore.ChainEntry) ([]spentCoin, *chainstore.Batch, error) {
	flags, err := c.scriptVerifyFlagsForHeight(entry)
	if err != nil {
		return nil, nil, err
	}
	segwitActive := flags&txscript.ScriptVerifyWitness != 0

	if err := checkWitnessCommitment(block, segwitActive); err != nil {
		return nil, nil, err
	}

	if entry.Height >= c.params.BIP0034Height {
		if err := checkBIP34(block.Transactions[0], entry.Height); err != nil {
			return nil, nil, err
		}
	}

	batch := chainstore.NewBatch()
	created := make(map[string]*chainstore.Coin)
	var undo []spentCoin
	var totalFees int64
	var totalSigOpCost int

	for txIdx, tx := range block.Transactions {
		txid := tx.TxHash()

		// BIP30: every output this tx creates must not already exist
		// unspent, except at the two historical exception heights.
		if !bip30ExceptionHeights[entry.Height] {
			for i := range tx.TxOut {
				if _, err := c.store.Coin(&txid, uint32(i)); err == nil {
					return nil, nil, ruleError(ErrDuplicateTx, fmt.Sprintf(
						"tried to overwrite unspent transaction output %s:%d", txid, i))
				}
			}
		}

		isCoinbase := txIdx == 0
		var inputSum int64
		var prevScripts [][]byte
		var inputAmounts []int64

		if !isCoinbase {
			for _, in := range tx.TxIn {
				key := overlayKey(&in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index)
				var coin *chainstore.Coin
				if c2, ok := created[key]; ok {
					coin = c2
					delete(created, key)
				} else {
					c2, err := c.store.Coin(&in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index)
					if err != nil {
						return nil, nil, ruleError(ErrMissingCoin, fmt.Sprintf(
							"unable to find unspent output %s:%d referenced by transaction %s",
							in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index, txid))
					}
					coin = c2
					undo = append(undo, spentCoin{txid: in.PreviousOutPoint.Hash, index: in.PreviousOutPoint.Index, coin: coin})
					batch.DeleteCoin(&in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index)
				}

				if coin.IsCoinBase && entry.Height-coin.Height < int32(c.params.CoinbaseMaturity) {
					return nil, nil, ruleError(ErrImmatureSpend, fmt.Sprintf(
						"tried to spend coinbase transaction output %s:%d from height %d at height %d before required maturity",
						in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index, coin.Height, entry.Height))
				}
				inputSum += coin.Value
				prevScripts = append(prevScripts, coin.PkScript)
				inputAmounts = append(inputAmounts, coin.Value)
			}

			var outputSum int64
			for _, out := range tx.TxOut {
				outputSum += out.Value
			}
			if inputSum < outputSum {
				return nil, nil, ruleError(ErrSpendTooHigh, fmt.Sprintf(
					"total value of all transaction inputs for transaction %s is %d which is less than the amount spent of %d",
					txid, inputSum, outputSum))
			}
			totalFees += inputSum - outputSum

			sigOpCost := 0
			for i, in := range tx.TxIn {
				sigOpCost += txscript.GetPreciseSigOpCount(in.SignatureScript, prevScripts[i], flags&txscript.ScriptBip16 != 0) * WitnessScaleFactor
				if segwitActive {
					sigOpCost += txscript.GetWitnessSigOpCount(in.SignatureScript, prevScripts[i], in.Witness)
				}
			}
			totalSigOpCost += sigOpCost

			sigHashes := txscript.NewTxSigHashes(tx)
			for i, in := range tx.TxIn {
				vm, err := txscript.NewEngine(prevScripts[i], tx, i, flags, inputAmounts[i], sigHashes)
				if err != nil {
					return nil, nil, ruleError(ErrScriptValidation, fmt.Sprintf(
						"unable to build script engine for input %d of %s: %v", i, txid, err))
				}
				if err := vm.Execute(); err != nil {
					return nil, nil, ruleError(ErrScriptValidation, fmt.Sprintf(
						"signature validation failed on input %d of %s: %v", i, txid, err))
				}
				_ = in
			}
		}

		for i, out := range tx.TxOut {
			coin := &chainstore.Coin{Value: out.Value, PkScript: out.PkScript, Height: entry.Height, IsCoinBase: isCoinbase}
			created[overlayKey(&txid, uint32(i))] = coin
		}
	}

	if totalSigOpCost > MaxBlockSigOpsCost {
		return nil, nil, ruleError(ErrTooManySigOps, fmt.Sprintf(
			"block contains too many signature operations - got %d, max %d", totalSigOpCost, MaxBlockSigOpsCost))
	}

	subsidy := c.params.CalcBlockSubsidy(entry.Height)
	var coinbaseOut int64
	for _, out := range block.Transactions[0].TxOut {
		coinbaseOut += out.Value
	}
	if coinbaseOut > subsidy+totalFees {
		return nil, nil, ruleError(ErrSpendTooHigh, fmt.Sprintf(
			"coinbase pays %d which exceeds expected subsidy+fees of %d", coinbaseOut, subsidy+totalFees))
	}

	for key, coin := range created {
		var txid chainhash.Hash
		copy(txid[:], key[:32])
		index := binary.LittleEndian.Uint32([]byte(key[32:]))
		batch.PutCoin(&txid, index, coin)
	}

	return undo, batch, nil
}

// serializeUndo encodes a block's undo record as a concatenation of fixed
// fields per spent coin: txid || index(4 LE) || value(8 LE) || height(4
// LE) || coinbase-flag(1) || scriptLen(4 LE) || script.
func serializeUndo(undo []spentCoin) []byte {
	var out []byte
	for _, sc := range undo {
		var fixed [49]byte
		copy(fixed[:32], sc.txid[:])
		binary.LittleEndian.PutUint32(fixed[32:36], sc.index)
		binary.LittleEndian.PutUint64(fixed[36:44], uint64(sc.coin.Value))
		binary.LittleEndian.PutUint32(fixed[44:48], uint32(sc.coin.Height))
		if sc.coin.IsCoinBase {
			fixed[48] = 1
		}
		out = append(out, fixed[:]...)
		var sl [4]byte
		binary.LittleEndian.PutUint32(sl[:], uint32(len(sc.coin.PkScript)))
		out = append(out, sl[:]...)
		out = append(out, sc.coin.PkScript...)
	}
	return out
}

func deserializeUndo(data []byte) ([]spentCoin, error) {
	var undo []spentCoin
	for len(data) > 0 {
		if len(data) < 36+8+4+1+4 {
			return nil, fmt.Errorf("blockchain: truncated undo record")
		}
		var txid chainhash.Hash
		copy(txid[:], data[:32])
		index := binary.LittleEndian.Uint32(data[32:36])
		value := int64(binary.LittleEndian.Uint64(data[36:44]))
		height := int32(binary.LittleEndian.Uint32(data[44:48]))
		isCoinbase := data[48] != 0
		scriptLen := binary.LittleEndian.Uint32(data[49:53])
		data = data[53:]
		if uint32(len(data)) < scriptLen {
			return nil, fmt.Errorf("blockchain: truncated undo script")
		}
		script := make([]byte, scriptLen)
		copy(script, data[:scriptLen])
		data = data[scriptLen:]
		undo = append(undo, spentCoin{txid: txid, index: index, coin: &chainstore.Coin{
			Value: value, Height: height, IsCoinBase: isCoinbase, PkScript: script,
		}})
	}
	return undo, nil
}
