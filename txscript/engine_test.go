// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/dworznik/bcoin/chainhash"
	"github.com/dworznik/bcoin/wire"
)

func newSpendTx(prevOut wire.OutPoint) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: prevOut, Sequence: wire.MaxTxInSequenceNum})
	tx.AddTxOut(&wire.TxOut{Value: 100000, PkScript: []byte{OP_TRUE}})
	return tx
}

func TestEngineVerifiesLegacyP2PKHSpend(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	pubKeyBytes := priv.PubKey().SerializeCompressed()
	pkScript, err := payToPubKeyHashScript(hash160(pubKeyBytes))
	if err != nil {
		t.Fatalf("payToPubKeyHashScript: %v", err)
	}

	tx := newSpendTx(wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 0})
	sig, err := RawTxInSignature(tx, 0, pkScript, SigHashAll, priv)
	if err != nil {
		t.Fatalf("RawTxInSignature: %v", err)
	}
	sigScript, err := NewScriptBuilder().AddData(sig).AddData(pubKeyBytes).Script()
	if err != nil {
		t.Fatalf("sigScript: %v", err)
	}
	tx.TxIn[0].SignatureScript = sigScript

	vm, err := NewEngine(pkScript, tx, 0, StandardVerifyFlags, 0, NewTxSigHashes(tx))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestEngineRejectsWrongKeyP2PKHSpend(t *testing.T) {
	signingKey, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	otherKey, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	// pkScript commits to otherKey's hash, but the tx is signed and
	// pushes signingKey's pubkey: EQUALVERIFY must fail.
	pkScript, err := payToPubKeyHashScript(hash160(otherKey.PubKey().SerializeCompressed()))
	if err != nil {
		t.Fatalf("payToPubKeyHashScript: %v", err)
	}

	tx := newSpendTx(wire.OutPoint{Hash: chainhash.Hash{0x02}, Index: 0})
	sig, err := RawTxInSignature(tx, 0, pkScript, SigHashAll, signingKey)
	if err != nil {
		t.Fatalf("RawTxInSignature: %v", err)
	}
	sigScript, err := NewScriptBuilder().AddData(sig).AddData(signingKey.PubKey().SerializeCompressed()).Script()
	if err != nil {
		t.Fatalf("sigScript: %v", err)
	}
	tx.TxIn[0].SignatureScript = sigScript

	vm, err := NewEngine(pkScript, tx, 0, StandardVerifyFlags, 0, NewTxSigHashes(tx))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err == nil {
		t.Fatalf("Execute succeeded with mismatched pubkey hash, want failure")
	}
}

func TestEngineVerifiesP2SHWrappedP2PK(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	redeemScript, err := payToPubKeyScript(priv.PubKey().SerializeCompressed())
	if err != nil {
		t.Fatalf("payToPubKeyScript: %v", err)
	}
	pkScript, err := payToScriptHashScript(hash160(redeemScript))
	if err != nil {
		t.Fatalf("payToScriptHashScript: %v", err)
	}

	tx := newSpendTx(wire.OutPoint{Hash: chainhash.Hash{0x03}, Index: 0})
	sig, err := RawTxInSignature(tx, 0, redeemScript, SigHashAll, priv)
	if err != nil {
		t.Fatalf("RawTxInSignature: %v", err)
	}
	sigScript, err := NewScriptBuilder().AddData(sig).AddData(redeemScript).Script()
	if err != nil {
		t.Fatalf("sigScript: %v", err)
	}
	tx.TxIn[0].SignatureScript = sigScript

	vm, err := NewEngine(pkScript, tx, 0, StandardVerifyFlags, 0, NewTxSigHashes(tx))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestEngineVerifiesWitnessP2WPKHSpend(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	pubKeyBytes := priv.PubKey().SerializeCompressed()
	pkScript, err := payToWitnessPubKeyHashScript(hash160(pubKeyBytes))
	if err != nil {
		t.Fatalf("payToWitnessPubKeyHashScript: %v", err)
	}
	const inputAmount = 100000

	tx := newSpendTx(wire.OutPoint{Hash: chainhash.Hash{0x04}, Index: 0})
	subScript, err := payToPubKeyHashScript(hash160(pubKeyBytes))
	if err != nil {
		t.Fatalf("payToPubKeyHashScript: %v", err)
	}
	sigHashes := NewTxSigHashes(tx)
	sig, err := RawTxInWitnessSignature(tx, sigHashes, 0, inputAmount, subScript, SigHashAll, priv)
	if err != nil {
		t.Fatalf("RawTxInWitnessSignature: %v", err)
	}
	tx.TxIn[0].Witness = wire.TxWitness{sig, pubKeyBytes}

	vm, err := NewEngine(pkScript, tx, 0, StandardVerifyFlags, inputAmount, sigHashes)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestEngineCleanStackNotEnforcedForPlainTrueScript(t *testing.T) {
	tx := newSpendTx(wire.OutPoint{Hash: chainhash.Hash{0x05}, Index: 0})
	// A plain OP_TRUE output whose sigScript leaves an extra stray data
	// push on the stack: CleanStack is only enforced for P2SH
	// or witness v0 executions, so this must still validate.
	scriptSig, err := NewScriptBuilder().AddData([]byte{0xaa}).Script()
	if err != nil {
		t.Fatalf("scriptSig: %v", err)
	}
	tx.TxIn[0].SignatureScript = scriptSig

	flags := ScriptBip16 | ScriptVerifyDERSignatures | ScriptVerifyLowS |
		ScriptStrictMultiSig | ScriptVerifyNullFail | ScriptVerifyCleanStack
	vm, err := NewEngine([]byte{OP_TRUE}, tx, 0, flags, 0, NewTxSigHashes(tx))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestEngineRejectsUnbalancedConditional(t *testing.T) {
	tx := newSpendTx(wire.OutPoint{Hash: chainhash.Hash{0x06}, Index: 0})
	pkScript := []byte{OP_IF, OP_1, OP_ENDIF}

	// Deliberately malformed: OP_IF opened in scriptSig with no matching
	// OP_ENDIF in that same script.
	tx.TxIn[0].SignatureScript = []byte{OP_1, OP_IF}
	vm, err := NewEngine(pkScript, tx, 0, 0, 0, NewTxSigHashes(tx))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := vm.Execute(); !IsErrorCode(err, ErrUnbalancedConditional) {
		t.Fatalf("Execute error = %v, want ErrUnbalancedConditional", err)
	}
}
