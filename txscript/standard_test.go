// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/dworznik/bcoin/chainutil"
)

func TestScriptBuilderSmallIntsUseOpcodes(t *testing.T) {
	script, err := NewScriptBuilder().AddInt64(0).AddInt64(1).AddInt64(16).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	want := []byte{OP_0, OP_1, OP_16}
	if !bytes.Equal(script, want) {
		t.Fatalf("script = %x, want %x", script, want)
	}
}

func TestScriptBuilderDataPushSizing(t *testing.T) {
	data := make([]byte, 100)
	script, err := NewScriptBuilder().AddData(data).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	if script[0] != OP_PUSHDATA1 || script[1] != 100 {
		t.Fatalf("100-byte push prefix = %x, want OP_PUSHDATA1 100", script[:2])
	}
}

func TestGetScriptClassPubKeyHash(t *testing.T) {
	hash := make([]byte, 20)
	script, err := payToPubKeyHashScript(hash)
	if err != nil {
		t.Fatalf("payToPubKeyHashScript: %v", err)
	}
	if got := GetScriptClass(script); got != PubKeyHashTy {
		t.Fatalf("GetScriptClass(P2PKH) = %s, want pubkeyhash", got)
	}
}

func TestGetScriptClassScriptHash(t *testing.T) {
	hash := make([]byte, 20)
	script, err := payToScriptHashScript(hash)
	if err != nil {
		t.Fatalf("payToScriptHashScript: %v", err)
	}
	if got := GetScriptClass(script); got != ScriptHashTy {
		t.Fatalf("GetScriptClass(P2SH) = %s, want scripthash", got)
	}
}

func TestGetScriptClassWitnessV0(t *testing.T) {
	keyHash := make([]byte, 20)
	script, err := payToWitnessPubKeyHashScript(keyHash)
	if err != nil {
		t.Fatalf("payToWitnessPubKeyHashScript: %v", err)
	}
	if got := GetScriptClass(script); got != WitnessV0PubKeyHashTy {
		t.Fatalf("GetScriptClass(P2WPKH) = %s, want witness_v0_keyhash", got)
	}

	scriptHash := make([]byte, 32)
	wshScript, err := payToWitnessScriptHashScript(scriptHash)
	if err != nil {
		t.Fatalf("payToWitnessScriptHashScript: %v", err)
	}
	if got := GetScriptClass(wshScript); got != WitnessV0ScriptHashTy {
		t.Fatalf("GetScriptClass(P2WSH) = %s, want witness_v0_scripthash", got)
	}
}

func TestGetScriptClassNullData(t *testing.T) {
	script, err := NewScriptBuilder().AddOp(OP_RETURN).AddData([]byte("hello")).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	if got := GetScriptClass(script); got != NullDataTy {
		t.Fatalf("GetScriptClass(OP_RETURN push) = %s, want nulldata", got)
	}
}

func TestExtractPkScriptAddrPubKeyHash(t *testing.T) {
	hash := bytes.Repeat([]byte{0x11}, 20)
	script, err := payToPubKeyHashScript(hash)
	if err != nil {
		t.Fatalf("payToPubKeyHashScript: %v", err)
	}
	class, addr, err := ExtractPkScriptAddr(script, 0x00, 0x05, "bc")
	if err != nil {
		t.Fatalf("ExtractPkScriptAddr: %v", err)
	}
	if class != PubKeyHashTy {
		t.Fatalf("class = %s, want pubkeyhash", class)
	}
	pkhAddr, ok := addr.(*chainutil.AddressPubKeyHash)
	if !ok {
		t.Fatalf("addr type = %T, want *chainutil.AddressPubKeyHash", addr)
	}
	if !bytes.Equal(pkhAddr.ScriptAddress(), hash) {
		t.Fatalf("recovered hash = %x, want %x", pkhAddr.ScriptAddress(), hash)
	}
}

func TestExtractCoinbaseHeight(t *testing.T) {
	sigScript, err := NewScriptBuilder().AddInt64(500000).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	height, err := ExtractCoinbaseHeight(sigScript)
	if err != nil {
		t.Fatalf("ExtractCoinbaseHeight: %v", err)
	}
	if height != 500000 {
		t.Fatalf("height = %d, want 500000", height)
	}
}

func TestExtractCoinbaseHeightSmallInts(t *testing.T) {
	sigScript, err := NewScriptBuilder().AddInt64(5).Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	height, err := ExtractCoinbaseHeight(sigScript)
	if err != nil {
		t.Fatalf("ExtractCoinbaseHeight: %v", err)
	}
	if height != 5 {
		t.Fatalf("height = %d, want 5", height)
	}
}

func TestGetSigOpCountMultiSig(t *testing.T) {
	pub := bytes.Repeat([]byte{0x02}, 33)
	script, err := NewScriptBuilder().
		AddInt64(2).
		AddData(pub).AddData(pub).AddData(pub).
		AddInt64(3).
		AddOp(OP_CHECKMULTISIG).
		Script()
	if err != nil {
		t.Fatalf("Script: %v", err)
	}
	if got := GetSigOpCount(script); got != 3 {
		t.Fatalf("GetSigOpCount(2-of-3 multisig) = %d, want 3", got)
	}
}

func TestGetPreciseSigOpCountP2SH(t *testing.T) {
	pub := bytes.Repeat([]byte{0x02}, 33)
	redeem, err := NewScriptBuilder().AddData(pub).AddOp(OP_CHECKSIG).Script()
	if err != nil {
		t.Fatalf("redeem script: %v", err)
	}
	hash := hash160(redeem)
	scriptPubKey, err := payToScriptHashScript(hash)
	if err != nil {
		t.Fatalf("payToScriptHashScript: %v", err)
	}
	scriptSig, err := NewScriptBuilder().AddData(redeem).Script()
	if err != nil {
		t.Fatalf("scriptSig: %v", err)
	}
	if got := GetPreciseSigOpCount(scriptSig, scriptPubKey, true); got != 1 {
		t.Fatalf("GetPreciseSigOpCount(P2SH-wrapped P2PK) = %d, want 1", got)
	}
}
