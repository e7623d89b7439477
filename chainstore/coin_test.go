// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestSerializeCoinRoundTrip(t *testing.T) {
	c := &Coin{Value: 123456789, PkScript: []byte{0x51, 0x52, 0x53}, Height: 42, IsCoinBase: false}
	got, err := deserializeCoin(serializeCoin(c))
	if err != nil {
		t.Fatalf("deserializeCoin: %v", err)
	}
	if got.Value != c.Value || got.Height != c.Height || got.IsCoinBase != c.IsCoinBase {
		t.Fatalf("round trip = %s, want %s", spew.Sdump(got), spew.Sdump(c))
	}
	if !bytes.Equal(got.PkScript, c.PkScript) {
		t.Fatalf("round trip PkScript = %x, want %x", got.PkScript, c.PkScript)
	}
}

func TestSerializeCoinCoinbaseFlag(t *testing.T) {
	c := &Coin{Value: 5000000000, PkScript: nil, Height: 0, IsCoinBase: true}
	got, err := deserializeCoin(serializeCoin(c))
	if err != nil {
		t.Fatalf("deserializeCoin: %v", err)
	}
	if !got.IsCoinBase {
		t.Fatalf("IsCoinBase round trip = false, want true")
	}
}

func TestSerializeCoinLargeScript(t *testing.T) {
	script := bytes.Repeat([]byte{0xab}, 300) // exercises the varint-length path beyond the 1-byte encoding
	c := &Coin{Value: 1, PkScript: script, Height: 1000, IsCoinBase: false}
	got, err := deserializeCoin(serializeCoin(c))
	if err != nil {
		t.Fatalf("deserializeCoin: %v", err)
	}
	if !bytes.Equal(got.PkScript, script) {
		t.Fatalf("large PkScript round trip mismatch, len got=%d want=%d", len(got.PkScript), len(script))
	}
}

func TestDeserializeCoinTooShort(t *testing.T) {
	if _, err := deserializeCoin([]byte{0x01, 0x02}); err != errNotFound {
		t.Fatalf("deserializeCoin(short) = %v, want errNotFound", err)
	}
}
