// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/dworznik/bcoin/chainhash"
)

// InvType represents the type of inventory vector.
type InvType uint32

const (
	InvTypeError          InvType = 0
	InvTypeTx             InvType = 1
	InvTypeBlock          InvType = 2
	InvTypeFilteredBlock  InvType = 3
	InvWitnessFlag        InvType = 1 << 30
	InvTypeWitnessBlock           = InvTypeBlock | InvWitnessFlag
	InvTypeWitnessTx              = InvTypeTx | InvWitnessFlag
)

func (invtype InvType) String() string {
	switch invtype & ^InvWitnessFlag {
	case InvTypeError:
		return "ERROR"
	case InvTypeTx:
		return "MSG_TX"
	case InvTypeBlock:
		return "MSG_BLOCK"
	case InvTypeFilteredBlock:
		return "MSG_FILTERED_BLOCK"
	default:
		return "UNKNOWN"
	}
}

// InvVect identifies an item by type and hash in inv/getdata/notfound messages.
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

// NewInvVect builds a new InvVect.
func NewInvVect(typ InvType, hash *chainhash.Hash) *InvVect {
	return &InvVect{Type: typ, Hash: *hash}
}

func readInvVect(r io.Reader, iv *InvVect) error {
	if err := readElement(r, &iv.Type); err != nil {
		return err
	}
	return ReadHash(r, &iv.Hash)
}

func writeInvVect(w io.Writer, iv *InvVect) error {
	if err := writeElement(w, iv.Type); err != nil {
		return err
	}
	return WriteHash(w, &iv.Hash)
}

const maxInvPerMsg = 50000

// invVectSize is Type (4) + Hash (32).
const invVectSize = 36
