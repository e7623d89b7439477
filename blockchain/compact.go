// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "math/big"

// compactToBig converts the unsigned 32-bit compact representation of a
// whole number N to a big.Int. The representation is similar to IEEE754 floating
// point: the high 8 bits are an unsigned exponent (in bytes), bit 24 is a
// sign flag, and the low 23 bits are the mantissa.
//
// This implementation is kept in the chain engine rather than imported
// because it is a tiny, stable, well-known bit-shuffling primitive (the
// compact "nBits" encoding predates and is unrelated to both the
// compact-size varint codec and the ECDSA/hash primitives the surrounding
// spec treats as externally supplied) and pinning to a specific upstream
// btcd release's internal layout for it is more fragile than reproducing
// the dozen-line algorithm directly.
func compactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if compact&0x00800000 != 0 {
		bn = bn.Neg(bn)
	}
	return bn
}

// bigToCompact converts a whole number N to a compact representation.
func bigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var negative bool
	work := n
	if n.Sign() < 0 {
		negative = true
		work = new(big.Int).Neg(n)
	}

	exponent := uint((work.BitLen() + 7) / 8)
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(work.Int64())
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Rsh(work, 8*(exponent-3))
		mantissa = uint32(tn.Int64())
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent)<<24 | mantissa
	if negative {
		compact |= 0x00800000
	}
	return compact
}

// calcWork computes the work value represented by bits: the amount of
// effort required to find a header hashing below the target.
func calcWork(bits uint32) *big.Int {
	target := compactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	// work = 2^256 / (target + 1)
	oneLsh256 := new(big.Int).Lsh(big.NewInt(1), 256)
	denominator := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(oneLsh256, denominator)
}
