// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "github.com/pkg/errors"

// defaultScriptNumLen is the maximum number of bytes a scriptNum may occupy
// on the stack for ordinary arithmetic opcodes (the CScriptNum width limit).
const defaultScriptNumLen = 4

// scriptNum represents the numeric type backing Bitcoin Script arithmetic:
// a variable-length, minimally-encoded, sign-magnitude little-endian
// integer capped (by default) at 4 bytes so scripts cannot smuggle
// arbitrary-precision math through the interpreter.
type scriptNum int64

// checkMinimalDataEncoding returns an error if v is not minimally encoded
// (a non-minimal push is trivially malleable, so makeScriptNum with
// requireMinimal rejects it rather than silently accepting it).
func checkMinimalDataEncoding(v []byte) error {
	if len(v) == 0 {
		return nil
	}
	if v[len(v)-1]&0x7f == 0 {
		if len(v) == 1 || v[len(v)-2]&0x80 == 0 {
			return scriptError(ErrMinimalData, "non-minimally encoded script number")
		}
	}
	return nil
}

// makeScriptNum decodes v into a scriptNum. scriptNumLen bounds the accepted
// width (4 for ordinary arithmetic, 5 for CHECKLOCKTIMEVERIFY/CHECKSEQUENCEVERIFY
// per BIP65/112). requireMinimal enforces checkMinimalDataEncoding first.
func makeScriptNum(v []byte, requireMinimal bool, scriptNumLen int) (scriptNum, error) {
	if len(v) > scriptNumLen {
		return 0, scriptError(ErrNumberTooBig, "numeric value encoded as %d bytes, max %d", len(v), scriptNumLen)
	}
	if requireMinimal {
		if err := checkMinimalDataEncoding(v); err != nil {
			return 0, err
		}
	}
	if len(v) == 0 {
		return 0, nil
	}
	var result int64
	for i, b := range v {
		result |= int64(b) << uint8(8*i)
	}
	if v[len(v)-1]&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(v)-1)))
		return scriptNum(-result), nil
	}
	return scriptNum(result), nil
}

// Bytes returns the minimally-encoded sign-magnitude little-endian byte
// serialization, or nil for zero.
func (n scriptNum) Bytes() []byte {
	if n == 0 {
		return nil
	}
	isNegative := n < 0
	absoluteValue := n
	if isNegative {
		absoluteValue = -n
	}
	result := make([]byte, 0, 9)
	for absoluteValue > 0 {
		result = append(result, byte(absoluteValue&0xff))
		absoluteValue >>= 8
	}
	if result[len(result)-1]&0x80 != 0 {
		extraByte := byte(0x00)
		if isNegative {
			extraByte = 0x80
		}
		result = append(result, extraByte)
	} else if isNegative {
		result[len(result)-1] |= 0x80
	}
	return result
}

func (n scriptNum) Int32() int32 {
	const (
		min = -2147483648
		max = 2147483647
	)
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return int32(n)
}

var errScriptNumOverflow = errors.New("script number overflow")
