// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "bytes"

// maxStackSize is the combined main+alt stack element cap, a resource
// limit of 1000 elements.
const maxStackSize = 1000

// maxScriptElementSize bounds any single stack element (520 bytes, the
// largest a PUSHDATA may carry).
const maxScriptElementSize = 520

// stack implements the main or alt data stack used by the script engine.
// Elements are stored bottom-first; index 0 in stk is the bottom.
type stack struct {
	stk            [][]byte
	verifyMinimal  bool
}

func (s *stack) Depth() int32 { return int32(len(s.stk)) }

func (s *stack) PushByteArray(so []byte) error {
	if len(so) > maxScriptElementSize {
		return scriptError(ErrElementTooBig, "element size %d exceeds max allowed size %d", len(so), maxScriptElementSize)
	}
	s.stk = append(s.stk, so)
	return nil
}

func (s *stack) PushInt(val scriptNum) { s.stk = append(s.stk, val.Bytes()) }

func (s *stack) PushBool(val bool) {
	if val {
		s.stk = append(s.stk, []byte{1})
	} else {
		s.stk = append(s.stk, nil)
	}
}

func (s *stack) PopByteArray() ([]byte, error) {
	so, err := s.nipN(0)
	return so, err
}

func (s *stack) PopInt() (scriptNum, error) {
	so, err := s.PopByteArray()
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, s.verifyMinimal, defaultScriptNumLen)
}

func (s *stack) PopBool() (bool, error) {
	so, err := s.PopByteArray()
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

func asBool(b []byte) bool {
	for i := range b {
		if b[i] != 0 {
			if i == len(b)-1 && b[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

func (s *stack) PeekByteArray(idx int32) ([]byte, error) {
	sz := int32(len(s.stk))
	if idx < 0 || idx >= sz {
		return nil, scriptError(ErrInvalidStackOperation, "index %d out of range for stack size %d", idx, sz)
	}
	return s.stk[sz-idx-1], nil
}

func (s *stack) PeekInt(idx int32) (scriptNum, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, s.verifyMinimal, defaultScriptNumLen)
}

func (s *stack) PeekBool(idx int32) (bool, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

func (s *stack) nipN(idx int32) ([]byte, error) {
	sz := int32(len(s.stk))
	if idx < 0 || idx >= sz {
		return nil, scriptError(ErrInvalidStackOperation, "index %d out of range for stack size %d", idx, sz)
	}
	pos := sz - idx - 1
	so := s.stk[pos]
	s.stk = append(s.stk[:pos], s.stk[pos+1:]...)
	return so, nil
}

func (s *stack) NipN(idx int32) error {
	_, err := s.nipN(idx)
	return err
}

func (s *stack) Tuck() error {
	so2, err := s.PopByteArray()
	if err != nil {
		return err
	}
	so1, err := s.PopByteArray()
	if err != nil {
		return err
	}
	s.stk = append(s.stk, so2, so1, so2)
	return nil
}

func (s *stack) DropN(n int32) error {
	for ; n > 0; n-- {
		if err := s.NipN(0); err != nil {
			return err
		}
	}
	return nil
}

func (s *stack) DupN(n int32) error {
	if n < 1 {
		return scriptError(ErrInvalidStackOperation, "n must be >= 1")
	}
	for i := n; i > 0; i-- {
		so, err := s.PeekByteArray(n - 1)
		if err != nil {
			return err
		}
		if err := s.PushByteArray(so); err != nil {
			return err
		}
	}
	return nil
}

func (s *stack) RotN(n int32) error {
	entry := 3*n - 1
	for i := n; i > 0; i-- {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}
		if err := s.PushByteArray(so); err != nil {
			return err
		}
	}
	return nil
}

func (s *stack) SwapN(n int32) error {
	entry := 2*n - 1
	for i := n; i > 0; i-- {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}
		if err := s.PushByteArray(so); err != nil {
			return err
		}
	}
	return nil
}

func (s *stack) OverN(n int32) error {
	entry := 2*n - 1
	for i := n; i > 0; i-- {
		so, err := s.PeekByteArray(entry)
		if err != nil {
			return err
		}
		if err := s.PushByteArray(so); err != nil {
			return err
		}
	}
	return nil
}

func (s *stack) PickN(n int32) error { return s.pickRollN(n, false) }
func (s *stack) RollN(n int32) error { return s.pickRollN(n, true) }

func (s *stack) pickRollN(n int32, roll bool) error {
	so, err := s.PeekByteArray(n)
	if err != nil {
		return err
	}
	if roll {
		if _, err := s.nipN(n); err != nil {
			return err
		}
	}
	return s.PushByteArray(so)
}

// String dumps the stack in a debugger-friendly, top-first hex form.
func (s *stack) String() string {
	var buf bytes.Buffer
	for i := len(s.stk) - 1; i >= 0; i-- {
		buf.WriteString("0x")
		buf.WriteString(bytesToHex(s.stk[i]))
		buf.WriteByte('\n')
	}
	return buf.String()
}

const hexDigits = "0123456789abcdef"

func bytesToHex(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
