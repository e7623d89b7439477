// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// Opcode values, matching the Bitcoin Script byte encoding: pushes below
// 0x4c push their own byte count of data,
// PUSHDATA1/2/4 push a length-prefixed count, OP_1NEGATE/OP_1..OP_16 push
// small integers directly, and everything from OP_NOP up is a named
// operator dispatched through opcodeArray below.
const (
	OP_0         = 0x00
	OP_FALSE     = 0x00
	OP_DATA_1    = 0x01
	OP_DATA_75   = 0x4b
	OP_PUSHDATA1 = 0x4c
	OP_PUSHDATA2 = 0x4d
	OP_PUSHDATA4 = 0x4e
	OP_1NEGATE   = 0x4f
	OP_RESERVED  = 0x50
	OP_1         = 0x51
	OP_TRUE      = 0x51
	OP_2         = 0x52
	OP_3         = 0x53
	OP_4         = 0x54
	OP_5         = 0x55
	OP_6         = 0x56
	OP_7         = 0x57
	OP_8         = 0x58
	OP_9         = 0x59
	OP_10        = 0x5a
	OP_11        = 0x5b
	OP_12        = 0x5c
	OP_13        = 0x5d
	OP_14        = 0x5e
	OP_15        = 0x5f
	OP_16        = 0x60

	OP_NOP         = 0x61
	OP_VER         = 0x62
	OP_IF          = 0x63
	OP_NOTIF       = 0x64
	OP_VERIF       = 0x65
	OP_VERNOTIF    = 0x66
	OP_ELSE        = 0x67
	OP_ENDIF       = 0x68
	OP_VERIFY      = 0x69
	OP_RETURN      = 0x6a
	OP_TOALTSTACK   = 0x6b
	OP_FROMALTSTACK = 0x6c
	OP_2DROP       = 0x6d
	OP_2DUP        = 0x6e
	OP_3DUP        = 0x6f
	OP_2OVER       = 0x70
	OP_2ROT        = 0x71
	OP_2SWAP       = 0x72
	OP_IFDUP       = 0x73
	OP_DEPTH       = 0x74
	OP_DROP        = 0x75
	OP_DUP         = 0x76
	OP_NIP         = 0x77
	OP_OVER        = 0x78
	OP_PICK        = 0x79
	OP_ROLL        = 0x7a
	OP_ROT         = 0x7b
	OP_SWAP        = 0x7c
	OP_TUCK        = 0x7d

	OP_CAT    = 0x7e
	OP_SUBSTR = 0x7f
	OP_LEFT   = 0x80
	OP_RIGHT  = 0x81
	OP_SIZE   = 0x82

	OP_INVERT      = 0x83
	OP_AND         = 0x84
	OP_OR          = 0x85
	OP_XOR         = 0x86
	OP_EQUAL       = 0x87
	OP_EQUALVERIFY = 0x88
	OP_RESERVED1   = 0x89
	OP_RESERVED2   = 0x8a

	OP_1ADD               = 0x8b
	OP_1SUB               = 0x8c
	OP_2MUL               = 0x8d
	OP_2DIV               = 0x8e
	OP_NEGATE             = 0x8f
	OP_ABS                = 0x90
	OP_NOT                = 0x91
	OP_0NOTEQUAL          = 0x92
	OP_ADD                = 0x93
	OP_SUB                = 0x94
	OP_MUL                = 0x95
	OP_DIV                = 0x96
	OP_MOD                = 0x97
	OP_LSHIFT             = 0x98
	OP_RSHIFT             = 0x99
	OP_BOOLAND            = 0x9a
	OP_BOOLOR             = 0x9b
	OP_NUMEQUAL           = 0x9c
	OP_NUMEQUALVERIFY     = 0x9d
	OP_NUMNOTEQUAL        = 0x9e
	OP_LESSTHAN           = 0x9f
	OP_GREATERTHAN        = 0xa0
	OP_LESSTHANOREQUAL    = 0xa1
	OP_GREATERTHANOREQUAL = 0xa2
	OP_MIN                = 0xa3
	OP_MAX                = 0xa4
	OP_WITHIN             = 0xa5

	OP_RIPEMD160           = 0xa6
	OP_SHA1                = 0xa7
	OP_SHA256              = 0xa8
	OP_HASH160             = 0xa9
	OP_HASH256             = 0xaa
	OP_CODESEPARATOR       = 0xab
	OP_CHECKSIG            = 0xac
	OP_CHECKSIGVERIFY      = 0xad
	OP_CHECKMULTISIG       = 0xae
	OP_CHECKMULTISIGVERIFY = 0xaf

	OP_NOP1                = 0xb0
	OP_CHECKLOCKTIMEVERIFY = 0xb1
	OP_NOP2                = 0xb1
	OP_CHECKSEQUENCEVERIFY = 0xb2
	OP_NOP3                = 0xb2
	OP_NOP4                = 0xb3
	OP_NOP5                = 0xb4
	OP_NOP6                = 0xb5
	OP_NOP7                = 0xb6
	OP_NOP8                = 0xb7
	OP_NOP9                = 0xb8
	OP_NOP10               = 0xb9

	OP_INVALIDOPCODE = 0xff
)

// opcode describes one byte value's decoding shape: how many bytes of
// immediate data (if any) follow it, and the function that executes it.
type opcode struct {
	value  byte
	name   string
	length int // number of bytes including the opcode itself; -1/-2/-3 = PUSHDATA1/2/4
	opfunc func(*parsedOpcode, *Engine) error
}

// lengths for the PUSHDATAn family, stored as negative sentinels in
// opcode.length and resolved by parseScript.
const (
	lenPushData1 = -1
	lenPushData2 = -2
	lenPushData4 = -3
)

var opcodeArray [256]opcode

func init() {
	for i := 0; i < len(opcodeArray); i++ {
		opcodeArray[i] = opcode{value: byte(i), name: "OP_UNKNOWN", length: 1, opfunc: opcodeInvalid}
	}

	// Data push opcodes 0x01..0x4b: push the next N bytes, N == opcode value.
	for i := OP_DATA_1; i <= OP_DATA_75; i++ {
		opcodeArray[i] = opcode{value: byte(i), name: "OP_DATA", length: i + 1, opfunc: opcodePushData}
	}

	set := func(v byte, name string, length int, f func(*parsedOpcode, *Engine) error) {
		opcodeArray[v] = opcode{value: v, name: name, length: length, opfunc: f}
	}

	set(OP_0, "OP_0", 1, opcodeFalse)
	set(OP_PUSHDATA1, "OP_PUSHDATA1", lenPushData1, opcodePushData)
	set(OP_PUSHDATA2, "OP_PUSHDATA2", lenPushData2, opcodePushData)
	set(OP_PUSHDATA4, "OP_PUSHDATA4", lenPushData4, opcodePushData)
	set(OP_1NEGATE, "OP_1NEGATE", 1, opcode1Negate)
	set(OP_RESERVED, "OP_RESERVED", 1, opcodeReserved)
	for i := OP_1; i <= OP_16; i++ {
		n := byte(i - OP_1 + 1)
		set(byte(i), "OP_"+itoa(int(n)), 1, makeOpcodeN(n))
	}

	set(OP_NOP, "OP_NOP", 1, opcodeNop)
	set(OP_VER, "OP_VER", 1, opcodeReserved)
	set(OP_IF, "OP_IF", 1, opcodeIf)
	set(OP_NOTIF, "OP_NOTIF", 1, opcodeNotIf)
	set(OP_VERIF, "OP_VERIF", 1, opcodeReserved)
	set(OP_VERNOTIF, "OP_VERNOTIF", 1, opcodeReserved)
	set(OP_ELSE, "OP_ELSE", 1, opcodeElse)
	set(OP_ENDIF, "OP_ENDIF", 1, opcodeEndif)
	set(OP_VERIFY, "OP_VERIFY", 1, opcodeVerify)
	set(OP_RETURN, "OP_RETURN", 1, opcodeReturn)
	set(OP_TOALTSTACK, "OP_TOALTSTACK", 1, opcodeToAltStack)
	set(OP_FROMALTSTACK, "OP_FROMALTSTACK", 1, opcodeFromAltStack)
	set(OP_2DROP, "OP_2DROP", 1, opcode2Drop)
	set(OP_2DUP, "OP_2DUP", 1, opcode2Dup)
	set(OP_3DUP, "OP_3DUP", 1, opcode3Dup)
	set(OP_2OVER, "OP_2OVER", 1, opcode2Over)
	set(OP_2ROT, "OP_2ROT", 1, opcode2Rot)
	set(OP_2SWAP, "OP_2SWAP", 1, opcode2Swap)
	set(OP_IFDUP, "OP_IFDUP", 1, opcodeIfDup)
	set(OP_DEPTH, "OP_DEPTH", 1, opcodeDepth)
	set(OP_DROP, "OP_DROP", 1, opcodeDrop)
	set(OP_DUP, "OP_DUP", 1, opcodeDup)
	set(OP_NIP, "OP_NIP", 1, opcodeNip)
	set(OP_OVER, "OP_OVER", 1, opcodeOver)
	set(OP_PICK, "OP_PICK", 1, opcodePick)
	set(OP_ROLL, "OP_ROLL", 1, opcodeRoll)
	set(OP_ROT, "OP_ROT", 1, opcodeRot)
	set(OP_SWAP, "OP_SWAP", 1, opcodeSwap)
	set(OP_TUCK, "OP_TUCK", 1, opcodeTuck)

	set(OP_CAT, "OP_CAT", 1, opcodeDisabled)
	set(OP_SUBSTR, "OP_SUBSTR", 1, opcodeDisabled)
	set(OP_LEFT, "OP_LEFT", 1, opcodeDisabled)
	set(OP_RIGHT, "OP_RIGHT", 1, opcodeDisabled)
	set(OP_SIZE, "OP_SIZE", 1, opcodeSize)

	set(OP_INVERT, "OP_INVERT", 1, opcodeDisabled)
	set(OP_AND, "OP_AND", 1, opcodeDisabled)
	set(OP_OR, "OP_OR", 1, opcodeDisabled)
	set(OP_XOR, "OP_XOR", 1, opcodeDisabled)
	set(OP_EQUAL, "OP_EQUAL", 1, opcodeEqual)
	set(OP_EQUALVERIFY, "OP_EQUALVERIFY", 1, opcodeEqualVerify)
	set(OP_RESERVED1, "OP_RESERVED1", 1, opcodeReserved)
	set(OP_RESERVED2, "OP_RESERVED2", 1, opcodeReserved)

	set(OP_1ADD, "OP_1ADD", 1, opcode1Add)
	set(OP_1SUB, "OP_1SUB", 1, opcode1Sub)
	set(OP_2MUL, "OP_2MUL", 1, opcodeDisabled)
	set(OP_2DIV, "OP_2DIV", 1, opcodeDisabled)
	set(OP_NEGATE, "OP_NEGATE", 1, opcodeNegate)
	set(OP_ABS, "OP_ABS", 1, opcodeAbs)
	set(OP_NOT, "OP_NOT", 1, opcodeNot)
	set(OP_0NOTEQUAL, "OP_0NOTEQUAL", 1, opcode0NotEqual)
	set(OP_ADD, "OP_ADD", 1, opcodeAdd)
	set(OP_SUB, "OP_SUB", 1, opcodeSub)
	set(OP_MUL, "OP_MUL", 1, opcodeDisabled)
	set(OP_DIV, "OP_DIV", 1, opcodeDisabled)
	set(OP_MOD, "OP_MOD", 1, opcodeDisabled)
	set(OP_LSHIFT, "OP_LSHIFT", 1, opcodeDisabled)
	set(OP_RSHIFT, "OP_RSHIFT", 1, opcodeDisabled)
	set(OP_BOOLAND, "OP_BOOLAND", 1, opcodeBoolAnd)
	set(OP_BOOLOR, "OP_BOOLOR", 1, opcodeBoolOr)
	set(OP_NUMEQUAL, "OP_NUMEQUAL", 1, opcodeNumEqual)
	set(OP_NUMEQUALVERIFY, "OP_NUMEQUALVERIFY", 1, opcodeNumEqualVerify)
	set(OP_NUMNOTEQUAL, "OP_NUMNOTEQUAL", 1, opcodeNumNotEqual)
	set(OP_LESSTHAN, "OP_LESSTHAN", 1, opcodeLessThan)
	set(OP_GREATERTHAN, "OP_GREATERTHAN", 1, opcodeGreaterThan)
	set(OP_LESSTHANOREQUAL, "OP_LESSTHANOREQUAL", 1, opcodeLessThanOrEqual)
	set(OP_GREATERTHANOREQUAL, "OP_GREATERTHANOREQUAL", 1, opcodeGreaterThanOrEqual)
	set(OP_MIN, "OP_MIN", 1, opcodeMin)
	set(OP_MAX, "OP_MAX", 1, opcodeMax)
	set(OP_WITHIN, "OP_WITHIN", 1, opcodeWithin)

	set(OP_RIPEMD160, "OP_RIPEMD160", 1, opcodeRipemd160)
	set(OP_SHA1, "OP_SHA1", 1, opcodeSha1)
	set(OP_SHA256, "OP_SHA256", 1, opcodeSha256)
	set(OP_HASH160, "OP_HASH160", 1, opcodeHash160)
	set(OP_HASH256, "OP_HASH256", 1, opcodeHash256)
	set(OP_CODESEPARATOR, "OP_CODESEPARATOR", 1, opcodeCodeSeparator)
	set(OP_CHECKSIG, "OP_CHECKSIG", 1, opcodeCheckSig)
	set(OP_CHECKSIGVERIFY, "OP_CHECKSIGVERIFY", 1, opcodeCheckSigVerify)
	set(OP_CHECKMULTISIG, "OP_CHECKMULTISIG", 1, opcodeCheckMultiSig)
	set(OP_CHECKMULTISIGVERIFY, "OP_CHECKMULTISIGVERIFY", 1, opcodeCheckMultiSigVerify)

	set(OP_NOP1, "OP_NOP1", 1, opcodeNop)
	set(OP_CHECKLOCKTIMEVERIFY, "OP_CHECKLOCKTIMEVERIFY", 1, opcodeCheckLockTimeVerify)
	set(OP_CHECKSEQUENCEVERIFY, "OP_CHECKSEQUENCEVERIFY", 1, opcodeCheckSequenceVerify)
	set(OP_NOP4, "OP_NOP4", 1, opcodeNop)
	set(OP_NOP5, "OP_NOP5", 1, opcodeNop)
	set(OP_NOP6, "OP_NOP6", 1, opcodeNop)
	set(OP_NOP7, "OP_NOP7", 1, opcodeNop)
	set(OP_NOP8, "OP_NOP8", 1, opcodeNop)
	set(OP_NOP9, "OP_NOP9", 1, opcodeNop)
	set(OP_NOP10, "OP_NOP10", 1, opcodeNop)
}

func makeOpcodeN(n byte) func(*parsedOpcode, *Engine) error {
	return func(pop *parsedOpcode, vm *Engine) error {
		vm.dstack.PushInt(scriptNum(n))
		return nil
	}
}

// itoa is a tiny base-10 formatter, used only by init to name
// OP_1..OP_16.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// parsedOpcode is one decoded instruction: the opcode descriptor plus any
// immediate data bytes that followed it (for pushes).
type parsedOpcode struct {
	opcode *opcode
	data   []byte
}

// isDisabled reports whether this parsed opcode is permanently disabled,
// regardless of flags.
func (pop *parsedOpcode) isDisabled() bool {
	switch pop.opcode.value {
	case OP_CAT, OP_SUBSTR, OP_LEFT, OP_RIGHT, OP_INVERT, OP_AND, OP_OR,
		OP_XOR, OP_2MUL, OP_2DIV, OP_MUL, OP_DIV, OP_MOD, OP_LSHIFT, OP_RSHIFT:
		return true
	}
	return false
}

// alwaysIllegal reports whether the opcode may never appear in any script,
// executed or not (executeOpcode rejects it before checking whether the
// current branch is executing, matching Bitcoin Core's behavior of still rejecting these inside unexecuted IF branches).
func (pop *parsedOpcode) alwaysIllegal() bool {
	switch pop.opcode.value {
	case OP_VERIF, OP_VERNOTIF:
		return true
	}
	return false
}

// isConditional reports whether the opcode only makes sense as flow
// control and therefore must execute even inside a currently-false branch
// (so nested IF/ELSE/ENDIF stay balanced).
func (pop *parsedOpcode) isConditional() bool {
	switch pop.opcode.value {
	case OP_IF, OP_NOTIF, OP_ELSE, OP_ENDIF:
		return true
	}
	return false
}

// bytes returns the immediate push data carried by this opcode, or nil.
func (pop *parsedOpcode) bytes() []byte { return pop.data }
