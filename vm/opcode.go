package vm

import "fmt"

// Opcode identifies one instruction in the dispatch table. The byte-to-opcode
// mapping is dense and stable: an unrecognized byte decodes to (0, false).
type Opcode uint8

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpClt
	OpCge
	OpCeq
	OpCne
	OpAnd
	OpOr
	OpXor
	OpCall
	OpRet
	OpJze
	OpBeq
	OpBne
	OpBlt
	OpBge
	OpLdB
	OpLdH
	OpLdW
	OpLdD
	OpStB
	OpStH
	OpStW
	OpStD
	OpLiB
	OpLiH
	OpLiW
	OpLiD
	OpMov
	OpPush
	OpPop
	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem",
	OpClt: "clt", OpCge: "cge", OpCeq: "ceq", OpCne: "cne",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpCall: "call", OpRet: "ret", OpJze: "jze",
	OpBeq: "beq", OpBne: "bne", OpBlt: "blt", OpBge: "bge",
	OpLdB: "ldb", OpLdH: "ldh", OpLdW: "ldw", OpLdD: "ldd",
	OpStB: "stb", OpStH: "sth", OpStW: "stw", OpStD: "std",
	OpLiB: "lib", OpLiH: "lih", OpLiW: "liw", OpLiD: "lid",
	OpMov: "mov", OpPush: "push", OpPop: "pop",
}

func (op Opcode) String() string {
	if op < opcodeCount {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}

// DecodeOpcode maps a raw byte to an Opcode. It is a total function: an
// unrecognized byte returns ok == false rather than panicking, so the
// dispatcher can turn it into an InvalidOpcode trap.
func DecodeOpcode(b byte) (op Opcode, ok bool) {
	op = Opcode(b)
	if op >= opcodeCount {
		return 0, false
	}
	return op, true
}

// AFunct selects the operand width/kind for arithmetic, comparison and
// bitwise instructions: the full 64-bit integer register, or an IEEE-754
// half/single/double float packed into the low bits of the register.
type AFunct uint8

const (
	AFunctX AFunct = iota
	AFunctF16
	AFunctF32
	AFunctF64
	afunctCount
)

var afunctNames = [afunctCount]string{
	AFunctX: "x", AFunctF16: "f16", AFunctF32: "f32", AFunctF64: "f64",
}

func (f AFunct) String() string {
	if f < afunctCount {
		return afunctNames[f]
	}
	return fmt.Sprintf("funct(%d)", uint8(f))
}

// DecodeAFunct maps a 4-bit funct field to an AFunct. Total: an
// unrecognized value returns ok == false.
func DecodeAFunct(nibble byte) (f AFunct, ok bool) {
	f = AFunct(nibble)
	if f >= afunctCount {
		return 0, false
	}
	return f, true
}
