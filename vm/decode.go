package vm

// decodeA decodes the A-type (arithmetic/compare/bitwise) operand bytes
// following the opcode at pc: funct(4) rd(4) | rs1(4) rs2(4). It does not
// touch pc itself; the dispatcher owns advancement.
func decodeA(mem *Memory, pc uint64) (funct AFunct, rd, rs1, rs2 uint8, trap *Trap) {
	b1, trap := mem.Read(pc+1, Byte)
	if trap != nil {
		return 0, 0, 0, 0, trap
	}
	b2, trap := mem.Read(pc+2, Byte)
	if trap != nil {
		return 0, 0, 0, 0, trap
	}

	functRd := byte(b1)
	rs1Rs2 := byte(b2)
	rd = functRd & 0x0F
	rs1 = rs1Rs2 >> 4
	rs2 = rs1Rs2 & 0x0F

	funct, ok := DecodeAFunct(functRd >> 4)
	if !ok {
		return 0, rd, rs1, rs2, newTrap(InvalidFunct, pc, "invalid funct field %d", functRd>>4)
	}
	return funct, rd, rs1, rs2, nil
}

// decodeRIR decodes the RIR-type (loads/stores/branches) operand bytes
// following the opcode at pc: r1(4) r2(4) | imm16 (LE).
func decodeRIR(mem *Memory, pc uint64) (reg1, reg2 uint8, imm16 uint16, trap *Trap) {
	b1, trap := mem.Read(pc+1, Byte)
	if trap != nil {
		return 0, 0, 0, trap
	}
	h, trap := mem.Read(pc+2, Half)
	if trap != nil {
		return 0, 0, 0, trap
	}

	r1r2 := byte(b1)
	return r1r2 >> 4, r1r2 & 0x0F, uint16(h), nil
}
