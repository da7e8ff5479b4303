package vm

import (
	"encoding/binary"
	"fmt"
)

// Address-space constants.
const (
	SpecialEnd   uint64 = 255
	ProgramStart uint64 = SpecialEnd + 1 // 256
	CanarySize   uint64 = 1024
	BaseStack    uint64 = 0x8000
	XLen         uint64 = 64
)

// Size is a memory access width in bytes, and the natural width of a
// moved value.
type Size uint8

const (
	Byte   Size = 1
	Half   Size = 2
	Word   Size = 4
	Double Size = 8
)

// Memory is the VM's flat logical address space: an immutable program
// image and a mutable stack buffer, laid out as fixed regions. Everything
// outside those two backing buffers (the special region, the inter-region
// gaps, the canary, and the reserved heap) faults on any access.
type Memory struct {
	program []byte
	stack   []byte

	programEnd  uint64 // inclusive last valid program address
	stackTop    uint64 // inclusive first valid stack address
	stackBottom uint64 // exclusive upper bound of the stack
	canaryEnd   uint64 // inclusive last address of the canary region
}

// NewMemory lays out the address space for a program image of the given
// bytes and a stack of stackSize bytes. The stack starts zeroed; the
// program bytes are referenced, not copied. The caller must not mutate
// them afterward.
func NewMemory(program []byte, stackSize uint64) *Memory {
	programEnd := ProgramStart + uint64(len(program)) - 1
	stackTop := programEnd + 2 // skip the one-byte gap at programEnd+1
	stackBottom := stackTop + stackSize
	canaryStart := stackBottom + 1
	canaryEnd := canaryStart + CanarySize - 1

	return &Memory{
		program:     program,
		stack:       make([]byte, stackSize),
		programEnd:  programEnd,
		stackTop:    stackTop,
		stackBottom: stackBottom,
		canaryEnd:   canaryEnd,
	}
}

// StackTop returns the lowest valid stack address (inclusive).
func (m *Memory) StackTop() uint64 { return m.stackTop }

// StackBottom returns the exclusive upper bound of the stack; this is
// also the VM's initial stack pointer value.
func (m *Memory) StackBottom() uint64 { return m.stackBottom }

// ProgramEnd returns the highest valid program address (inclusive).
func (m *Memory) ProgramEnd() uint64 { return m.programEnd }

// locate resolves addr/size to a backing buffer slice. It rejects any
// access that does not lie entirely within one region.
func (m *Memory) locate(addr uint64, size Size) (buf []byte, offset uint64, readOnly bool, trap *Trap) {
	sz := uint64(size)
	end := addr + sz - 1 // inclusive last byte touched

	switch {
	case addr <= SpecialEnd:
		return nil, 0, false, &Trap{Kind: AccessViolation,
			Err: fmt.Errorf("access to special region at address 0x%X", addr)}

	case addr >= ProgramStart && addr <= m.programEnd:
		if end > m.programEnd {
			return nil, 0, false, &Trap{Kind: AccessViolation,
				Err: fmt.Errorf("access at 0x%X straddles the end of the program region", addr)}
		}
		return m.program, addr - ProgramStart, true, nil

	case addr >= m.stackTop && addr < m.stackBottom:
		if end >= m.stackBottom {
			return nil, 0, false, &Trap{Kind: AccessViolation,
				Err: fmt.Errorf("access at 0x%X straddles the end of the stack region", addr)}
		}
		return m.stack, addr - m.stackTop, false, nil

	default:
		// Covers the program/stack gap byte, the stack/canary gap byte,
		// the canary itself, and the reserved (unallocated) heap.
		return nil, 0, false, &Trap{Kind: AccessViolation,
			Err: fmt.Errorf("address 0x%X is not mapped", addr)}
	}
}

// Read performs a little-endian load of size bytes at addr, zero-extended
// into a DWord.
func (m *Memory) Read(addr uint64, size Size) (uint64, *Trap) {
	buf, offset, _, trap := m.locate(addr, size)
	if trap != nil {
		return 0, trap
	}
	switch size {
	case Byte:
		return uint64(buf[offset]), nil
	case Half:
		return uint64(binary.LittleEndian.Uint16(buf[offset:])), nil
	case Word:
		return uint64(binary.LittleEndian.Uint32(buf[offset:])), nil
	default:
		return binary.LittleEndian.Uint64(buf[offset:]), nil
	}
}

// Write performs a little-endian store of the low size bytes of value at
// addr. Writes into the program region fault with WriteToReadOnly.
func (m *Memory) Write(addr uint64, size Size, value uint64) *Trap {
	buf, offset, readOnly, trap := m.locate(addr, size)
	if trap != nil {
		return trap
	}
	if readOnly {
		return &Trap{Kind: WriteToReadOnly,
			Err: fmt.Errorf("write to read-only program region at 0x%X", addr)}
	}
	switch size {
	case Byte:
		buf[offset] = byte(value)
	case Half:
		binary.LittleEndian.PutUint16(buf[offset:], uint16(value))
	case Word:
		binary.LittleEndian.PutUint32(buf[offset:], uint32(value))
	default:
		binary.LittleEndian.PutUint64(buf[offset:], value)
	}
	return nil
}
