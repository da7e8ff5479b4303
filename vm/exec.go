package vm

import (
	"fmt"
	"math"
	"strings"

	"github.com/lunlang/bcvm/internal/bytecode"
)

// VM is the complete bytecode virtual machine: register file, program
// counter, memory, and terminal-state record. It is single-threaded and
// synchronous; there is exactly one execution context, and callers drive
// it only through Step/Run/DebugRegs and Mem.Read/Mem.Write.
type VM struct {
	Regs Registers
	PC   uint64
	Mem  *Memory

	Done bool
	Trap *Trap

	// instrPC is the address of the instruction currently being
	// dispatched. Several exec* handlers advance PC past the decoded
	// instruction before a later sub-step (a memory access, a zero
	// check) can still fault; faults are reported against the
	// instruction that caused them, not wherever PC has moved to by
	// the time the fault surfaces.
	instrPC uint64
}

// New constructs a VM over the given program image with a stack of
// stackSize bytes. PC starts at ProgramStart; sp starts at the stack's
// exclusive upper bound (stack_bottom) and grows down from there; every
// other register reads as zero.
func New(program bytecode.BcBlob, stackSize uint64) *VM {
	mem := NewMemory(program.Code, stackSize)
	v := &VM{
		Mem: mem,
		PC:  ProgramStart,
	}
	v.Regs.Set(RegSP, mem.StackBottom())
	return v
}

// fault records t as the VM's terminal trap and stops dispatch. The trap
// is always attributed to the instruction currently being dispatched.
func (vm *VM) fault(t *Trap) *Trap {
	t.PC = vm.instrPC
	vm.Trap = t
	vm.Done = true
	return t
}

// Step decodes and executes exactly one instruction, or raises a trap.
// Done is terminal: once set, Step is a no-op and no further dispatch
// occurs.
func (vm *VM) Step() error {
	if vm.Done {
		return nil
	}
	vm.instrPC = vm.PC

	opByte, trap := vm.Mem.Read(vm.PC, Byte)
	if trap != nil {
		return vm.fault(trap)
	}

	op, ok := DecodeOpcode(byte(opByte))
	if !ok {
		return vm.fault(newTrap(InvalidOpcode, vm.PC, "byte 0x%02X does not decode to a known opcode", opByte))
	}

	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpRem:
		return vm.execArithmetic(op)
	case OpClt, OpCge, OpCeq, OpCne:
		return vm.execCompare(op)
	case OpAnd, OpOr, OpXor:
		return vm.execBitwise(op)
	case OpLdB, OpLdH, OpLdW, OpLdD:
		return vm.execLoad(op)
	case OpStB, OpStH, OpStW, OpStD:
		return vm.execStore(op)
	case OpLiB, OpLiH, OpLiW, OpLiD:
		return vm.execImmediateLoad(op)
	case OpMov:
		return vm.execMov()
	case OpPush:
		return vm.execPush()
	case OpPop:
		return vm.execPop()
	case OpCall:
		return vm.execCall()
	case OpRet:
		return vm.execRet()
	case OpJze:
		return vm.execJze()
	case OpBeq, OpBne, OpBlt, OpBge:
		return vm.execBranch(op)
	default:
		return vm.fault(newTrap(InvalidOpcode, vm.PC, "opcode %s has no dispatch handler", op))
	}
}

// Run executes instructions until Done is set by a trap. There is no halt
// instruction; an embedder that wants a step budget must cap its own
// call count. See config.Config.MaxSteps and cmd/bcvm.
func (vm *VM) Run() {
	for !vm.Done {
		_ = vm.Step()
	}
}

// DebugRegs renders the named register file and trap state for
// diagnostics.
func (vm *VM) DebugRegs() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pc=0x%016X done=%v\n", vm.PC, vm.Done)
	for i, name := range RegisterNames {
		fmt.Fprintf(&b, "  x%-2d %-3s = 0x%016X\n", i, name, vm.Regs.Get(uint8(i)))
	}
	if vm.Trap != nil {
		fmt.Fprintf(&b, "trap: %v\n", vm.Trap)
	}
	return b.String()
}

func signExtend16(v uint16) int64 {
	return int64(int16(v))
}

// --- arithmetic / comparison / bitwise -------------------------------------

func (vm *VM) execArithmetic(op Opcode) error {
	funct, rd, rs1, rs2, trap := decodeA(vm.Mem, vm.PC)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 3

	a := vm.Regs.Get(rs1)
	b := vm.Regs.Get(rs2)

	switch funct {
	case AFunctX:
		if (op == OpDiv || op == OpRem) && b == 0 {
			return vm.fault(newTrap(DivByZero, vm.PC, "integer division by zero"))
		}
		var res uint64
		switch op {
		case OpAdd:
			res = a + b
		case OpSub:
			res = a - b
		case OpMul:
			res = a * b
		case OpDiv:
			res = a / b
		case OpRem:
			res = a % b
		}
		vm.Regs.Set(rd, res)
	case AFunctF16:
		fa, fb := float16ToFloat32(uint16(a)), float16ToFloat32(uint16(b))
		vm.Regs.Set(rd, uint64(float32ToFloat16(floatArith32(op, fa, fb))))
	case AFunctF32:
		fa, fb := math.Float32frombits(uint32(a)), math.Float32frombits(uint32(b))
		vm.Regs.Set(rd, uint64(math.Float32bits(floatArith32(op, fa, fb))))
	case AFunctF64:
		fa, fb := math.Float64frombits(a), math.Float64frombits(b)
		vm.Regs.Set(rd, math.Float64bits(floatArith64(op, fa, fb)))
	}
	return nil
}

func floatArith32(op Opcode, a, b float32) float32 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	default: // OpRem
		return float32(math.Mod(float64(a), float64(b)))
	}
}

func floatArith64(op Opcode, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	default: // OpRem
		return math.Mod(a, b)
	}
}

func (vm *VM) execCompare(op Opcode) error {
	funct, rd, rs1, rs2, trap := decodeA(vm.Mem, vm.PC)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 3

	a := vm.Regs.Get(rs1)
	b := vm.Regs.Get(rs2)

	var result bool
	switch funct {
	case AFunctX:
		result = intCompare(op, a, b) // unsigned on the full 64 bits, including Blt/Bge
	case AFunctF16:
		result = floatCompare(op, float64(float16ToFloat32(uint16(a))), float64(float16ToFloat32(uint16(b))))
	case AFunctF32:
		result = floatCompare(op, float64(math.Float32frombits(uint32(a))), float64(math.Float32frombits(uint32(b))))
	case AFunctF64:
		result = floatCompare(op, math.Float64frombits(a), math.Float64frombits(b))
	}

	if result {
		vm.Regs.Set(rd, 1)
	} else {
		vm.Regs.Set(rd, 0)
	}
	return nil
}

func intCompare(op Opcode, a, b uint64) bool {
	switch op {
	case OpClt:
		return a < b
	case OpCge:
		return a >= b
	case OpCeq:
		return a == b
	default: // OpCne
		return a != b
	}
}

func floatCompare(op Opcode, a, b float64) bool {
	switch op {
	case OpClt:
		return a < b
	case OpCge:
		return a >= b
	case OpCeq:
		return a == b
	default: // OpCne
		return a != b
	}
}

func (vm *VM) execBitwise(op Opcode) error {
	funct, rd, rs1, rs2, trap := decodeA(vm.Mem, vm.PC)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 3

	if funct != AFunctX {
		return vm.fault(newTrap(BitwiseOnFloat, vm.PC, "%s requires funct x, got %s", op, funct))
	}

	a := vm.Regs.Get(rs1)
	b := vm.Regs.Get(rs2)
	var res uint64
	switch op {
	case OpAnd:
		res = a & b
	case OpOr:
		res = a | b
	default: // OpXor
		res = a ^ b
	}
	vm.Regs.Set(rd, res)
	return nil
}

// --- memory: loads / stores --------------------------------------------------

var loadStoreSize = map[Opcode]Size{
	OpLdB: Byte, OpLdH: Half, OpLdW: Word, OpLdD: Double,
	OpStB: Byte, OpStH: Half, OpStW: Word, OpStD: Double,
}

func (vm *VM) execLoad(op Opcode) error {
	rd, rs, imm16, trap := decodeRIR(vm.Mem, vm.PC)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 4

	addr := vm.Regs.Get(rs) + uint64(signExtend16(imm16))
	size := loadStoreSize[op]
	value, trap := vm.Mem.Read(addr, size)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.Regs.Set(rd, value)
	return nil
}

func (vm *VM) execStore(op Opcode) error {
	r1, r2, imm16, trap := decodeRIR(vm.Mem, vm.PC)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 4

	addr := vm.Regs.Get(r1) + uint64(signExtend16(imm16))
	size := loadStoreSize[op]
	if trap := vm.Mem.Write(addr, size, vm.Regs.Get(r2)); trap != nil {
		return vm.fault(trap)
	}
	return nil
}

// --- control flow -------------------------------------------------------

func (vm *VM) execCall() error {
	imm32, trap := vm.Mem.Read(vm.PC+1, Word)
	if trap != nil {
		return vm.fault(trap)
	}
	retAddr := vm.PC + 5
	vm.PC += 5

	if trap := vm.pushDouble(retAddr); trap != nil {
		return vm.fault(trap)
	}
	vm.PC = imm32
	return nil
}

func (vm *VM) execRet() error {
	retAddr, trap := vm.popDouble()
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC = retAddr
	return nil
}

func (vm *VM) execJze() error {
	r1, r2, imm16, trap := decodeRIR(vm.Mem, vm.PC)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 4

	if vm.Regs.Get(r2) == 0 {
		vm.PC = uint64(int64(vm.PC) + signExtend16(imm16))
		vm.PC += vm.Regs.Get(r1)
	}
	return nil
}

func (vm *VM) execBranch(op Opcode) error {
	r1, r2, imm16, trap := decodeRIR(vm.Mem, vm.PC)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 4

	a, b := vm.Regs.Get(r1), vm.Regs.Get(r2)
	var taken bool
	switch op {
	case OpBeq:
		taken = a == b
	case OpBne:
		taken = a != b
	case OpBlt:
		taken = a < b
	default: // OpBge
		taken = a >= b
	}
	if taken {
		// Unsigned add. Asymmetric with the sign-extended displacement used
		// by loads/stores/Jze.
		vm.PC += uint64(imm16)
	}
	return nil
}

// --- immediate loads, moves, stack --------------------------------------

func (vm *VM) execImmediateLoad(op Opcode) error {
	rdByte, trap := vm.Mem.Read(vm.PC+1, Byte)
	if trap != nil {
		return vm.fault(trap)
	}
	rd := uint8(rdByte) & 0x0F

	var size Size
	var length uint64
	switch op {
	case OpLiB:
		size, length = Byte, 3
	case OpLiH:
		size, length = Half, 4
	case OpLiW:
		size, length = Word, 6
	default: // OpLiD
		size, length = Double, 10
	}

	imm, trap := vm.Mem.Read(vm.PC+2, size)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += length
	vm.Regs.Set(rd, imm)
	return nil
}

func (vm *VM) execMov() error {
	b, trap := vm.Mem.Read(vm.PC+1, Byte)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 2

	rd := uint8(b) >> 4
	rs := uint8(b) & 0x0F
	vm.Regs.Set(rd, vm.Regs.Get(rs))
	return nil
}

func (vm *VM) execPush() error {
	b, trap := vm.Mem.Read(vm.PC+1, Byte)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 2

	rs := uint8(b) & 0x0F
	if trap := vm.pushDouble(vm.Regs.Get(rs)); trap != nil {
		return vm.fault(trap)
	}
	return nil
}

func (vm *VM) execPop() error {
	b, trap := vm.Mem.Read(vm.PC+1, Byte)
	if trap != nil {
		return vm.fault(trap)
	}
	vm.PC += 2

	rd := uint8(b) & 0x0F
	value, trap := vm.popDouble()
	if trap != nil {
		return vm.fault(trap)
	}
	vm.Regs.Set(rd, value)
	return nil
}

// pushDouble and popDouble implement the shared Double-word stack protocol
// used by Push/Pop and Call/Ret, with explicit overflow/underflow bounds
// checks on every push and pop.
func (vm *VM) pushDouble(value uint64) *Trap {
	sp := vm.Regs.Get(RegSP)
	if sp < vm.Mem.StackTop()+XLen/8 {
		return newTrap(StackOverflow, vm.PC, "push would move sp=0x%X below stack_top", sp)
	}
	sp -= XLen / 8
	if trap := vm.Mem.Write(sp, Double, value); trap != nil {
		return trap
	}
	vm.Regs.Set(RegSP, sp)
	return nil
}

func (vm *VM) popDouble() (uint64, *Trap) {
	sp := vm.Regs.Get(RegSP)
	if sp+XLen/8 > vm.Mem.StackBottom() {
		return 0, newTrap(StackUnderflow, vm.PC, "pop would move sp=0x%X above stack_bottom", sp)
	}
	value, trap := vm.Mem.Read(sp, Double)
	if trap != nil {
		return 0, trap
	}
	vm.Regs.Set(RegSP, sp+XLen/8)
	return value, nil
}
