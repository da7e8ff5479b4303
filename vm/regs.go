package vm

// NumRegisters is the size of the register file.
const NumRegisters = 16

// Register index aliases. x0 is hard-wired to zero; x15 is the stack
// pointer by convention.
const (
	RegZR uint8 = 0
	RegA0 uint8 = 1
	RegA1 uint8 = 2
	RegA2 uint8 = 3
	RegA3 uint8 = 4
	RegA4 uint8 = 5
	RegT0 uint8 = 6
	RegT1 uint8 = 7
	RegT2 uint8 = 8
	RegT3 uint8 = 9
	RegS0 uint8 = 10
	RegS1 uint8 = 11
	RegS2 uint8 = 12
	RegS3 uint8 = 13
	RegFP uint8 = 14
	RegSP uint8 = 15
)

// RegisterNames gives the diagnostic name for each register index, in the
// order zr,a0..a4,t0..t3,s0..s3,fp,sp.
var RegisterNames = [NumRegisters]string{
	"zr", "a0", "a1", "a2", "a3", "a4",
	"t0", "t1", "t2", "t3",
	"s0", "s1", "s2", "s3",
	"fp", "sp",
}

// Registers is the VM's general-purpose register file. Index 0 reads as
// zero and discards writes; the backing slot for index 0 is otherwise
// ordinary and is never consulted on read.
type Registers [NumRegisters]uint64

// Get returns the value of register i. Reading x0 always yields 0.
func (r *Registers) Get(i uint8) uint64 {
	if i == RegZR {
		return 0
	}
	return r[i]
}

// Set writes value into register i. Writes to x0 are silently discarded.
func (r *Registers) Set(i uint8, value uint64) {
	if i == RegZR {
		return
	}
	r[i] = value
}
