// Package bytecode holds the opaque, externally produced bytecode
// container the VM loads at PROGRAM_START. It is deliberately thin: no
// header, no relocations, no symbol table. Those belong to an
// assembler/linker this module does not implement.
package bytecode

import (
	"fmt"
	"os"
)

// BcBlob is a program image: a flat byte sequence loaded verbatim into
// the VM's program region. The VM treats it as immutable.
type BcBlob struct {
	Code []byte
}

// New wraps code as a BcBlob without copying it.
func New(code []byte) BcBlob {
	return BcBlob{Code: code}
}

// FromFile reads a bytecode image from disk. It performs no validation
// beyond "the file exists and is readable"; decoding is the VM's job.
func FromFile(path string) (BcBlob, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied CLI argument
	if err != nil {
		return BcBlob{}, fmt.Errorf("failed to load bytecode image %q: %w", path, err)
	}
	return New(data), nil
}
