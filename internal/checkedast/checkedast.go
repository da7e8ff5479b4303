// Package checkedast documents the checked-AST boundary for the front end
// this VM does not implement: a structure isomorphic to the raw AST, but
// carrying an identifier-resolution slot and a type slot at every site
// that needs one.
//
// Nothing in this module imports checkedast. It exists only so a reader
// assembling the rest of the toolchain (a parser, a semantic analyzer, a
// code generator) knows the shape that stage must eventually produce and
// lower into the bytecode vm.VM executes. The parser, the semantic
// analyzer, and the assembler/linker are explicit collaborators outside
// this module's scope.
package checkedast

// Symbol is an opaque resolved-identifier handle. The real front end
// would index into its own symbol table; this boundary package only
// needs something distinct from a bare name.
type Symbol int

// MaybeUnresolved is the identifier-resolution slot every identifier
// site in the checked AST carries: either a name not yet looked up, or
// the symbol it resolved to.
type MaybeUnresolved struct {
	Name       string
	Resolved   bool
	ResolvedTo Symbol
}

// Unresolved constructs a not-yet-resolved identifier slot.
func Unresolved(name string) MaybeUnresolved {
	return MaybeUnresolved{Name: name}
}

// ResolvedSymbol constructs a resolved identifier slot.
func ResolvedSymbol(sym Symbol) MaybeUnresolved {
	return MaybeUnresolved{Resolved: true, ResolvedTo: sym}
}

// Type is the type slot every expression site in the checked AST
// carries, initialized to Unknown until the semantic analyzer runs.
type Type struct {
	Name    string
	Unknown bool
}

// UnknownType is the initial value of every expression's Type field
// before semantic analysis.
var UnknownType = Type{Unknown: true}
