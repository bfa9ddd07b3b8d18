package reader

import (
	"debug/dwarf"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/godwarf"
)

// Variable is a formal parameter or variable entry together with its
// nesting depth below the subprogram.
type Variable struct {
	*godwarf.Tree
	Depth int
}

// Variables returns the formal parameters and variables declared inside
// root, in encounter order. Lexical blocks are flattened into the list,
// inlined subroutines are skipped.
func Variables(root *godwarf.Tree) []Variable {
	var v []Variable
	for _, child := range root.Children {
		v = variablesInternal(v, child, 1)
	}
	return v
}

func variablesInternal(v []Variable, root *godwarf.Tree, depth int) []Variable {
	switch root.Tag {
	case dwarf.TagLexDwarfBlock:
		for _, child := range root.Children {
			v = variablesInternal(v, child, depth+1)
		}
	case dwarf.TagFormalParameter, dwarf.TagVariable:
		v = append(v, Variable{root, depth})
	}
	return v
}
