package symbols

import (
	"debug/dwarf"
	"strings"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/op"
	"github.com/dwarfsym/dwarfsym/pkg/source"
)

// CompileUnit is the symbol information of a single translation unit.
type CompileUnit struct {
	Tag      dwarf.Tag
	Offset   dwarf.Offset
	Language int64
	// LowPC and HighPC delimit the [LowPC, HighPC) address range of the
	// unit.
	LowPC, HighPC   uint64
	Producer        string
	SourceFilename  string
	SourceDirectory string
	FullFilename    string
	Status          source.Status

	// Source holds the text of the source file, Source[0] is line 1. It is
	// empty when Status is not StatusOk.
	Source []string

	SubPrograms []SubProgram
	Types       []TypeRecord
	Variables   []Variable

	// Lines is the line table of the unit, in the order emitted by the
	// compiler.
	Lines []LineRecord

	typeIndex map[dwarf.Offset]int
}

// LineRecord maps an instruction address to a 1-based source line.
type LineRecord struct {
	Address uint64
	Line    int
	// Text is the source text of Line, "" when unavailable.
	Text string
}

// SubProgram is a function of a compile unit.
type SubProgram struct {
	Offset dwarf.Offset
	// LowPC is the entry address of the function, HighPC the first
	// address after it.
	LowPC, HighPC uint64
	DeclLine      int
	DeclText      string
	FrameBase     op.Location
	Name          string
	// Lines are the rows of the unit line table in [LowPC, HighPC).
	Lines []LineRecord
	// Variables holds parameters and local variables. Variables of nested
	// lexical blocks are included.
	Variables []Variable
}

// TypeRecord is a type entry of a compile unit. Types reference each other
// through their Offset.
type TypeRecord struct {
	Tag          dwarf.Tag
	Offset       dwarf.Offset
	TypeOffset   dwarf.Offset
	ByteSize     int64
	Encoding     int64
	Name         string
	Members      []StructureMember
	Enumerations []Enumeration
}

// StructureMember is a member of a structure or union type.
type StructureMember struct {
	Name               string
	TypeOffset         dwarf.Offset
	DataMemberLocation int64
}

// Enumeration is an enumerator of an enumeration type.
type Enumeration struct {
	Name  string
	Value int64
}

// Variable is a global or local variable, or a member of one.
type Variable struct {
	// Op is the first operation of the location expression. Addr is
	// meaningful for statically allocated variables, Offset for variables
	// relative to the frame base and for structure members.
	Op     op.Opcode
	Addr   uint64
	Offset int64
	Name   string
	// Location is the location expression of the variable, nil for
	// structure members.
	Location []byte

	TypeOffset   dwarf.Offset
	TypeByteSize int64
	TypeEncoding int64
	TypeTag      TypeTag
	TypeName     string

	// Members has one entry per member of structure and union variables
	// and of pointers to them.
	Members []Variable
}

// Resolved returns true if the type of v was resolved.
func (v *Variable) Resolved() bool {
	return v.TypeName != ""
}

// TypeTag is the set of type constructors met while resolving the type of
// a variable.
type TypeTag uint16

const (
	TypeTagStructure   TypeTag = 0x01
	TypeTagPointer     TypeTag = 0x02
	TypeTagSubrange    TypeTag = 0x04
	TypeTagArray       TypeTag = 0x08
	TypeTagConst       TypeTag = 0x10
	TypeTagTypedef     TypeTag = 0x20
	TypeTagEnumeration TypeTag = 0x40
	TypeTagSubroutine  TypeTag = 0x80
	TypeTagUnion       TypeTag = 0x100
)

var typeTagNames = []struct {
	tag  TypeTag
	name string
}{
	{TypeTagStructure, "struct"},
	{TypeTagPointer, "pointer"},
	{TypeTagSubrange, "subrange"},
	{TypeTagArray, "array"},
	{TypeTagConst, "const"},
	{TypeTagTypedef, "typedef"},
	{TypeTagEnumeration, "enum"},
	{TypeTagSubroutine, "subroutine"},
	{TypeTagUnion, "union"},
}

func (t TypeTag) String() string {
	if t == 0 {
		return "none"
	}
	var names []string
	for _, tn := range typeTagNames {
		if t&tn.tag != 0 {
			names = append(names, tn.name)
		}
	}
	return strings.Join(names, "|")
}
