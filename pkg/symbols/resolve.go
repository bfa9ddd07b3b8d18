package symbols

import (
	"debug/dwarf"
	"strings"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/op"
	"github.com/dwarfsym/dwarfsym/pkg/logflags"
)

const (
	// pointerEncoding is the encoding reported for pointer variables.
	pointerEncoding = 0x10
	// maxMemberDepth bounds the expansion of nested structure members.
	maxMemberDepth = 16
)

// enumEncodings is the encoding assumed for enumeration types that do not
// specify one, by byte size. Sizes not listed are left without encoding.
var enumEncodings = map[int64]int64{
	4: 0x07, // DW_ATE_unsigned
}

// typeResolver fills in the type information of the variables of a
// compile unit.
type typeResolver struct {
	cu     *CompileUnit
	logger logflags.Logger
}

// resolve follows the type chain of v and sets its type tag, name, size
// and encoding. Structure and union variables with a location get one
// member variable per member, resolved recursively.
func (r *typeResolver) resolve(v *Variable) {
	if r.logger == nil {
		r.logger = logflags.TypesLogger()
	}
	r.resolveMembers(v, map[dwarf.Offset]bool{}, 0)
}

func (r *typeResolver) resolveMembers(v *Variable, path map[dwarf.Offset]bool, depth int) {
	var (
		name     strings.Builder
		stars    int
		array    bool
		typedef  bool
		function bool
	)
	isPointer := func() bool { return v.TypeTag&TypeTagPointer != 0 }

	visited := map[dwarf.Offset]bool{}
	for off := v.TypeOffset; off != 0; {
		if visited[off] {
			r.logger.Warnf("%s: type cycle at %#x", v.Name, off)
			unresolve(v)
			return
		}
		visited[off] = true
		t, ok := r.cu.typeAt(off)
		if !ok {
			r.logger.Debugf("%s: no type at %#x", v.Name, off)
			unresolve(v)
			return
		}
		off = 0

		switch t.Tag {
		case dwarf.TagSubroutineType:
			v.TypeTag |= TypeTagSubroutine
			function = true
			if !typedef {
				name.WriteString(" (* ) ()")
			}

		case dwarf.TagStructType, dwarf.TagUnionType:
			keyword := "struct"
			if t.Tag == dwarf.TagStructType {
				v.TypeTag |= TypeTagStructure
			} else {
				v.TypeTag |= TypeTagUnion
				keyword = "union"
			}
			if !typedef {
				switch {
				case t.Name != "":
					name.WriteString(t.Name)
				case t.TypeOffset == 0:
					name.WriteString(keyword)
				}
			}
			if t.TypeOffset != 0 {
				off = t.TypeOffset
				break
			}
			if !isPointer() {
				v.TypeByteSize = t.ByteSize
			}
			if v.Op != 0 {
				r.expand(v, t, path, depth)
			}

		case dwarf.TagPointerType:
			if !isPointer() {
				v.TypeByteSize = t.ByteSize
				v.TypeEncoding = pointerEncoding
			}
			v.TypeTag |= TypeTagPointer
			if !typedef {
				stars++
			}
			if t.TypeOffset == 0 {
				if !typedef {
					name.WriteString("void")
				}
				break
			}
			off = t.TypeOffset

		case dwarf.TagEnumerationType:
			v.TypeTag |= TypeTagEnumeration
			if !isPointer() {
				v.TypeByteSize = t.ByteSize
				v.TypeEncoding = t.Encoding
				if v.TypeEncoding == 0 {
					v.TypeEncoding = enumEncodings[t.ByteSize]
				}
			}
			if !typedef {
				if t.Name != "" {
					name.WriteString(t.Name)
				} else {
					name.WriteString("enum")
				}
			}

		case dwarf.TagTypedef:
			if !typedef {
				typedef = true
				v.TypeTag |= TypeTagTypedef
				name.WriteString(t.Name)
			}
			off = t.TypeOffset

		case dwarf.TagSubrangeType:
			v.TypeTag |= TypeTagSubrange

		case dwarf.TagArrayType:
			v.TypeTag |= TypeTagArray
			if !typedef {
				array = true
			}
			off = t.TypeOffset

		case dwarf.TagConstType:
			v.TypeTag |= TypeTagConst
			if !typedef {
				name.WriteString("const ")
				if t.TypeOffset == 0 {
					name.WriteString("void")
				}
			}
			off = t.TypeOffset

		case dwarf.TagBaseType:
			if !typedef {
				name.WriteString(t.Name)
			}
			if !isPointer() {
				v.TypeByteSize = t.ByteSize
				v.TypeEncoding = t.Encoding
			}
		}
	}

	if stars > 0 && !function {
		name.WriteString(strings.Repeat("*", stars))
		name.WriteByte(' ')
	}
	if array {
		name.WriteString("[]")
	}
	v.TypeName = name.String()

	if v.TypeTag != 0 && strings.TrimSpace(v.TypeName) == "" {
		r.logger.Debugf("%s: type at %#x has no name", v.Name, v.TypeOffset)
		unresolve(v)
	}
}

// expand adds one member variable to v for each member of the structure
// or union t. Members inherit the location operation of v and take the
// member offset as their offset.
func (r *typeResolver) expand(v *Variable, t *TypeRecord, path map[dwarf.Offset]bool, depth int) {
	if path[t.Offset] || depth >= maxMemberDepth {
		r.logger.Debugf("%s: not expanding recursive type %s", v.Name, t.Name)
		return
	}
	path[t.Offset] = true
	defer delete(path, t.Offset)

	v.Members = make([]Variable, 0, len(t.Members))
	for _, m := range t.Members {
		mv := Variable{Op: v.Op, Name: m.Name, TypeOffset: m.TypeOffset, Offset: m.DataMemberLocation}
		if v.Op == op.DW_OP_addr && v.TypeTag&TypeTagPointer == 0 {
			mv.Addr = v.Addr + uint64(m.DataMemberLocation)
		}
		r.resolveMembers(&mv, path, depth+1)
		v.Members = append(v.Members, mv)
	}
}

// unresolve clears the type information of v.
func unresolve(v *Variable) {
	v.TypeTag = 0
	v.TypeName = ""
	v.TypeByteSize = 0
	v.TypeEncoding = 0
	v.Members = nil
}
