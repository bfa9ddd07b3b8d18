package symbols

import (
	"debug/dwarf"
	"fmt"
	"time"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/godwarf"
	"github.com/dwarfsym/dwarfsym/pkg/dwarf/op"
	"github.com/dwarfsym/dwarfsym/pkg/dwarf/reader"
	"github.com/dwarfsym/dwarfsym/pkg/logflags"
	"github.com/dwarfsym/dwarfsym/pkg/source"
)

// builder converts the entry trees returned by a session into compile
// units.
type builder struct {
	session    Session
	resolver   *source.Resolver
	cache      *source.Cache
	exeModTime time.Time
}

// buildUnit builds the compile unit rooted at tree. The returned unit is
// never nil, the error reports a line table that could not be read.
//
// The line table rows are expected in increasing address order within
// each sequence, as emitted by the compiler. Line lookups return the last
// row not exceeding the address searched, rows out of order make this the
// last such row in table order.
func (b *builder) buildUnit(tree *godwarf.Tree) (*CompileUnit, error) {
	logger := logflags.LoaderLogger()

	cu := &CompileUnit{Tag: tree.Tag, Offset: tree.Offset}
	cu.SourceFilename, _ = tree.Val(dwarf.AttrName).(string)
	cu.SourceDirectory, _ = tree.Val(dwarf.AttrCompDir).(string)
	cu.Producer, _ = tree.Val(dwarf.AttrProducer).(string)
	cu.Language, _ = tree.Val(dwarf.AttrLanguage).(int64)
	var hashigh bool
	cu.LowPC, cu.HighPC, _, hashigh = tree.PCRange()
	if !hashigh {
		if low, high, ok := tree.Span(); ok {
			cu.LowPC, cu.HighPC = low, high
		}
	}

	rows, lterr := b.session.LineTable(tree)
	if lterr != nil {
		lterr = fmt.Errorf("could not read line table of %s: %w", cu.SourceFilename, lterr)
	}

	for _, child := range tree.Children {
		switch child.Tag {
		case dwarf.TagVariable:
			if v, ok := globalVariable(child); ok {
				cu.Variables = append(cu.Variables, v)
			}
		case dwarf.TagBaseType, dwarf.TagTypedef, dwarf.TagUnionType, dwarf.TagStructType,
			dwarf.TagPointerType, dwarf.TagConstType, dwarf.TagArrayType, dwarf.TagSubrangeType,
			dwarf.TagSubroutineType, dwarf.TagEnumerationType:
			cu.Types = append(cu.Types, typeRecord(child))
		case dwarf.TagSubprogram:
			cu.SubPrograms = append(cu.SubPrograms, subProgram(child, rows))
		}
	}

	cu.Lines = make([]LineRecord, 0, len(rows))
	for _, row := range rows {
		cu.Lines = append(cu.Lines, LineRecord{Address: row.Address, Line: row.Line})
	}

	if cu.LowPC == 0 && (cu.HighPC == 0 || cu.HighPC == ^uint64(0)) && len(rows) > 0 {
		cu.LowPC = rows[0].Address
		cu.HighPC = rows[len(rows)-1].Address
	}

	b.loadSource(cu)

	cu.indexTypes()
	r := &typeResolver{cu: cu}
	for i := range cu.Variables {
		r.resolve(&cu.Variables[i])
	}
	for i := range cu.SubPrograms {
		for j := range cu.SubPrograms[i].Variables {
			r.resolve(&cu.SubPrograms[i].Variables[j])
		}
	}

	logger.Debugf("%s: %d functions, %d types, %d globals, %d line rows, source %v",
		cu.SourceFilename, len(cu.SubPrograms), len(cu.Types), len(cu.Variables), len(cu.Lines), cu.Status)
	return cu, lterr
}

// loadSource resolves the source file of cu, loads its text and attaches
// it to the line records.
func (b *builder) loadSource(cu *CompileUnit) {
	if cu.SourceFilename == "" {
		cu.Status = source.StatusNoFileInfo
		return
	}
	cu.SourceDirectory, cu.FullFilename = b.resolver.Resolve(cu.SourceDirectory, cu.SourceFilename)
	f := b.cache.Load(cu.FullFilename, b.exeModTime)
	cu.Status = f.Status
	if f.Status != source.StatusOk {
		return
	}
	cu.Source = f.Lines

	for i := range cu.Lines {
		cu.Lines[i].Text = f.Line(cu.Lines[i].Line)
	}
	for i := range cu.SubPrograms {
		sp := &cu.SubPrograms[i]
		sp.DeclText = f.Line(sp.DeclLine)
		for j := range sp.Lines {
			sp.Lines[j].Text = f.Line(sp.Lines[j].Line)
		}
	}
}

// globalVariable decodes a variable declared at compile unit scope.
// Variables without a name or without a static address are dropped.
func globalVariable(e *godwarf.Tree) (Variable, bool) {
	var v Variable
	v.Name, _ = e.Name()
	v.TypeOffset, _ = e.Val(dwarf.AttrType).(dwarf.Offset)
	if block, ok := e.Val(dwarf.AttrLocation).([]byte); ok {
		loc := op.DecodeAddress(block)
		v.Op, v.Addr, v.Location = loc.Op, loc.Addr, block
	}
	if v.Name == "" || v.Addr == 0 {
		logflags.LoaderLogger().Debugf("dropping global variable at %#x (name %q, address %#x)", e.Offset, v.Name, v.Addr)
		return v, false
	}
	return v, true
}

// localVariable decodes a parameter or a local variable. Parameters are
// encoded with an unsigned frame offset, locals with a signed one.
// Variables without a name are dropped.
func localVariable(e *godwarf.Tree) (Variable, bool) {
	var v Variable
	v.Name, _ = e.Name()
	v.TypeOffset, _ = e.Val(dwarf.AttrType).(dwarf.Offset)
	if block, ok := e.Val(dwarf.AttrLocation).([]byte); ok {
		loc := op.DecodeFrameOffset(block, e.Tag != dwarf.TagFormalParameter)
		v.Op, v.Offset, v.Location = loc.Op, loc.Offset, block
	}
	return v, v.Name != ""
}

func typeRecord(e *godwarf.Tree) TypeRecord {
	t := TypeRecord{Tag: e.Tag, Offset: e.Offset}
	t.TypeOffset, _ = e.Val(dwarf.AttrType).(dwarf.Offset)
	t.ByteSize, _ = e.Val(dwarf.AttrByteSize).(int64)
	t.Encoding, _ = e.Val(dwarf.AttrEncoding).(int64)
	t.Name, _ = e.Name()

	switch e.Tag {
	case dwarf.TagStructType, dwarf.TagUnionType:
		for _, child := range e.Children {
			if child.Tag != dwarf.TagMember {
				continue
			}
			var m StructureMember
			m.Name, _ = child.Name()
			m.TypeOffset, _ = child.Val(dwarf.AttrType).(dwarf.Offset)
			m.DataMemberLocation = op.DecodeMemberOffset(child.Val(dwarf.AttrDataMemberLoc))
			t.Members = append(t.Members, m)
		}
	case dwarf.TagEnumerationType:
		for _, child := range e.Children {
			if child.Tag != dwarf.TagEnumerator {
				continue
			}
			var en Enumeration
			en.Name, _ = child.Name()
			en.Value, _ = child.Val(dwarf.AttrConstValue).(int64)
			t.Enumerations = append(t.Enumerations, en)
		}
	}
	return t
}

// subProgram decodes a function entry, its variables and the rows of the
// unit line table that fall inside its address range.
func subProgram(e *godwarf.Tree, rows []reader.LineRow) SubProgram {
	sp := SubProgram{Offset: e.Offset}
	sp.Name, _ = e.Name()
	var haslow bool
	sp.LowPC, sp.HighPC, haslow, _ = e.PCRange()
	if !haslow {
		if low, high, ok := e.Span(); ok {
			sp.LowPC, sp.HighPC = low, high
		}
	}
	if declLine, ok := e.Val(dwarf.AttrDeclLine).(int64); ok {
		sp.DeclLine = int(declLine)
	}
	switch fb := e.Val(dwarf.AttrFrameBase).(type) {
	case []byte:
		sp.FrameBase = op.DecodeFrameOffset(fb, true)
	case int64:
		sp.FrameBase = op.Location{Offset: fb}
	}

	for _, row := range rows {
		var in bool
		if len(e.Ranges) > 0 {
			in = e.ContainsPC(row.Address)
		} else {
			in = row.Address >= sp.LowPC && row.Address < sp.HighPC
		}
		if in {
			sp.Lines = append(sp.Lines, LineRecord{Address: row.Address, Line: row.Line})
		}
	}

	for _, child := range reader.Variables(e) {
		if v, ok := localVariable(child.Tree); ok {
			sp.Variables = append(sp.Variables, v)
		}
	}
	return sp
}

// indexTypes builds the offset to type index of cu.
func (cu *CompileUnit) indexTypes() {
	cu.typeIndex = make(map[dwarf.Offset]int, len(cu.Types))
	for i := range cu.Types {
		if _, dup := cu.typeIndex[cu.Types[i].Offset]; !dup {
			cu.typeIndex[cu.Types[i].Offset] = i
		}
	}
}

func (cu *CompileUnit) typeAt(off dwarf.Offset) (*TypeRecord, bool) {
	i, ok := cu.typeIndex[off]
	if !ok {
		return nil, false
	}
	return &cu.Types[i], true
}
