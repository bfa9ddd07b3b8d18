package symbols

import (
	"debug/dwarf"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/dwarfbuilder"
	"github.com/dwarfsym/dwarfsym/pkg/dwarf/godwarf"
	"github.com/dwarfsym/dwarfsym/pkg/dwarf/op"
	"github.com/dwarfsym/dwarfsym/pkg/dwarf/reader"
	"github.com/dwarfsym/dwarfsym/pkg/source"
)

const langC99 = 0x0c

var exeTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func addrBlock(addr uint32) []byte {
	return []byte{byte(op.DW_OP_addr), byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
}

func sourceText(n int) string {
	var buf strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&buf, "line %d\r\n", i)
	}
	return buf.String()
}

func writeSource(t *testing.T, fs afero.Fs, path string, lines int, modTime time.Time) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(sourceText(lines)), 0644); err != nil {
		t.Fatal(err)
	}
	if err := fs.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}
}

// fixtureData returns the debug information of two compile units:
//
//	x.c: globals g_a (0x4000), an unnamed one and g_zero (no address),
//	     f [0x1000, 0x1030) and g [0x1030, 0x1050) declared at line 20,
//	     no address range, a line table.
//	y.c: [0x2000, 0x2100), globals counter (0x5000) and g_a (0x5004),
//	     main [0x2000, 0x2100), no line table.
func fixtureData(t *testing.T) *dwarf.Data {
	t.Helper()
	b := dwarfbuilder.New("x.c", langC99)
	b.Attr(dwarf.AttrCompDir, "/src")
	b.Attr(dwarf.AttrProducer, "GNU C99 4.9.4")
	lp := dwarfbuilder.NewLineProgram("x.c")
	lp.Row(0x1000, 10)
	lp.Row(0x1010, 12)
	lp.Row(0x1020, 15)
	lp.Row(0x1030, 21)
	lp.Row(0x1040, 22)
	lp.EndSequence(0x1050)
	b.AddLineProgram(lp)

	intoff := b.AddBaseType("int", dwarfbuilder.DW_ATE_signed, 4)
	b.AddVariable("g_a", intoff, addrBlock(0x4000))
	b.AddVariable("", intoff, addrBlock(0x4004))
	b.AddVariable("g_zero", intoff, []byte{byte(op.DW_OP_addr), 0, 0})

	b.AddSubprogram("f", 0x1000, 0x1030, 0)
	b.AddParameter("n", intoff, []byte{byte(op.DW_OP_fbreg), 0x7c})
	b.AddVariable("i", intoff, []byte{byte(op.DW_OP_fbreg), 0x7c})
	b.AddVariable("", intoff, dwarfbuilder.LocationBlock(op.DW_OP_fbreg, -8))
	b.TagOpen(dwarf.TagLexDwarfBlock, "")
	b.AddVariable("j", intoff, dwarfbuilder.LocationBlock(op.DW_OP_fbreg, -12))
	b.TagClose()
	b.TagClose()

	b.AddSubprogram("g", 0x1030, 0x1050, 20)
	b.TagClose()

	if err := b.NextUnit("y.c", langC99); err != nil {
		t.Fatal(err)
	}
	b.Attr(dwarf.AttrCompDir, "/src")
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x2000))
	b.Attr(dwarf.AttrHighpc, uint32(0x100))
	intoff = b.AddBaseType("int", dwarfbuilder.DW_ATE_signed, 4)
	b.AddVariable("counter", intoff, addrBlock(0x5000))
	b.AddVariable("g_a", intoff, addrBlock(0x5004))
	b.AddSubprogram("main", 0x2000, 0x2100, 3)
	b.TagClose()

	data, err := b.Data()
	if err != nil {
		t.Fatalf("could not parse dwarf: %v", err)
	}
	return data
}

func fixtureFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "/src/x.c", 30, exeTime.Add(-time.Hour))
	writeSource(t, fs, "/src/y.c", 10, exeTime.Add(-time.Hour))
	return fs
}

func loadModel(t *testing.T, m *Model, data *dwarf.Data) {
	t.Helper()
	if err := m.Load(reader.NewSession(data, nil), exeTime); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := m.LoadErrors(); err != nil {
		t.Fatalf("load errors: %v", err)
	}
}

func fixtureModel(t *testing.T) *Model {
	m := New()
	m.SetFs(fixtureFs(t))
	loadModel(t, m, fixtureData(t))
	return m
}

func TestUnitRanges(t *testing.T) {
	m := fixtureModel(t)
	if m.NumUnits() != 2 || m.NumSources() != 2 {
		t.Fatalf("expected 2 units got %d", m.NumUnits())
	}
	expected := [][2]uint64{{0x1000, 0x1050}, {0x2000, 0x2100}}
	for i := 0; i < m.NumUnits(); i++ {
		cu, _ := m.Unit(i)
		if cu.LowPC != expected[i][0] || cu.HighPC != expected[i][1] {
			t.Errorf("unit %d: range [%#x, %#x)", i, cu.LowPC, cu.HighPC)
		}
		if cu.LowPC > cu.HighPC {
			t.Errorf("unit %d: low > high", i)
		}
		for _, sp := range cu.SubPrograms {
			if sp.LowPC < cu.LowPC || sp.HighPC > cu.HighPC {
				t.Errorf("unit %d: function %s [%#x, %#x) outside of unit", i, sp.Name, sp.LowPC, sp.HighPC)
			}
		}
	}
	cu, _ := m.Unit(0)
	if cu.Producer != "GNU C99 4.9.4" || cu.Language != langC99 || m.SourceLanguage(1) != langC99 {
		t.Errorf("unit attributes %q %d", cu.Producer, cu.Language)
	}
}

func TestLineLookup(t *testing.T) {
	m := fixtureModel(t)

	tc := []struct {
		addr          uint64
		line, stmt    int
		text, function string
	}{
		{0x1000, 10, 10, "line 10", "f"},
		{0x1008, 10, 10, "line 10", "f"},
		{0x1010, 12, 12, "line 12", "f"},
		{0x1025, 15, 15, "line 15", "f"},
		{0x1030, 20, 21, "line 20", "g"},
		{0x1044, 22, 22, "line 22", "g"},
		{0x1050, 0, 0, "", ""},
		{0x0fff, 0, 0, "", ""},
		{0x2000, 3, 0, "line 3", "main"},
	}
	for _, c := range tc {
		if line := m.LineFromAddr(c.addr); line != c.line {
			t.Errorf("LineFromAddr(%#x) = %d, expected %d", c.addr, line, c.line)
		}
		if line := m.StatementLineFromAddr(c.addr); line != c.stmt {
			t.Errorf("StatementLineFromAddr(%#x) = %d, expected %d", c.addr, line, c.stmt)
		}
		if text := m.LineSrcFromAddr(c.addr); text != c.text {
			t.Errorf("LineSrcFromAddr(%#x) = %q, expected %q", c.addr, text, c.text)
		}
		if name := m.FunctionName(c.addr); name != c.function {
			t.Errorf("FunctionName(%#x) = %q, expected %q", c.addr, name, c.function)
		}
	}

	if name := m.SymbolNameFromAddr(0x1030); name != "g" {
		t.Errorf("SymbolNameFromAddr(0x1030) = %q", name)
	}
	if name := m.SymbolNameFromAddr(0x1034); name != "" {
		t.Errorf("SymbolNameFromAddr(0x1034) = %q", name)
	}
	if text := m.LineSrcFromAddrNumLine(0x1004, 12); text != "line 12" {
		t.Errorf("LineSrcFromAddrNumLine(0x1004, 12) = %q", text)
	}
	if text := m.LineSrcFromAddrNumLine(0x1034, 20); text != "line 20" {
		t.Errorf("LineSrcFromAddrNumLine(0x1034, 20) = %q", text)
	}
	if text := m.LineSrcFromAddrNumLine(0x1004, 13); text != "" {
		t.Errorf("LineSrcFromAddrNumLine(0x1004, 13) = %q", text)
	}
	if text := m.LineSrcFromNumLineBaseAddr(0x1004, 30); text != "line 30" {
		t.Errorf("LineSrcFromNumLineBaseAddr(0x1004, 30) = %q", text)
	}
	if text := m.LineSrcFromNumLineBaseAddr(0x1004, 31); text != "" {
		t.Errorf("LineSrcFromNumLineBaseAddr(0x1004, 31) = %q", text)
	}
}

func TestLineRoundTrip(t *testing.T) {
	// a function without declaration line, the line table alone decides
	sp := SubProgram{
		LowPC:  0x1000,
		HighPC: 0x1030,
		Lines:  []LineRecord{{0x1000, 10, ""}, {0x1010, 12, ""}, {0x1020, 15, ""}},
	}
	m := New()
	m.units = []*CompileUnit{{LowPC: 0x1000, HighPC: 0x1030, SubPrograms: []SubProgram{sp}}}
	m.loaded = true
	if line := m.LineFromAddr(0x1025); line != 15 {
		t.Errorf("0x1025: got %d", line)
	}
	if line := m.LineFromAddr(0x1000); line != 10 {
		t.Errorf("0x1000: got %d", line)
	}
}

func TestSourceLists(t *testing.T) {
	m := fixtureModel(t)

	if m.SourceFilename(0) != "x.c" || m.FullSourceFilename(0) != filepath.FromSlash("/src/x.c") {
		t.Fatalf("unit 0 %q %q", m.SourceFilename(0), m.FullSourceFilename(0))
	}
	if full, status := m.FullSourceFilenameFromAddr(0x2010); full != filepath.FromSlash("/src/y.c") || status != source.StatusOk {
		t.Fatalf("FullSourceFilenameFromAddr(0x2010) = %q %v", full, status)
	}
	if m.SourceLineCount(0, false) != 30 || m.SourceLineCount(0, true) != 6 {
		t.Fatalf("line counts %d %d", m.SourceLineCount(0, false), m.SourceLineCount(0, true))
	}
	if lines := m.SourceLines(0, false); lines[0] != "line 1" || lines[29] != "line 30" {
		t.Fatalf("unexpected source %q", lines)
	}
	used := m.SourceLines(0, true)
	expected := []string{"line 10", "line 12", "line 15", "line 21", "line 22", "line 22"}
	if !reflect.DeepEqual(used, expected) {
		t.Fatalf("used lines: got %q expected %q", used, expected)
	}
	if n := m.UsedLineNumbers(0); !reflect.DeepEqual(n, []int{9, 11, 14, 20, 21, 21}) {
		t.Fatalf("used line numbers %v", n)
	}
	if m.SourceLineCount(1, true) != 0 || m.SourceLineCount(1, false) != 10 {
		t.Fatalf("unit 1 line counts")
	}
}

func TestVariables(t *testing.T) {
	m := fixtureModel(t)

	if n := m.NumVariables(0); n != 3 {
		t.Fatalf("expected 3 globals got %d", n)
	}
	for i, name := range []string{"g_a", "counter", "g_a"} {
		v, ok := m.GlobalVariable(i + 1)
		if !ok || v.Name != name || v.TypeName != "int" || v.TypeByteSize != 4 || v.Op != op.DW_OP_addr {
			t.Errorf("global %d: %#v", i+1, v)
		}
	}
	if _, ok := m.GlobalVariable(4); ok {
		t.Errorf("global 4 exists")
	}
	if _, ok := m.Variable(0, 0); ok {
		t.Errorf("global 0 exists")
	}
	if v, _ := m.GlobalVariable(1); !reflect.DeepEqual(v.Location, addrBlock(0x4000)) {
		t.Errorf("g_a location %#v", v.Location)
	}
	if v, _ := m.Variable(0x1010, 1); !reflect.DeepEqual(v.Location, []byte{byte(op.DW_OP_fbreg), 0x7c}) {
		t.Errorf("n location %#v", v.Location)
	}
	if addr := m.GlobalVariableAddrFromName("g_a"); addr != 0x4000 {
		t.Errorf("g_a at %#x", addr)
	}
	if addr := m.GlobalVariableAddrFromName("g_zero"); addr != 0 {
		t.Errorf("g_zero at %#x", addr)
	}

	if n := m.NumVariables(0x1010); n != 3 {
		t.Fatalf("expected 3 locals in f got %d", n)
	}
	expected := []struct {
		name   string
		offset int64
	}{{"n", 0x7c}, {"i", -4}, {"j", -12}}
	for i, e := range expected {
		v, ok := m.Variable(0x1010, i+1)
		if !ok || v.Name != e.name || v.Offset != e.offset || v.Op != op.DW_OP_fbreg || v.TypeName != "int" {
			t.Errorf("local %d: %#v", i+1, v)
		}
	}
	if _, ok := m.Variable(0x1010, 4); ok {
		t.Errorf("local 4 exists")
	}
	if n := m.NumVariables(0x1040); n != 0 {
		t.Errorf("g has %d variables", n)
	}
	if n := m.NumVariables(0x9000); n != 0 {
		t.Errorf("unknown address has %d variables", n)
	}
}

func TestGlobalIndexStable(t *testing.T) {
	data := fixtureData(t)
	m := New()
	m.SetFs(fixtureFs(t))

	var first []Variable
	for run := 0; run < 3; run++ {
		loadModel(t, m, data)
		var got []Variable
		for i := 1; i <= m.NumVariables(0); i++ {
			v, _ := m.GlobalVariable(i)
			got = append(got, v)
		}
		if run == 0 {
			first = got
		} else if !reflect.DeepEqual(first, got) {
			t.Fatalf("run %d: globals changed:\n%#v\n%#v", run, first, got)
		}
		if !m.Reset() {
			t.Fatalf("Reset failed")
		}
	}
}

type fakeSession struct {
	units    []*godwarf.Tree
	errs     []error
	rows     map[dwarf.Offset][]reader.LineRow
	closed   int
	closeErr error
	next     int
}

func (s *fakeSession) NextUnit() (*godwarf.Tree, error) {
	if s.next >= len(s.units) {
		return nil, io.EOF
	}
	i := s.next
	s.next++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.units[i], err
}

func (s *fakeSession) LineTable(unit *godwarf.Tree) ([]reader.LineRow, error) {
	return s.rows[unit.Offset], nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return s.closeErr
}

func unitTree(off dwarf.Offset, name string, children ...*godwarf.Tree) *godwarf.Tree {
	e := &dwarf.Entry{Offset: off, Tag: dwarf.TagCompileUnit, Children: len(children) > 0, Field: []dwarf.Field{
		{Attr: dwarf.AttrName, Val: name, Class: dwarf.ClassString},
	}}
	t := godwarf.EntryToTree(e)
	t.Children = children
	return t
}

func TestNonContiguousSubProgram(t *testing.T) {
	e := godwarf.EntryToTree(&dwarf.Entry{Offset: 0x40, Tag: dwarf.TagSubprogram, Field: []dwarf.Field{
		{Attr: dwarf.AttrName, Val: "split", Class: dwarf.ClassString},
	}})
	e.Ranges = [][2]uint64{{0x200, 0x210}, {0x100, 0x110}}
	rows := []reader.LineRow{{Address: 0x100, Line: 1}, {Address: 0x150, Line: 2}, {Address: 0x200, Line: 3}, {Address: 0x210, Line: 3, EndSequence: true}}

	sp := subProgram(e, rows)
	if sp.LowPC != 0x100 || sp.HighPC != 0x210 {
		t.Fatalf("range %#x-%#x", sp.LowPC, sp.HighPC)
	}
	if len(sp.Lines) != 2 || sp.Lines[0].Line != 1 || sp.Lines[1].Line != 3 {
		t.Fatalf("lines %#v", sp.Lines)
	}
}

func TestLifecycle(t *testing.T) {
	m := New()
	if !m.Reset() || !m.Reset() || m.NumUnits() != 0 || m.Loaded() {
		t.Fatalf("reset of an empty model")
	}
	if err := m.Load(nil, exeTime); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession got %v", err)
	}

	m.SetFs(afero.NewMemMapFs())
	m.SetSearchPaths([]string{"/a"})
	s := &fakeSession{units: []*godwarf.Tree{unitTree(0x0b, "a.c"), unitTree(0x40, "b.c")}}
	if err := m.Load(s, exeTime); err != nil {
		t.Fatal(err)
	}
	if !m.Loaded() || m.NumUnits() != 2 {
		t.Fatalf("loaded %v units %d", m.Loaded(), m.NumUnits())
	}
	if err := m.Load(&fakeSession{}, exeTime); err != ErrAlreadyLoaded {
		t.Fatalf("expected ErrAlreadyLoaded got %v", err)
	}
	if m.UnitStatus(0) != source.StatusNoFileInfo {
		t.Fatalf("status of a missing source file %v", m.UnitStatus(0))
	}

	if !m.Reset() {
		t.Fatalf("Reset failed")
	}
	if !m.Reset() {
		t.Fatalf("second Reset failed")
	}
	if s.closed != 1 {
		t.Fatalf("session closed %d times", s.closed)
	}
	if m.NumUnits() != 0 || m.Loaded() || len(m.SearchPaths()) != 0 || m.NumVariables(0) != 0 {
		t.Fatalf("model not empty after reset")
	}
	if len(m.CompleteFunction("")) != 0 {
		t.Fatalf("completion not empty after reset")
	}

	s = &fakeSession{closeErr: errors.New("close failed")}
	if err := m.Load(s, exeTime); err != nil {
		t.Fatal(err)
	}
	if m.Close() {
		t.Fatalf("Close succeeded with a failing session")
	}
	if !m.Close() {
		t.Fatalf("second Close failed")
	}
}

func TestLoadErrors(t *testing.T) {
	readErr := errors.New("bad entry")
	s := &fakeSession{
		units: []*godwarf.Tree{unitTree(0x0b, "a.c"), unitTree(0x40, "b.c"), nil, unitTree(0x80, "c.c")},
		errs:  []error{nil, readErr, errors.New("fatal")},
	}
	m := New()
	m.SetFs(afero.NewMemMapFs())
	if err := m.Load(s, exeTime); err != nil {
		t.Fatal(err)
	}
	if m.NumUnits() != 2 || m.SourceFilename(1) != "b.c" {
		t.Fatalf("expected a.c and b.c, got %d units", m.NumUnits())
	}
	err := m.LoadErrors()
	if err == nil || !errors.Is(err, readErr) {
		t.Fatalf("unexpected load errors %v", err)
	}
}

func TestSearchPathResolution(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "/b/x.c", 5, exeTime.Add(-time.Hour))

	b := dwarfbuilder.New("x.c", langC99)
	b.Attr(dwarf.AttrLowpc, dwarfbuilder.Address(0x100))
	b.Attr(dwarf.AttrHighpc, dwarfbuilder.Address(0x120))
	b.AddSubprogram("main", 0x100, 0x120, 2)
	b.TagClose()
	data, err := b.Data()
	if err != nil {
		t.Fatal(err)
	}

	m := New()
	m.SetFs(fs)
	m.SetSearchPaths([]string{"/a", "/b"})
	loadModel(t, m, data)

	cu, _ := m.Unit(0)
	if cu.SourceDirectory != filepath.FromSlash("/b") || cu.FullFilename != filepath.FromSlash("/b/x.c") {
		t.Fatalf("resolved to %q %q", cu.SourceDirectory, cu.FullFilename)
	}
	if cu.Status != source.StatusOk || m.LineSrcFromAddr(0x100) != "line 2" {
		t.Fatalf("status %v", cu.Status)
	}
}

func TestStaleSource(t *testing.T) {
	fs := fixtureFs(t)
	writeSource(t, fs, "/src/x.c", 30, exeTime.Add(time.Second))

	m := New()
	m.SetFs(fs)
	loadModel(t, m, fixtureData(t))

	if m.UnitStatus(0) != source.StatusOutdatedFile || m.UnitStatus(1) != source.StatusOk {
		t.Fatalf("status %v %v", m.UnitStatus(0), m.UnitStatus(1))
	}
	if m.SourceLineCount(0, false) != 0 || len(m.SourceLines(0, false)) != 0 {
		t.Fatalf("outdated source loaded")
	}
	if m.FunctionName(0x1025) != "f" || m.LineFromAddr(0x1025) != 15 || m.LineSrcFromAddr(0x1025) != "" {
		t.Fatalf("queries on an outdated unit")
	}
	if _, status := m.FullSourceFilenameFromAddr(0x1025); status != source.StatusOutdatedFile {
		t.Fatalf("status from address %v", status)
	}
}

func TestCompletion(t *testing.T) {
	m := fixtureModel(t)
	if r := m.CompleteFunction(""); !reflect.DeepEqual(r, []string{"f", "g", "main"}) {
		t.Errorf("functions %q", r)
	}
	if r := m.CompleteGlobal("g_"); !reflect.DeepEqual(r, []string{"g_a"}) {
		t.Errorf("globals %q", r)
	}
	if r := m.CompleteGlobal("x"); len(r) != 0 {
		t.Errorf("globals %q", r)
	}
	if addr, ok := m.FunctionAddr("main"); !ok || addr != 0x2000 {
		t.Errorf("main at %#x %v", addr, ok)
	}
	if _, ok := m.FunctionAddr("ma"); ok {
		t.Errorf("prefix found as a function")
	}
}

func TestQueryMisses(t *testing.T) {
	m := fixtureModel(t)
	if _, ok := m.Unit(2); ok {
		t.Errorf("unit 2")
	}
	if m.SourceFilename(-1) != "" || m.FullSourceFilename(2) != "" || m.SourceLanguage(2) != 0 {
		t.Errorf("unit index out of range")
	}
	if m.SourceLines(2, true) != nil || m.UsedLineNumbers(2) != nil || m.SourceLineCount(2, false) != 0 {
		t.Errorf("source of unit out of range")
	}
	if _, ok := m.UnitForAddr(0x9000); ok {
		t.Errorf("unit for unknown address")
	}
	if _, ok := m.SubProgramForAddr(0x9000); ok {
		t.Errorf("function for unknown address")
	}
	if full, status := m.FullSourceFilenameFromAddr(0x9000); full != "" || status != source.StatusNoFileInfo {
		t.Errorf("source for unknown address")
	}
}
