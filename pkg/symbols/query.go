package symbols

import (
	"github.com/dwarfsym/dwarfsym/pkg/source"
)

// The query functions below never modify the model. Values returned share
// their slices with the model and must be treated as read only.
// Unit indices start at 0, variable indices start at 1.

func (cu *CompileUnit) containsPC(addr uint64) bool {
	return cu.LowPC <= addr && addr < cu.HighPC
}

func (sp *SubProgram) containsPC(addr uint64) bool {
	return sp.LowPC <= addr && addr < sp.HighPC
}

// unitsForAddr calls fn for every unit containing addr, in load order,
// until fn returns true.
func (m *Model) unitsForAddr(addr uint64, fn func(cu *CompileUnit) bool) {
	for _, cu := range m.units {
		if cu.containsPC(addr) && fn(cu) {
			return
		}
	}
}

func (m *Model) subProgramForAddr(addr uint64) (*CompileUnit, *SubProgram) {
	var (
		rcu *CompileUnit
		rsp *SubProgram
	)
	m.unitsForAddr(addr, func(cu *CompileUnit) bool {
		for i := range cu.SubPrograms {
			if cu.SubPrograms[i].containsPC(addr) {
				rcu, rsp = cu, &cu.SubPrograms[i]
				return true
			}
		}
		return false
	})
	return rcu, rsp
}

func (m *Model) unit(i int) *CompileUnit {
	if i < 0 || i >= len(m.units) {
		return nil
	}
	return m.units[i]
}

// Unit returns the compile unit with index i.
func (m *Model) Unit(i int) (CompileUnit, bool) {
	cu := m.unit(i)
	if cu == nil {
		return CompileUnit{}, false
	}
	return *cu, true
}

// UnitForAddr returns the first compile unit whose address range contains
// addr.
func (m *Model) UnitForAddr(addr uint64) (CompileUnit, bool) {
	var r *CompileUnit
	m.unitsForAddr(addr, func(cu *CompileUnit) bool {
		r = cu
		return true
	})
	if r == nil {
		return CompileUnit{}, false
	}
	return *r, true
}

// FullSourceFilenameFromAddr returns the resolved source path and the
// source status of the compile unit containing addr. If no unit contains
// addr it returns "" and StatusNoFileInfo.
func (m *Model) FullSourceFilenameFromAddr(addr uint64) (string, source.Status) {
	cu, ok := m.UnitForAddr(addr)
	if !ok {
		return "", source.StatusNoFileInfo
	}
	return cu.FullFilename, cu.Status
}

// SubProgramForAddr returns the function containing addr.
func (m *Model) SubProgramForAddr(addr uint64) (SubProgram, bool) {
	_, sp := m.subProgramForAddr(addr)
	if sp == nil {
		return SubProgram{}, false
	}
	return *sp, true
}

// FunctionName returns the name of the function containing addr.
func (m *Model) FunctionName(addr uint64) string {
	if _, sp := m.subProgramForAddr(addr); sp != nil {
		return sp.Name
	}
	return ""
}

// SymbolNameFromAddr returns the name of the function whose entry address
// is addr.
func (m *Model) SymbolNameFromAddr(addr uint64) string {
	var name string
	m.unitsForAddr(addr, func(cu *CompileUnit) bool {
		for i := range cu.SubPrograms {
			if cu.SubPrograms[i].LowPC == addr {
				name = cu.SubPrograms[i].Name
				return true
			}
		}
		return false
	})
	return name
}

// lineForAddr looks up the line record of addr. The function containing
// addr is searched first: if decl is set and addr is the entry address of
// the function its declaration line is returned, otherwise the last line
// record not exceeding addr. When no function matches, the unit line table
// is searched for a record at exactly addr.
func (m *Model) lineForAddr(addr uint64, decl bool) (LineRecord, bool) {
	var (
		r     LineRecord
		found bool
	)
	m.unitsForAddr(addr, func(cu *CompileUnit) bool {
		for i := range cu.SubPrograms {
			sp := &cu.SubPrograms[i]
			if !sp.containsPC(addr) {
				continue
			}
			if decl && sp.LowPC == addr && sp.DeclLine != 0 {
				r, found = LineRecord{Address: addr, Line: sp.DeclLine, Text: sp.DeclText}, true
				return true
			}
			if lr, ok := nearestLine(sp.Lines, addr); ok {
				r, found = lr, true
				return true
			}
		}
		for _, lr := range cu.Lines {
			if lr.Address == addr {
				r, found = lr, true
				return true
			}
		}
		return false
	})
	return r, found
}

// nearestLine returns the record of lines at addr or, scanning in table
// order, the record preceding the first one beyond addr. When no record is
// beyond addr the last one is returned.
func nearestLine(lines []LineRecord, addr uint64) (LineRecord, bool) {
	for k := range lines {
		if lines[k].Address == addr {
			return lines[k], true
		}
		if lines[k].Address > addr {
			if k == 0 {
				return LineRecord{}, false
			}
			return lines[k-1], true
		}
	}
	if len(lines) == 0 {
		return LineRecord{}, false
	}
	return lines[len(lines)-1], true
}

// LineFromAddr returns the source line of addr, 0 if unknown. The entry
// address of a function maps to its declaration line.
func (m *Model) LineFromAddr(addr uint64) int {
	lr, _ := m.lineForAddr(addr, true)
	return lr.Line
}

// StatementLineFromAddr is like LineFromAddr but uses the line table for
// function entry addresses too.
func (m *Model) StatementLineFromAddr(addr uint64) int {
	lr, _ := m.lineForAddr(addr, false)
	return lr.Line
}

// LineSrcFromAddr returns the source text of the line of addr.
func (m *Model) LineSrcFromAddr(addr uint64) string {
	lr, _ := m.lineForAddr(addr, true)
	return lr.Text
}

// LineSrcFromAddrNumLine returns the text of line n of the function
// containing addr, provided n is its declaration line or one of its line
// records.
func (m *Model) LineSrcFromAddrNumLine(addr uint64, n int) string {
	_, sp := m.subProgramForAddr(addr)
	if sp == nil || n <= 0 {
		return ""
	}
	if sp.DeclLine == n {
		return sp.DeclText
	}
	for _, lr := range sp.Lines {
		if lr.Line == n {
			return lr.Text
		}
	}
	return ""
}

// LineSrcFromNumLineBaseAddr returns the text of line n of the source file
// of the compile unit containing addr.
func (m *Model) LineSrcFromNumLineBaseAddr(addr uint64, n int) string {
	cu, ok := m.UnitForAddr(addr)
	if !ok || n < 1 || n > len(cu.Source) {
		return ""
	}
	return cu.Source[n-1]
}

// NumVariables returns the number of global variables if addr is 0, the
// number of parameters and local variables of the function containing addr
// otherwise.
func (m *Model) NumVariables(addr uint64) int {
	if addr == 0 {
		n := 0
		for _, cu := range m.units {
			n += len(cu.Variables)
		}
		return n
	}
	if _, sp := m.subProgramForAddr(addr); sp != nil {
		return len(sp.Variables)
	}
	return 0
}

// Variable returns the global variable with the given index if addr is 0,
// the parameter or local variable with the given index of the function
// containing addr otherwise. Indices start at 1.
func (m *Model) Variable(addr uint64, index int) (Variable, bool) {
	if addr == 0 {
		return m.GlobalVariable(index)
	}
	_, sp := m.subProgramForAddr(addr)
	if sp == nil || index < 1 || index > len(sp.Variables) {
		return Variable{}, false
	}
	return sp.Variables[index-1], true
}

// GlobalVariable returns the global variable with the given index. Global
// variables are numbered from 1 across all compile units, in load order.
func (m *Model) GlobalVariable(index int) (Variable, bool) {
	if index < 1 {
		return Variable{}, false
	}
	for _, cu := range m.units {
		if index <= len(cu.Variables) {
			return cu.Variables[index-1], true
		}
		index -= len(cu.Variables)
	}
	return Variable{}, false
}

// GlobalVariableAddrFromName returns the address of the first global
// variable called name, 0 if there is none.
func (m *Model) GlobalVariableAddrFromName(name string) uint64 {
	for _, cu := range m.units {
		for i := range cu.Variables {
			if cu.Variables[i].Name == name {
				return cu.Variables[i].Addr
			}
		}
	}
	return 0
}

// NumSources returns the number of compile units.
func (m *Model) NumSources() int {
	return len(m.units)
}

// SourceFilename returns the file name recorded for unit i.
func (m *Model) SourceFilename(i int) string {
	if cu := m.unit(i); cu != nil {
		return cu.SourceFilename
	}
	return ""
}

// FullSourceFilename returns the resolved source path of unit i.
func (m *Model) FullSourceFilename(i int) string {
	if cu := m.unit(i); cu != nil {
		return cu.FullFilename
	}
	return ""
}

// SourceLanguage returns the DW_LANG code of unit i.
func (m *Model) SourceLanguage(i int) int64 {
	if cu := m.unit(i); cu != nil {
		return cu.Language
	}
	return 0
}

// UnitStatus returns the source status of unit i.
func (m *Model) UnitStatus(i int) source.Status {
	if cu := m.unit(i); cu != nil {
		return cu.Status
	}
	return source.StatusNoFileInfo
}

// SourceLineCount returns the number of lines of the source file of unit
// i, or the number of rows of its line table if used is set.
func (m *Model) SourceLineCount(i int, used bool) int {
	cu := m.unit(i)
	if cu == nil {
		return 0
	}
	if used {
		return len(cu.Lines)
	}
	return len(cu.Source)
}

// SourceLines returns the source text of unit i. If used is set only the
// lines referenced by the line table are returned, one per row.
func (m *Model) SourceLines(i int, used bool) []string {
	cu := m.unit(i)
	if cu == nil {
		return nil
	}
	if !used {
		return cu.Source
	}
	r := make([]string, len(cu.Lines))
	for j := range cu.Lines {
		r[j] = cu.Lines[j].Text
	}
	return r
}

// UsedLineNumbers returns, for each row of the line table of unit i, the
// zero based index of its line in the source file.
func (m *Model) UsedLineNumbers(i int) []int {
	cu := m.unit(i)
	if cu == nil {
		return nil
	}
	r := make([]int, len(cu.Lines))
	for j := range cu.Lines {
		r[j] = cu.Lines[j].Line - 1
	}
	return r
}
