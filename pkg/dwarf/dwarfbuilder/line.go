package dwarfbuilder

import (
	"bytes"
	"debug/dwarf"
	"encoding/binary"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/leb128"
)

// Standard and extended line number opcodes (see section 6.2.5, DWARF v4).
const (
	DW_LNS_copy         = 0x01
	DW_LNS_advance_pc   = 0x02
	DW_LNS_advance_line = 0x03

	DW_LNE_end_sequence = 0x01
	DW_LNE_set_address  = 0x02
)

var stdOpcodeLengths = []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}

// LineProgram builds a DWARF v4 line number program.
type LineProgram struct {
	files []string
	prog  bytes.Buffer
	line  int
}

// NewLineProgram returns an empty line number program referencing files.
func NewLineProgram(files ...string) *LineProgram {
	return &LineProgram{files: files, line: 1}
}

func (lp *LineProgram) setAddress(addr uint64) {
	lp.prog.WriteByte(0)
	leb128.EncodeUnsigned(&lp.prog, 9)
	lp.prog.WriteByte(DW_LNE_set_address)
	binary.Write(&lp.prog, binary.LittleEndian, addr)
}

// Row appends a row mapping addr to line.
func (lp *LineProgram) Row(addr uint64, line int) {
	lp.setAddress(addr)
	if line != lp.line {
		lp.prog.WriteByte(DW_LNS_advance_line)
		leb128.EncodeSigned(&lp.prog, int64(line-lp.line))
		lp.line = line
	}
	lp.prog.WriteByte(DW_LNS_copy)
}

// EndSequence terminates the current sequence at addr.
func (lp *LineProgram) EndSequence(addr uint64) {
	lp.setAddress(addr)
	lp.prog.WriteByte(0)
	leb128.EncodeUnsigned(&lp.prog, 1)
	lp.prog.WriteByte(DW_LNE_end_sequence)
	lp.line = 1
}

func (lp *LineProgram) bytes() []byte {
	var hdr bytes.Buffer
	hdr.WriteByte(1)    // minimum_instruction_length
	hdr.WriteByte(1)    // maximum_operations_per_instruction
	hdr.WriteByte(1)    // default_is_stmt
	hdr.WriteByte(0xfb) // line_base (-5)
	hdr.WriteByte(14)   // line_range
	hdr.WriteByte(byte(len(stdOpcodeLengths) + 1))
	hdr.Write(stdOpcodeLengths)
	hdr.WriteByte(0) // include_directories
	for _, file := range lp.files {
		hdr.WriteString(file)
		hdr.WriteByte(0)
		leb128.EncodeUnsigned(&hdr, 0) // directory index
		leb128.EncodeUnsigned(&hdr, 0) // modification time
		leb128.EncodeUnsigned(&hdr, 0) // length
	}
	hdr.WriteByte(0)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(2+4+hdr.Len()+lp.prog.Len()))
	binary.Write(&out, binary.LittleEndian, uint16(4))
	binary.Write(&out, binary.LittleEndian, uint32(hdr.Len()))
	out.Write(hdr.Bytes())
	out.Write(lp.prog.Bytes())
	return out.Bytes()
}

// AddLineProgram appends lp to debug_line and points the DW_AT_stmt_list
// of the current compile unit to it. It must be called before any child
// of the compile unit is added.
func (b *Builder) AddLineProgram(lp *LineProgram) {
	off := LinePtr(b.line.Len())
	b.line.Write(lp.bytes())
	b.Attr(dwarf.AttrStmtList, off)
}
