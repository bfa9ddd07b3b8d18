package op

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/leb128"
)

// Opcode represent a DWARF stack program instruction.
type Opcode byte

const (
	DW_OP_addr           Opcode = 0x03
	DW_OP_deref          Opcode = 0x06
	DW_OP_const1u        Opcode = 0x08
	DW_OP_const1s        Opcode = 0x09
	DW_OP_const2u        Opcode = 0x0a
	DW_OP_const2s        Opcode = 0x0b
	DW_OP_const4u        Opcode = 0x0c
	DW_OP_const4s        Opcode = 0x0d
	DW_OP_constu         Opcode = 0x10
	DW_OP_consts         Opcode = 0x11
	DW_OP_plus           Opcode = 0x22
	DW_OP_plus_uconst    Opcode = 0x23
	DW_OP_reg0           Opcode = 0x50
	DW_OP_reg31          Opcode = 0x6f
	DW_OP_breg0          Opcode = 0x70
	DW_OP_breg31         Opcode = 0x8f
	DW_OP_regx           Opcode = 0x90
	DW_OP_fbreg          Opcode = 0x91
	DW_OP_bregx          Opcode = 0x92
	DW_OP_piece          Opcode = 0x93
	DW_OP_call_frame_cfa Opcode = 0x9c
	DW_OP_stack_value    Opcode = 0x9f
)

var opcodeName = map[Opcode]string{
	DW_OP_addr:           "DW_OP_addr",
	DW_OP_deref:          "DW_OP_deref",
	DW_OP_const1u:        "DW_OP_const1u",
	DW_OP_const1s:        "DW_OP_const1s",
	DW_OP_const2u:        "DW_OP_const2u",
	DW_OP_const2s:        "DW_OP_const2s",
	DW_OP_const4u:        "DW_OP_const4u",
	DW_OP_const4s:        "DW_OP_const4s",
	DW_OP_constu:         "DW_OP_constu",
	DW_OP_consts:         "DW_OP_consts",
	DW_OP_plus:           "DW_OP_plus",
	DW_OP_plus_uconst:    "DW_OP_plus_uconst",
	DW_OP_regx:           "DW_OP_regx",
	DW_OP_fbreg:          "DW_OP_fbreg",
	DW_OP_bregx:          "DW_OP_bregx",
	DW_OP_piece:          "DW_OP_piece",
	DW_OP_call_frame_cfa: "DW_OP_call_frame_cfa",
	DW_OP_stack_value:    "DW_OP_stack_value",
}

func (op Opcode) String() string {
	switch {
	case op >= DW_OP_reg0 && op <= DW_OP_reg31:
		return fmt.Sprintf("DW_OP_reg%d", op-DW_OP_reg0)
	case op >= DW_OP_breg0 && op <= DW_OP_breg31:
		return fmt.Sprintf("DW_OP_breg%d", op-DW_OP_breg0)
	}
	if name, ok := opcodeName[op]; ok {
		return name
	}
	return fmt.Sprintf("%#x", byte(op))
}

const (
	// addrBlockLen is the length of a location block holding an opcode
	// followed by a 32bit address.
	addrBlockLen = 5
	// addr64BlockLen is the length of a location block holding an opcode
	// followed by a 64bit address.
	addr64BlockLen = 9
)

// Location is the decoded form of a short location expression: the first
// opcode of the block and its operand, interpreted either as an absolute
// address or as a frame relative offset depending on how it was decoded.
type Location struct {
	Op     Opcode
	Addr   uint64
	Offset int64
}

// DecodeAddress decodes a location block describing a statically
// allocated variable. The opcode + 4 byte big endian address shape is the
// one emitted for 32bit targets, opcode + 8 byte little endian address is
// accepted for 64bit hosts. Any other shape yields a zero address.
func DecodeAddress(block []byte) Location {
	if len(block) == 0 {
		return Location{}
	}
	loc := Location{Op: Opcode(block[0])}
	switch len(block) {
	case addrBlockLen:
		loc.Addr = uint64(binary.BigEndian.Uint32(block[1:]))
	case addr64BlockLen:
		loc.Addr = binary.LittleEndian.Uint64(block[1:])
	}
	return loc
}

// DecodeFrameOffset decodes a location block describing a variable stored
// relative to the frame base. Blocks between 2 and 5 bytes long carry a
// LEB128 operand after the opcode, signed selects the SLEB128 reading.
// Other shapes yield a zero offset.
func DecodeFrameOffset(block []byte, signed bool) Location {
	if len(block) == 0 {
		return Location{}
	}
	loc := Location{Op: Opcode(block[0])}
	if len(block) < 2 || len(block) > 5 {
		return loc
	}
	if signed {
		loc.Offset = leb128.Signed(block[1:])
	} else {
		loc.Offset = int64(leb128.Unsigned(block[1:]))
	}
	return loc
}

// DecodeMemberOffset decodes the value of a DW_AT_data_member_location
// attribute. Constants are returned as is, location expressions of 2 to 4
// bytes (typically DW_OP_plus_uconst followed by a ULEB128) are decoded,
// anything else is 0.
func DecodeMemberOffset(val interface{}) int64 {
	switch x := val.(type) {
	case int64:
		return x
	case uint64:
		return int64(x)
	case []byte:
		if len(x) >= 2 && len(x) <= 4 {
			return int64(leb128.Unsigned(x[1:]))
		}
	}
	return 0
}

// PrettyPrint returns a textual representation of the instructions in
// block, operands of the opcodes understood by the decoders are printed in
// hexadecimal.
func PrettyPrint(block []byte) string {
	var out bytes.Buffer
	in := bytes.NewReader(block)
	for in.Len() > 0 {
		b, _ := in.ReadByte()
		opcode := Opcode(b)
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(opcode.String())
		switch {
		case opcode == DW_OP_addr && in.Len() >= 4:
			var x uint32
			binary.Read(in, binary.BigEndian, &x)
			fmt.Fprintf(&out, " %#x", x)
		case opcode == DW_OP_fbreg, opcode == DW_OP_consts, opcode >= DW_OP_breg0 && opcode <= DW_OP_breg31:
			n, _ := leb128.DecodeSigned(in)
			fmt.Fprintf(&out, " %#x", n)
		case opcode == DW_OP_plus_uconst, opcode == DW_OP_constu, opcode == DW_OP_regx, opcode == DW_OP_piece:
			n, _ := leb128.DecodeUnsigned(in)
			fmt.Fprintf(&out, " %#x", n)
		}
	}
	return out.String()
}
