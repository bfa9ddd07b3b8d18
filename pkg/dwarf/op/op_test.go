package op

import "testing"

func TestDecodeAddress(t *testing.T) {
	tc := []struct {
		block []byte
		op    Opcode
		addr  uint64
	}{
		{[]byte{byte(DW_OP_addr), 0x00, 0xf0, 0x30, 0x10}, DW_OP_addr, 0xf03010},
		{[]byte{byte(DW_OP_addr), 0x10, 0x20, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00}, DW_OP_addr, 0x402010},
		{[]byte{byte(DW_OP_addr), 0x12, 0x34}, DW_OP_addr, 0},
		{[]byte{byte(DW_OP_addr)}, DW_OP_addr, 0},
		{nil, 0, 0},
	}
	for _, c := range tc {
		loc := DecodeAddress(c.block)
		if loc.Op != c.op || loc.Addr != c.addr {
			t.Errorf("DecodeAddress(%x): got %v %#x, expected %v %#x", c.block, loc.Op, loc.Addr, c.op, c.addr)
		}
	}
}

func TestDecodeFrameOffset(t *testing.T) {
	tc := []struct {
		block  []byte
		signed bool
		offset int64
	}{
		{[]byte{byte(DW_OP_fbreg), 0x7c}, true, -4},
		{[]byte{byte(DW_OP_fbreg), 0x7c}, false, 0x7c},
		{[]byte{byte(DW_OP_fbreg), 0x80, 0x01}, false, 128},
		{[]byte{byte(DW_OP_fbreg), 0x80, 0x7f}, true, -128},
		{[]byte{byte(DW_OP_fbreg)}, true, 0},
		{[]byte{byte(DW_OP_fbreg), 1, 2, 3, 4, 5}, true, 0},
	}
	for _, c := range tc {
		loc := DecodeFrameOffset(c.block, c.signed)
		if loc.Op != DW_OP_fbreg {
			t.Errorf("DecodeFrameOffset(%x): wrong opcode %v", c.block, loc.Op)
		}
		if loc.Offset != c.offset {
			t.Errorf("DecodeFrameOffset(%x, %v): got %d, expected %d", c.block, c.signed, loc.Offset, c.offset)
		}
	}
}

func TestDecodeMemberOffset(t *testing.T) {
	tc := []struct {
		val interface{}
		off int64
	}{
		{int64(8), 8},
		{uint64(12), 12},
		{[]byte{byte(DW_OP_plus_uconst), 0x10}, 16},
		{[]byte{byte(DW_OP_plus_uconst), 0x80, 0x02}, 256},
		{[]byte{byte(DW_OP_plus_uconst)}, 0},
		{"bogus", 0},
		{nil, 0},
	}
	for _, c := range tc {
		if off := DecodeMemberOffset(c.val); off != c.off {
			t.Errorf("DecodeMemberOffset(%v): got %d, expected %d", c.val, off, c.off)
		}
	}
}

func TestOpcodeString(t *testing.T) {
	if s := DW_OP_fbreg.String(); s != "DW_OP_fbreg" {
		t.Errorf("got %q", s)
	}
	if s := (DW_OP_breg0 + 5).String(); s != "DW_OP_breg5" {
		t.Errorf("got %q", s)
	}
	if s := Opcode(0xe0).String(); s != "0xe0" {
		t.Errorf("got %q", s)
	}
}

func TestPrettyPrint(t *testing.T) {
	out := PrettyPrint([]byte{byte(DW_OP_addr), 0x00, 0x00, 0x10, 0x00})
	if out != "DW_OP_addr 0x1000" {
		t.Errorf("got %q", out)
	}
	out = PrettyPrint([]byte{byte(DW_OP_fbreg), 0x7c})
	if out != "DW_OP_fbreg -0x4" {
		t.Errorf("got %q", out)
	}
}
