package godwarf

import (
	"debug/dwarf"
	"testing"
)

func makeRanges(v ...uint64) [][2]uint64 {
	r := make([][2]uint64, 0, len(v)/2)
	for i := 0; i < len(v); i += 2 {
		r = append(r, [2]uint64{v[i], v[i+1]})
	}
	return r
}

func assertRanges(t *testing.T, out, tgt [][2]uint64) {
	if len(out) != len(tgt) {
		t.Errorf("\nexpected:\t%v\ngot:\t\t%v", tgt, out)
	}
	for i := range out {
		if out[i] != tgt[i] {
			t.Errorf("\nexpected:\t%v\ngot:\t\t%v", tgt, out)
			break
		}
	}
}

func TestNormalizeRanges(t *testing.T) {
	mr := makeRanges
	assertRanges(t, normalizeRanges(mr(10, 12, 12, 15)), mr(10, 15))
	assertRanges(t, normalizeRanges(mr(12, 15, 10, 12)), mr(10, 15))
	assertRanges(t, normalizeRanges(mr(4910012, 4910013, 4910013, 4910098, 4910124, 4910127)), mr(4910012, 4910098, 4910124, 4910127))
	assertRanges(t, normalizeRanges(mr(5, 5)), mr())
}

func TestSpan(t *testing.T) {
	n := &Tree{Ranges: makeRanges(0x2000, 0x2100, 0x1000, 0x1010)}
	low, high, ok := n.Span()
	if !ok || low != 0x1000 || high != 0x2100 {
		t.Fatalf("got %#x %#x %v", low, high, ok)
	}
	if n.Ranges[0][0] != 0x2000 {
		t.Fatalf("Span modified the ranges of the entry")
	}
	if !n.ContainsPC(0x1008) || n.ContainsPC(0x1010) {
		t.Fatalf("ContainsPC mismatch")
	}
}

func TestPCRange(t *testing.T) {
	e := &dwarf.Entry{
		Tag: dwarf.TagSubprogram,
		Field: []dwarf.Field{
			{Attr: dwarf.AttrLowpc, Val: uint64(0x1000), Class: dwarf.ClassAddress},
			{Attr: dwarf.AttrHighpc, Val: int64(0x30), Class: dwarf.ClassConstant},
		},
	}
	low, high, haslow, hashigh := EntryToTree(e).PCRange()
	if !haslow || !hashigh || low != 0x1000 || high != 0x1030 {
		t.Fatalf("constant high_pc: got %#x %#x %v %v", low, high, haslow, hashigh)
	}

	e.Field[1] = dwarf.Field{Attr: dwarf.AttrHighpc, Val: uint64(0x1040), Class: dwarf.ClassAddress}
	_, high, _, _ = EntryToTree(e).PCRange()
	if high != 0x1040 {
		t.Fatalf("address high_pc: got %#x", high)
	}

	_, _, haslow, hashigh = EntryToTree(&dwarf.Entry{Tag: dwarf.TagCompileUnit}).PCRange()
	if haslow || hashigh {
		t.Fatalf("entry without range reported one")
	}
}
