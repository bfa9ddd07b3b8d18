package dwarfbuilder

import (
	"debug/dwarf"
	"io"
	"testing"
)

func TestBuildUnits(t *testing.T) {
	b := New("a.c", 12)
	b.Attr(dwarf.AttrCompDir, "/src")
	b.AddBaseType("int", DW_ATE_signed, 4)
	if err := b.NextUnit("b.c", 12); err != nil {
		t.Fatal(err)
	}
	b.AddSubprogram("main", 0x1000, 0x1030, 3)
	b.TagClose()

	data, err := b.Data()
	if err != nil {
		t.Fatalf("could not parse dwarf: %v", err)
	}
	rdr := data.Reader()
	var names []string
	for {
		e, err := rdr.Next()
		if err != nil {
			t.Fatal(err)
		}
		if e == nil {
			break
		}
		if e.Tag == dwarf.TagCompileUnit {
			names = append(names, e.Val(dwarf.AttrName).(string))
		}
	}
	if len(names) != 2 || names[0] != "a.c" || names[1] != "b.c" {
		t.Fatalf("unexpected compile units %q", names)
	}
}

func TestBuildLineProgram(t *testing.T) {
	b := New("x.c", 12)
	lp := NewLineProgram("x.c")
	lp.Row(0x1000, 10)
	lp.Row(0x1010, 12)
	lp.Row(0x1020, 15)
	lp.EndSequence(0x1030)
	b.AddLineProgram(lp)

	data, err := b.Data()
	if err != nil {
		t.Fatalf("could not parse dwarf: %v", err)
	}
	cu, err := data.Reader().Next()
	if err != nil {
		t.Fatal(err)
	}
	lr, err := data.LineReader(cu)
	if err != nil || lr == nil {
		t.Fatalf("no line reader: %v", err)
	}
	type row struct {
		addr uint64
		line int
		end  bool
	}
	expected := []row{{0x1000, 10, false}, {0x1010, 12, false}, {0x1020, 15, false}, {0x1030, 15, true}}
	var e dwarf.LineEntry
	for i := 0; ; i++ {
		err := lr.Next(&e)
		if err == io.EOF {
			if i != len(expected) {
				t.Fatalf("got %d rows, expected %d", i, len(expected))
			}
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if i >= len(expected) {
			t.Fatalf("too many rows")
		}
		got := row{e.Address, e.Line, e.EndSequence}
		if got != expected[i] {
			t.Errorf("row %d: got %#v expected %#v", i, got, expected[i])
		}
	}
}
