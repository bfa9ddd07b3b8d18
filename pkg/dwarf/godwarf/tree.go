package godwarf

import (
	"debug/dwarf"
	"sort"
)

// Tree represents a tree of dwarf objects.
type Tree struct {
	Entry    *dwarf.Entry
	Tag      dwarf.Tag
	Offset   dwarf.Offset
	Ranges   [][2]uint64
	Children []*Tree
}

// EntryToTree converts a single entry, without children to a *Tree object
func EntryToTree(entry *dwarf.Entry) *Tree {
	return &Tree{Entry: entry, Offset: entry.Offset, Tag: entry.Tag}
}

// LoadChildren reads the children of e from rdr, which must be positioned
// right after e. The returned slice holds every child that could be read
// before an error occurred.
func LoadChildren(e *dwarf.Entry, rdr *dwarf.Reader) ([]*Tree, error) {
	if !e.Children {
		return nil, nil
	}
	children := []*Tree{}
	for {
		e, err := rdr.Next()
		if err != nil {
			return children, err
		}
		if e == nil || e.Tag == 0 {
			break
		}
		child := EntryToTree(e)
		child.Children, err = LoadChildren(e, rdr)
		children = append(children, child)
		if err != nil {
			return children, err
		}
	}
	return children, nil
}

// Val returns the value of attr, nil if the entry does not have it.
func (n *Tree) Val(attr dwarf.Attr) interface{} {
	if n.Entry == nil {
		return nil
	}
	return n.Entry.Val(attr)
}

// AttrField returns the field for attr, nil if the entry does not have it.
func (n *Tree) AttrField(attr dwarf.Attr) *dwarf.Field {
	if n.Entry == nil {
		return nil
	}
	return n.Entry.AttrField(attr)
}

// Name returns the DW_AT_name of the entry.
func (n *Tree) Name() (string, bool) {
	s, ok := n.Val(dwarf.AttrName).(string)
	return s, ok
}

// PCRange returns the [low, high) address range of the entry as described
// by DW_AT_low_pc and DW_AT_high_pc. A DW_AT_high_pc of constant class is
// an offset from the low address (DWARF 4 and later).
func (n *Tree) PCRange() (low, high uint64, haslow, hashigh bool) {
	low, haslow = n.Val(dwarf.AttrLowpc).(uint64)
	f := n.AttrField(dwarf.AttrHighpc)
	if f == nil {
		return low, 0, haslow, false
	}
	switch x := f.Val.(type) {
	case uint64:
		return low, x, haslow, true
	case int64:
		return low, low + uint64(x), haslow, true
	}
	return low, 0, haslow, false
}

// Span returns the smallest range containing all of n.Ranges.
func (n *Tree) Span() (low, high uint64, ok bool) {
	if len(n.Ranges) == 0 {
		return 0, 0, false
	}
	rngs := normalizeRanges(append([][2]uint64(nil), n.Ranges...))
	if len(rngs) == 0 {
		return 0, 0, false
	}
	return rngs[0][0], rngs[len(rngs)-1][1], true
}

// normalizeRanges sorts rngs by starting point and fuses overlapping entries.
func normalizeRanges(rngs [][2]uint64) [][2]uint64 {
	const (
		start = 0
		end   = 1
	)

	if len(rngs) == 0 {
		return rngs
	}

	sort.Slice(rngs, func(i, j int) bool {
		return rngs[i][start] <= rngs[j][start]
	})

	// eliminate invalid entries
	out := rngs[:0]
	for i := range rngs {
		if rngs[i][start] < rngs[i][end] {
			out = append(out, rngs[i])
		}
	}
	rngs = out
	if len(rngs) == 0 {
		return rngs
	}

	// fuse overlapping entries
	out = rngs[:1]
	for i := 1; i < len(rngs); i++ {
		cur := rngs[i]
		if cur[start] <= out[len(out)-1][end] {
			if cur[end] > out[len(out)-1][end] {
				out[len(out)-1][end] = cur[end]
			}
		} else {
			out = append(out, cur)
		}
	}
	return out
}

// ContainsPC returns true if the ranges of this DIE contains PC.
func (n *Tree) ContainsPC(pc uint64) bool {
	for _, rng := range n.Ranges {
		if rng[0] <= pc && pc < rng[1] {
			return true
		}
	}
	return false
}
