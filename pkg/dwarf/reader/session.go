package reader

import (
	"debug/dwarf"
	"fmt"
	"io"

	"github.com/dwarfsym/dwarfsym/pkg/dwarf/godwarf"
)

// LineRow is one row of a compile unit line number program.
type LineRow struct {
	Address     uint64
	Line        int
	EndSequence bool
}

// Session iterates over the compile units of a *dwarf.Data.
type Session struct {
	data   *dwarf.Data
	rdr    *Reader
	closer io.Closer
	done   bool
}

// NewSession returns a session reading data. If closer is not nil it is
// closed by Close.
func NewSession(data *dwarf.Data, closer io.Closer) *Session {
	return &Session{data: data, rdr: New(data), closer: closer}
}

// NextUnit returns the next compile unit with all its children loaded.
// It returns io.EOF after the last unit. When the entries of a unit can
// not be decoded completely the partially loaded unit is returned along
// with the error and the session moves on to the following unit; a nil
// unit with a non nil error means no further unit can be read.
func (s *Session) NextUnit() (*godwarf.Tree, error) {
	if s.done {
		return nil, io.EOF
	}
	e, err := s.rdr.NextCompileUnit()
	if err != nil {
		s.done = true
		return nil, err
	}
	if e == nil {
		s.done = true
		return nil, io.EOF
	}

	tree := godwarf.EntryToTree(e)
	if rngs, err := s.data.Ranges(e); err == nil {
		tree.Ranges = rngs
	}
	tree.Children, err = godwarf.LoadChildren(e, s.rdr.Reader)
	if err != nil {
		if serr := s.rdr.SkipUnit(e); serr != nil {
			s.done = true
		}
		return tree, fmt.Errorf("could not read compile unit at %#x: %w", e.Offset, err)
	}
	for _, child := range tree.Children {
		if child.Tag != dwarf.TagSubprogram {
			continue
		}
		if rngs, err := s.data.Ranges(child.Entry); err == nil {
			child.Ranges = rngs
		}
	}
	return tree, nil
}

// LineTable returns all the rows of the line number program of unit, in
// the order they are emitted. A unit without a line program has no rows.
func (s *Session) LineTable(unit *godwarf.Tree) ([]LineRow, error) {
	lr, err := s.data.LineReader(unit.Entry)
	if err != nil {
		return nil, err
	}
	if lr == nil {
		return nil, nil
	}
	var rows []LineRow
	var e dwarf.LineEntry
	for {
		if err := lr.Next(&e); err != nil {
			if err == io.EOF {
				break
			}
			return rows, err
		}
		rows = append(rows, LineRow{Address: e.Address, Line: e.Line, EndSequence: e.EndSequence})
	}
	return rows, nil
}

// Close releases the underlying executable.
func (s *Session) Close() error {
	s.done = true
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
