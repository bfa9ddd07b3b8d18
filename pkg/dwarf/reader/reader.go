package reader

import (
	"debug/dwarf"
)

// Reader wraps a *dwarf.Reader with helpers to walk compile units.
type Reader struct {
	*dwarf.Reader
	depth int
}

// New returns a reader for the specified dwarf data.
func New(data *dwarf.Data) *Reader {
	return &Reader{data.Reader(), 0}
}

// Seek moves the reader to an arbitrary offset.
func (reader *Reader) Seek(off dwarf.Offset) {
	reader.depth = 0
	reader.Reader.Seek(off)
}

// SeekToEntry moves the reader to an arbitrary entry.
func (reader *Reader) SeekToEntry(entry *dwarf.Entry) error {
	reader.Seek(entry.Offset)
	// Consume the current entry so .Next works as intended
	_, err := reader.Next()
	return err
}

// NextCompileUnit moves the reader to the next compile unit and returns
// its root entry, nil if there are no more units.
func (reader *Reader) NextCompileUnit() (*dwarf.Entry, error) {
	for entry, err := reader.Next(); entry != nil; entry, err = reader.Next() {
		if err != nil {
			return nil, err
		}

		if entry.Tag == dwarf.TagCompileUnit {
			return entry, nil
		}
	}

	return nil, nil
}

// SkipUnit moves the reader past the compile unit cu, it is used to
// resume after a decoding error inside the unit.
func (reader *Reader) SkipUnit(cu *dwarf.Entry) error {
	if err := reader.SeekToEntry(cu); err != nil {
		return err
	}
	reader.SkipChildren()
	return nil
}
