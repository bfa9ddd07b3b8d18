// Package dwarfbuilder provides a way to build DWARF sections with
// arbitrary contents.
package dwarfbuilder

import (
	"bytes"
	"debug/dwarf"
	"encoding/binary"
	"fmt"
)

// Builder dwarf builder
type Builder struct {
	info     bytes.Buffer
	line     bytes.Buffer
	abbrevs  []tagDescr
	tagStack []*tagState
	unitOff  int
}

// New creates a new DWARF builder and opens its first compile unit.
func New(name string, language uint8) *Builder {
	b := &Builder{}
	b.openUnit(name, language)
	return b
}

func (b *Builder) openUnit(name string, language uint8) {
	b.unitOff = b.info.Len()
	b.info.Write([]byte{
		0x0, 0x0, 0x0, 0x0, // length
		0x4, 0x0, // version
		0x0, 0x0, 0x0, 0x0, // debug_abbrev_offset
		0x8, // address_size
	})

	b.TagOpen(dwarf.TagCompileUnit, name)
	b.Attr(dwarf.AttrLanguage, language)
}

func (b *Builder) closeUnit() error {
	b.TagClose()
	if len(b.tagStack) > 0 {
		return fmt.Errorf("unbalanced TagOpen/TagClose %d", len(b.tagStack))
	}
	info := b.info.Bytes()
	binary.LittleEndian.PutUint32(info[b.unitOff:], uint32(len(info)-b.unitOff-4))
	return nil
}

// NextUnit closes the current compile unit and opens a new one.
func (b *Builder) NextUnit(name string, language uint8) error {
	if err := b.closeUnit(); err != nil {
		return err
	}
	b.openUnit(name, language)
	return nil
}

// Build closes b and returns all the dwarf sections.
func (b *Builder) Build() (abbrev, info, line []byte, err error) {
	if err = b.closeUnit(); err != nil {
		return
	}

	abbrev = b.makeAbbrevTable()
	info = b.info.Bytes()
	line = b.line.Bytes()
	return
}

// Data builds the sections and parses them with debug/dwarf.
func (b *Builder) Data() (*dwarf.Data, error) {
	abbrev, info, line, err := b.Build()
	if err != nil {
		return nil, err
	}
	return dwarf.New(abbrev, nil, nil, info, line, nil, nil, nil)
}
