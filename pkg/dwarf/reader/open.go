package reader

import (
	"debug/dwarf"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrUnsupportedFormat is returned by Open for files that are neither ELF,
// Mach-O nor PE executables.
var ErrUnsupportedFormat = errors.New("unsupported executable format")

// ErrNoDebugInfo is returned by Open for executables without DWARF
// sections.
var ErrNoDebugInfo = errors.New("could not find DWARF debug information")

// Open opens the executable at path and returns a session over its DWARF
// sections, along with the modification time of the executable.
func Open(path string) (*Session, time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := loadDwarf(f)
	if err != nil {
		f.Close()
		return nil, time.Time{}, fmt.Errorf("%s: %w", path, err)
	}
	return NewSession(data, f), fi.ModTime(), nil
}

func loadDwarf(f *os.File) (*dwarf.Data, error) {
	if elfFile, err := elf.NewFile(f); err == nil {
		return checkDwarf(elfFile.DWARF())
	}
	if machoFile, err := macho.NewFile(f); err == nil {
		return checkDwarf(machoFile.DWARF())
	}
	if peFile, err := pe.NewFile(f); err == nil {
		return checkDwarf(peFile.DWARF())
	}
	return nil, ErrUnsupportedFormat
}

func checkDwarf(data *dwarf.Data, err error) (*dwarf.Data, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDebugInfo, err)
	}
	return data, nil
}
