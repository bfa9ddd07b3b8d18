package source

// Status describes the availability of the source text of a compile unit.
type Status uint8

const (
	// StatusOk means the source file was loaded.
	StatusOk Status = iota
	// StatusNoFile means the source file could not be opened or read.
	StatusNoFile
	// StatusOutdatedFile means the source file was modified after the
	// executable was built.
	StatusOutdatedFile
	// StatusNoFileInfo means the source file could not be stat'ed.
	StatusNoFileInfo
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusNoFile:
		return "no file"
	case StatusOutdatedFile:
		return "outdated file"
	case StatusNoFileInfo:
		return "no file info"
	}
	return "unknown"
}
