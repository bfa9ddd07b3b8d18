// Package symbols builds a read only symbol model of an executable from
// its DWARF debug information: compile units, functions, variables and
// their types, line tables and source text.
//
// A Model is loaded once from a Session, then queried by address, by
// index or by name. Loading again requires a call to Reset.
package symbols

import (
	"errors"
	"io"
	"time"

	"github.com/derekparker/trie"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/dwarfsym/dwarfsym/pkg/config"
	"github.com/dwarfsym/dwarfsym/pkg/dwarf/godwarf"
	"github.com/dwarfsym/dwarfsym/pkg/dwarf/reader"
	"github.com/dwarfsym/dwarfsym/pkg/logflags"
	"github.com/dwarfsym/dwarfsym/pkg/source"
)

// Session is the source of the debug information of an executable.
//
// NextUnit returns the compile units one at a time, with their children
// loaded, and io.EOF after the last one. A unit returned together with an
// error is incomplete, a nil unit with an error ends the iteration.
// LineTable returns the rows of the line number program of a unit.
type Session interface {
	NextUnit() (*godwarf.Tree, error)
	LineTable(unit *godwarf.Tree) ([]reader.LineRow, error)
	Close() error
}

var (
	// ErrAlreadyLoaded is returned by Load when the model was already
	// loaded and not reset.
	ErrAlreadyLoaded = errors.New("symbols already loaded, reset first")
	// ErrNoSession is returned by Load when called with a nil session.
	ErrNoSession = errors.New("no debug information session")
)

const defaultSourceCacheSize = 64

// Model is the symbol model of an executable.
type Model struct {
	searchPaths     []string
	substitutePath  config.SubstitutePathRules
	fs              afero.Fs
	sourceCacheSize int

	session  Session
	units    []*CompileUnit
	loaded   bool
	loadErrs *multierror.Error

	functions *trie.Trie
	globals   *trie.Trie
}

// New returns an empty model reading source files from the host file
// system.
func New() *Model {
	m := &Model{fs: afero.NewOsFs(), sourceCacheSize: defaultSourceCacheSize}
	m.Init()
	return m
}

// Init empties the model and clears the search paths. The session of a
// previous load is dropped without being closed, use Reset or Close to
// release it.
func (m *Model) Init() {
	m.searchPaths = nil
	m.session = nil
	m.units = nil
	m.loaded = false
	m.loadErrs = nil
	m.functions = trie.New()
	m.globals = trie.New()
}

// SetSearchPaths sets the ordered list of directories searched for the
// source files of compile units that do not record a directory.
func (m *Model) SetSearchPaths(paths []string) {
	m.searchPaths = append([]string(nil), paths...)
}

// SearchPaths returns the configured search paths.
func (m *Model) SearchPaths() []string {
	return append([]string(nil), m.searchPaths...)
}

// SetSubstitutePathRules sets the rules used to rewrite the compilation
// directories recorded in the debug information.
func (m *Model) SetSubstitutePathRules(rules config.SubstitutePathRules) {
	m.substitutePath = rules
}

// SetFs sets the file system source files are read from.
func (m *Model) SetFs(fs afero.Fs) {
	m.fs = fs
}

// SetSourceCacheSize sets the number of source files kept in memory while
// loading.
func (m *Model) SetSourceCacheSize(n int) {
	if n <= 0 {
		n = defaultSourceCacheSize
	}
	m.sourceCacheSize = n
}

// Load builds the model from the compile units of s. exeModTime is the
// modification time of the executable, source files modified after it are
// reported as outdated.
//
// Errors reading a unit do not stop the load: they are logged and
// returned by LoadErrors, units that could be read remain available.
func (m *Model) Load(s Session, exeModTime time.Time) error {
	if m.loaded {
		return ErrAlreadyLoaded
	}
	if s == nil {
		return ErrNoSession
	}
	logger := logflags.LoaderLogger()

	cache, err := source.NewCache(m.fs, m.sourceCacheSize)
	if err != nil {
		return err
	}
	b := &builder{
		session:    s,
		resolver:   source.NewResolver(m.fs, m.searchPaths, m.substitutePath),
		cache:      cache,
		exeModTime: exeModTime,
	}

	m.session = s
	for {
		tree, err := s.NextUnit()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Errorf("reading compile unit %d: %v", len(m.units), err)
			m.loadErrs = multierror.Append(m.loadErrs, err)
			if tree == nil {
				break
			}
		}
		if tree == nil {
			continue
		}
		cu, err := b.buildUnit(tree)
		if err != nil {
			logger.Errorf("compile unit %s: %v", cu.SourceFilename, err)
			m.loadErrs = multierror.Append(m.loadErrs, err)
		}
		m.units = append(m.units, cu)
	}
	cache.Purge()
	m.index()
	m.loaded = true
	logger.Debugf("loaded %d compile units", len(m.units))
	return nil
}

// LoadErrors returns the errors met by the last Load, nil if there were
// none.
func (m *Model) LoadErrors() error {
	return m.loadErrs.ErrorOrNil()
}

// Loaded returns true if Load completed since the last reset.
func (m *Model) Loaded() bool {
	return m.loaded
}

// NumUnits returns the number of compile units of the model.
func (m *Model) NumUnits() int {
	return len(m.units)
}

// Reset releases all compile units, the search paths and the session. It
// returns false if closing the session failed. Calling Reset on an empty
// model is a no-op.
func (m *Model) Reset() bool {
	ok := true
	if m.session != nil {
		if err := m.session.Close(); err != nil {
			logflags.LoaderLogger().Errorf("closing session: %v", err)
			ok = false
		}
	}
	m.Init()
	return ok
}

// Close is Reset.
func (m *Model) Close() bool {
	return m.Reset()
}
