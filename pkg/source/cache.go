package source

import (
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"

	"github.com/dwarfsym/dwarfsym/pkg/logflags"
)

// File is the text of a source file split into lines.
type File struct {
	Path    string
	ModTime time.Time
	Status  Status
	// Lines holds the text of each line without its terminator, Lines[0]
	// is line 1.
	Lines []string
}

// NumLines returns the number of lines of f.
func (f *File) NumLines() int {
	return len(f.Lines)
}

// Line returns the text of the 1-based line n, "" when out of range.
func (f *File) Line(n int) string {
	if n < 1 || n > len(f.Lines) {
		return ""
	}
	return f.Lines[n-1]
}

// Cache loads source files and keeps the most recently used ones in
// memory.
type Cache struct {
	fs    afero.Fs
	files *lru.Cache
}

type cacheKey struct {
	path    string
	modTime int64
}

// NewCache returns a cache holding up to size files read from fs. A nil
// fs means the host file system.
func NewCache(fs afero.Fs, size int) (*Cache, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	files, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("could not create source cache: %w", err)
	}
	return &Cache{fs: fs, files: files}, nil
}

// Load returns the source file at path. Files that can not be stat'ed,
// that were modified after exeModTime or that can not be read are
// returned with the corresponding status and no lines. A zero exeModTime
// disables the staleness check.
func (c *Cache) Load(path string, exeModTime time.Time) *File {
	logger := logflags.SourceLogger()

	fi, err := c.fs.Stat(path)
	if err != nil {
		logger.Debugf("could not stat %s: %v", path, err)
		return &File{Path: path, Status: StatusNoFileInfo}
	}
	if !exeModTime.IsZero() && fi.ModTime().After(exeModTime) {
		logger.Debugf("%s is newer than the executable", path)
		return &File{Path: path, ModTime: fi.ModTime(), Status: StatusOutdatedFile}
	}

	key := cacheKey{path, fi.ModTime().UnixNano()}
	if f, ok := c.files.Get(key); ok {
		return f.(*File)
	}

	buf, err := afero.ReadFile(c.fs, path)
	if err != nil {
		logger.Debugf("could not read %s: %v", path, err)
		return &File{Path: path, ModTime: fi.ModTime(), Status: StatusNoFile}
	}
	f := &File{Path: path, ModTime: fi.ModTime(), Status: StatusOk, Lines: splitLines(string(buf))}
	c.files.Add(key, f)
	logger.Debugf("loaded %s, %d lines", path, len(f.Lines))
	return f
}

// Len returns the number of files in the cache.
func (c *Cache) Len() int {
	return c.files.Len()
}

// Purge removes all files from the cache.
func (c *Cache) Purge() {
	c.files.Purge()
}

// splitLines removes carriage returns from text and splits it into lines.
// A missing terminator on the last line is tolerated.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	lines := strings.Split(text, "\n")
	return lines[:len(lines)-1]
}
