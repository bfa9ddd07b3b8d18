package source

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/dwarfsym/dwarfsym/pkg/config"
	"github.com/dwarfsym/dwarfsym/pkg/logflags"
)

const cygdrivePrefix = "/cygdrive/"

// Resolver maps the compilation directory and file name recorded in a
// compile unit to a path on the host.
type Resolver struct {
	Fs          afero.Fs
	SearchPaths []string
	Substitute  config.SubstitutePathRules
}

// NewResolver returns a resolver looking up files in fs. A nil fs means
// the host file system.
func NewResolver(fs afero.Fs, searchPaths []string, rules config.SubstitutePathRules) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Resolver{Fs: fs, SearchPaths: searchPaths, Substitute: rules}
}

// Resolve returns the directory and full path of the source file name
// compiled in dir.
//
// When dir is empty the search paths are tried in order and the first one
// containing name is used, "." if none does. Cygwin mount points
// (/cygdrive/c/...) are rewritten to drive letter paths and substitute
// path rules are applied to the directory. Names that are already absolute
// are used as the full path. Separators are converted to the host
// convention and "." and ".." elements are removed lexically.
func (r *Resolver) Resolve(dir, name string) (resolvedDir, fullPath string) {
	logger := logflags.SourceLogger()

	if isAbs(name) {
		if dir == "" {
			dir = filepath.Dir(conformSeparators(name))
		}
		resolvedDir = normalize(r.substitute(cygdrive(dir)))
		fullPath = normalize(r.substitute(cygdrive(name)))
		logger.Debugf("%s: absolute file name, resolved to %s", name, fullPath)
		return resolvedDir, fullPath
	}

	if dir == "" {
		dir = r.searchPath(name)
	} else {
		dir = r.substitute(cygdrive(dir))
	}

	resolvedDir = normalize(dir)
	fullPath = normalize(dir + "/" + name)
	logger.Debugf("%s: resolved to %s", name, fullPath)
	return resolvedDir, fullPath
}

// searchPath returns the first search path holding name, "." if none does.
//
// A search path matches when the candidate file can be stat'ed and opened.
// The match condition can also be read the other way around, accepting a
// search path when opening the candidate fails; that inverted check selects
// directories that do not hold the file, so it is not used.
func (r *Resolver) searchPath(name string) string {
	for _, sp := range r.SearchPaths {
		candidate := normalize(sp + "/" + name)
		if r.exists(candidate) {
			return sp
		}
	}
	return "."
}

func (r *Resolver) exists(path string) bool {
	fi, err := r.Fs.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	fh, err := r.Fs.Open(path)
	if err != nil {
		return false
	}
	fh.Close()
	return true
}

// substitute applies the first matching substitute path rule to path.
func (r *Resolver) substitute(path string) string {
	path = conformSeparators(path)
	for _, rule := range r.Substitute {
		from := conformSeparators(rule.From)
		if from == "" {
			continue
		}
		to := conformSeparators(rule.To)
		sep := string(filepath.Separator)
		if !strings.HasSuffix(from, sep) {
			from += sep
		}
		if path+sep == from {
			return to
		}
		if strings.HasPrefix(path, from) {
			if to != "" && !strings.HasSuffix(to, sep) {
				to += sep
			}
			return to + path[len(from):]
		}
	}
	return path
}

// cygdrive rewrites /cygdrive/<letter>/rest to <letter>:/rest.
func cygdrive(path string) string {
	p := strings.ReplaceAll(path, `\`, "/")
	if !strings.HasPrefix(p, cygdrivePrefix) || len(p) < len(cygdrivePrefix)+1 {
		return path
	}
	rest := p[len(cygdrivePrefix):]
	if len(rest) > 1 && rest[1] != '/' {
		return path
	}
	return rest[:1] + ":" + rest[1:]
}

func conformSeparators(path string) string {
	return filepath.FromSlash(strings.ReplaceAll(path, `\`, "/"))
}

func normalize(path string) string {
	return filepath.Clean(conformSeparators(path))
}

func hasDriveLetter(path string) bool {
	return len(path) >= 2 && path[1] == ':' && ((path[0] >= 'a' && path[0] <= 'z') || (path[0] >= 'A' && path[0] <= 'Z'))
}

func isAbs(path string) bool {
	if path == "" {
		return false
	}
	return path[0] == '/' || path[0] == '\\' || hasDriveLetter(path) || filepath.IsAbs(path)
}
