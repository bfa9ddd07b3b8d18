package symbols

import (
	"sort"

	"github.com/derekparker/trie"
)

// index builds the name lookup tries of the model. When names repeat the
// first function or variable in load order is kept.
func (m *Model) index() {
	m.functions = trie.New()
	m.globals = trie.New()
	for _, cu := range m.units {
		for i := range cu.SubPrograms {
			sp := &cu.SubPrograms[i]
			if sp.Name == "" {
				continue
			}
			if _, found := m.functions.Find(sp.Name); !found {
				m.functions.Add(sp.Name, sp.LowPC)
			}
		}
		for i := range cu.Variables {
			v := &cu.Variables[i]
			if _, found := m.globals.Find(v.Name); !found {
				m.globals.Add(v.Name, v.Addr)
			}
		}
	}
}

func complete(t *trie.Trie, prefix string) []string {
	r := t.PrefixSearch(prefix)
	sort.Strings(r)
	return r
}

// CompleteFunction returns the sorted names of the functions starting
// with prefix.
func (m *Model) CompleteFunction(prefix string) []string {
	return complete(m.functions, prefix)
}

// CompleteGlobal returns the sorted names of the global variables
// starting with prefix.
func (m *Model) CompleteGlobal(prefix string) []string {
	return complete(m.globals, prefix)
}

// FunctionAddr returns the entry address of the function called name.
func (m *Model) FunctionAddr(name string) (uint64, bool) {
	n, found := m.functions.Find(name)
	if !found {
		return 0, false
	}
	return n.Meta().(uint64), true
}
