package cache

import (
	"sort"
	"strings"
)

// indexes holds every secondary structure described in spec.md §3 over the
// current set of TableRecords. It is always rebuilt/mutated under the
// owning Cache's write lock; readers only ever see a complete structure.
type indexes struct {
	// byQualified is the canonical store: "SCHEMA.NAME" (both upper) -> record.
	byQualified map[string]*TableRecord

	// byName maps upper(unqualified name) -> qualified keys, for the common
	// single-schema case this slice has length 1.
	byName map[string][]string

	// sortedNames is byName's keys, kept sorted for O(log N + k) prefix
	// search and bounded substring scans.
	sortedNames []string

	// byColumn maps upper(column name) -> set of qualified table keys.
	byColumn map[string]map[string]struct{}

	// depsOut / depsIn are the DependencyGraph's adjacency lists, keyed by
	// the string form of an ObjectRef, in both directions.
	depsOut map[string][]ObjectRef
	depsIn  map[string][]ObjectRef
}

func newIndexes() *indexes {
	return &indexes{
		byQualified: make(map[string]*TableRecord),
		byName:      make(map[string][]string),
		byColumn:    make(map[string]map[string]struct{}),
		depsOut:     make(map[string][]ObjectRef),
		depsIn:      make(map[string][]ObjectRef),
	}
}

func qualify(schema, name string) string {
	return strings.ToUpper(schema) + "." + strings.ToUpper(name)
}

func refKey(r ObjectRef) string {
	return strings.ToUpper(r.Schema) + "." + strings.ToUpper(r.Name) + ":" + strings.ToUpper(r.Kind)
}

// put inserts or replaces a TableRecord and reconciles every secondary
// index against it. Column-index coverage (invariant 3) is maintained here:
// every column of t is added to byColumn, and stale entries from a prior
// version of t (on replace) are removed first.
func (ix *indexes) put(t *TableRecord) {
	key := qualify(t.Schema, t.Name)

	if old, ok := ix.byQualified[key]; ok {
		ix.removeColumnEntries(old, key)
	} else {
		upperName := strings.ToUpper(t.Name)
		if !containsStr(ix.byName[upperName], key) {
			ix.byName[upperName] = append(ix.byName[upperName], key)
			ix.insertSortedName(upperName)
		}
	}

	ix.byQualified[key] = t
	for _, c := range t.Columns {
		cu := strings.ToUpper(c.Name)
		set, ok := ix.byColumn[cu]
		if !ok {
			set = make(map[string]struct{})
			ix.byColumn[cu] = set
		}
		set[key] = struct{}{}
	}
}

// remove deletes a TableRecord and every derived index entry for it
// (explicit rebuild / absent-from-next-sweep lifecycle).
func (ix *indexes) remove(schema, name string) {
	key := qualify(schema, name)
	old, ok := ix.byQualified[key]
	if !ok {
		return
	}
	ix.removeColumnEntries(old, key)
	delete(ix.byQualified, key)

	upperName := strings.ToUpper(name)
	ix.byName[upperName] = removeStr(ix.byName[upperName], key)
	if len(ix.byName[upperName]) == 0 {
		delete(ix.byName, upperName)
		ix.removeSortedName(upperName)
	}
}

func (ix *indexes) removeColumnEntries(t *TableRecord, key string) {
	for _, c := range t.Columns {
		cu := strings.ToUpper(c.Name)
		if set, ok := ix.byColumn[cu]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(ix.byColumn, cu)
			}
		}
	}
}

func (ix *indexes) insertSortedName(name string) {
	i := sort.SearchStrings(ix.sortedNames, name)
	if i < len(ix.sortedNames) && ix.sortedNames[i] == name {
		return
	}
	ix.sortedNames = append(ix.sortedNames, "")
	copy(ix.sortedNames[i+1:], ix.sortedNames[i:])
	ix.sortedNames[i] = name
}

func (ix *indexes) removeSortedName(name string) {
	i := sort.SearchStrings(ix.sortedNames, name)
	if i < len(ix.sortedNames) && ix.sortedNames[i] == name {
		ix.sortedNames = append(ix.sortedNames[:i], ix.sortedNames[i+1:]...)
	}
}

// getByUnqualifiedName returns the first qualified match for an upper-cased
// unqualified name, deterministically picking the alphabetically-lowest
// schema when more than one schema happens to share the name.
func (ix *indexes) getByUnqualifiedName(upperName string) (*TableRecord, bool) {
	keys := ix.byName[upperName]
	if len(keys) == 0 {
		return nil, false
	}
	best := keys[0]
	for _, k := range keys[1:] {
		if k < best {
			best = k
		}
	}
	return ix.byQualified[best], true
}

func (ix *indexes) setDeps(ref ObjectRef, out []ObjectRef) {
	k := refKey(ref)
	ix.depsOut[k] = out
	for _, target := range out {
		tk := refKey(target)
		ix.depsIn[tk] = append(ix.depsIn[tk], ref)
	}
}

func containsStr(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func removeStr(xs []string, s string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}
