package merge

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/emirpasic/gods/sets/linkedhashset"
)

// The resolver's side tables preserve tree-walk (insertion) order. Go's
// builtin map has no order guarantee, so these thin typed wrappers sit on
// top of emirpasic/gods' linked variants, which is what the teacher's own
// dependency graph already carries for this purpose. MergeDriver returns
// UnmergedPaths and ModifiedFiles as slices in that order, and checkout
// replays toBeCheckedOut in it (toBeDeleted in reverse); the ToBeCheckedOut,
// MergeResults and FailingPaths accessors return plain Go maps, so their
// order is not visible to callers.

type pathSet struct {
	set *linkedhashset.Set
}

func newPathSet() *pathSet {
	return &pathSet{set: linkedhashset.New()}
}

func (s *pathSet) Add(path string) {
	s.set.Add(path)
}

func (s *pathSet) Remove(path string) {
	s.set.Remove(path)
}

func (s *pathSet) Contains(path string) bool {
	return s.set.Contains(path)
}

func (s *pathSet) Empty() bool {
	return s.set.Empty()
}

func (s *pathSet) Values() []string {
	raw := s.set.Values()
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = v.(string)
	}
	return out
}

type entryMap struct {
	m *linkedhashmap.Map
}

func newEntryMap() *entryMap {
	return &entryMap{m: linkedhashmap.New()}
}

func (m *entryMap) Put(path string, entry *IndexEntry) {
	m.m.Put(path, entry)
}

func (m *entryMap) Get(path string) (*IndexEntry, bool) {
	v, ok := m.m.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*IndexEntry), true
}

func (m *entryMap) Keys() []string {
	raw := m.m.Keys()
	out := make([]string, len(raw))
	for i, k := range raw {
		out[i] = k.(string)
	}
	return out
}

type mergeResultMap struct {
	m *linkedhashmap.Map
}

func newMergeResultMap() *mergeResultMap {
	return &mergeResultMap{m: linkedhashmap.New()}
}

func (m *mergeResultMap) Put(path string, result *MergeResult) {
	m.m.Put(path, result)
}

func (m *mergeResultMap) Get(path string) (*MergeResult, bool) {
	v, ok := m.m.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*MergeResult), true
}

func (m *mergeResultMap) Keys() []string {
	raw := m.m.Keys()
	out := make([]string, len(raw))
	for i, k := range raw {
		out[i] = k.(string)
	}
	return out
}

type failMap struct {
	m *linkedhashmap.Map
}

func newFailMap() *failMap {
	return &failMap{m: linkedhashmap.New()}
}

func (m *failMap) Put(path string, reason FailReason) {
	m.m.Put(path, reason)
}

func (m *failMap) Empty() bool {
	return m.m.Empty()
}

func (m *failMap) Keys() []string {
	raw := m.m.Keys()
	out := make([]string, len(raw))
	for i, k := range raw {
		out[i] = k.(string)
	}
	return out
}

func (m *failMap) Get(path string) (FailReason, bool) {
	v, ok := m.m.Get(path)
	if !ok {
		return 0, false
	}
	return v.(FailReason), true
}
