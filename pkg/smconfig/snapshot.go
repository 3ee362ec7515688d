package smconfig

import (
	"sort"
	"strings"
	"time"
)

// Snapshot is the immutable result of one fetch cycle: the set of entries
// produced across all secrets plus a case-insensitive lookup index.
type Snapshot struct {
	entries   []Entry
	pairs     map[Entry]struct{}
	index     map[string]Entry
	createdAt time.Time
}

// NewSnapshot builds a snapshot from entries in fetch order. Duplicate pairs
// collapse; for keys differing only by case the last entry wins lookups.
func NewSnapshot(entries []Entry) *Snapshot {
	s := &Snapshot{
		entries:   make([]Entry, 0, len(entries)),
		pairs:     make(map[Entry]struct{}, len(entries)),
		index:     make(map[string]Entry, len(entries)),
		createdAt: time.Now().UTC(),
	}
	for _, e := range entries {
		if _, seen := s.pairs[e]; !seen {
			s.pairs[e] = struct{}{}
			s.entries = append(s.entries, e)
		}
		s.index[foldKey(e.Key)] = e
	}
	return s
}

func foldKey(key string) string {
	return strings.ToLower(key)
}

// Get looks a key up ignoring case.
func (s *Snapshot) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	e, ok := s.index[foldKey(key)]
	return e.Value, ok
}

// Len returns the number of distinct (case-insensitive) keys.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.index)
}

// Keys returns the stored key casing of every distinct key, sorted.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.index))
	for _, e := range s.index {
		keys = append(keys, e.Key)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the materialized key/value view.
func (s *Snapshot) Map() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(s.index))
	for _, e := range s.index {
		out[e.Key] = e.Value
	}
	return out
}

// Entries returns the unique pairs in the order they were first produced.
func (s *Snapshot) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// CreatedAt is when the snapshot was assembled.
func (s *Snapshot) CreatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.createdAt
}

// Equal reports set equality of the two snapshots' pairs, and additionally
// requires every key to resolve to the same value. The latter differs only
// when colliding keys come back in a different order.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.pairs) != len(other.pairs) || len(s.index) != len(other.index) {
		return false
	}
	for p := range s.pairs {
		if _, ok := other.pairs[p]; !ok {
			return false
		}
	}
	for folded, e := range s.index {
		if o, ok := other.index[folded]; !ok || o != e {
			return false
		}
	}
	return true
}

// ChangedKeys lists keys that were added, removed or given a new value
// going from s to next, using next's casing where the key still exists.
func (s *Snapshot) ChangedKeys(next *Snapshot) []string {
	var changed []string
	if next != nil {
		for folded, e := range next.index {
			if prev, ok := s.lookupFolded(folded); !ok || prev.Value != e.Value {
				changed = append(changed, e.Key)
			}
		}
	}
	if s != nil {
		for folded, e := range s.index {
			if _, ok := next.lookupFolded(folded); !ok {
				changed = append(changed, e.Key)
			}
		}
	}
	sort.Strings(changed)
	return changed
}

func (s *Snapshot) lookupFolded(folded string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.index[folded]
	return e, ok
}
