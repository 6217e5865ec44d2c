// Package dictionary implements the ordered, multi-valued metadata
// dictionary: a sorted flat vector of
// (key, value) pairs, comparing only by key, with insertion-order
// preserved among duplicate keys. Grounded on the flat-map layout used
// rather than a Go map, since ordering and duplicate keys both matter.
package dictionary

import (
	"sort"

	"github.com/jmylchreest/ampgo/pkg/ustring"
)

// Entry is a single (key, value) pair.
type Entry struct {
	Key   ustring.U8
	Value ustring.U8
}

// Dictionary is a sorted-by-key, multi-valued string-to-string map.
type Dictionary struct {
	entries []Entry
}

// New returns an empty Dictionary.
func New() *Dictionary { return &Dictionary{} }

// Len returns the total number of (key, value) pairs, including duplicates.
func (d *Dictionary) Len() int { return len(d.entries) }

// Entries returns the dictionary's entries in sorted-by-key,
// insertion-preserving order. The returned slice must not be mutated.
func (d *Dictionary) Entries() []Entry { return d.entries }

// lowerBound returns the index of the first entry with Key >= key.
func (d *Dictionary) lowerBound(key string) int {
	return sort.Search(len(d.entries), func(i int) bool {
		return string(d.entries[i].Key) >= key
	})
}

// upperBound returns the index just past the last entry with Key == key.
func (d *Dictionary) upperBound(key string) int {
	return sort.Search(len(d.entries), func(i int) bool {
		return string(d.entries[i].Key) > key
	})
}

// Insert adds (key, value) as a new entry, preserving any existing entries
// with the same key and appending after them (insertion order within a key
// is preserved.
func (d *Dictionary) Insert(key, value string) {
	ik := ustring.Intern(key)
	iv := ustring.Intern(value)
	idx := d.upperBound(key)
	d.entries = append(d.entries, Entry{})
	copy(d.entries[idx+1:], d.entries[idx:])
	d.entries[idx] = Entry{Key: ik, Value: iv}
}

// InsertOrAssign replaces every entry with the given key by the single
// pair (key, value).
func (d *Dictionary) InsertOrAssign(key, value string) {
	lo := d.lowerBound(key)
	hi := d.upperBound(key)
	ik := ustring.Intern(key)
	iv := ustring.Intern(value)
	if lo < hi {
		d.entries[lo] = Entry{Key: ik, Value: iv}
		d.entries = append(d.entries[:lo+1], d.entries[hi:]...)
		return
	}
	d.entries = append(d.entries, Entry{})
	copy(d.entries[lo+1:], d.entries[lo:])
	d.entries[lo] = Entry{Key: ik, Value: iv}
}

// EqualRange returns every entry whose key equals key, in insertion order.
func (d *Dictionary) EqualRange(key string) []Entry {
	lo := d.lowerBound(key)
	hi := d.upperBound(key)
	return d.entries[lo:hi]
}

// Get returns the first value for key, if any.
func (d *Dictionary) Get(key string) (string, bool) {
	r := d.EqualRange(key)
	if len(r) == 0 {
		return "", false
	}
	return string(r[0].Value), true
}

// GetAll returns every value for key, in insertion order.
func (d *Dictionary) GetAll(key string) []string {
	r := d.EqualRange(key)
	if len(r) == 0 {
		return nil
	}
	out := make([]string, len(r))
	for i, e := range r {
		out[i] = string(e.Value)
	}
	return out
}

// Has reports whether any entry has the given key.
func (d *Dictionary) Has(key string) bool {
	lo := d.lowerBound(key)
	return lo < len(d.entries) && string(d.entries[lo].Key) == key
}

// Erase removes every entry with the given key.
func (d *Dictionary) Erase(key string) {
	lo := d.lowerBound(key)
	hi := d.upperBound(key)
	if lo >= hi {
		return
	}
	d.entries = append(d.entries[:lo], d.entries[hi:]...)
}

// Merge implements the standard merge semantics: if d is empty, it
// becomes a copy of other; otherwise, for every run of equal-keyed
// entries in other, the entire run is inserted into d only if d has no
// entry with that key yet (self wins on conflict).
func (d *Dictionary) Merge(other *Dictionary) {
	if d.Len() == 0 {
		d.entries = append(d.entries[:0], other.entries...)
		return
	}
	i := 0
	for i < len(other.entries) {
		j := i + 1
		key := other.entries[i].Key
		for j < len(other.entries) && other.entries[j].Key == key {
			j++
		}
		if !d.Has(string(key)) {
			run := other.entries[i:j]
			idx := d.upperBound(string(key))
			d.entries = append(d.entries, run...) // grow for copy below
			copy(d.entries[idx+len(run):], d.entries[idx:len(d.entries)-len(run)])
			copy(d.entries[idx:], run)
		}
		i = j
	}
}

// Clone returns a deep copy (the Entry values themselves are cheap/interned
// so this is a shallow slice copy).
func (d *Dictionary) Clone() *Dictionary {
	out := &Dictionary{entries: make([]Entry, len(d.entries))}
	copy(out.entries, d.entries)
	return out
}
