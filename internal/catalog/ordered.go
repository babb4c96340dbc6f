package catalog

import "sort"

// Dict is an insertion-ordered map with string keys. Setting an existing key
// updates its value without moving the key, which is what makes last-write-
// wins merges keep their original emission position.
type Dict[V any] struct {
	keys   []string
	values map[string]V
}

// NewDict returns an empty Dict.
func NewDict[V any]() *Dict[V] {
	return &Dict[V]{values: make(map[string]V)}
}

// Set stores value under key, appending the key on first use.
func (d *Dict[V]) Set(key string, value V) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key and whether it is present.
func (d *Dict[V]) Get(key string) (V, bool) {
	value, ok := d.values[key]
	return value, ok
}

// Delete removes key if present.
func (d *Dict[V]) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Dict[V]) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Len returns the number of keys.
func (d *Dict[V]) Len() int {
	return len(d.keys)
}

// Clone returns a shallow copy preserving key order.
func (d *Dict[V]) Clone() *Dict[V] {
	clone := NewDict[V]()
	clone.keys = append([]string(nil), d.keys...)
	for key, value := range d.values {
		clone.values[key] = value
	}
	return clone
}

// Set is an unordered string set; callers sort on the way out.
type Set map[string]struct{}

// NewSet returns an empty Set.
func NewSet() Set {
	return make(Set)
}

// Add inserts the given values.
func (s Set) Add(values ...string) {
	for _, value := range values {
		s[value] = struct{}{}
	}
}

// Has reports whether value is present.
func (s Set) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// Len returns the set cardinality.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	values := make([]string, 0, len(s))
	for value := range s {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
