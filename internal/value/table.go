package value

// Table is an open-addressing hash table with linear probing and
// tombstone deletion, keyed by interned *String and storing Value entries.
// It backs globals, instance fields, and class method tables.
//
// This is implemented directly against the algorithm rather than grounded
// on a pack example: nothing in the retrieval set builds an open-addressing
// table, and Go's map can't serve here because the collector's string-
// interning cleanup (removeWhiteStrings, see gc.go) needs to walk the
// entries and overwrite a dead key with a tombstone in place — a
// built-in map gives no control over bucket layout or deletion marker
// semantics, only a delete-and-rehash the collector can't observe mid-sweep.
type Table struct {
	count    int // live entries plus tombstones; grow() drops tombstones and recounts
	capacity int
	entries  []entry
}

type entry struct {
	key   *String // nil key + present tombstone = deleted slot; nil key + !tombstone = never used
	value Value
	tombstone bool
}

const tableMaxLoad = 0.75

// NewTable returns an empty table. Table's zero value is also usable; this
// constructor exists for symmetry with the rest of the package.
func NewTable() *Table {
	return &Table{}
}

// Count reports the number of occupied slots: live entries plus any
// tombstones left by Delete since the last grow.
func (t *Table) Count() int { return t.count }

// Get looks up key, comparing by pointer identity since keys are always
// interned strings.
func (t *Table) Get(key *String) (Value, bool) {
	if t.capacity == 0 {
		return Nil, false
	}
	idx := t.findSlot(key)
	if idx < 0 {
		return Nil, false
	}
	return t.entries[idx].value, true
}

// Set inserts or overwrites key's value. Returns true if this created a new
// entry (as opposed to overwriting an existing one).
func (t *Table) Set(key *String, v Value) bool {
	if float64(t.count+1) > float64(t.capacity)*tableMaxLoad {
		t.grow()
	}
	idx := t.insertSlot(key)
	isNew := t.entries[idx].key == nil
	if isNew && !t.entries[idx].tombstone {
		t.count++
	}
	t.entries[idx] = entry{key: key, value: v}
	return isNew
}

// Delete removes key, leaving a tombstone so later linear probes can still
// skip past this slot to reach entries that hashed to the same bucket.
func (t *Table) Delete(key *String) bool {
	if t.capacity == 0 {
		return false
	}
	idx := t.findSlot(key)
	if idx < 0 {
		return false
	}
	t.entries[idx] = entry{tombstone: true}
	return true
}

// AddAll copies every entry of src into t, used when a class inherits a
// superclass's method table by value (copy-down inheritance).
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// FindString looks up a string by raw content rather than by an already-
// interned pointer. This is the one place the table compares key bytes
// instead of identity: it is how the interner discovers "have I already
// allocated this content" before a *String handle for it even exists.
func (t *Table) FindString(chars string, hash uint32) *String {
	if t.capacity == 0 {
		return nil
	}
	idx := int(hash) % t.capacity
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) % t.capacity
	}
}

// Each calls fn for every live entry. Iteration order is unspecified; it is
// used by the collector to mark tables and to find dead intern-table keys.
func (t *Table) Each(fn func(key *String, v Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

func (t *Table) findSlot(key *String) int {
	idx := int(key.Hash) % t.capacity
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if !e.tombstone {
				return -1
			}
		} else if e.key == key {
			return idx
		}
		idx = (idx + 1) % t.capacity
	}
}

// insertSlot finds the slot key belongs in, reusing the first tombstone it
// passes over so repeated insert/delete cycles don't leak slots forever.
func (t *Table) insertSlot(key *String) int {
	idx := int(key.Hash) % t.capacity
	tombstoneIdx := -1
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if e.tombstone {
				if tombstoneIdx == -1 {
					tombstoneIdx = idx
				}
			} else {
				if tombstoneIdx != -1 {
					return tombstoneIdx
				}
				return idx
			}
		} else if e.key == key {
			return idx
		}
		idx = (idx + 1) % t.capacity
	}
}

func (t *Table) grow() {
	newCap := 8
	if t.capacity > 0 {
		newCap = t.capacity * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	t.capacity = newCap
	t.count = 0
	for _, e := range old {
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}
