package toolkit

import (
	"sync"
)

// IdMap assigns the stable integer keys that viewers use to address components.
//
// Keys are assigned sequentially starting at 1 and are never reused.
// A key is stable for as long as its component stays reachable from the root.
// Entries for components that were not visited by the last full pass
// (see `Mark` and `Sweep`) are evicted, so a component that is detached and
// later attached again gets a fresh key.
type IdMap struct {
	stateLock  sync.Mutex
	nextId     int64
	generation int64
	entries    map[*Base]*idEntry
}

type idEntry struct {
	id         int64
	generation int64
}

func NewIdMap() *IdMap {
	return &IdMap{
		nextId:  1,
		entries: map[*Base]*idEntry{},
	}
}

// Id returns the key of the component, assigning one on first use.
func (self *IdMap) Id(component Component) int64 {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	base := component.AsBase()
	entry, ok := self.entries[base]
	if !ok {
		entry = &idEntry{
			id: self.nextId,
		}
		self.nextId += 1
		self.entries[base] = entry
	}
	entry.generation = self.generation
	return entry.id
}

// Lookup returns the key of the component without assigning one.
func (self *IdMap) Lookup(component Component) (int64, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if entry, ok := self.entries[component.AsBase()]; ok {
		return entry.id, true
	}
	return 0, false
}

// Mark starts a reachability generation. Every `Id` call stamps the entry with the current generation.
func (self *IdMap) Mark() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.generation += 1
}

// Sweep evicts entries that were not stamped since the last `Mark`.
// Returns the number of evicted entries.
func (self *IdMap) Sweep() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	evicted := 0
	for base, entry := range self.entries {
		if entry.generation != self.generation {
			delete(self.entries, base)
			evicted += 1
		}
	}
	return evicted
}

func (self *IdMap) Len() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.entries)
}
