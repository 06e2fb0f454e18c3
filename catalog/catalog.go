// Package catalog is the ordered list of named sounds and its persistence.
//
// The whole list lives under one store key as a JSON array of
// {"name", "data"} objects and is rewritten in full on every append. Reads
// fail soft: a missing, unreadable or corrupt blob is an empty catalog.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reesdraminski/soundboard/codec"
	"github.com/reesdraminski/soundboard/log"
	"github.com/reesdraminski/soundboard/store"
)

const DefaultKey = "sounds"

// Entry is one named sound. Data is the codec text of the audio payload.
type Entry struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// NewEntry encodes payload for storage.
func NewEntry(name string, payload []byte) Entry {
	return Entry{Name: name, Data: codec.Encode(payload)}
}

// Payload decodes the stored audio bytes.
func (e Entry) Payload() ([]byte, error) {
	return codec.Decode(e.Data)
}

// Catalog is owned by a single session; it is not safe for concurrent mutation.
type Catalog struct {
	store   store.Store
	key     string
	entries []Entry
	durable bool
}

// New returns an empty catalog bound to s under key. A nil store gives a
// session-only catalog.
func New(s store.Store, key string) *Catalog {
	if key == "" {
		key = DefaultKey
	}
	return &Catalog{store: s, key: key, durable: s != nil}
}

func (c *Catalog) Key() string { return c.key }

// Load replaces the in-memory list with what the store holds and returns a
// copy of it. An unreadable store leaves the catalog session-only.
func (c *Catalog) Load() []Entry {
	entries, err := c.read()
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			c.durable = false
		}
		entries = nil
	}
	c.entries = entries
	return c.Entries()
}

// Reload is Load for callers that only need the new length, such as a file
// watcher reacting to another process writing the store. When the store
// cannot be read the current list is kept and the catalog goes session-only,
// so the next append writes every sound back.
func (c *Catalog) Reload() int {
	entries, err := c.read()
	if err != nil {
		c.durable = false
		log.StorageUnavailable("reload", err)
		return len(c.entries)
	}
	c.entries = entries
	log.CatalogReloaded(len(c.entries))
	return len(c.entries)
}

var errCorrupt = errors.New("catalog unreadable")

func (c *Catalog) read() ([]Entry, error) {
	if c.store == nil {
		return nil, nil
	}
	raw, err := c.store.Get(c.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		log.StorageUnavailable("get", err)
		return nil, err
	}

	entries, err := parse(raw)
	if err != nil {
		log.Warnf("catalog %q unreadable: %v", c.key, err)
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return entries, nil
}

func parse(raw string) ([]Entry, error) {
	var stored []Entry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(stored))
	for i, e := range stored {
		if _, err := e.Payload(); err != nil {
			log.Warnf("dropping sound %d (%q): %v", i, e.Name, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Append adds e to the end of the list and rewrites the stored list. A
// failed write is logged and leaves the catalog session-only; the in-memory
// append always stands.
func (c *Catalog) Append(e Entry) {
	c.entries = append(c.entries, e)
	c.persist()
}

func (c *Catalog) persist() {
	if c.store == nil {
		c.durable = false
		return
	}
	entries := c.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		c.durable = false
		log.StorageUnavailable("encode", err)
		return
	}
	if err := c.store.Set(c.key, string(data)); err != nil {
		c.durable = false
		log.StorageUnavailable("set", err)
		return
	}
	c.durable = true
}

// Durable reports whether the last write reached the store.
func (c *Catalog) Durable() bool { return c.durable }

func (c *Catalog) Len() int { return len(c.entries) }

func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) At(i int) (Entry, error) {
	if i < 0 || i >= len(c.entries) {
		return Entry{}, fmt.Errorf("sound %d out of range [0,%d)", i, len(c.entries))
	}
	return c.entries[i], nil
}

// Find returns the index of the first sound named name, or -1.
func (c *Catalog) Find(name string) int {
	for i, e := range c.entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}
