package catalog

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"

	"github.com/reesdraminski/soundboard/codec"
	"github.com/reesdraminski/soundboard/store"
)

// brokenStore fails the operations it is told to fail.
type brokenStore struct {
	store.Store
	failGet bool
	failSet bool
}

func (b *brokenStore) Get(key string) (string, error) {
	if b.failGet {
		return "", store.ErrUnavailable
	}
	return b.Store.Get(key)
}

func (b *brokenStore) Set(key, value string) error {
	if b.failSet {
		return errors.New("quota exceeded")
	}
	return b.Store.Set(key, value)
}

func TestLoadAbsentStore(t *testing.T) {
	c := New(store.NewMemory(), DefaultKey)
	got := c.Load()
	if got == nil || len(got) != 0 {
		t.Fatalf("Load() = %#v, want empty non-nil slice", got)
	}
}

func TestLoadNilStore(t *testing.T) {
	c := New(nil, "")
	if n := len(c.Load()); n != 0 {
		t.Fatalf("Load() returned %d entries, want 0", n)
	}
	if c.Durable() {
		t.Error("nil store catalog should not be durable")
	}
}

func TestLoadCorrupted(t *testing.T) {
	for _, raw := range []string{"{not json", `{"name":"clap"}`, `[1,2,3]`, `"sounds"`, ""} {
		s := store.NewMemory()
		s.Set(DefaultKey, raw)
		c := New(s, DefaultKey)
		if got := c.Load(); len(got) != 0 {
			t.Errorf("Load() on %q returned %d entries, want 0", raw, len(got))
		}
	}
}

func TestLoadUnavailable(t *testing.T) {
	c := New(&brokenStore{Store: store.NewMemory(), failGet: true}, DefaultKey)
	if got := c.Load(); len(got) != 0 {
		t.Errorf("Load() returned %d entries, want 0", len(got))
	}
	if c.Durable() {
		t.Error("unreadable store should leave the catalog session-only")
	}
}

func TestLoadCorruptedStaysDurable(t *testing.T) {
	s := store.NewMemory()
	s.Set(DefaultKey, "{trunc")
	c := New(s, DefaultKey)
	c.Load()
	if !c.Durable() {
		t.Error("a corrupt document is replaced on the next write, catalog should stay durable")
	}
}

func TestLoadDropsUndecodableEntry(t *testing.T) {
	s := store.NewMemory()
	s.Set(DefaultKey, `[{"name":"bad","data":"%%%"},{"name":"good","data":"AAE="}]`)
	c := New(s, DefaultKey)

	got := c.Load()
	if len(got) != 1 || got[0].Name != "good" {
		t.Fatalf("Load() = %#v, want only the decodable entry", got)
	}
}

func TestLoadScenarioClap(t *testing.T) {
	riff := []byte{0x52, 0x49, 0x46, 0x46}
	s := store.NewMemory()
	s.Set(DefaultKey, `[{"name":"clap","data":"`+codec.Encode(riff)+`"}]`)

	got := New(s, DefaultKey).Load()
	if len(got) != 1 {
		t.Fatalf("Load() returned %d entries, want 1", len(got))
	}
	if got[0].Name != "clap" {
		t.Errorf("name = %q, want clap", got[0].Name)
	}
	payload, err := got[0].Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if !bytes.Equal(payload, riff) {
		t.Errorf("payload = %x, want %x", payload, riff)
	}
}

func TestAppendOrderSurvivesReload(t *testing.T) {
	s := store.NewMemory()
	c := New(s, DefaultKey)
	c.Load()

	e1 := NewEntry("one", []byte{1})
	e2 := NewEntry("", []byte{2, 2})
	c.Append(e1)
	c.Append(e2)

	got := New(s, DefaultKey).Load()
	if len(got) != 2 || got[0] != e1 || got[1] != e2 {
		t.Fatalf("reloaded %#v, want [%v %v]", got, e1, e2)
	}
	if !c.Durable() {
		t.Error("catalog should be durable after a successful write")
	}
}

func TestAppendFileStore(t *testing.T) {
	fs, err := store.OpenFile(filepath.Join(t.TempDir(), "sounds.json"))
	if err != nil {
		t.Fatal(err)
	}
	c := New(fs, "board")
	c.Append(NewEntry("kick", []byte("RIFF")))

	got := New(fs, "board").Load()
	if len(got) != 1 || got[0].Name != "kick" {
		t.Fatalf("Load() = %#v", got)
	}
}

func TestAppendWriteFailureKeepsMemory(t *testing.T) {
	bs := &brokenStore{Store: store.NewMemory(), failSet: true}
	c := New(bs, DefaultKey)
	c.Load()

	c.Append(NewEntry("a", []byte{1}))
	c.Append(NewEntry("b", []byte{2}))

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.Durable() {
		t.Error("catalog should report session-only after a failed write")
	}
	if _, err := bs.Store.Get(DefaultKey); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("backing store was written: err = %v", err)
	}

	// Writes recover once storage comes back, carrying the whole list.
	bs.failSet = false
	c.Append(NewEntry("c", []byte{3}))
	if !c.Durable() {
		t.Error("catalog should be durable again")
	}
	if got := New(bs, DefaultKey).Load(); len(got) != 3 {
		t.Errorf("reloaded %d entries, want 3", len(got))
	}
}

func TestFindAndAt(t *testing.T) {
	c := New(store.NewMemory(), DefaultKey)
	c.Append(NewEntry("clap", nil))
	c.Append(NewEntry("snare", nil))
	c.Append(NewEntry("clap", []byte{9}))

	if i := c.Find("clap"); i != 0 {
		t.Errorf("Find(clap) = %d, want 0", i)
	}
	if i := c.Find("tom"); i != -1 {
		t.Errorf("Find(tom) = %d, want -1", i)
	}
	if e, err := c.At(1); err != nil || e.Name != "snare" {
		t.Errorf("At(1) = %v, %v", e, err)
	}
	if _, err := c.At(3); err == nil {
		t.Error("At(3) should fail")
	}
}

func TestEntriesIsACopy(t *testing.T) {
	c := New(store.NewMemory(), DefaultKey)
	c.Append(NewEntry("clap", nil))
	got := c.Entries()
	got[0].Name = "changed"
	if e, _ := c.At(0); e.Name != "clap" {
		t.Errorf("Entries() aliased internal state")
	}
}

func TestReloadPicksUpExternalWrite(t *testing.T) {
	s := store.NewMemory()
	mine := New(s, DefaultKey)
	mine.Load()

	other := New(s, DefaultKey)
	other.Append(NewEntry("x", []byte{1}))

	if n := mine.Reload(); n != 1 {
		t.Errorf("Reload() = %d, want 1", n)
	}
}

func TestReloadKeepsEntriesWhenStoreCorrupted(t *testing.T) {
	s := store.NewMemory()
	c := New(s, DefaultKey)
	c.Load()
	c.Append(NewEntry("kick", []byte{1}))
	c.Append(NewEntry("snare", []byte{2}))

	s.Set(DefaultKey, "{trunc")
	if n := c.Reload(); n != 2 {
		t.Fatalf("Reload() = %d, want 2", n)
	}
	if c.Durable() {
		t.Error("catalog should be session-only after an unreadable reload")
	}

	c.Append(NewEntry("hat", []byte{3}))
	if !c.Durable() {
		t.Error("catalog should be durable after a successful write")
	}
	got := New(s, DefaultKey).Load()
	if len(got) != 3 {
		t.Fatalf("persisted %d entries, want 3", len(got))
	}
	for i, want := range []string{"kick", "snare", "hat"} {
		if got[i].Name != want {
			t.Errorf("entry %d = %q, want %q", i, got[i].Name, want)
		}
	}
}

func TestReloadKeepsEntriesWhenStoreUnavailable(t *testing.T) {
	bs := &brokenStore{Store: store.NewMemory()}
	c := New(bs, DefaultKey)
	c.Load()
	c.Append(NewEntry("kick", []byte{1}))

	bs.failGet = true
	if n := c.Reload(); n != 1 {
		t.Fatalf("Reload() = %d, want 1", n)
	}
	if c.Durable() {
		t.Error("catalog should be session-only after a failed read")
	}
}

func TestAppendLoadProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := store.NewMemory()
		c := New(s, DefaultKey)
		c.Load()

		n := rapid.IntRange(0, 8).Draw(t, "n")
		want := make([]Entry, n)
		for i := range want {
			name := rapid.StringMatching(`[a-zA-Z0-9 _-]{0,12}`).Draw(t, "name")
			payload := rapid.SliceOf(rapid.Byte()).Draw(t, "payload")
			want[i] = NewEntry(name, payload)
			c.Append(want[i])
		}

		got := New(s, DefaultKey).Load()
		if len(got) != len(want) {
			t.Fatalf("got %d entries, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("entry %d = %#v, want %#v", i, got[i], want[i])
			}
		}
	})
}
