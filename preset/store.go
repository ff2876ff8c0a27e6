package preset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	applog "github.com/CrazyForks/tiny-svg/log"
	"github.com/CrazyForks/tiny-svg/storage"
)

// StorageKey is the gateway key the preset collection is persisted under.
const StorageKey = "tiny-svg-presets"

// Store owns the authoritative preset collection and the global default
// pointer. Built-ins are re-synthesized on every Load; only custom presets
// are trusted from storage.
type Store struct {
	mu       sync.RWMutex
	gw       storage.Gateway
	now      func() time.Time
	log      *slog.Logger
	presets  []Preset
	globalID string
	onRemove []func(id string)
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithGlobalDefault sets the initial global default; unknown ids fall back
// to DefaultID.
func WithGlobalDefault(id string) Option { return func(s *Store) { s.globalID = id } }

// NewStore loads the collection from gw.
func NewStore(gw storage.Gateway, opts ...Option) *Store {
	s := &Store{
		gw:       gw,
		now:      time.Now,
		log:      applog.WithComponent("preset"),
		globalID: DefaultID,
	}
	for _, o := range opts {
		o(s)
	}
	s.Load()
	return s
}

// Load re-reads the persisted collection. It never fails: unreadable or
// malformed data degrades to the built-in set.
func (s *Store) Load() []Preset {
	list := s.read()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets = list
	if _, ok := Find(list, s.globalID); !ok {
		s.globalID = DefaultID
	}
	return cloneAll(list)
}

func (s *Store) read() []Preset {
	l := applog.WithOperation(s.log, "load")
	out := Builtins(s.now())

	data, ok := s.gw.Read(StorageKey)
	if !ok || strings.TrimSpace(data) == "" {
		return out
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		l.Error("parse persisted presets failed, using built-ins", slog.Any("err", err))
		return out
	}
	for i, r := range raw {
		problems, err := checkEntry(r)
		if err != nil || len(problems) > 0 {
			l.Warn("dropping malformed preset entry", slog.Int("index", i),
				slog.String("problems", joinProblems(problems)), slog.Any("err", err))
			continue
		}
		var p Preset
		if err := json.Unmarshal(r, &p); err != nil {
			l.Warn("dropping undecodable preset entry", slog.Int("index", i), slog.Any("err", err))
			continue
		}
		if p.IsDefault || IsBuiltinID(p.ID) {
			continue
		}
		if _, dup := Find(out, p.ID); dup {
			l.Warn("dropping duplicate preset id", slog.String("id", p.ID))
			continue
		}
		out = append(out, p)
	}
	return out
}

// persist writes the full collection, built-ins included. Caller holds mu.
func (s *Store) persist(list []Preset) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}
	if err := s.gw.Write(StorageKey, string(data)); err != nil {
		return fmt.Errorf("persist presets: %w", err)
	}
	return nil
}

// List returns a copy of the collection in storage order.
func (s *Store) List() []Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.presets)
}

// Get returns the preset with id.
func (s *Store) Get(id string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := Find(s.presets, id)
	return p.Clone(), ok
}

// Save validates p and upserts it by id. A new preset gets CreatedAt and
// UpdatedAt set to now; an existing one keeps CreatedAt and bumps UpdatedAt.
// An empty id is assigned from the name.
func (s *Store) Save(p Preset) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(p)
}

func (s *Store) saveLocked(p Preset) (Preset, error) {
	if problems := Validate(p, s.presets); len(problems) > 0 {
		return Preset{}, &ValidationError{Problems: problems}
	}
	p = p.Clone()
	if p.ID == "" {
		p.ID = NewID(p.Name)
	}
	p.IsDefault = IsBuiltinID(p.ID)

	now := s.now().UnixMilli()
	if existing, ok := Find(s.presets, p.ID); ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	next := Upsert(s.presets, p)
	if err := s.persist(next); err != nil {
		return Preset{}, err
	}
	s.presets = next
	s.log.Info("preset saved", slog.String("id", p.ID), slog.String("name", p.Name))
	return p.Clone(), nil
}

// Remove deletes a custom preset. Built-ins fail with ProtectedPresetError
// and leave the store untouched. Removing an unknown id is a no-op. The
// global default is reset when it pointed at id, and OnRemove listeners run
// after the lock is released.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	p, ok := Find(s.presets, id)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if p.IsDefault {
		s.mu.Unlock()
		return &ProtectedPresetError{ID: id, Op: "delete"}
	}
	next := RemoveID(s.presets, id)
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.presets = next
	if s.globalID == id {
		s.globalID = DefaultID
	}
	listeners := append([]func(string){}, s.onRemove...)
	s.mu.Unlock()

	s.log.Info("preset removed", slog.String("id", id))
	for _, fn := range listeners {
		fn(id)
	}
	return nil
}

// Pin toggles the pinned flag.
func (s *Store) Pin(id string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := Find(s.presets, id)
	if !ok {
		return Preset{}, fmt.Errorf("pin %q: %w", id, ErrNotFound)
	}
	p = p.Clone()
	p.Pinned = !p.Pinned
	p.UpdatedAt = s.now().UnixMilli()

	next := Upsert(s.presets, p)
	if err := s.persist(next); err != nil {
		return Preset{}, err
	}
	s.presets = next
	return p.Clone(), nil
}

// Duplicate saves a custom copy of the preset with id.
func (s *Store) Duplicate(id string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := Find(s.presets, id)
	if !ok {
		return Preset{}, fmt.Errorf("duplicate %q: %w", id, ErrNotFound)
	}
	cp := Duplicate(src, s.now())
	for n := 2; ; n++ {
		if _, taken := findName(s.presets, cp.Name); !taken {
			break
		}
		cp.Name = fmt.Sprintf("%s (Copy %d)", src.Name, n)
	}
	return s.saveLocked(cp)
}

// Reset drops every custom preset.
func (s *Store) Reset() ([]Preset, error) {
	s.mu.Lock()
	next := Builtins(s.now())
	var removed []string
	for _, p := range s.presets {
		if !p.IsDefault {
			removed = append(removed, p.ID)
		}
	}
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.presets = next
	if _, ok := Find(next, s.globalID); !ok {
		s.globalID = DefaultID
	}
	listeners := append([]func(string){}, s.onRemove...)
	out := cloneAll(next)
	s.mu.Unlock()

	for _, id := range removed {
		for _, fn := range listeners {
			fn(id)
		}
	}
	return out, nil
}

// GlobalDefault returns the preset id used by items that inherit.
func (s *Store) GlobalDefault() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalID
}

// SetGlobalDefault points the global default at an existing preset.
func (s *Store) SetGlobalDefault(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := Find(s.presets, id); !ok {
		return fmt.Errorf("global default %q: %w", id, ErrNotFound)
	}
	s.globalID = id
	return nil
}

// OnRemove registers fn to be called with the id of every removed preset.
func (s *Store) OnRemove(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = append(s.onRemove, fn)
}

// Resolve returns the effective preset for an item override.
func (s *Store) Resolve(override string) (Preset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := Resolve(s.presets, override, s.globalID)
	return p.Clone(), err
}

func findName(list []Preset, name string) (Preset, bool) {
	for _, p := range list {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

func cloneAll(list []Preset) []Preset {
	out := make([]Preset, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out
}
