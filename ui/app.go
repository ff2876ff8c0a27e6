// Package ui implements the unprivileged side of the plugin: it keeps a
// local copy of the presets, owns the working set of graphics and runs
// compression batches.
package ui

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/CrazyForks/tiny-svg/compress"
	"github.com/CrazyForks/tiny-svg/item"
	applog "github.com/CrazyForks/tiny-svg/log"
	"github.com/CrazyForks/tiny-svg/preset"
	"github.com/CrazyForks/tiny-svg/protocol"
)

// ErrUnknownItem is returned for item ids not in the working set.
var ErrUnknownItem = errors.New("item not found")

// App is the UI actor. Events and actions are applied one at a time; each
// change is published to subscribers as a State snapshot.
type App struct {
	mu       sync.Mutex
	out      protocol.Sender
	engine   *compress.Engine
	now      func() time.Time
	toast    func(message string, isError bool)
	progress compress.ProgressFunc
	log      *slog.Logger

	presets     []preset.Preset
	global      string
	model       *item.Model
	thumbs      *item.Cache
	compressing bool
	percent     float64
	lastErr     string
	batches     int

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// Option customises an App.
type Option func(*App)

func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

// WithToast sets the notification surface.
func WithToast(fn func(message string, isError bool)) Option {
	return func(a *App) { a.toast = fn }
}

// WithProgress observes batch progress while a batch runs.
func WithProgress(fn compress.ProgressFunc) Option { return func(a *App) { a.progress = fn } }

// WithThumbnailCapacity bounds the thumbnail cache.
func WithThumbnailCapacity(n int) Option { return func(a *App) { a.thumbs = item.NewCache(n) } }

// New returns an App that sends requests to out and compresses with engine.
// The preset snapshot starts with the built-ins until the host reports.
func New(out protocol.Sender, engine *compress.Engine, opts ...Option) *App {
	a := &App{
		out:    out,
		engine: engine,
		now:    time.Now,
		log:    applog.WithComponent("ui"),
		global: preset.DefaultID,
		model:  item.NewModel(),
		thumbs: item.NewCache(item.ThumbnailCapacity),
		subs:   map[int]func(State){},
	}
	a.toast = func(message string, isError bool) {
		if isError {
			a.log.Error(message, slog.Bool("toast", true))
			return
		}
		a.log.Info(message, slog.Bool("toast", true))
	}
	for _, o := range opts {
		o(a)
	}
	a.presets = preset.Builtins(a.now())
	return a
}

// State returns a snapshot of the current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *App) snapshotLocked() State {
	presets := make([]preset.Preset, len(a.presets))
	for i, p := range a.presets {
		presets[i] = p.Clone()
	}
	return State{
		Presets:      presets,
		GlobalPreset: a.global,
		Items:        a.model.Items(),
		Compressing:  a.compressing,
		Progress:     a.percent,
		LastError:    a.lastErr,
		Batches:      a.batches,
	}
}

// Subscribe registers fn to receive a snapshot after every change.
func (a *App) Subscribe(fn func(State)) (unsubscribe func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	return func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subs, id)
	}
}

// update runs fn under the state lock and publishes the result.
func (a *App) update(fn func() error) error {
	a.mu.Lock()
	err := fn()
	s := a.snapshotLocked()
	a.mu.Unlock()

	a.subMu.Lock()
	subs := make([]func(State), 0, len(a.subs))
	for _, sub := range a.subs {
		subs = append(subs, sub)
	}
	a.subMu.Unlock()
	for _, sub := range subs {
		sub(s)
	}
	return err
}

func (a *App) send(m protocol.Message) {
	if err := protocol.Post(a.out, m); err != nil {
		a.log.Error("send request failed", slog.String("type", string(m.Type)), slog.Any("err", err))
	}
}

// Run applies event frames until frames is closed or ctx is cancelled.
func (a *App) Run(ctx context.Context, frames <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := a.Handle(frame); err != nil {
				a.log.Warn("ignoring frame", slog.Any("err", err))
			}
		}
	}
}

// Handle applies one event frame.
func (a *App) Handle(frame []byte) error {
	m, err := protocol.Decode(frame)
	if err != nil {
		return err
	}
	if !m.Type.IsEvent() {
		return fmt.Errorf("request %s sent to ui: %w", m.Type, protocol.ErrUnknownMessage)
	}
	return a.update(func() error {
		a.handleLocked(m)
		return nil
	})
}

func (a *App) handleLocked(m protocol.Message) {
	l := applog.WithOperation(a.log, string(m.Type))
	switch m.Type {
	case protocol.SelectionChanged:
		a.model.Replace(m.Items)
		l.Info("selection replaced", slog.Int("items", a.model.Len()))
		a.compressLocked(a.model.Items())
	case protocol.PresetsLoaded:
		a.presets = m.Presets
		if gone := a.danglingLocked(); len(gone) > 0 {
			l.Info("resetting references to missing presets", slog.Any("ids", gone))
			a.removeLocked(gone...)
		}
	case protocol.PresetSaved:
		a.presets = preset.Upsert(a.presets, *m.Preset)
	case protocol.PresetDeleted:
		a.removeLocked(m.ID)
	case protocol.PresetsReset:
		l.Info("presets reset by host")
	case protocol.Error:
		a.lastErr = m.Message
		a.toast(m.Message, true)
	}
}

// compressLocked runs a batch over items and applies the results.
func (a *App) compressLocked(items []item.Item) {
	if len(items) == 0 {
		return
	}
	a.compressing, a.percent = true, 0
	results, err := a.engine.Run(items, a.presets, a.global, func(p float64) {
		a.percent = p
		if a.progress != nil {
			a.progress(p)
		}
	})
	a.compressing = false
	if err != nil {
		a.lastErr = err.Error()
		a.toast("Compression failed: "+err.Error(), true)
		return
	}
	for _, r := range results {
		a.model.Update(r.ID, r.ApplyTo)
		a.thumbs.Delete(r.ID)
	}
	a.batches++
}

// removeLocked drops presets from the snapshot and resets everything that
// pointed at them. Affected items are compressed again.
func (a *App) removeLocked(ids ...string) {
	globalReset := false
	var touched []string
	for _, id := range ids {
		a.presets = preset.RemoveID(a.presets, id)
		touched = append(touched, a.model.ResetOverride(id)...)
		if a.global == id {
			a.global = preset.DefaultID
			globalReset = true
		}
	}
	if globalReset {
		a.compressLocked(a.model.Inheriting())
		return
	}
	a.compressLocked(a.itemsLocked(touched))
}

// danglingLocked returns the preset ids referenced by the global default or
// an item override that are missing from the snapshot.
func (a *App) danglingLocked() []string {
	var gone []string
	seen := map[string]bool{}
	check := func(id string) {
		if id == "" || id == preset.Inherit || id == preset.DefaultID || seen[id] {
			return
		}
		seen[id] = true
		if _, ok := preset.Find(a.presets, id); !ok {
			gone = append(gone, id)
		}
	}
	check(a.global)
	for _, it := range a.model.Items() {
		check(it.PresetOverride)
	}
	return gone
}

func (a *App) itemsLocked(ids []string) []item.Item {
	out := make([]item.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := a.model.Get(id); ok {
			out = append(out, it)
		}
	}
	return out
}

// usingLocked returns the items whose effective preset is id.
func (a *App) usingLocked(id string) []item.Item {
	var out []item.Item
	for _, it := range a.model.Items() {
		if preset.EffectiveID(it.PresetOverride, a.global) == id {
			out = append(out, it)
		}
	}
	return out
}

// Init asks the host for the presets and the current selection.
func (a *App) Init() { a.send(protocol.NewInit()) }

// RequestSelection asks the host to read the selection again.
func (a *App) RequestSelection() { a.send(protocol.NewGetSelection()) }

// SavePreset validates p against the local snapshot, applies it optimistically
// and asks the host to persist it. Editing a preset recompresses the items
// that use it.
func (a *App) SavePreset(p preset.Preset) (preset.Preset, error) {
	var saved preset.Preset
	err := a.update(func() error {
		if problems := preset.Validate(p, a.presets); len(problems) > 0 {
			return &preset.ValidationError{Problems: problems}
		}
		_, existed := preset.Find(a.presets, p.ID)
		saved = a.saveLocked(p)
		if existed {
			a.compressLocked(a.usingLocked(saved.ID))
		}
		return nil
	})
	return saved, err
}

func (a *App) saveLocked(p preset.Preset) preset.Preset {
	p = p.Clone()
	if p.ID == "" {
		p.ID = preset.NewID(p.Name)
	}
	p.IsDefault = preset.IsBuiltinID(p.ID)
	now := a.now().UnixMilli()
	if existing, ok := preset.Find(a.presets, p.ID); ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	a.presets = preset.Upsert(a.presets, p)
	a.send(protocol.NewSavePreset(p))
	return p.Clone()
}

// UsageCount returns how many items explicitly override to presetID.
// Views show it before confirming a delete.
func (a *App) UsageCount(presetID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.UsageCount(presetID)
}

// DeletePreset removes a custom preset locally and on the host. Built-ins
// are refused without contacting the host.
func (a *App) DeletePreset(id string) error {
	return a.update(func() error {
		p, ok := preset.Find(a.presets, id)
		if !ok {
			return fmt.Errorf("delete %q: %w", id, preset.ErrNotFound)
		}
		if p.IsDefault {
			return &preset.ProtectedPresetError{ID: id, Op: "delete"}
		}
		if n := a.model.UsageCount(id); n > 0 {
			a.log.Info("deleting preset in use", slog.String("id", id), slog.Int("items", n))
		}
		a.removeLocked(id)
		a.send(protocol.NewDeletePreset(id))
		return nil
	})
}

// PinPreset toggles the pinned flag.
func (a *App) PinPreset(id string) (preset.Preset, error) {
	var saved preset.Preset
	err := a.update(func() error {
		p, ok := preset.Find(a.presets, id)
		if !ok {
			return fmt.Errorf("pin %q: %w", id, preset.ErrNotFound)
		}
		p = p.Clone()
		p.Pinned = !p.Pinned
		saved = a.saveLocked(p)
		return nil
	})
	return saved, err
}

// DuplicatePreset saves a custom copy of the preset with id.
func (a *App) DuplicatePreset(id string) (preset.Preset, error) {
	var saved preset.Preset
	err := a.update(func() error {
		src, ok := preset.Find(a.presets, id)
		if !ok {
			return fmt.Errorf("duplicate %q: %w", id, preset.ErrNotFound)
		}
		cp := preset.Duplicate(src, a.now())
		for n := 2; nameTaken(a.presets, cp.Name); n++ {
			cp.Name = fmt.Sprintf("%s (Copy %d)", src.Name, n)
		}
		if problems := preset.Validate(cp, a.presets); len(problems) > 0 {
			return &preset.ValidationError{Problems: problems}
		}
		saved = a.saveLocked(cp)
		return nil
	})
	return saved, err
}

func nameTaken(list []preset.Preset, name string) bool {
	for _, p := range list {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ResetPresets drops every custom preset locally and on the host.
func (a *App) ResetPresets() {
	a.update(func() error {
		var custom []string
		for _, p := range a.presets {
			if !p.IsDefault {
				custom = append(custom, p.ID)
			}
		}
		a.removeLocked(custom...)
		a.send(protocol.NewResetPresets())
		return nil
	})
}

// SetGlobalDefault changes the preset used by inheriting items and
// recompresses them.
func (a *App) SetGlobalDefault(id string) error {
	return a.update(func() error {
		if _, ok := preset.Find(a.presets, id); !ok {
			return fmt.Errorf("global default %q: %w", id, preset.ErrNotFound)
		}
		if a.global == id {
			return nil
		}
		a.global = id
		a.compressLocked(a.model.Inheriting())
		return nil
	})
}

// SetItemOverride assigns a preset, or preset.Inherit, to one item and
// recompresses it.
func (a *App) SetItemOverride(itemID, presetID string) error {
	return a.update(func() error {
		if presetID != "" && presetID != preset.Inherit {
			if _, ok := preset.Find(a.presets, presetID); !ok {
				return fmt.Errorf("override %q: %w", presetID, preset.ErrNotFound)
			}
		}
		if !a.model.SetOverride(itemID, presetID) {
			return fmt.Errorf("override %q: %w", itemID, ErrUnknownItem)
		}
		a.compressLocked(a.itemsLocked([]string{itemID}))
		return nil
	})
}

// Recompress runs a batch over the whole working set.
func (a *App) Recompress() {
	a.update(func() error {
		a.compressLocked(a.model.Items())
		return nil
	})
}

// ClearItems empties the working set.
func (a *App) ClearItems() {
	a.update(func() error {
		a.model.Clear()
		a.thumbs.Clear()
		return nil
	})
}

// Thumbnail returns a data URI of the item's current payload. URIs are
// cached per item until the item is compressed again.
func (a *App) Thumbnail(itemID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if uri, ok := a.thumbs.Get(itemID); ok {
		return uri, true
	}
	it, ok := a.model.Get(itemID)
	if !ok {
		return "", false
	}
	payload := it.OriginalPayload
	if it.Compressed {
		payload = it.CompressedPayload
	}
	uri := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
	a.thumbs.Set(itemID, uri)
	return uri, true
}
