// Package host implements the privileged side of the plugin: it owns the
// preset store, reads the canvas selection and answers UI requests.
//
// All requests are handled on the goroutine running Run, in arrival order.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	applog "github.com/CrazyForks/tiny-svg/log"
	"github.com/CrazyForks/tiny-svg/preset"
	"github.com/CrazyForks/tiny-svg/protocol"
	"github.com/CrazyForks/tiny-svg/selection"
)

// Host is the host actor.
type Host struct {
	store    *preset.Store
	provider selection.Provider
	notify   Notifier
	log      *slog.Logger
	debounce *selection.Debouncer

	inbox chan []byte
	done  chan struct{}
	once  sync.Once

	outMu  sync.Mutex
	out    protocol.Sender
	owner  uint64
	kick   chan struct{}
	nextID uint64
}

// Option customises a Host.
type Option func(*Host)

// WithNotifier replaces the log-backed toast surface.
func WithNotifier(n Notifier) Option { return func(h *Host) { h.notify = n } }

// WithDebounce sets the quiet period for selection changes.
func WithDebounce(d time.Duration) Option {
	return func(h *Host) { h.debounce = selection.NewDebouncer(d, h.requestSelection) }
}

// WithInboxSize bounds the request queue.
func WithInboxSize(n int) Option {
	return func(h *Host) { h.inbox = make(chan []byte, n) }
}

func New(store *preset.Store, provider selection.Provider, opts ...Option) *Host {
	l := applog.WithComponent("host")
	h := &Host{
		store:    store,
		provider: provider,
		notify:   logNotifier{log: l},
		log:      l,
		inbox:    make(chan []byte, protocol.DefaultQueueSize),
		done:     make(chan struct{}),
	}
	h.debounce = selection.NewDebouncer(selection.DefaultDebounce, h.requestSelection)
	for _, o := range opts {
		o(h)
	}
	// Every removal reaches the UI, whether it came through the inbox, a
	// reset or the REST surface.
	store.OnRemove(func(id string) { h.emit(protocol.NewPresetDeleted(id)) })
	return h
}

// Store exposes the preset store for the REST surface.
func (h *Host) Store() *preset.Store { return h.store }

// Send queues a request frame. It blocks while the inbox is full and drops
// the frame once the actor has stopped.
func (h *Host) Send(frame []byte) {
	select {
	case h.inbox <- frame:
	case <-h.done:
	}
}

// Post encodes and queues a request.
func (h *Host) Post(m protocol.Message) error { return protocol.Post(h, m) }

// SelectionChanged reports a canvas change. Bursts are collapsed into one
// selection read.
func (h *Host) SelectionChanged() { h.debounce.Trigger() }

func (h *Host) requestSelection() {
	if err := h.Post(protocol.NewGetSelection()); err != nil {
		h.log.Error("queue selection request failed", slog.Any("err", err))
	}
}

// Attach makes s the receiver of host events, displacing any previous
// receiver. The returned channel is closed when s is itself displaced or
// closed by a CLOSE request; detach releases s if it is still the receiver.
func (h *Host) Attach(s protocol.Sender) (kicked <-chan struct{}, detach func()) {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	if h.kick != nil {
		close(h.kick)
	}
	h.nextID++
	id := h.nextID
	kick := make(chan struct{})
	h.out, h.owner, h.kick = s, id, kick
	h.log.Info("ui attached", slog.Uint64("client", id))

	return kick, func() {
		h.outMu.Lock()
		defer h.outMu.Unlock()
		if h.owner == id {
			h.out, h.owner, h.kick = nil, 0, nil
			h.log.Info("ui detached", slog.Uint64("client", id))
		}
	}
}

// kickClient closes the current receiver, as if the UI window closed.
func (h *Host) kickClient() {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	if h.kick != nil {
		close(h.kick)
	}
	h.out, h.owner, h.kick = nil, 0, nil
}

func (h *Host) emit(m protocol.Message) {
	frame, err := protocol.Encode(m)
	if err != nil {
		h.log.Error("encode event failed", slog.String("type", string(m.Type)), slog.Any("err", err))
		return
	}
	h.outMu.Lock()
	out := h.out
	h.outMu.Unlock()
	if out == nil {
		h.log.Debug("no ui attached, dropping event", slog.String("type", string(m.Type)))
		return
	}
	out.Send(frame)
}

func (h *Host) fail(prefix string, err error) {
	msg := fmt.Sprintf("%s: %v", prefix, err)
	h.emit(protocol.NewError(msg, ""))
	h.notify.Notify(msg, true)
}

// Run handles requests until ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	defer h.once.Do(func() {
		close(h.done)
		h.debounce.Stop()
	})
	h.log.Info("host running")
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-h.inbox:
			h.handle(ctx, frame)
		}
	}
}

func (h *Host) handle(ctx context.Context, frame []byte) {
	m, err := protocol.Decode(frame)
	if err != nil {
		h.log.Warn("ignoring frame", slog.Any("err", err))
		return
	}
	if !m.Type.IsRequest() {
		h.log.Warn("ignoring event sent to host", slog.String("type", string(m.Type)))
		return
	}
	l := applog.WithOperation(h.log, string(m.Type))
	l.Debug("request")

	switch m.Type {
	case protocol.Init:
		h.emit(protocol.NewPresetsLoaded(h.store.List()))
		h.sendSelection(ctx)
	case protocol.GetSelection:
		h.sendSelection(ctx)
	case protocol.GetPresets:
		h.emit(protocol.NewPresetsLoaded(h.store.List()))
	case protocol.SavePreset:
		saved, err := h.store.Save(*m.Preset)
		if err != nil {
			l.Warn("save rejected", slog.String("id", m.Preset.ID), slog.Any("err", err))
			h.fail("Failed to save preset", err)
			return
		}
		h.emit(protocol.NewPresetSaved(saved))
		h.notify.Notify("Preset saved successfully", false)
	case protocol.DeletePreset:
		if err := h.store.Remove(m.ID); err != nil {
			l.Warn("delete rejected", slog.String("id", m.ID), slog.Any("err", err))
			h.fail("Failed to delete preset", err)
			return
		}
		h.notify.Notify("Preset deleted successfully", false)
	case protocol.ResetPresets:
		list, err := h.store.Reset()
		if err != nil {
			h.fail("Failed to reset presets", err)
			return
		}
		h.emit(protocol.NewPresetsReset(list))
		h.emit(protocol.NewPresetsLoaded(list))
		h.notify.Notify("Presets reset to defaults", false)
	case protocol.Close:
		h.kickClient()
	}
}

func (h *Host) sendSelection(ctx context.Context) {
	items, err := selection.Export(ctx, h.provider)
	if err != nil {
		h.log.Error("read selection failed", slog.Any("err", err))
		h.fail("Failed to get selection", err)
		return
	}
	h.emit(protocol.NewSelectionChanged(items))
}
