// Package compress runs the optimizer over a working set one item at a time.
package compress

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/CrazyForks/tiny-svg/item"
	applog "github.com/CrazyForks/tiny-svg/log"
	"github.com/CrazyForks/tiny-svg/preset"
)

// Optimizer transforms one SVG document under a configuration.
type Optimizer interface {
	Optimize(svg string, cfg preset.Config) (string, error)
}

// OptimizerFunc adapts a function to Optimizer.
type OptimizerFunc func(svg string, cfg preset.Config) (string, error)

func (f OptimizerFunc) Optimize(svg string, cfg preset.Config) (string, error) { return f(svg, cfg) }

// ProgressFunc receives the completed share of a batch on a 0-100 scale.
type ProgressFunc func(percent float64)

// ConfigError aborts a whole batch. It means the preset collection is
// corrupt, not that an item failed.
type ConfigError struct {
	ItemID string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("compress item %q: %v", e.ItemID, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Result is the outcome for one item.
type Result struct {
	ID                string  `json:"id"`
	PresetID          string  `json:"presetId"`
	CompressedPayload string  `json:"compressedPayload"`
	OriginalSize      int     `json:"originalSize"`
	CompressedSize    int     `json:"compressedSize"`
	Ratio             float64 `json:"compressionRatio"`
	Error             string  `json:"error,omitempty"`
}

// Failed reports whether the optimizer rejected the item.
func (r Result) Failed() bool { return r.Error != "" }

// ApplyTo copies the result onto the item it was computed for.
func (r Result) ApplyTo(it *item.Item) {
	ratio := r.Ratio
	it.CompressedPayload = r.CompressedPayload
	it.OriginalSize = r.OriginalSize
	it.CompressedSize = r.CompressedSize
	it.CompressionRatio = &ratio
	it.Error = r.Error
	it.Compressed = !r.Failed()
}

// Ratio is the share of bytes saved. Empty originals yield 0; growth yields
// a negative ratio.
func Ratio(originalSize, compressedSize int) float64 {
	if originalSize <= 0 {
		return 0
	}
	return float64(originalSize-compressedSize) / float64(originalSize)
}

// Engine compresses items sequentially, yielding between items.
type Engine struct {
	opt   Optimizer
	yield func()
	log   *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithYield replaces the cooperative checkpoint run between items.
func WithYield(fn func()) Option { return func(e *Engine) { e.yield = fn } }

func NewEngine(opt Optimizer, opts ...Option) *Engine {
	e := &Engine{opt: opt, yield: runtime.Gosched, log: applog.WithComponent("compress")}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run compresses items in order against presets and the global default.
// Optimizer failures degrade to a pass-through result for that item; only a
// missing canonical default aborts the batch.
func (e *Engine) Run(items []item.Item, presets []preset.Preset, globalID string, progress ProgressFunc) ([]Result, error) {
	results := make([]Result, 0, len(items))
	total := len(items)
	l := applog.WithOperation(e.log, "batch")

	for i, it := range items {
		p, err := preset.Resolve(presets, it.PresetOverride, globalID)
		if err != nil {
			l.Error("batch aborted", slog.String("item", it.ID), slog.Any("err", err))
			return nil, &ConfigError{ItemID: it.ID, Err: err}
		}
		if want := preset.EffectiveID(it.PresetOverride, globalID); want != p.ID {
			l.Warn("preset not found, using default", slog.String("preset", want), slog.String("item", it.ID))
		}

		results = append(results, e.compressOne(it, p))

		if progress != nil {
			progress(float64(i+1) / float64(total) * 100)
		}
		if i < total-1 && e.yield != nil {
			e.yield()
		}
	}
	return results, nil
}

func (e *Engine) compressOne(it item.Item, p preset.Preset) Result {
	orig := len(it.OriginalPayload)
	out, err := e.optimize(it.OriginalPayload, preset.ForOptimizer(p))
	if err != nil {
		e.log.Warn("optimize failed", slog.String("item", it.ID), slog.String("name", it.Name),
			slog.String("preset", p.ID), slog.Any("err", err))
		return Result{
			ID:                it.ID,
			PresetID:          p.ID,
			CompressedPayload: it.OriginalPayload,
			OriginalSize:      orig,
			CompressedSize:    orig,
			Error:             err.Error(),
		}
	}
	return Result{
		ID:                it.ID,
		PresetID:          p.ID,
		CompressedPayload: out,
		OriginalSize:      orig,
		CompressedSize:    len(out),
		Ratio:             Ratio(orig, len(out)),
	}
}

var errOptimizerPanic = errors.New("optimizer panicked")

func (e *Engine) optimize(svg string, cfg preset.Config) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errOptimizerPanic, r)
		}
	}()
	return e.opt.Optimize(svg, cfg)
}
