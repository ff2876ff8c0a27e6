package compress_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/CrazyForks/tiny-svg/compress"
	"github.com/CrazyForks/tiny-svg/item"
	"github.com/CrazyForks/tiny-svg/preset"
)

// recorder is an optimizer that trims a fixed suffix and remembers the
// configuration of every call.
type recorder struct {
	calls   []preset.Config
	failOn  string
	panicOn string
}

func (r *recorder) Optimize(svg string, cfg preset.Config) (string, error) {
	r.calls = append(r.calls, cfg)
	switch {
	case r.failOn != "" && strings.Contains(svg, r.failOn):
		return "", errors.New("malformed input")
	case r.panicOn != "" && strings.Contains(svg, r.panicOn):
		panic("boom")
	}
	return strings.TrimSuffix(svg, "<!-- pad -->"), nil
}

func builtins() []preset.Preset { return preset.Builtins(time.UnixMilli(1000)) }

func items(payloads ...string) []item.Item {
	gs := make([]item.Graphic, len(payloads))
	for i, p := range payloads {
		gs[i] = item.Graphic{ID: string(rune('a' + i)), SVG: p}
	}
	return item.FromGraphics(gs)
}

func TestRatio(t *testing.T) {
	if got := compress.Ratio(1000, 400); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("Ratio(1000,400) = %v", got)
	}
	if got := compress.Ratio(500, 500); got != 0 {
		t.Fatalf("equal sizes = %v", got)
	}
	if got := compress.Ratio(100, 150); got >= 0 {
		t.Fatalf("growth must be negative, got %v", got)
	}
	if got := compress.Ratio(0, 10); got != 0 {
		t.Fatalf("empty original = %v", got)
	}
}

func TestRunFailingItemFallsBack(t *testing.T) {
	opt := &recorder{failOn: "BAD"}
	in := items("<svg/><!-- pad -->", "<svg>BAD</svg>", "<svg/><!-- pad -->")

	res, err := compress.NewEngine(opt).Run(in, builtins(), preset.DefaultID, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("len = %d", len(res))
	}
	bad := res[1]
	if bad.Error == "" || bad.CompressedPayload != in[1].OriginalPayload {
		t.Fatalf("failed item not passed through: %+v", bad)
	}
	if bad.CompressedSize != bad.OriginalSize || bad.Ratio != 0 {
		t.Fatalf("failed item metrics: %+v", bad)
	}
	for _, i := range []int{0, 2} {
		r := res[i]
		if r.Failed() || r.CompressedPayload != "<svg/>" || r.Ratio <= 0 {
			t.Fatalf("item %d: %+v", i, r)
		}
		if r.ID != in[i].ID {
			t.Fatalf("output order broken at %d", i)
		}
	}
}

func TestRunRecoversOptimizerPanic(t *testing.T) {
	opt := &recorder{panicOn: "PANIC"}
	res, err := compress.NewEngine(opt).Run(items("<svg>PANIC</svg>", "<svg/>"), builtins(), preset.DefaultID, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res[0].Failed() || !strings.Contains(res[0].Error, "boom") {
		t.Fatalf("panic not recorded: %+v", res[0])
	}
	if res[1].Failed() {
		t.Fatal("batch must continue after a panic")
	}
}

func TestRunResolvesPerItem(t *testing.T) {
	opt := &recorder{}
	in := items("<svg/>", "<svg/>", "<svg/>")
	in[1].PresetOverride = preset.SafeID

	res, err := compress.NewEngine(opt).Run(in, builtins(), preset.DefaultID, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"default", "safe", "default"}
	for i, r := range res {
		if r.PresetID != want[i] {
			t.Fatalf("item %d used %q, want %q", i, r.PresetID, want[i])
		}
	}
	if opt.calls[1].Enabled("convertPathData") || !opt.calls[0].Enabled("convertPathData") {
		t.Fatal("optimizer did not receive the resolved configuration")
	}
	for i, c := range opt.calls {
		if !c.Multipass {
			t.Fatalf("call %d without multipass", i)
		}
	}
}

func TestRunForcesMultipass(t *testing.T) {
	list := builtins()
	list[0].Config.Multipass = false
	opt := &recorder{}
	compress.NewEngine(opt).Run(items("<svg/>"), list, preset.DefaultID, nil)
	if !opt.calls[0].Multipass {
		t.Fatal("multipass must be forced on")
	}
}

func TestRunUnknownPresetFallsBackToDefault(t *testing.T) {
	in := items("<svg/>")
	in[0].PresetOverride = "deleted"
	res, err := compress.NewEngine(&recorder{}).Run(in, builtins(), "also-gone", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res[0].PresetID != preset.DefaultID {
		t.Fatalf("preset = %q", res[0].PresetID)
	}
}

func TestRunMissingDefaultIsFatal(t *testing.T) {
	onlySafe := builtins()[1:]
	in := items("<svg/>", "<svg/>")
	in[0].PresetOverride = preset.SafeID

	calls := 0
	res, err := compress.NewEngine(&recorder{}).Run(in, onlySafe, preset.DefaultID, func(float64) { calls++ })
	var cerr *compress.ConfigError
	if !errors.As(err, &cerr) || cerr.ItemID != "b" {
		t.Fatalf("expected ConfigError for item b, got %v", err)
	}
	if !errors.Is(err, preset.ErrDefaultPresetMissing) {
		t.Fatal("ConfigError must wrap ErrDefaultPresetMissing")
	}
	if res != nil {
		t.Fatal("aborted batch returns no results")
	}
	if calls != 1 {
		t.Fatalf("progress calls before abort = %d", calls)
	}
}

func TestRunProgressAndYield(t *testing.T) {
	var progress []float64
	yields := 0
	e := compress.NewEngine(&recorder{}, compress.WithYield(func() { yields++ }))
	_, err := e.Run(items("<svg/>", "<svg/>", "<svg/>", "<svg/>"), builtins(), preset.DefaultID,
		func(p float64) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []float64{25, 50, 75, 100}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v", progress)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("progress = %v, want %v", progress, want)
		}
	}
	if yields != 3 {
		t.Fatalf("yields = %d, want 3 (none after the last item)", yields)
	}
}

func TestRunEmptyInput(t *testing.T) {
	opt := &recorder{}
	called := false
	res, err := compress.NewEngine(opt, compress.WithYield(func() { called = true })).
		Run(nil, builtins(), preset.DefaultID, func(float64) { called = true })
	if err != nil || len(res) != 0 {
		t.Fatalf("Run(nil) = %v, %v", res, err)
	}
	if called || len(opt.calls) != 0 {
		t.Fatal("empty batch must not call back")
	}
}

func TestApplyToAndSummarize(t *testing.T) {
	in := items("<svg/><!-- pad -->", "<svg>BAD</svg>")
	res, _ := compress.NewEngine(&recorder{failOn: "BAD"}).Run(in, builtins(), preset.DefaultID, nil)

	m := item.NewModel()
	m.Replace([]item.Graphic{{ID: "a", SVG: in[0].OriginalPayload}, {ID: "b", SVG: in[1].OriginalPayload}})
	for _, r := range res {
		m.Update(r.ID, r.ApplyTo)
	}
	a, _ := m.Get("a")
	b, _ := m.Get("b")
	if !a.Compressed || a.CompressionRatio == nil || *a.CompressionRatio <= 0 {
		t.Fatalf("a = %+v", a)
	}
	if b.Compressed || b.Error == "" || b.CompressionRatio == nil || *b.CompressionRatio != 0 {
		t.Fatalf("b = %+v", b)
	}

	s := compress.Summarize(res)
	if s.Items != 2 || s.Failed != 1 {
		t.Fatalf("summary counts: %+v", s)
	}
	if s.SavedBytes != len("<!-- pad -->") {
		t.Fatalf("saved = %d", s.SavedBytes)
	}
	if s.Ratio <= 0 || s.Ratio >= 1 {
		t.Fatalf("ratio = %v", s.Ratio)
	}
}
