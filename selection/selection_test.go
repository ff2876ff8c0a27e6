package selection_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CrazyForks/tiny-svg/selection"
)

func TestExportSkipsNonExportableAndFailures(t *testing.T) {
	p := selection.NewStaticProvider(
		selection.StaticNode{NodeID: "1", NodeName: "one", SVG: []byte("<svg>1</svg>")},
		selection.PlainNode{NodeID: "2", NodeName: "frame"},
		selection.StaticNode{NodeID: "3", NodeName: "broken", Err: errors.New("export failed")},
		selection.StaticNode{NodeID: "4", NodeName: "four", SVG: []byte("<svg>ü</svg>")},
	)
	got, err := selection.Export(context.Background(), p)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "4" {
		t.Fatalf("exported %+v", got)
	}
	if got[1].SVG != "<svg>ü</svg>" || got[1].NodeID != "4" || got[1].Name != "four" {
		t.Fatalf("payload not carried byte-for-byte: %+v", got[1])
	}
}

func TestExportProviderFailure(t *testing.T) {
	p := selection.NewStaticProvider()
	p.Fail(errors.New("canvas unavailable"))
	if _, err := selection.Export(context.Background(), p); err == nil {
		t.Fatal("expected provider error")
	}
	p.Set()
	got, err := selection.Export(context.Background(), p)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty selection = %v, %v", got, err)
	}
}

func TestDirProvider(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.svg":       "<svg>b</svg>",
		"a.SVG":       "<svg>a</svg>",
		"notes.txt":   "hello",
		".hidden.svg": "<svg/>",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	os.Mkdir(filepath.Join(dir, "sub.svg"), 0o755)

	p := selection.DirProvider{Dir: dir}
	nodes, err := p.Selection(context.Background())
	if err != nil {
		t.Fatalf("Selection: %v", err)
	}
	if len(nodes) != 3 || nodes[0].ID() != "a.SVG" || nodes[1].ID() != "b.svg" || nodes[2].ID() != "notes.txt" {
		t.Fatalf("nodes out of order or unfiltered: %d", len(nodes))
	}

	got, err := selection.Export(context.Background(), p)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[0].SVG != "<svg>a</svg>" {
		t.Fatalf("exported %+v", got)
	}

	if _, err := (selection.DirProvider{Dir: filepath.Join(dir, "missing")}).Selection(context.Background()); err == nil {
		t.Fatal("missing dir should fail")
	}
}

func TestDebouncerCollapsesBursts(t *testing.T) {
	var calls atomic.Int32
	d := selection.NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(120 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("burst fired %d times, want 1", n)
	}

	d.Trigger()
	time.Sleep(120 * time.Millisecond)
	if n := calls.Load(); n != 2 {
		t.Fatalf("second burst: calls = %d", n)
	}
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := selection.NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })
	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(80 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("stopped debouncer fired")
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan struct{}, 16)
	w := selection.NewWatcher(dir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Keep writing until the watcher is registered and reports.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
loop:
	for i := 0; ; i++ {
		select {
		case <-changed:
			break loop
		case <-tick.C:
			os.WriteFile(filepath.Join(dir, "icon.svg"), []byte{byte('0' + i%10)}, 0o644)
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w := selection.NewWatcher(filepath.Join(t.TempDir(), "nope"), func() {})
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
