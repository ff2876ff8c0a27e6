package storage_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CrazyForks/tiny-svg/config"
	"github.com/CrazyForks/tiny-svg/storage"
)

// exercise runs the contract every gateway must honour.
func exercise(t *testing.T, gw storage.Gateway) {
	t.Helper()
	if _, ok := gw.Read("missing"); ok {
		t.Fatal("Read of unset key should report false")
	}
	if err := gw.Write("k", `[{"id":"a"}]`); err != nil {
		t.Fatalf("Write: %v", err)
	}
	v, ok := gw.Read("k")
	if !ok || v != `[{"id":"a"}]` {
		t.Fatalf("Read after Write = %q, %v", v, ok)
	}
	// Whole-blob overwrite, no merge.
	if err := gw.Write("k", `[]`); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if v, _ := gw.Read("k"); v != `[]` {
		t.Fatalf("expected overwrite, got %q", v)
	}
}

func TestMemoryGateway(t *testing.T) {
	exercise(t, storage.NewMemory())
}

func TestFileGateway(t *testing.T) {
	root := t.TempDir()
	gw, err := storage.NewFile(root, "doc-1")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	exercise(t, gw)

	if _, err := os.Stat(filepath.Join(root, "doc-1", "k.json")); err != nil {
		t.Fatalf("expected blob file on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "doc-1", "k.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away, stat err = %v", err)
	}
}

func TestFileGatewayWorkspacesAreIsolated(t *testing.T) {
	root := t.TempDir()
	a, _ := storage.NewFile(root, "a")
	b, _ := storage.NewFile(root, "b")
	a.Write("k", "from-a")
	if _, ok := b.Read("k"); ok {
		t.Fatal("workspace b should not see workspace a's blob")
	}
}

func TestFileGatewaySanitisesNames(t *testing.T) {
	root := t.TempDir()
	gw, err := storage.NewFile(root, "../escape")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	gw.Write("../../key", "v")
	entries, _ := os.ReadDir(filepath.Dir(root))
	for _, e := range entries {
		if strings.Contains(e.Name(), "escape") {
			t.Fatalf("workspace escaped root: %s", e.Name())
		}
	}
	if v, ok := gw.Read("../../key"); !ok || v != "v" {
		t.Fatalf("sanitised key round-trip failed: %q %v", v, ok)
	}
}

func TestSQLiteGateway(t *testing.T) {
	gw, err := storage.OpenSQLite(t.TempDir(), "doc-1")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer gw.Close()
	exercise(t, gw)
}

func TestSQLiteGatewayPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.db")
	gw, err := storage.OpenSQLite(path, "ws")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	gw.Write("k", "v1")
	gw.Close()

	gw2, err := storage.OpenSQLite(path, "ws")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer gw2.Close()
	if v, ok := gw2.Read("k"); !ok || v != "v1" {
		t.Fatalf("expected persisted blob, got %q %v", v, ok)
	}
	other, _ := storage.OpenSQLite(path, "other")
	defer other.Close()
	if _, ok := other.Read("k"); ok {
		t.Fatal("blob leaked across workspaces")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	for _, backend := range []string{"memory", "file", "sqlite"} {
		gw, closeFn, err := storage.Open(config.StorageConfig{Backend: backend, Path: t.TempDir(), Workspace: "w"})
		if err != nil {
			t.Fatalf("Open(%s): %v", backend, err)
		}
		exercise(t, gw)
		if err := closeFn(); err != nil {
			t.Fatalf("close %s: %v", backend, err)
		}
	}
	if _, _, err := storage.Open(config.StorageConfig{Backend: "etcd"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
