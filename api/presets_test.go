package api_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/CrazyForks/tiny-svg/preset"
)

type presetList struct {
	Presets       []preset.Preset `json:"presets"`
	GlobalDefault string          `json:"globalDefault"`
}

type validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func mine(name string) preset.Preset {
	return preset.Preset{Name: name, Config: &preset.Config{Rules: []preset.Rule{
		{Name: "removeComments", Enabled: true},
	}}}
}

func TestGetPresetsBuiltins(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodGet, "/api/presets", nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("expected json content-type, got %q", ct)
	}
	var list presetList
	decode(t, resp, &list)
	if len(list.Presets) != 2 || list.Presets[0].ID != preset.DefaultID || list.GlobalDefault != preset.DefaultID {
		t.Fatalf("got %+v", list)
	}
}

func TestPutPresetAndGet(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPut, "/api/presets/custom1", mine("Mine"))
	expectStatus(t, resp, http.StatusOK)
	var saved preset.Preset
	decode(t, resp, &saved)
	if saved.ID != "custom1" || saved.CreatedAt == 0 || saved.IsDefault {
		t.Fatalf("saved %+v", saved)
	}

	var list presetList
	decode(t, srv.do(t, http.MethodGet, "/api/presets", nil), &list)
	if len(list.Presets) != 3 || list.Presets[2].ID != "custom1" {
		t.Fatalf("got %+v", list.Presets)
	}
}

func TestPutPresetInvalid(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPut, "/api/presets/x", preset.Preset{Name: "Safe", Config: &preset.Config{}})
	expectStatus(t, resp, http.StatusBadRequest)
	var v validation
	decode(t, resp, &v)
	if len(v.Errors) != 2 {
		t.Fatalf("errors %v", v.Errors)
	}
	if len(srv.store.List()) != 2 {
		t.Fatal("invalid preset stored")
	}
}

func TestPutPresetBadJSON(t *testing.T) {
	srv := newTestServer(t)
	expectStatus(t, srv.do(t, http.MethodPut, "/api/presets/x", "not-json"), http.StatusBadRequest)
}

func TestDeletePreset(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.store.Save(preset.Preset{ID: "custom1", Name: "Mine", Config: mine("").Config}); err != nil {
		t.Fatal(err)
	}

	expectStatus(t, srv.do(t, http.MethodDelete, "/api/presets/default", nil), http.StatusForbidden)
	expectStatus(t, srv.do(t, http.MethodDelete, "/api/presets/custom1", nil), http.StatusNoContent)
	// Removing an unknown id is a no-op.
	expectStatus(t, srv.do(t, http.MethodDelete, "/api/presets/custom1", nil), http.StatusNoContent)

	if _, ok := srv.store.Get(preset.DefaultID); !ok {
		t.Fatal("default removed")
	}
	if _, ok := srv.store.Get("custom1"); ok {
		t.Fatal("custom1 still present")
	}
}

func TestPinPreset(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/api/presets/safe/pin", nil)
	expectStatus(t, resp, http.StatusOK)
	var p preset.Preset
	decode(t, resp, &p)
	if !p.Pinned {
		t.Fatal("expected pinned")
	}
	expectStatus(t, srv.do(t, http.MethodPost, "/api/presets/nope/pin", nil), http.StatusNotFound)
}

func TestDuplicatePreset(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, http.MethodPost, "/api/presets/default/duplicate", nil)
	expectStatus(t, resp, http.StatusCreated)
	var p preset.Preset
	decode(t, resp, &p)
	if p.Name != "Default (Copy)" || p.IsDefault || p.ID == preset.DefaultID {
		t.Fatalf("duplicate %+v", p)
	}
	expectStatus(t, srv.do(t, http.MethodPost, "/api/presets/nope/duplicate", nil), http.StatusNotFound)
}

func TestValidatePreset(t *testing.T) {
	srv := newTestServer(t)

	var v validation
	decode(t, srv.do(t, http.MethodPost, "/api/presets/validate", mine("Fresh")), &v)
	if !v.Valid || v.Errors == nil || len(v.Errors) != 0 {
		t.Fatalf("got %+v", v)
	}

	decode(t, srv.do(t, http.MethodPost, "/api/presets/validate", mine("Default")), &v)
	if v.Valid || len(v.Errors) != 1 || !strings.Contains(v.Errors[0], "already exists") {
		t.Fatalf("got %+v", v)
	}
}

func TestResetPresets(t *testing.T) {
	srv := newTestServer(t)
	srv.store.Save(mine("A"))
	srv.store.Save(mine("B"))

	resp := srv.do(t, http.MethodPost, "/api/presets/reset", nil)
	expectStatus(t, resp, http.StatusOK)
	var list presetList
	decode(t, resp, &list)
	if len(list.Presets) != 2 {
		t.Fatalf("got %d presets", len(list.Presets))
	}
}

func TestPutGlobalPreset(t *testing.T) {
	srv := newTestServer(t)

	expectStatus(t, srv.do(t, http.MethodPut, "/api/global-preset", map[string]string{"id": "nope"}), http.StatusNotFound)
	expectStatus(t, srv.do(t, http.MethodPut, "/api/global-preset", map[string]string{}), http.StatusBadRequest)
	expectStatus(t, srv.do(t, http.MethodPut, "/api/global-preset", map[string]string{"id": "safe"}), http.StatusOK)

	var list presetList
	decode(t, srv.do(t, http.MethodGet, "/api/presets", nil), &list)
	if list.GlobalDefault != preset.SafeID {
		t.Fatalf("global %q", list.GlobalDefault)
	}
}

func TestListReportsModifiedPresets(t *testing.T) {
	srv := newTestServer(t)
	expectStatus(t, srv.do(t, http.MethodPost, "/api/presets/safe/pin", nil), http.StatusOK)

	var list struct {
		Presets []struct {
			ID       string `json:"id"`
			Modified bool   `json:"modified"`
		} `json:"presets"`
	}
	decode(t, srv.do(t, http.MethodGet, "/api/presets", nil), &list)
	got := map[string]bool{}
	for _, p := range list.Presets {
		got[p.ID] = p.Modified
	}
	if got[preset.DefaultID] || !got[preset.SafeID] {
		t.Fatalf("modified flags %v", got)
	}
}
