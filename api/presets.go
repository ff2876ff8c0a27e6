package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CrazyForks/tiny-svg/preset"
)

// presetView is a preset as listed to clients.
type presetView struct {
	preset.Preset
	Modified bool `json:"modified"`
}

type presetsResponse struct {
	Presets       []presetView `json:"presets"`
	GlobalDefault string       `json:"globalDefault"`
}

type validationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (h *handler) presets() presetsResponse {
	sorted := preset.Sort(h.store.List())
	views := make([]presetView, len(sorted))
	for i, p := range sorted {
		views[i] = presetView{Preset: p, Modified: p.IsModified()}
	}
	return presetsResponse{Presets: views, GlobalDefault: h.store.GlobalDefault()}
}

func (h *handler) getPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presets())
}

func decodePreset(r *http.Request) (preset.Preset, bool) {
	var p preset.Preset
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return p, false
	}
	return p, true
}

func (h *handler) validatePreset(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePreset(r)
	if !ok {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	problems := preset.Validate(p, h.store.List())
	if problems == nil {
		problems = []string{}
	}
	writeJSON(w, http.StatusOK, validationResponse{Valid: len(problems) == 0, Errors: problems})
}

func (h *handler) putPreset(w http.ResponseWriter, r *http.Request) {
	p, ok := decodePreset(r)
	if !ok {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = chi.URLParam(r, "id")

	saved, err := h.store.Save(p)
	if err != nil {
		var verr *preset.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, validationResponse{Errors: verr.Problems})
			return
		}
		h.log.Error("save preset failed", slog.String("id", p.ID), slog.Any("err", err))
		http.Error(w, "failed to save preset", http.StatusInternalServerError)
		return
	}
	h.refresh()
	writeJSON(w, http.StatusOK, saved)
}

func (h *handler) deletePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Remove(id); err != nil {
		var perr *preset.ProtectedPresetError
		if errors.As(err, &perr) {
			http.Error(w, perr.Error(), http.StatusForbidden)
			return
		}
		h.log.Error("delete preset failed", slog.String("id", id), slog.Any("err", err))
		http.Error(w, "failed to delete preset", http.StatusInternalServerError)
		return
	}
	h.refresh()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) pinPreset(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Pin(chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, "pin", err)
		return
	}
	h.refresh()
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) duplicatePreset(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Duplicate(chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, "duplicate", err)
		return
	}
	h.refresh()
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) resetPresets(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Reset(); err != nil {
		h.log.Error("reset presets failed", slog.Any("err", err))
		http.Error(w, "failed to reset presets", http.StatusInternalServerError)
		return
	}
	h.refresh()
	writeJSON(w, http.StatusOK, h.presets())
}

func (h *handler) putGlobalPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.store.SetGlobalDefault(req.ID); err != nil {
		h.storeError(w, "set global default", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"globalDefault": req.ID})
}

func (h *handler) storeError(w http.ResponseWriter, op string, err error) {
	var verr *preset.ValidationError
	switch {
	case errors.Is(err, preset.ErrNotFound):
		http.Error(w, "preset not found", http.StatusNotFound)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{Errors: verr.Problems})
	default:
		h.log.Error(op+" failed", slog.Any("err", err))
		http.Error(w, "failed to "+op, http.StatusInternalServerError)
	}
}
