package api

import (
	"encoding/json"
	"net/http"

	"github.com/CrazyForks/tiny-svg/compress"
	"github.com/CrazyForks/tiny-svg/item"
)

type compressRequest struct {
	Items []item.Graphic `json:"items"`
	// Overrides maps graphic ids to a preset id. Missing entries inherit.
	Overrides    map[string]string `json:"overrides,omitempty"`
	GlobalPreset string            `json:"globalPreset,omitempty"`
}

type compressResponse struct {
	Results []compress.Result `json:"results"`
	Summary compress.Summary  `json:"summary"`
}

func (h *handler) compress(w http.ResponseWriter, r *http.Request) {
	var req compressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	items := item.FromGraphics(req.Items)
	for i := range items {
		if id, ok := req.Overrides[items[i].ID]; ok && id != "" {
			items[i].PresetOverride = id
		}
	}
	global := req.GlobalPreset
	if global == "" {
		global = h.store.GlobalDefault()
	}

	results, err := h.engine.Run(items, h.store.List(), global, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, compressResponse{Results: results, Summary: compress.Summarize(results)})
}
