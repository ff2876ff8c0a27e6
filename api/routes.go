package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CrazyForks/tiny-svg/compress"
	"github.com/CrazyForks/tiny-svg/host"
	applog "github.com/CrazyForks/tiny-svg/log"
	"github.com/CrazyForks/tiny-svg/preset"
	"github.com/CrazyForks/tiny-svg/protocol"
)

func RegisterRoutes(h *host.Host, engine *compress.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	hd := &handler{host: h, store: h.Store(), engine: engine, log: applog.WithComponent("api")}

	// Presets API
	r.Get("/api/presets", hd.getPresets)
	r.Post("/api/presets/validate", hd.validatePreset)
	r.Post("/api/presets/reset", hd.resetPresets)
	r.Put("/api/presets/{id}", hd.putPreset)
	r.Delete("/api/presets/{id}", hd.deletePreset)
	r.Post("/api/presets/{id}/pin", hd.pinPreset)
	r.Post("/api/presets/{id}/duplicate", hd.duplicatePreset)
	r.Put("/api/global-preset", hd.putGlobalPreset)

	r.Post("/api/compress", hd.compress)

	// WebSocket
	r.Get("/api/ws", hd.handleWS)

	return r
}

type handler struct {
	host   *host.Host
	store  *preset.Store
	engine *compress.Engine
	log    *slog.Logger
}

// refresh tells an attached UI that the store changed behind its back.
func (h *handler) refresh() {
	if err := h.host.Post(protocol.NewGetPresets()); err != nil {
		h.log.Warn("queue preset refresh failed", slog.Any("err", err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
