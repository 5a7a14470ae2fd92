package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-nova/ampctl/internal/auth"
)

// NewRouter creates and returns the main HTTP router. backups may be nil, in
// which case the backup routes are not mounted.
func NewRouter(ctrl Controller, authSvc *auth.Service, bus EventBus, backups Backups) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus, backups: backups}

	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)

		r.Get("/api", h.getState)
		r.Get("/api/", h.getState)

		// Power
		r.Post("/api/power/on", h.powerOn)
		r.Post("/api/power/off", h.powerOff)
		r.Get("/api/faults", h.getFaults)

		// Presets
		r.Get("/api/presets", h.getPresets)
		r.Put("/api/presets/{name}", h.savePreset)
		r.Delete("/api/presets/{name}", h.deletePreset)
		r.Post("/api/presets/{name}/load", h.loadPreset)

		// Registers
		r.Get("/api/registers", h.getRegisters)
		r.Get("/api/registers/{reg}", h.readRegister)
		r.Put("/api/registers/{reg}", h.writeRegister)

		// Fields
		r.Get("/api/fields", h.getFields)
		r.Get("/api/fields/{name}", h.readField)
		r.Put("/api/fields/{name}", h.writeField)

		// Config backups
		if backups != nil {
			r.Get("/api/backups", h.getBackups)
			r.Post("/api/backups", h.createBackup)
		}

		// SSE
		r.Get("/api/subscribe", h.sseEvents)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, api-key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
