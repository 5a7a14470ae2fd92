package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/ampctl/internal/d4np2"
	"github.com/micro-nova/ampctl/internal/models"
)

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) powerOn(w http.ResponseWriter, r *http.Request) {
	var info d4np2.SettingInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	state, appErr := h.ctrl.PowerOn(r.Context(), info)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) powerOff(w http.ResponseWriter, r *http.Request) {
	state, appErr := h.ctrl.PowerOff(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) getFaults(w http.ResponseWriter, r *http.Request) {
	faults, appErr := h.ctrl.Faults(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, faults)
}

func (h *Handlers) getPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": h.ctrl.Presets()})
}

func (h *Handlers) loadPreset(w http.ResponseWriter, r *http.Request) {
	state, appErr := h.ctrl.LoadPreset(r.Context(), chi.URLParam(r, "name"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) savePreset(w http.ResponseWriter, r *http.Request) {
	var info d4np2.SettingInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	p, appErr := h.ctrl.SavePreset(chi.URLParam(r, "name"), info)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deletePreset(w http.ResponseWriter, r *http.Request) {
	if appErr := h.ctrl.DeletePreset(chi.URLParam(r, "name")); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"presets": h.ctrl.Presets()})
}
