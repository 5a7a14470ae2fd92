package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handlers) getRegisters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"registers": h.ctrl.Registers()})
}

func (h *Handlers) readRegister(w http.ResponseWriter, r *http.Request) {
	reg, err := intParam(r, "reg")
	if err != nil {
		writeError(w, err)
		return
	}
	rv, appErr := h.ctrl.ReadRegister(r.Context(), reg)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) writeRegister(w http.ResponseWriter, r *http.Request) {
	reg, err := intParam(r, "reg")
	if err != nil {
		writeError(w, err)
		return
	}
	val, err := decodeValue(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rv, appErr := h.ctrl.WriteRegister(r.Context(), reg, val)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) getFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"fields": h.ctrl.Fields()})
}

func (h *Handlers) readField(w http.ResponseWriter, r *http.Request) {
	fv, appErr := h.ctrl.ReadField(r.Context(), chi.URLParam(r, "name"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, fv)
}

func (h *Handlers) writeField(w http.ResponseWriter, r *http.Request) {
	val, err := decodeValue(r)
	if err != nil {
		writeError(w, err)
		return
	}
	fv, appErr := h.ctrl.WriteField(r.Context(), chi.URLParam(r, "name"), val)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, fv)
}
