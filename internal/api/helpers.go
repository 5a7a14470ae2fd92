// Package api implements the HTTP control API of the amplifier daemon.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/ampctl/internal/d4np2"
	"github.com/micro-nova/ampctl/internal/events"
	"github.com/micro-nova/ampctl/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl    Controller
	events  EventBus
	backups Backups
}

// Controller is the interface the handlers use to drive the amplifier.
type Controller interface {
	State() models.State
	PowerOn(ctx context.Context, info d4np2.SettingInfo) (models.State, *models.AppError)
	PowerOff(ctx context.Context) (models.State, *models.AppError)
	Presets() []models.PresetInfo
	LoadPreset(ctx context.Context, name string) (models.State, *models.AppError)
	SavePreset(name string, info d4np2.SettingInfo) (models.PresetInfo, *models.AppError)
	DeletePreset(name string) *models.AppError
	Registers() []models.RegisterValue
	ReadRegister(ctx context.Context, reg int) (models.RegisterValue, *models.AppError)
	WriteRegister(ctx context.Context, reg, val int) (models.RegisterValue, *models.AppError)
	Fields() []models.FieldValue
	ReadField(ctx context.Context, name string) (models.FieldValue, *models.AppError)
	WriteField(ctx context.Context, name string, val int) (models.FieldValue, *models.AppError)
	Faults(ctx context.Context) (models.Faults, *models.AppError)
}

// EventBus is the interface for subscribing to state change events.
type EventBus interface {
	Subscribe(id string) <-chan events.Event
	Unsubscribe(id string)
}

// Backups lists and creates config backups.
type Backups interface {
	ListBackups() ([]string, error)
	RunBackupNow() (string, error)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// intParam reads an integer path parameter by name. Hex values need a 0x prefix.
func intParam(r *http.Request, name string) (int, error) {
	s := chi.URLParam(r, name)
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, models.ErrInvalidParam(name, "invalid "+name+" parameter")
	}
	return int(n), nil
}

// decodeValue reads a {"value": n} body.
func decodeValue(r *http.Request) (int, error) {
	var upd models.ValueUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		return 0, models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	if upd.Value == nil {
		return 0, models.ErrInvalidParam("value", "value is required")
	}
	return *upd.Value, nil
}
