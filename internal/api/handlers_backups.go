package api

import (
	"net/http"
	"path/filepath"

	"github.com/micro-nova/ampctl/internal/models"
)

// Backups are reported by file name; the directory is daemon-internal.

func (h *Handlers) getBackups(w http.ResponseWriter, r *http.Request) {
	files, err := h.backups.ListBackups()
	if err != nil {
		writeError(w, models.ErrInternal("listing backups: "+err.Error()))
		return
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"backups": names})
}

func (h *Handlers) createBackup(w http.ResponseWriter, r *http.Request) {
	file, err := h.backups.RunBackupNow()
	if err != nil {
		writeError(w, models.ErrInternal("backup failed: "+err.Error()))
		return
	}
	if file == "" {
		writeError(w, models.ErrNotFound("no config file to back up"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"backup": filepath.Base(file)})
}
