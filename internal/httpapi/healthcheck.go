package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"github.com/gafc98/temperature-logger/internal/utils"
)

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db      *sql.DB
	logFile string
}

func NewHealthchecker(db *sql.DB, logFile string) healthchecker {
	return &healthcheckerImpl{db: db, logFile: logFile}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	f, err := os.Open(h.logFile)
	if err != nil {
		slog.Error("failed to open sensor log", "path", h.logFile, "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "sensor log not readable")
		return
	}
	_ = f.Close()
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, logFile string) {
	healthchecker := NewHealthchecker(db, logFile)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
