package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gafc98/temperature-logger/internal/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

func (c *dispatchControllerImpl) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	dispatches, err := c.repository.ListDispatches(r.Context(), limit)
	if err != nil {
		slog.Error("digests: list failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load digests")
		return
	}
	utils.WriteJSON(w, http.StatusOK, dispatches)
}

func parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxListLimit {
		return 0, errors.New("'limit' must be <= 200")
	}
	return n, nil
}
