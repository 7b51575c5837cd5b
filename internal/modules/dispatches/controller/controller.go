package controller

import (
	"net/http"

	"github.com/gafc98/temperature-logger/internal/modules/dispatches/repository"
)

type DispatchController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type dispatchControllerImpl struct {
	repository repository.DispatchRepository
}

func NewDispatchController(repository repository.DispatchRepository) DispatchController {
	return &dispatchControllerImpl{repository: repository}
}

func (c *dispatchControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/digests", c.handleList)
}
