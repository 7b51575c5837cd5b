package controller

import (
	"net/http"
	"time"

	"github.com/coder/quartz"

	"github.com/gafc98/temperature-logger/internal/modules/dashboard/repository"
)

type DashboardController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type Options struct {
	// UnsubscribeLink is the newsletter form shown on the page.
	UnsubscribeLink string
	Clock           quartz.Clock
}

type dashboardControllerImpl struct {
	repository      repository.ReadingRepository
	clock           quartz.Clock
	unsubscribeLink string
}

func NewDashboardController(repository repository.ReadingRepository, opts Options) DashboardController {
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &dashboardControllerImpl{
		repository:      repository,
		clock:           clock,
		unsubscribeLink: opts.UnsubscribeLink,
	}
}

func (c *dashboardControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleDashboard)
	mux.HandleFunc("GET /partials/latest", c.handleLatestPartial)
	mux.HandleFunc("GET /charts/{file}", c.handleChart)
	mux.HandleFunc("GET /api/readings", c.handleReadings)
}

func (c *dashboardControllerImpl) now() time.Time {
	return c.clock.Now().In(c.repository.Location())
}
