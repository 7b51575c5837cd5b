package dashboard

import (
	"net/http"

	"github.com/gafc98/temperature-logger/internal/modules/dashboard/controller"
	"github.com/gafc98/temperature-logger/internal/modules/dashboard/repository"
	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

func RegisterFeature(mux *http.ServeMux, scanner *sensorlog.Scanner, opts controller.Options) {
	readingRepository := repository.NewRepository(scanner)
	dashboardController := controller.NewDashboardController(readingRepository, opts)
	dashboardController.RegisterRoutes(mux)
}
