package dispatches

import (
	"database/sql"
	"net/http"

	"github.com/gafc98/temperature-logger/internal/modules/dispatches/controller"
	"github.com/gafc98/temperature-logger/internal/modules/dispatches/repository"
)

func RegisterFeature(mux *http.ServeMux, db *sql.DB) {
	dispatchRepository := repository.NewRepository(db)
	dispatchController := controller.NewDispatchController(dispatchRepository)
	dispatchController.RegisterRoutes(mux)
}
