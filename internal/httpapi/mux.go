package httpapi

import (
	"database/sql"
	"net/http"
)

func NewMux(db *sql.DB, logFile string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, logFile)
	return mux
}
