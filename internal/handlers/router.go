package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires every endpoint.
func NewRouter(health *HealthHandler, replays *ReplayHandler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/health", health).Methods(http.MethodGet)
	replays.Register(r)
	return r
}
