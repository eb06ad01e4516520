package handlers

import (
	"net/http"
)

// Health is the liveness probe. It does not touch the stores.
func (a *App) Health(w http.ResponseWriter, _ *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
