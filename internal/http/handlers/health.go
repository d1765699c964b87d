package handlers

import (
	"net/http"
)

// Health reports liveness. It names the service so a probe pointed at the
// wrong port fails loudly instead of reporting a healthy stranger.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "service": a.Service})
}
