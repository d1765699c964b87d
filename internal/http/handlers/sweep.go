package handlers

import (
	"net/http"
)

// SweepTrigger runs one deadline enforcement sweep. The route carries a
// static bearer token for the external scheduler; the body is empty and the
// response is the count of newly blocked accounts.
func (a *App) SweepTrigger(w http.ResponseWriter, r *http.Request) {
	blocked, err := a.Sweeper.Run(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"blocked": blocked})
}
