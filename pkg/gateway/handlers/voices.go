package handlers

import (
	"net/http"

	"github.com/echolabs-ai/echotwin/pkg/voices"
)

// VoicesHandler lists the known voice personas.
//
// GET /v1/voices
type VoicesHandler struct {
	Registry *voices.Registry
}

func (h VoicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	all, err := h.Registry.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": all})
}
