// Package handlers implements the gateway's HTTP endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/echolabs-ai/echotwin/pkg/gateway/apierror"
	"github.com/echolabs-ai/echotwin/pkg/gateway/mw"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	coreErr, status := apierror.FromError(err, reqID)
	writeJSON(w, status, apierror.Envelope{Error: coreErr})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
