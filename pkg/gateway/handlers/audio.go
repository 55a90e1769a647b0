package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/echolabs-ai/echotwin/pkg/core"
	"github.com/echolabs-ai/echotwin/pkg/store"
)

// AudioHandler streams a stored audio blob.
//
// GET /v1/conversations/{id}/audio/{blobID}
type AudioHandler struct {
	Blobs  store.BlobStore
	Logger *slog.Logger
}

func (h AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	conversationID := r.PathValue("id")
	blobID := r.PathValue("blobID")

	rc, err := h.Blobs.Open(r.Context(), conversationID, blobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, core.NewNotFoundError("audio blob "+blobID+" not found"))
			return
		}
		writeError(w, r, core.NewStorageError("open audio blob", err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil && h.Logger != nil {
		h.Logger.Warn("failed streaming audio blob",
			"conversation_id", conversationID, "blob_id", blobID, "error", err)
	}
}
