package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/echolabs-ai/echotwin/pkg/core"
	"github.com/echolabs-ai/echotwin/pkg/core/types"
	"github.com/echolabs-ai/echotwin/pkg/store"
	"github.com/echolabs-ai/echotwin/pkg/voices"
)

// ConversationsHandler serves conversation CRUD.
//
//	GET    /v1/conversations          list
//	POST   /v1/conversations          create
//	GET    /v1/conversations/{id}     fetch one (applies voice recovery)
//	DELETE /v1/conversations/{id}     delete record and audio blobs
type ConversationsHandler struct {
	Conversations store.ConversationStore
	Blobs         store.BlobStore
	Registry      *voices.Registry
	Logger        *slog.Logger
}

type createConversationRequest struct {
	VoiceID string `json:"voice_id"`
	Title   string `json:"title"`
}

func (h ConversationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h ConversationsHandler) list(w http.ResponseWriter, r *http.Request) {
	convs, err := h.Conversations.List(r.Context())
	if err != nil {
		writeError(w, r, core.NewStorageError("list conversations", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (h ConversationsHandler) create(w http.ResponseWriter, r *http.Request) {
	var body createConversationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, r, core.NewValidationError("invalid JSON body"))
		return
	}
	if body.VoiceID == "" {
		writeError(w, r, core.NewValidationErrorWithParam("voice id is required", "voice_id"))
		return
	}
	if _, err := h.Registry.Get(r.Context(), body.VoiceID); err != nil {
		writeError(w, r, err)
		return
	}

	title := body.Title
	if title == "" {
		title = types.DefaultTitle
	}
	now := time.Now().UTC()
	conv := &types.Conversation{
		ID:            uuid.NewString(),
		Title:         title,
		ActiveVoiceID: body.VoiceID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Conversations.Save(r.Context(), conv); err != nil {
		writeError(w, r, core.NewStorageError("save conversation", err))
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// ConversationHandler serves a single conversation by id.
type ConversationHandler struct {
	Conversations store.ConversationStore
	Blobs         store.BlobStore
	Registry      *voices.Registry
	Logger        *slog.Logger
}

func (h ConversationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h ConversationHandler) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conv, err := h.Conversations.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, core.NewNotFoundError("conversation "+id+" not found"))
			return
		}
		writeError(w, r, core.NewStorageError("load conversation", err))
		return
	}

	// Read-path recovery: if the active voice was deleted, substitute a
	// fallback and record the recovery event before rendering. A recovery
	// failure never blocks the read; the conversation renders as-is.
	_, changed, recoverErr := h.Registry.RecoverActive(r.Context(), conv)
	switch {
	case recoverErr != nil:
		h.Logger.Warn("voice recovery failed",
			"conversation_id", conv.ID, "voice_id", conv.ActiveVoiceID, "error", recoverErr)
	case changed:
		if saveErr := h.Conversations.Save(r.Context(), conv); saveErr != nil {
			h.Logger.Warn("failed to persist voice recovery",
				"conversation_id", conv.ID, "error", saveErr)
		}
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h ConversationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Conversations.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, core.NewNotFoundError("conversation "+id+" not found"))
			return
		}
		writeError(w, r, core.NewStorageError("delete conversation", err))
		return
	}
	if err := h.Blobs.DeleteAll(r.Context(), id); err != nil {
		h.Logger.Warn("failed to delete conversation blobs",
			"conversation_id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
