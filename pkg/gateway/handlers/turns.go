package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/echolabs-ai/echotwin/pkg/core"
	"github.com/echolabs-ai/echotwin/pkg/core/types"
	"github.com/echolabs-ai/echotwin/pkg/pipeline"
)

// TurnsHandler accepts turn submissions for a conversation.
//
// POST /v1/conversations/{id}/turns takes either multipart/form-data with an
// "audio" file part and a "turn_id" field, or a JSON body with turn_id and
// pre-transcribed text.
type TurnsHandler struct {
	Service       *pipeline.Service
	MaxAudioBytes int64
}

type turnJSONRequest struct {
	TurnID string `json:"turn_id"`
	Text   string `json:"text"`
}

func (h TurnsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	conversationID := r.PathValue("id")

	req := types.TurnRequest{ConversationID: conversationID}

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		audio, mimeType, turnID, err := readAudioForm(r, h.MaxAudioBytes)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.Audio = audio
		req.MimeType = mimeType
		req.TurnID = turnID
	default:
		var body turnJSONRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
			writeError(w, r, core.NewValidationError("invalid JSON body"))
			return
		}
		req.TurnID = body.TurnID
		req.Text = body.Text
	}

	result, err := h.Service.SubmitTurn(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// readAudioForm extracts the audio payload, its declared mime type, and the
// turn id from a multipart form.
func readAudioForm(r *http.Request, maxBytes int64) ([]byte, string, string, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, "", "", core.NewValidationError("invalid multipart form")
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, "", "", core.NewValidationErrorWithParam("audio file part is required", "audio")
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return nil, "", "", core.NewValidationError("read audio part")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	return audio, mimeType, r.FormValue("turn_id"), nil
}
