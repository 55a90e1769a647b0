package handlers

import (
	"net/http"

	"github.com/echolabs-ai/echotwin/pkg/pipeline"
)

// TranscriptionsHandler serves the transcription-only path, independent of
// the turn pipeline: clients can transcribe first and compose the turn
// request afterwards.
//
// POST /v1/transcriptions takes multipart/form-data with an "audio" part.
type TranscriptionsHandler struct {
	Service       *pipeline.Service
	MaxAudioBytes int64
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (h TranscriptionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	audio, mimeType, _, err := readAudioForm(r, h.MaxAudioBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	text, err := h.Service.Transcribe(r.Context(), audio, mimeType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transcriptionResponse{Text: text})
}
