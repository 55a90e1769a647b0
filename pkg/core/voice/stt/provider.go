// Package stt provides speech-to-text functionality.
package stt

import (
	"context"
	"io"
)

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts audio to text.
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error)
}

// TranscribeOptions configures transcription.
type TranscribeOptions struct {
	MimeType string // Declared mime type of the audio payload
	Model    string // Provider-specific model
	Language string // ISO language code
}

// Transcript is the result of transcription.
type Transcript struct {
	Text     string  // Full transcribed text
	Language string  // Detected or specified language
	Duration float64 // Audio duration in seconds
}

// FormatFromMimeType maps a declared mime type to a provider format hint.
func FormatFromMimeType(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return "wav"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/webm":
		return "webm"
	case "audio/ogg":
		return "ogg"
	case "audio/flac":
		return "flac"
	case "audio/m4a", "audio/mp4":
		return "m4a"
	default:
		return "wav"
	}
}
