package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

const elevenLabsDefaultWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"

// ElevenLabsProvider implements the TTS Provider interface using ElevenLabs'
// websocket stream-input API.
type ElevenLabsProvider struct {
	apiKey    string
	wsBaseURL string
	dialer    *websocket.Dialer
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
func NewElevenLabs(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:    strings.TrimSpace(apiKey),
		wsBaseURL: elevenLabsDefaultWSBase,
		dialer:    websocket.DefaultDialer,
	}
}

// WithWSBaseURL overrides the websocket endpoint, mainly for tests.
func (e *ElevenLabsProvider) WithWSBaseURL(base string) *ElevenLabsProvider {
	if e == nil {
		return e
	}
	base = strings.TrimSpace(base)
	if base != "" {
		e.wsBaseURL = base
	}
	return e
}

// Name returns the provider identifier.
func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

// Synthesize converts text to audio over a single stream-input session:
// open, send the full text, flush, collect chunks until the final frame.
func (e *ElevenLabsProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if e == nil || e.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	voiceID := strings.TrimSpace(opts.Voice)
	if voiceID == "" {
		return nil, fmt.Errorf("voice handle is required")
	}

	wsURL, err := buildElevenLabsWSURL(e.wsBaseURL, voiceID, opts)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)
	conn, _, err := e.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial elevenlabs: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}

	// Session init frame, then the text, then a flush.
	if err := conn.WriteJSON(map[string]any{"text": " ", "voice_id": voiceID}); err != nil {
		return nil, fmt.Errorf("init session: %w", err)
	}
	body := strings.TrimSpace(text)
	if body != "" && !strings.HasSuffix(body, " ") {
		body += " "
	}
	if err := conn.WriteJSON(map[string]any{"text": body}); err != nil {
		return nil, fmt.Errorf("send text: %w", err)
	}
	if err := conn.WriteJSON(map[string]any{"text": "", "flush": true}); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	var audio []byte
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(audio) > 0 {
				break
			}
			return nil, fmt.Errorf("read audio: %w", err)
		}

		var msg struct {
			Audio   string `json:"audio"`
			IsFinal bool   `json:"isFinal"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err == nil {
				audio = append(audio, chunk...)
			}
		}
		if msg.IsFinal {
			break
		}
	}

	return &Synthesis{Audio: audio, Format: formatOrDefault(opts.Format)}, nil
}

func buildElevenLabsWSURL(base, voiceID string, opts SynthesizeOptions) (string, error) {
	base = strings.ReplaceAll(base, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid elevenlabs ws url: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "wss"
	}
	q := u.Query()
	if q.Get("model_id") == "" {
		q.Set("model_id", "eleven_flash_v2_5")
	}
	if q.Get("output_format") == "" {
		q.Set("output_format", elevenLabsOutputFormat(opts))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func elevenLabsOutputFormat(opts SynthesizeOptions) string {
	switch formatOrDefault(opts.Format) {
	case "pcm":
		return "pcm_24000"
	default:
		return "mp3_44100_128"
	}
}

func formatOrDefault(format string) string {
	if format == "" {
		return "mp3"
	}
	return format
}
