package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"

	defaultCartesiaModel = "ink-whisper"
)

// CartesiaProvider implements the STT Provider interface using Cartesia's API.
type CartesiaProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a new Cartesia STT provider.
func NewCartesia(apiKey string) *CartesiaProvider {
	return &CartesiaProvider{
		apiKey:     apiKey,
		baseURL:    cartesiaBaseURL,
		httpClient: &http.Client{},
	}
}

// NewCartesiaWithClient creates a provider with a custom HTTP client, and an
// optional base URL override for tests.
func NewCartesiaWithClient(apiKey, baseURL string, client *http.Client) *CartesiaProvider {
	if baseURL == "" {
		baseURL = cartesiaBaseURL
	}
	if client == nil {
		client = &http.Client{}
	}
	return &CartesiaProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: client,
	}
}

// Name returns the provider identifier.
func (c *CartesiaProvider) Name() string {
	return "cartesia"
}

type cartesiaTranscript struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe converts audio to text using Cartesia's STT API.
func (c *CartesiaProvider) Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (*Transcript, error) {
	audioData, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	ext := FormatFromMimeType(opts.MimeType)
	fw, err := mw.CreateFormFile("file", "audio."+ext)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audioData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultCartesiaModel
	}
	if err := mw.WriteField("model", model); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}
	if opts.Language != "" {
		if err := mw.WriteField("language", opts.Language); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stt", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cartesia stt error (%d): %s", resp.StatusCode, string(respBody))
	}

	var out cartesiaTranscript
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &Transcript{
		Text:     out.Text,
		Language: out.Language,
		Duration: out.Duration,
	}, nil
}
