package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"
	cartesiaModel   = "sonic-3"
)

// CartesiaProvider implements the TTS Provider interface using Cartesia's API.
type CartesiaProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a new Cartesia TTS provider.
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

type cartesiaVoiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
}

type cartesiaGenerationConfig struct {
	Speed float64 `json:"speed,omitempty"`
}

type cartesiaTTSRequest struct {
	ModelID          string                    `json:"model_id"`
	Transcript       string                    `json:"transcript"`
	Voice            cartesiaVoiceSpec         `json:"voice"`
	OutputFormat     cartesiaOutputFormat      `json:"output_format"`
	Language         *string                   `json:"language,omitempty"`
	GenerationConfig *cartesiaGenerationConfig `json:"generation_config,omitempty"`
}

// Synthesize converts text to audio using Cartesia's TTS bytes API.
func (c *CartesiaProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if opts.Voice == "" {
		return nil, fmt.Errorf("voice handle is required")
	}

	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 44100
	}
	format := opts.Format
	if format == "" {
		format = "mp3"
	}

	reqBody := cartesiaTTSRequest{
		ModelID:    cartesiaModel,
		Transcript: text,
		Voice: cartesiaVoiceSpec{
			Mode: "id",
			ID:   opts.Voice,
		},
		OutputFormat: cartesiaOutputFormat{
			Container:  format,
			SampleRate: sampleRate,
		},
	}
	if opts.Speed != 0 {
		reqBody.GenerationConfig = &cartesiaGenerationConfig{Speed: opts.Speed}
	}
	if opts.Language != "" {
		reqBody.Language = &opts.Language
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cartesia tts error (%d): %s", resp.StatusCode, string(audio))
	}

	return &Synthesis{Audio: audio, Format: format}, nil
}
