// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selections. Provider choice is a configuration concern resolved
// once at startup; the pipeline only ever sees injected interfaces.
const (
	STTBackendCartesia = "cartesia"

	ChatBackendOpenAI = "openai"
	ChatBackendGemini = "gemini"

	TTSBackendCartesia   = "cartesia"
	TTSBackendElevenLabs = "elevenlabs"

	RecordBackendFile     = "file"
	RecordBackendPostgres = "postgres"

	BlobBackendFile = "file"
	BlobBackendNATS = "nats"
)

// Config holds everything the gateway needs to assemble the pipeline.
type Config struct {
	Addr string

	// API keys accepted on Authorization: Bearer. Empty disables auth.
	APIKeys map[string]struct{}

	// Storage.
	DataDir       string
	RecordBackend string
	BlobBackend   string
	PostgresDSN   string
	NATSURL       string
	NATSBucket    string

	// Provider selection and credentials.
	STTBackend     string
	ChatBackend    string
	TTSBackend     string
	CartesiaAPIKey string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string
	ElevenLabsKey  string

	// Per-step provider call bounds.
	TranscribeTimeout time.Duration
	ChatTimeout       time.Duration
	SynthesizeTimeout time.Duration

	// Request handling.
	MaxAudioBytes int64

	// CORS; empty disables.
	CORSAllowedOrigins map[string]struct{}

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

// LoadFromEnv reads configuration from the environment, applying defaults
// and validating backend selections.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:          getEnv("ECHOTWIN_ADDR", ":8080"),
		DataDir:       getEnv("ECHOTWIN_DATA_DIR", "data"),
		RecordBackend: getEnv("ECHOTWIN_RECORD_BACKEND", RecordBackendFile),
		BlobBackend:   getEnv("ECHOTWIN_BLOB_BACKEND", BlobBackendFile),
		PostgresDSN:   os.Getenv("ECHOTWIN_POSTGRES_DSN"),
		NATSURL:       getEnv("ECHOTWIN_NATS_URL", "nats://127.0.0.1:4222"),
		NATSBucket:    getEnv("ECHOTWIN_NATS_BUCKET", "echotwin-audio"),

		STTBackend:     getEnv("ECHOTWIN_STT_BACKEND", STTBackendCartesia),
		ChatBackend:    getEnv("ECHOTWIN_CHAT_BACKEND", ChatBackendOpenAI),
		TTSBackend:     getEnv("ECHOTWIN_TTS_BACKEND", TTSBackendCartesia),
		CartesiaAPIKey: os.Getenv("CARTESIA_API_KEY"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    os.Getenv("GEMINI_MODEL"),
		ElevenLabsKey:  os.Getenv("ELEVENLABS_API_KEY"),

		APIKeys:            parseSet(os.Getenv("ECHOTWIN_API_KEYS")),
		CORSAllowedOrigins: parseSet(os.Getenv("ECHOTWIN_CORS_ALLOWED_ORIGINS")),
	}

	var err error
	if cfg.TranscribeTimeout, err = getDuration("ECHOTWIN_TRANSCRIBE_TIMEOUT", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ChatTimeout, err = getDuration("ECHOTWIN_CHAT_TIMEOUT", 120*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SynthesizeTimeout, err = getDuration("ECHOTWIN_SYNTHESIZE_TIMEOUT", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReadHeaderTimeout, err = getDuration("ECHOTWIN_READ_HEADER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReadTimeout, err = getDuration("ECHOTWIN_READ_TIMEOUT", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownGracePeriod, err = getDuration("ECHOTWIN_SHUTDOWN_GRACE", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.MaxAudioBytes, err = getInt64("ECHOTWIN_MAX_AUDIO_BYTES", 25<<20); err != nil {
		return Config{}, err
	}

	switch cfg.RecordBackend {
	case RecordBackendFile:
	case RecordBackendPostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("ECHOTWIN_POSTGRES_DSN is required for record backend %q", cfg.RecordBackend)
		}
	default:
		return Config{}, fmt.Errorf("unknown record backend %q", cfg.RecordBackend)
	}

	switch cfg.BlobBackend {
	case BlobBackendFile, BlobBackendNATS:
	default:
		return Config{}, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}

	switch cfg.STTBackend {
	case STTBackendCartesia:
	default:
		return Config{}, fmt.Errorf("unknown stt backend %q", cfg.STTBackend)
	}
	switch cfg.ChatBackend {
	case ChatBackendOpenAI, ChatBackendGemini:
	default:
		return Config{}, fmt.Errorf("unknown chat backend %q", cfg.ChatBackend)
	}
	switch cfg.TTSBackend {
	case TTSBackendCartesia, TTSBackendElevenLabs:
	default:
		return Config{}, fmt.Errorf("unknown tts backend %q", cfg.TTSBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func parseSet(raw string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out[part] = struct{}{}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
