package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.RecordBackend != RecordBackendFile || cfg.BlobBackend != BlobBackendFile {
		t.Errorf("backends = %q/%q, want file/file", cfg.RecordBackend, cfg.BlobBackend)
	}
	if cfg.ChatBackend != ChatBackendOpenAI || cfg.TTSBackend != TTSBackendCartesia {
		t.Errorf("providers = %q/%q", cfg.ChatBackend, cfg.TTSBackend)
	}
	if cfg.TranscribeTimeout != 60*time.Second || cfg.ChatTimeout != 120*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.TranscribeTimeout, cfg.ChatTimeout)
	}
	if cfg.MaxAudioBytes != 25<<20 {
		t.Errorf("max audio bytes = %d", cfg.MaxAudioBytes)
	}
	if cfg.APIKeys != nil {
		t.Errorf("api keys = %v, want nil (auth disabled)", cfg.APIKeys)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("ECHOTWIN_ADDR", ":9999")
	t.Setenv("ECHOTWIN_CHAT_BACKEND", "gemini")
	t.Setenv("ECHOTWIN_TTS_BACKEND", "elevenlabs")
	t.Setenv("ECHOTWIN_CHAT_TIMEOUT", "30s")
	t.Setenv("ECHOTWIN_API_KEYS", "key-a, key-b")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.ChatBackend != ChatBackendGemini {
		t.Errorf("chat backend = %q", cfg.ChatBackend)
	}
	if cfg.TTSBackend != TTSBackendElevenLabs {
		t.Errorf("tts backend = %q", cfg.TTSBackend)
	}
	if cfg.ChatTimeout != 30*time.Second {
		t.Errorf("chat timeout = %v", cfg.ChatTimeout)
	}
	if len(cfg.APIKeys) != 2 {
		t.Errorf("api keys = %v", cfg.APIKeys)
	}
	if _, ok := cfg.APIKeys["key-b"]; !ok {
		t.Error("key-b not parsed")
	}
}

func TestLoadFromEnvPostgresRequiresDSN(t *testing.T) {
	t.Setenv("ECHOTWIN_RECORD_BACKEND", "postgres")
	t.Setenv("ECHOTWIN_POSTGRES_DSN", "")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected an error without a DSN")
	}

	t.Setenv("ECHOTWIN_POSTGRES_DSN", "postgres://localhost/echotwin")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RecordBackend != RecordBackendPostgres {
		t.Errorf("record backend = %q", cfg.RecordBackend)
	}
}

func TestLoadFromEnvRejectsUnknownBackends(t *testing.T) {
	tests := []struct{ key, val string }{
		{"ECHOTWIN_RECORD_BACKEND", "dynamo"},
		{"ECHOTWIN_BLOB_BACKEND", "s3"},
		{"ECHOTWIN_STT_BACKEND", "whisperx"},
		{"ECHOTWIN_CHAT_BACKEND", "llama"},
		{"ECHOTWIN_TTS_BACKEND", "espeak"},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("%s=%s accepted", tt.key, tt.val)
			}
		})
	}
}

func TestLoadFromEnvRejectsBadDuration(t *testing.T) {
	t.Setenv("ECHOTWIN_CHAT_TIMEOUT", "soon")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected a parse error")
	}
}
