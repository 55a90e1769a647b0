package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCartesiaSynthesize(t *testing.T) {
	var gotReq cartesiaTTSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts/bytes" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "key-123" {
			t.Errorf("api key header = %q", r.Header.Get("X-API-Key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte("binary audio"))
	}))
	defer srv.Close()

	p := NewCartesiaWithClient("key-123", srv.URL, srv.Client())
	got, err := p.Synthesize(context.Background(), "Hello there.", SynthesizeOptions{
		Voice: "handle-ada",
	})
	if err != nil {
		t.Fatal(err)
	}

	if string(got.Audio) != "binary audio" {
		t.Errorf("audio = %q", got.Audio)
	}
	if got.Format != "mp3" {
		t.Errorf("format = %q", got.Format)
	}
	if gotReq.Transcript != "Hello there." {
		t.Errorf("transcript = %q", gotReq.Transcript)
	}
	if gotReq.Voice.Mode != "id" || gotReq.Voice.ID != "handle-ada" {
		t.Errorf("voice = %+v", gotReq.Voice)
	}
	if gotReq.OutputFormat.Container != "mp3" || gotReq.OutputFormat.SampleRate != 44100 {
		t.Errorf("output format = %+v", gotReq.OutputFormat)
	}
}

func TestCartesiaSynthesizeRequiresVoice(t *testing.T) {
	p := NewCartesia("key")
	if _, err := p.Synthesize(context.Background(), "hi", SynthesizeOptions{}); err == nil {
		t.Fatal("expected an error without a voice handle")
	}
}

func TestCartesiaSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("credits exhausted"))
	}))
	defer srv.Close()

	p := NewCartesiaWithClient("key", srv.URL, srv.Client())
	_, err := p.Synthesize(context.Background(), "hi", SynthesizeOptions{Voice: "v"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "402") {
		t.Errorf("error = %v", err)
	}
}
