package pipeline

// Shared in-memory fakes for the pipeline tests. Stores hand out clones so a
// failed save never leaks partial mutations back into the fixture.

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/echolabs-ai/echotwin/pkg/core/chat"
	"github.com/echolabs-ai/echotwin/pkg/core/types"
	"github.com/echolabs-ai/echotwin/pkg/core/voice/stt"
	"github.com/echolabs-ai/echotwin/pkg/core/voice/tts"
	"github.com/echolabs-ai/echotwin/pkg/store"
	"github.com/echolabs-ai/echotwin/pkg/voices"
)

type memConvStore struct {
	mu      sync.Mutex
	convs   map[string]*types.Conversation
	saveErr error
	saves   int
}

func newMemConvStore(convs ...*types.Conversation) *memConvStore {
	s := &memConvStore{convs: make(map[string]*types.Conversation)}
	for _, c := range convs {
		s.convs[c.ID] = c.Clone()
	}
	return s
}

func (s *memConvStore) Load(ctx context.Context, id string) (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *memConvStore) Save(ctx context.Context, conv *types.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.convs[conv.ID] = conv.Clone()
	return nil
}

func (s *memConvStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.convs, id)
	return nil
}

func (s *memConvStore) List(ctx context.Context) ([]*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *memConvStore) get(id string) *types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convs[id].Clone()
}

type memVoiceStore struct {
	mu     sync.Mutex
	voices map[string]*types.Voice
}

func newMemVoiceStore(vs ...*types.Voice) *memVoiceStore {
	s := &memVoiceStore{voices: make(map[string]*types.Voice)}
	for _, v := range vs {
		vv := *v
		s.voices[v.ID] = &vv
	}
	return s
}

func (s *memVoiceStore) Load(ctx context.Context, id string) (*types.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	vv := *v
	return &vv, nil
}

func (s *memVoiceStore) Save(ctx context.Context, v *types.Voice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vv := *v
	s.voices[v.ID] = &vv
	return nil
}

func (s *memVoiceStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voices[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.voices, id)
	return nil
}

func (s *memVoiceStore) List(ctx context.Context) ([]*types.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Voice, 0, len(s.voices))
	for _, v := range s.voices {
		vv := *v
		out = append(out, &vv)
	}
	// Oldest first, matching the real stores.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

type memBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte // key: conversationID + "/" + blobID
	deletes []string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Put(ctx context.Context, conversationID, blobID string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[conversationID+"/"+blobID] = data
	return nil
}

func (s *memBlobStore) Open(ctx context.Context, conversationID, blobID string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[conversationID+"/"+blobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Delete(ctx context.Context, conversationID, blobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := conversationID + "/" + blobID
	if _, ok := s.blobs[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.blobs, key)
	s.deletes = append(s.deletes, key)
	return nil
}

func (s *memBlobStore) DeleteAll(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.blobs {
		if len(key) > len(conversationID) && key[:len(conversationID)+1] == conversationID+"/" {
			delete(s.blobs, key)
		}
	}
	return nil
}

func (s *memBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

type fakeSTT struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeSTT) Name() string { return "fake-stt" }

func (f *fakeSTT) Transcribe(ctx context.Context, audio io.Reader, opts stt.TranscribeOptions) (*stt.Transcript, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &stt.Transcript{Text: f.text}, nil
}

func (f *fakeSTT) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeChat struct {
	mu           sync.Mutex
	reply        string
	err          error
	calls        int
	lastSystem   string
	lastMessages []chat.Message
	fn           func(ctx context.Context, system string, messages []chat.Message) (string, error)
}

func (f *fakeChat) Name() string { return "fake-chat" }

func (f *fakeChat) Chat(ctx context.Context, system string, messages []chat.Message) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastSystem = system
	f.lastMessages = append([]chat.Message(nil), messages...)
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, system, messages)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTTS struct {
	audio []byte
	err   error
	mu    sync.Mutex
	texts []string
}

func (f *fakeTTS) Name() string { return "fake-tts" }

func (f *fakeTTS) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOptions) (*tts.Synthesis, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	audio := f.audio
	if audio == nil {
		audio = []byte("audio-bytes")
	}
	return &tts.Synthesis{Audio: audio, Format: "mp3"}, nil
}

func (f *fakeTTS) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVoices() []*types.Voice {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*types.Voice{
		{ID: "v-ada", Name: "Ada", Instructions: "You are Ada.", SynthesisHandle: "handle-ada", CreatedAt: base},
		{ID: "v-didi", Name: "Didi", Instructions: "You are Didi.", SynthesisHandle: "handle-didi", CreatedAt: base.Add(time.Hour)},
	}
}

func testRegistry(vs ...*types.Voice) *voices.Registry {
	if vs == nil {
		vs = testVoices()
	}
	return voices.NewRegistry(newMemVoiceStore(vs...), testLogger())
}

func testConversation(id string) *types.Conversation {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return &types.Conversation{
		ID:            id,
		Title:         types.DefaultTitle,
		ActiveVoiceID: "v-ada",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
