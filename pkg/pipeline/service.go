package pipeline

import (
	"bytes"
	"context"

	"github.com/echolabs-ai/echotwin/pkg/core"
	"github.com/echolabs-ai/echotwin/pkg/core/types"
	"github.com/echolabs-ai/echotwin/pkg/core/voice/stt"
)

// Service is the public face of the turn pipeline: it funnels turn requests
// through the per-conversation queue into the executor, and serves the
// transcription-only path that bypasses the pipeline entirely.
type Service struct {
	queue    *KeyedQueue
	executor *Executor
}

// NewService wires the queue in front of the executor.
func NewService(executor *Executor) *Service {
	return &Service{
		queue:    NewKeyedQueue(),
		executor: executor,
	}
}

type turnOutcome struct {
	result *types.TurnResult
	err    error
}

// SubmitTurn enqueues the turn for its conversation and blocks until it
// completes. Turns for the same conversation run strictly in arrival order;
// turns for different conversations proceed concurrently.
//
// If ctx expires while waiting, the caller gets ctx's error but the turn
// still runs to completion in its queue slot; resubmitting the same turn id
// later replays the persisted outcome.
func (s *Service) SubmitTurn(ctx context.Context, req types.TurnRequest) (*types.TurnResult, error) {
	if req.ConversationID == "" {
		return nil, core.NewValidationErrorWithParam("conversation id is required", "conversation_id")
	}

	// The turn runs detached from the caller's cancellation: once queued it
	// must complete and persist so that a retry of the same turn id replays
	// instead of re-invoking providers. Per-step timeouts still apply inside
	// the executor.
	runCtx := context.WithoutCancel(ctx)

	ch := make(chan turnOutcome, 1)
	s.queue.Submit(req.ConversationID, func() {
		result, err := s.executor.Execute(runCtx, req)
		ch <- turnOutcome{result: result, err: err}
	})

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Transcribe converts audio to text without running a turn. Useful for
// clients that transcribe before composing the turn request.
func (s *Service) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", core.NewValidationErrorWithParam("audio is required", "audio")
	}

	ctx, cancel := s.executor.bound(ctx, s.executor.timeouts.Transcribe)
	defer cancel()

	transcript, err := s.executor.sttProvider.Transcribe(ctx, bytes.NewReader(audio), stt.TranscribeOptions{
		MimeType: mimeType,
	})
	if err != nil {
		return "", core.NewTranscriptionError(s.executor.sttProvider.Name(), err)
	}
	return transcript.Text, nil
}
