package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echolabs-ai/echotwin/pkg/core"
	"github.com/echolabs-ai/echotwin/pkg/core/chat"
	"github.com/echolabs-ai/echotwin/pkg/core/types"
	"github.com/echolabs-ai/echotwin/pkg/core/voice/stt"
	"github.com/echolabs-ai/echotwin/pkg/core/voice/tts"
	"github.com/echolabs-ai/echotwin/pkg/store"
	"github.com/echolabs-ai/echotwin/pkg/voices"
)

// emptyReplyText is substituted when the reasoning provider returns nothing.
const emptyReplyText = "No response"

// titleWordLimit caps how many words of the first utterance seed the title.
const titleWordLimit = 6

// switchMetaInstruction is appended to every persona's system instructions so
// the reasoning provider knows how to request a voice switch.
const switchMetaInstruction = `If the user asks to speak with a different voice or persona, ` +
	`start your reply with a single line containing only {"switchVoice":"<name>"} ` +
	`and then continue the reply as that persona. Otherwise never emit that object.`

// Timeouts bounds each provider call. A zero value means no bound.
type Timeouts struct {
	Transcribe time.Duration
	Chat       time.Duration
	Synthesize time.Duration
}

// Executor runs a single turn left to right: transcribe, assemble context,
// reason, resolve the switch signal, synthesize, persist. It assumes the
// caller serializes executions per conversation (see KeyedQueue).
type Executor struct {
	conversations store.ConversationStore
	blobs         store.BlobStore
	registry      *voices.Registry
	sttProvider   stt.Provider
	chatProvider  chat.Provider
	ttsProvider   tts.Provider
	timeouts      Timeouts
	logger        *slog.Logger

	now       func() time.Time
	newBlobID func() string
}

// NewExecutor wires the executor's collaborators. Provider selection happens
// here, at construction, never from ambient state at call time.
func NewExecutor(
	conversations store.ConversationStore,
	blobs store.BlobStore,
	registry *voices.Registry,
	sttProvider stt.Provider,
	chatProvider chat.Provider,
	ttsProvider tts.Provider,
	timeouts Timeouts,
	logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		conversations: conversations,
		blobs:         blobs,
		registry:      registry,
		sttProvider:   sttProvider,
		chatProvider:  chatProvider,
		ttsProvider:   ttsProvider,
		timeouts:      timeouts,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		newBlobID:     uuid.NewString,
	}
}

// Execute runs one turn to completion and returns the created entries, or a
// *core.Error describing the step that failed. Steps never reorder.
func (x *Executor) Execute(ctx context.Context, req types.TurnRequest) (*types.TurnResult, error) {
	// Step 1: validate input.
	if len(req.Audio) == 0 && strings.TrimSpace(req.Text) == "" {
		return nil, core.NewValidationError("either audio or text is required")
	}
	if strings.TrimSpace(req.TurnID) == "" {
		return nil, core.NewValidationErrorWithParam("turn id is required", "turn_id")
	}

	// Step 2: load the conversation.
	conv, err := x.conversations.Load(ctx, req.ConversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NewNotFoundError("conversation " + req.ConversationID + " not found")
		}
		return nil, core.NewStorageError("load conversation", err)
	}

	// Step 3: idempotency check. A replayed turn must not touch providers
	// or timestamps.
	if prior, ok := lookupPrior(conv, req.TurnID); ok {
		x.logger.Info("replaying completed turn",
			"conversation_id", conv.ID, "turn_id", req.TurnID)
		return prior, nil
	}

	// Step 4: resolve the active persona.
	active, err := x.registry.Get(ctx, conv.ActiveVoiceID)
	if err != nil {
		return nil, err
	}

	// Step 5: obtain the utterance text.
	utterance, err := x.utteranceText(ctx, req)
	if err != nil {
		return nil, err
	}

	// Step 6: reason over the persona instructions plus prior transcript.
	reply, err := x.reason(ctx, active, conv, utterance)
	if err != nil {
		return nil, err
	}

	// Step 7: resolve a possible switch directive in the reply.
	resolution, err := resolveSignal(ctx, x.registry, active, reply)
	if err != nil {
		return nil, err
	}
	speaking := active
	if resolution.Outcome == OutcomeSwitch {
		speaking = resolution.Target
	}

	// Step 8: synthesize the (possibly replaced) reply text.
	audio, err := x.synthesize(ctx, speaking, resolution.ReplyText)
	if err != nil {
		return nil, err
	}

	// Step 9: persist the synthesized audio.
	blobID := x.newBlobID()
	if err := x.blobs.Put(ctx, conv.ID, blobID, bytes.NewReader(audio)); err != nil {
		return nil, core.NewStorageError("store audio blob", err)
	}

	// Steps 10-11: append the turn's entries in one mutation and save. Any
	// failure past this point orphans the blob, so it is compensated.
	result, err := x.appendAndSave(ctx, conv, req.TurnID, utterance, resolution, active, blobID)
	if err != nil {
		x.cleanupBlob(conv.ID, blobID)
		return nil, err
	}

	// Step 12: hand the new entries back.
	return result, nil
}

func (x *Executor) utteranceText(ctx context.Context, req types.TurnRequest) (string, error) {
	if strings.TrimSpace(req.Text) != "" {
		return req.Text, nil
	}

	ctx, cancel := x.bound(ctx, x.timeouts.Transcribe)
	defer cancel()

	transcript, err := x.sttProvider.Transcribe(ctx, bytes.NewReader(req.Audio), stt.TranscribeOptions{
		MimeType: req.MimeType,
	})
	if err != nil {
		return "", core.NewTranscriptionError(x.sttProvider.Name(), err)
	}
	return transcript.Text, nil
}

func (x *Executor) reason(ctx context.Context, active *types.Voice, conv *types.Conversation, utterance string) (string, error) {
	system := active.Instructions
	if system != "" {
		system += "\n\n"
	}
	system += switchMetaInstruction

	// Prior transcript in order; switch events carry no reasoning content.
	var messages []chat.Message
	for _, entry := range conv.Entries {
		switch e := entry.(type) {
		case types.UserEntry:
			messages = append(messages, chat.Message{Role: chat.RoleUser, Content: e.Text})
		case types.AssistantEntry:
			messages = append(messages, chat.Message{Role: chat.RoleAssistant, Content: e.Text})
		case types.SwitchEntry:
			// excluded from reasoning context
		}
	}
	messages = append(messages, chat.Message{Role: chat.RoleUser, Content: utterance})

	ctx, cancel := x.bound(ctx, x.timeouts.Chat)
	defer cancel()

	reply, err := x.chatProvider.Chat(ctx, system, messages)
	if err != nil {
		return "", core.NewReasoningError(x.chatProvider.Name(), err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = emptyReplyText
	}
	return reply, nil
}

func (x *Executor) synthesize(ctx context.Context, speaking *types.Voice, text string) ([]byte, error) {
	ctx, cancel := x.bound(ctx, x.timeouts.Synthesize)
	defer cancel()

	synth, err := x.ttsProvider.Synthesize(ctx, text, tts.SynthesizeOptions{
		Voice: speaking.SynthesisHandle,
	})
	if err != nil {
		return nil, core.NewSynthesisError(x.ttsProvider.Name(), err)
	}
	return synth.Audio, nil
}

func (x *Executor) appendAndSave(
	ctx context.Context,
	conv *types.Conversation,
	turnID, utterance string,
	resolution *SignalResolution,
	active *types.Voice,
	blobID string,
) (*types.TurnResult, error) {
	now := x.now()

	userEntry := types.UserEntry{
		Type:      "user",
		TurnID:    turnID,
		Text:      utterance,
		CreatedAt: now,
	}
	assistantEntry := types.AssistantEntry{
		Type:        "assistant",
		TurnID:      turnID,
		Text:        resolution.ReplyText,
		AudioBlobID: blobID,
		CreatedAt:   now,
	}

	entries := []types.Entry{userEntry, assistantEntry}

	var switchEntry *types.SwitchEntry
	if resolution.Outcome == OutcomeSwitch {
		se := types.SwitchEntry{
			Type:          "voice_switch",
			TurnID:        turnID,
			Kind:          types.SwitchKindSignal,
			FromVoiceID:   active.ID,
			FromVoiceName: active.Name,
			ToVoiceID:     resolution.Target.ID,
			ToVoiceName:   resolution.Target.Name,
			CreatedAt:     now,
		}
		switchEntry = &se
		entries = append(entries, se)
		conv.ActiveVoiceID = resolution.Target.ID
	}

	conv.Entries = append(conv.Entries, entries...)
	conv.UpdatedAt = now
	if conv.Title == types.DefaultTitle || conv.Title == "" {
		conv.Title = deriveTitle(utterance)
	}

	if err := x.conversations.Save(ctx, conv); err != nil {
		return nil, core.NewStorageError("save conversation", err)
	}

	return &types.TurnResult{
		User:      userEntry,
		Assistant: assistantEntry,
		Switch:    switchEntry,
	}, nil
}

// cleanupBlob deletes the orphaned audio blob after a failed save. A delete
// failure is logged and swallowed; it must never replace the primary error.
func (x *Executor) cleanupBlob(conversationID, blobID string) {
	if err := x.blobs.Delete(context.Background(), conversationID, blobID); err != nil {
		x.logger.Warn("failed to clean up orphaned audio blob",
			"conversation_id", conversationID, "blob_id", blobID, "error", err)
	}
}

func (x *Executor) bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// deriveTitle builds a conversation title from the first words of its first
// utterance, marking truncation with an ellipsis.
func deriveTitle(utterance string) string {
	words := strings.Fields(utterance)
	if len(words) == 0 {
		return types.DefaultTitle
	}
	if len(words) <= titleWordLimit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:titleWordLimit], " ") + "..."
}
