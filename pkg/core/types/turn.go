package types

// TurnRequest is one inbound exchange request. TurnID is caller-generated and
// is the idempotency key: resubmitting the same turn id replays the original
// outcome instead of re-running providers.
//
// Exactly one of Audio or Text must be supplied. Text is the pre-transcribed
// path that skips the transcription provider.
type TurnRequest struct {
	ConversationID string `json:"conversation_id"`
	TurnID         string `json:"turn_id"`

	Audio    []byte `json:"audio,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Text     string `json:"text,omitempty"`
}

// TurnResult is the outcome of one completed (or replayed) turn.
type TurnResult struct {
	User      UserEntry      `json:"user"`
	Assistant AssistantEntry `json:"assistant"`
	Switch    *SwitchEntry   `json:"switch,omitempty"`

	// Replayed is true when the result was served from already-persisted
	// entries without invoking any provider.
	Replayed bool `json:"replayed,omitempty"`
}
