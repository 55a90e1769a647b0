package types

import (
	"encoding/json"
	"time"
)

// DefaultTitle is the placeholder title of a conversation before its first
// completed turn.
const DefaultTitle = "New Conversation"

// Conversation is the whole-record document owned by the conversation store.
// Entries is the transcript in insertion order; it is only appended to inside
// a successfully completed turn execution.
type Conversation struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ActiveVoiceID string    `json:"active_voice_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Entries       []Entry   `json:"entries"`
}

// UnmarshalJSON decodes the polymorphic Entries array.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	type rawConversation struct {
		ID            string          `json:"id"`
		Title         string          `json:"title"`
		ActiveVoiceID string          `json:"active_voice_id"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
		Entries       json.RawMessage `json:"entries"`
	}

	var raw rawConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.ID = raw.ID
	c.Title = raw.Title
	c.ActiveVoiceID = raw.ActiveVoiceID
	c.CreatedAt = raw.CreatedAt
	c.UpdatedAt = raw.UpdatedAt
	c.Entries = nil

	if len(raw.Entries) == 0 || string(raw.Entries) == "null" {
		return nil
	}
	entries, err := UnmarshalEntries(raw.Entries)
	if err != nil {
		return err
	}
	c.Entries = entries
	return nil
}

// Clone returns a deep-enough copy for handing snapshots across goroutines.
// Entry variants are value types, so copying the slice is sufficient.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Entries = make([]Entry, len(c.Entries))
	copy(out.Entries, c.Entries)
	return &out
}
