package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry is the interface for all conversation entry variants.
// Variants: user, assistant, voice_switch.
type Entry interface {
	EntryType() string
}

// SwitchKind distinguishes reasoning-driven switches from read-path recovery.
type SwitchKind string

const (
	// SwitchKindSignal is a switch requested by the reasoning provider's reply.
	SwitchKindSignal SwitchKind = "switch"
	// SwitchKindRecovery is a fallback substitution applied when the active
	// voice no longer exists.
	SwitchKindRecovery SwitchKind = "recovery"
)

// UserEntry is a transcribed user utterance.
type UserEntry struct {
	Type      string    `json:"type"` // "user"
	TurnID    string    `json:"turn_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (e UserEntry) EntryType() string { return "user" }

// AssistantEntry is a synthesized assistant reply. AudioBlobID references the
// synthesized audio in the blob store, keyed under the conversation.
type AssistantEntry struct {
	Type        string    `json:"type"` // "assistant"
	TurnID      string    `json:"turn_id"`
	Text        string    `json:"text"`
	AudioBlobID string    `json:"audio_blob_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (e AssistantEntry) EntryType() string { return "assistant" }

// SwitchEntry records a change of the conversation's active voice.
// TurnID is empty for recovery events not tied to a user turn.
type SwitchEntry struct {
	Type          string     `json:"type"` // "voice_switch"
	TurnID        string     `json:"turn_id,omitempty"`
	Kind          SwitchKind `json:"kind"`
	FromVoiceID   string     `json:"from_voice_id"`
	FromVoiceName string     `json:"from_voice_name"`
	ToVoiceID     string     `json:"to_voice_id"`
	ToVoiceName   string     `json:"to_voice_name"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (e SwitchEntry) EntryType() string { return "voice_switch" }

// UnmarshalEntry parses a single entry from JSON based on its "type" field.
func UnmarshalEntry(data []byte) (Entry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse entry: %w", err)
	}

	switch head.Type {
	case "user":
		var e UserEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("parse user entry: %w", err)
		}
		return e, nil
	case "assistant":
		var e AssistantEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("parse assistant entry: %w", err)
		}
		return e, nil
	case "voice_switch":
		var e SwitchEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("parse voice_switch entry: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown entry type %q", head.Type)
	}
}

// UnmarshalEntries parses a JSON array of entries.
func UnmarshalEntries(data []byte) ([]Entry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse entries: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		e, err := UnmarshalEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
