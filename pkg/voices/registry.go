// Package voices resolves voice personas for the turn pipeline: id lookup,
// fuzzy name matching for switch requests, and read-path recovery when a
// conversation's active voice has been deleted.
package voices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/echolabs-ai/echotwin/pkg/core"
	"github.com/echolabs-ai/echotwin/pkg/core/types"
	"github.com/echolabs-ai/echotwin/pkg/store"
)

// Registry looks up voice personas. It is read-only from the pipeline's
// perspective; persona writes belong to the voice-management flow.
type Registry struct {
	store  store.VoiceStore
	logger *slog.Logger
}

// NewRegistry creates a registry over the given voice store.
func NewRegistry(s store.VoiceStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: s, logger: logger}
}

// Get resolves a voice id. Returns a not_found error when the voice does not
// exist.
func (r *Registry) Get(ctx context.Context, id string) (*types.Voice, error) {
	v, err := r.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NewNotFoundError(fmt.Sprintf("voice %q not found", id))
		}
		return nil, core.NewStorageError("load voice", err)
	}
	return v, nil
}

// List returns all personas, oldest first.
func (r *Registry) List(ctx context.Context) ([]*types.Voice, error) {
	out, err := r.store.List(ctx)
	if err != nil {
		return nil, core.NewStorageError("list voices", err)
	}
	return out, nil
}

// Match returns every persona whose display name is a case-insensitive
// substring of candidate, or vice versa.
func (r *Registry) Match(ctx context.Context, candidate string) ([]*types.Voice, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(candidate))
	if needle == "" {
		return nil, nil
	}

	var matches []*types.Voice
	for _, v := range all {
		name := strings.ToLower(strings.TrimSpace(v.Name))
		if name == "" {
			continue
		}
		if strings.Contains(needle, name) || strings.Contains(name, needle) {
			matches = append(matches, v)
		}
	}
	return matches, nil
}

// RecoverActive checks that conv's active voice still exists and, if it was
// deleted, substitutes the oldest remaining persona and appends a recovery
// switch event to conv. The caller is responsible for saving conv. Returns
// the resolved voice and whether conv was mutated.
//
// This is the read-path counterpart of the reasoning-driven switch: it never
// runs inside a turn execution.
func (r *Registry) RecoverActive(ctx context.Context, conv *types.Conversation) (*types.Voice, bool, error) {
	v, err := r.Get(ctx, conv.ActiveVoiceID)
	if err == nil {
		return v, false, nil
	}
	if !core.IsKind(err, core.ErrNotFound) {
		return nil, false, err
	}

	all, err := r.List(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(all) == 0 {
		return nil, false, core.NewNotFoundError("no voices available for recovery")
	}
	fallback := all[0]

	r.logger.Warn("active voice missing, substituting fallback",
		"conversation_id", conv.ID,
		"missing_voice_id", conv.ActiveVoiceID,
		"fallback_voice_id", fallback.ID,
		"fallback_voice_name", fallback.Name)

	conv.Entries = append(conv.Entries, types.SwitchEntry{
		Type:        "voice_switch",
		Kind:        types.SwitchKindRecovery,
		FromVoiceID: conv.ActiveVoiceID,
		ToVoiceID:   fallback.ID,
		ToVoiceName: fallback.Name,
		CreatedAt:   time.Now().UTC(),
	})
	conv.ActiveVoiceID = fallback.ID
	conv.UpdatedAt = time.Now().UTC()
	return fallback, true, nil
}
