package pipeline

import (
	"github.com/echolabs-ai/echotwin/pkg/core/types"
)

// lookupPrior scans the conversation's persisted entries for an already
// completed turn with the given id. When found, the prior user entry,
// assistant entry, and switch event (if any) are returned verbatim so a
// retried submission replays the original outcome without touching any
// provider.
//
// The idempotency invariant: a turn id appears on exactly one user entry and
// exactly one assistant entry, so the first hit per variant is the only hit.
func lookupPrior(conv *types.Conversation, turnID string) (*types.TurnResult, bool) {
	if turnID == "" {
		return nil, false
	}

	var (
		user      *types.UserEntry
		assistant *types.AssistantEntry
		switched  *types.SwitchEntry
	)

	for _, entry := range conv.Entries {
		switch e := entry.(type) {
		case types.UserEntry:
			if e.TurnID == turnID && user == nil {
				user = &e
			}
		case types.AssistantEntry:
			if e.TurnID == turnID && assistant == nil {
				assistant = &e
			}
		case types.SwitchEntry:
			if e.TurnID == turnID && switched == nil {
				switched = &e
			}
		}
	}

	if user == nil || assistant == nil {
		return nil, false
	}

	return &types.TurnResult{
		User:      *user,
		Assistant: *assistant,
		Switch:    switched,
		Replayed:  true,
	}, true
}
