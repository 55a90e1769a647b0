package pipeline

import (
	"testing"
	"time"

	"github.com/echolabs-ai/echotwin/pkg/core/types"
)

func TestLookupPriorReplaysCompletedTurn(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	conv := testConversation("c1")
	conv.Entries = []types.Entry{
		types.UserEntry{Type: "user", TurnID: "t1", Text: "hi", CreatedAt: now},
		types.AssistantEntry{Type: "assistant", TurnID: "t1", Text: "hello", AudioBlobID: "b1", CreatedAt: now},
		types.SwitchEntry{Type: "voice_switch", TurnID: "t1", Kind: types.SwitchKindSignal, ToVoiceID: "v-didi", CreatedAt: now},
		types.UserEntry{Type: "user", TurnID: "t2", Text: "again", CreatedAt: now},
		types.AssistantEntry{Type: "assistant", TurnID: "t2", Text: "sure", AudioBlobID: "b2", CreatedAt: now},
	}

	result, ok := lookupPrior(conv, "t1")
	if !ok {
		t.Fatal("expected a prior result for t1")
	}
	if !result.Replayed {
		t.Error("result not marked replayed")
	}
	if result.User.Text != "hi" || result.Assistant.AudioBlobID != "b1" {
		t.Errorf("wrong entries replayed: %+v", result)
	}
	if result.Switch == nil || result.Switch.ToVoiceID != "v-didi" {
		t.Errorf("switch entry not replayed: %+v", result.Switch)
	}

	result, ok = lookupPrior(conv, "t2")
	if !ok {
		t.Fatal("expected a prior result for t2")
	}
	if result.Switch != nil {
		t.Errorf("t2 has no switch, got %+v", result.Switch)
	}
}

func TestLookupPriorRequiresBothEntries(t *testing.T) {
	conv := testConversation("c1")
	conv.Entries = []types.Entry{
		types.UserEntry{Type: "user", TurnID: "t1", Text: "hi"},
	}

	if _, ok := lookupPrior(conv, "t1"); ok {
		t.Error("user entry alone must not count as a completed turn")
	}
	if _, ok := lookupPrior(conv, "missing"); ok {
		t.Error("unknown turn id must not match")
	}
	if _, ok := lookupPrior(conv, ""); ok {
		t.Error("empty turn id must not match")
	}
}
