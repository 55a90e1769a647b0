package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/echolabs-ai/echotwin/pkg/core/types"
)

func TestFileStoreConversationRoundtrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	convs := fs.Conversations()
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	conv := &types.Conversation{
		ID:            "c1",
		Title:         "Weekend plans",
		ActiveVoiceID: "v-ada",
		CreatedAt:     now,
		UpdatedAt:     now,
		Entries: []types.Entry{
			types.UserEntry{Type: "user", TurnID: "t1", Text: "hi", CreatedAt: now},
			types.AssistantEntry{Type: "assistant", TurnID: "t1", Text: "hello", AudioBlobID: "b1", CreatedAt: now},
			types.SwitchEntry{Type: "voice_switch", TurnID: "t1", Kind: types.SwitchKindSignal, FromVoiceID: "v-ada", ToVoiceID: "v-didi", CreatedAt: now},
		},
	}
	if err := convs.Save(ctx, conv); err != nil {
		t.Fatal(err)
	}

	got, err := convs.Load(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Weekend plans" || got.ActiveVoiceID != "v-ada" {
		t.Errorf("loaded %+v", got)
	}
	if len(got.Entries) != 3 {
		t.Fatalf("loaded %d entries, want 3", len(got.Entries))
	}
	if _, ok := got.Entries[0].(types.UserEntry); !ok {
		t.Errorf("entry 0 is %T, want UserEntry", got.Entries[0])
	}
	if _, ok := got.Entries[1].(types.AssistantEntry); !ok {
		t.Errorf("entry 1 is %T, want AssistantEntry", got.Entries[1])
	}
	se, ok := got.Entries[2].(types.SwitchEntry)
	if !ok {
		t.Fatalf("entry 2 is %T, want SwitchEntry", got.Entries[2])
	}
	if se.Kind != types.SwitchKindSignal || se.ToVoiceID != "v-didi" {
		t.Errorf("switch entry = %+v", se)
	}
}

func TestFileStoreNotFound(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := fs.Conversations().Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("load: got %v, want ErrNotFound", err)
	}
	if err := fs.Conversations().Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: got %v, want ErrNotFound", err)
	}
	if _, err := fs.Voices().Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("voice load: got %v, want ErrNotFound", err)
	}
}

func TestFileStoreSaveReplacesWithoutTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	convs := fs.Conversations()
	ctx := context.Background()

	conv := &types.Conversation{ID: "c1", Title: "first"}
	if err := convs.Save(ctx, conv); err != nil {
		t.Fatal(err)
	}
	conv.Title = "second"
	if err := convs.Save(ctx, conv); err != nil {
		t.Fatal(err)
	}

	got, err := convs.Load(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "second" {
		t.Errorf("title = %q", got.Title)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "conversations"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("leftover files after replace: %v", names)
	}
}

func TestFileStoreListOrdering(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		conv := &types.Conversation{ID: id, UpdatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := fs.Conversations().Save(ctx, conv); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := fs.Conversations().List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 3 || convs[0].ID != "new" || convs[2].ID != "old" {
		ids := make([]string, len(convs))
		for i, c := range convs {
			ids[i] = c.ID
		}
		t.Errorf("list order = %v, want newest first", ids)
	}

	for i, id := range []string{"b", "a"} {
		v := &types.Voice{ID: id, Name: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := fs.Voices().Save(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	vs, err := fs.Voices().List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 2 || vs[0].ID != "b" {
		t.Errorf("voices not oldest first: %+v", vs)
	}
}

func TestRecordPathRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	got := recordPath(filepath.Join(dir, "conversations"), "../../etc/passwd")
	if filepath.Dir(got) != filepath.Join(dir, "conversations") {
		t.Errorf("traversal escaped the record dir: %q", got)
	}
}
