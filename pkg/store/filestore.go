package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/echolabs-ai/echotwin/pkg/core/types"
)

// FileStore keeps conversation and voice records as one JSON document per
// record under a data directory:
//
//	<dir>/conversations/<id>.json
//	<dir>/voices/<id>.json
//
// Save writes to a temp file in the same directory and renames it over the
// target, so readers never observe a partial record.
type FileStore struct {
	dir string
}

// NewFileStore creates the data directory layout if needed.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"conversations", "voices"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// Conversations returns the conversation record store.
func (s *FileStore) Conversations() ConversationStore {
	return &fileConversationStore{dir: filepath.Join(s.dir, "conversations")}
}

// Voices returns the voice record store.
func (s *FileStore) Voices() VoiceStore {
	return &fileVoiceStore{dir: filepath.Join(s.dir, "voices")}
}

type fileConversationStore struct {
	dir string
}

func (s *fileConversationStore) Load(ctx context.Context, id string) (*types.Conversation, error) {
	var conv types.Conversation
	if err := readRecord(recordPath(s.dir, id), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *fileConversationStore) Save(ctx context.Context, conv *types.Conversation) error {
	return writeRecord(recordPath(s.dir, conv.ID), conv)
}

func (s *fileConversationStore) Delete(ctx context.Context, id string) error {
	return deleteRecord(recordPath(s.dir, id))
}

func (s *fileConversationStore) List(ctx context.Context) ([]*types.Conversation, error) {
	ids, err := listRecordIDs(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.Load(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type fileVoiceStore struct {
	dir string
}

func (s *fileVoiceStore) Load(ctx context.Context, id string) (*types.Voice, error) {
	var v types.Voice
	if err := readRecord(recordPath(s.dir, id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *fileVoiceStore) Save(ctx context.Context, v *types.Voice) error {
	return writeRecord(recordPath(s.dir, v.ID), v)
}

func (s *fileVoiceStore) Delete(ctx context.Context, id string) error {
	return deleteRecord(recordPath(s.dir, id))
}

func (s *fileVoiceStore) List(ctx context.Context) ([]*types.Voice, error) {
	ids, err := listRecordIDs(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Voice, 0, len(ids))
	for _, id := range ids {
		v, err := s.Load(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func recordPath(dir, id string) string {
	// Record ids are generated UUIDs; the Base call guards against path
	// traversal from externally-supplied ids.
	return filepath.Join(dir, filepath.Base(id)+".json")
}

func readRecord(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read record %q: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse record %q: %w", path, err)
	}
	return nil
}

func writeRecord(path string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace record %q: %w", path, err)
	}
	return nil
}

func deleteRecord(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete record %q: %w", path, err)
	}
	return nil
}

func listRecordIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
