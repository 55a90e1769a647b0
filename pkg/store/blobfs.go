package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FSBlobStore stores audio blobs on the local filesystem:
//
//	<dir>/blobs/<conversation_id>/<blob_id>
//
// Writes go through a temp file and rename so a reader never opens a
// half-written blob.
type FSBlobStore struct {
	dir string
}

// NewFSBlobStore creates the blob directory if needed.
func NewFSBlobStore(dir string) (*FSBlobStore, error) {
	root := filepath.Join(dir, "blobs")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSBlobStore{dir: root}, nil
}

func (s *FSBlobStore) blobPath(conversationID, blobID string) string {
	return filepath.Join(s.dir, filepath.Base(conversationID), filepath.Base(blobID))
}

// Put streams r into the blob.
func (s *FSBlobStore) Put(ctx context.Context, conversationID, blobID string, r io.Reader) error {
	convDir := filepath.Join(s.dir, filepath.Base(conversationID))
	if err := os.MkdirAll(convDir, 0o755); err != nil {
		return fmt.Errorf("create conversation blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(convDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, s.blobPath(conversationID, blobID)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace blob: %w", err)
	}
	return nil
}

// Open returns a streaming reader over the blob.
func (s *FSBlobStore) Open(ctx context.Context, conversationID, blobID string) (io.ReadCloser, error) {
	f, err := os.Open(s.blobPath(conversationID, blobID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Delete removes a single blob.
func (s *FSBlobStore) Delete(ctx context.Context, conversationID, blobID string) error {
	if err := os.Remove(s.blobPath(conversationID, blobID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// DeleteAll removes every blob belonging to the conversation.
func (s *FSBlobStore) DeleteAll(ctx context.Context, conversationID string) error {
	dir := filepath.Join(s.dir, filepath.Base(conversationID))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete conversation blobs: %w", err)
	}
	return nil
}
