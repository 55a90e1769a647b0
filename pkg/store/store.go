// Package store defines the persistence interfaces for conversation and
// voice records and for synthesized-audio blobs, with file, PostgreSQL, and
// NATS JetStream backends.
package store

import (
	"context"
	"errors"
	"io"

	"github.com/echolabs-ai/echotwin/pkg/core/types"
)

// ErrNotFound is returned when a record or blob does not exist.
var ErrNotFound = errors.New("not found")

// ConversationStore persists conversation records as whole-record documents:
// read the entire record, mutate in memory, write the entire record back.
// Save must replace atomically so a concurrent reader never observes a
// partially-written record.
type ConversationStore interface {
	Load(ctx context.Context, id string) (*types.Conversation, error)
	Save(ctx context.Context, conv *types.Conversation) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*types.Conversation, error)
}

// VoiceStore persists voice persona records with the same whole-record
// replace-on-write discipline.
type VoiceStore interface {
	Load(ctx context.Context, id string) (*types.Voice, error)
	Save(ctx context.Context, v *types.Voice) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*types.Voice, error)
}

// BlobStore persists opaque audio blobs keyed by conversation and blob id.
// Contents are streamed, not loaded whole.
type BlobStore interface {
	Put(ctx context.Context, conversationID, blobID string, r io.Reader) error
	Open(ctx context.Context, conversationID, blobID string) (io.ReadCloser, error)
	Delete(ctx context.Context, conversationID, blobID string) error

	// DeleteAll removes every blob belonging to a conversation. Used when a
	// conversation is deleted.
	DeleteAll(ctx context.Context, conversationID string) error
}
