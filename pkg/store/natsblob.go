package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSBlobStore stores audio blobs in a NATS JetStream object-store bucket.
// Objects are named "<conversation_id>/<blob_id>" so a conversation's blobs
// can be enumerated by prefix.
type NATSBlobStore struct {
	bucket string
	store  nats.ObjectStore
}

// NewNATSBlobStore creates the bucket if needed, or binds to an existing one.
func NewNATSBlobStore(js nats.JetStreamContext, bucket string) (*NATSBlobStore, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:  bucket,
		Storage: nats.FileStorage,
	})
	if err != nil {
		if !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("create object store bucket %q: %w", bucket, err)
		}
		store, err = js.ObjectStore(bucket)
		if err != nil {
			return nil, fmt.Errorf("bind object store bucket %q: %w", bucket, err)
		}
	}
	return &NATSBlobStore{bucket: bucket, store: store}, nil
}

func objectName(conversationID, blobID string) string {
	return conversationID + "/" + blobID
}

// Put streams r into the object store.
func (s *NATSBlobStore) Put(ctx context.Context, conversationID, blobID string, r io.Reader) error {
	_, err := s.store.Put(&nats.ObjectMeta{Name: objectName(conversationID, blobID)}, r)
	if err != nil {
		return fmt.Errorf("put object %q in bucket %q: %w", blobID, s.bucket, err)
	}
	return nil
}

// Open returns a streaming reader over the object.
func (s *NATSBlobStore) Open(ctx context.Context, conversationID, blobID string) (io.ReadCloser, error) {
	obj, err := s.store.Get(objectName(conversationID, blobID))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %q from bucket %q: %w", blobID, s.bucket, err)
	}
	return obj, nil
}

// Delete removes a single object.
func (s *NATSBlobStore) Delete(ctx context.Context, conversationID, blobID string) error {
	if err := s.store.Delete(objectName(conversationID, blobID)); err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete object %q from bucket %q: %w", blobID, s.bucket, err)
	}
	return nil
}

// DeleteAll removes every object under the conversation's prefix.
func (s *NATSBlobStore) DeleteAll(ctx context.Context, conversationID string) error {
	infos, err := s.store.List()
	if err != nil {
		if errors.Is(err, nats.ErrNoObjectsFound) {
			return nil
		}
		return fmt.Errorf("list bucket %q: %w", s.bucket, err)
	}
	prefix := conversationID + "/"
	for _, info := range infos {
		if !strings.HasPrefix(info.Name, prefix) {
			continue
		}
		if err := s.store.Delete(info.Name); err != nil && !errors.Is(err, nats.ErrObjectNotFound) {
			return fmt.Errorf("delete object %q from bucket %q: %w", info.Name, s.bucket, err)
		}
	}
	return nil
}
