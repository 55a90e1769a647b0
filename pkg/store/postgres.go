package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/echolabs-ai/echotwin/pkg/core/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PGStore provides conversation and voice record stores backed by PostgreSQL.
// Records keep the whole-record replace-on-write discipline: Save upserts the
// entire row, entries included, in one statement.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to PostgreSQL and verifies the connection.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Migrate applies embedded goose migrations.
func (s *PGStore) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

// Conversations returns the conversation record store.
func (s *PGStore) Conversations() ConversationStore {
	return &pgConversationStore{pool: s.pool}
}

// Voices returns the voice record store.
func (s *PGStore) Voices() VoiceStore {
	return &pgVoiceStore{pool: s.pool}
}

type pgConversationStore struct {
	pool *pgxpool.Pool
}

func (s *pgConversationStore) Load(ctx context.Context, id string) (*types.Conversation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, active_voice_id, created_at, updated_at, entries
		 FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (s *pgConversationStore) Save(ctx context.Context, conv *types.Conversation) error {
	entries, err := json.Marshal(conv.Entries)
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (id, title, active_voice_id, created_at, updated_at, entries)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title,
		   active_voice_id = EXCLUDED.active_voice_id,
		   updated_at = EXCLUDED.updated_at,
		   entries = EXCLUDED.entries`,
		conv.ID, conv.Title, conv.ActiveVoiceID, conv.CreatedAt, conv.UpdatedAt, entries)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (s *pgConversationStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgConversationStore) List(ctx context.Context) ([]*types.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, active_voice_id, created_at, updated_at, entries
		 FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []*types.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*types.Conversation, error) {
	var conv types.Conversation
	var entries []byte
	err := row.Scan(&conv.ID, &conv.Title, &conv.ActiveVoiceID, &conv.CreatedAt, &conv.UpdatedAt, &entries)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	if len(entries) > 0 {
		conv.Entries, err = types.UnmarshalEntries(entries)
		if err != nil {
			return nil, fmt.Errorf("decode entries: %w", err)
		}
	}
	return &conv, nil
}

type pgVoiceStore struct {
	pool *pgxpool.Pool
}

func (s *pgVoiceStore) Load(ctx context.Context, id string) (*types.Voice, error) {
	var v types.Voice
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, instructions, synthesis_handle, created_at
		 FROM voices WHERE id = $1`, id).
		Scan(&v.ID, &v.Name, &v.Instructions, &v.SynthesisHandle, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load voice: %w", err)
	}
	return &v, nil
}

func (s *pgVoiceStore) Save(ctx context.Context, v *types.Voice) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO voices (id, name, instructions, synthesis_handle, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   instructions = EXCLUDED.instructions,
		   synthesis_handle = EXCLUDED.synthesis_handle`,
		v.ID, v.Name, v.Instructions, v.SynthesisHandle, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("save voice: %w", err)
	}
	return nil
}

func (s *pgVoiceStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM voices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete voice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgVoiceStore) List(ctx context.Context) ([]*types.Voice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, instructions, synthesis_handle, created_at
		 FROM voices ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer rows.Close()

	var out []*types.Voice
	for rows.Next() {
		var v types.Voice
		if err := rows.Scan(&v.ID, &v.Name, &v.Instructions, &v.SynthesisHandle, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan voice: %w", err)
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	return out, nil
}
