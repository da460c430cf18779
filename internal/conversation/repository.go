package conversation

//go:generate mockgen -destination=./repository_mock_test.go -package=conversation -source=repository.go Repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chatdesk/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no store holds the requested conversation.
var ErrNotFound = errors.New("conversation not found")

// Repository defines the contract for a place conversations are kept.
type Repository interface {
	// Get fetches one conversation with all of its messages.
	Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// List fetches every conversation, most recently updated first.
	List(ctx context.Context) ([]*domain.Conversation, error)
	// Save inserts or replaces a conversation.
	Save(ctx context.Context, conv *domain.Conversation) error
	// Delete removes a conversation. Missing ids return ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Schema creates the remote conversations table.
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	conversation_id UUID PRIMARY KEY,
	name            TEXT NOT NULL,
	is_local        BOOLEAN NOT NULL DEFAULT FALSE,
	body            JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
)`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("could not create conversations table: %w", err)
	}
	return nil
}

// postgresRepository keeps cloud conversations in Postgres. The message
// list and settings are stored as one jsonb document next to the columns
// used for listing.
type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository is the constructor for the remote store.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{
		db: db,
	}
}

func (pr *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT body
		FROM conversations
		WHERE conversation_id = $1
	`
	var body []byte
	err := pr.db.QueryRowContext(ctx, query, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not get conversation: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return nil, fmt.Errorf("could not decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

func (pr *postgresRepository) List(ctx context.Context) ([]*domain.Conversation, error) {
	query := `
		SELECT body
		FROM conversations
		ORDER BY updated_at DESC
	`
	rows, err := pr.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query conversations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Conversation
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("could not scan conversation: %w", err)
		}
		var conv domain.Conversation
		if err := json.Unmarshal(body, &conv); err != nil {
			return nil, fmt.Errorf("could not decode conversation: %w", err)
		}
		out = append(out, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}
	return out, nil
}

func (pr *postgresRepository) Save(ctx context.Context, conv *domain.Conversation) error {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("could not encode conversation: %w", err)
	}

	query := `
		INSERT INTO conversations
			(conversation_id, name, is_local, body, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6)
		ON CONFLICT (conversation_id) DO UPDATE SET
			name = EXCLUDED.name,
			is_local = EXCLUDED.is_local,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`
	_, err = pr.db.ExecContext(ctx, query,
		conv.ID,
		conv.Name,
		conv.IsLocal,
		string(body),
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not save conversation: %w", err)
	}
	return nil
}

func (pr *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := pr.db.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id = $1`, id)
	if err != nil {
		return fmt.Errorf("could not delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
