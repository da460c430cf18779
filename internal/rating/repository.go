package rating

//go:generate mockgen -destination=./repository_mock_test.go -package=rating -source=repository.go Repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatdesk/internal/domain"

	"github.com/google/uuid"
)

// Repository defines the contract for rating storage.
type Repository interface {
	CreateRating(ctx context.Context, rating *domain.Rating) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*domain.Rating, error)
}

// Schema creates the ratings table.
const Schema = `
CREATE TABLE IF NOT EXISTS ratings (
	rating_id       UUID PRIMARY KEY,
	conversation_id UUID NOT NULL,
	message_id      UUID NOT NULL,
	score           SMALLINT NOT NULL CHECK (score BETWEEN 1 AND 5),
	feedback        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
)`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("could not create ratings table: %w", err)
	}
	return nil
}

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository is the constructor for the rating store.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{
		db: db,
	}
}

func (pr *postgresRepository) CreateRating(ctx context.Context, rating *domain.Rating) error {
	rating.RatingID = uuid.New()
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO ratings
			(rating_id, conversation_id, message_id, score, feedback, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6)
	`
	_, err := pr.db.ExecContext(ctx, query,
		rating.RatingID,
		rating.ConversationID,
		rating.MessageID,
		rating.Score,
		rating.Feedback,
		rating.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("could not insert rating: %w", err)
	}
	return nil
}

func (pr *postgresRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*domain.Rating, error) {
	query := `
		SELECT rating_id, conversation_id, message_id, score, feedback, created_at
		FROM ratings
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := pr.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("could not list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []*domain.Rating
	for rows.Next() {
		var r domain.Rating
		if err := rows.Scan(&r.RatingID, &r.ConversationID, &r.MessageID, &r.Score, &r.Feedback, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("could not scan rating: %w", err)
		}
		ratings = append(ratings, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate ratings: %w", err)
	}
	return ratings, nil
}
