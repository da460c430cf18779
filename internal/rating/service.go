package rating

//go:generate mockgen -destination=./service_mock_test.go -package=rating -source=service.go

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chatdesk/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrInvalidScore is returned for scores outside 1..5.
	ErrInvalidScore = errors.New("score must be between 1 and 5")
	// ErrMessageNotFound is returned when the conversation has no such message.
	ErrMessageNotFound = errors.New("message not found")
)

// ConversationStore is the slice of the conversation service ratings need.
type ConversationStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	Save(ctx context.Context, conv *domain.Conversation) error
}

// SubmitRequest is one user rating of an assistant message.
type SubmitRequest struct {
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	Score          int
	Feedback       string
}

// Service defines the rating operations.
type Service interface {
	SubmitRating(ctx context.Context, req SubmitRequest) (*domain.Rating, error)
	ListRatings(ctx context.Context, conversationID uuid.UUID) ([]*domain.Rating, error)
}

type service struct {
	repo  Repository
	store ConversationStore
}

// NewService wires the rating service. repo may be nil, in which case
// ratings live only on the rated message.
func NewService(repo Repository, store ConversationStore) Service {
	return &service{
		repo:  repo,
		store: store,
	}
}

// SubmitRating records the rating and copies the score onto the message.
func (s *service) SubmitRating(ctx context.Context, req SubmitRequest) (*domain.Rating, error) {
	if req.Score < 1 || req.Score > 5 {
		return nil, ErrInvalidScore
	}

	conv, err := s.store.Get(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("could not load conversation: %w", err)
	}
	idx := -1
	for i := range conv.Messages {
		if conv.Messages[i].ID == req.MessageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrMessageNotFound
	}

	rating := &domain.Rating{
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		Score:          req.Score,
		Feedback:       req.Feedback,
		CreatedAt:      time.Now().UTC(),
	}
	if s.repo != nil {
		if err := s.repo.CreateRating(ctx, rating); err != nil {
			return nil, fmt.Errorf("could not save rating: %w", err)
		}
	}

	msg := &conv.Messages[idx]
	if msg.Data == nil {
		msg.Data = &domain.MessageData{}
	}
	score := req.Score
	msg.Data.Rating = &score
	if err := s.store.Save(ctx, conv); err != nil {
		if s.repo == nil {
			return nil, fmt.Errorf("could not save rating: %w", err)
		}
		// The stored rating is authoritative.
		slog.Warn("rating_message_copy_failed",
			"conversation_id", req.ConversationID,
			"message_id", req.MessageID,
			"error", err,
		)
	}
	return rating, nil
}

// ListRatings returns the stored ratings for a conversation.
func (s *service) ListRatings(ctx context.Context, conversationID uuid.UUID) ([]*domain.Rating, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.ListByConversation(ctx, conversationID)
}
