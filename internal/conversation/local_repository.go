package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"chatdesk/internal/domain"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"
)

var conversationsBucket = []byte("conversations")

// storedConversation is the on-disk record. Messages are the bulk of a
// conversation so they are kept zstd-compressed next to the plain settings.
type storedConversation struct {
	Conversation       domain.Conversation `json:"conversation"`
	CompressedMessages []byte              `json:"compressedMessages"`
}

// LocalRepository keeps conversations in a single bbolt file on this machine.
type LocalRepository struct {
	db  *bolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewLocalRepository opens (creating if needed) the bbolt file at path.
func NewLocalRepository(path string) (*LocalRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create store directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open local store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not create bucket: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &LocalRepository{db: db, enc: enc, dec: dec}, nil
}

// Close releases the bbolt file lock.
func (lr *LocalRepository) Close() error {
	lr.dec.Close()
	return lr.db.Close()
}

func (lr *LocalRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := lr.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(conversationsBucket).Get([]byte(id.String()))
		if raw == nil {
			return ErrNotFound
		}
		c, err := lr.decode(raw)
		if err != nil {
			return err
		}
		conv = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (lr *LocalRepository) List(ctx context.Context) ([]*domain.Conversation, error) {
	var out []*domain.Conversation
	err := lr.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).ForEach(func(k, v []byte) error {
			c, err := lr.decode(v)
			if err != nil {
				// Skip malformed entries instead of failing the whole load
				return nil
			}
			out = append(out, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("could not list local conversations: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (lr *LocalRepository) Save(ctx context.Context, conv *domain.Conversation) error {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	raw, err := lr.encode(conv)
	if err != nil {
		return err
	}
	return lr.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Put([]byte(conv.ID.String()), raw)
	})
}

func (lr *LocalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return lr.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(conversationsBucket)
		key := []byte(id.String())
		if b.Get(key) == nil {
			return ErrNotFound
		}
		return b.Delete(key)
	})
}

func (lr *LocalRepository) encode(conv *domain.Conversation) ([]byte, error) {
	msgs, err := json.Marshal(conv.Messages)
	if err != nil {
		return nil, fmt.Errorf("could not encode messages: %w", err)
	}
	rec := storedConversation{
		Conversation:       *conv,
		CompressedMessages: lr.enc.EncodeAll(msgs, nil),
	}
	rec.Conversation.Messages = nil
	return json.Marshal(rec)
}

func (lr *LocalRepository) decode(raw []byte) (*domain.Conversation, error) {
	var rec storedConversation
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("could not decode conversation: %w", err)
	}
	msgs, err := lr.dec.DecodeAll(rec.CompressedMessages, nil)
	if err != nil {
		return nil, fmt.Errorf("could not decompress messages: %w", err)
	}
	conv := rec.Conversation
	if err := json.Unmarshal(msgs, &conv.Messages); err != nil {
		return nil, fmt.Errorf("could not decode messages: %w", err)
	}
	return &conv, nil
}
