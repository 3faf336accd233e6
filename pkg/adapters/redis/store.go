// Package redis persists checkpoint logs in Redis and provides the
// distributed lock used to serialize turns per thread across replicas.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Store implements ports.CheckpointStore on Redis. Each thread's log is an
// RPUSH-only list of JSON checkpoints; a ZSET index tracks live threads for
// List and lazy expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for thread logs.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for thread logs.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store connecting to the given address.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "cadenza:thread:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) logKey(threadID string) string {
	return s.prefix + threadID + ":log"
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Load returns the latest checkpoint of the thread's log.
func (s *Store) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	val, err := s.client.LIndex(ctx, s.logKey(threadID), -1).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("redis load: %w", err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Append pushes a new checkpoint onto the thread's log. The sequence number
// is the resulting log length, so checkpoints are totally ordered per thread.
func (s *Store) Append(ctx context.Context, threadID string, state *domain.State) (*domain.Checkpoint, error) {
	length, err := s.client.LLen(ctx, s.logKey(threadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis llen: %w", err)
	}

	cp := &domain.Checkpoint{
		ThreadID:  threadID,
		Seq:       length + 1,
		State:     state.Clone(),
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.logKey(threadID), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.logKey(threadID), s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: threadID})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis append: %w", err)
	}
	return cp, nil
}

// Delete removes the thread's log and index entry.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.logKey(threadID))
	pipe.ZRem(ctx, s.indexKey(), threadID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns live thread ids, pruning expired index entries lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("prune expired threads: %w", err)
	}

	threads, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
