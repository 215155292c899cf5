package welcome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Greeting is the one-shot state handed out at login: the display name
// for the welcome step and where to send the user afterwards.
type Greeting struct {
	Name     string `json:"name"`
	Redirect string `json:"redirect"`
}

// Store issues single-use welcome tokens. A token is consumed by its
// first read (GETDEL) and expires on its own if never read, so the
// transient state cannot outlive the login that produced it.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Store{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (s *Store) Issue(ctx context.Context, g Greeting) (string, error) {
	payload, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, key(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store greeting: %w", err)
	}
	return token, nil
}

// Consume returns the greeting for a token and deletes it atomically.
// A second call with the same token returns (nil, nil).
func (s *Store) Consume(ctx context.Context, token string) (*Greeting, error) {
	payload, err := s.client.GetDel(ctx, key(token)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume greeting: %w", err)
	}
	var g Greeting
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) Close() error { return s.client.Close() }

func key(token string) string { return "welcome:" + token }
