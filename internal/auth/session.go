package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NatesHonor/apisite/internal/models"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "sess:"

// SessionData is the payload stored in Redis for a live session.
type SessionData struct {
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	LastSeen  time.Time   `json:"last_seen"`
}

// SessionStore is a shared, TTL-backed mapping from session identifier to
// session payload. Every server process sees the same state, and expiry is
// handled by Redis key TTLs.
type SessionStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	sliding bool
}

// NewSessionStore creates a SessionStore with the given TTL policy.
func NewSessionStore(rdb *redis.Client, ttl time.Duration, sliding bool) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl, sliding: sliding}
}

// Create issues a new session for the principal and returns its identifier.
func (s *SessionStore) Create(ctx context.Context, principal *Principal) (string, error) {
	id, err := generateSessionID()
	if err != nil {
		return "", err
	}

	now := time.Now()
	data := SessionData{
		UserID:    principal.ID,
		Username:  principal.Username,
		Email:     principal.Email,
		Role:      principal.Role,
		CreatedAt: now,
		LastSeen:  now,
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	if err := s.rdb.Set(ctx, sessionKeyPrefix+id, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	return id, nil
}

// Load returns the session payload for id, or nil when the session is
// absent or expired. Callers treat nil identically to "not authenticated".
func (s *SessionStore) Load(ctx context.Context, id string) (*SessionData, error) {
	payload, err := s.rdb.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	var data SessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		// A corrupt payload is as good as no session.
		return nil, nil
	}
	return &data, nil
}

// Touch refreshes the session's last-access time and, when the store uses
// sliding expiry, pushes the TTL forward. A no-op for fixed-TTL stores.
func (s *SessionStore) Touch(ctx context.Context, id string) error {
	if !s.sliding {
		return nil
	}

	data, err := s.Load(ctx, id)
	if err != nil || data == nil {
		return err
	}

	data.LastSeen = time.Now()
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if err := s.rdb.Set(ctx, sessionKeyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return nil
}

// Destroy removes the session. Destroying a non-existent session is not
// an error.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	return nil
}

// generateSessionID generates a random opaque session identifier.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
