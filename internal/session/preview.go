// Package session keeps short-lived per-session state in Redis.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"oncohub.org/internal/access"
)

const keyPrefix = "oncohub:view-as:"

// PreviewStore stores the admin "view as role" choice keyed by session id.
type PreviewStore struct {
	client *redis.Client
}

var _ access.PreviewStore = (*PreviewStore)(nil)

func NewPreviewStore(client *redis.Client) (*PreviewStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &PreviewStore{client: client}, nil
}

func key(sessionID string) string { return keyPrefix + sessionID }

func (s *PreviewStore) SetPreview(ctx context.Context, sessionID string, role access.PlatformRole, ttl time.Duration) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return access.ErrNotAuthenticated
	}
	if !role.Valid() {
		return &access.ValidationError{Msg: "invalid role " + string(role)}
	}
	if ttl <= 0 {
		return &access.ValidationError{Msg: "preview ttl must be positive"}
	}
	return s.client.Set(ctx, key(sessionID), string(role), ttl).Err()
}

// Preview returns the previewed role. Entries holding an unknown role are
// ignored.
func (s *PreviewStore) Preview(ctx context.Context, sessionID string) (access.PlatformRole, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", false, nil
	}
	raw, err := s.client.Get(ctx, key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	role, err := access.ParseRole(raw)
	if err != nil {
		return "", false, nil
	}
	return role, true, nil
}

func (s *PreviewStore) ClearPreview(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	return s.client.Del(ctx, key(sessionID)).Err()
}

// Ping reports whether Redis answers; the API readiness check calls it.
func (s *PreviewStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
