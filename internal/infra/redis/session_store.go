package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"weld-academy-service/internal/app"
	"weld-academy-service/internal/domain"
)

// SessionStore persists quiz sessions as JSON snapshots so any instance can serve them.
// Notes:
//   - Every Save refreshes the TTL; idle sessions expire on their own.
//   - Get returns a fresh *app.Session, so instances race on submit. Saving a finalized
//     snapshot runs under WATCH and fails with domain.ErrSessionFinalized when the stored
//     snapshot is already finalized or changed underneath, so only one submit wins.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, session *app.Session) error {
	snap := session.Snapshot()
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := s.key(snap.ID)
	if snap.State != app.StateFinalized {
		return s.client.Set(ctx, key, raw, s.ttl).Err()
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var stored app.SessionSnapshot
			if json.Unmarshal(prev, &stored) == nil && stored.State == app.StateFinalized {
				return domain.ErrSessionFinalized
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrSessionFinalized
	}
	return err
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*app.Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var snap app.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return app.RestoreSession(snap), nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "placement:session:" + sessionID
}
