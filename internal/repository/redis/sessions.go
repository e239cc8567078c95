package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository"
)

const defaultSessionPrefix = "admin:sess"

// insertSessionScript stores the session only when the id is free and indexes it under its admin.
var insertSessionScript = red.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
local ttl = redis.call('PTTL', KEYS[2])
if ttl < tonumber(ARGV[2]) then
  redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
return 1
`)

// destroyAdminSessionsScript deletes every indexed session of one admin in a single step.
var destroyAdminSessionsScript = red.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
  redis.call('DEL', ARGV[1] .. id)
end
redis.call('DEL', KEYS[1])
return ids
`)

// SessionStore keeps sessions as JSON values with a TTL equal to their remaining lifetime.
// Each admin has a set of session ids so all of them can be destroyed at once.
type SessionStore struct {
	client *red.Client
	prefix string
}

// NewSessionStore constructs a Redis-backed session store.
func NewSessionStore(client *red.Client, keyPrefix string) *SessionStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	return &SessionStore{client: client, prefix: prefix}
}

// Insert stores a new session unless the id is already live.
func (s *SessionStore) Insert(ctx context.Context, session domain.Session) error {
	if strings.TrimSpace(session.ID) == "" || strings.TrimSpace(session.AdminUserID) == "" {
		return errors.New("session id and admin user id are required")
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	keys := []string{s.sessionKey(session.ID), s.adminKey(session.AdminUserID)}
	inserted, err := insertSessionScript.Run(ctx, s.client, keys, payload, ttl.Milliseconds(), session.ID).Int()
	if err != nil {
		return fmt.Errorf("redis insert session: %w", err)
	}
	if inserted == 0 {
		return repository.ErrConflict
	}
	return nil
}

// Get loads a live session.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, repository.ErrNotFound
	}

	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes a session and its index entry.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var deleted *red.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe red.Pipeliner) error {
		deleted = pipe.Del(ctx, s.sessionKey(sessionID))
		pipe.SRem(ctx, s.adminKey(session.AdminUserID), sessionID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis delete session: %w", err)
	}
	return deleted.Val() > 0, nil
}

// DeleteAllForAdmin removes every session indexed under the admin.
func (s *SessionStore) DeleteAllForAdmin(ctx context.Context, adminUserID string) ([]string, error) {
	if strings.TrimSpace(adminUserID) == "" {
		return nil, errors.New("admin user id is required")
	}

	ids, err := destroyAdminSessionsScript.Run(ctx, s.client, []string{s.adminKey(adminUserID)}, s.sessionKey("")).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("redis delete admin sessions: %w", err)
	}
	return ids, nil
}

// ListByAdmin returns the admin's live sessions and prunes index entries whose session expired.
func (s *SessionStore) ListByAdmin(ctx context.Context, adminUserID string) ([]domain.Session, error) {
	adminKey := s.adminKey(adminUserID)
	ids, err := s.client.SMembers(ctx, adminKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list admin sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load admin sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(values))
	stale := make([]any, 0)
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var session domain.Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, adminKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis prune admin sessions: %w", err)
		}
	}
	return sessions, nil
}

// SweepExpired prunes admin index entries that point at sessions Redis already expired.
func (s *SessionStore) SweepExpired(ctx context.Context, _ time.Time) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.adminKey("*"), 200).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan admin sessions: %w", err)
		}
		for _, adminKey := range keys {
			ids, err := s.client.SMembers(ctx, adminKey).Result()
			if err != nil {
				return removed, fmt.Errorf("redis list admin sessions: %w", err)
			}
			for _, id := range ids {
				exists, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
				if err != nil {
					return removed, fmt.Errorf("redis check session: %w", err)
				}
				if exists == 0 {
					if err := s.client.SRem(ctx, adminKey, id).Err(); err != nil {
						return removed, fmt.Errorf("redis prune admin sessions: %w", err)
					}
					removed++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:id:%s", s.prefix, strings.TrimSpace(sessionID))
}

func (s *SessionStore) adminKey(adminUserID string) string {
	return fmt.Sprintf("%s:admin:%s", s.prefix, strings.TrimSpace(adminUserID))
}

var _ port.SessionStore = (*SessionStore)(nil)
