package editor

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	pkgredis "github.com/sublimart/studio/internal/pkg/redis"
)

// Store persists editor sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, s *Session) error
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
}

func sessionKey(id string) string  { return pkgredis.Key("editor", "session", id) }
func userIndexKey(uid string) string { return pkgredis.Key("editor", "user", uid) }

// RedisStore keeps each session as one JSON value with a sliding TTL and
// indexes session ids per user in a sorted set scored by expiry.
type RedisStore struct {
	rc *pkgredis.Client
}

func NewRedisStore(rc *pkgredis.Client) *RedisStore { return &RedisStore{rc: rc} }

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := r.rc.GetJSON(ctx, sessionKey(id), &s); err != nil {
		if errors.Is(err, pkgredis.ErrNil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session, ttl time.Duration) error {
	if err := r.rc.SetJSON(ctx, sessionKey(s.ID), s, ttl); err != nil {
		return err
	}
	idx := userIndexKey(s.UserID)
	pipe := r.rc.Raw().TxPipeline()
	pipe.ZAdd(ctx, idx, redis.Z{Score: float64(time.Now().Add(ttl).Unix()), Member: s.ID})
	pipe.ZRemRangeByScore(ctx, idx, "-inf", unixScore(time.Now()))
	pipe.Expire(ctx, idx, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Delete(ctx context.Context, s *Session) error {
	pipe := r.rc.Raw().TxPipeline()
	pipe.Del(ctx, sessionKey(s.ID))
	pipe.ZRem(ctx, userIndexKey(s.UserID), s.ID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := r.rc.Raw().ZRevRangeByScore(ctx, userIndexKey(userID), &redis.ZRangeBy{
		Min: unixScore(time.Now()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func unixScore(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }

// MemoryStore is a process-local Store for tests and single-node setups
// without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data    []byte
	userID  string
	expires time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok && !m.now().Before(e.expires) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decodeSession(e.data)
}

func (m *MemoryStore) Put(_ context.Context, s *Session, ttl time.Duration) error {
	data, err := encodeSession(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = memoryEntry{data: data, userID: s.UserID, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, s.ID)
	return nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	m.mu.Lock()
	var ids []string
	for id, e := range m.entries {
		if e.userID == userID && m.now().Before(e.expires) {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if s, err := m.Get(ctx, id); err == nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
