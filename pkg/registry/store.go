package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"cryptoagg/pkg/market"
)

// Snapshot is one complete venue listing.
type Snapshot struct {
	Pairs     map[market.Asset]string `json:"pairs"`
	FetchedAt time.Time               `json:"fetched_at"`
}

type Store interface {
	Get(ctx context.Context, venue string) (Snapshot, bool, error)
	Put(ctx context.Context, venue string, snap Snapshot, ttl time.Duration) error
}

type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]Snapshot)}
}

func (m *MemoryStore) Get(_ context.Context, venue string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[venue]
	return snap, ok, nil
}

// Put ignores ttl; the registry checks snapshot age itself.
func (m *MemoryStore) Put(_ context.Context, venue string, snap Snapshot, _ time.Duration) error {
	snap.Pairs = maps.Clone(snap.Pairs)
	m.mu.Lock()
	m.snaps[venue] = snap
	m.mu.Unlock()
	return nil
}

// RedisStore shares listings between processes under assets:<venue>.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects and pings before returning the store.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return NewRedisStore(client), nil
}

func redisKey(venue string) string { return "assets:" + venue }

func (s *RedisStore) Get(ctx context.Context, venue string) (Snapshot, bool, error) {
	data, err := s.client.Get(ctx, redisKey(venue)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode %s: %w", redisKey(venue), err)
	}
	return snap, true, nil
}

// Put stores the snapshot; a zero ttl means no expiry.
func (s *RedisStore) Put(ctx context.Context, venue string, snap Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(venue), data, ttl).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
