package cache

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/visitplan/pkg/distance"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]time.Duration
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte), ttl: make(map[string]time.Duration)}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl[key] = ttl
	return nil
}

func TestKey(t *testing.T) {
	assert.Equal(t, "visitplan:distance:wisconsin_geriatrics", Key("Wisconsin Geriatrics"))
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	kv := newMemoryKV()
	store := NewSnapshotStore(kv, time.Hour)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "Florida Geriatrics")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, &distance.Matrix{
		BusinessLine:       "Florida Geriatrics",
		Source:             "csv",
		HomeToFacility:     map[string]map[string]float64{"P1": {"F1": 0.5, "F2": math.NaN()}},
		FacilityToFacility: map[string]map[string]float64{"F1": {"F2": math.Inf(1)}},
	}))
	assert.Equal(t, time.Hour, kv.ttl[Key("Florida Geriatrics")])

	m, ok, err := store.Get(ctx, "Florida Geriatrics")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.5, m.HomeToFacility["P1"]["F1"])
	_, present := m.HomeToFacility["P1"]["F2"]
	assert.False(t, present, "NaN 不写入快照")
	assert.Empty(t, m.FacilityToFacility["F1"])
}

func TestSnapshotStore_CorruptSnapshot(t *testing.T) {
	kv := newMemoryKV()
	kv.data[Key("X")] = []byte("{not json")
	_, ok, err := NewSnapshotStore(kv, 0).Get(context.Background(), "X")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSnapshotStore_WithDistanceCache(t *testing.T) {
	kv := newMemoryKV()
	store := NewSnapshotStore(kv, time.Minute)
	source := distance.StaticSource{
		"Wisconsin Geriatrics": {HomeToFacility: map[string]map[string]float64{"P1": {"F1": 1}}},
	}
	ctx := context.Background()

	repo, err := distance.NewCache(source, distance.WithSnapshotStore(store)).Get(ctx, "Wisconsin Geriatrics")
	require.NoError(t, err)
	assert.Equal(t, 1.0, repo.HomeToFacility("P1", "F1"))

	// 新进程的缓存直接命中快照
	var layers []string
	cache := distance.NewCache(distance.StaticSource{}, distance.WithSnapshotStore(store),
		distance.WithObserver(func(_, layer string, hit bool) {
			if hit {
				layers = append(layers, layer)
			}
		}))
	repo, err = cache.Get(ctx, "Wisconsin Geriatrics")
	require.NoError(t, err)
	assert.Equal(t, 1.0, repo.HomeToFacility("P1", "F1"))
	assert.Equal(t, []string{"snapshot"}, layers)
}

func TestRedisKV_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	_, ok, err := NewRedisKV(client).Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, NewRedisKV(client).Set(context.Background(), "k", []byte("v"), time.Second))
}
