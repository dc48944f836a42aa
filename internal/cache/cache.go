// Package cache 提供基于 Redis 的距离矩阵快照缓存
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paiban/visitplan/internal/config"
	"github.com/paiban/visitplan/pkg/distance"
	"github.com/paiban/visitplan/pkg/errors"
)

// keyPrefix 快照键前缀
const keyPrefix = "visitplan:distance:"

// KV 键值存储
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisKV Redis 实现
type RedisKV struct {
	client *redis.Client
}

// NewRedisClient 创建 Redis 客户端并测试连接
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.CodeCacheError, "连接 Redis 失败")
	}
	return client, nil
}

// NewRedisKV 包装 Redis 客户端
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Get 读取键，不存在时 ok=false
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取缓存失败: %w", err)
	}
	return b, true, nil
}

// Set 写入键
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return nil
}

// SnapshotStore 距离矩阵快照，实现 distance.SnapshotStore
type SnapshotStore struct {
	kv  KV
	ttl time.Duration
}

// NewSnapshotStore 创建快照存储
func NewSnapshotStore(kv KV, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{kv: kv, ttl: ttl}
}

// Key 业务线快照键
func Key(businessLine string) string {
	return keyPrefix + strings.ReplaceAll(strings.ToLower(businessLine), " ", "_")
}

// Get 读取快照
func (s *SnapshotStore) Get(ctx context.Context, businessLine string) (*distance.Matrix, bool, error) {
	raw, ok, err := s.kv.Get(ctx, Key(businessLine))
	if err != nil || !ok {
		return nil, false, err
	}
	var m distance.Matrix
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false, fmt.Errorf("解析距离快照失败: %w", err)
	}
	return &m, true, nil
}

// Put 写入快照，NaN 与无穷值不写入
func (s *SnapshotStore) Put(ctx context.Context, m *distance.Matrix) error {
	snapshot := distance.Matrix{
		BusinessLine:       m.BusinessLine,
		Source:             m.Source,
		HomeToFacility:     finite(m.HomeToFacility),
		FacilityToFacility: finite(m.FacilityToFacility),
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化距离快照失败: %w", err)
	}
	return s.kv.Set(ctx, Key(m.BusinessLine), raw, s.ttl)
}

func finite(in map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(in))
	for from, row := range in {
		cp := make(map[string]float64, len(row))
		for to, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			cp[to] = v
		}
		out[from] = cp
	}
	return out
}
