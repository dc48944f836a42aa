package distance

import (
	"context"
	"fmt"
)

// Source 矩阵数据源（CSV、数据库等）
type Source interface {
	Load(ctx context.Context, businessLine string) (*Matrix, error)
}

// SnapshotStore 矩阵快照存储（如 Redis），位于数据源之前
type SnapshotStore interface {
	Get(ctx context.Context, businessLine string) (*Matrix, bool, error)
	Put(ctx context.Context, m *Matrix) error
}

// StaticSource 内存数据源
type StaticSource map[string]*Matrix

// Load 实现 Source
func (s StaticSource) Load(_ context.Context, businessLine string) (*Matrix, error) {
	m, ok := s[businessLine]
	if !ok {
		return nil, fmt.Errorf("业务线 %q 无距离矩阵", businessLine)
	}
	return m, nil
}
