package optimizer

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// IslandOptimizer 岛屿模型并行优化器
// 多个种子在方案副本上独立搜索，取惩罚最小者（并列取编号小的）
type IslandOptimizer struct {
	config      *OptimizationConfig
	manager     *constraint.Manager
	islandCount int
}

// NewIslandOptimizer 创建岛屿模型优化器
func NewIslandOptimizer(config *OptimizationConfig, cm *constraint.Manager) *IslandOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	count := config.ParallelWorkers
	if count < 1 {
		count = 1
	}
	return &IslandOptimizer{
		config:      config,
		manager:     cm,
		islandCount: count,
	}
}

// Island 岛屿（独立搜索）
type Island struct {
	ID      int
	Context *constraint.Context
	Outcome *Outcome
	Err     error
}

// Optimize 并行运行各岛屿，把最优方案写回 schedCtx
func (io *IslandOptimizer) Optimize(ctx context.Context, schedCtx *constraint.Context) (*Outcome, error) {
	if io.islandCount == 1 {
		return NewLocalSearchOptimizer(io.config, io.manager).Optimize(ctx, schedCtx)
	}

	islands := make([]*Island, io.islandCount)
	for i := range islands {
		islands[i] = &Island{ID: i, Context: schedCtx.Clone()}
	}

	var wg sync.WaitGroup
	for _, island := range islands {
		wg.Add(1)
		go func(island *Island) {
			defer wg.Done()
			cfg := *io.config
			cfg.Seed = io.config.Seed + int64(island.ID)
			island.Outcome, island.Err = NewLocalSearchOptimizer(&cfg, io.manager).Optimize(ctx, island.Context)
		}(island)
	}
	wg.Wait()

	best := islands[0]
	for _, island := range islands[1:] {
		if island.Outcome.FinalPenalty < best.Outcome.FinalPenalty {
			best = island
		}
	}
	schedCtx.SetPlan(best.Context.Plan)

	log.Debug().
		Str("provider_id", schedCtx.ProviderID).
		Int("islands", io.islandCount).
		Int("best_island", best.ID).
		Float64("best_penalty", best.Outcome.FinalPenalty).
		Msg("岛屿模型优化完成")

	return best.Outcome, best.Err
}
