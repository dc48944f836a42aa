// Package optimizer 在不降低覆盖的前提下改进初始方案
package optimizer

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	MaxIterations    int     `json:"max_iterations"`    // 最大迭代次数，0 表示只保留构造解
	InitialTemp      float64 `json:"initial_temp"`      // 模拟退火初始温度
	CoolingRate      float64 `json:"cooling_rate"`      // 冷却速率
	TabuSize         int     `json:"tabu_size"`         // 禁忌表大小
	NeighborhoodSize int     `json:"neighborhood_size"` // 每轮候选移动数
	ParallelWorkers  int     `json:"parallel_workers"`  // 岛屿数
	StopOnPlateau    bool    `json:"stop_on_plateau"`   // 平台期停止
	PlateauThreshold int     `json:"plateau_threshold"` // 平台期阈值（无改进迭代次数）
	Seed             int64   `json:"seed"`
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxIterations:    1000,
		InitialTemp:      10.0,
		CoolingRate:      0.995,
		TabuSize:         50,
		NeighborhoodSize: 20,
		ParallelWorkers:  1,
		StopOnPlateau:    true,
		PlateauThreshold: 100,
		Seed:             42,
	}
}

// ConfigForLevel 按优化级别生成配置：1=仅构造, 2=平衡, 3=深度搜索
func ConfigForLevel(level, maxIterations, plateau int, seed int64) *OptimizationConfig {
	cfg := DefaultOptConfig()
	cfg.Seed = seed
	if maxIterations > 0 {
		cfg.MaxIterations = maxIterations
	}
	if plateau > 0 {
		cfg.PlateauThreshold = plateau
	}
	switch {
	case level <= 1:
		cfg.MaxIterations = 0
	case level >= 3:
		cfg.MaxIterations *= 3
		cfg.PlateauThreshold *= 2
		cfg.NeighborhoodSize = 40
		cfg.ParallelWorkers = 4
	}
	return cfg
}

// SeedFor 为某个键派生稳定的随机种子，批量时结果与执行顺序无关
func SeedFor(base int64, key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return base ^ int64(h.Sum64()&math.MaxInt64)
}

// Outcome 优化过程统计
type Outcome struct {
	InitialPenalty float64       `json:"initial_penalty"`
	FinalPenalty   float64       `json:"final_penalty"`
	Iterations     int           `json:"iterations"`
	Accepted       int           `json:"accepted"`
	Improvements   int           `json:"improvements"`
	Duration       time.Duration `json:"duration"`
	TimedOut       bool          `json:"timed_out"`
}

// LocalSearchOptimizer 局部搜索优化器（模拟退火 + 禁忌表）
//
// 所有移动都保持每个机构的患者总数不变，并经 Manager.CanApply 校验硬约束，
// 因此搜索只降低软约束惩罚，不改变覆盖。
type LocalSearchOptimizer struct {
	config    *OptimizationConfig
	manager   *constraint.Manager
	neighbors *NeighborhoodGenerator
	tabuList  *TabuList
	rng       *rand.Rand
	logger    zerolog.Logger
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, cm *constraint.Manager) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	rng := rand.New(rand.NewSource(config.Seed))
	return &LocalSearchOptimizer{
		config:    config,
		manager:   cm,
		neighbors: NewNeighborhoodGenerator(rng),
		tabuList:  NewTabuList(config.TabuSize),
		rng:       rng,
		logger:    log.With().Str("component", "local_search").Logger(),
	}
}

// Optimize 改进 schedCtx.Plan，返回时方案为搜索到的最优解
//
// ctx 到期时保留已找到的最优解并返回 ctx.Err()。
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, schedCtx *constraint.Context) (*Outcome, error) {
	start := time.Now()

	currentScore := o.manager.SoftPenalty(schedCtx)
	bestScore := currentScore
	best := schedCtx.ClonePlan()
	outcome := &Outcome{InitialPenalty: currentScore}

	temperature := o.config.InitialTemp
	noImprovementCount := 0

	o.logger.Debug().
		Str("provider_id", schedCtx.ProviderID).
		Int("max_iterations", o.config.MaxIterations).
		Float64("initial_penalty", currentScore).
		Msg("开始局部搜索优化")

	var err error
	for i := 0; i < o.config.MaxIterations; i++ {
		if bestScore == 0 {
			break
		}
		if err = ctx.Err(); err != nil {
			outcome.TimedOut = true
			break
		}
		outcome.Iterations++

		move, score, key := o.bestNeighbor(schedCtx, bestScore)
		if move == nil {
			noImprovementCount++
		} else {
			accept := false
			if score < currentScore {
				accept = true
			} else {
				prob := boltzmannProbability(score-currentScore, temperature)
				accept = o.rng.Float64() < prob
			}

			if accept {
				schedCtx.Apply(move.Changes)
				currentScore = score
				o.tabuList.Add(key)
				outcome.Accepted++

				if currentScore < bestScore-1e-9 {
					bestScore = currentScore
					best = schedCtx.ClonePlan()
					noImprovementCount = 0
					outcome.Improvements++
				} else {
					noImprovementCount++
				}
			} else {
				noImprovementCount++
			}
		}

		if o.config.StopOnPlateau && noImprovementCount >= o.config.PlateauThreshold {
			o.logger.Debug().Int("iteration", i).Msg("达到平台期阈值，停止优化")
			break
		}

		temperature *= o.config.CoolingRate
	}

	schedCtx.SetPlan(best)
	outcome.FinalPenalty = bestScore
	outcome.Duration = time.Since(start)

	o.logger.Debug().
		Str("provider_id", schedCtx.ProviderID).
		Float64("initial_penalty", outcome.InitialPenalty).
		Float64("final_penalty", outcome.FinalPenalty).
		Int("iterations", outcome.Iterations).
		Dur("elapsed", outcome.Duration).
		Msg("局部搜索优化完成")

	return outcome, err
}

// bestNeighbor 生成一批可行移动，返回惩罚最小的非禁忌移动
//
// 禁忌移动只有在优于全局最优时才被接受。
func (o *LocalSearchOptimizer) bestNeighbor(schedCtx *constraint.Context, bestScore float64) (*Move, float64, uint64) {
	var (
		chosen    *Move
		chosenKey uint64
		score     = math.Inf(1)
	)

	for i := 0; i < o.config.NeighborhoodSize; i++ {
		move := o.neighbors.GenerateMove(schedCtx)
		if move == nil || !o.manager.CanApply(schedCtx, move.Changes) {
			continue
		}

		schedCtx.Apply(move.Changes)
		s := o.manager.SoftPenalty(schedCtx)
		key := hashPlan(schedCtx.Plan)
		schedCtx.Revert(move.Changes)

		if o.tabuList.Contains(key) && s >= bestScore {
			continue
		}
		if s < score {
			chosen, score, chosenKey = move, s, key
		}
	}
	return chosen, score, chosenKey
}

// hashPlan 计算方案的哈希 (使用FNV-1a算法)
func hashPlan(plan [][]int) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for d := range plan {
		for _, n := range plan[d] {
			binary.LittleEndian.PutUint32(buf[:], uint32(n))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// boltzmannProbability 计算模拟退火的接受概率
// delta: 能量差 (new - old)
// temperature: 当前温度
func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1.0
	}
	if temperature <= 0 {
		return 0.0
	}
	return math.Exp(-delta / temperature)
}

// TabuList 禁忌表（使用uint64哈希作为键）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	if size <= 0 {
		size = 1
	}
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}
