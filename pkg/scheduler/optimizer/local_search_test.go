package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/scheduler/constraint/builtin"
)

func newTestContext(days, capacity int, targets ...int) *constraint.Context {
	start := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	list := make([]constraint.Day, days)
	for i := range list {
		d := start.AddDate(0, 0, i)
		list[i] = constraint.Day{Index: i, Date: d, Key: d.Format("2006-01-02"), Workable: true, Capacity: capacity}
	}
	facilities := make([]constraint.FacilityDemand, len(targets))
	for i, t := range targets {
		facilities[i] = constraint.FacilityDemand{ID: string(rune('A' + i)), Target: t}
	}
	return constraint.NewContext("P1", list, facilities)
}

func facilityTotals(ctx *constraint.Context) []int {
	out := make([]int, len(ctx.Facilities))
	for f := range out {
		out[f] = ctx.FacilityTotal(f)
	}
	return out
}

func TestOptimize_ReducesBunching(t *testing.T) {
	obj := constraint.Objective{CoverageWeight: 1000, GapWeight: 1, BunchingWeight: 1, TargetGap: 5}
	cm := builtin.NewDefaultManager(obj)
	ctx := newTestContext(10, 10, 10)
	ctx.Objective = obj
	ctx.Plan[0][0] = 5
	ctx.Plan[1][0] = 5

	cfg := DefaultOptConfig()
	cfg.MaxIterations = 200
	outcome, err := NewLocalSearchOptimizer(cfg, cm).Optimize(context.Background(), ctx)
	require.NoError(t, err)

	assert.Less(t, outcome.FinalPenalty, outcome.InitialPenalty)
	assert.Equal(t, 10, ctx.TotalPatients())
	assert.Equal(t, outcome.FinalPenalty, cm.SoftPenalty(ctx))
	assert.True(t, cm.Evaluate(ctx).IsValid)
}

func TestOptimize_PreservesCoverage(t *testing.T) {
	obj := constraint.Objective{CoverageWeight: 1000, WorkloadWeight: 1, GapWeight: 0.1, BunchingWeight: 0.1, TargetGap: 3}
	cm := builtin.NewDefaultManager(obj)
	ctx := newTestContext(8, 12, 20, 15, 9)
	ctx.Objective = obj
	ctx.Forbid(2, 1)
	ctx.Plan[0] = []int{12, 0, 0}
	ctx.Plan[1] = []int{8, 4, 0}
	ctx.Plan[3] = []int{0, 11, 1}
	ctx.Plan[4] = []int{0, 0, 8}
	before := facilityTotals(ctx)

	cfg := DefaultOptConfig()
	cfg.MaxIterations = 300
	outcome, err := NewLocalSearchOptimizer(cfg, cm).Optimize(context.Background(), ctx)
	require.NoError(t, err)

	assert.Equal(t, before, facilityTotals(ctx))
	assert.LessOrEqual(t, outcome.FinalPenalty, outcome.InitialPenalty)
	for d := range ctx.Days {
		assert.LessOrEqual(t, ctx.DayLoad(d), 12, "第 %d 天超过上限", d)
	}
	assert.Zero(t, ctx.Plan[2][1], "禁止的单元格不应被使用")
}

func TestOptimize_KeepsPinnedCells(t *testing.T) {
	obj := constraint.Objective{CoverageWeight: 1000, GapWeight: 1, BunchingWeight: 1, TargetGap: 5}
	cm := builtin.NewDefaultManager(obj)
	ctx := newTestContext(10, 10, 6)
	ctx.Objective = obj
	ctx.Plan[0][0] = 3
	ctx.Plan[1][0] = 3
	ctx.Pin(1, 0)

	_, err := NewLocalSearchOptimizer(nil, cm).Optimize(context.Background(), ctx)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, ctx.Plan[1][0], 1)
	assert.Equal(t, 6, ctx.TotalPatients())
}

func TestOptimize_Deterministic(t *testing.T) {
	obj := constraint.Objective{CoverageWeight: 1000, WorkloadWeight: 0.5, GapWeight: 0.1, BunchingWeight: 0.1, TargetGap: 4}
	run := func() [][]int {
		ctx := newTestContext(10, 10, 30, 20, 15)
		ctx.Objective = obj
		ctx.Plan[0] = []int{10, 0, 0}
		ctx.Plan[1] = []int{10, 0, 0}
		ctx.Plan[2] = []int{10, 0, 0}
		ctx.Plan[3] = []int{0, 10, 0}
		ctx.Plan[4] = []int{0, 10, 0}
		ctx.Plan[5] = []int{0, 0, 10}
		ctx.Plan[6] = []int{0, 0, 5}
		_, err := NewLocalSearchOptimizer(nil, builtin.NewDefaultManager(obj)).Optimize(context.Background(), ctx)
		require.NoError(t, err)
		return ctx.ClonePlan()
	}
	assert.Equal(t, run(), run())
}

func TestOptimize_CancelledKeepsBest(t *testing.T) {
	obj := constraint.Objective{CoverageWeight: 1000, GapWeight: 1, TargetGap: 5}
	cm := builtin.NewDefaultManager(obj)
	ctx := newTestContext(5, 10, 8)
	ctx.Objective = obj
	ctx.Plan[0][0] = 4
	ctx.Plan[1][0] = 4
	initial := ctx.ClonePlan()

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome, err := NewLocalSearchOptimizer(nil, cm).Optimize(cctx, ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, outcome.TimedOut)
	assert.Equal(t, initial, ctx.Plan)
}

func TestConfigForLevel(t *testing.T) {
	assert.Zero(t, ConfigForLevel(1, 2000, 200, 42).MaxIterations)

	balanced := ConfigForLevel(2, 2000, 200, 42)
	assert.Equal(t, 2000, balanced.MaxIterations)
	assert.Equal(t, 200, balanced.PlateauThreshold)
	assert.Equal(t, int64(42), balanced.Seed)

	deep := ConfigForLevel(3, 2000, 200, 42)
	assert.Equal(t, 6000, deep.MaxIterations)
	assert.Greater(t, deep.ParallelWorkers, 1)
}

func TestOptimize_LevelOneLeavesPlan(t *testing.T) {
	obj := constraint.Objective{CoverageWeight: 1000, GapWeight: 1, TargetGap: 5}
	ctx := newTestContext(5, 10, 8)
	ctx.Objective = obj
	ctx.Plan[0][0] = 4
	ctx.Plan[1][0] = 4
	initial := ctx.ClonePlan()

	outcome, err := NewLocalSearchOptimizer(ConfigForLevel(1, 0, 0, 1), builtin.NewDefaultManager(obj)).
		Optimize(context.Background(), ctx)
	require.NoError(t, err)
	assert.Zero(t, outcome.Iterations)
	assert.Equal(t, initial, ctx.Plan)
}

func TestSeedFor(t *testing.T) {
	assert.Equal(t, SeedFor(42, "P1"), SeedFor(42, "P1"))
	assert.NotEqual(t, SeedFor(42, "P1"), SeedFor(42, "P2"))
	assert.GreaterOrEqual(t, SeedFor(0, "P1"), int64(0))
}

func TestTabuList(t *testing.T) {
	tabu := NewTabuList(2)
	tabu.Add(1)
	tabu.Add(2)
	tabu.Add(2)
	assert.True(t, tabu.Contains(1), "重复加入不占额外位置")

	tabu.Add(3)
	assert.False(t, tabu.Contains(1), "最旧的应被淘汰")
	assert.True(t, tabu.Contains(2))
	assert.True(t, tabu.Contains(3))
}

func TestBoltzmannProbability(t *testing.T) {
	assert.Equal(t, 1.0, boltzmannProbability(-1, 10))
	assert.Equal(t, 0.0, boltzmannProbability(1, 0))
	p := boltzmannProbability(1, 10)
	assert.True(t, p > 0.9 && p < 1)
}

func TestHashPlan(t *testing.T) {
	a := [][]int{{1, 0}, {0, 2}}
	b := [][]int{{0, 1}, {0, 2}}
	assert.Equal(t, hashPlan(a), hashPlan([][]int{{1, 0}, {0, 2}}))
	assert.NotEqual(t, hashPlan(a), hashPlan(b))
}
