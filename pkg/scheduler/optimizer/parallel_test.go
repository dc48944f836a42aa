package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/scheduler/constraint/builtin"
)

func TestIslandOptimizer(t *testing.T) {
	obj := constraint.Objective{CoverageWeight: 1000, WorkloadWeight: 1, GapWeight: 0.5, BunchingWeight: 0.5, TargetGap: 3}
	cm := builtin.NewDefaultManager(obj)
	build := func() *constraint.Context {
		ctx := newTestContext(10, 10, 25, 14)
		ctx.Objective = obj
		ctx.Plan[0] = []int{10, 0}
		ctx.Plan[1] = []int{10, 0}
		ctx.Plan[2] = []int{5, 5}
		ctx.Plan[3] = []int{0, 9}
		return ctx
	}

	cfg := ConfigForLevel(3, 200, 50, 42)
	ctx := build()
	outcome, err := NewIslandOptimizer(cfg, cm).Optimize(context.Background(), ctx)
	require.NoError(t, err)

	assert.Equal(t, []int{25, 14}, facilityTotals(ctx))
	assert.LessOrEqual(t, outcome.FinalPenalty, outcome.InitialPenalty)
	assert.InDelta(t, outcome.FinalPenalty, cm.SoftPenalty(ctx), 1e-9)

	again := build()
	_, err = NewIslandOptimizer(cfg, cm).Optimize(context.Background(), again)
	require.NoError(t, err)
	assert.Equal(t, ctx.Plan, again.Plan, "同一种子结果应一致")
}
