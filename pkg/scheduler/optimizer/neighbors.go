package optimizer

import (
	"math/rand"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveShift    MoveType = iota // 把某机构部分患者挪到另一天
	MoveMerge                    // 把某机构一天的访视并入另一访视日
	MoveExchange                 // 两天之间交换不同机构的患者，日负荷不变
	MoveBalance                  // 从最忙的一天挪到最闲的一天
)

// String 移动类型名称
func (t MoveType) String() string {
	switch t {
	case MoveShift:
		return "shift"
	case MoveMerge:
		return "merge"
	case MoveExchange:
		return "exchange"
	case MoveBalance:
		return "balance"
	default:
		return "unknown"
	}
}

// Move 邻域移动操作，每个机构的增减之和为 0
type Move struct {
	Type    MoveType
	Changes []constraint.Change
}

type weightedMove struct {
	moveType MoveType
	weight   float64
}

// NeighborhoodGenerator 邻域生成器
type NeighborhoodGenerator struct {
	rng         *rand.Rand
	moveWeights []weightedMove
}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator(rng *rand.Rand) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{
		rng: rng,
		moveWeights: []weightedMove{
			{MoveShift, 0.40},
			{MoveMerge, 0.20},
			{MoveExchange, 0.25},
			{MoveBalance, 0.15},
		},
	}
}

// GenerateMove 生成一个候选移动，无法生成时返回 nil
func (n *NeighborhoodGenerator) GenerateMove(ctx *constraint.Context) *Move {
	if len(ctx.Facilities) == 0 || len(ctx.Days) < 2 {
		return nil
	}

	switch n.selectMoveType() {
	case MoveMerge:
		return n.generateMergeMove(ctx)
	case MoveExchange:
		return n.generateExchangeMove(ctx)
	case MoveBalance:
		return n.generateBalanceMove(ctx)
	default:
		return n.generateShiftMove(ctx)
	}
}

// selectMoveType 按权重选择移动类型
func (n *NeighborhoodGenerator) selectMoveType() MoveType {
	r := n.rng.Float64()
	cumulative := 0.0
	for _, w := range n.moveWeights {
		cumulative += w.weight
		if r < cumulative {
			return w.moveType
		}
	}
	return MoveShift
}

// generateShiftMove 把机构 f 在 d1 的部分患者挪到允许的 d2
func (n *NeighborhoodGenerator) generateShiftMove(ctx *constraint.Context) *Move {
	f := n.rng.Intn(len(ctx.Facilities))
	from := visitedDays(ctx, f)
	to := allowedDays(ctx, f)
	if len(from) == 0 || len(to) < 2 {
		return nil
	}
	d1 := from[n.rng.Intn(len(from))]
	d2 := to[n.rng.Intn(len(to))]
	if d1 == d2 {
		return nil
	}
	delta := 1 + n.rng.Intn(ctx.Plan[d1][f])
	return transfer(MoveShift, f, d1, d2, delta)
}

// generateMergeMove 把机构 f 在 d1 的全部患者并入另一个已访视日 d2
func (n *NeighborhoodGenerator) generateMergeMove(ctx *constraint.Context) *Move {
	f := n.rng.Intn(len(ctx.Facilities))
	days := visitedDays(ctx, f)
	if len(days) < 2 {
		return nil
	}
	i := n.rng.Intn(len(days))
	j := n.rng.Intn(len(days) - 1)
	if j >= i {
		j++
	}
	d1, d2 := days[i], days[j]
	return transfer(MoveMerge, f, d1, d2, ctx.Plan[d1][f])
}

// generateExchangeMove d1 的 f1 与 d2 的 f2 交换同样数量的患者
func (n *NeighborhoodGenerator) generateExchangeMove(ctx *constraint.Context) *Move {
	workable := ctx.WorkableDays()
	if len(workable) < 2 || len(ctx.Facilities) < 2 {
		return nil
	}
	d1 := workable[n.rng.Intn(len(workable))]
	d2 := workable[n.rng.Intn(len(workable))]
	f1 := n.rng.Intn(len(ctx.Facilities))
	f2 := n.rng.Intn(len(ctx.Facilities))
	if d1 == d2 || f1 == f2 {
		return nil
	}
	a, b := ctx.Plan[d1][f1], ctx.Plan[d2][f2]
	if a == 0 || b == 0 || !ctx.Allowed[d2][f1] || !ctx.Allowed[d1][f2] {
		return nil
	}
	delta := 1 + n.rng.Intn(min(a, b))
	return &Move{
		Type: MoveExchange,
		Changes: []constraint.Change{
			{Day: d1, Facility: f1, Delta: -delta},
			{Day: d2, Facility: f1, Delta: delta},
			{Day: d2, Facility: f2, Delta: -delta},
			{Day: d1, Facility: f2, Delta: delta},
		},
	}
}

// generateBalanceMove 从负荷最高的一天向最低的一天挪动一半差值
func (n *NeighborhoodGenerator) generateBalanceMove(ctx *constraint.Context) *Move {
	workable := ctx.WorkableDays()
	if len(workable) < 2 {
		return nil
	}
	heavy, light := workable[0], workable[0]
	for _, d := range workable[1:] {
		if ctx.DayLoad(d) > ctx.DayLoad(heavy) {
			heavy = d
		}
		if ctx.DayLoad(d) < ctx.DayLoad(light) {
			light = d
		}
	}
	diff := ctx.DayLoad(heavy) - ctx.DayLoad(light)
	if diff < 2 {
		return nil
	}

	var candidates []int
	for f := range ctx.Facilities {
		if ctx.Plan[heavy][f] > 0 && ctx.Allowed[light][f] {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	f := candidates[n.rng.Intn(len(candidates))]
	return transfer(MoveBalance, f, heavy, light, min(diff/2, ctx.Plan[heavy][f]))
}

func transfer(t MoveType, f, from, to, delta int) *Move {
	if delta <= 0 {
		return nil
	}
	return &Move{
		Type: t,
		Changes: []constraint.Change{
			{Day: from, Facility: f, Delta: -delta},
			{Day: to, Facility: f, Delta: delta},
		},
	}
}

func visitedDays(ctx *constraint.Context, f int) []int {
	var out []int
	for d := range ctx.Plan {
		if ctx.Plan[d][f] > 0 {
			out = append(out, d)
		}
	}
	return out
}

func allowedDays(ctx *constraint.Context, f int) []int {
	var out []int
	for d := range ctx.Allowed {
		if ctx.Allowed[d][f] {
			out = append(out, d)
		}
	}
	return out
}
