package builtin

import (
	"fmt"
	"math"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// WorkloadBalanceConstraint 每日负载偏离均值的绝对值之和
type WorkloadBalanceConstraint struct {
	*BaseConstraint
}

// NewWorkloadBalanceConstraint 创建工作量均衡约束
func NewWorkloadBalanceConstraint(weight float64) *WorkloadBalanceConstraint {
	return &WorkloadBalanceConstraint{
		BaseConstraint: NewBaseConstraint("工作量均衡", constraint.TypeWorkloadBalance, constraint.CategorySoft, weight),
	}
}

// deviation 未加权偏差，只统计可工作日
func (c *WorkloadBalanceConstraint) deviation(ctx *constraint.Context) (float64, float64) {
	workable := ctx.WorkableDays()
	if len(workable) == 0 {
		return 0, 0
	}
	total := 0
	for _, d := range workable {
		total += ctx.DayLoad(d)
	}
	mean := float64(total) / float64(len(workable))
	dev := 0.0
	for _, d := range workable {
		dev += math.Abs(float64(ctx.DayLoad(d)) - mean)
	}
	return dev, mean
}

// Penalty 加权惩罚
func (c *WorkloadBalanceConstraint) Penalty(ctx *constraint.Context) float64 {
	if c.Weight() == 0 {
		return 0
	}
	dev, _ := c.deviation(ctx)
	return c.Weight() * dev
}

// Evaluate 评估整个方案
func (c *WorkloadBalanceConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	dev, mean := c.deviation(ctx)
	if dev == 0 {
		return true, 0, nil
	}
	penalty := c.Weight() * dev
	return false, penalty, []constraint.ViolationDetail{
		c.CreateViolation("", "", fmt.Sprintf("每日负载偏离均值 %.1f 的总量为 %.1f", mean, dev), penalty),
	}
}

// visitGaps 某机构相邻两次访问的间隔（工作日）
func visitGaps(ctx *constraint.Context, facility int) []int {
	days := ctx.VisitDays(facility)
	if len(days) < 2 {
		return nil
	}
	gaps := make([]int, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		gaps = append(gaps, days[i]-days[i-1])
	}
	return gaps
}

// VisitGapConstraint 访问间隔偏离目标窗口 T 的绝对值之和
type VisitGapConstraint struct {
	*BaseConstraint
	target int
}

// NewVisitGapConstraint 创建访问间隔约束
func NewVisitGapConstraint(weight float64, target int) *VisitGapConstraint {
	return &VisitGapConstraint{
		BaseConstraint: NewBaseConstraint("访问间隔", constraint.TypeVisitGap, constraint.CategorySoft, weight),
		target:         target,
	}
}

// Penalty 加权惩罚
func (c *VisitGapConstraint) Penalty(ctx *constraint.Context) float64 {
	if c.Weight() == 0 {
		return 0
	}
	total := 0
	for f := range ctx.Facilities {
		for _, gap := range visitGaps(ctx, f) {
			total += absInt(gap - c.target)
		}
	}
	return c.Weight() * float64(total)
}

// Evaluate 评估整个方案
func (c *VisitGapConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	total := 0.0
	for f, fac := range ctx.Facilities {
		dev := 0
		for _, gap := range visitGaps(ctx, f) {
			dev += absInt(gap - c.target)
		}
		if dev == 0 {
			continue
		}
		penalty := c.Weight() * float64(dev)
		total += penalty
		violations = append(violations, c.CreateViolation(fac.ID, "",
			fmt.Sprintf("机构 %s 访问间隔偏离目标 %d 个工作日共 %d", fac.ID, c.target, dev), penalty))
	}
	return len(violations) == 0, total, violations
}

// AntiBunchingConstraint 间隔小于 T 的单侧惩罚
type AntiBunchingConstraint struct {
	*BaseConstraint
	target int
}

// NewAntiBunchingConstraint 创建防扎堆约束
func NewAntiBunchingConstraint(weight float64, target int) *AntiBunchingConstraint {
	return &AntiBunchingConstraint{
		BaseConstraint: NewBaseConstraint("防扎堆", constraint.TypeAntiBunching, constraint.CategorySoft, weight),
		target:         target,
	}
}

func (c *AntiBunchingConstraint) shortfall(ctx *constraint.Context, facility int) int {
	total := 0
	for _, gap := range visitGaps(ctx, facility) {
		if gap < c.target {
			total += c.target - gap
		}
	}
	return total
}

// Penalty 加权惩罚
func (c *AntiBunchingConstraint) Penalty(ctx *constraint.Context) float64 {
	if c.Weight() == 0 {
		return 0
	}
	total := 0
	for f := range ctx.Facilities {
		total += c.shortfall(ctx, f)
	}
	return c.Weight() * float64(total)
}

// Evaluate 评估整个方案
func (c *AntiBunchingConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	total := 0.0
	for f, fac := range ctx.Facilities {
		short := c.shortfall(ctx, f)
		if short == 0 {
			continue
		}
		penalty := c.Weight() * float64(short)
		total += penalty
		violations = append(violations, c.CreateViolation(fac.ID, "",
			fmt.Sprintf("机构 %s 访问过密，短于目标间隔共 %d 个工作日", fac.ID, short), penalty))
	}
	return len(violations) == 0, total, violations
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
