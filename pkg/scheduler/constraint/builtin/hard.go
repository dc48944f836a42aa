package builtin

import (
	"fmt"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// DailyCapacityConstraint 每日患者数不超过上限
type DailyCapacityConstraint struct {
	*BaseConstraint
}

// NewDailyCapacityConstraint 创建每日容量约束
func NewDailyCapacityConstraint() *DailyCapacityConstraint {
	return &DailyCapacityConstraint{
		BaseConstraint: NewBaseConstraint("每日患者上限", constraint.TypeDailyCapacity, constraint.CategoryHard, 0),
	}
}

// Evaluate 评估整个方案
func (c *DailyCapacityConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	for d, day := range ctx.Days {
		if load := ctx.DayLoad(d); load > day.Capacity {
			violations = append(violations, c.CreateViolation("", day.Key,
				fmt.Sprintf("%s 安排 %d 名患者，超过上限 %d", day.Key, load, day.Capacity), 0))
		}
	}
	return len(violations) == 0, 0, violations
}

// CheckCell 检查该日容量
func (c *DailyCapacityConstraint) CheckCell(ctx *constraint.Context, day, _ int) bool {
	return ctx.DayLoad(day) <= ctx.Days[day].Capacity
}

// EligibilityConstraint 不可工作日与受限机构不得安排
type EligibilityConstraint struct {
	*BaseConstraint
}

// NewEligibilityConstraint 创建可访问性约束
func NewEligibilityConstraint() *EligibilityConstraint {
	return &EligibilityConstraint{
		BaseConstraint: NewBaseConstraint("可访问性", constraint.TypeEligibility, constraint.CategoryHard, 0),
	}
}

// Evaluate 评估整个方案
func (c *EligibilityConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	for d, day := range ctx.Days {
		for f, fac := range ctx.Facilities {
			if ctx.Plan[d][f] > 0 && !ctx.Allowed[d][f] {
				violations = append(violations, c.CreateViolation(fac.ID, day.Key,
					fmt.Sprintf("%s 不允许访问机构 %s", day.Key, fac.ID), 0))
			}
		}
	}
	return len(violations) == 0, 0, violations
}

// CheckCell 检查单元格
func (c *EligibilityConstraint) CheckCell(ctx *constraint.Context, day, facility int) bool {
	return ctx.Plan[day][facility] == 0 || ctx.Allowed[day][facility]
}

// DemandCapConstraint 机构周期内患者数不超过需求目标
type DemandCapConstraint struct {
	*BaseConstraint
}

// NewDemandCapConstraint 创建需求上限约束
func NewDemandCapConstraint() *DemandCapConstraint {
	return &DemandCapConstraint{
		BaseConstraint: NewBaseConstraint("需求上限", constraint.TypeDemandCap, constraint.CategoryHard, 0),
	}
}

// Evaluate 评估整个方案
func (c *DemandCapConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	for f, fac := range ctx.Facilities {
		if total := ctx.FacilityTotal(f); total > fac.Target {
			violations = append(violations, c.CreateViolation(fac.ID, "",
				fmt.Sprintf("机构 %s 安排 %d 名患者，超过目标 %d", fac.ID, total, fac.Target), 0))
		}
	}
	return len(violations) == 0, 0, violations
}

// CheckCell 检查该机构累计
func (c *DemandCapConstraint) CheckCell(ctx *constraint.Context, _, facility int) bool {
	return ctx.FacilityTotal(facility) <= ctx.Facilities[facility].Target
}

// RequiredVisitConstraint 已满足的必访槽位至少保留 1 名患者
type RequiredVisitConstraint struct {
	*BaseConstraint
}

// NewRequiredVisitConstraint 创建必访约束
func NewRequiredVisitConstraint() *RequiredVisitConstraint {
	return &RequiredVisitConstraint{
		BaseConstraint: NewBaseConstraint("必访", constraint.TypeRequiredVisit, constraint.CategoryHard, 0),
	}
}

// Evaluate 评估整个方案
func (c *RequiredVisitConstraint) Evaluate(ctx *constraint.Context) (bool, float64, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	for _, cell := range ctx.PinnedCells() {
		d, f := cell[0], cell[1]
		if ctx.Plan[d][f] < 1 {
			violations = append(violations, c.CreateViolation(ctx.Facilities[f].ID, ctx.Days[d].Key,
				fmt.Sprintf("%s 必访机构 %s 未安排患者", ctx.Days[d].Key, ctx.Facilities[f].ID), 0))
		}
	}
	return len(violations) == 0, 0, violations
}

// CheckCell 检查单元格
func (c *RequiredVisitConstraint) CheckCell(ctx *constraint.Context, day, facility int) bool {
	return !ctx.IsPinned(day, facility) || ctx.Plan[day][facility] >= 1
}
