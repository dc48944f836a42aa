package builtin

import (
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// RegisterDefaultConstraints 注册硬约束与目标函数的软约束项
func RegisterDefaultConstraints(manager *constraint.Manager, obj constraint.Objective) {
	// 硬约束
	manager.Register(NewDailyCapacityConstraint())
	manager.Register(NewEligibilityConstraint())
	manager.Register(NewDemandCapConstraint())
	manager.Register(NewRequiredVisitConstraint())

	// 软约束，系数为 0 时仍注册以便输出统一
	manager.Register(NewWorkloadBalanceConstraint(obj.WorkloadWeight))
	manager.Register(NewVisitGapConstraint(obj.GapWeight, obj.TargetGap))
	manager.Register(NewAntiBunchingConstraint(obj.BunchingWeight, obj.TargetGap))
}

// NewDefaultManager 创建注册了默认约束的管理器
func NewDefaultManager(obj constraint.Objective) *constraint.Manager {
	m := constraint.NewManager()
	RegisterDefaultConstraints(m, obj)
	return m
}
