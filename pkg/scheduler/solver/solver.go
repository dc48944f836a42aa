// Package solver 提供排程求解器
package solver

import (
	"context"
	"time"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// Solver 求解器接口，问题以 constraint.Context 的数据形式给出
type Solver interface {
	// Solve 在 schedCtx.Plan 上生成方案
	Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// 未满足必访的原因
const (
	ReasonDailyCapacity   = "daily_capacity"
	ReasonDemandExhausted = "demand_exhausted"
	ReasonNoDemand        = "no_demand"
)

// UnmetSlot 未满足的必访槽位
type UnmetSlot struct {
	constraint.RequiredSlot
	Reason string `json:"reason"`
}

// Result 求解结果
type Result struct {
	ConstraintResult *constraint.Result `json:"constraint_result"`
	Statistics       *Statistics        `json:"statistics"`
	Unmet            []UnmetSlot        `json:"unmet_required_visits"`
	Duration         time.Duration      `json:"duration"`
	Success          bool               `json:"success"`
	Message          string             `json:"message,omitempty"`
}

// Statistics 求解统计
type Statistics struct {
	Patients       int     `json:"patients"`
	Target         int     `json:"target"`
	CoverageRate   float64 `json:"coverage_rate"`
	RequiredPlaced int     `json:"required_placed"`
	RequiredUnmet  int     `json:"required_unmet"`
	AugmentingPath int     `json:"augmenting_paths"`
	Iterations     int     `json:"iterations"`
}
