package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/stats"
)

// FlowSolver 构造求解器
//
// 先为每个必访槽位放 1 名患者（容量与需求允许时），再在剩余容量上求最大流，
// 得到覆盖患者数最多的方案。软约束交给 optimizer 在不降低覆盖的前提下调整。
type FlowSolver struct {
	constraintManager *constraint.Manager
	logger            *logger.SchedulerLogger
}

// NewFlowSolver 创建构造求解器
func NewFlowSolver(cm *constraint.Manager) *FlowSolver {
	return &FlowSolver{
		constraintManager: cm,
		logger:            logger.NewSchedulerLogger(),
	}
}

// Name 返回求解器名称
func (s *FlowSolver) Name() string {
	return "FlowSolver"
}

// Solve 生成覆盖最大的初始方案
func (s *FlowSolver) Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error) {
	startTime := time.Now()
	result := &Result{Statistics: &Statistics{Target: schedCtx.TotalTarget()}}

	s.placeRequired(schedCtx, result)

	paths, err := s.fill(ctx, schedCtx)
	result.Statistics.AugmentingPath = paths
	if err != nil {
		result.Duration = time.Since(startTime)
		return result, err
	}

	result.ConstraintResult = s.constraintManager.Evaluate(schedCtx)
	result.Statistics.Patients = schedCtx.TotalPatients()
	result.Statistics.CoverageRate = stats.CoverageRate(result.Statistics.Patients, result.Statistics.Target)
	result.Duration = time.Since(startTime)
	result.Success = result.ConstraintResult.IsValid
	if !result.Success {
		result.Message = fmt.Sprintf("构造方案违反 %d 项硬约束", len(result.ConstraintResult.HardViolations))
	}
	return result, nil
}

// placeRequired 按日期、机构顺序放置必访，容量优先
func (s *FlowSolver) placeRequired(schedCtx *constraint.Context, result *Result) {
	for _, slot := range schedCtx.Required {
		reason := ""
		switch {
		case slot.Facility < 0 || !schedCtx.Allowed[slot.Day][slot.Facility]:
			reason = ReasonNoDemand
		case schedCtx.Plan[slot.Day][slot.Facility] > 0:
			// 同一单元格已放置
		case schedCtx.ResidualCapacity(slot.Day) <= 0:
			reason = ReasonDailyCapacity
		case schedCtx.ResidualTarget(slot.Facility) <= 0:
			reason = ReasonDemandExhausted
		default:
			schedCtx.Plan[slot.Day][slot.Facility] = 1
		}

		if reason != "" {
			result.Unmet = append(result.Unmet, UnmetSlot{RequiredSlot: slot, Reason: reason})
			result.Statistics.RequiredUnmet++
			s.logger.RequiredVisitUnmet(schedCtx.ProviderID, slot.Date, slot.FacilityID, reason)
			continue
		}
		schedCtx.Pin(slot.Day, slot.Facility)
		result.Statistics.RequiredPlaced++
	}
}

// fill 在剩余容量与剩余需求上求最大流并写回方案
//
// 节点：源点 -> 机构(剩余需求) -> 工作日(允许访问) -> 汇点(剩余容量)
func (s *FlowSolver) fill(ctx context.Context, schedCtx *constraint.Context) (int, error) {
	nf, nd := len(schedCtx.Facilities), len(schedCtx.Days)
	if nf == 0 || nd == 0 {
		return 0, nil
	}
	source, sink := 0, 1+nf+nd
	g := newFlowNetwork(sink + 1)

	for f := 0; f < nf; f++ {
		if r := schedCtx.ResidualTarget(f); r > 0 {
			g.addEdge(source, 1+f, r)
		}
	}
	cells := make(map[[2]int][2]int)
	for f := 0; f < nf; f++ {
		for d := 0; d < nd; d++ {
			if schedCtx.Allowed[d][f] {
				cells[[2]int{d, f}] = g.addEdge(1+f, 1+nf+d, schedCtx.Days[d].Capacity)
			}
		}
	}
	for d := 0; d < nd; d++ {
		if r := schedCtx.ResidualCapacity(d); r > 0 {
			g.addEdge(1+nf+d, sink, r)
		}
	}

	_, paths, err := g.maxFlow(ctx, source, sink)
	if err != nil {
		return paths, err
	}
	for cell, ref := range cells {
		if flow := g.flowOn(ref); flow > 0 {
			schedCtx.Plan[cell[0]][cell[1]] += flow
		}
	}
	return paths, nil
}
