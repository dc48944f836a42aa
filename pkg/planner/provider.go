package planner

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paiban/visitplan/pkg/demand"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/report"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/scheduler/constraint/builtin"
	"github.com/paiban/visitplan/pkg/scheduler/optimizer"
	"github.com/paiban/visitplan/pkg/scheduler/solver"
	"github.com/paiban/visitplan/pkg/validator"
)

// solveOutcome 单个医生的求解输出
type solveOutcome struct {
	result   *report.ProviderResult
	compiled *constraint.Compiled
	table    *demand.Table
	// err 只在输入无效时返回，求解失败记录在 result.Status 中
	err error
}

// objective 把请求权重转换为求解目标
func objective(w model.ObjectiveWeights) constraint.Objective {
	return constraint.Objective{
		CoverageWeight: CoverageWeight,
		WorkloadWeight: w.WorkloadWeight,
		GapWeight:      w.GapWeight,
		BunchingWeight: w.BunchingWeight,
		TargetGap:      w.TargetGap,
	}
}

// resolveProvider 从普查中找医生，找不到时返回没有机构的医生
func resolveProvider(census *model.Census, businessLine, providerID string) (*model.Provider, string) {
	if p, ok := census.Provider(providerID); ok {
		return p, report.DataSourceCensus
	}
	return &model.Provider{ID: providerID, BusinessLine: businessLine}, report.DataSourceFallback
}

// solveProvider 求解单个医生，ctx 已带超时
func (p *Planner) solveProvider(ctx context.Context, run *runData, req *Request, providerID string) *solveOutcome {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "planner.solve_provider",
		trace.WithAttributes(attribute.String("provider_id", providerID)))
	defer span.End()

	provider, dataSource := resolveProvider(run.census, req.BusinessLine, providerID)
	cons := req.constraintsFor(providerID)
	out := &solveOutcome{result: &report.ProviderResult{
		ProviderID: providerID,
		Limit:      cons.DailyPatientLimit,
		DataSource: dataSource,
	}}
	res := out.result
	objectiveValue := 0.0
	iterations := 0
	defer func() {
		duration := time.Since(start)
		span.SetAttributes(attribute.String("status", string(res.Status)))
		p.logger.SolveComplete(run.runID, providerID, duration, string(res.Status), objectiveValue)
		if p.observer != nil {
			p.observer.ObserveSolve(req.BusinessLine, res.Status, iterations, duration)
		}
	}()

	compiled, err := constraint.Compile(constraint.CompileInput{Provider: provider, Constraints: cons, Horizon: req.Horizon})
	if err != nil {
		span.RecordError(err)
		out.err = err
		res.Status, res.Message = model.StatusError, err.Error()
		return out
	}
	out.compiled = compiled
	res.WorkableDays = workableKeys(compiled)
	res.Availability = availability(compiled)
	res.Warnings = p.warnings(compiled)

	table, err := demand.Build(demand.Input{
		Census:    run.census,
		Provider:  provider,
		Month:     run.month,
		Horizon:   req.Horizon,
		Alpha:     req.Weights.Alpha,
		Proration: p.opts.Proration,
	})
	if err != nil {
		span.RecordError(err)
		out.err = err
		res.Status, res.Message = model.StatusError, err.Error()
		return out
	}
	out.table = table
	res.Demand = table.TotalTarget()
	res.Targets = table.TargetMap()

	obj := objective(req.Weights)
	schedCtx := compiled.NewContext(table.Demands(), obj)
	cm := builtin.NewDefaultManager(obj)
	p.logger.StartSolve(run.runID, providerID, compiled.WorkableDays(), len(schedCtx.Facilities))

	status, message, iters := p.solve(ctx, schedCtx, cm, res)
	iterations = iters
	res.Status, res.Message = status, message
	if res.HasSchedule() {
		res.Assignments = schedCtx.Assignments()
		if conflicts := p.detector.DetectAll(res.Assignments, rules(compiled, table, req.Horizon)); validator.HasErrors(conflicts) {
			res.Status = model.StatusError
			res.Message = fmt.Sprintf("方案校验失败: %s", conflicts[0].Message)
			res.Assignments = nil
		}
	}

	if res.HasSchedule() {
		objectiveValue = cm.Evaluate(schedCtx).Objective
	}
	return out
}

// solve 构造 + 局部搜索，返回状态、说明与搜索迭代次数
func (p *Planner) solve(ctx context.Context, schedCtx *constraint.Context, cm *constraint.Manager, res *report.ProviderResult) (model.ScheduleStatus, string, int) {
	flow := solver.NewFlowSolver(cm)
	built, err := flow.Solve(ctx, schedCtx)
	if err != nil {
		if isTimeout(err) {
			return model.StatusTimeout, "构造阶段超时，没有可用方案", 0
		}
		return model.StatusError, err.Error(), 0
	}

	for _, u := range built.Unmet {
		res.Unmet = append(res.Unmet, model.UnmetRequiredVisit{
			ProviderID: schedCtx.ProviderID,
			FacilityID: u.FacilityID,
			Date:       u.Date,
			Reason:     u.Reason,
		})
	}
	if !built.Success {
		return model.StatusInfeasible, built.Message, 0
	}
	if p.opts.StrictRequiredVisits && len(built.Unmet) > 0 {
		u := built.Unmet[0]
		return model.StatusInfeasible, fmt.Sprintf("%d 个必访无法满足（首个: %s %s, %s）",
			len(built.Unmet), u.FacilityID, u.Date, u.Reason), 0
	}

	cfg := optimizer.ConfigForLevel(p.opts.OptimizationLevel, p.opts.MaxIterations, p.opts.PlateauThreshold,
		optimizer.SeedFor(p.opts.Seed, schedCtx.ProviderID))
	outcome, err := optimizer.NewIslandOptimizer(cfg, cm).Optimize(ctx, schedCtx)
	switch {
	case err != nil && isTimeout(err):
		return model.StatusTimeLimit, fmt.Sprintf("达到时间限制，返回迭代 %d 次内的最优方案", outcome.Iterations), outcome.Iterations
	case err != nil:
		return model.StatusError, err.Error(), 0
	}

	if len(built.Unmet) > 0 {
		return model.StatusOptimal, fmt.Sprintf("%d 个必访因容量或需求未满足", len(built.Unmet)), outcome.Iterations
	}
	return model.StatusOptimal, "", outcome.Iterations
}

func isTimeout(err error) bool {
	return stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled)
}

// warnings 约束冲突转换为输出警告
func (p *Planner) warnings(c *constraint.Compiled) []model.ConstraintWarning {
	out := make([]model.ConstraintWarning, 0, len(c.Conflicts)+len(c.Notes))
	for _, list := range [][]constraint.Conflict{c.Conflicts, c.Notes} {
		for _, cf := range list {
			out = append(out, model.ConstraintWarning{
				ProviderID: c.ProviderID,
				FacilityID: cf.FacilityID,
				Date:       cf.Date,
				Kind:       cf.Kind,
				Message:    cf.Message,
			})
			if cf.Kind != constraint.NoteOutOfHorizon {
				p.logger.ConstraintConflict(c.ProviderID, cf.Date, cf.FacilityID, cf.Kind)
			}
		}
	}
	return out
}

func workableKeys(c *constraint.Compiled) []string {
	out := make([]string, 0, len(c.Days))
	for _, d := range c.Days {
		if d.Workable {
			out = append(out, d.Key)
		}
	}
	return out
}

// availability 可用情况，不可用日期格式为 "2024-12-09 (Monday)"
func availability(c *constraint.Compiled) *report.Availability {
	unavailable := c.UnavailableDates()
	a := &report.Availability{
		TotalCalendarDays: len(c.Days),
		UnavailableDays:   len(unavailable),
		AvailableDays:     len(c.Days) - len(unavailable),
		UnavailableDates:  make([]string, 0, len(unavailable)),
	}
	for _, d := range unavailable {
		a.UnavailableDates = append(a.UnavailableDates, fmt.Sprintf("%s (%s)", model.FormatDate(d), d.Weekday()))
	}
	return a
}

// rules 校验最终方案使用的规则
func rules(c *constraint.Compiled, t *demand.Table, h model.PlanningHorizon) validator.Rules {
	r := validator.Rules{
		ProviderID: c.ProviderID,
		Limit:      c.Limit,
		Workable:   make(map[string]bool, len(c.Days)),
		Horizon:    make(map[string]bool, len(c.Days)),
		Targets:    t.TargetMap(),
	}
	for _, d := range h.WorkingDays() {
		r.Horizon[model.FormatDate(d)] = true
	}
	for _, d := range c.Days {
		if d.Workable {
			r.Workable[d.Key] = true
		}
	}
	return r
}
