package planner

import (
	"context"

	"github.com/paiban/visitplan/pkg/demand"
	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/report"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// 容量不足时的建议
const (
	SuggestIncreaseLimit = "Increase Daily Patient Limit"
	SuggestReducePTO     = "Reduce PTO requests"
	SuggestUpdateWeekly  = "Update Weekly Availability"
	SuggestFiveWeeks     = "Select '5 Weeks' planning duration"
)

// Precheck 单个医生的需求与容量预检
func (p *Planner) Precheck(ctx context.Context, req *Request) (*report.CapacityCheck, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.ProviderID == "" {
		return nil, errors.InvalidInput("selected_provider", "预检必须指定医生")
	}
	run, err := p.load(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.precheck(run, req, req.ProviderID)
}

// precheck 需求 Σ round(census×重叠比例×(1+α)) 与 可工作日×上限 比较，折算方式与求解一致
func (p *Planner) precheck(run *runData, req *Request, providerID string) (*report.CapacityCheck, error) {
	provider, _ := resolveProvider(run.census, req.BusinessLine, providerID)
	cons := req.constraintsFor(providerID)

	compiled, err := constraint.Compile(constraint.CompileInput{Provider: provider, Constraints: cons, Horizon: req.Horizon})
	if err != nil {
		return nil, err
	}
	table, err := demand.Build(demand.Input{
		Census:    run.census,
		Provider:  provider,
		Month:     run.month,
		Horizon:   req.Horizon,
		Alpha:     req.Weights.Alpha,
		Proration: p.opts.Proration,
	})
	if err != nil {
		return nil, err
	}

	check := &report.CapacityCheck{
		TotalDemand:   table.TotalTarget(),
		AvailableDays: compiled.WorkableDays(),
		DailyLimit:    compiled.Limit,
		TotalCapacity: compiled.Capacity(),
	}
	check.Sufficient = check.TotalDemand <= check.TotalCapacity
	if check.Sufficient {
		return check, nil
	}

	check.Shortfall = check.TotalDemand - check.TotalCapacity
	check.Suggestions = []string{SuggestIncreaseLimit, SuggestReducePTO, SuggestUpdateWeekly}
	if req.Horizon.Weeks == 4 {
		extended, err := constraint.Compile(constraint.CompileInput{
			Provider: provider, Constraints: cons, Horizon: req.Horizon.Extend(5),
		})
		if err == nil && check.TotalDemand <= extended.Capacity() {
			check.Suggestions = append(check.Suggestions, SuggestFiveWeeks)
		}
	}
	return check, nil
}
