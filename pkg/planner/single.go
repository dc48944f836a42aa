package planner

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/report"
)

// RunSingle 单医生模式
//
// 约束冲突作为警告返回；不可行时返回 Infeasible 状态且不输出方案；
// 超时且没有可用方案时返回 TIMEOUT 错误。
func (p *Planner) RunSingle(ctx context.Context, req *Request) (*report.Report, error) {
	req.Mode = model.ModeSingleProvider
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "planner.run_single", trace.WithAttributes(
		attribute.String("business_line", req.BusinessLine),
		attribute.String("provider_id", req.ProviderID),
	))
	defer span.End()

	run, err := p.load(ctx, req)
	if err != nil {
		return nil, err
	}
	ctx = logger.ContextWith(ctx, logger.RunIDKey, run.runID)

	check, err := p.precheck(run, req, req.ProviderID)
	if err != nil {
		return nil, err
	}
	if !check.Sufficient && p.opts.RejectOverCapacity {
		return nil, errors.InsufficientCapacity(check.TotalDemand, check.TotalCapacity).
			WithField("suggestions", check.Suggestions)
	}

	solveCtx, cancel := context.WithTimeout(ctx, p.timeout(req))
	defer cancel()

	out := p.solveProvider(solveCtx, run, req, req.ProviderID)
	if out.err != nil {
		span.RecordError(out.err)
		return nil, out.err
	}
	if out.result.Status == model.StatusTimeout {
		return nil, errors.Timeout(req.ProviderID, solveCtx.Err())
	}

	rep := p.assembler(run, req, "FlowSolver+LocalSearch").Single(out.result)
	rep.Metadata.CapacityCheck = check
	if p.observer != nil {
		p.observer.ObserveReport(req.BusinessLine, req.Mode, rep.TotalPatientsServed, rep.CoverageRate)
	}
	logger.WithContext(ctx).Info().
		Str("provider_id", req.ProviderID).
		Str("status", string(rep.Status)).
		Int("patients", rep.TotalPatientsServed).
		Float64("coverage_rate", rep.CoverageRate).
		Msg("单医生排程完成")
	return rep, nil
}
