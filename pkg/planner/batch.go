package planner

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/report"
)

// batchJob 批量任务
type batchJob struct {
	index      int
	providerID string
}

// RunBusinessLine 业务线批量模式：每个医生独立求解，结果按医生编号合并
//
// 单个医生失败只记录在 provider_results_summary 中，不中断批量。
func (p *Planner) RunBusinessLine(ctx context.Context, req *Request) (*report.Report, error) {
	req.Mode = model.ModeBusinessLineSequential
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "planner.run_business_line",
		trace.WithAttributes(attribute.String("business_line", req.BusinessLine)))
	defer span.End()

	run, err := p.load(ctx, req)
	if err != nil {
		return nil, err
	}
	ctx = logger.ContextWith(ctx, logger.RunIDKey, run.runID)

	providers := run.census.Providers()
	if len(providers) == 0 {
		return nil, errors.NotFound("business line census", req.BusinessLine)
	}
	span.SetAttributes(attribute.Int("providers", len(providers)))

	results := p.solveAll(ctx, run, req, providers)

	failed := 0
	for _, r := range results {
		if !r.HasSchedule() {
			failed++
		}
	}
	duration := time.Since(start)
	p.logger.BatchComplete(run.runID, req.BusinessLine, len(providers), failed, duration)
	if p.observer != nil {
		p.observer.ObserveBatch(req.BusinessLine, len(providers), failed, duration)
	}

	rep := p.assembler(run, req, "FlowSolver+LocalSearch").Batch(results)
	if p.observer != nil {
		p.observer.ObserveReport(req.BusinessLine, req.Mode, rep.TotalPatientsServed, rep.CoverageRate)
	}
	return rep, nil
}

// solveAll 工作池求解所有医生，每个医生有独立的超时
func (p *Planner) solveAll(ctx context.Context, run *runData, req *Request, providers []string) []*report.ProviderResult {
	workers := p.opts.BatchWorkers
	if workers > len(providers) {
		workers = len(providers)
	}
	timeout := p.timeout(req)

	results := make([]*report.ProviderResult, len(providers))
	jobChan := make(chan batchJob, len(providers))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				results[job.index] = p.solveOne(ctx, run, req, job.providerID, timeout)
			}
		}()
	}

	for i, id := range providers {
		jobChan <- batchJob{index: i, providerID: id}
	}
	close(jobChan)
	wg.Wait()

	return results
}

// solveOne 求解一个医生，请求已取消时直接记录超时
func (p *Planner) solveOne(ctx context.Context, run *runData, req *Request, providerID string, timeout time.Duration) *report.ProviderResult {
	if ctx.Err() != nil {
		return &report.ProviderResult{
			ProviderID: providerID,
			Status:     model.StatusTimeout,
			Message:    "请求已取消",
			Limit:      req.constraintsFor(providerID).DailyPatientLimit,
		}
	}
	solveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.solveProvider(solveCtx, run, req, providerID).result
}
