// Package planner 编排一次排程运行：编译约束、计算需求、求解、估算路线并组装结果
package planner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/paiban/visitplan/pkg/demand"
	"github.com/paiban/visitplan/pkg/distance"
	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/logger"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/report"
	"github.com/paiban/visitplan/pkg/validator"
)

// CoverageWeight 覆盖项系数，远大于软约束惩罚，覆盖优先
const CoverageWeight = 1000

// CensusSource 读取业务线普查数据
type CensusSource interface {
	LoadCensus(ctx context.Context, businessLine string) (*model.Census, error)
}

// DistanceSource 读取业务线距离矩阵，distance.Cache 实现了该接口
type DistanceSource interface {
	Get(ctx context.Context, businessLine string) (*distance.Repository, error)
}

// Observer 运行结果观察者，用于指标
type Observer interface {
	ObserveSolve(businessLine string, status model.ScheduleStatus, iterations int, duration time.Duration)
	ObserveBatch(businessLine string, providers, failed int, duration time.Duration)
	ObserveReport(businessLine string, mode model.OptimizationMode, served int, coverageRate float64)
}

// Options 运行参数
type Options struct {
	DefaultTimeout       time.Duration
	MaxTimeout           time.Duration
	MaxIterations        int
	OptimizationLevel    int
	PlateauThreshold     int
	Seed                 int64
	StrictRequiredVisits bool
	RejectOverCapacity   bool
	BatchWorkers         int
	Proration            demand.Proration
}

// DefaultOptions 默认运行参数
func DefaultOptions() Options {
	return Options{
		DefaultTimeout:    15 * time.Second,
		MaxTimeout:        120 * time.Second,
		MaxIterations:     2000,
		OptimizationLevel: 2,
		PlateauThreshold:  200,
		Seed:              42,
		BatchWorkers:      1,
		Proration:         demand.ProrationFull,
	}
}

// Request 一次优化请求
type Request struct {
	BusinessLine      string
	Horizon           model.PlanningHorizon
	Mode              model.OptimizationMode
	ProviderID        string // 单医生模式必填
	DailyPatientLimit int
	Weights           model.ObjectiveWeights
	CensusMonth       string // 空时取周期开始的月份
	Timeout           time.Duration

	// 医生约束，未提供的医生只使用每日上限
	Constraints map[string]model.ProviderConstraints
}

// constraintsFor 医生的约束，缺少时使用请求的每日上限
func (r *Request) constraintsFor(providerID string) model.ProviderConstraints {
	c, ok := r.Constraints[providerID]
	if !ok {
		c = model.ProviderConstraints{ProviderID: providerID}
	}
	if c.DailyPatientLimit <= 0 {
		c.DailyPatientLimit = r.DailyPatientLimit
	}
	return c
}

func (r *Request) censusMonth() string {
	if r.CensusMonth != "" {
		return r.CensusMonth
	}
	return model.MonthOf(r.Horizon.StartMonday)
}

// Planner 排程编排器
type Planner struct {
	census    CensusSource
	distances DistanceSource
	opts      Options
	logger    *logger.SchedulerLogger
	tracer    trace.Tracer
	detector  *validator.ConflictDetector
	observer  Observer
}

// Option 编排器选项
type Option func(*Planner)

// WithObserver 设置结果观察者
func WithObserver(o Observer) Option {
	return func(p *Planner) { p.observer = o }
}

// New 创建编排器
func New(census CensusSource, distances DistanceSource, opts Options, options ...Option) *Planner {
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 1
	}
	if opts.Proration == "" {
		opts.Proration = demand.ProrationFull
	}
	p := &Planner{
		census:    census,
		distances: distances,
		opts:      opts,
		logger:    logger.NewSchedulerLogger(),
		tracer:    otel.Tracer("github.com/paiban/visitplan/planner"),
		detector:  validator.NewConflictDetector(nil),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Optimize 按模式分派
func (p *Planner) Optimize(ctx context.Context, req *Request) (*report.Report, error) {
	switch req.Mode {
	case model.ModeSingleProvider:
		return p.RunSingle(ctx, req)
	case model.ModeBusinessLine, model.ModeBusinessLineSequential, "":
		return p.RunBusinessLine(ctx, req)
	default:
		return nil, errors.InvalidInput("optimization_mode", "不支持的优化模式 "+string(req.Mode))
	}
}

// runData 一次运行共享的只读数据
type runData struct {
	runID  string
	census *model.Census
	dist   *distance.Repository
	month  string
}

// load 读取普查与距离数据，同一次运行中所有医生共用
func (p *Planner) load(ctx context.Context, req *Request) (*runData, error) {
	ctx, span := p.tracer.Start(ctx, "planner.load",
		trace.WithAttributes(attribute.String("business_line", req.BusinessLine)))
	defer span.End()

	census, err := p.census.LoadCensus(ctx, req.BusinessLine)
	if err != nil {
		span.RecordError(err)
		return nil, errors.DataUnavailable("census", req.BusinessLine, err)
	}
	dist, err := p.distances.Get(ctx, req.BusinessLine)
	if err != nil {
		span.RecordError(err)
		return nil, errors.DataUnavailable("distance matrix", req.BusinessLine, err)
	}
	return &runData{
		runID:  uuid.New().String(),
		census: census,
		dist:   dist,
		month:  req.censusMonth(),
	}, nil
}

// timeout 请求超时，限制在 MaxTimeout 内
func (p *Planner) timeout(req *Request) time.Duration {
	t := req.Timeout
	if t <= 0 {
		t = p.opts.DefaultTimeout
	}
	if p.opts.MaxTimeout > 0 && t > p.opts.MaxTimeout {
		t = p.opts.MaxTimeout
	}
	return t
}

func (p *Planner) assembler(run *runData, req *Request, solverName string) *report.Assembler {
	return report.NewAssembler(report.Run{
		RunID:        run.runID,
		BusinessLine: req.BusinessLine,
		CensusMonth:  run.month,
		Horizon:      req.Horizon,
		Solver:       solverName,
	}, run.dist)
}

func validateRequest(req *Request) error {
	ve := &errors.ValidationErrors{}
	if req.BusinessLine == "" {
		ve.Add("business_line", "不能为空")
	}
	if req.Horizon.StartMonday.IsZero() {
		ve.Add("start_monday", "不能为空")
	}
	if req.DailyPatientLimit <= 0 {
		ve.Add("max_patients_per_day", "必须大于 0")
	}
	if req.Mode == model.ModeSingleProvider && req.ProviderID == "" {
		ve.Add("selected_provider", "单医生模式必须指定医生")
	}
	if wve := req.Weights.Validate(); wve != nil && wve.HasErrors() {
		ve.Errors = append(ve.Errors, wve.Errors...)
	}
	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}
