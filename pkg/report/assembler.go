package report

import (
	"sort"

	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/route"
	"github.com/paiban/visitplan/pkg/stats"
)

// Run 一次优化运行的公共信息
type Run struct {
	RunID        string
	BusinessLine string
	CensusMonth  string
	Horizon      model.PlanningHorizon
	Solver       string
}

// Assembler 结果组装器
type Assembler struct {
	run         Run
	dist        route.Distances
	workingDays []string
	fairness    *stats.FairnessAnalyzer
	coverage    *stats.CoverageAnalyzer
}

// NewAssembler 创建结果组装器
func NewAssembler(run Run, dist route.Distances) *Assembler {
	days := run.Horizon.WorkingDays()
	keys := make([]string, len(days))
	for i, d := range days {
		keys[i] = model.FormatDate(d)
	}
	return &Assembler{
		run:         run,
		dist:        dist,
		workingDays: keys,
		fairness:    stats.NewFairnessAnalyzer(),
		coverage:    stats.NewCoverageAnalyzer(),
	}
}

// providerPart 单个医生的中间结果
type providerPart struct {
	result *ProviderResult
	served int
	days   map[string]map[string]int
	routes map[string]route.DailyRoute
	travel route.Summary
	loads  []float64
}

// Single 单医生模式输出
func (a *Assembler) Single(r *ProviderResult) *Report {
	rep := a.newReport(model.ModeSingleProvider, r.Status, r.Message)
	rep.Metadata.DataSource = r.DataSource
	rep.Metadata.ProviderAvailability = r.Availability

	part := a.build(r)
	a.add(rep, part)
	a.finish(rep, []*providerPart{part})
	return rep
}

// Batch 业务线批量模式输出，results 按医生编号排序后合并
func (a *Assembler) Batch(results []*ProviderResult) *Report {
	rep := a.newReport(model.ModeBusinessLineSequential, model.StatusCombined, "")
	rep.Metadata.DataSource = DataSourceFallback

	sorted := append([]*ProviderResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProviderID < sorted[j].ProviderID })

	parts := make([]*providerPart, 0, len(sorted))
	for _, r := range sorted {
		if r.DataSource == DataSourceCensus {
			rep.Metadata.DataSource = DataSourceCensus
		}
		part := a.build(r)
		a.add(rep, part)
		parts = append(parts, part)

		rep.ProviderResults = append(rep.ProviderResults, ProviderSummary{
			ProviderID:     r.ProviderID,
			PatientsServed: part.served,
			TravelTime:     part.travel.TotalTravel,
			Utilization:    rep.ProviderUtilization[r.ProviderID],
			Status:         r.Status,
			Message:        r.Message,
		})
	}
	a.finish(rep, parts)
	return rep
}

func (a *Assembler) newReport(mode model.OptimizationMode, status model.ScheduleStatus, message string) *Report {
	h := a.run.Horizon
	return &Report{
		OptimizationMode:    mode,
		Status:              status,
		Message:             message,
		Schedule:            make(Schedule),
		DailyTravelTimes:    make(map[string]map[string]float64),
		ProviderUtilization: make(map[string]float64),
		DailyRoutes:         make(map[string]map[string]route.DailyRoute),
		Warnings:            []model.ConstraintWarning{},
		UnmetRequired:       []model.UnmetRequiredVisit{},
		Metadata: Metadata{
			WorkingDaysList: a.workingDays,
			BusinessLine:    a.run.BusinessLine,
			CensusMonth:     a.run.CensusMonth,
			StartMonday:     model.FormatDate(h.StartMonday),
			DateRange:       h.DateRange(),
			WorkingDays:     len(a.workingDays),
			Weeks:           h.Weeks,
			Solver:          a.run.Solver,
			RunID:           a.run.RunID,
		},
	}
}

// build 计算单个医生的方案、路线与负载
func (a *Assembler) build(r *ProviderResult) *providerPart {
	part := &providerPart{
		result: r,
		days:   make(map[string]map[string]int),
		routes: make(map[string]route.DailyRoute),
	}
	if !r.HasSchedule() {
		return part
	}

	for _, as := range r.Assignments {
		if as.Patients <= 0 {
			continue
		}
		if part.days[as.Date] == nil {
			part.days[as.Date] = make(map[string]int)
		}
		part.days[as.Date][as.FacilityID] += as.Patients
		part.served += as.Patients
	}
	for date, facilities := range part.days {
		dr := route.Estimate(r.ProviderID, route.VisitsFromDay(facilities), a.dist)
		dr.Date = date
		part.routes[date] = dr
	}
	part.travel = route.Summarize(part.routes)
	part.loads = stats.DailyLoads(r.Assignments, r.WorkableDays)
	return part
}

// add 把单个医生写入输出
func (a *Assembler) add(rep *Report, part *providerPart) {
	r := part.result
	rep.TotalPatientDemand += r.Demand
	rep.Warnings = append(rep.Warnings, r.Warnings...)
	rep.UnmetRequired = append(rep.UnmetRequired, r.Unmet...)
	rep.ProviderUtilization[r.ProviderID] = model.Round(stats.Utilization(part.served, len(a.workingDays), r.Limit), 1)

	if !r.HasSchedule() {
		return
	}

	rep.Schedule[r.ProviderID] = part.days
	rep.DailyRoutes[r.ProviderID] = part.routes
	rep.TotalPatientsServed += part.served

	travel := make(map[string]float64, len(a.workingDays))
	for _, d := range a.workingDays {
		travel[d] = part.routes[d].TotalTravel
	}
	rep.DailyTravelTimes[r.ProviderID] = travel
}

// finish 计算跨医生的汇总
func (a *Assembler) finish(rep *Report, parts []*providerPart) {
	summaries := make([]route.Summary, 0, len(parts))
	capacity := 0
	facilities := make(map[string]bool)
	daysWorked := 0
	var loads []float64
	targets := make(map[string]int)
	var served []model.Assignment

	for _, p := range parts {
		summaries = append(summaries, p.travel)
		capacity += len(a.workingDays) * p.result.Limit
		daysWorked += len(p.days)
		for _, day := range p.days {
			for f := range day {
				facilities[f] = true
			}
		}
		loads = append(loads, p.loads...)
		for f, t := range p.result.Targets {
			targets[f] += t
		}
		if p.result.HasSchedule() {
			for _, as := range p.result.Assignments {
				if as.Patients > 0 {
					served = append(served, as)
				}
			}
		}
	}

	travel := route.Merge(summaries...)
	rep.TotalTravelTime = travel.TotalTravel
	rep.HomeTravel = travel.HomeToFacility
	rep.FacilityTravel = travel.FacilityToFacility

	rep.CoverageRate = model.Round(stats.CoverageRate(rep.TotalPatientsServed, rep.TotalPatientDemand), 1)
	rep.IsGoalMet = rep.TotalPatientsServed >= rep.TotalPatientDemand
	if capacity > 0 {
		rep.OverallUtilization = model.Round(float64(rep.TotalPatientsServed)/float64(capacity)*100, 1)
	}

	summary := SummaryStats{
		DaysWorked:        daysWorked,
		FacilitiesVisited: len(facilities),
		TotalPatientsSeen: rep.TotalPatientsServed,
		TotalTravelTime:   travel.TotalTravel,
		AvgTravelPerDay:   travel.AvgTravelPerDay,
	}
	if daysWorked > 0 {
		summary.AvgPatientsPerDay = model.Round(float64(rep.TotalPatientsServed)/float64(daysWorked), 1)
	}
	if len(loads) > 0 {
		fm := a.fairness.Analyze(loads)
		summary.WorkloadGini = model.Round(fm.Gini, 3)
		summary.WorkloadStdDev = model.Round(fm.StdDev, 2)
	}
	rep.SummaryStats = summary

	// 多个医生共享的机构按目标与服务量合计
	cm := a.coverage.Analyze(served, targets)
	rep.FacilityCoverage = cm.FacilityCoverage
	rep.Uncovered = cm.Uncovered
}
