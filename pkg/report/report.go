// Package report 把求解结果与路线估算合并为对外输出
//
// 所有键都使用真实的医生、机构编号与 ISO 日期。
package report

import (
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/route"
	"github.com/paiban/visitplan/pkg/stats"
)

// 数据来源标签
const (
	DataSourceCensus   = "real_census_data"
	DataSourceFallback = "fallback_uniform"
)

// Schedule 医生 -> 日期 -> 机构 -> 患者数
type Schedule map[string]map[string]map[string]int

// Report 优化结果
type Report struct {
	OptimizationMode    model.OptimizationMode                 `json:"optimization_mode"`
	Status              model.ScheduleStatus                   `json:"status"`
	Message             string                                 `json:"message,omitempty"`
	Schedule            Schedule                               `json:"schedule"`
	DailyTravelTimes    map[string]map[string]float64          `json:"daily_travel_times"`
	ProviderUtilization map[string]float64                     `json:"provider_utilization"`
	Metadata            Metadata                               `json:"metadata"`
	TotalPatientsServed int                                    `json:"total_patients_served"`
	TotalPatientDemand  int                                    `json:"total_patient_demand"`
	TotalTravelTime     float64                                `json:"total_travel_time"`
	HomeTravel          float64                                `json:"home_to_facility_travel"`
	FacilityTravel      float64                                `json:"facility_to_facility_travel"`
	OverallUtilization  float64                                `json:"overall_utilization"`
	CoverageRate        float64                                `json:"coverage_rate"`
	IsGoalMet           bool                                   `json:"is_goal_met"`
	SummaryStats        SummaryStats                           `json:"summary_stats"`
	FacilityCoverage    map[string]stats.FacilityCoverage      `json:"facility_coverage"`
	Uncovered           []stats.UncoveredFacility              `json:"uncovered,omitempty"`
	Warnings            []model.ConstraintWarning              `json:"warnings"`
	UnmetRequired       []model.UnmetRequiredVisit             `json:"unmet_required_visits"`
	DailyRoutes         map[string]map[string]route.DailyRoute `json:"daily_routes"`
	ProviderResults     []ProviderSummary                      `json:"provider_results_summary,omitempty"`
}

// Metadata 运行元数据
type Metadata struct {
	WorkingDaysList      []string        `json:"working_days_list"`
	BusinessLine         string          `json:"business_line"`
	CensusMonth          string          `json:"census_month"`
	DataSource           string          `json:"data_source"`
	StartMonday          string          `json:"start_monday"`
	DateRange            model.DateRange `json:"date_range"`
	WorkingDays          int             `json:"working_days"`
	Weeks                int             `json:"weeks"`
	Solver               string          `json:"solver"`
	RunID                string          `json:"run_id"`
	ProviderAvailability *Availability   `json:"provider_availability,omitempty"`
	CapacityCheck        *CapacityCheck  `json:"capacity_check,omitempty"`
}

// Availability 单个医生的可用情况
type Availability struct {
	TotalCalendarDays int      `json:"total_calendar_days"`
	UnavailableDays   int      `json:"unavailable_days"`
	AvailableDays     int      `json:"available_days"`
	UnavailableDates  []string `json:"unavailable_dates_list"`
}

// CapacityCheck 需求与容量的预检结果
type CapacityCheck struct {
	TotalDemand   int      `json:"total_demand"`
	AvailableDays int      `json:"available_days"`
	DailyLimit    int      `json:"daily_limit"`
	TotalCapacity int      `json:"total_capacity"`
	Sufficient    bool     `json:"sufficient"`
	Shortfall     int      `json:"shortfall"`
	Suggestions   []string `json:"suggestions,omitempty"`
}

// SummaryStats 汇总统计
type SummaryStats struct {
	DaysWorked        int     `json:"days_worked"`
	FacilitiesVisited int     `json:"facilities_visited"`
	TotalPatientsSeen int     `json:"total_patients_seen"`
	AvgPatientsPerDay float64 `json:"avg_patients_per_day"`
	TotalTravelTime   float64 `json:"total_travel_time"`
	AvgTravelPerDay   float64 `json:"avg_travel_per_day"`
	WorkloadGini      float64 `json:"workload_gini"`
	WorkloadStdDev    float64 `json:"workload_std_dev"`
}

// ProviderSummary 批量模式下单个医生的结果
type ProviderSummary struct {
	ProviderID     string               `json:"provider_id"`
	PatientsServed int                  `json:"patients_served"`
	TravelTime     float64              `json:"travel_time"`
	Utilization    float64              `json:"utilization"`
	Status         model.ScheduleStatus `json:"status"`
	Message        string               `json:"message,omitempty"`
}

// ProviderResult 单个医生的求解输出，是组装器的输入
type ProviderResult struct {
	ProviderID   string
	Status       model.ScheduleStatus
	Message      string
	Assignments  []model.Assignment // 不可行时为空
	Demand       int
	Targets      map[string]int // 机构 -> 需求目标
	Limit        int
	WorkableDays []string // 实际可工作的日期，用于负载均衡统计
	Warnings     []model.ConstraintWarning
	Unmet        []model.UnmetRequiredVisit
	DataSource   string
	Availability *Availability
}

// HasSchedule 是否有可输出的方案
func (r *ProviderResult) HasSchedule() bool {
	switch r.Status {
	case model.StatusOptimal, model.StatusTimeLimit:
		return true
	default:
		return false
	}
}
