package handler

import (
	"fmt"
	"regexp"
	"time"

	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/planner"
)

// 请求默认值
const (
	DefaultBusinessLine      = "Wisconsin Geriatrics"
	DefaultMaxPatientsPerDay = 15
	DefaultWeeks             = 4
	MaxTimeoutSeconds        = 120
)

var censusMonthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// OptimizeRequest 优化请求
//
// 数值字段为指针，区分未提供（取默认值）与显式的 0。
type OptimizeRequest struct {
	BusinessLine        string   `json:"business_line"`
	StartMonday         string   `json:"start_monday"`
	Weeks               *int     `json:"weeks,omitempty"`
	OptimizationMode    string   `json:"optimization_mode"`
	SelectedProvider    string   `json:"selected_provider,omitempty"`
	MaxPatientsPerDay   *int     `json:"max_patients_per_day,omitempty"`
	LambdaParam         *float64 `json:"lambda_param,omitempty"`
	LambdaFacility      *float64 `json:"lambda_facility,omitempty"`
	LambdaBunching      *float64 `json:"lambda_bunching,omitempty"`
	Alpha               *float64 `json:"alpha,omitempty"`
	FacilityVisitWindow *int     `json:"facility_visit_window,omitempty"`
	CensusMonth         string   `json:"census_month,omitempty"`
	TimeoutSeconds      int      `json:"timeout_seconds,omitempty"`

	// ProviderConstraints 作用于 selected_provider
	ProviderConstraints *ProviderConstraintsInput `json:"provider_constraints,omitempty"`
	// ProvidersConstraints 按医生编号提供约束，用于业务线模式
	ProvidersConstraints map[string]ProviderConstraintsInput `json:"providers_constraints,omitempty"`
}

// ProviderConstraintsInput 医生约束
type ProviderConstraintsInput struct {
	DailyPatientLimit    int                   `json:"dailyPatientLimit,omitempty"`
	PTORequests          []PTORequest          `json:"ptoRequests,omitempty"`
	WeeklyAvailability   []WeekdayAvailability `json:"weeklyAvailability,omitempty"`
	DateConstraints      []DateConstraint      `json:"dateConstraints,omitempty"`
	DayOfWeekConstraints []DayOfWeekConstraint `json:"dayOfWeekConstraints,omitempty"`
}

// PTORequest 请假
type PTORequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason,omitempty"`
}

// WeekdayAvailability 某个星期几是否工作
type WeekdayAvailability struct {
	Day       string `json:"day"`
	IsWorking bool   `json:"isWorking"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// DateConstraint 指定日期必访
type DateConstraint struct {
	FacilityID string `json:"facilityId"`
	Date       string `json:"date"`
}

// DayOfWeekConstraint 每周固定星期必访
type DayOfWeekConstraint struct {
	FacilityID string `json:"facilityId"`
	Day        string `json:"day"`
}

// toModel 转换为模型约束，星期名在此校验
func (in ProviderConstraintsInput) toModel(providerID, field string, ve *errors.ValidationErrors) model.ProviderConstraints {
	out := model.ProviderConstraints{
		ProviderID:        providerID,
		DailyPatientLimit: in.DailyPatientLimit,
	}
	if in.DailyPatientLimit < 0 {
		ve.Add(field+".dailyPatientLimit", "不能为负数")
	}
	if len(in.WeeklyAvailability) > 0 {
		out.WeeklyAvailability = make(model.WeeklyAvailability, len(in.WeeklyAvailability))
		for i, wa := range in.WeeklyAvailability {
			dayField := fmt.Sprintf("%s.weeklyAvailability[%d].day", field, i)
			wd, err := model.ParseWeekday(wa.Day)
			if err != nil {
				ve.Add(dayField, err.Error())
				continue
			}
			if _, dup := out.WeeklyAvailability[wd.String()]; dup {
				ve.Add(dayField, fmt.Sprintf("%s 重复配置", wd))
				continue
			}
			out.WeeklyAvailability[wd.String()] = model.DayAvailability{
				IsWorking: wa.IsWorking,
				StartTime: wa.StartTime,
				EndTime:   wa.EndTime,
			}
		}
	}
	for _, pto := range in.PTORequests {
		out.Leave = append(out.Leave, model.LeaveInterval{Start: pto.StartDate, End: pto.EndDate, Reason: pto.Reason})
	}
	for _, dc := range in.DateConstraints {
		out.RequiredVisits = append(out.RequiredVisits, model.RequiredVisit{FacilityID: dc.FacilityID, Date: dc.Date})
	}
	for _, dw := range in.DayOfWeekConstraints {
		out.RequiredVisits = append(out.RequiredVisits, model.RequiredVisit{FacilityID: dw.FacilityID, DayOfWeek: dw.Day})
	}
	return out
}

// weights 合并默认目标权重
func (r *OptimizeRequest) weights() model.ObjectiveWeights {
	w := model.DefaultObjectiveWeights()
	if r.LambdaParam != nil {
		w.WorkloadWeight = *r.LambdaParam
	}
	if r.LambdaFacility != nil {
		w.GapWeight = *r.LambdaFacility
	}
	if r.LambdaBunching != nil {
		w.BunchingWeight = *r.LambdaBunching
	}
	if r.Alpha != nil {
		w.Alpha = *r.Alpha
	}
	if r.FacilityVisitWindow != nil {
		w.TargetGap = *r.FacilityVisitWindow
	}
	return w
}

// ToPlannerRequest 填充默认值、校验并转换为编排请求
func (r *OptimizeRequest) ToPlannerRequest(businessLines []string) (*planner.Request, error) {
	ve := &errors.ValidationErrors{}

	businessLine := r.BusinessLine
	if businessLine == "" {
		businessLine = DefaultBusinessLine
	}
	if !contains(businessLines, businessLine) {
		ve.Add("business_line", fmt.Sprintf("未配置的业务线 %q", businessLine))
	}

	weeks := DefaultWeeks
	if r.Weeks != nil {
		weeks = *r.Weeks
	}
	var horizon model.PlanningHorizon
	invalidHorizon := false
	if r.StartMonday == "" {
		ve.Add("start_monday", "不能为空")
	} else if h, err := model.NewPlanningHorizon(r.StartMonday, weeks); err != nil {
		ve.Add("start_monday", err.Error())
		invalidHorizon = true
	} else {
		horizon = h
	}

	mode := model.OptimizationMode(r.OptimizationMode)
	switch mode {
	case "":
		mode = model.ModeBusinessLine
	case model.ModeSingleProvider, model.ModeBusinessLine, model.ModeBusinessLineSequential:
	default:
		ve.Add("optimization_mode", fmt.Sprintf("不支持的优化模式 %q", r.OptimizationMode))
	}
	if mode == model.ModeSingleProvider && r.SelectedProvider == "" {
		ve.Add("selected_provider", "单医生模式必须指定医生")
	}

	limit := DefaultMaxPatientsPerDay
	if r.MaxPatientsPerDay != nil {
		limit = *r.MaxPatientsPerDay
	}
	if limit <= 0 {
		ve.Add("max_patients_per_day", "必须大于 0")
	}

	w := r.weights()
	if wve := w.Validate(); wve.HasErrors() {
		ve.Errors = append(ve.Errors, wve.Errors...)
	}

	if r.CensusMonth != "" && !censusMonthPattern.MatchString(r.CensusMonth) {
		ve.Add("census_month", "格式应为 YYYY-MM")
	}
	if r.TimeoutSeconds < 0 || r.TimeoutSeconds > MaxTimeoutSeconds {
		ve.Add("timeout_seconds", fmt.Sprintf("取值范围 0-%d", MaxTimeoutSeconds))
	}

	constraints := make(map[string]model.ProviderConstraints, len(r.ProvidersConstraints)+1)
	for id, in := range r.ProvidersConstraints {
		constraints[id] = in.toModel(id, "providers_constraints."+id, ve)
	}
	if r.ProviderConstraints != nil {
		if r.SelectedProvider == "" {
			ve.Add("provider_constraints", "需要同时指定 selected_provider")
		} else {
			constraints[r.SelectedProvider] = r.ProviderConstraints.toModel(r.SelectedProvider, "provider_constraints", ve)
		}
	}

	if ve.HasErrors() {
		appErr := ve.ToAppError()
		if invalidHorizon {
			appErr.Code = errors.CodeInvalidHorizon
			appErr.Message = "排程周期无效"
		}
		return nil, appErr
	}
	return &planner.Request{
		BusinessLine:      businessLine,
		Horizon:           horizon,
		Mode:              mode,
		ProviderID:        r.SelectedProvider,
		DailyPatientLimit: limit,
		Weights:           w,
		CensusMonth:       r.CensusMonth,
		Timeout:           time.Duration(r.TimeoutSeconds) * time.Second,
		Constraints:       constraints,
	}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
