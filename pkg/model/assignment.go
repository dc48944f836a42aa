package model

// ScheduleStatus 求解状态
type ScheduleStatus string

const (
	StatusOptimal    ScheduleStatus = "Optimal"
	StatusTimeLimit  ScheduleStatus = "Feasible (Time Limit)"
	StatusInfeasible ScheduleStatus = "Infeasible"
	StatusTimeout    ScheduleStatus = "Timeout"
	StatusError      ScheduleStatus = "Error"
	StatusCombined   ScheduleStatus = "Combined Sequential Optimization"
)

// OptimizationMode 优化模式
type OptimizationMode string

const (
	ModeSingleProvider         OptimizationMode = "single_provider"
	ModeBusinessLine           OptimizationMode = "full_business_line"
	ModeBusinessLineSequential OptimizationMode = "full_business_line_sequential"
)

// Assignment 输出单元：(医生, 日期, 机构) -> 患者数
type Assignment struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	FacilityID string `json:"facility_id"`
	Patients   int    `json:"patients"`
}

// UnmetRequiredVisit 未满足的必访
type UnmetRequiredVisit struct {
	ProviderID string `json:"provider_id"`
	FacilityID string `json:"facility"`
	Date       string `json:"date"`
	Reason     string `json:"reason"`
}

// ConstraintWarning 约束冲突警告
type ConstraintWarning struct {
	ProviderID string `json:"provider_id"`
	FacilityID string `json:"facility,omitempty"`
	Date       string `json:"date,omitempty"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}
