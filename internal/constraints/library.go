// Package constraints 描述排程请求可配置的约束与目标项
package constraints

import (
	"strconv"

	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool, array, object
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`     // hard 硬约束, soft 软约束
	Category    string            `json:"category"` // 分类
	Description string            `json:"description"`
	Params      []ConstraintParam `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// GetLibrary 获取完整的约束库
func GetLibrary() []ConstraintDefinition {
	w := model.DefaultObjectiveWeights()
	return []ConstraintDefinition{
		// 硬约束
		{
			Name:        string(constraint.TypeDailyCapacity),
			DisplayName: "每日患者上限",
			Type:        "hard",
			Category:    "容量",
			Description: "每个可工作日安排的患者总数不超过上限，不可工作日为 0。",
			Params: []ConstraintParam{
				{Name: "max_patients_per_day", Type: "int", Description: "每日最大患者数", Default: "15", Min: "1"},
			},
		},
		{
			Name:        "availability",
			DisplayName: "每周可用性与请假",
			Type:        "hard",
			Category:    "可用性",
			Description: "只在医生工作的星期几且不在请假区间的工作日安排访问。",
			Params: []ConstraintParam{
				{Name: "weekly_availability", Type: "object", Description: "星期名 -> {isWorking}"},
				{Name: "pto_requests", Type: "array", Description: "请假区间 {start_date, end_date}，含首尾"},
			},
		},
		{
			Name:        string(constraint.TypeEligibility),
			DisplayName: "机构资格",
			Type:        "hard",
			Category:    "资格",
			Description: "医生只访问普查数据中与其关联的机构；限定星期几的机构只在该星期访问。",
			Params:      []ConstraintParam{},
		},
		{
			Name:        string(constraint.TypeDemandCap),
			DisplayName: "机构需求上限",
			Type:        "hard",
			Category:    "需求",
			Description: "每个机构在周期内安排的患者数不超过调整后的目标 round(census × (1+α))。",
			Params: []ConstraintParam{
				{Name: "alpha", Type: "float", Description: "服务缓冲系数", Default: ftoa(w.Alpha), Min: "0", Max: ftoa(model.MaxAlpha)},
				{Name: "census_month", Type: "string", Description: "普查月份 YYYY-MM，默认为周期开始月份"},
			},
		},
		{
			Name:        string(constraint.TypeRequiredVisit),
			DisplayName: "必访",
			Type:        "hard",
			Category:    "必访",
			Description: "指定日期或每周固定星期访问某机构至少 1 名患者；无法满足时记录原因。",
			Params: []ConstraintParam{
				{Name: "required_visits", Type: "array", Description: "{facility, date | day_of_week}"},
			},
		},
		// 软约束（目标项）
		{
			Name:        string(constraint.TypeWorkloadBalance),
			DisplayName: "工作量均衡",
			Type:        "soft",
			Category:    "公平性",
			Description: "惩罚每日负载与均值的偏差。",
			Params: []ConstraintParam{
				{Name: "lambda_param", Type: "float", Description: "权重 λw", Default: ftoa(w.WorkloadWeight), Min: "0", Max: ftoa(model.MaxPenaltyWeight)},
			},
		},
		{
			Name:        string(constraint.TypeVisitGap),
			DisplayName: "机构访问间隔",
			Type:        "soft",
			Category:    "连续性",
			Description: "惩罚同一机构相邻两次访问的间隔偏离目标窗口 T。",
			Params: []ConstraintParam{
				{Name: "lambda_facility", Type: "float", Description: "权重 λf", Default: ftoa(w.GapWeight), Min: "0", Max: ftoa(model.MaxPenaltyWeight)},
				{Name: "facility_visit_window", Type: "int", Description: "目标间隔 T（工作日）", Default: strconv.Itoa(w.TargetGap), Min: strconv.Itoa(model.MinTargetGap), Max: strconv.Itoa(model.MaxTargetGap)},
			},
		},
		{
			Name:        string(constraint.TypeAntiBunching),
			DisplayName: "防扎堆",
			Type:        "soft",
			Category:    "连续性",
			Description: "只惩罚短于目标窗口 T 的访问间隔。",
			Params: []ConstraintParam{
				{Name: "lambda_bunching", Type: "float", Description: "权重 λb", Default: ftoa(w.BunchingWeight), Min: "0", Max: ftoa(model.MaxPenaltyWeight)},
			},
		},
	}
}

// FindByName 按名称查找约束定义
func FindByName(name string) (ConstraintDefinition, bool) {
	for _, def := range GetLibrary() {
		if def.Name == name {
			return def, true
		}
	}
	return ConstraintDefinition{}, false
}
