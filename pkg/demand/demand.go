// Package demand 根据月度普查数据计算周期内各机构的患者目标
package demand

import (
	"fmt"
	"math"
	"time"

	"github.com/paiban/visitplan/pkg/model"
	"github.com/paiban/visitplan/pkg/scheduler/constraint"
)

// Proration 普查月与周期重叠的折算方式
type Proration string

const (
	// ProrationFull 周期内有任一工作日落在普查月即按整月计
	ProrationFull Proration = "full"
	// ProrationWorkdays 按周期覆盖的普查月工作日比例折算
	ProrationWorkdays Proration = "workdays"
)

// ParseProration 解析折算方式，空字符串为 full
func ParseProration(s string) (Proration, error) {
	switch Proration(s) {
	case "", ProrationFull:
		return ProrationFull, nil
	case ProrationWorkdays:
		return ProrationWorkdays, nil
	default:
		return "", fmt.Errorf("未知的折算方式 %q", s)
	}
}

// Target 单个机构的目标
type Target struct {
	FacilityID string  `json:"facility_id"`
	Census     float64 `json:"census"`
	Target     int     `json:"target"`
}

// Table 一个医生的需求表
type Table struct {
	ProviderID string    `json:"provider_id"`
	Month      string    `json:"census_month"`
	Overlap    float64   `json:"overlap_fraction"`
	Alpha      float64   `json:"alpha"`
	Targets    []Target  `json:"targets"` // 按机构排序，只含目标 > 0 的机构
	Excluded   []string  `json:"excluded,omitempty"`
	Proration  Proration `json:"proration"`
}

// Input 计算输入
type Input struct {
	Census    *model.Census
	Provider  *model.Provider
	Month     string // YYYY-MM，空时取周期开始的月份
	Horizon   model.PlanningHorizon
	Alpha     float64
	Proration Proration
}

// Build 计算目标：max(0, round(census × overlap × (1+α)))
func Build(in Input) (*Table, error) {
	month := in.Month
	if month == "" {
		month = model.MonthOf(in.Horizon.StartMonday)
	}
	monthStart, err := time.ParseInLocation(model.MonthLayout, month, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("普查月份格式无效 %q: %w", month, err)
	}

	overlap := OverlapFraction(in.Horizon, monthStart, in.Proration)
	table := &Table{
		ProviderID: in.Provider.ID,
		Month:      month,
		Overlap:    overlap,
		Alpha:      in.Alpha,
		Proration:  in.Proration,
	}

	for _, facilityID := range in.Provider.SortedFacilities() {
		census := in.Census.Count(in.Provider.ID, facilityID, month)
		target := AdjustedTarget(census, overlap, in.Alpha)
		if target <= 0 {
			table.Excluded = append(table.Excluded, facilityID)
			continue
		}
		table.Targets = append(table.Targets, Target{FacilityID: facilityID, Census: census, Target: target})
	}
	return table, nil
}

// AdjustedTarget 单个机构的缓冲后目标
func AdjustedTarget(census, overlap, alpha float64) int {
	v := math.Round(census * overlap * (1 + alpha))
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(v)
}

// OverlapFraction 周期与普查月的重叠比例
func OverlapFraction(h model.PlanningHorizon, monthStart time.Time, p Proration) float64 {
	inHorizon := 0
	for _, d := range h.WorkingDays() {
		if d.Year() == monthStart.Year() && d.Month() == monthStart.Month() {
			inHorizon++
		}
	}
	if inHorizon == 0 {
		return 0
	}
	if p != ProrationWorkdays {
		return 1
	}

	inMonth := 0
	for d := monthStart; d.Month() == monthStart.Month(); d = d.AddDate(0, 0, 1) {
		if model.IsWeekday(d) {
			inMonth++
		}
	}
	return math.Min(1, float64(inHorizon)/float64(inMonth))
}

// TotalTarget 目标总数
func (t *Table) TotalTarget() int {
	total := 0
	for _, f := range t.Targets {
		total += f.Target
	}
	return total
}

// TargetMap 机构 -> 目标
func (t *Table) TargetMap() map[string]int {
	out := make(map[string]int, len(t.Targets))
	for _, f := range t.Targets {
		out[f.FacilityID] = f.Target
	}
	return out
}

// TotalCensus 普查总数（未缓冲）
func (t *Table) TotalCensus() float64 {
	total := 0.0
	for _, f := range t.Targets {
		total += f.Census
	}
	return total
}

// Demands 转换为求解器使用的需求列表
func (t *Table) Demands() []constraint.FacilityDemand {
	out := make([]constraint.FacilityDemand, 0, len(t.Targets))
	for _, f := range t.Targets {
		out = append(out, constraint.FacilityDemand{ID: f.FacilityID, Census: f.Census, Target: f.Target})
	}
	return out
}
