// Package stats 提供排程统计分析功能
package stats

import (
	"sort"

	"github.com/paiban/visitplan/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalDemand  int     `json:"total_patient_demand"`  // 需求目标总数
	Served       int     `json:"total_patients_served"` // 已安排患者数
	CoverageRate float64 `json:"coverage_rate"`         // 覆盖率 (%)
	IsGoalMet    bool    `json:"is_goal_met"`

	// 按机构统计
	FacilityCoverage map[string]FacilityCoverage `json:"facility_coverage"`

	// 未完全覆盖的机构，按缺口从大到小
	Uncovered []UncoveredFacility `json:"uncovered,omitempty"`
}

// FacilityCoverage 单个机构的覆盖
type FacilityCoverage struct {
	Target       int     `json:"target"`
	Served       int     `json:"served"`
	Visits       int     `json:"visits"`
	CoverageRate float64 `json:"coverage_rate"`
}

// UncoveredFacility 未完全覆盖的机构
type UncoveredFacility struct {
	FacilityID string `json:"facility"`
	Target     int    `json:"target"`
	Served     int    `json:"served"`
	Shortage   int    `json:"shortage"`
}

// CoverageRate 覆盖率：需求为 0 时定义为 100%
func CoverageRate(served, demand int) float64 {
	if demand <= 0 {
		return 100
	}
	return float64(served) / float64(demand) * 100
}

// Utilization 容量利用率：served / (days × limit)
func Utilization(served, days, limit int) float64 {
	capacity := days * limit
	if capacity <= 0 {
		return 0
	}
	return float64(served) / float64(capacity) * 100
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析覆盖率，targets 为机构需求目标
func (c *CoverageAnalyzer) Analyze(assignments []model.Assignment, targets map[string]int) *CoverageMetrics {
	m := &CoverageMetrics{
		FacilityCoverage: make(map[string]FacilityCoverage, len(targets)),
	}

	for id, target := range targets {
		m.TotalDemand += target
		m.FacilityCoverage[id] = FacilityCoverage{Target: target}
	}
	for _, a := range assignments {
		m.Served += a.Patients
		fc := m.FacilityCoverage[a.FacilityID]
		fc.Served += a.Patients
		fc.Visits++
		m.FacilityCoverage[a.FacilityID] = fc
	}

	for id, fc := range m.FacilityCoverage {
		fc.CoverageRate = model.Round(CoverageRate(fc.Served, fc.Target), 1)
		m.FacilityCoverage[id] = fc
		if fc.Served < fc.Target {
			m.Uncovered = append(m.Uncovered, UncoveredFacility{
				FacilityID: id,
				Target:     fc.Target,
				Served:     fc.Served,
				Shortage:   fc.Target - fc.Served,
			})
		}
	}
	sort.Slice(m.Uncovered, func(i, j int) bool {
		if m.Uncovered[i].Shortage != m.Uncovered[j].Shortage {
			return m.Uncovered[i].Shortage > m.Uncovered[j].Shortage
		}
		return m.Uncovered[i].FacilityID < m.Uncovered[j].FacilityID
	})

	m.CoverageRate = model.Round(CoverageRate(m.Served, m.TotalDemand), 1)
	m.IsGoalMet = m.Served >= m.TotalDemand
	return m
}
