package stats

import (
	"testing"

	"github.com/paiban/visitplan/pkg/model"
)

func TestCoverageRate(t *testing.T) {
	tests := []struct {
		name           string
		served, demand int
		want           float64
	}{
		{"零需求零安排", 0, 0, 100},
		{"零需求有安排", 5, 0, 100},
		{"零安排", 0, 40, 0},
		{"部分覆盖", 30, 40, 75},
		{"完全覆盖", 40, 40, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoverageRate(tt.served, tt.demand); got != tt.want {
				t.Errorf("CoverageRate(%d, %d) = %v, want %v", tt.served, tt.demand, got, tt.want)
			}
		})
	}
}

func TestUtilization(t *testing.T) {
	if got := Utilization(150, 20, 15); got != 50 {
		t.Errorf("Utilization = %v, want 50", got)
	}
	if got := Utilization(10, 0, 15); got != 0 {
		t.Errorf("零容量利用率应为 0, got %v", got)
	}
}

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	analyzer := NewCoverageAnalyzer()
	assignments := []model.Assignment{
		{Date: "2024-12-02", FacilityID: "F1", Patients: 15},
		{Date: "2024-12-03", FacilityID: "F1", Patients: 15},
		{Date: "2024-12-03", FacilityID: "F2", Patients: 2},
	}
	m := analyzer.Analyze(assignments, map[string]int{"F1": 30, "F2": 10, "F3": 4})

	if m.TotalDemand != 44 || m.Served != 32 {
		t.Errorf("demand/served = %d/%d", m.TotalDemand, m.Served)
	}
	if m.CoverageRate != 72.7 {
		t.Errorf("CoverageRate = %v, want 72.7", m.CoverageRate)
	}
	if m.IsGoalMet {
		t.Error("未完全覆盖时 IsGoalMet 应为 false")
	}
	if fc := m.FacilityCoverage["F1"]; fc.Visits != 2 || fc.CoverageRate != 100 {
		t.Errorf("F1 = %+v", fc)
	}
	if len(m.Uncovered) != 2 || m.Uncovered[0].FacilityID != "F2" || m.Uncovered[0].Shortage != 8 {
		t.Errorf("Uncovered = %+v", m.Uncovered)
	}
}

func TestCoverageAnalyzer_NoDemand(t *testing.T) {
	m := NewCoverageAnalyzer().Analyze(nil, nil)
	if m.CoverageRate != 100 || !m.IsGoalMet {
		t.Errorf("零需求应为 100%% 且达标: %+v", m)
	}
}
