package validator

import (
	"testing"

	"github.com/paiban/visitplan/pkg/model"
)

func testRules() Rules {
	return Rules{
		ProviderID: "P1",
		Limit:      10,
		Workable:   map[string]bool{"2024-12-02": true, "2024-12-03": true},
		Horizon:    map[string]bool{"2024-12-02": true, "2024-12-03": true, "2024-12-06": true},
		Targets:    map[string]int{"A": 12, "B": 5},
	}
}

func TestConflictDetector_DetectAll(t *testing.T) {
	detector := NewConflictDetector(DefaultDetectorConfig())

	assignments := []model.Assignment{
		{ProviderID: "P1", Date: "2024-12-02", FacilityID: "A", Patients: 6},
		{ProviderID: "P1", Date: "2024-12-02", FacilityID: "B", Patients: 4},
		{ProviderID: "P1", Date: "2024-12-03", FacilityID: "A", Patients: 6},
	}

	conflicts := detector.DetectAll(assignments, testRules())

	// 正常方案不应有冲突
	if len(conflicts) != 0 {
		t.Errorf("Expected 0 conflicts, got %d", len(conflicts))
		for _, c := range conflicts {
			t.Logf("Conflict: %s", c.Message)
		}
	}
}

func TestConflictDetector_DetectCapacity(t *testing.T) {
	detector := NewConflictDetector(nil)

	assignments := []model.Assignment{
		{ProviderID: "P1", Date: "2024-12-02", FacilityID: "A", Patients: 8},
		{ProviderID: "P1", Date: "2024-12-02", FacilityID: "B", Patients: 3},
	}

	conflicts := detector.DetectAll(assignments, testRules())
	if len(conflicts) != 1 || conflicts[0].Type != ConflictCapacity {
		t.Fatalf("应检测到容量冲突: %+v", conflicts)
	}
	if !HasErrors(conflicts) {
		t.Error("容量冲突应为错误")
	}
}

func TestConflictDetector_DetectAvailabilityAndHorizon(t *testing.T) {
	detector := NewConflictDetector(nil)

	assignments := []model.Assignment{
		{ProviderID: "P1", Date: "2024-12-06", FacilityID: "A", Patients: 1}, // 周期内但不可工作
		{ProviderID: "P1", Date: "2024-12-07", FacilityID: "A", Patients: 1}, // 周末
	}

	conflicts := detector.DetectAll(assignments, testRules())
	if len(conflicts) != 2 {
		t.Fatalf("Expected 2 conflicts, got %d: %+v", len(conflicts), conflicts)
	}
	if conflicts[0].Type != ConflictAvailability || conflicts[1].Type != ConflictHorizon {
		t.Errorf("冲突类型不符: %s, %s", conflicts[0].Type, conflicts[1].Type)
	}
}

func TestConflictDetector_DetectDemand(t *testing.T) {
	detector := NewConflictDetector(nil)

	assignments := []model.Assignment{
		{ProviderID: "P1", Date: "2024-12-02", FacilityID: "B", Patients: 3},
		{ProviderID: "P1", Date: "2024-12-03", FacilityID: "B", Patients: 3},
		{ProviderID: "P1", Date: "2024-12-03", FacilityID: "Z", Patients: 1},
	}

	conflicts := detector.DetectAll(assignments, testRules())

	types := map[ConflictType]bool{}
	for _, c := range conflicts {
		types[c.Type] = true
	}
	if !types[ConflictDemand] {
		t.Error("应检测到超过需求目标")
	}
	if !types[ConflictFacility] {
		t.Error("应检测到未知机构")
	}
}

func TestConflictDetector_DuplicateAndNonPositive(t *testing.T) {
	detector := NewConflictDetector(&DetectorConfig{})

	assignments := []model.Assignment{
		{ProviderID: "P1", Date: "2024-12-02", FacilityID: "A", Patients: 1},
		{ProviderID: "P1", Date: "2024-12-02", FacilityID: "A", Patients: 0},
	}

	conflicts := detector.DetectAll(assignments, testRules())
	if len(conflicts) != 2 {
		t.Fatalf("Expected 2 conflicts, got %d: %+v", len(conflicts), conflicts)
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors(nil) {
		t.Error("空列表不应有错误")
	}
	if !HasErrors([]Conflict{{Severity: "warning"}, {Severity: "error"}}) {
		t.Error("应检测到错误")
	}
}
