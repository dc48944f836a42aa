package solver

import (
	"context"
	"testing"
	"time"

	"github.com/paiban/visitplan/pkg/scheduler/constraint"
	"github.com/paiban/visitplan/pkg/scheduler/constraint/builtin"
)

func buildContext(days, capacity int, targets map[string]int, order ...string) *constraint.Context {
	start := time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC)
	list := make([]constraint.Day, days)
	for i := range list {
		d := start.AddDate(0, 0, i)
		list[i] = constraint.Day{Index: i, Date: d, Key: d.Format("2006-01-02"), Workable: true, Capacity: capacity}
	}
	facilities := make([]constraint.FacilityDemand, 0, len(order))
	for _, id := range order {
		facilities = append(facilities, constraint.FacilityDemand{ID: id, Target: targets[id]})
	}
	ctx := constraint.NewContext("P1", list, facilities)
	ctx.Objective = constraint.Objective{CoverageWeight: 1000, TargetGap: 10}
	return ctx
}

func newSolver() *FlowSolver {
	return NewFlowSolver(builtin.NewDefaultManager(constraint.Objective{TargetGap: 10}))
}

func TestFlowSolver_CoversDemandWithinCapacity(t *testing.T) {
	ctx := buildContext(4, 15, map[string]int{"F1": 40}, "F1")

	result, err := newSolver().Solve(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("应满足硬约束: %s", result.Message)
	}
	if got := ctx.TotalPatients(); got != 40 {
		t.Errorf("TotalPatients = %d, want 40", got)
	}
	for d := range ctx.Days {
		if ctx.DayLoad(d) > 15 {
			t.Errorf("第 %d 天超过上限: %d", d, ctx.DayLoad(d))
		}
	}
	if result.Statistics.CoverageRate != 100 {
		t.Errorf("CoverageRate = %v", result.Statistics.CoverageRate)
	}
}

func TestFlowSolver_MaximizesCoverageAcrossRestrictions(t *testing.T) {
	// F2 只能第 0 天，贪心若先把第 0 天给 F1 会损失覆盖
	ctx := buildContext(2, 10, map[string]int{"F1": 10, "F2": 10}, "F1", "F2")
	ctx.Forbid(1, 1)

	if _, err := newSolver().Solve(context.Background(), ctx); err != nil {
		t.Fatal(err)
	}
	if got := ctx.TotalPatients(); got != 20 {
		t.Errorf("TotalPatients = %d, want 20", got)
	}
	if ctx.Plan[0][1] != 10 || ctx.Plan[1][0] != 10 {
		t.Errorf("Plan = %v", ctx.Plan)
	}
}

func TestFlowSolver_RequiredVisits(t *testing.T) {
	ctx := buildContext(3, 2, map[string]int{"F1": 10, "F2": 1, "F3": 5}, "F1", "F2", "F3")
	ctx.SetRequired([]constraint.RequiredSlot{
		{FacilityID: "F1", Facility: 0, Day: 0, Date: "2024-12-02"},
		{FacilityID: "F2", Facility: 1, Day: 0, Date: "2024-12-02"},
		{FacilityID: "F3", Facility: 2, Day: 0, Date: "2024-12-02"}, // 容量已满
		{FacilityID: "F2", Facility: 1, Day: 1, Date: "2024-12-03"}, // 需求已用完
		{FacilityID: "F9", Facility: -1, Day: 2, Date: "2024-12-04"},
	})

	result, err := newSolver().Solve(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}

	if result.Statistics.RequiredPlaced != 2 || result.Statistics.RequiredUnmet != 3 {
		t.Errorf("placed=%d unmet=%d", result.Statistics.RequiredPlaced, result.Statistics.RequiredUnmet)
	}
	reasons := map[string]string{}
	for _, u := range result.Unmet {
		reasons[u.FacilityID+"@"+u.Date] = u.Reason
	}
	want := map[string]string{
		"F3@2024-12-02": ReasonDailyCapacity,
		"F2@2024-12-03": ReasonDemandExhausted,
		"F9@2024-12-04": ReasonNoDemand,
	}
	for k, v := range want {
		if reasons[k] != v {
			t.Errorf("%s reason = %q, want %q", k, reasons[k], v)
		}
	}
	if !ctx.IsPinned(0, 0) || !ctx.IsPinned(0, 1) || ctx.IsPinned(0, 2) {
		t.Error("只有已放置的必访应被固定")
	}
	if ctx.Plan[0][0] < 1 || ctx.Plan[0][1] < 1 {
		t.Errorf("必访单元格应至少 1 名患者: %v", ctx.Plan)
	}
	if got := ctx.TotalPatients(); got != 6 {
		t.Errorf("TotalPatients = %d, want 6 (3 天 × 2)", got)
	}
}

func TestFlowSolver_NoWorkableDays(t *testing.T) {
	ctx := buildContext(0, 15, map[string]int{"F1": 10}, "F1")
	result, err := newSolver().Solve(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Statistics.Patients != 0 || result.Statistics.CoverageRate != 0 {
		t.Errorf("stats = %+v", result.Statistics)
	}
}

func TestFlowSolver_ZeroDemand(t *testing.T) {
	ctx := buildContext(5, 15, nil)
	result, err := newSolver().Solve(context.Background(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Statistics.CoverageRate != 100 {
		t.Errorf("零需求覆盖率应为 100, got %v", result.Statistics.CoverageRate)
	}
}

func TestFlowSolver_Cancelled(t *testing.T) {
	ctx := buildContext(4, 15, map[string]int{"F1": 40}, "F1")
	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newSolver().Solve(cctx, ctx); err == nil {
		t.Error("已取消的上下文应返回错误")
	}
}

func TestFlowSolver_Deterministic(t *testing.T) {
	run := func() [][]int {
		ctx := buildContext(10, 7, map[string]int{"A": 12, "B": 20, "C": 9, "D": 15}, "A", "B", "C", "D")
		ctx.Forbid(0, 1)
		ctx.Forbid(3, 2)
		if _, err := newSolver().Solve(context.Background(), ctx); err != nil {
			t.Fatal(err)
		}
		return ctx.ClonePlan()
	}
	first := run()
	for i := 0; i < 10; i++ {
		got := run()
		for d := range first {
			for f := range first[d] {
				if got[d][f] != first[d][f] {
					t.Fatalf("第 %d 次结果不同", i)
				}
			}
		}
	}
}
