package model

import (
	"math"
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"Monday", time.Monday, false},
		{"fri", time.Friday, false},
		{" Sunday ", time.Sunday, false},
		{"Funday", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWeekday(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{1.005, 0, 1},
		{2.5, 0, 3},
		{0.125, 2, 0.13},
		{66.66666, 1, 66.7},
		{-2.5, 0, -3},
	}
	for _, tt := range tests {
		if got := Round(tt.v, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}

func TestWeeklyAvailability_IsWorking(t *testing.T) {
	w := WeeklyAvailability{
		"Friday":   {IsWorking: false},
		"saturday": {IsWorking: true},
	}
	if !w.IsWorking(time.Monday) {
		t.Error("未配置的周一应视为工作")
	}
	if w.IsWorking(time.Friday) {
		t.Error("周五配置为不工作")
	}
	if w.IsWorking(time.Saturday) {
		t.Error("周末永远不工作")
	}
}

func TestWeeklyAvailability_IsWorkingCaseVariants(t *testing.T) {
	tests := []struct {
		name string
		w    WeeklyAvailability
		want bool
	}{
		{"标准键优先", WeeklyAvailability{"Monday": {IsWorking: false}, "monday": {IsWorking: true}}, false},
		{"标准键优先_反向", WeeklyAvailability{"Monday": {IsWorking: true}, "mon": {IsWorking: false}}, true},
		{"无标准键按键名排序", WeeklyAvailability{"monday": {IsWorking: true}, "mon": {IsWorking: false}}, false},
		{"仅缩写", WeeklyAvailability{"MON": {IsWorking: false}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				if got := tt.w.IsWorking(time.Monday); got != tt.want {
					t.Fatalf("第 %d 次 IsWorking(Monday) = %v, want %v", i, got, tt.want)
				}
			}
		})
	}
}

func TestPlanningHorizon(t *testing.T) {
	h, err := NewPlanningHorizon("2024-12-02", 4)
	if err != nil {
		t.Fatalf("NewPlanningHorizon: %v", err)
	}
	days := h.WorkingDays()
	if len(days) != 20 {
		t.Fatalf("工作日数 = %d, want 20", len(days))
	}
	if FormatDate(days[19]) != "2024-12-27" {
		t.Errorf("最后工作日 = %s", FormatDate(days[19]))
	}
	if FormatDate(h.End()) != "2024-12-29" {
		t.Errorf("End = %s", FormatDate(h.End()))
	}
	if r := h.DateRange(); r.StartDate != "2024-12-02" || r.EndDate != "2024-12-27" {
		t.Errorf("DateRange = %+v", r)
	}

	if _, err := NewPlanningHorizon("2024-12-03", 4); err == nil {
		t.Error("周二开始应报错")
	}
	if _, err := NewPlanningHorizon("2024-12-02", 6); err == nil {
		t.Error("6 周应报错")
	}
}

func TestObjectiveWeights_Validate(t *testing.T) {
	if ve := DefaultObjectiveWeights().Validate(); ve.HasErrors() {
		t.Errorf("默认权重应合法: %v", ve)
	}
	w := DefaultObjectiveWeights()
	w.Alpha = 0.3
	w.TargetGap = 3
	w.GapWeight = -1
	if ve := w.Validate(); len(ve.Errors) != 3 {
		t.Errorf("错误数 = %d, want 3", len(ve.Errors))
	}
}

func TestObjectiveWeights_ValidateNaN(t *testing.T) {
	w := DefaultObjectiveWeights()
	w.Alpha = math.NaN()
	w.GapWeight = math.NaN()
	ve := w.Validate()
	if len(ve.Errors) != 2 {
		t.Fatalf("NaN 权重应被拒绝, 错误数 = %d", len(ve.Errors))
	}
	if ve.Errors[0].Field != "lambda_facility" || ve.Errors[1].Field != "alpha" {
		t.Errorf("错误字段 = %v", ve.Errors)
	}
}

func TestCensus(t *testing.T) {
	c := Census{Rows: []CensusRow{
		{ProviderID: "P2", FacilityID: "F1", Monthly: map[string]float64{"2024-12": 10}},
		{ProviderID: "P1", FacilityID: "F2", Monthly: map[string]float64{"2024-12": 5}},
		{ProviderID: "P1", FacilityID: "F1", Monthly: map[string]float64{"2024-11": 7}},
		{ProviderID: "P1", FacilityID: "F2", Monthly: map[string]float64{"2024-12": 3}},
	}}
	if got := c.Providers(); len(got) != 2 || got[0] != "P1" {
		t.Errorf("Providers = %v", got)
	}
	if got := c.FacilitiesFor("P1"); len(got) != 2 || got[0] != "F1" || got[1] != "F2" {
		t.Errorf("FacilitiesFor = %v", got)
	}
	if got := c.Count("P1", "F2", "2024-12"); got != 8 {
		t.Errorf("重复行应累加, got %v", got)
	}
	if _, ok := c.Provider("P9"); ok {
		t.Error("无普查行的医生应返回 false")
	}
}
