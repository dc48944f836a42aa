package route

import (
	"reflect"
	"testing"
)

type fakeDistances struct {
	home    map[string]float64
	between map[string]map[string]float64
}

func (f fakeDistances) HomeToFacility(_, facilityID string) float64 {
	return f.home[facilityID]
}

func (f fakeDistances) FacilityToFacility(from, to string) float64 {
	return f.between[from][to]
}

func abDistances() fakeDistances {
	return fakeDistances{
		home: map[string]float64{"A": 2, "B": 1},
		between: map[string]map[string]float64{
			"A": {"B": 0.5},
			"B": {"A": 0.5},
		},
	}
}

func TestEstimate_NearestNeighbor(t *testing.T) {
	r := Estimate("P1", []Visit{{FacilityID: "A", Patients: 5}, {FacilityID: "B", Patients: 3}}, abDistances())

	if !reflect.DeepEqual(r.Stops, []string{"B", "A"}) {
		t.Errorf("Stops = %v, want [B A]", r.Stops)
	}
	if r.HomeTravel != 1 || r.FacilityTravel != 0.5 || r.TotalTravel != 1.5 {
		t.Errorf("travel = %v/%v/%v, want 1/0.5/1.5", r.HomeTravel, r.FacilityTravel, r.TotalTravel)
	}
	wantDetails := []string{"Home → B: 1.00h", "B → A: 0.50h"}
	if !reflect.DeepEqual(r.Details, wantDetails) {
		t.Errorf("Details = %v", r.Details)
	}
	if r.Patients != 8 {
		t.Errorf("Patients = %d", r.Patients)
	}
}

func TestEstimate_Empty(t *testing.T) {
	r := Estimate("P1", nil, abDistances())
	if r.TotalTravel != 0 || r.HomeTravel != 0 || r.FacilityTravel != 0 {
		t.Errorf("空列表通勤应为 0: %+v", r)
	}
	if len(r.Stops) != 0 || r.Stops == nil {
		t.Errorf("Stops 应为空切片: %v", r.Stops)
	}
}

func TestEstimate_TieBreakByInputOrder(t *testing.T) {
	d := fakeDistances{
		home: map[string]float64{"A": 1, "B": 1, "C": 1},
		between: map[string]map[string]float64{
			"A": {"B": 0.3, "C": 0.3},
			"B": {"C": 0.2},
			"C": {"B": 0.2},
		},
	}
	r := Estimate("P1", []Visit{{FacilityID: "A"}, {FacilityID: "B"}, {FacilityID: "C"}}, d)
	if !reflect.DeepEqual(r.Stops, []string{"A", "B", "C"}) {
		t.Errorf("Stops = %v", r.Stops)
	}

	r = Estimate("P1", []Visit{{FacilityID: "C"}, {FacilityID: "B"}, {FacilityID: "A"}}, d)
	if r.Stops[0] != "C" {
		t.Errorf("平局时应取输入中的第一个, got %v", r.Stops)
	}
}

func TestEstimate_MissingDistanceIsZero(t *testing.T) {
	d := abDistances()
	r := Estimate("P1", []Visit{{FacilityID: "A"}, {FacilityID: "Z"}}, d)
	if r.Stops[0] != "Z" {
		t.Errorf("缺失距离视为 0，应最先访问 Z, got %v", r.Stops)
	}
	if r.HomeTravel != 0 {
		t.Errorf("HomeTravel = %v", r.HomeTravel)
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	visits := VisitsFromDay(map[string]int{"B": 3, "A": 5, "C": 0})
	if len(visits) != 2 || visits[0].FacilityID != "A" {
		t.Fatalf("VisitsFromDay = %+v", visits)
	}
	first := Estimate("P1", visits, abDistances())
	for i := 0; i < 20; i++ {
		if got := Estimate("P1", VisitsFromDay(map[string]int{"B": 3, "A": 5}), abDistances()); !reflect.DeepEqual(got, first) {
			t.Fatalf("第 %d 次结果不同: %+v vs %+v", i, got, first)
		}
	}
}

func TestEstimate_RoundOnceAtEnd(t *testing.T) {
	d := fakeDistances{
		home: map[string]float64{"A": 0.004},
		between: map[string]map[string]float64{
			"A": {"B": 0.004},
			"B": {"C": 0.004},
		},
	}
	r := Estimate("P1", []Visit{{FacilityID: "A"}, {FacilityID: "B"}, {FacilityID: "C"}}, d)
	// 逐段舍入会得到 0，整体累加后 0.012 -> 0.01
	if r.TotalTravel != 0.01 {
		t.Errorf("TotalTravel = %v, want 0.01", r.TotalTravel)
	}
	if r.FacilityTravel != 0.01 {
		t.Errorf("FacilityTravel = %v, want 0.01", r.FacilityTravel)
	}
}

func TestSummarize(t *testing.T) {
	d := abDistances()
	days := map[string]DailyRoute{
		"2024-12-02": Estimate("P1", []Visit{{FacilityID: "A"}, {FacilityID: "B"}}, d),
		"2024-12-03": Estimate("P1", []Visit{{FacilityID: "A"}}, d),
		"2024-12-04": Estimate("P1", nil, d),
	}
	s := Summarize(days)

	if s.DaysWithTravel != 2 {
		t.Errorf("DaysWithTravel = %d, want 2", s.DaysWithTravel)
	}
	if s.HomeToFacility != 3 || s.FacilityToFacility != 0.5 || s.TotalTravel != 3.5 {
		t.Errorf("summary = %+v", s)
	}
	if s.AvgTravelPerDay != 1.75 {
		t.Errorf("AvgTravelPerDay = %v, want 1.75", s.AvgTravelPerDay)
	}

	merged := Merge(s, Summarize(map[string]DailyRoute{"2024-12-05": days["2024-12-03"]}))
	if merged.DaysWithTravel != 3 || merged.TotalTravel != 5.5 {
		t.Errorf("merged = %+v", merged)
	}

	if empty := Summarize(nil); empty.AvgTravelPerDay != 0 || empty.DaysWithTravel != 0 {
		t.Errorf("空汇总 = %+v", empty)
	}
}
