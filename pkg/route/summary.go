package route

import (
	"sort"

	"github.com/paiban/visitplan/pkg/model"
)

// Summary 多日通勤汇总
type Summary struct {
	HomeToFacility     float64 `json:"home_to_facility_travel"`
	FacilityToFacility float64 `json:"facility_to_facility_travel"`
	TotalTravel        float64 `json:"total_travel_time"`
	DaysWithTravel     int     `json:"days_with_travel"`
	AvgTravelPerDay    float64 `json:"avg_travel_per_day"`

	rawHome     float64
	rawFacility float64
}

// Summarize 汇总多日路线：只统计有通勤的日子，平均值除以有通勤的天数
func Summarize(days map[string]DailyRoute) Summary {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var s Summary
	for _, k := range keys {
		r := days[k]
		if r.RawTotal() <= 0 {
			continue
		}
		s.rawHome += r.rawHome
		s.rawFacility += r.rawFacility
		s.DaysWithTravel++
	}
	s.finish()
	return s
}

// Merge 合并多个医生的汇总
func Merge(parts ...Summary) Summary {
	var s Summary
	for _, p := range parts {
		s.rawHome += p.rawHome
		s.rawFacility += p.rawFacility
		s.DaysWithTravel += p.DaysWithTravel
	}
	s.finish()
	return s
}

// RawTotal 未舍入的总通勤
func (s Summary) RawTotal() float64 {
	return s.rawHome + s.rawFacility
}

func (s *Summary) finish() {
	total := s.rawHome + s.rawFacility
	s.HomeToFacility = model.Round(s.rawHome, 2)
	s.FacilityToFacility = model.Round(s.rawFacility, 2)
	s.TotalTravel = model.Round(total, 2)
	s.AvgTravelPerDay = 0
	if s.DaysWithTravel > 0 {
		s.AvgTravelPerDay = model.Round(total/float64(s.DaysWithTravel), 2)
	}
}
