// Package route 估算医生单日访问路线与通勤时长
//
// 贪心最近邻：先从住址出发选最近的机构，再依次选离当前机构最近的剩余机构。
// 相同时长按输入顺序取第一个。
package route

import (
	"fmt"
	"sort"

	"github.com/paiban/visitplan/pkg/model"
)

// Distances 通勤时长查询，缺失条目返回 0
type Distances interface {
	HomeToFacility(providerID, facilityID string) float64
	FacilityToFacility(fromID, toID string) float64
}

// Visit 单日的一次机构访问
type Visit struct {
	FacilityID string `json:"facility"`
	Patients   int    `json:"patients"`
}

// DailyRoute 单日路线
type DailyRoute struct {
	Date           string   `json:"date,omitempty"`
	Stops          []string `json:"route"`
	Details        []string `json:"route_details"`
	HomeTravel     float64  `json:"home_travel"`
	FacilityTravel float64  `json:"facility_travel"`
	TotalTravel    float64  `json:"total_travel"`
	Patients       int      `json:"patients"`

	// 未舍入的原始值，用于跨日汇总
	rawHome     float64
	rawFacility float64
}

// RawTotal 未舍入的总时长
func (r DailyRoute) RawTotal() float64 {
	return r.rawHome + r.rawFacility
}

// Estimate 计算单日路线，visits 的顺序决定平局时的选择
func Estimate(providerID string, visits []Visit, dist Distances) DailyRoute {
	r := DailyRoute{Stops: []string{}, Details: []string{}}
	if len(visits) == 0 {
		return r
	}

	facilities := make([]string, 0, len(visits))
	for _, v := range visits {
		facilities = append(facilities, v.FacilityID)
		r.Patients += v.Patients
	}

	// 住址段：住址到各机构的最小时长
	first := 0
	homeLeg := dist.HomeToFacility(providerID, facilities[0])
	for i := 1; i < len(facilities); i++ {
		if d := dist.HomeToFacility(providerID, facilities[i]); d < homeLeg {
			homeLeg = d
			first = i
		}
	}
	r.rawHome = homeLeg
	r.Stops = append(r.Stops, facilities[first])
	r.Details = append(r.Details, fmt.Sprintf("Home → %s: %.2fh", facilities[first], homeLeg))

	remaining := make([]string, 0, len(facilities)-1)
	remaining = append(remaining, facilities[:first]...)
	remaining = append(remaining, facilities[first+1:]...)

	current := facilities[first]
	for len(remaining) > 0 {
		minIdx := 0
		minDist := dist.FacilityToFacility(current, remaining[0])
		for i := 1; i < len(remaining); i++ {
			if d := dist.FacilityToFacility(current, remaining[i]); d < minDist {
				minDist = d
				minIdx = i
			}
		}

		next := remaining[minIdx]
		r.rawFacility += minDist
		r.Stops = append(r.Stops, next)
		r.Details = append(r.Details, fmt.Sprintf("%s → %s: %.2fh", current, next, minDist))

		current = next
		remaining = append(remaining[:minIdx], remaining[minIdx+1:]...)
	}

	r.HomeTravel = model.Round(r.rawHome, 2)
	r.FacilityTravel = model.Round(r.rawFacility, 2)
	r.TotalTravel = model.Round(r.rawHome+r.rawFacility, 2)
	return r
}

// VisitsFromDay 把某日的 {机构: 患者数} 转为按机构排序的访问列表
func VisitsFromDay(day map[string]int) []Visit {
	ids := make([]string, 0, len(day))
	for id, n := range day {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	visits := make([]Visit, 0, len(ids))
	for _, id := range ids {
		visits = append(visits, Visit{FacilityID: id, Patients: day[id]})
	}
	return visits
}
