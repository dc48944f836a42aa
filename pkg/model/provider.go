package model

import (
	"sort"
	"time"
)

// Provider 医生（PCP）
type Provider struct {
	ID           string   `json:"id"`
	BusinessLine string   `json:"business_line"`
	Facilities   []string `json:"facilities"` // 可服务的机构，来自普查数据
}

// Facility 机构
type Facility struct {
	ID           string `json:"id"`
	BusinessLine string `json:"business_line"`
}

// DayAvailability 某个星期几的可用性
type DayAvailability struct {
	IsWorking bool   `json:"isWorking"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// WeeklyAvailability 每周可用性，键为英文星期名（Monday...）
type WeeklyAvailability map[string]DayAvailability

// IsWorking 指定星期几是否工作，未配置的工作日视为工作
//
// 优先使用标准键（Monday...），否则按键名排序取第一个能解析为该星期的键。
func (w WeeklyAvailability) IsWorking(wd time.Weekday) bool {
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if day, ok := w[wd.String()]; ok {
		return day.IsWorking
	}
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if parsed, err := ParseWeekday(name); err == nil && parsed == wd {
			return w[name].IsWorking
		}
	}
	return true
}

// LeaveInterval 请假区间（含首尾）
type LeaveInterval struct {
	Start  string `json:"start_date"`
	End    string `json:"end_date"`
	Reason string `json:"reason,omitempty"`
}

// RequiredVisit 必访要求，Date 与 DayOfWeek 二选一
type RequiredVisit struct {
	FacilityID string `json:"facility"`
	Date       string `json:"date,omitempty"`        // YYYY-MM-DD
	DayOfWeek  string `json:"day_of_week,omitempty"` // Monday...
}

// IsRecurring 是否按星期重复（未指定日期）
func (r RequiredVisit) IsRecurring() bool {
	return r.Date == ""
}

// ProviderConstraints 医生个人约束
type ProviderConstraints struct {
	ProviderID         string             `json:"provider_id"`
	DailyPatientLimit  int                `json:"daily_patient_limit"`
	WeeklyAvailability WeeklyAvailability `json:"weekly_availability,omitempty"`
	Leave              []LeaveInterval    `json:"leave,omitempty"`
	RequiredVisits     []RequiredVisit    `json:"required_visits,omitempty"`
}

// HasFacility 检查医生是否可服务该机构
func (p *Provider) HasFacility(facilityID string) bool {
	for _, f := range p.Facilities {
		if f == facilityID {
			return true
		}
	}
	return false
}

// SortedFacilities 返回排序后的机构列表
func (p *Provider) SortedFacilities() []string {
	out := append([]string(nil), p.Facilities...)
	sort.Strings(out)
	return out
}
