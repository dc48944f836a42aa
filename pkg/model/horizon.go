package model

import (
	"fmt"
	"time"
)

// PlanningHorizon 排程周期：从周一开始的 4 或 5 周
type PlanningHorizon struct {
	StartMonday time.Time `json:"start_monday"`
	Weeks       int       `json:"weeks"`
}

// NewPlanningHorizon 创建排程周期
func NewPlanningHorizon(startMonday string, weeks int) (PlanningHorizon, error) {
	start, err := ParseDate(startMonday)
	if err != nil {
		return PlanningHorizon{}, err
	}
	if start.Weekday() != time.Monday {
		return PlanningHorizon{}, fmt.Errorf("开始日期 %s 不是周一", startMonday)
	}
	if weeks != 4 && weeks != 5 {
		return PlanningHorizon{}, fmt.Errorf("周数只能是 4 或 5，实际为 %d", weeks)
	}
	return PlanningHorizon{StartMonday: start, Weeks: weeks}, nil
}

// CalendarDays 日历天数
func (h PlanningHorizon) CalendarDays() int {
	return h.Weeks * 7
}

// End 周期最后一天（周日）
func (h PlanningHorizon) End() time.Time {
	return h.StartMonday.AddDate(0, 0, h.CalendarDays()-1)
}

// Contains 日期是否在周期内
func (h PlanningHorizon) Contains(t time.Time) bool {
	return !t.Before(h.StartMonday) && !t.After(h.End())
}

// WorkingDays 周期内所有周一到周五的日期，按时间排序
func (h PlanningHorizon) WorkingDays() []time.Time {
	days := make([]time.Time, 0, h.Weeks*5)
	for i := 0; i < h.CalendarDays(); i++ {
		d := h.StartMonday.AddDate(0, 0, i)
		if IsWeekday(d) {
			days = append(days, d)
		}
	}
	return days
}

// DateRange 周期日期范围（工作日首尾）
func (h PlanningHorizon) DateRange() DateRange {
	days := h.WorkingDays()
	return DateRange{StartDate: FormatDate(days[0]), EndDate: FormatDate(days[len(days)-1])}
}

// Extend 返回周数变更后的周期
func (h PlanningHorizon) Extend(weeks int) PlanningHorizon {
	return PlanningHorizon{StartMonday: h.StartMonday, Weeks: weeks}
}
