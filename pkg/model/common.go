// Package model 定义排程引擎的核心数据模型
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// 日期格式
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// DateRange 日期范围
type DateRange struct {
	StartDate string `json:"start"` // YYYY-MM-DD
	EndDate   string `json:"end"`   // YYYY-MM-DD
}

// ParseDate 解析 YYYY-MM-DD 日期（UTC 零点）
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式无效 %q: %w", s, err)
	}
	return t, nil
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MonthOf 返回日期所在月份 YYYY-MM
func MonthOf(t time.Time) string {
	return t.Format(MonthLayout)
}

// IsWeekday 是否周一到周五
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// ParseWeekday 解析星期名（Monday / mon，大小写不敏感）
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("无效的星期: %q", name)
	}
	return wd, nil
}

// Round 按小数位四舍五入（远离零）
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
