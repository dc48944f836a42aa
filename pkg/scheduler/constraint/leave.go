package constraint

import (
	"sort"
	"time"

	"github.com/paiban/visitplan/pkg/model"
)

// leaveSpan 解析后的请假区间
type leaveSpan struct {
	start, end time.Time
	reason     string
}

// MergeLeave 合并请假区间：首尾颠倒的自动交换，重叠、重复、相邻的合并为一段
func MergeLeave(intervals []model.LeaveInterval) ([]model.LeaveInterval, error) {
	spans, err := parseLeave(intervals)
	if err != nil {
		return nil, err
	}
	merged := mergeSpans(spans)
	out := make([]model.LeaveInterval, 0, len(merged))
	for _, s := range merged {
		out = append(out, model.LeaveInterval{
			Start:  model.FormatDate(s.start),
			End:    model.FormatDate(s.end),
			Reason: s.reason,
		})
	}
	return out, nil
}

func parseLeave(intervals []model.LeaveInterval) ([]leaveSpan, error) {
	spans := make([]leaveSpan, 0, len(intervals))
	for _, iv := range intervals {
		start, err := model.ParseDate(iv.Start)
		if err != nil {
			return nil, err
		}
		end := start
		if iv.End != "" {
			if end, err = model.ParseDate(iv.End); err != nil {
				return nil, err
			}
		}
		if end.Before(start) {
			start, end = end, start
		}
		spans = append(spans, leaveSpan{start: start, end: end, reason: iv.Reason})
	}
	return spans, nil
}

func mergeSpans(spans []leaveSpan) []leaveSpan {
	if len(spans) == 0 {
		return nil
	}
	sorted := append([]leaveSpan(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].start.Before(sorted[j].start)
	})

	merged := []leaveSpan{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !s.start.After(last.end.AddDate(0, 0, 1)) {
			if s.end.After(last.end) {
				last.end = s.end
			}
			if last.reason == "" {
				last.reason = s.reason
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// onLeave 日期是否落在任一区间内
func onLeave(spans []leaveSpan, t time.Time) bool {
	for _, s := range spans {
		if !t.Before(s.start) && !t.After(s.end) {
			return true
		}
	}
	return false
}
