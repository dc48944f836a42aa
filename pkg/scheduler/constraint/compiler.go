package constraint

import (
	"fmt"
	"sort"
	"time"

	"github.com/paiban/visitplan/pkg/errors"
	"github.com/paiban/visitplan/pkg/model"
)

// 冲突类型
const (
	ConflictLeave         = "leave"
	ConflictNonWorkingDay = "non_working_day"
	ConflictWeekend       = "weekend"
	NoteOutOfHorizon      = "out_of_horizon"
)

// 必访来源
const (
	SourceDate      = "date"
	SourceDayOfWeek = "day_of_week"
)

// Conflict 约束冲突：必访落在不可工作日，已排除但需上报
type Conflict struct {
	FacilityID string `json:"facility"`
	Date       string `json:"date"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

// Compiled 编译后的医生约束
type Compiled struct {
	ProviderID string                  `json:"provider_id"`
	Limit      int                     `json:"daily_patient_limit"`
	Days       []Day                   `json:"days"`
	Required   []RequiredSlot          `json:"required"`
	Forbidden  map[string]map[int]bool `json:"-"` // 机构 -> 禁止访问的工作日序号
	Conflicts  []Conflict              `json:"conflicts"`
	Notes      []Conflict              `json:"notes,omitempty"`
	Leave      []model.LeaveInterval   `json:"leave"`
}

// CompileInput 编译输入
type CompileInput struct {
	Provider    *model.Provider
	Constraints model.ProviderConstraints
	Horizon     model.PlanningHorizon
}

// Compile 把医生的原始约束编译为逐日可工作标记、容量和必访槽位
func Compile(in CompileInput) (*Compiled, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	leave, err := MergeLeave(in.Constraints.Leave)
	if err != nil {
		return nil, errors.InvalidInput("leave", err.Error())
	}
	merged, err := parseLeave(leave)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "合并后的请假区间无效")
	}

	out := &Compiled{
		ProviderID: in.Provider.ID,
		Limit:      in.Constraints.DailyPatientLimit,
		Forbidden:  make(map[string]map[int]bool),
		Leave:      leave,
	}

	dayIndex := make(map[string]int)
	for i, date := range in.Horizon.WorkingDays() {
		day := Day{Index: i, Date: date, Key: model.FormatDate(date)}
		switch {
		case !in.Constraints.WeeklyAvailability.IsWorking(date.Weekday()):
			day.Reason = ConflictNonWorkingDay
		case onLeave(merged, date):
			day.Reason = ConflictLeave
		default:
			day.Workable = true
			day.Capacity = in.Constraints.DailyPatientLimit
		}
		dayIndex[day.Key] = i
		out.Days = append(out.Days, day)
	}

	out.expandRequired(in, dayIndex)
	return out, nil
}

func validateInput(in CompileInput) error {
	ve := &errors.ValidationErrors{}
	if in.Provider == nil || in.Provider.ID == "" {
		ve.Add("provider_id", "不能为空")
		return ve.ToAppError()
	}
	if in.Constraints.DailyPatientLimit <= 0 {
		ve.Add("daily_patient_limit", "必须大于 0")
	}
	for i, rv := range in.Constraints.RequiredVisits {
		field := fmt.Sprintf("required_visits[%d]", i)
		switch {
		case rv.FacilityID == "":
			ve.Add(field+".facility", "不能为空")
		case !in.Provider.HasFacility(rv.FacilityID):
			ve.Add(field+".facility", fmt.Sprintf("机构 %s 不在医生 %s 的服务列表中", rv.FacilityID, in.Provider.ID))
		}
		if (rv.Date == "") == (rv.DayOfWeek == "") {
			ve.Add(field, "date 与 day_of_week 必须且只能指定一个")
			continue
		}
		if !rv.IsRecurring() {
			if _, err := model.ParseDate(rv.Date); err != nil {
				ve.Add(field+".date", err.Error())
			}
			continue
		}
		wd, err := model.ParseWeekday(rv.DayOfWeek)
		if err != nil {
			ve.Add(field+".day_of_week", err.Error())
		} else if wd == time.Saturday || wd == time.Sunday {
			ve.Add(field+".day_of_week", "周末不在排程周期内")
		}
	}
	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// expandRequired 展开必访：按日期的直接定位，按星期的展开到周期内每个对应日期
func (c *Compiled) expandRequired(in CompileInput, dayIndex map[string]int) {
	seen := make(map[string]bool)
	recurring := make(map[string]map[time.Weekday]bool)
	explicit := make(map[string]map[int]bool)

	add := func(facilityID string, date time.Time, source string) {
		key := model.FormatDate(date)
		idx, inHorizon := dayIndex[key]
		if !inHorizon {
			if !in.Horizon.Contains(date) {
				c.Notes = append(c.Notes, Conflict{
					FacilityID: facilityID, Date: key, Kind: NoteOutOfHorizon,
					Message: fmt.Sprintf("必访日期 %s 不在排程周期内，已忽略", key),
				})
				return
			}
			c.addConflict(facilityID, key, ConflictWeekend, "周末")
			return
		}
		if !c.Days[idx].Workable {
			reason := "当天不工作"
			if c.Days[idx].Reason == ConflictLeave {
				reason = "当天请假"
			}
			c.addConflict(facilityID, key, c.Days[idx].Reason, reason)
			return
		}
		dedup := facilityID + "|" + key
		if seen[dedup] {
			return
		}
		seen[dedup] = true
		if source == SourceDate {
			if explicit[facilityID] == nil {
				explicit[facilityID] = make(map[int]bool)
			}
			explicit[facilityID][idx] = true
		}
		c.Required = append(c.Required, RequiredSlot{
			FacilityID: facilityID, Facility: -1, Date: key, Day: idx, Source: source,
		})
	}

	for _, rv := range in.Constraints.RequiredVisits {
		if !rv.IsRecurring() {
			date, _ := model.ParseDate(rv.Date)
			add(rv.FacilityID, date, SourceDate)
			continue
		}
		wd, _ := model.ParseWeekday(rv.DayOfWeek)
		if recurring[rv.FacilityID] == nil {
			recurring[rv.FacilityID] = make(map[time.Weekday]bool)
		}
		recurring[rv.FacilityID][wd] = true
		for _, day := range c.Days {
			if day.Date.Weekday() == wd {
				add(rv.FacilityID, day.Date, SourceDayOfWeek)
			}
		}
	}

	// 按星期的必访同时限定该机构只能在这些星期被访问，按日期指定的必访日除外
	for facilityID, weekdays := range recurring {
		forbidden := make(map[int]bool)
		for _, day := range c.Days {
			if !weekdays[day.Date.Weekday()] && !explicit[facilityID][day.Index] {
				forbidden[day.Index] = true
			}
		}
		c.Forbidden[facilityID] = forbidden
	}

	sort.SliceStable(c.Required, func(i, j int) bool {
		if c.Required[i].Day != c.Required[j].Day {
			return c.Required[i].Day < c.Required[j].Day
		}
		return c.Required[i].FacilityID < c.Required[j].FacilityID
	})
	sort.SliceStable(c.Conflicts, func(i, j int) bool {
		if c.Conflicts[i].Date != c.Conflicts[j].Date {
			return c.Conflicts[i].Date < c.Conflicts[j].Date
		}
		return c.Conflicts[i].FacilityID < c.Conflicts[j].FacilityID
	})
}

func (c *Compiled) addConflict(facilityID, date, kind, reason string) {
	for _, existing := range c.Conflicts {
		if existing.FacilityID == facilityID && existing.Date == date {
			return
		}
	}
	c.Conflicts = append(c.Conflicts, Conflict{
		FacilityID: facilityID,
		Date:       date,
		Kind:       kind,
		Message:    fmt.Sprintf("机构 %s 的必访日期 %s 不可工作（%s），已排除", facilityID, date, reason),
	})
}

// WorkableDays 可工作日数
func (c *Compiled) WorkableDays() int {
	n := 0
	for _, d := range c.Days {
		if d.Workable {
			n++
		}
	}
	return n
}

// Capacity 周期总容量
func (c *Compiled) Capacity() int {
	return c.WorkableDays() * c.Limit
}

// UnavailableDates 周期内不可工作的工作日
func (c *Compiled) UnavailableDates() []time.Time {
	var out []time.Time
	for _, d := range c.Days {
		if !d.Workable {
			out = append(out, d.Date)
		}
	}
	return out
}

// NewContext 按需求目标构建求解上下文
func (c *Compiled) NewContext(demand []FacilityDemand, obj Objective) *Context {
	ctx := NewContext(c.ProviderID, c.Days, demand)
	ctx.Objective = obj

	for f, fac := range demand {
		for dayIdx := range c.Forbidden[fac.ID] {
			ctx.Forbid(dayIdx, f)
		}
	}

	slots := make([]RequiredSlot, len(c.Required))
	copy(slots, c.Required)
	for i := range slots {
		if f, ok := ctx.FacilityIndex(slots[i].FacilityID); ok {
			slots[i].Facility = f
		}
	}
	ctx.SetRequired(slots)
	return ctx
}
