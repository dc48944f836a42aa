package constraint

import (
	"time"

	"github.com/paiban/visitplan/pkg/model"
)

// Day 排程周期内的一个工作日（周一到周五）
type Day struct {
	Index    int       `json:"index"` // 周期内工作日序号，间隔按此计算
	Date     time.Time `json:"-"`
	Key      string    `json:"date"` // YYYY-MM-DD
	Workable bool      `json:"workable"`
	Capacity int       `json:"max_patients"` // 不可工作时为 0
	Reason   string    `json:"reason,omitempty"`
}

// FacilityDemand 机构需求目标
type FacilityDemand struct {
	ID     string  `json:"facility_id"`
	Census float64 `json:"census"`
	Target int     `json:"target"`
}

// RequiredSlot 展开后的必访槽位
type RequiredSlot struct {
	FacilityID string `json:"facility"`
	Facility   int    `json:"-"` // 机构序号，未纳入需求时为 -1
	Date       string `json:"date"`
	Day        int    `json:"day_index"`
	Source     string `json:"source"` // date / day_of_week
}

// Objective 目标函数系数
type Objective struct {
	CoverageWeight float64 `json:"coverage_weight"`
	WorkloadWeight float64 `json:"workload_weight"`
	GapWeight      float64 `json:"gap_weight"`
	BunchingWeight float64 `json:"bunching_weight"`
	TargetGap      int     `json:"target_gap"`
}

// Context 求解上下文：与具体求解器无关的问题数据 + 当前方案
type Context struct {
	ProviderID string           `json:"provider_id"`
	Days       []Day            `json:"days"`
	Facilities []FacilityDemand `json:"facilities"`
	Required   []RequiredSlot   `json:"required"`
	Objective  Objective        `json:"objective"`

	// Allowed[d][f] 该日可否访问该机构
	Allowed [][]bool `json:"-"`
	// Plan[d][f] 当前方案的患者数
	Plan [][]int `json:"-"`

	facilityIndex map[string]int
	requiredSet   map[[2]int]bool
	pinned        map[[2]int]bool
}

// NewContext 创建求解上下文，初始方案为空
func NewContext(providerID string, days []Day, facilities []FacilityDemand) *Context {
	c := &Context{
		ProviderID:    providerID,
		Days:          days,
		Facilities:    facilities,
		facilityIndex: make(map[string]int, len(facilities)),
		requiredSet:   make(map[[2]int]bool),
		pinned:        make(map[[2]int]bool),
	}
	for i, f := range facilities {
		c.facilityIndex[f.ID] = i
	}
	c.Allowed = make([][]bool, len(days))
	c.Plan = make([][]int, len(days))
	for d := range days {
		c.Allowed[d] = make([]bool, len(facilities))
		c.Plan[d] = make([]int, len(facilities))
		if !days[d].Workable || days[d].Capacity <= 0 {
			continue
		}
		for f := range facilities {
			c.Allowed[d][f] = facilities[f].Target > 0
		}
	}
	return c
}

// Forbid 禁止某机构在某日被访问
func (c *Context) Forbid(day, facility int) {
	c.Allowed[day][facility] = false
}

// SetRequired 设置必访槽位并建立索引
func (c *Context) SetRequired(slots []RequiredSlot) {
	c.Required = slots
	c.requiredSet = make(map[[2]int]bool, len(slots))
	for _, s := range slots {
		if s.Facility >= 0 {
			c.requiredSet[[2]int{s.Day, s.Facility}] = true
		}
	}
}

// IsRequired 该单元格是否为必访槽位
func (c *Context) IsRequired(day, facility int) bool {
	return c.requiredSet[[2]int{day, facility}]
}

// Pin 固定已满足的必访槽位，之后的改动不得使其降为 0
func (c *Context) Pin(day, facility int) {
	c.pinned[[2]int{day, facility}] = true
}

// IsPinned 该单元格是否已固定
func (c *Context) IsPinned(day, facility int) bool {
	return c.pinned[[2]int{day, facility}]
}

// PinnedCells 已固定的单元格，按日、机构排序
func (c *Context) PinnedCells() [][2]int {
	var out [][2]int
	for d := range c.Days {
		for f := range c.Facilities {
			if c.pinned[[2]int{d, f}] {
				out = append(out, [2]int{d, f})
			}
		}
	}
	return out
}

// FacilityIndex 返回机构序号
func (c *Context) FacilityIndex(id string) (int, bool) {
	i, ok := c.facilityIndex[id]
	return i, ok
}

// DayLoad 某日患者总数
func (c *Context) DayLoad(day int) int {
	total := 0
	for _, v := range c.Plan[day] {
		total += v
	}
	return total
}

// FacilityTotal 某机构在周期内的患者总数
func (c *Context) FacilityTotal(facility int) int {
	total := 0
	for d := range c.Plan {
		total += c.Plan[d][facility]
	}
	return total
}

// TotalPatients 方案患者总数
func (c *Context) TotalPatients() int {
	total := 0
	for d := range c.Plan {
		total += c.DayLoad(d)
	}
	return total
}

// TotalTarget 需求目标总数
func (c *Context) TotalTarget() int {
	total := 0
	for _, f := range c.Facilities {
		total += f.Target
	}
	return total
}

// ResidualCapacity 某日剩余容量
func (c *Context) ResidualCapacity(day int) int {
	return c.Days[day].Capacity - c.DayLoad(day)
}

// ResidualTarget 某机构剩余需求
func (c *Context) ResidualTarget(facility int) int {
	return c.Facilities[facility].Target - c.FacilityTotal(facility)
}

// VisitDays 某机构被访问的工作日序号（升序）
func (c *Context) VisitDays(facility int) []int {
	var out []int
	for d := range c.Plan {
		if c.Plan[d][facility] > 0 {
			out = append(out, c.Days[d].Index)
		}
	}
	return out
}

// WorkableDays 可工作日的下标
func (c *Context) WorkableDays() []int {
	var out []int
	for d, day := range c.Days {
		if day.Workable {
			out = append(out, d)
		}
	}
	return out
}

// ClonePlan 复制当前方案
func (c *Context) ClonePlan() [][]int {
	out := make([][]int, len(c.Plan))
	for d := range c.Plan {
		out[d] = append([]int(nil), c.Plan[d]...)
	}
	return out
}

// Clone 深拷贝上下文，并行搜索时每个副本独立修改方案
func (c *Context) Clone() *Context {
	out := *c
	out.Required = append([]RequiredSlot(nil), c.Required...)
	out.Plan = c.ClonePlan()
	out.Allowed = make([][]bool, len(c.Allowed))
	for d := range c.Allowed {
		out.Allowed[d] = append([]bool(nil), c.Allowed[d]...)
	}
	out.requiredSet = make(map[[2]int]bool, len(c.requiredSet))
	for k, v := range c.requiredSet {
		out.requiredSet[k] = v
	}
	out.pinned = make(map[[2]int]bool, len(c.pinned))
	for k, v := range c.pinned {
		out.pinned[k] = v
	}
	return &out
}

// SetPlan 覆盖当前方案
func (c *Context) SetPlan(plan [][]int) {
	for d := range plan {
		copy(c.Plan[d], plan[d])
	}
}

// Apply 应用一组改动
func (c *Context) Apply(changes []Change) {
	for _, ch := range changes {
		c.Plan[ch.Day][ch.Facility] += ch.Delta
	}
}

// Revert 撤销一组改动
func (c *Context) Revert(changes []Change) {
	for i := len(changes) - 1; i >= 0; i-- {
		ch := changes[i]
		c.Plan[ch.Day][ch.Facility] -= ch.Delta
	}
}

// Assignments 把方案转换为按日期、机构排序的分配列表
func (c *Context) Assignments() []model.Assignment {
	var out []model.Assignment
	for d, day := range c.Days {
		for f, fac := range c.Facilities {
			if n := c.Plan[d][f]; n > 0 {
				out = append(out, model.Assignment{
					ProviderID: c.ProviderID,
					Date:       day.Key,
					FacilityID: fac.ID,
					Patients:   n,
				})
			}
		}
	}
	return out
}
