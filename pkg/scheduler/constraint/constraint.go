// Package constraint 定义约束接口、约束编译器和求解上下文
package constraint

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeDailyCapacity Type = "daily_capacity"
	TypeEligibility   Type = "eligibility"
	TypeDemandCap     Type = "demand_cap"
	TypeRequiredVisit Type = "required_visit"

	// 软约束类型
	TypeWorkloadBalance Type = "workload_balance"
	TypeVisitGap        Type = "facility_visit_gap"
	TypeAntiBunching    Type = "anti_bunching"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（进入目标函数）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回软约束系数（硬约束返回 0）
	Weight() float64

	// Evaluate 评估当前方案
	// 返回：是否满足、加权惩罚、违反详情
	Evaluate(ctx *Context) (valid bool, penalty float64, details []ViolationDetail)

	// CheckCell 在当前方案下检查与 (day, facility) 相关的部分是否满足
	CheckCell(ctx *Context, day, facility int) bool
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type    `json:"constraint_type"`
	ConstraintName string  `json:"constraint_name"`
	FacilityID     string  `json:"facility_id,omitempty"`
	Date           string  `json:"date,omitempty"`
	Message        string  `json:"message"`
	Severity       string  `json:"severity"` // error/warning
	Penalty        float64 `json:"penalty"`
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	Patients       int               `json:"patients"`
	SoftPenalty    float64           `json:"soft_penalty"`
	Objective      float64           `json:"objective"` // 覆盖收益 - 软惩罚（越大越好）
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
}

// Change 单元格改动
type Change struct {
	Day      int
	Facility int
	Delta    int
}

// Penalizer 可只计算惩罚值的软约束，避免构造违反详情
type Penalizer interface {
	Penalty(ctx *Context) float64
}
