// Package validator 对最终方案做独立校验
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/visitplan/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictDuplicate    ConflictType = "duplicate"    // 同一单元格重复输出
	ConflictCapacity     ConflictType = "capacity"     // 超过每日上限
	ConflictAvailability ConflictType = "availability" // 不可工作日仍有安排
	ConflictDemand       ConflictType = "demand"       // 超过机构需求目标
	ConflictHorizon      ConflictType = "horizon"      // 日期不在排程周期内
	ConflictFacility     ConflictType = "facility"     // 机构不在医生可访问列表中
	ConflictNonPositive  ConflictType = "non_positive" // 患者数不为正
)

// Conflict 冲突信息
type Conflict struct {
	Type       ConflictType `json:"type"`
	Severity   string       `json:"severity"` // error/warning
	ProviderID string       `json:"provider_id"`
	FacilityID string       `json:"facility,omitempty"`
	Date       string       `json:"date,omitempty"`
	Message    string       `json:"message"`
}

// Rules 单个医生方案需满足的规则
type Rules struct {
	ProviderID string
	Limit      int
	Workable   map[string]bool // 可工作日期
	Horizon    map[string]bool // 周期内所有工作日
	Targets    map[string]int  // 机构需求目标
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckCapacity     bool
	CheckAvailability bool
	CheckDemand       bool
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckCapacity:     true,
		CheckAvailability: true,
		CheckDemand:       true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测所有冲突，按日期、机构、类型排序
func (d *ConflictDetector) DetectAll(assignments []model.Assignment, rules Rules) []Conflict {
	var conflicts []Conflict

	conflicts = append(conflicts, d.detectCells(assignments, rules)...)
	if d.config.CheckCapacity {
		conflicts = append(conflicts, d.detectCapacity(assignments, rules)...)
	}
	if d.config.CheckDemand {
		conflicts = append(conflicts, d.detectDemand(assignments, rules)...)
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Date != conflicts[j].Date {
			return conflicts[i].Date < conflicts[j].Date
		}
		if conflicts[i].FacilityID != conflicts[j].FacilityID {
			return conflicts[i].FacilityID < conflicts[j].FacilityID
		}
		return conflicts[i].Type < conflicts[j].Type
	})
	return conflicts
}

// detectCells 逐条检查分配
func (d *ConflictDetector) detectCells(assignments []model.Assignment, rules Rules) []Conflict {
	var conflicts []Conflict
	seen := make(map[[2]string]bool, len(assignments))

	for _, a := range assignments {
		key := [2]string{a.Date, a.FacilityID}
		if seen[key] {
			conflicts = append(conflicts, d.newConflict(ConflictDuplicate, rules.ProviderID, a.FacilityID, a.Date,
				fmt.Sprintf("%s 在 %s 重复出现", a.FacilityID, a.Date)))
		}
		seen[key] = true

		if a.Patients <= 0 {
			conflicts = append(conflicts, d.newConflict(ConflictNonPositive, rules.ProviderID, a.FacilityID, a.Date,
				fmt.Sprintf("患者数 %d 不为正", a.Patients)))
		}
		if rules.Horizon != nil && !rules.Horizon[a.Date] {
			conflicts = append(conflicts, d.newConflict(ConflictHorizon, rules.ProviderID, a.FacilityID, a.Date,
				fmt.Sprintf("%s 不在排程周期的工作日内", a.Date)))
			continue
		}
		if d.config.CheckAvailability && rules.Workable != nil && !rules.Workable[a.Date] {
			conflicts = append(conflicts, d.newConflict(ConflictAvailability, rules.ProviderID, a.FacilityID, a.Date,
				fmt.Sprintf("%s 为不可工作日", a.Date)))
		}
		if rules.Targets != nil {
			if _, ok := rules.Targets[a.FacilityID]; !ok {
				conflicts = append(conflicts, d.newConflict(ConflictFacility, rules.ProviderID, a.FacilityID, a.Date,
					fmt.Sprintf("机构 %s 没有需求目标", a.FacilityID)))
			}
		}
	}
	return conflicts
}

// detectCapacity 检测每日上限
func (d *ConflictDetector) detectCapacity(assignments []model.Assignment, rules Rules) []Conflict {
	var conflicts []Conflict

	daily := make(map[string]int)
	for _, a := range assignments {
		daily[a.Date] += a.Patients
	}
	for date, n := range daily {
		if n > rules.Limit {
			conflicts = append(conflicts, d.newConflict(ConflictCapacity, rules.ProviderID, "", date,
				fmt.Sprintf("%s 安排 %d 名患者，超过上限 %d", date, n, rules.Limit)))
		}
	}
	return conflicts
}

// detectDemand 检测机构总量不超过需求目标
func (d *ConflictDetector) detectDemand(assignments []model.Assignment, rules Rules) []Conflict {
	var conflicts []Conflict

	totals := make(map[string]int)
	for _, a := range assignments {
		totals[a.FacilityID] += a.Patients
	}
	for f, n := range totals {
		target, ok := rules.Targets[f]
		if ok && n > target {
			conflicts = append(conflicts, d.newConflict(ConflictDemand, rules.ProviderID, f, "",
				fmt.Sprintf("机构 %s 安排 %d 名患者，超过目标 %d", f, n, target)))
		}
	}
	return conflicts
}

func (d *ConflictDetector) newConflict(t ConflictType, providerID, facilityID, date, message string) Conflict {
	return Conflict{
		Type:       t,
		Severity:   "error",
		ProviderID: providerID,
		FacilityID: facilityID,
		Date:       date,
		Message:    message,
	}
}

// HasErrors 是否存在错误级冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == "error" {
			return true
		}
	}
	return false
}
