package constraint

import (
	"sort"
	"sync"
)

// Manager 约束管理器，硬约束在前，软约束构成目标函数的惩罚项
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{}
}

// Register 注册约束，同类型替换
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 硬约束在前，同类别按类型名排序保证评估顺序稳定
	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		return ci.Type() < cj.Type()
	})
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// Evaluate 评估所有约束并计算目标值
func (m *Manager) Evaluate(ctx *Context) *Result {
	constraints := m.GetAll()

	patients := ctx.TotalPatients()
	result := &Result{
		IsValid:        true,
		Patients:       patients,
		HardViolations: make([]ViolationDetail, 0),
		SoftViolations: make([]ViolationDetail, 0),
	}

	for _, c := range constraints {
		valid, penalty, details := c.Evaluate(ctx)
		if c.Category() == CategoryHard {
			if !valid {
				result.IsValid = false
				result.HardViolations = append(result.HardViolations, details...)
			}
			continue
		}
		result.SoftPenalty += penalty
		result.SoftViolations = append(result.SoftViolations, details...)
	}

	result.Objective = ctx.Objective.CoverageWeight*float64(patients) - result.SoftPenalty
	return result
}

// SoftPenalty 只计算软约束加权惩罚，局部搜索的热路径使用
func (m *Manager) SoftPenalty(ctx *Context) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0.0
	for _, c := range m.constraints {
		if c.Category() != CategorySoft {
			continue
		}
		if p, ok := c.(Penalizer); ok {
			total += p.Penalty(ctx)
			continue
		}
		_, penalty, _ := c.Evaluate(ctx)
		total += penalty
	}
	return total
}

// CanApply 检查一组改动应用后硬约束是否仍满足，不修改方案
func (m *Manager) CanApply(ctx *Context, changes []Change) bool {
	hard := m.GetByCategory(CategoryHard)

	ctx.Apply(changes)
	defer ctx.Revert(changes)

	for _, ch := range changes {
		if ctx.Plan[ch.Day][ch.Facility] < 0 {
			return false
		}
		for _, c := range hard {
			if !c.CheckCell(ctx, ch.Day, ch.Facility) {
				return false
			}
		}
	}
	return true
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}
