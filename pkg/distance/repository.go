// Package distance 提供只读的通勤时长查询
//
// 每个业务线一份矩阵：医生住址到机构、机构到机构的通勤小时数。
// 缺失条目一律按 0 处理，不视为不可达。
package distance

import (
	"math"
	"sort"
)

// Matrix 一个业务线的通勤时长矩阵（小时）
type Matrix struct {
	BusinessLine       string                        `json:"business_line"`
	Source             string                        `json:"source"`
	HomeToFacility     map[string]map[string]float64 `json:"home_to_facility"`
	FacilityToFacility map[string]map[string]float64 `json:"facility_to_facility"`
}

// Repository 不可变的通勤时长仓库，可在并发求解间共享
type Repository struct {
	businessLine string
	source       string
	home         map[string]map[string]float64
	between      map[string]map[string]float64
}

// NewRepository 从矩阵创建仓库（深拷贝，之后修改 m 不影响仓库）
func NewRepository(m *Matrix) *Repository {
	r := &Repository{
		home:    copyTable(nil),
		between: copyTable(nil),
	}
	if m == nil {
		return r
	}
	r.businessLine = m.BusinessLine
	r.source = m.Source
	r.home = copyTable(m.HomeToFacility)
	r.between = copyTable(m.FacilityToFacility)
	return r
}

func copyTable(in map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(in))
	for from, row := range in {
		cp := make(map[string]float64, len(row))
		for to, v := range row {
			cp[to] = v
		}
		out[from] = cp
	}
	return out
}

// BusinessLine 业务线
func (r *Repository) BusinessLine() string { return r.businessLine }

// Source 数据来源标签
func (r *Repository) Source() string { return r.source }

// HomeToFacility 医生住址到机构的时长，缺失为 0
func (r *Repository) HomeToFacility(providerID, facilityID string) float64 {
	return lookup(r.home, providerID, facilityID)
}

// FacilityToFacility 机构间时长，缺失为 0
func (r *Repository) FacilityToFacility(fromID, toID string) float64 {
	return lookup(r.between, fromID, toID)
}

// HasHome 是否存在该医生住址到机构的条目
func (r *Repository) HasHome(providerID, facilityID string) bool {
	return has(r.home, providerID, facilityID)
}

// HasBetween 是否存在机构间条目
func (r *Repository) HasBetween(fromID, toID string) bool {
	return has(r.between, fromID, toID)
}

// Providers 矩阵中的医生（排序）
func (r *Repository) Providers() []string {
	out := make([]string, 0, len(r.home))
	for id := range r.home {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot 导出矩阵副本
func (r *Repository) Snapshot() *Matrix {
	return &Matrix{
		BusinessLine:       r.businessLine,
		Source:             r.source,
		HomeToFacility:     copyTable(r.home),
		FacilityToFacility: copyTable(r.between),
	}
}

func lookup(t map[string]map[string]float64, from, to string) float64 {
	v, ok := t[from][to]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func has(t map[string]map[string]float64, from, to string) bool {
	v, ok := t[from][to]
	return ok && !math.IsNaN(v)
}
