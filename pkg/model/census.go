package model

import "sort"

// CensusRow 普查行：某医生在某机构的月度患者数
type CensusRow struct {
	BusinessLine string             `json:"business_line"`
	ProviderID   string             `json:"provider_id"`
	FacilityID   string             `json:"facility_id"`
	Monthly      map[string]float64 `json:"monthly"` // YYYY-MM -> 患者数
}

// Census 一个业务线的普查快照
type Census struct {
	BusinessLine string      `json:"business_line"`
	Source       string      `json:"source"`
	Rows         []CensusRow `json:"rows"`
}

// Providers 返回排序去重后的医生列表
func (c *Census) Providers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.Rows {
		if !seen[r.ProviderID] {
			seen[r.ProviderID] = true
			out = append(out, r.ProviderID)
		}
	}
	sort.Strings(out)
	return out
}

// FacilitiesFor 返回医生可服务的机构（排序去重）
func (c *Census) FacilitiesFor(providerID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.Rows {
		if r.ProviderID == providerID && !seen[r.FacilityID] {
			seen[r.FacilityID] = true
			out = append(out, r.FacilityID)
		}
	}
	sort.Strings(out)
	return out
}

// Provider 构造医生实体，无普查行时返回 false
func (c *Census) Provider(providerID string) (*Provider, bool) {
	facilities := c.FacilitiesFor(providerID)
	if len(facilities) == 0 {
		return nil, false
	}
	return &Provider{ID: providerID, BusinessLine: c.BusinessLine, Facilities: facilities}, true
}

// Count 返回某医生在某机构某月的患者数，重复行累加
func (c *Census) Count(providerID, facilityID, month string) float64 {
	var total float64
	for _, r := range c.Rows {
		if r.ProviderID == providerID && r.FacilityID == facilityID {
			total += r.Monthly[month]
		}
	}
	return total
}
