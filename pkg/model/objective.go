package model

import (
	"fmt"
	"math"

	"github.com/paiban/visitplan/pkg/errors"
)

// 目标权重取值范围
const (
	MaxPenaltyWeight = 5.0
	MaxAlpha         = 0.2
	MinTargetGap     = 5
	MaxTargetGap     = 20
)

// ObjectiveWeights 目标函数可调系数
type ObjectiveWeights struct {
	WorkloadWeight float64 `json:"lambda_param"`          // λw 工作量均衡
	GapWeight      float64 `json:"lambda_facility"`       // λf 机构访问间隔
	BunchingWeight float64 `json:"lambda_bunching"`       // λb 防扎堆
	Alpha          float64 `json:"alpha"`                 // 服务缓冲
	TargetGap      int     `json:"facility_visit_window"` // T 目标访问间隔（工作日）
}

// DefaultObjectiveWeights 默认权重
func DefaultObjectiveWeights() ObjectiveWeights {
	return ObjectiveWeights{
		WorkloadWeight: 0,
		GapWeight:      0.1,
		BunchingWeight: 0.1,
		Alpha:          0.05,
		TargetGap:      10,
	}
}

// Validate 检查取值范围
func (w ObjectiveWeights) Validate() *errors.ValidationErrors {
	ve := &errors.ValidationErrors{}
	checkRange := func(field string, v, max float64) {
		if math.IsNaN(v) || v < 0 || v > max {
			ve.Add(field, fmt.Sprintf("取值范围 0-%g，实际为 %g", max, v))
		}
	}
	checkRange("lambda_param", w.WorkloadWeight, MaxPenaltyWeight)
	checkRange("lambda_facility", w.GapWeight, MaxPenaltyWeight)
	checkRange("lambda_bunching", w.BunchingWeight, MaxPenaltyWeight)
	checkRange("alpha", w.Alpha, MaxAlpha)
	if w.TargetGap < MinTargetGap || w.TargetGap > MaxTargetGap {
		ve.Add("facility_visit_window", fmt.Sprintf("取值范围 %d-%d，实际为 %d", MinTargetGap, MaxTargetGap, w.TargetGap))
	}
	return ve
}
