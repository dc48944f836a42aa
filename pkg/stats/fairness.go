package stats

import (
	"math"
	"sort"

	"github.com/paiban/visitplan/pkg/model"
)

// FairnessMetrics 负载公平性指标
type FairnessMetrics struct {
	Gini     float64 `json:"gini"` // 0=完全均衡
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Max      float64 `json:"max"`
	Min      float64 `json:"min"`
	Range    float64 `json:"range"`
	Score    float64 `json:"score"` // 0-100
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// DailyLoads 按可工作日统计患者数，未安排的日子记为 0
func DailyLoads(assignments []model.Assignment, workableDays []string) []float64 {
	byDate := make(map[string]float64, len(workableDays))
	for _, d := range workableDays {
		byDate[d] = 0
	}
	for _, a := range assignments {
		if _, ok := byDate[a.Date]; ok {
			byDate[a.Date] += float64(a.Patients)
		}
	}
	out := make([]float64, 0, len(byDate))
	for _, d := range workableDays {
		out = append(out, byDate[d])
	}
	return out
}

// Analyze 分析一组负载值（每日患者数或每个医生的患者数）
func (f *FairnessAnalyzer) Analyze(values []float64) *FairnessMetrics {
	if len(values) == 0 {
		return &FairnessMetrics{Score: 100}
	}
	mean := f.calculateMean(values)
	variance := f.calculateVariance(values, mean)
	maxV, minV := f.calculateRange(values)
	gini := f.calculateGini(values)

	return &FairnessMetrics{
		Gini:     model.Round(gini, 3),
		Mean:     model.Round(mean, 2),
		Variance: model.Round(variance, 2),
		StdDev:   model.Round(math.Sqrt(variance), 2),
		Max:      maxV,
		Min:      minV,
		Range:    maxV - minV,
		Score:    model.Round((1-gini)*100, 1),
	}
}

// calculateMean 计算平均值
func (f *FairnessAnalyzer) calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func (f *FairnessAnalyzer) calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func (f *FairnessAnalyzer) calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func (f *FairnessAnalyzer) calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}
