// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/visitplan/pkg/model"
)

var (
	// Registry 专用注册表
	Registry = prometheus.NewRegistry()

	// HTTPRequests 请求计数器
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "visitplan_http_requests_total", Help: "HTTP请求总数"},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration 请求延迟直方图
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visitplan_http_request_duration_seconds",
			Help:    "HTTP请求延迟",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"method", "path"},
	)

	// SolveTotal 单医生求解次数
	SolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "visitplan_solve_total", Help: "单医生求解次数"},
		[]string{"business_line", "status"},
	)

	// SolveDuration 单医生求解延迟
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "visitplan_solve_duration_seconds",
			Help:    "单医生求解延迟",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		},
		[]string{"business_line"},
	)

	// OptimizerIterations 局部搜索迭代次数
	OptimizerIterations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "visitplan_optimizer_iterations_total", Help: "优化器迭代次数"},
		[]string{"business_line"},
	)

	// BatchProviders 批量模式医生数
	BatchProviders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "visitplan_batch_providers_total", Help: "批量模式处理的医生数"},
		[]string{"business_line", "result"},
	)

	// PatientsServed 最近一次运行的已安排患者数
	PatientsServed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "visitplan_patients_served", Help: "最近一次运行的已安排患者数"},
		[]string{"business_line", "mode"},
	)

	// CoverageRate 最近一次运行的覆盖率
	CoverageRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "visitplan_coverage_rate", Help: "需求覆盖率 (%)"},
		[]string{"business_line", "mode"},
	)

	// DistanceCacheLookups 距离缓存查找
	DistanceCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "visitplan_distance_cache_lookups_total", Help: "距离矩阵缓存查找"},
		[]string{"layer", "result"},
	)
)

var regOnce sync.Once

// Register 注册所有指标，可重复调用
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(
			HTTPRequests,
			HTTPDuration,
			SolveTotal,
			SolveDuration,
			OptimizerIterations,
			BatchProviders,
			PatientsServed,
			CoverageRate,
			DistanceCacheLookups,
		)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler 返回Prometheus格式的指标HTTP处理器
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheLookup 记录距离缓存查找，签名与 distance.CacheObserver 一致
func RecordCacheLookup(_, layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DistanceCacheLookups.WithLabelValues(layer, result).Inc()
}

// PlannerObserver 把排程结果写入指标
type PlannerObserver struct{}

// ObserveSolve 单医生求解完成
func (PlannerObserver) ObserveSolve(businessLine string, status model.ScheduleStatus, iterations int, duration time.Duration) {
	SolveTotal.WithLabelValues(businessLine, string(status)).Inc()
	SolveDuration.WithLabelValues(businessLine).Observe(duration.Seconds())
	if iterations > 0 {
		OptimizerIterations.WithLabelValues(businessLine).Add(float64(iterations))
	}
}

// ObserveBatch 批量运行完成
func (PlannerObserver) ObserveBatch(businessLine string, providers, failed int, _ time.Duration) {
	BatchProviders.WithLabelValues(businessLine, "ok").Add(float64(providers - failed))
	BatchProviders.WithLabelValues(businessLine, "failed").Add(float64(failed))
}

// ObserveReport 输出报告
func (PlannerObserver) ObserveReport(businessLine string, mode model.OptimizationMode, served int, coverageRate float64) {
	PatientsServed.WithLabelValues(businessLine, string(mode)).Set(float64(served))
	CoverageRate.WithLabelValues(businessLine, string(mode)).Set(coverageRate)
}
