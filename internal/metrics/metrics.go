// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/paiban/mediatheque/pkg/scheduler/solver"
)

const namespace = "mediatheque"

// Registry 应用专用注册表
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// HTTP
var (
	HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP请求总数",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP请求延迟",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path"})
)

// 排班
var (
	PlansTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "plans_total",
		Help:      "月度排班生成次数",
	}, []string{"source", "status"})

	PlanDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "duration_seconds",
		Help:      "月度排班生成耗时",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"source"})

	WeeksPlanned = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "weeks_total",
		Help:      "已生成的周数",
	})

	SlotsPlanned = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "slots_total",
		Help:      "已处理的时段数",
	}, []string{"state"})

	AlertsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "alerts_total",
		Help:      "按类别统计的告警数",
	}, []string{"kind"})

	ReplacementsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "replacements_total",
		Help:      "按阶段统计的替换次数",
	}, []string{"pass"})

	QuotaShortfalls = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "quota_shortfalls_total",
		Help:      "周服务时长低于下限的人员次数",
	})

	WorkloadGini = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "workload_gini",
		Help:      "最近一次排班正式员工服务时长的基尼系数",
	})

	CoverageRate = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "coverage_rate",
		Help:      "最近一次排班开放时段的覆盖率（百分比）",
	})
)

// 工作簿
var (
	WorkbookReadDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "workbook",
		Name:      "read_duration_seconds",
		Help:      "工作簿读取耗时",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	WorkbookErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workbook",
		Name:      "errors_total",
		Help:      "工作簿读取错误数",
	}, []string{"code"})
)

// Handler 返回指标HTTP处理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Push 推送到 Pushgateway，用于一次性命令行运行
func Push(url, job string) error {
	return push.New(url, job).Gatherer(Registry).Push()
}

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordPlanGeneration 记录一次月度排班
// source 区分调用方：json、workbook、cli
func RecordPlanGeneration(source string, res *solver.PlanResult, err error, duration time.Duration) {
	PlanDuration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil || res == nil {
		PlansTotal.WithLabelValues(source, "failure").Inc()
		return
	}
	PlansTotal.WithLabelValues(source, "success").Inc()
	WeeksPlanned.Add(float64(len(res.Plan.Weeks)))

	for _, st := range res.Statistics {
		if st == nil {
			continue
		}
		SlotsPlanned.WithLabelValues("open").Add(float64(st.OpenSlots))
		SlotsPlanned.WithLabelValues("closed").Add(float64(st.ClosedSlots))
		for kind, n := range st.Alerts {
			AlertsTotal.WithLabelValues(string(kind)).Add(float64(n))
			if kind == solver.AlertQuotaShortfall {
				QuotaShortfalls.Add(float64(n))
			}
		}
		for pass, n := range st.Replacements {
			ReplacementsTotal.WithLabelValues(string(pass)).Add(float64(n))
		}
	}
}

// RecordWorkbookRead 记录工作簿读取
func RecordWorkbookRead(code string, duration time.Duration) {
	WorkbookReadDuration.Observe(duration.Seconds())
	if code != "" {
		WorkbookErrors.WithLabelValues(code).Inc()
	}
}

// SetFairnessGini 设置公平性基尼系数
func SetFairnessGini(gini float64) {
	WorkloadGini.Set(gini)
}

// SetCoverageRate 设置覆盖率
func SetCoverageRate(rate float64) {
	CoverageRate.Set(rate)
}
