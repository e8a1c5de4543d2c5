package stats

import (
	"math"
	"sort"

	"github.com/paiban/mediatheque/pkg/model"
)

// FairnessMetrics 公平性指标（只统计正式员工）
type FairnessMetrics struct {
	// 服务时长公平性
	WorkloadGini     float64 `json:"workload_gini"`     // 基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadVariance float64 `json:"workload_variance"` // 方差
	WorkloadStdDev   float64 `json:"workload_std_dev"`  // 标准差
	AvgMinutes       float64 `json:"avg_minutes"`       // 人均分钟
	MaxMinutes       float64 `json:"max_minutes"`       // 最大分钟
	MinMinutes       float64 `json:"min_minutes"`       // 最小分钟
	MinutesRange     float64 `json:"minutes_range"`     // 极差
	QuotaCompliance  float64 `json:"quota_compliance"`  // 处于配额范围内的比例 (%)

	// 人员级别统计
	AgentStats []AgentStat `json:"agent_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// AgentStat 人员统计
type AgentStat struct {
	Agent     string  `json:"agent"`
	Minutes   int     `json:"minutes"`
	Weeks     int     `json:"weeks"`     // 参与统计的周数
	Under     int     `json:"under"`     // 低于下限的周数
	Over      int     `json:"over"`      // 超过上限的周数
	Deviation float64 `json:"deviation"` // 与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	giniWeight   float64 // 基尼系数在综合评分中的权重
	stdDevWeight float64 // 变异系数在综合评分中的权重
}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{
		giniWeight:   0.6,
		stdDevWeight: 0.4,
	}
}

// Analyze 基于各周工作量汇总分析正式员工之间的公平性
func (f *FairnessAnalyzer) Analyze(weeks []*WeekWorkload) *FairnessMetrics {
	statMap := make(map[string]*AgentStat)
	inRange, samples := 0, 0

	for _, w := range weeks {
		for _, aw := range w.Agents {
			if aw.Kind == model.StaffTemporary {
				continue
			}
			stat, ok := statMap[aw.Agent]
			if !ok {
				stat = &AgentStat{Agent: aw.Agent}
				statMap[aw.Agent] = stat
			}
			stat.Minutes += aw.Total
			stat.Weeks++
			samples++
			switch aw.Status {
			case StatusUnder:
				stat.Under++
			case StatusOver:
				stat.Over++
			default:
				inRange++
			}
		}
	}

	if len(statMap) == 0 {
		return &FairnessMetrics{
			QuotaCompliance:      100,
			OverallFairnessScore: 100,
		}
	}

	agentStats := make([]AgentStat, 0, len(statMap))
	for _, stat := range statMap {
		agentStats = append(agentStats, *stat)
	}
	// 按时长降序，时长相同按姓名
	sort.Slice(agentStats, func(i, j int) bool {
		if agentStats[i].Minutes != agentStats[j].Minutes {
			return agentStats[i].Minutes > agentStats[j].Minutes
		}
		return agentStats[i].Agent < agentStats[j].Agent
	})

	minutes := make([]float64, len(agentStats))
	for i, stat := range agentStats {
		minutes[i] = float64(stat.Minutes)
	}

	mean := f.calculateMean(minutes)
	variance := f.calculateVariance(minutes, mean)
	stdDev := math.Sqrt(variance)
	maxMin, minMin := f.calculateRange(minutes)
	gini := f.calculateGini(minutes)

	for i := range agentStats {
		if mean > 0 {
			agentStats[i].Deviation = (float64(agentStats[i].Minutes) - mean) / mean * 100
		}
	}

	return &FairnessMetrics{
		WorkloadGini:         gini,
		WorkloadVariance:     variance,
		WorkloadStdDev:       stdDev,
		AvgMinutes:           mean,
		MaxMinutes:           maxMin,
		MinMinutes:           minMin,
		MinutesRange:         maxMin - minMin,
		QuotaCompliance:      float64(inRange) / float64(samples) * 100,
		AgentStats:           agentStats,
		OverallFairnessScore: f.calculateOverallScore(gini, stdDev, mean),
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

// calculateOverallScore 综合评分：基尼系数与变异系数越小越公平
func (f *FairnessAnalyzer) calculateOverallScore(gini, stdDev, mean float64) float64 {
	cv := 0.0
	if mean > 0 {
		cv = math.Min(1, stdDev/mean)
	}
	score := 100 * (1 - f.giniWeight*gini - f.stdDevWeight*cv)
	return math.Max(0, math.Min(100, score))
}
