// Package stats 提供排班统计分析功能
package stats

import (
	"fmt"
	"sort"

	"github.com/paiban/mediatheque/pkg/model"
)

// WorkloadStatus 周服务时长相对配额的状态
type WorkloadStatus string

const (
	StatusOK    WorkloadStatus = "OK"
	StatusUnder WorkloadStatus = "UNDER" // 低于下限
	StatusOver  WorkloadStatus = "OVER"  // 超过上限
)

// AgentWorkload 单个人员一周的服务时长
type AgentWorkload struct {
	Agent   string            `json:"agent"`
	Kind    model.StaffKind   `json:"kind"`
	Section model.Section     `json:"section"` // 主区域
	PerDay  map[model.Day]int `json:"per_day"` // 服务日 -> 分钟
	Total   int               `json:"total"`   // 本周合计分钟
	Bounds  model.Bounds      `json:"bounds"`  // 本周适用的配额
	Status  WorkloadStatus    `json:"status"`
	Note    string            `json:"note"` // "7h00 / min 8h00"
}

// WeekWorkload 一周的工作量汇总
type WeekWorkload struct {
	Week         int             `json:"week"`
	WithSaturday bool            `json:"with_saturday"`
	Agents       []AgentWorkload `json:"agents"`
	Under        int             `json:"under"`
	Over         int             `json:"over"`
}

// WorkloadAnalyzer 工作量分析器
type WorkloadAnalyzer struct {
	includeIdle bool // 是否列出本周未排班的正式员工
}

// NewWorkloadAnalyzer 创建工作量分析器，默认列出全部正式员工
func NewWorkloadAnalyzer() *WorkloadAnalyzer {
	return &WorkloadAnalyzer{includeIdle: true}
}

// WithIdle 设置是否列出未排班的正式员工
func (w *WorkloadAnalyzer) WithIdle(include bool) *WorkloadAnalyzer {
	w.includeIdle = include
	return w
}

// AnalyzeWeek 统计一周内各人员的服务时长
// 列出本周出现过的人员以及（可选）全部正式员工，临时工只在出现时列出
func (w *WorkloadAnalyzer) AnalyzeWeek(in *model.Input, week *model.WeekPlan) *WeekWorkload {
	agents := in.AgentIndex()
	withSaturday := week.HasSaturday()

	perDay := make(map[string]map[model.Day]int)
	for _, dp := range week.Days {
		for _, rec := range dp.Slots {
			if rec == nil {
				continue
			}
			minutes := rec.Slot.Duration()
			for _, id := range rec.Placed() {
				if perDay[id] == nil {
					perDay[id] = make(map[model.Day]int)
				}
				perDay[id][dp.Day] += minutes
			}
		}
	}

	ids := make(map[string]bool, len(perDay))
	for id := range perDay {
		ids[id] = true
	}
	if w.includeIdle {
		for _, a := range in.Agents {
			if !a.IsTemporary() {
				ids[a.ID] = true
			}
		}
	}

	result := &WeekWorkload{
		Week:         week.Index,
		WithSaturday: withSaturday,
		Agents:       make([]AgentWorkload, 0, len(ids)),
	}

	for id := range ids {
		aw := AgentWorkload{
			Agent:  id,
			Kind:   model.KindFromName(id),
			PerDay: perDay[id],
			Bounds: model.Bounds{Max: model.DefaultMaxMinutes},
		}
		if aw.PerDay == nil {
			aw.PerDay = make(map[model.Day]int)
		}
		if a, ok := agents[id]; ok {
			aw.Kind = a.Kind
			aw.Section = a.PrimarySection()
			aw.Bounds = a.Quota.For(withSaturday)
		}
		for _, m := range aw.PerDay {
			aw.Total += m
		}
		aw.Status, aw.Note = Classify(aw.Total, aw.Bounds)

		switch aw.Status {
		case StatusUnder:
			result.Under++
		case StatusOver:
			result.Over++
		}
		result.Agents = append(result.Agents, aw)
	}

	sort.Slice(result.Agents, func(i, j int) bool {
		a, b := result.Agents[i], result.Agents[j]
		if sa, sb := sectionRank(a.Section), sectionRank(b.Section); sa != sb {
			return sa < sb
		}
		return a.Agent < b.Agent
	})

	return result
}

// AnalyzePlan 逐周统计
func (w *WorkloadAnalyzer) AnalyzePlan(in *model.Input, plan *model.Plan) []*WeekWorkload {
	out := make([]*WeekWorkload, 0, len(plan.Weeks))
	for _, week := range plan.Weeks {
		out = append(out, w.AnalyzeWeek(in, week))
	}
	return out
}

// Classify 判断合计分钟相对配额的状态，并生成说明文本
func Classify(total int, b model.Bounds) (WorkloadStatus, string) {
	switch {
	case total < b.Min:
		return StatusUnder, fmt.Sprintf("%s / min %s", model.FormatDuration(total), model.FormatDuration(b.Min))
	case total > b.Max:
		return StatusOver, fmt.Sprintf("%s / max %s", model.FormatDuration(total), model.FormatDuration(b.Max))
	}
	return StatusOK, model.FormatDuration(total)
}

// sectionRank 区域排序，未知区域排在最后
func sectionRank(s model.Section) int {
	for i, sec := range model.Sections {
		if sec == s {
			return i
		}
	}
	return len(model.Sections)
}
