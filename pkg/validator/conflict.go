// Package validator 提供排班验证功能
package validator

import (
	"fmt"
	"sort"

	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint/builtin"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictDoubleBooking ConflictType = "double_booking" // 同一时段出现在多个区域
	ConflictCounter       ConflictType = "counter"        // 周计数与排班不一致
	ConflictClosedSlot    ConflictType = "closed_slot"    // 关闭时段有内容
	ConflictAvailability  ConflictType = "availability"   // 不可用
	ConflictMaxMinutes    ConflictType = "max_minutes"    // 超过周上限
	ConflictRotationCap   ConflictType = "rotation_cap"   // 轮换人数超过上限
	ConflictUnknownAgent  ConflictType = "unknown_agent"  // 人员不在名单中
)

// 严重程度
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	Agent    string       `json:"agent,omitempty"`
	Week     int          `json:"week"`
	Date     string       `json:"date,omitempty"`
	Slot     string       `json:"slot,omitempty"`
	Section  string       `json:"section,omitempty"`
	Message  string       `json:"message"`
}

// ConflictDetector 冲突检测器
type ConflictDetector struct {
	config *DetectorConfig
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	CheckAvailability bool // 是否检查在岗与事件
	CheckQuota        bool // 是否检查周上限
	CheckRotationCap  bool // 是否检查轮换上限（软约束，记为 warning）
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		CheckAvailability: true,
		CheckQuota:        true,
		CheckRotationCap:  true,
	}
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectPlan 检测整月排班
func (d *ConflictDetector) DetectPlan(in *model.Input, plan *model.Plan) []Conflict {
	var conflicts []Conflict
	for _, w := range plan.Weeks {
		conflicts = append(conflicts, d.DetectWeek(in, w)...)
	}
	return conflicts
}

// DetectWeek 检测一周排班
func (d *ConflictDetector) DetectWeek(in *model.Input, w *model.WeekPlan) []Conflict {
	agents := in.AgentIndex()
	totals := make(map[string]int)
	var conflicts []Conflict

	for _, dp := range w.Days {
		conflicts = append(conflicts, d.detectDay(in, agents, w.Index, dp, totals)...)
	}

	conflicts = append(conflicts, d.detectCounters(in, w, totals)...)
	if d.config.CheckQuota {
		conflicts = append(conflicts, d.detectMaxMinutes(in, w, totals)...)
	}
	return conflicts
}

// detectDay 检测一天内的时段
func (d *ConflictDetector) detectDay(in *model.Input, agents map[string]*model.Agent, week int, dp *model.DayPlan, totals map[string]int) []Conflict {
	var conflicts []Conflict
	events := in.Events[dp.Date]
	permanentBySection := make(map[model.Section]map[string]bool)

	for i, rec := range dp.Slots {
		if i >= len(in.Slots) {
			break
		}
		slot := in.Slots[i]
		open := builtin.SlotIsOpen(slot.TimeRange, in.OpeningHours[dp.Day])
		if rec == nil {
			continue
		}
		if !open {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictClosedSlot,
				Severity: SeverityError,
				Week:     week,
				Date:     dp.Date,
				Slot:     slot.Label,
				Message:  "关闭时段存在排班记录",
			})
			continue
		}

		seen := make(map[string]model.Section)
		for _, sec := range model.Sections {
			for _, id := range rec.Assignment[sec] {
				base := Conflict{Agent: id, Week: week, Date: dp.Date, Slot: slot.Label, Section: string(sec)}

				if prev, dup := seen[id]; dup {
					c := base
					c.Type, c.Severity = ConflictDoubleBooking, SeverityError
					c.Message = fmt.Sprintf("同时出现在 %s 和 %s", prev, sec)
					conflicts = append(conflicts, c)
					continue
				}
				seen[id] = sec
				totals[id] += slot.Duration()

				a := agents[id]
				if a == nil {
					c := base
					c.Type, c.Severity = ConflictUnknownAgent, SeverityError
					c.Message = "人员不在名单中"
					conflicts = append(conflicts, c)
					continue
				}
				if d.config.CheckAvailability && !builtin.AgentAvailable(a, dp.Day, slot.TimeRange, events) {
					c := base
					c.Type, c.Severity = ConflictAvailability, SeverityError
					c.Message = "人员在该时段不可用"
					conflicts = append(conflicts, c)
				}
				if !a.IsTemporary() {
					if permanentBySection[sec] == nil {
						permanentBySection[sec] = make(map[string]bool)
					}
					permanentBySection[sec][id] = true
				}
			}
		}
	}

	if d.config.CheckRotationCap {
		limit := in.Rules.RotationCap(dp.Day)
		for _, sec := range model.Sections {
			if n := len(permanentBySection[sec]); n > limit {
				conflicts = append(conflicts, Conflict{
					Type:     ConflictRotationCap,
					Severity: SeverityWarning,
					Week:     week,
					Date:     dp.Date,
					Section:  string(sec),
					Message:  fmt.Sprintf("当日轮换 %d 名正式员工，上限 %d", n, limit),
				})
			}
		}
	}
	return conflicts
}

// detectCounters 周计数必须等于排班中出现的时段时长之和
func (d *ConflictDetector) detectCounters(in *model.Input, w *model.WeekPlan, totals map[string]int) []Conflict {
	ids := make(map[string]bool)
	for id := range totals {
		ids[id] = true
	}
	for id := range w.SPCount {
		ids[id] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	var conflicts []Conflict
	for _, id := range sorted {
		if totals[id] != w.SPCount[id] {
			conflicts = append(conflicts, Conflict{
				Type:     ConflictCounter,
				Severity: SeverityError,
				Agent:    id,
				Week:     w.Index,
				Message:  fmt.Sprintf("计数 %d 分钟，排班合计 %d 分钟", w.SPCount[id], totals[id]),
			})
		}
	}
	return conflicts
}

// detectMaxMinutes 周服务时长不得超过适用上限
func (d *ConflictDetector) detectMaxMinutes(in *model.Input, w *model.WeekPlan, totals map[string]int) []Conflict {
	var conflicts []Conflict
	withSaturday := w.HasSaturday()
	for _, a := range in.Agents {
		limit := a.Quota.For(withSaturday).Max
		if totals[a.ID] > limit {
			msg := fmt.Sprintf("服务 %s 超过上限 %s", model.FormatDuration(totals[a.ID]), model.FormatDuration(limit))
			conflicts = append(conflicts, Conflict{
				Type:     ConflictMaxMinutes,
				Severity: SeverityError,
				Agent:    a.ID,
				Week:     w.Index,
				Message:  msg,
			})
		}
	}
	return conflicts
}

// HasErrors 是否存在 error 级别的冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Summarize 按类型统计冲突数
func Summarize(conflicts []Conflict) map[ConflictType]int {
	summary := make(map[ConflictType]int)
	for _, c := range conflicts {
		summary[c.Type]++
	}
	return summary
}
