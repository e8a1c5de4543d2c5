package builtin

import (
	"fmt"

	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
)

// ConsecutiveMinutes 人员在该区域紧接 index 之前的连续在岗分钟数
// daySlots 为当日已处理的时段记录，关闭的时段（nil）视为中断
func ConsecutiveMinutes(daySlots []*model.SlotRecord, agent string, sec model.Section, index int) int {
	total := 0
	for i := min(index, len(daySlots)) - 1; i >= 0; i-- {
		rec := daySlots[i]
		if rec == nil || !rec.In(sec, agent) {
			break
		}
		total += rec.Slot.Duration()
	}
	return total
}

// HasTakenBreak 人员在 index 之前是否已有有效休息
// 遇到关闭时段，或某个不短于 minBreak 的开放时段中人员不在任何区域，均视为已休息
func HasTakenBreak(daySlots []*model.SlotRecord, agent string, index, minBreak int) bool {
	for i := 0; i < min(index, len(daySlots)); i++ {
		rec := daySlots[i]
		if rec == nil {
			return true
		}
		if rec.Slot.Duration() >= minBreak && !rec.Has(agent) {
			return true
		}
	}
	return false
}

// TemporaryAloneMinutes 该区域紧接 index 之前仅由临时工覆盖的连续分钟数
func TemporaryAloneMinutes(daySlots []*model.SlotRecord, agents map[string]*model.Agent, sec model.Section, index int) int {
	total := 0
	for i := min(index, len(daySlots)) - 1; i >= 0; i-- {
		rec := daySlots[i]
		if rec == nil || !OnlyTemporary(rec.Assignment[sec], agents) {
			break
		}
		total += rec.Slot.Duration()
	}
	return total
}

// OnlyTemporary 名单非空且全部为临时工
func OnlyTemporary(ids []string, agents map[string]*model.Agent) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		a, ok := agents[id]
		if !ok || !a.IsTemporary() {
			return false
		}
	}
	return true
}

// ConsecutiveDurationConstraint 连续在岗时长约束
// 短班日不超过理想上限；长班日不超过容忍上限，且达到上限后未休息必须换人
type ConsecutiveDurationConstraint struct {
	*BaseConstraint
}

// NewConsecutiveDurationConstraint 创建连续在岗时长约束
func NewConsecutiveDurationConstraint() *ConsecutiveDurationConstraint {
	return &ConsecutiveDurationConstraint{
		BaseConstraint: NewBaseConstraint("连续在岗时长", constraint.TypeConsecutiveDuration, constraint.CategoryHard),
	}
}

// Check 检查人员继续留在该区域是否超过连续时长
func (c *ConsecutiveDurationConstraint) Check(ctx *constraint.Context, cand constraint.Candidate) (bool, string) {
	consecutive := ConsecutiveMinutes(ctx.DaySlots, cand.Agent.ID, cand.Section, ctx.SlotIndex)
	limit := ctx.Rules.DurationLimit(ctx.Day)
	if consecutive+ctx.Slot.Duration() > limit {
		return false, fmt.Sprintf("连续 %s 超过 %s",
			model.FormatDuration(consecutive+ctx.Slot.Duration()), model.FormatDuration(limit))
	}
	if ctx.Day.IsLong() && consecutive >= limit &&
		!HasTakenBreak(ctx.DaySlots, cand.Agent.ID, ctx.SlotIndex, ctx.Rules.MinBreakMinutes) {
		return false, fmt.Sprintf("已连续 %s 且未休息", model.FormatDuration(consecutive))
	}
	return true, ""
}
