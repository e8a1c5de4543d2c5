package builtin

import (
	"fmt"

	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
)

// AgentCoversSlot 时段是否完全落在人员当日的上午或下午窗口内
func AgentCoversSlot(a *model.Agent, d model.Day, slot model.TimeRange) bool {
	sched, ok := a.Schedule[d]
	if !ok {
		return false
	}
	return sched.Covers(slot)
}

// BlockingEvent 返回当日与时段重叠且涉及该人员的第一个事件
func BlockingEvent(a *model.Agent, slot model.TimeRange, events []model.Event) (model.Event, bool) {
	for _, ev := range events {
		if ev.Involves(a.ID) && ev.Overlaps(slot) {
			return ev, true
		}
	}
	return model.Event{}, false
}

// AgentBlockedByEvent 人员是否被当日的重叠事件占用
func AgentBlockedByEvent(a *model.Agent, slot model.TimeRange, events []model.Event) bool {
	_, blocked := BlockingEvent(a, slot, events)
	return blocked
}

// AgentAvailable 在岗且未被事件占用
func AgentAvailable(a *model.Agent, d model.Day, slot model.TimeRange, events []model.Event) bool {
	return AgentCoversSlot(a, d, slot) && !AgentBlockedByEvent(a, slot, events)
}

// SlotIsOpen 时段是否完全落在当日某个开放区间内
func SlotIsOpen(slot model.TimeRange, opening []model.TimeRange) bool {
	for _, oh := range opening {
		if slot.Within(oh) {
			return true
		}
	}
	return false
}

// IsUnsupervisedExceptionWindow 时段是否落在允许临时工单独值守的窗口内
func IsUnsupervisedExceptionWindow(slot model.TimeRange, rules model.Rules) bool {
	return rules.InExceptionWindow(slot)
}

// EventsOverlapping 与时段重叠的事件
func EventsOverlapping(slot model.TimeRange, events []model.Event) []model.Event {
	var out []model.Event
	for _, ev := range events {
		if ev.Overlaps(slot) {
			out = append(out, ev)
		}
	}
	return out
}

// AvailabilityConstraint 在岗与事件约束
type AvailabilityConstraint struct {
	*BaseConstraint
}

// NewAvailabilityConstraint 创建在岗约束
func NewAvailabilityConstraint() *AvailabilityConstraint {
	return &AvailabilityConstraint{
		BaseConstraint: NewBaseConstraint("人员在岗", constraint.TypeAvailability, constraint.CategoryHard),
	}
}

// Check 检查人员在当前时段是否可用
func (c *AvailabilityConstraint) Check(ctx *constraint.Context, cand constraint.Candidate) (bool, string) {
	slot := ctx.Slot.TimeRange
	if !AgentCoversSlot(cand.Agent, ctx.Day, slot) {
		return false, fmt.Sprintf("%s 不在岗", ctx.Day)
	}
	if ev, blocked := BlockingEvent(cand.Agent, slot, ctx.Events); blocked {
		return false, fmt.Sprintf("事件 %s %s", ev.Name, ev.TimeRange)
	}
	return true, ""
}
