package model

import "strings"

// Slot 一天内的排班时段，所有服务日共用同一组时段
type Slot struct {
	Label string `json:"label"`
	TimeRange
}

// NewSlot 创建时段，标签默认为 "HH:MM-HH:MM"
func NewSlot(start, end int) Slot {
	tr := TimeRange{Start: start, End: end}
	return Slot{Label: tr.String(), TimeRange: tr}
}

// ParseSlots 解析 "10:00-11:00;11:00-12:00" 形式的时段列表
func ParseSlots(raw string) []Slot {
	var slots []Slot
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, "-") {
			continue
		}
		tr, ok := ParseRange(part)
		if !ok {
			continue
		}
		slots = append(slots, Slot{Label: part, TimeRange: tr})
	}
	return slots
}

// Event 某日的事件（假期、会议等），使相关人员在重叠时段不可用
type Event struct {
	TimeRange
	Name   string   `json:"name"`
	Agents []string `json:"agents"`
}

// Involves 事件是否涉及该人员
func (e Event) Involves(agent string) bool {
	for _, a := range e.Agents {
		if a == agent {
			return true
		}
	}
	return false
}
