package model

import (
	"time"

	"github.com/google/uuid"
)

// AlertPrefix 告警文本前缀
const AlertPrefix = "ALERTE — "

// SlotRecord 某日某时段的排班记录，nil 表示时段关闭
type SlotRecord struct {
	Slot       Slot                 `json:"slot"`
	Assignment map[Section][]string `json:"assignment"`
	Events     []Event              `json:"events,omitempty"`
	Alerts     []string             `json:"alerts,omitempty"`
}

// NewSlotRecord 创建空记录
func NewSlotRecord(slot Slot) *SlotRecord {
	return &SlotRecord{
		Slot:       slot,
		Assignment: make(map[Section][]string),
	}
}

// Alert 追加告警
func (r *SlotRecord) Alert(msg string) {
	r.Alerts = append(r.Alerts, AlertPrefix+msg)
}

// Has 人员是否已在本时段任一区域
func (r *SlotRecord) Has(agent string) bool {
	return r.SectionOf(agent) != ""
}

// SectionOf 人员所在区域，不在本时段时返回空
func (r *SlotRecord) SectionOf(agent string) Section {
	for _, sec := range Sections {
		for _, a := range r.Assignment[sec] {
			if a == agent {
				return sec
			}
		}
	}
	return ""
}

// In 人员是否在指定区域
func (r *SlotRecord) In(sec Section, agent string) bool {
	for _, a := range r.Assignment[sec] {
		if a == agent {
			return true
		}
	}
	return false
}

// Placed 本时段已安排的全部人员，按区域顺序
func (r *SlotRecord) Placed() []string {
	var out []string
	for _, sec := range Sections {
		out = append(out, r.Assignment[sec]...)
	}
	return out
}

// DayPlan 一天的排班
type DayPlan struct {
	Day   Day           `json:"day"`
	Date  string        `json:"date"`  // YYYY-MM-DD
	Slots []*SlotRecord `json:"slots"` // 与输入时段一一对应
}

// WeekPlan 一周的排班结果
type WeekPlan struct {
	Index         int            `json:"index"`
	SaturdayColor RotationColor  `json:"saturday_color"`
	Days          []*DayPlan     `json:"days"`
	SPCount       map[string]int `json:"sp_count"` // 人员 -> 本周服务分钟数
	Alerts        []string       `json:"alerts,omitempty"`
}

// HasSaturday 本周是否包含周六，决定配额类别
func (w *WeekPlan) HasSaturday() bool {
	return w.Day(Samedi) != nil
}

// Day 取某服务日，本周不含该日时返回 nil
func (w *WeekPlan) Day(d Day) *DayPlan {
	for _, dp := range w.Days {
		if dp.Day == d {
			return dp
		}
	}
	return nil
}

// SlotAlerts 统计本周时段告警数
func (w *WeekPlan) SlotAlerts() int {
	n := 0
	for _, dp := range w.Days {
		for _, rec := range dp.Slots {
			if rec != nil {
				n += len(rec.Alerts)
			}
		}
	}
	return n
}

// Plan 一个月的排班结果
type Plan struct {
	ID          uuid.UUID   `json:"id"`
	Year        int         `json:"year"`
	Month       time.Month  `json:"month"`
	GeneratedAt time.Time   `json:"generated_at"`
	Weeks       []*WeekPlan `json:"weeks"`
}

// NewPlan 创建月度排班
func NewPlan(year int, month time.Month) *Plan {
	return &Plan{
		ID:          uuid.New(),
		Year:        year,
		Month:       month,
		GeneratedAt: time.Now(),
	}
}

// AlertCount 全部告警数（时段 + 周）
func (p *Plan) AlertCount() int {
	n := 0
	for _, w := range p.Weeks {
		n += w.SlotAlerts() + len(w.Alerts)
	}
	return n
}
