package model

import "strings"

// StaffKind 人员类别
type StaffKind string

const (
	StaffPermanent StaffKind = "permanent" // 正式员工
	StaffTemporary StaffKind = "temporary" // 临时工（vacataire）
)

// TemporaryMarker 临时工标识的命名约定
const TemporaryMarker = "vacataire"

// KindFromName 按命名约定推断人员类别，仅在数据导入时调用一次
func KindFromName(id string) StaffKind {
	if strings.Contains(strings.ToLower(id), TemporaryMarker) {
		return StaffTemporary
	}
	return StaffPermanent
}

// DaySchedule 某个工作日的上午/下午在岗时段
type DaySchedule struct {
	Morning   *TimeRange `json:"morning,omitempty"`
	Afternoon *TimeRange `json:"afternoon,omitempty"`
}

// Covers 时段是否完全落在上午或下午窗口内
func (s DaySchedule) Covers(slot TimeRange) bool {
	if s.Morning != nil && slot.Within(*s.Morning) {
		return true
	}
	if s.Afternoon != nil && slot.Within(*s.Afternoon) {
		return true
	}
	return false
}

// Bounds 周服务时长上下限（分钟）
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Quota 周配额：仅工作日的周 / 包含周六的周
type Quota struct {
	Weekday  Bounds `json:"weekday"`
	Saturday Bounds `json:"saturday"`
}

// DefaultMaxMinutes 未配置上限时的默认值（99小时）
const DefaultMaxMinutes = 99 * 60

// DefaultQuota 默认配额：无下限，99小时上限
func DefaultQuota() Quota {
	return Quota{
		Weekday:  Bounds{Min: 0, Max: DefaultMaxMinutes},
		Saturday: Bounds{Min: 0, Max: DefaultMaxMinutes},
	}
}

// For 按周类别取上下限
func (q Quota) For(withSaturday bool) Bounds {
	if withSaturday {
		return q.Saturday
	}
	return q.Weekday
}

// Agent 服务台人员
type Agent struct {
	ID       string              `json:"id"`
	Kind     StaffKind           `json:"kind"`
	Sections []Section           `json:"sections"` // 第一个为主区域
	Schedule map[Day]DaySchedule `json:"schedule"`
	Color    RotationColor       `json:"color,omitempty"`
	Quota    Quota               `json:"quota"`
}

// NewAgent 创建人员，类别由命名约定推断
func NewAgent(id string, sections ...Section) *Agent {
	return &Agent{
		ID:       id,
		Kind:     KindFromName(id),
		Sections: sections,
		Schedule: make(map[Day]DaySchedule),
		Quota:    DefaultQuota(),
	}
}

// IsTemporary 是否为临时工
func (a *Agent) IsTemporary() bool {
	return a.Kind == StaffTemporary
}

// CanStaff 是否有权覆盖该区域
func (a *Agent) CanStaff(s Section) bool {
	for _, sec := range a.Sections {
		if sec == s {
			return true
		}
	}
	return false
}

// PrimarySection 主区域，未配置时返回空
func (a *Agent) PrimarySection() Section {
	if len(a.Sections) == 0 {
		return ""
	}
	return a.Sections[0]
}

// WorksOn 该日是否有排班时段
func (a *Agent) WorksOn(d Day) bool {
	_, ok := a.Schedule[d]
	return ok
}
