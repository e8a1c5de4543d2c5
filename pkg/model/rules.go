package model

import (
	"fmt"

	"github.com/paiban/mediatheque/pkg/errors"
)

// Rules 排班规则参数
type Rules struct {
	// 短班日（周二、周四、周五）连续在岗上限
	IdealMaxMinutes int `json:"ideal_max_minutes" toml:"ideal_max"`
	// 长班日（周三、周六）连续在岗上限
	ToleratedMaxMinutes int `json:"tolerated_max_minutes" toml:"tolerated_max"`
	// 有效休息的最短时长
	MinBreakMinutes int `json:"min_break_minutes" toml:"min_break"`
	// 允许临时工单独值守的窗口，nil 表示没有例外
	ExceptionWindow *TimeRange `json:"exception_window,omitempty" toml:"-"`
	// 允许临时工上岗的服务日
	TemporaryDays []Day `json:"temporary_days" toml:"-"`
	// 区域仅由临时工覆盖的最长连续时长，0 表示不检查
	MaxTemporaryAloneMinutes int `json:"max_temporary_alone_minutes" toml:"max_temp_alone"`

	RotationCapShort    int `json:"rotation_cap_short" toml:"rotation_cap_short"`
	RotationCapLong     int `json:"rotation_cap_long" toml:"rotation_cap_long"`
	DefaultYouthMinimum int `json:"default_youth_minimum" toml:"default_youth_minimum"`

	// 周序号 -> 周六颜色，未配置的周按奇偶推断
	SaturdayColors map[int]RotationColor `json:"saturday_colors,omitempty" toml:"-"`
}

// DefaultRules 返回默认规则
func DefaultRules() Rules {
	window := TimeRange{Start: 12 * 60, End: 14 * 60}
	return Rules{
		IdealMaxMinutes:          150,
		ToleratedMaxMinutes:      240,
		MinBreakMinutes:          60,
		ExceptionWindow:          &window,
		TemporaryDays:            []Day{Mercredi, Samedi},
		MaxTemporaryAloneMinutes: 120,
		RotationCapShort:         3,
		RotationCapLong:          4,
		DefaultYouthMinimum:      1,
		SaturdayColors:           make(map[int]RotationColor),
	}
}

// TemporaryAllowed 该日是否允许临时工上岗
func (r Rules) TemporaryAllowed(d Day) bool {
	for _, td := range r.TemporaryDays {
		if td == d {
			return true
		}
	}
	return false
}

// RotationCap 某日每个区域可轮换的不同正式员工数上限
func (r Rules) RotationCap(d Day) int {
	if d.IsLong() {
		return r.RotationCapLong
	}
	return r.RotationCapShort
}

// DurationLimit 某日连续在岗时长上限
func (r Rules) DurationLimit(d Day) int {
	if d.IsLong() {
		return r.ToleratedMaxMinutes
	}
	return r.IdealMaxMinutes
}

// InExceptionWindow 时段是否完全落在临时工单独值守的例外窗口内
func (r Rules) InExceptionWindow(slot TimeRange) bool {
	if r.ExceptionWindow == nil {
		return false
	}
	return slot.Within(*r.ExceptionWindow)
}

// validate 时长上限与轮换上限必须为正，其余参数不得为负
func (r Rules) validate(ve *errors.ValidationErrors) {
	positive := []struct {
		field string
		value int
	}{
		{"rules.ideal_max_minutes", r.IdealMaxMinutes},
		{"rules.tolerated_max_minutes", r.ToleratedMaxMinutes},
		{"rules.rotation_cap_short", r.RotationCapShort},
		{"rules.rotation_cap_long", r.RotationCapLong},
	}
	for _, p := range positive {
		if p.value <= 0 {
			ve.Add(p.field, fmt.Sprintf("必须大于 0: %d", p.value))
		}
	}
	if r.MinBreakMinutes < 0 {
		ve.Add("rules.min_break_minutes", fmt.Sprintf("不能为负: %d", r.MinBreakMinutes))
	}
	if r.MaxTemporaryAloneMinutes < 0 {
		ve.Add("rules.max_temporary_alone_minutes", fmt.Sprintf("不能为负: %d", r.MaxTemporaryAloneMinutes))
	}
	if r.DefaultYouthMinimum < 0 {
		ve.Add("rules.default_youth_minimum", fmt.Sprintf("不能为负: %d", r.DefaultYouthMinimum))
	}
	if r.ExceptionWindow != nil && !r.ExceptionWindow.IsValid() {
		ve.Add("rules.exception_window", fmt.Sprintf("起止无效: %s", r.ExceptionWindow))
	}
}
