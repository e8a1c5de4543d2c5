// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TimeRange 一天内的时间区间，单位为距午夜的分钟数（半开区间）
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Duration 返回区间时长（分钟）
func (tr TimeRange) Duration() int {
	return tr.End - tr.Start
}

// Overlaps 检查两个区间是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start < other.End && tr.End > other.Start
}

// Within 检查区间是否完全落在 outer 内
func (tr TimeRange) Within(outer TimeRange) bool {
	return tr.Start >= outer.Start && tr.End <= outer.End
}

// IsValid 起止合法且非空
func (tr TimeRange) IsValid() bool {
	return tr.Start >= 0 && tr.End > tr.Start
}

// String 返回 "HH:MM-HH:MM"
func (tr TimeRange) String() string {
	return FormatClock(tr.Start) + "-" + FormatClock(tr.End)
}

// ParseClock 解析时刻为分钟数
// 支持 "9h", "9h30", "9:30", "09:30", "9h30m", "09:30:00" 以及 Excel 的日分数 "0.375"
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "nan" {
		return 0, false
	}

	// Excel 时间单元格的原始值是一天的分数
	if strings.Contains(s, ".") && !strings.ContainsAny(s, "h:") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || f >= 1 {
			return 0, false
		}
		return int(math.Round(f * 24 * 60)), true
	}

	normalized := strings.ReplaceAll(s, "h", ":")
	normalized = strings.ReplaceAll(normalized, "m", "")
	normalized = strings.TrimRight(normalized, ":")
	parts := strings.Split(normalized, ":")

	hours := 0
	if p := strings.TrimSpace(parts[0]); p != "" {
		h, err := strconv.Atoi(p)
		if err != nil {
			return 0, false
		}
		hours = h
	}
	minutes := 0
	if len(parts) >= 2 {
		if p := strings.TrimSpace(parts[1]); p != "" {
			m, err := strconv.Atoi(p)
			if err != nil {
				return 0, false
			}
			minutes = m
		}
	}
	if hours < 0 || minutes < 0 || minutes >= 60 {
		return 0, false
	}
	return hours*60 + minutes, true
}

// ParseRange 解析 "12:00-14:00" 形式的区间
func ParseRange(s string) (TimeRange, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return TimeRange{}, false
	}
	start, ok1 := ParseClock(parts[0])
	end, ok2 := ParseClock(parts[1])
	if !ok1 || !ok2 {
		return TimeRange{}, false
	}
	tr := TimeRange{Start: start, End: end}
	if !tr.IsValid() {
		return TimeRange{}, false
	}
	return tr, true
}

// FormatClock 分钟数格式化为 "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatDuration 时长格式化为 "2h30"
func FormatDuration(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%dh%02d", sign, minutes/60, minutes%60)
}
