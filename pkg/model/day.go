package model

import (
	"strings"
	"time"
)

// Day 公共服务日
type Day string

const (
	Mardi    Day = "Mardi"
	Mercredi Day = "Mercredi"
	Jeudi    Day = "Jeudi"
	Vendredi Day = "Vendredi"
	Samedi   Day = "Samedi"
)

// Days 一周内按顺序排列的服务日
var Days = []Day{Mardi, Mercredi, Jeudi, Vendredi, Samedi}

// Offset 相对周二的天数
func (d Day) Offset() int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return -1
}

// IsLong 长班日（周三、周六）使用容忍上限和更高的轮换上限
func (d Day) IsLong() bool {
	return d == Mercredi || d == Samedi
}

// Weekday 对应的 time.Weekday
func (d Day) Weekday() time.Weekday {
	return time.Tuesday + time.Weekday(d.Offset())
}

// ParseDay 解析服务日名称（不区分大小写）
func ParseDay(s string) (Day, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Days {
		if strings.EqualFold(string(d), s) {
			return d, true
		}
	}
	return "", false
}

// RotationColor 周六轮值颜色
type RotationColor string

const (
	Rouge RotationColor = "ROUGE"
	Bleu  RotationColor = "BLEU"
)

// ParseColor 解析轮值颜色
func ParseColor(s string) (RotationColor, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Rouge):
		return Rouge, true
	case string(Bleu):
		return Bleu, true
	}
	return "", false
}
