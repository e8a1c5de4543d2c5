// Package calendar 将目标月份展开为以周二为起点的服务周
package calendar

import (
	"time"

	"github.com/paiban/mediatheque/pkg/model"
)

// DateLayout 日期键格式
const DateLayout = "2006-01-02"

// WeekDay 周内的一个服务日及其日期
type WeekDay struct {
	Day  model.Day
	Date time.Time
}

// DateKey 返回 YYYY-MM-DD
func (wd WeekDay) DateKey() string {
	return wd.Date.Format(DateLayout)
}

// Week 一个服务周，只包含落在目标月份内的服务日
type Week struct {
	Index int // 从 1 开始
	Days  []WeekDay
}

// Has 本周是否包含该服务日
func (w Week) Has(d model.Day) bool {
	for _, wd := range w.Days {
		if wd.Day == d {
			return true
		}
	}
	return false
}

// WeeksOfMonth 枚举目标月份的服务周
// 从当月第一个周二开始按周步进，每周取周二至周六中仍属于该月的日期
func WeeksOfMonth(year int, month time.Month) []Week {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Tuesday) - int(first.Weekday()) + 7) % 7
	current := first.AddDate(0, 0, offset)

	var weeks []Week
	for current.Month() == month {
		week := Week{Index: len(weeks) + 1}
		for _, d := range model.Days {
			date := current.AddDate(0, 0, d.Offset())
			if date.Month() != month {
				continue
			}
			week.Days = append(week.Days, WeekDay{Day: d, Date: date})
		}
		if len(week.Days) > 0 {
			weeks = append(weeks, week)
		}
		current = current.AddDate(0, 0, 7)
	}
	return weeks
}

// SaturdayColor 某周的周六轮值颜色：优先使用显式配置，否则单周为红、双周为蓝
func SaturdayColor(index int, overrides map[int]model.RotationColor) model.RotationColor {
	if c, ok := overrides[index]; ok && c != "" {
		return c
	}
	if index%2 == 1 {
		return model.Rouge
	}
	return model.Bleu
}
