package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/paiban/mediatheque/pkg/errors"
)

// YouthMinimum Jeunesse 区最少人数：时段标签 -> 列键 -> 人数
// 列键为服务日名称，周六为 "Samedi_ROUGE" / "Samedi_BLEU"
type YouthMinimum map[string]map[string]int

// Required 查询某时段所需人数，缺省时使用 fallback，结果至少为 1
func (y YouthMinimum) Required(slotLabel string, d Day, color RotationColor, fallback int) int {
	need := fallback
	if row, ok := y[slotLabel]; ok {
		if v, ok := row[TemplateKey(d, color)]; ok {
			need = v
		} else if v, ok := row[string(d)]; ok {
			need = v
		}
	}
	if need < 1 {
		need = 1
	}
	return need
}

// Input 排班引擎的输入
type Input struct {
	Year         int                 `json:"year"`
	Month        time.Month          `json:"month"`
	Rules        Rules               `json:"rules"`
	Slots        []Slot              `json:"slots"`
	OpeningHours map[Day][]TimeRange `json:"opening_hours"`
	Agents       []*Agent            `json:"agents"` // 顺序即候选池的扫描顺序
	YouthMinimum YouthMinimum        `json:"youth_minimum"`
	Events       map[string][]Event  `json:"events"` // YYYY-MM-DD -> 事件
	Template     Template            `json:"template"`
}

// AgentIndex 构建人员索引
func (in *Input) AgentIndex() map[string]*Agent {
	index := make(map[string]*Agent, len(in.Agents))
	for _, a := range in.Agents {
		index[a.ID] = a
	}
	return index
}

// Normalize 补齐导入端未填写的字段
func (in *Input) Normalize() {
	for _, a := range in.Agents {
		// 空人员留给 Validate 报告
		if a == nil {
			continue
		}
		if a.Kind == "" {
			a.Kind = KindFromName(a.ID)
		}
		if a.Schedule == nil {
			a.Schedule = make(map[Day]DaySchedule)
		}
		// 全零的上下限视为未配置
		if a.Quota.Weekday == (Bounds{}) {
			a.Quota.Weekday = Bounds{Max: DefaultMaxMinutes}
		}
		if a.Quota.Saturday == (Bounds{}) {
			a.Quota.Saturday = Bounds{Max: DefaultMaxMinutes}
		}
	}
	if in.Rules.SaturdayColors == nil {
		in.Rules.SaturdayColors = make(map[int]RotationColor)
	}
	if in.Events == nil {
		in.Events = make(map[string][]Event)
	}
	if in.YouthMinimum == nil {
		in.YouthMinimum = make(YouthMinimum)
	}
}

// Validate 检查结构性输入，缺失关键数据时整个计算无意义
func (in *Input) Validate() error {
	ve := &errors.ValidationErrors{}

	if in.Month < time.January || in.Month > time.December {
		ve.Add("month", fmt.Sprintf("月份无效: %d", in.Month))
	}
	if in.Year <= 0 {
		ve.Add("year", fmt.Sprintf("年份无效: %d", in.Year))
	}

	if len(in.Slots) == 0 {
		ve.Add("slots", "时段列表为空")
	}
	labels := make(map[string]bool, len(in.Slots))
	for i, s := range in.Slots {
		if !s.IsValid() {
			ve.Add("slots", fmt.Sprintf("时段 %q 起止无效", s.Label))
		}
		if labels[s.Label] {
			ve.Add("slots", fmt.Sprintf("时段 %q 重复", s.Label))
		}
		labels[s.Label] = true
		if i > 0 && s.Start < in.Slots[i-1].End {
			ve.Add("slots", fmt.Sprintf("时段 %q 与前一时段重叠或顺序错误", s.Label))
		}
	}

	if len(in.OpeningHours) == 0 {
		ve.Add("opening_hours", "开放时间为空")
	}

	if len(in.Agents) == 0 {
		ve.Add("agents", "人员列表为空")
	}
	seen := make(map[string]bool, len(in.Agents))
	for _, a := range in.Agents {
		if a == nil || strings.TrimSpace(a.ID) == "" {
			ve.Add("agents", "人员标识为空")
			continue
		}
		if seen[a.ID] {
			ve.Add("agents", fmt.Sprintf("人员 %q 重复", a.ID))
		}
		seen[a.ID] = true
	}

	if len(in.Template) == 0 {
		ve.Add("template", "基准排班表为空")
	}

	in.Rules.validate(ve)

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}
