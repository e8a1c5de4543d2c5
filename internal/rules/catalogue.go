// Package rules 排班规则目录
// 列出引擎执行的每条规则、其参数以及参数在工作簿和规则文件中的来源
package rules

import (
	"strconv"
	"strings"

	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
)

// Param 规则参数定义
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // minutes, int, days, window
	Description string `json:"description"`
	Default     string `json:"default"`
	Sheet       string `json:"sheet,omitempty"`    // 工作簿中对应的参数名
	TOMLKey     string `json:"toml_key,omitempty"` // 规则文件中的键
}

// Definition 规则定义
type Definition struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Type        string          `json:"type"` // hard 硬约束, soft 软约束, alert 仅告警
	Pass        string          `json:"pass,omitempty"`
	Constraint  constraint.Type `json:"constraint,omitempty"`
	Description string          `json:"description"`
	Params      []Param         `json:"params,omitempty"`
}

// Catalogue 以给定规则参数作为默认值生成规则目录
func Catalogue(r model.Rules) []Definition {
	return []Definition{
		{
			Name:        "section_eligibility",
			DisplayName: "区域资格",
			Type:        "hard",
			Constraint:  constraint.TypeSectionEligibility,
			Description: "正式员工只能安排到其登记的区域；临时工可安排到任何区域，但仅限允许的服务日。",
			Params: []Param{
				{Name: "temporary_days", Type: "days", Description: "允许临时工上岗的服务日", Default: days(r.TemporaryDays), Sheet: "Mode_vacataires", TOMLKey: "temp_days"},
			},
		},
		{
			Name:        "availability",
			DisplayName: "在岗可用",
			Type:        "hard",
			Constraint:  constraint.TypeAvailability,
			Description: "时段必须完全落在员工当天的上午或下午班内，且与该员工参与的任何事件不重叠。",
		},
		{
			Name:        "weekly_quota",
			DisplayName: "每周服务时长上限",
			Type:        "hard",
			Constraint:  constraint.TypeWeeklyQuota,
			Description: "加上本时段后的周累计服务时长不得超过员工配额；有周六的周使用周六配额。",
		},
		{
			Name:        "consecutive_duration",
			DisplayName: "连续在岗时长",
			Type:        "hard",
			Constraint:  constraint.TypeConsecutiveDuration,
			Description: "同一天连续在岗时长不得超过上限；两次在岗之间至少休息 min_break 才重新计时。",
			Params: []Param{
				{Name: "ideal_max", Type: "minutes", Description: "周二、周四、周五的上限", Default: minutes(r.IdealMaxMinutes), Sheet: "Duree_max_ideale", TOMLKey: "ideal_max"},
				{Name: "tolerated_max", Type: "minutes", Description: "周三、周六的上限", Default: minutes(r.ToleratedMaxMinutes), Sheet: "Duree_max_toleree", TOMLKey: "tolerated_max"},
				{Name: "min_break", Type: "minutes", Description: "有效休息的最短时长", Default: minutes(r.MinBreakMinutes), Sheet: "Pause_min", TOMLKey: "min_break"},
			},
		},
		{
			Name:        "rotation_cap",
			DisplayName: "区域轮换上限",
			Type:        "soft",
			Pass:        "rotation",
			Constraint:  constraint.TypeRotationCap,
			Description: "每个区域每天使用的不同正式员工数不超过上限，超出时尝试改用当天已在该区域的员工。",
			Params: []Param{
				{Name: "rotation_cap_short", Type: "int", Description: "短班日上限", Default: strconv.Itoa(r.RotationCapShort), TOMLKey: "rotation_cap_short"},
				{Name: "rotation_cap_long", Type: "int", Description: "长班日上限", Default: strconv.Itoa(r.RotationCapLong), TOMLKey: "rotation_cap_long"},
			},
		},
		{
			Name:        "mandatory_sections",
			DisplayName: "必需区域",
			Type:        "alert",
			Pass:        "mandatory",
			Description: "RDC、Adulte、Jeunesse 每个开放时段至少一人，无人可补时记录告警。",
		},
		{
			Name:        "youth_minimum",
			DisplayName: "Jeunesse 最低人数",
			Type:        "alert",
			Pass:        "youth",
			Description: "按 Besoins_Jeunesse 补足 Jeunesse 人数，未配置的时段使用默认值。",
			Params: []Param{
				{Name: "default_youth_minimum", Type: "int", Description: "未配置时的最低人数", Default: strconv.Itoa(r.DefaultYouthMinimum), TOMLKey: "default_youth_minimum"},
			},
		},
		{
			Name:        "temporary_supervision",
			DisplayName: "临时工不得单独值守",
			Type:        "alert",
			Pass:        "supervision",
			Description: "区域只有临时工时在其前面补一名正式员工，例外窗口内的时段除外。",
			Params: []Param{
				{Name: "exception_window", Type: "window", Description: "允许临时工单独值守的时间窗口", Default: window(r.ExceptionWindow), Sheet: "Exception_Vacataire_seul", TOMLKey: "exception_window"},
			},
		},
		{
			Name:        "temporary_alone_duration",
			DisplayName: "临时工单独值守时长",
			Type:        "alert",
			Pass:        "supervision",
			Description: "区域连续仅由临时工覆盖达到上限后必须补入正式员工，否则告警。",
			Params: []Param{
				{Name: "max_temp_alone", Type: "minutes", Description: "最长连续时长，0 表示不检查", Default: minutes(r.MaxTemporaryAloneMinutes), Sheet: "Max_vacataire_seul", TOMLKey: "max_temp_alone"},
			},
		},
		{
			Name:        "weekly_minimum",
			DisplayName: "每周服务时长下限",
			Type:        "alert",
			Description: "周结束时服务时长低于配额下限的正式员工记录周告警。",
		},
	}
}

// Lookup 按名称查找规则
func Lookup(defs []Definition, name string) (Definition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

func minutes(m int) string {
	return model.FormatDuration(m)
}

func days(ds []model.Day) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = strings.ToLower(string(d))
	}
	return strings.Join(names, ", ")
}

func window(w *model.TimeRange) string {
	if w == nil {
		return ""
	}
	return w.String()
}
