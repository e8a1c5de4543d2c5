// Package solver 提供周排班求解器和月度并行规划器
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/paiban/mediatheque/pkg/calendar"
	"github.com/paiban/mediatheque/pkg/logger"
	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint/builtin"
)

// Solver 周求解器接口
type Solver interface {
	// SolveWeek 生成一周排班
	SolveWeek(ctx context.Context, in *model.Input, week calendar.Week) (*WeekResult, error)

	// Name 返回求解器名称
	Name() string
}

// Pass 时段处理阶段
type Pass string

const (
	PassTemplate    Pass = "template"    // 模板复核
	PassMandatory   Pass = "mandatory"   // 必需区域补位
	PassYouth       Pass = "youth"       // Jeunesse 最低人数
	PassSupervision Pass = "supervision" // 临时工单独值守
	PassRotation    Pass = "rotation"    // 轮换上限
)

// AlertKind 告警类别
type AlertKind string

const (
	AlertNoAgent          AlertKind = "no_agent"
	AlertYouthShort       AlertKind = "youth_short"
	AlertTemporaryAlone   AlertKind = "temporary_alone"
	AlertTemporaryTooLong AlertKind = "temporary_too_long"
	AlertQuotaShortfall   AlertKind = "quota_shortfall"
)

// Statistics 单周统计
type Statistics struct {
	OpenSlots    int               `json:"open_slots"`
	ClosedSlots  int               `json:"closed_slots"`
	Replacements map[Pass]int      `json:"replacements"`
	Dropped      int               `json:"dropped"`
	SoftCapKept  int               `json:"soft_cap_kept"`
	Alerts       map[AlertKind]int `json:"alerts"`
}

func newStatistics() *Statistics {
	return &Statistics{
		Replacements: make(map[Pass]int),
		Alerts:       make(map[AlertKind]int),
	}
}

// WeekResult 周求解结果
type WeekResult struct {
	Week       *model.WeekPlan `json:"week"`
	Statistics *Statistics     `json:"statistics"`
	Duration   time.Duration   `json:"duration"`
}

// WeeklySolver 在基准排班表上逐时段修复的贪心求解器
type WeeklySolver struct {
	constraintManager *constraint.Manager
	logger            *logger.PlanningLogger
}

// NewWeeklySolver 创建周求解器
func NewWeeklySolver(cm *constraint.Manager) *WeeklySolver {
	return &WeeklySolver{
		constraintManager: cm,
		logger:            logger.NewPlanningLogger(),
	}
}

// Name 返回求解器名称
func (s *WeeklySolver) Name() string {
	return "WeeklySolver"
}

// EligiblePool 当日候选池，保持输入顺序
// 周六：轮值颜色匹配的正式员工和周六有排班的临时工；允许临时工的日子：当日有排班的全部人员；其他日子：仅正式员工
func EligiblePool(in *model.Input, d model.Day, color model.RotationColor) []*model.Agent {
	var pool []*model.Agent
	for _, a := range in.Agents {
		if !a.WorksOn(d) {
			continue
		}
		switch {
		case d == model.Samedi:
			if a.IsTemporary() || a.Color == color {
				pool = append(pool, a)
			}
		case in.Rules.TemporaryAllowed(d):
			pool = append(pool, a)
		case !a.IsTemporary():
			pool = append(pool, a)
		}
	}
	return pool
}

// weekRun 单周求解的可变状态
type weekRun struct {
	solver *WeeklySolver
	in     *model.Input
	ctx    *constraint.Context
	color  model.RotationColor
	stats  *Statistics
}

// SolveWeek 生成一周排班
// 服务日按顺序处理，时段按输入顺序处理，每个时段的决策依赖之前全部时段的最终状态
func (s *WeeklySolver) SolveWeek(ctx context.Context, in *model.Input, week calendar.Week) (*WeekResult, error) {
	startTime := time.Now()
	color := calendar.SaturdayColor(week.Index, in.Rules.SaturdayColors)
	s.logger.StartWeek(week.Index, len(week.Days), string(color))

	run := &weekRun{
		solver: s,
		in:     in,
		ctx:    constraint.NewContext(in.Rules, in.Slots, in.AgentIndex(), week.Has(model.Samedi)),
		color:  color,
		stats:  newStatistics(),
	}

	plan := &model.WeekPlan{
		Index:         week.Index,
		SaturdayColor: color,
		SPCount:       run.ctx.SPCount,
	}

	for _, wd := range week.Days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plan.Days = append(plan.Days, run.planDay(wd))
	}

	plan.Alerts = run.shortfallAlerts()

	result := &WeekResult{
		Week:       plan,
		Statistics: run.stats,
		Duration:   time.Since(startTime),
	}
	s.logger.WeekComplete(week.Index, result.Duration, plan.SlotAlerts()+len(plan.Alerts))
	return result, nil
}

// planDay 处理一个服务日的全部时段
func (r *weekRun) planDay(wd calendar.WeekDay) *model.DayPlan {
	date := wd.DateKey()
	events := r.in.Events[date]
	r.ctx.BeginDay(wd.Day, date, events, EligiblePool(r.in, wd.Day, r.color))

	dp := &model.DayPlan{Day: wd.Day, Date: date}
	key := model.TemplateKey(wd.Day, r.color)

	for i, slot := range r.in.Slots {
		if !builtin.SlotIsOpen(slot.TimeRange, r.in.OpeningHours[wd.Day]) {
			r.ctx.SkipSlot()
			r.stats.ClosedSlots++
			dp.Slots = append(dp.Slots, nil)
			continue
		}

		rec := model.NewSlotRecord(slot)
		r.ctx.BeginSlot(i, rec)
		seed := r.in.Template.Lookup(key, slot.Label)

		r.passTemplate(seed)
		r.passMandatory()
		r.passYouth()
		r.passSupervision()
		r.passRotation()

		rec.Events = builtin.EventsOverlapping(slot.TimeRange, events)
		r.ctx.Commit()
		r.stats.OpenSlots++

		for _, alert := range rec.Alerts {
			r.solver.logger.SlotAlert(string(wd.Day), slot.Label, alert)
		}
		dp.Slots = append(dp.Slots, rec)
	}
	return dp
}

// alert 追加时段告警并计数
func (r *weekRun) alert(kind AlertKind, msg string) {
	r.ctx.Current.Alert(msg)
	r.stats.Alerts[kind]++
}

// replaced 记录一次替换
func (r *weekRun) replaced(pass Pass, sec model.Section, old, repl, reason string) {
	r.stats.Replacements[pass]++
	r.solver.logger.Replacement(string(r.ctx.Day), r.ctx.Slot.Label, string(sec), old, repl, reason)
}

// placedSet 本时段已安排的全部人员
func (r *weekRun) placedSet() map[string]bool {
	set := make(map[string]bool)
	for _, id := range r.ctx.Current.Placed() {
		set[id] = true
	}
	return set
}

// passTemplate 复核模板中的每个条目，不合格时寻找替换人员
func (r *weekRun) passTemplate(seed model.SectionEntries) {
	rec := r.ctx.Current
	cm := r.solver.constraintManager

	// 模板中本时段的全部具名人员，替换时一并排除
	named := make(map[string]bool)
	for _, sec := range model.Sections {
		for _, e := range seed[sec] {
			if !e.AnyTemporary {
				named[e.Agent] = true
			}
		}
	}

	for _, sec := range model.Sections {
		for _, entry := range seed[sec] {
			if entry.AnyTemporary {
				if a := r.resolveTemporary(named); a != nil {
					rec.Assignment[sec] = append(rec.Assignment[sec], a.ID)
				} else {
					r.stats.Dropped++
				}
				continue
			}

			reason := r.templateViolation(entry.Agent, sec)
			if reason == "" {
				rec.Assignment[sec] = append(rec.Assignment[sec], entry.Agent)
				continue
			}

			exclude := r.placedSet()
			for id := range named {
				exclude[id] = true
			}
			repl := SelectReplacement(r.ctx, cm, Query{Section: sec, Exclude: exclude})
			if repl == nil {
				r.stats.Dropped++
				r.solver.logger.Replacement(string(r.ctx.Day), r.ctx.Slot.Label, string(sec), entry.Agent, "", reason)
				continue
			}
			rec.Assignment[sec] = append(rec.Assignment[sec], repl.ID)
			r.replaced(PassTemplate, sec, entry.Agent, repl.ID, reason)
		}
	}
}

// templateViolation 模板具名人员不能保留的原因，可保留时返回空串
func (r *weekRun) templateViolation(id string, sec model.Section) string {
	a := r.ctx.Agent(id)
	if a == nil || !r.ctx.InPool(id) {
		return "不在当日候选池"
	}
	if r.ctx.Current.Has(id) {
		return "本时段已安排"
	}
	v := r.solver.constraintManager.Check(r.ctx, constraint.Candidate{Agent: a, Section: sec},
		constraint.TypeAvailability, constraint.TypeWeeklyQuota, constraint.TypeConsecutiveDuration)
	if v != nil {
		r.solver.logger.ConstraintViolation(v.ConstraintName,
			fmt.Sprintf("%s %s %s: %s", v.Day, v.Slot, v.Agent, v.Message))
		return v.ConstraintName + ": " + v.Message
	}
	return ""
}

// resolveTemporary 将“任意临时工”占位符解析为候选池中第一个可用的临时工
func (r *weekRun) resolveTemporary(named map[string]bool) *model.Agent {
	placed := r.placedSet()
	for _, a := range r.ctx.Pool {
		if !a.IsTemporary() || placed[a.ID] || named[a.ID] {
			continue
		}
		v := r.solver.constraintManager.Check(r.ctx, constraint.Candidate{Agent: a},
			constraint.TypeAvailability, constraint.TypeWeeklyQuota)
		if v == nil {
			return a
		}
	}
	return nil
}

// passMandatory 必需区域为空时再尝试一次替换
func (r *weekRun) passMandatory() {
	rec := r.ctx.Current
	for _, sec := range model.Sections {
		if !sec.IsMandatory() || len(rec.Assignment[sec]) > 0 {
			continue
		}
		repl := SelectReplacement(r.ctx, r.solver.constraintManager, Query{Section: sec, Exclude: r.placedSet()})
		if repl == nil {
			r.alert(AlertNoAgent, fmt.Sprintf("%s : aucun agent disponible", sec))
			continue
		}
		rec.Assignment[sec] = []string{repl.ID}
		r.replaced(PassMandatory, sec, "", repl.ID, "区域为空")
	}
}

// passYouth 按最低人数补足 Jeunesse
func (r *weekRun) passYouth() {
	rec := r.ctx.Current
	sec := model.SectionJeunesse
	need := r.in.YouthMinimum.Required(r.ctx.Slot.Label, r.ctx.Day, r.color, r.in.Rules.DefaultYouthMinimum)
	if len(rec.Assignment[sec]) >= need {
		return
	}

	placed := r.placedSet()
	for _, a := range r.ctx.Pool {
		if len(rec.Assignment[sec]) >= need {
			break
		}
		if placed[a.ID] {
			continue
		}
		if v := r.solver.constraintManager.Check(r.ctx, constraint.Candidate{Agent: a, Section: sec}, replacementChecks...); v != nil {
			continue
		}
		rec.Assignment[sec] = append(rec.Assignment[sec], a.ID)
		placed[a.ID] = true
		r.replaced(PassYouth, sec, "", a.ID, "最低人数")
	}

	if got := len(rec.Assignment[sec]); got < need {
		r.alert(AlertYouthShort, fmt.Sprintf("%s : %d/%d agents", sec, got, need))
	}
}

// passSupervision 区域仅由临时工覆盖时插入一名正式员工
// Jeunesse 在例外窗口外不允许临时工单独值守；任何区域临时工单独值守不得达到上限时长
func (r *weekRun) passSupervision() {
	rec := r.ctx.Current
	rules := r.in.Rules
	for _, sec := range model.Sections {
		current := rec.Assignment[sec]
		if !builtin.OnlyTemporary(current, r.ctx.Agents) {
			continue
		}

		var kind AlertKind
		var msg string
		switch {
		case sec == model.SectionJeunesse && !builtin.IsUnsupervisedExceptionWindow(r.ctx.Slot.TimeRange, rules):
			kind = AlertTemporaryAlone
			msg = fmt.Sprintf("%s : vacataire seul hors exception", sec)
		case rules.MaxTemporaryAloneMinutes > 0 &&
			builtin.TemporaryAloneMinutes(r.ctx.DaySlots, r.ctx.Agents, sec, r.ctx.SlotIndex) >= rules.MaxTemporaryAloneMinutes:
			kind = AlertTemporaryTooLong
			msg = fmt.Sprintf("%s : vacataire seul plus de %s", sec, hoursLabel(rules.MaxTemporaryAloneMinutes))
		default:
			continue
		}

		repl := SelectReplacement(r.ctx, r.solver.constraintManager,
			Query{Section: sec, Exclude: r.placedSet(), PermanentOnly: true})
		if repl == nil {
			r.alert(kind, msg)
			continue
		}
		rec.Assignment[sec] = append([]string{repl.ID}, current...)
		r.replaced(PassSupervision, sec, "", repl.ID, string(kind))
	}
}

// passRotation 控制当日每个区域轮换的正式员工数
// 超出上限时换回该区域最近使用过且仍可用的正式员工，找不到则保留新人员
func (r *weekRun) passRotation() {
	rec := r.ctx.Current
	cm := r.solver.constraintManager
	for _, sec := range model.Sections {
		original := rec.Assignment[sec]
		if len(original) == 0 {
			continue
		}
		rec.Assignment[sec] = make([]string, 0, len(original))

		for _, id := range original {
			a := r.ctx.Agent(id)
			if a == nil {
				rec.Assignment[sec] = append(rec.Assignment[sec], id)
				continue
			}
			if v := cm.Check(r.ctx, constraint.Candidate{Agent: a, Section: sec}, constraint.TypeRotationCap); v == nil {
				rec.Assignment[sec] = append(rec.Assignment[sec], id)
				continue
			}

			if back := r.recentPermanent(sec, original); back != nil {
				rec.Assignment[sec] = append(rec.Assignment[sec], back.ID)
				r.replaced(PassRotation, sec, id, back.ID, "轮换上限")
				continue
			}
			rec.Assignment[sec] = append(rec.Assignment[sec], id)
			r.stats.SoftCapKept++
		}
	}
}

// recentPermanent 该区域当日最近使用过、本时段仍可用且未被安排的正式员工
// 与模板复核使用相同的硬约束，Pass A 因连续时长换下的人员不会被换回
func (r *weekRun) recentPermanent(sec model.Section, pending []string) *model.Agent {
	exclude := r.placedSet()
	for _, id := range pending {
		exclude[id] = true
	}
	seen := make(map[string]bool)
	for i := len(r.ctx.DaySlots) - 1; i >= 0; i-- {
		prev := r.ctx.DaySlots[i]
		if prev == nil {
			continue
		}
		ids := prev.Assignment[sec]
		for j := len(ids) - 1; j >= 0; j-- {
			id := ids[j]
			if seen[id] {
				continue
			}
			seen[id] = true
			a := r.ctx.Agent(id)
			if a == nil || a.IsTemporary() || exclude[id] {
				continue
			}
			v := r.solver.constraintManager.Check(r.ctx, constraint.Candidate{Agent: a, Section: sec},
				constraint.TypeAvailability, constraint.TypeWeeklyQuota, constraint.TypeConsecutiveDuration)
			if v == nil {
				return a
			}
		}
	}
	return nil
}

// shortfallAlerts 周末统计：服务时长低于下限的人员
func (r *weekRun) shortfallAlerts() []string {
	var alerts []string
	for _, a := range r.in.Agents {
		bounds := r.ctx.Bounds(a)
		sp := r.ctx.Minutes(a.ID)
		if bounds.Min > 0 && sp < bounds.Min {
			alerts = append(alerts, fmt.Sprintf("%s%s : SP %s / min %s",
				model.AlertPrefix, a.ID, model.FormatDuration(sp), model.FormatDuration(bounds.Min)))
			r.stats.Alerts[AlertQuotaShortfall]++
		}
	}
	return alerts
}

// hoursLabel 120 -> "2h"，非整点时使用 "2h30"
func hoursLabel(minutes int) string {
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return model.FormatDuration(minutes)
}
