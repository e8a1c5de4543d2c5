package solver

import (
	"sort"

	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
)

// Rank 替换候选人的排序键
// 比较顺序：当日已在该区域出现 > 正式员工 > 本周累计时长少 > 标识字典序
type Rank struct {
	Agent     string `json:"agent"`
	UsedToday bool   `json:"used_today"`
	Temporary bool   `json:"temporary"`
	Minutes   int    `json:"minutes"`
}

// Less 全序比较，r 排在 o 之前时返回 true
func (r Rank) Less(o Rank) bool {
	if r.UsedToday != o.UsedToday {
		return r.UsedToday
	}
	if r.Temporary != o.Temporary {
		return !r.Temporary
	}
	if r.Minutes != o.Minutes {
		return r.Minutes < o.Minutes
	}
	return r.Agent < o.Agent
}

// replacementChecks 替换候选人必须通过的硬约束：区域权限、在岗、周配额
var replacementChecks = []constraint.Type{
	constraint.TypeSectionEligibility,
	constraint.TypeAvailability,
	constraint.TypeWeeklyQuota,
}

// Query 替换查询
type Query struct {
	Section       model.Section
	Exclude       map[string]bool
	PermanentOnly bool
}

// RankCandidates 过滤当日候选池并按 Rank 排序
func RankCandidates(ctx *constraint.Context, cm *constraint.Manager, q Query) []Rank {
	var ranks []Rank
	for _, a := range ctx.Pool {
		if q.Exclude[a.ID] {
			continue
		}
		if q.PermanentOnly && a.IsTemporary() {
			continue
		}
		if v := cm.Check(ctx, constraint.Candidate{Agent: a, Section: q.Section}, replacementChecks...); v != nil {
			continue
		}
		ranks = append(ranks, Rank{
			Agent:     a.ID,
			UsedToday: ctx.WasUsedToday(q.Section, a.ID),
			Temporary: a.IsTemporary(),
			Minutes:   ctx.Minutes(a.ID),
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		return ranks[i].Less(ranks[j])
	})
	return ranks
}

// SelectReplacement 选出最佳替换人员，没有合格候选人时返回 nil
func SelectReplacement(ctx *constraint.Context, cm *constraint.Manager, q Query) *model.Agent {
	ranks := RankCandidates(ctx, cm, q)
	if len(ranks) == 0 {
		return nil
	}
	return ctx.Agent(ranks[0].Agent)
}
