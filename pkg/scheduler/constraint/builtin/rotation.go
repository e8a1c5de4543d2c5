package builtin

import (
	"fmt"

	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
)

// RotationCapConstraint 每日每区域轮换的不同正式员工数上限
// 软约束：找不到可复用的人员时仍保留新人员
type RotationCapConstraint struct {
	*BaseConstraint
}

// NewRotationCapConstraint 创建轮换上限约束
func NewRotationCapConstraint() *RotationCapConstraint {
	return &RotationCapConstraint{
		BaseConstraint: NewBaseConstraint("区域轮换上限", constraint.TypeRotationCap, constraint.CategorySoft),
	}
}

// Check 引入该人员后当日该区域的正式员工数是否超过上限
// 已在当日出现过的人员和临时工不计入
func (c *RotationCapConstraint) Check(ctx *constraint.Context, cand constraint.Candidate) (bool, string) {
	if cand.Agent.IsTemporary() || ctx.WasUsedToday(cand.Section, cand.Agent.ID) {
		return true, ""
	}
	used := len(ctx.PermanentUsedToday(cand.Section))
	// 本时段已确认的新正式员工同样占用名额
	if ctx.Current != nil {
		for _, id := range ctx.Current.Assignment[cand.Section] {
			if id == cand.Agent.ID {
				continue
			}
			a := ctx.Agent(id)
			if a != nil && !a.IsTemporary() && !ctx.WasUsedToday(cand.Section, id) {
				used++
			}
		}
	}
	limit := ctx.Rules.RotationCap(ctx.Day)
	if used >= limit {
		return false, fmt.Sprintf("%s 当日已轮换 %d 名正式员工，上限 %d", cand.Section, used, limit)
	}
	return true, ""
}
