package builtin

import (
	"fmt"

	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
)

// WeeklyQuotaConstraint 周服务时长上限约束
type WeeklyQuotaConstraint struct {
	*BaseConstraint
}

// NewWeeklyQuotaConstraint 创建周配额约束
func NewWeeklyQuotaConstraint() *WeeklyQuotaConstraint {
	return &WeeklyQuotaConstraint{
		BaseConstraint: NewBaseConstraint("周服务时长上限", constraint.TypeWeeklyQuota, constraint.CategoryHard),
	}
}

// Check 加上当前时段后是否超过上限
func (c *WeeklyQuotaConstraint) Check(ctx *constraint.Context, cand constraint.Candidate) (bool, string) {
	if ctx.WithinQuota(cand.Agent) {
		return true, ""
	}
	limit := ctx.Bounds(cand.Agent).Max
	return false, fmt.Sprintf("已服务 %s，上限 %s",
		model.FormatDuration(ctx.Minutes(cand.Agent.ID)), model.FormatDuration(limit))
}
