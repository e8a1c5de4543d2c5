package builtin

import (
	"fmt"

	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
)

// SectionEligibilityConstraint 区域权限约束
type SectionEligibilityConstraint struct {
	*BaseConstraint
}

// NewSectionEligibilityConstraint 创建区域权限约束
func NewSectionEligibilityConstraint() *SectionEligibilityConstraint {
	return &SectionEligibilityConstraint{
		BaseConstraint: NewBaseConstraint("区域权限", constraint.TypeSectionEligibility, constraint.CategoryHard),
	}
}

// Check 人员是否有权覆盖目标区域
func (c *SectionEligibilityConstraint) Check(ctx *constraint.Context, cand constraint.Candidate) (bool, string) {
	if !cand.Agent.CanStaff(cand.Section) {
		return false, fmt.Sprintf("无 %s 区域权限", cand.Section)
	}
	return true, ""
}
