// Package builtin 提供服务台排班的内置约束
package builtin

import (
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
)

// RegisterDefaultConstraints 注册默认约束到管理器
// 规则参数从每个周上下文读取，因此同一个管理器可服务不同规则的计算
func RegisterDefaultConstraints(manager *constraint.Manager) {
	// 硬约束
	manager.Register(NewSectionEligibilityConstraint())
	manager.Register(NewAvailabilityConstraint())
	manager.Register(NewWeeklyQuotaConstraint())
	manager.Register(NewConsecutiveDurationConstraint())

	// 软约束
	manager.Register(NewRotationCapConstraint())
}

// BaseConstraint 内置约束共用的名称、类型与类别
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category) *BaseConstraint {
	return &BaseConstraint{name: name, typ: typ, category: cat}
}

func (c *BaseConstraint) Name() string                  { return c.name }
func (c *BaseConstraint) Type() constraint.Type         { return c.typ }
func (c *BaseConstraint) Category() constraint.Category { return c.category }
