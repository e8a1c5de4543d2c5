// Package constraint 定义约束接口、周排班上下文和约束管理器
package constraint

import (
	"github.com/paiban/mediatheque/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeSectionEligibility  Type = "section_eligibility"
	TypeAvailability        Type = "availability"
	TypeWeeklyQuota         Type = "weekly_quota"
	TypeConsecutiveDuration Type = "consecutive_duration"

	// 软约束类型
	TypeRotationCap Type = "rotation_cap"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Candidate 一次待检查的分配：某人员进入当前时段的某区域
type Candidate struct {
	Agent   *model.Agent
	Section model.Section
}

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Check 在当前时段检查候选分配
	// 返回：是否满足、违反原因
	Check(ctx *Context, c Candidate) (ok bool, reason string)
}

// Violation 约束违反详情
type Violation struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	Agent          string `json:"agent"`
	Section        string `json:"section"`
	Day            string `json:"day"`
	Slot           string `json:"slot"`
	Message        string `json:"message"`
	Severity       string `json:"severity"` // hard/soft
}
