package constraint

import (
	"sort"
	"sync"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
	}
}

// Register 注册约束
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 检查是否已存在同类型约束
	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c // 替换
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 硬约束在前，同类别保持注册顺序
	sort.SliceStable(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		return ci.Category() == CategoryHard && cj.Category() != CategoryHard
	})
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// selected 取指定类型的约束，types 为空时返回全部硬约束
func (m *Manager) selected(types []Type) []Constraint {
	if len(types) == 0 {
		return m.GetByCategory(CategoryHard)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		for _, t := range types {
			if c.Type() == t {
				result = append(result, c)
				break
			}
		}
	}
	return result
}

// Check 依次检查约束，返回第一个违反项，全部满足时返回 nil
// 候选筛选也经由此处，违反项不在这里记录日志
func (m *Manager) Check(ctx *Context, cand Candidate, types ...Type) *Violation {
	for _, c := range m.selected(types) {
		ok, reason := c.Check(ctx, cand)
		if ok {
			continue
		}
		return &Violation{
			ConstraintType: c.Type(),
			ConstraintName: c.Name(),
			Agent:          cand.Agent.ID,
			Section:        string(cand.Section),
			Day:            string(ctx.Day),
			Slot:           ctx.Slot.Label,
			Message:        reason,
			Severity:       string(c.Category()),
		}
	}
	return nil
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}
