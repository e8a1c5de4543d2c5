package constraint

import (
	"testing"

	"github.com/paiban/mediatheque/pkg/model"
)

// MockConstraint 测试用约束
type MockConstraint struct {
	name     string
	typ      Type
	category Category
	pass     bool
	calls    int
}

func (m *MockConstraint) Name() string       { return m.name }
func (m *MockConstraint) Type() Type         { return m.typ }
func (m *MockConstraint) Category() Category { return m.category }

func (m *MockConstraint) Check(ctx *Context, c Candidate) (bool, string) {
	m.calls++
	if m.pass {
		return true, ""
	}
	return false, m.name + " 不满足"
}

func newTestContext() *Context {
	agent := model.NewAgent("Alice", model.SectionRDC)
	ctx := NewContext(model.DefaultRules(), []model.Slot{model.NewSlot(600, 660)},
		map[string]*model.Agent{"Alice": agent}, false)
	ctx.BeginDay(model.Mardi, "2025-03-04", nil, []*model.Agent{agent})
	ctx.BeginSlot(0, model.NewSlotRecord(ctx.Slots[0]))
	return ctx
}

func TestManager_Register(t *testing.T) {
	manager := NewManager()

	c := &MockConstraint{
		name:     "test",
		typ:      Type("test_type"),
		category: CategoryHard,
	}
	manager.Register(c)
	manager.Register(&MockConstraint{name: "test2", typ: Type("test_type"), category: CategoryHard})

	constraints := manager.GetAll()
	if len(constraints) != 1 {
		t.Errorf("Expected 1 constraint, got %d", len(constraints))
	}
	if constraints[0].Name() != "test2" {
		t.Errorf("同类型约束应被替换, got %s", constraints[0].Name())
	}
}

func TestManager_GetByCategory(t *testing.T) {
	manager := NewManager()

	soft := &MockConstraint{name: "soft1", typ: Type("soft1"), category: CategorySoft}
	hard := &MockConstraint{name: "hard1", typ: Type("hard1"), category: CategoryHard}
	manager.Register(soft)
	manager.Register(hard)

	if got := manager.GetAll()[0].Name(); got != "hard1" {
		t.Errorf("硬约束应排在前面, got %s", got)
	}

	hardConstraints := manager.GetByCategory(CategoryHard)
	if len(hardConstraints) != 1 {
		t.Errorf("Expected 1 hard constraint, got %d", len(hardConstraints))
	}

	softConstraints := manager.GetByCategory(CategorySoft)
	if len(softConstraints) != 1 {
		t.Errorf("Expected 1 soft constraint, got %d", len(softConstraints))
	}
}

func TestManager_Check(t *testing.T) {
	manager := NewManager()
	pass := &MockConstraint{name: "pass", typ: Type("pass"), category: CategoryHard, pass: true}
	fail := &MockConstraint{name: "fail", typ: Type("fail"), category: CategoryHard}
	soft := &MockConstraint{name: "soft", typ: Type("soft"), category: CategorySoft}
	manager.Register(pass)
	manager.Register(fail)
	manager.Register(soft)

	ctx := newTestContext()
	cand := Candidate{Agent: ctx.Agent("Alice"), Section: model.SectionRDC}

	v := manager.Check(ctx, cand)
	if v == nil {
		t.Fatal("Expected violation")
	}
	if v.ConstraintType != Type("fail") || v.Agent != "Alice" || v.Slot != "10:00-11:00" {
		t.Errorf("违反详情错误: %+v", v)
	}
	if soft.calls != 0 {
		t.Error("未指定类型时只检查硬约束")
	}

	if v := manager.Check(ctx, cand, Type("pass")); v != nil {
		t.Errorf("仅检查 pass 时不应违反: %+v", v)
	}

	v = manager.Check(ctx, cand, Type("soft"))
	if v == nil || v.Severity != string(CategorySoft) {
		t.Error("软约束被显式指定时应参与检查")
	}
}

func TestManager_RegisterReplacesSameType(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{name: "old", typ: Type("a"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "new", typ: Type("a"), category: CategoryHard})

	if manager.Count() != 1 {
		t.Errorf("Expected 1 constraint, got %d", manager.Count())
	}
	if got := manager.GetConstraint(Type("a")).Name(); got != "new" {
		t.Errorf("同类型约束应被替换, got %s", got)
	}
	if manager.GetConstraint(Type("missing")) != nil {
		t.Error("未注册的类型应返回 nil")
	}
}
