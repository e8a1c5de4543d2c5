package constraint

import (
	"github.com/paiban/mediatheque/pkg/model"
)

// Context 单周排班上下文
// 计数器和当日记录按时段顺序单向推进，一个 Context 只属于一个周任务
type Context struct {
	Rules        model.Rules
	Slots        []model.Slot
	Agents       map[string]*model.Agent
	WithSaturday bool // 决定配额类别

	// SPCount 本周累计服务分钟数，只增不减
	SPCount map[string]int

	// 当前服务日
	Day    model.Day
	Date   string
	Events []model.Event
	Pool   []*model.Agent // 当日候选池，保持输入顺序

	// DaySlots 当日已完成的时段记录，下标与 Slots 一致，nil 表示关闭
	DaySlots  []*model.SlotRecord
	usedToday map[model.Section][]string

	// 当前时段
	SlotIndex int
	Slot      model.Slot
	Current   *model.SlotRecord
}

// NewContext 创建周上下文
func NewContext(rules model.Rules, slots []model.Slot, agents map[string]*model.Agent, withSaturday bool) *Context {
	return &Context{
		Rules:        rules,
		Slots:        slots,
		Agents:       agents,
		WithSaturday: withSaturday,
		SPCount:      make(map[string]int),
		usedToday:    make(map[model.Section][]string),
	}
}

// BeginDay 切换到新的服务日，清空当日状态
func (c *Context) BeginDay(day model.Day, date string, events []model.Event, pool []*model.Agent) {
	c.Day = day
	c.Date = date
	c.Events = events
	c.Pool = pool
	c.DaySlots = make([]*model.SlotRecord, 0, len(c.Slots))
	c.usedToday = make(map[model.Section][]string)
	c.Current = nil
}

// BeginSlot 开始处理当日第 index 个时段
func (c *Context) BeginSlot(index int, rec *model.SlotRecord) {
	c.SlotIndex = index
	c.Slot = c.Slots[index]
	c.Current = rec
}

// SkipSlot 记录关闭的时段
func (c *Context) SkipSlot() {
	c.DaySlots = append(c.DaySlots, nil)
	c.Current = nil
}

// Commit 结束当前时段：累计服务时长，登记当日使用过的人员
func (c *Context) Commit() {
	rec := c.Current
	minutes := c.Slot.Duration()
	for _, sec := range model.Sections {
		for _, id := range rec.Assignment[sec] {
			c.SPCount[id] += minutes
			c.markUsed(sec, id)
		}
	}
	c.DaySlots = append(c.DaySlots, rec)
	c.Current = nil
}

func (c *Context) markUsed(sec model.Section, id string) {
	for _, a := range c.usedToday[sec] {
		if a == id {
			return
		}
	}
	c.usedToday[sec] = append(c.usedToday[sec], id)
}

// UsedToday 当日在该区域出现过的人员，按首次出现顺序
func (c *Context) UsedToday(sec model.Section) []string {
	return c.usedToday[sec]
}

// WasUsedToday 人员当日是否在该区域出现过
func (c *Context) WasUsedToday(sec model.Section, id string) bool {
	for _, a := range c.usedToday[sec] {
		if a == id {
			return true
		}
	}
	return false
}

// PermanentUsedToday 当日在该区域出现过的正式员工
func (c *Context) PermanentUsedToday(sec model.Section) []string {
	var out []string
	for _, id := range c.usedToday[sec] {
		if a, ok := c.Agents[id]; ok && !a.IsTemporary() {
			out = append(out, id)
		}
	}
	return out
}

// Minutes 人员本周累计服务分钟数
func (c *Context) Minutes(id string) int {
	return c.SPCount[id]
}

// Bounds 人员适用的周配额
func (c *Context) Bounds(a *model.Agent) model.Bounds {
	return a.Quota.For(c.WithSaturday)
}

// WithinQuota 加上当前时段后是否仍不超过上限
func (c *Context) WithinQuota(a *model.Agent) bool {
	return c.SPCount[a.ID]+c.Slot.Duration() <= c.Bounds(a).Max
}

// Agent 按标识查找人员
func (c *Context) Agent(id string) *model.Agent {
	return c.Agents[id]
}

// InPool 人员是否在当日候选池中
func (c *Context) InPool(id string) bool {
	for _, a := range c.Pool {
		if a.ID == id {
			return true
		}
	}
	return false
}
