package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paiban/mediatheque/pkg/calendar"
	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint"
	"github.com/paiban/mediatheque/pkg/scheduler/constraint/builtin"
)

// 2025-03-04 为周二
var testWeek = calendar.Week{
	Index: 1,
	Days: []calendar.WeekDay{
		{Day: model.Mardi, Date: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{Day: model.Mercredi, Date: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)},
		{Day: model.Samedi, Date: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)},
	},
}

func tr(start, end string) model.TimeRange {
	r, ok := model.ParseRange(start + "-" + end)
	if !ok {
		panic("bad range " + start + "-" + end)
	}
	return r
}

func hourlySlots(from, to int) []model.Slot {
	var slots []model.Slot
	for h := from; h < to; h++ {
		slots = append(slots, model.NewSlot(h*60, (h+1)*60))
	}
	return slots
}

// newAgent 人员在指定日子 09:00-12:00 / 12:00-18:00 在岗
func newAgent(id string, sections []model.Section, days ...model.Day) *model.Agent {
	a := model.NewAgent(id, sections...)
	for _, d := range days {
		m, af := tr("09:00", "12:00"), tr("12:00", "18:00")
		a.Schedule[d] = model.DaySchedule{Morning: &m, Afternoon: &af}
	}
	return a
}

func sections(s ...model.Section) []model.Section { return s }

// newInput 周二至周六 10:00-15:00 开放的基础输入
func newInput(slots []model.Slot, agents ...*model.Agent) *model.Input {
	open := []model.TimeRange{tr("10:00", "15:00")}
	in := &model.Input{
		Year:  2025,
		Month: time.March,
		Rules: model.DefaultRules(),
		Slots: slots,
		OpeningHours: map[model.Day][]model.TimeRange{
			model.Mardi: open, model.Mercredi: open, model.Jeudi: open,
			model.Vendredi: open, model.Samedi: open,
		},
		Agents:   agents,
		Template: make(model.Template),
	}
	in.Normalize()
	return in
}

func place(in *model.Input, key, slot string, sec model.Section, ids ...string) {
	entries := in.Template.Lookup(key, slot)
	if entries == nil {
		entries = make(model.SectionEntries)
		in.Template.Set(key, slot, entries)
	}
	for _, id := range ids {
		entries[sec] = append(entries[sec], model.ParseTemplateEntry(id))
	}
}

func newSolver() *WeeklySolver {
	cm := constraint.NewManager()
	builtin.RegisterDefaultConstraints(cm)
	return NewWeeklySolver(cm)
}

func solveWeek(t *testing.T, in *model.Input, week calendar.Week) *WeekResult {
	t.Helper()
	res, err := newSolver().SolveWeek(context.Background(), in, week)
	require.NoError(t, err)
	return res
}

func onlyDay(d model.Day) calendar.Week {
	for _, wd := range testWeek.Days {
		if wd.Day == d {
			return calendar.Week{Index: testWeek.Index, Days: []calendar.WeekDay{wd}}
		}
	}
	panic("day not in test week")
}

func slotAt(t *testing.T, w *model.WeekPlan, d model.Day, index int) *model.SlotRecord {
	t.Helper()
	dp := w.Day(d)
	require.NotNil(t, dp)
	require.Less(t, index, len(dp.Slots))
	rec := dp.Slots[index]
	require.NotNil(t, rec)
	return rec
}
