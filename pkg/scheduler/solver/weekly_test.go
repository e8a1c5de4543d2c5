package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/mediatheque/pkg/model"
)

const (
	rdc      = model.SectionRDC
	adulte   = model.SectionAdulte
	mf       = model.SectionMF
	jeunesse = model.SectionJeunesse
)

// staffedTuesday 周二 10:00-11:00 四个区域都有模板人员
func staffedTuesday(extra ...*model.Agent) *model.Input {
	agents := []*model.Agent{
		newAgent("Alice", sections(rdc), model.Mardi),
		newAgent("Bruno", sections(adulte), model.Mardi),
		newAgent("Chloé", sections(mf), model.Mardi),
		newAgent("Denis", sections(jeunesse), model.Mardi),
	}
	in := newInput(hourlySlots(10, 11), append(agents, extra...)...)
	place(in, "Mardi", "10:00-11:00", rdc, "Alice")
	place(in, "Mardi", "10:00-11:00", adulte, "Bruno")
	place(in, "Mardi", "10:00-11:00", mf, "Chloé")
	place(in, "Mardi", "10:00-11:00", jeunesse, "Denis")
	return in
}

func conge(agent, start, end string) model.Event {
	return model.Event{TimeRange: tr(start, end), Name: "Congé", Agents: []string{agent}}
}

func TestWeeklySolver_TemplateRespected(t *testing.T) {
	in := staffedTuesday()
	res := solveWeek(t, in, onlyDay(model.Mardi))

	rec := slotAt(t, res.Week, model.Mardi, 0)
	assert.Equal(t, []string{"Alice"}, rec.Assignment[rdc])
	assert.Equal(t, []string{"Denis"}, rec.Assignment[jeunesse])
	assert.Empty(t, rec.Alerts)
	assert.Empty(t, res.Week.Alerts)
	assert.Equal(t, 60, res.Week.SPCount["Alice"])
}

func TestWeeklySolver_AbsenceTriggersReplacement(t *testing.T) {
	tests := []struct {
		name      string
		withSpare bool
		wantRDC   []string
		wantAlert string
	}{
		{"有合格替换人员", true, []string{"Emma"}, ""},
		{"无替换人员时告警", false, nil, "ALERTE — RDC : aucun agent disponible"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var extra []*model.Agent
			if tt.withSpare {
				extra = append(extra, newAgent("Emma", sections(rdc, adulte), model.Mardi))
			}
			in := staffedTuesday(extra...)
			in.Events["2025-03-04"] = []model.Event{conge("Alice", "10:00", "11:00")}

			res := solveWeek(t, in, onlyDay(model.Mardi))
			rec := slotAt(t, res.Week, model.Mardi, 0)

			assert.False(t, rec.Has("Alice"))
			if tt.wantRDC == nil {
				assert.Empty(t, rec.Assignment[rdc])
			} else {
				assert.Equal(t, tt.wantRDC, rec.Assignment[rdc])
			}
			if tt.wantAlert != "" {
				assert.Contains(t, rec.Alerts, tt.wantAlert)
			} else {
				assert.Empty(t, rec.Alerts)
			}
			require.Len(t, rec.Events, 1)
			assert.Equal(t, "Congé", rec.Events[0].Name)
		})
	}
}

func TestWeeklySolver_YouthTopUp(t *testing.T) {
	tests := []struct {
		name      string
		withSpare bool
		want      []string
		wantAlert string
	}{
		{"补足第二名", true, []string{"Denis", "Fanny"}, ""},
		{"人数不足告警", false, []string{"Denis"}, "ALERTE — Jeunesse : 1/2 agents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var extra []*model.Agent
			if tt.withSpare {
				extra = append(extra, newAgent("Fanny", sections(jeunesse), model.Mardi))
			}
			in := staffedTuesday(extra...)
			in.YouthMinimum = model.YouthMinimum{"10:00-11:00": {"Mardi": 2}}

			res := solveWeek(t, in, onlyDay(model.Mardi))
			rec := slotAt(t, res.Week, model.Mardi, 0)

			assert.Equal(t, tt.want, rec.Assignment[jeunesse])
			if tt.wantAlert != "" {
				assert.Equal(t, []string{tt.wantAlert}, rec.Alerts)
			} else {
				assert.Empty(t, rec.Alerts)
			}
		})
	}
}

func TestWeeklySolver_TemporaryAloneInJeunesse(t *testing.T) {
	tests := []struct {
		name       string
		slotStart  int
		withDenis  bool
		want       []string
		wantAlerts []string
	}{
		{"插入正式员工", 10, true, []string{"Denis", "Vacataire Paul"}, nil},
		{"无正式员工时告警", 10, false, []string{"Vacataire Paul"},
			[]string{"ALERTE — Jeunesse : vacataire seul hors exception"}},
		{"例外窗口内允许", 12, true, []string{"Vacataire Paul"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents := []*model.Agent{
				newAgent("Alice", sections(rdc), model.Mercredi),
				newAgent("Bruno", sections(adulte), model.Mercredi),
				newAgent("Chloé", sections(mf), model.Mercredi),
				newAgent("Vacataire Paul", sections(jeunesse), model.Mercredi),
			}
			if tt.withDenis {
				agents = append(agents, newAgent("Denis", sections(jeunesse), model.Mercredi))
			}
			slots := hourlySlots(tt.slotStart, tt.slotStart+1)
			in := newInput(slots, agents...)
			label := slots[0].Label
			place(in, "Mercredi", label, rdc, "Alice")
			place(in, "Mercredi", label, adulte, "Bruno")
			place(in, "Mercredi", label, mf, "Chloé")
			place(in, "Mercredi", label, jeunesse, "Vacataire Paul")

			res := solveWeek(t, in, onlyDay(model.Mercredi))
			rec := slotAt(t, res.Week, model.Mercredi, 0)

			assert.Equal(t, tt.want, rec.Assignment[jeunesse])
			if tt.wantAlerts == nil {
				assert.Empty(t, rec.Alerts)
			} else {
				assert.Equal(t, tt.wantAlerts, rec.Alerts)
			}
		})
	}
}

func TestWeeklySolver_TemporaryAloneTooLong(t *testing.T) {
	in := newInput(hourlySlots(10, 13),
		newAgent("Vacataire Léa", sections(rdc), model.Mercredi),
		newAgent("Alice", sections(rdc), model.Mercredi),
	)
	for _, s := range in.Slots {
		place(in, "Mercredi", s.Label, rdc, "Vacataire Léa")
	}

	res := solveWeek(t, in, onlyDay(model.Mercredi))

	assert.Equal(t, []string{"Vacataire Léa"}, slotAt(t, res.Week, model.Mercredi, 0).Assignment[rdc])
	assert.Equal(t, []string{"Vacataire Léa"}, slotAt(t, res.Week, model.Mercredi, 1).Assignment[rdc])
	assert.Equal(t, []string{"Alice", "Vacataire Léa"}, slotAt(t, res.Week, model.Mercredi, 2).Assignment[rdc])
	assert.Equal(t, 1, res.Statistics.Replacements[PassSupervision])
}

func TestWeeklySolver_TemporaryAloneTooLongAlert(t *testing.T) {
	in := newInput(hourlySlots(10, 13),
		newAgent("Vacataire Léa", sections(rdc), model.Mercredi),
	)
	for _, s := range in.Slots {
		place(in, "Mercredi", s.Label, rdc, "Vacataire Léa")
	}

	res := solveWeek(t, in, onlyDay(model.Mercredi))
	rec := slotAt(t, res.Week, model.Mercredi, 2)
	assert.Contains(t, rec.Alerts, "ALERTE — RDC : vacataire seul plus de 2h")
	assert.NotContains(t, slotAt(t, res.Week, model.Mercredi, 1).Alerts, "ALERTE — RDC : vacataire seul plus de 2h")
}

func TestWeeklySolver_DurationRule(t *testing.T) {
	tests := []struct {
		name     string
		day      model.Day
		slotEnd  int
		swapSlot int // 第一个换人的时段下标，-1 表示不换
	}{
		{"短班日超过理想上限", model.Mardi, 13, 2},
		{"长班日四小时内保留", model.Mercredi, 14, -1},
		{"长班日超过容忍上限", model.Mercredi, 15, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInput(hourlySlots(10, tt.slotEnd),
				newAgent("Alice", sections(rdc), tt.day),
				newAgent("Emma", sections(rdc), tt.day),
			)
			for _, s := range in.Slots {
				place(in, string(tt.day), s.Label, rdc, "Alice")
			}

			res := solveWeek(t, in, onlyDay(tt.day))
			for i := range in.Slots {
				want := "Alice"
				if tt.swapSlot >= 0 && i >= tt.swapSlot {
					want = "Emma"
				}
				rec := slotAt(t, res.Week, tt.day, i)
				assert.Equal(t, []string{want}, rec.Assignment[rdc], "slot %d", i)
			}
		})
	}
}

func TestWeeklySolver_QuotaRespected(t *testing.T) {
	alice := newAgent("Alice", sections(rdc), model.Mardi)
	alice.Quota.Weekday = model.Bounds{Max: 60}
	in := newInput(hourlySlots(10, 12), alice, newAgent("Emma", sections(rdc), model.Mardi))
	place(in, "Mardi", "10:00-11:00", rdc, "Alice")
	place(in, "Mardi", "11:00-12:00", rdc, "Alice")

	res := solveWeek(t, in, onlyDay(model.Mardi))

	assert.Equal(t, []string{"Alice"}, slotAt(t, res.Week, model.Mardi, 0).Assignment[rdc])
	assert.Equal(t, []string{"Emma"}, slotAt(t, res.Week, model.Mardi, 1).Assignment[rdc])
	assert.Equal(t, 60, res.Week.SPCount["Alice"])
	assert.Equal(t, 60, res.Week.SPCount["Emma"])
}

func TestWeeklySolver_RotationCap(t *testing.T) {
	build := func() *model.Input {
		var agents []*model.Agent
		for _, id := range []string{"A1", "A2", "A3", "A4"} {
			agents = append(agents, newAgent(id, sections(rdc), model.Mardi))
		}
		in := newInput(hourlySlots(10, 15), agents...)
		for i, id := range []string{"A1", "A2", "A3", "A4", "A4"} {
			place(in, "Mardi", in.Slots[i].Label, rdc, id)
		}
		return in
	}

	t.Run("超过上限时换回最近使用的人员", func(t *testing.T) {
		res := solveWeek(t, build(), onlyDay(model.Mardi))

		assert.Equal(t, []string{"A3"}, slotAt(t, res.Week, model.Mardi, 3).Assignment[rdc])
		assert.Equal(t, []string{"A3"}, slotAt(t, res.Week, model.Mardi, 4).Assignment[rdc])
		assert.Equal(t, 2, res.Statistics.Replacements[PassRotation])
		assert.Zero(t, res.Week.SPCount["A4"])
	})

	t.Run("无可复用人员时保留新人员", func(t *testing.T) {
		in := build()
		in.Events["2025-03-04"] = []model.Event{{
			TimeRange: tr("13:00", "15:00"),
			Name:      "Réunion",
			Agents:    []string{"A1", "A2", "A3"},
		}}
		res := solveWeek(t, in, onlyDay(model.Mardi))

		assert.Equal(t, []string{"A4"}, slotAt(t, res.Week, model.Mardi, 3).Assignment[rdc])
		assert.Equal(t, []string{"A4"}, slotAt(t, res.Week, model.Mardi, 4).Assignment[rdc])
		assert.Equal(t, 1, res.Statistics.SoftCapKept)
	})

	t.Run("换回人员不得超过连续时长", func(t *testing.T) {
		var agents []*model.Agent
		for _, id := range []string{"A1", "A2", "A3", "A4"} {
			agents = append(agents, newAgent(id, sections(rdc), model.Mardi))
		}
		in := newInput(hourlySlots(10, 15), agents...)
		for i, id := range []string{"A1", "A2", "A3", "A3", "A3"} {
			place(in, "Mardi", in.Slots[i].Label, rdc, id)
		}
		in.Events["2025-03-04"] = []model.Event{{
			TimeRange: tr("14:00", "15:00"),
			Name:      "Réunion",
			Agents:    []string{"A1", "A2"},
		}}

		res := solveWeek(t, in, onlyDay(model.Mardi))

		// A3 第三个连续小时被换下，A1 与 A2 不在岗，只能保留 A4
		last := slotAt(t, res.Week, model.Mardi, 4).Assignment[rdc]
		assert.NotContains(t, last, "A3")
		assert.Equal(t, []string{"A4"}, last)
		assert.Zero(t, res.Statistics.Replacements[PassRotation])
		assert.Equal(t, 1, res.Statistics.SoftCapKept)
	})
}

func TestWeeklySolver_TemporaryPlaceholder(t *testing.T) {
	in := newInput(hourlySlots(10, 11),
		newAgent("Vacataire Zoé", sections(jeunesse), model.Mercredi),
		newAgent("Vacataire Paul", sections(jeunesse), model.Mercredi),
		newAgent("Denis", sections(jeunesse), model.Mercredi),
	)
	in.Events["2025-03-05"] = []model.Event{conge("Vacataire Zoé", "09:00", "12:00")}
	place(in, "Mercredi", "10:00-11:00", jeunesse, "VACATAIRES")

	res := solveWeek(t, in, onlyDay(model.Mercredi))
	rec := slotAt(t, res.Week, model.Mercredi, 0)

	// 占位符解析为 Paul，随后因临时工单独值守插入 Denis
	assert.Equal(t, []string{"Denis", "Vacataire Paul"}, rec.Assignment[jeunesse])
}

func TestWeeklySolver_NamedAgentOutsidePool(t *testing.T) {
	// 周二不允许临时工
	in := newInput(hourlySlots(10, 11),
		newAgent("Vacataire Paul", sections(rdc), model.Mardi),
		newAgent("Alice", sections(rdc), model.Mardi),
	)
	place(in, "Mardi", "10:00-11:00", rdc, "Vacataire Paul")

	res := solveWeek(t, in, onlyDay(model.Mardi))
	assert.Equal(t, []string{"Alice"}, slotAt(t, res.Week, model.Mardi, 0).Assignment[rdc])
}

func TestWeeklySolver_ClosedSlot(t *testing.T) {
	in := staffedTuesday()
	in.OpeningHours[model.Mardi] = []model.TimeRange{tr("14:00", "18:00")}

	res := solveWeek(t, in, onlyDay(model.Mardi))
	dp := res.Week.Day(model.Mardi)
	require.Len(t, dp.Slots, 1)
	assert.Nil(t, dp.Slots[0])
	assert.Equal(t, 1, res.Statistics.ClosedSlots)
	assert.Empty(t, res.Week.SPCount)
}

func TestWeeklySolver_ShortfallAlert(t *testing.T) {
	in := staffedTuesday()
	in.Agents[0].Quota.Weekday = model.Bounds{Min: 480, Max: model.DefaultMaxMinutes}

	res := solveWeek(t, in, onlyDay(model.Mardi))
	assert.Equal(t, []string{"ALERTE — Alice : SP 1h00 / min 8h00"}, res.Week.Alerts)
	assert.Equal(t, 1, res.Statistics.Alerts[AlertQuotaShortfall])
}

func TestWeeklySolver_Deterministic(t *testing.T) {
	build := func() *model.Input {
		in := newInput(hourlySlots(10, 15),
			newAgent("Alice", sections(rdc, adulte), model.Mardi, model.Mercredi, model.Samedi),
			newAgent("Bruno", sections(adulte, rdc), model.Mardi, model.Mercredi),
			newAgent("Chloé", sections(mf), model.Mardi, model.Mercredi, model.Samedi),
			newAgent("Denis", sections(jeunesse, mf), model.Mardi, model.Samedi),
			newAgent("Emma", sections(jeunesse, rdc), model.Mercredi, model.Samedi),
			newAgent("Vacataire Paul", sections(jeunesse, rdc), model.Mercredi, model.Samedi),
		)
		for _, a := range in.Agents {
			a.Color = model.Rouge
		}
		for _, s := range in.Slots {
			place(in, "Mardi", s.Label, rdc, "Alice")
			place(in, "Mercredi", s.Label, jeunesse, "VACATAIRES")
			place(in, "Samedi_ROUGE", s.Label, mf, "Chloé")
		}
		in.Events["2025-03-05"] = []model.Event{conge("Bruno", "11:00", "13:00")}
		return in
	}

	first := solveWeek(t, build(), testWeek)
	second := solveWeek(t, build(), testWeek)
	assert.Equal(t, first.Week, second.Week)
	assert.Equal(t, first.Statistics, second.Statistics)
}

func TestEligiblePool(t *testing.T) {
	rouge := newAgent("Rouge", sections(rdc), model.Mardi, model.Mercredi, model.Samedi)
	rouge.Color = model.Rouge
	bleu := newAgent("Bleu", sections(rdc), model.Mardi, model.Samedi)
	bleu.Color = model.Bleu
	noSat := newAgent("SansSamedi", sections(rdc), model.Mardi)
	noSat.Color = model.Rouge
	vac := newAgent("Vacataire Paul", sections(rdc), model.Mardi, model.Mercredi, model.Samedi)

	in := newInput(hourlySlots(10, 11), rouge, bleu, noSat, vac)

	ids := func(pool []*model.Agent) []string {
		var out []string
		for _, a := range pool {
			out = append(out, a.ID)
		}
		return out
	}

	assert.Equal(t, []string{"Rouge", "Vacataire Paul"}, ids(EligiblePool(in, model.Samedi, model.Rouge)))
	assert.Equal(t, []string{"Bleu", "Vacataire Paul"}, ids(EligiblePool(in, model.Samedi, model.Bleu)))
	assert.Equal(t, []string{"Rouge", "Bleu", "SansSamedi"}, ids(EligiblePool(in, model.Mardi, model.Rouge)))
	assert.Equal(t, []string{"Rouge", "Vacataire Paul"}, ids(EligiblePool(in, model.Mercredi, model.Rouge)))
}
