package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/mediatheque/pkg/errors"
)

func validInput() *Input {
	a := NewAgent("Alice", SectionRDC)
	a.Schedule[Mardi] = DaySchedule{Morning: &TimeRange{Start: 540, End: 720}}
	tpl := make(Template)
	tpl.Set("Mardi", "10:00-11:00", SectionEntries{SectionRDC: {NamedAgent("Alice")}})
	return &Input{
		Year:         2025,
		Month:        time.March,
		Rules:        DefaultRules(),
		Slots:        []Slot{NewSlot(600, 660), NewSlot(660, 720)},
		OpeningHours: map[Day][]TimeRange{Mardi: {{Start: 600, End: 720}}},
		Agents:       []*Agent{a},
		Template:     tpl,
	}
}

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Input)
		field  string
	}{
		{"合法输入", func(in *Input) {}, ""},
		{"时段为空", func(in *Input) { in.Slots = nil }, "slots"},
		{"时段重叠", func(in *Input) { in.Slots = []Slot{NewSlot(600, 660), NewSlot(630, 700)} }, "slots"},
		{"人员为空", func(in *Input) { in.Agents = nil }, "agents"},
		{"人员重复", func(in *Input) { in.Agents = append(in.Agents, NewAgent("Alice")) }, "agents"},
		{"模板为空", func(in *Input) { in.Template = Template{} }, "template"},
		{"开放时间为空", func(in *Input) { in.OpeningHours = nil }, "opening_hours"},
		{"月份无效", func(in *Input) { in.Month = 13 }, "month"},
		{"空人员", func(in *Input) { in.Agents = append(in.Agents, nil) }, "agents"},
		{"理想上限为零", func(in *Input) { in.Rules.IdealMaxMinutes = 0 }, "rules.ideal_max_minutes"},
		{"轮换上限为零", func(in *Input) { in.Rules.RotationCapShort = 0 }, "rules.rotation_cap_short"},
		{"规则未设置", func(in *Input) { in.Rules = Rules{} }, "rules.rotation_cap_long"},
		{"休息时长为负", func(in *Input) { in.Rules.MinBreakMinutes = -1 }, "rules.min_break_minutes"},
		{"例外窗口无效", func(in *Input) { in.Rules.ExceptionWindow = &TimeRange{Start: 840, End: 720} }, "rules.exception_window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			err := in.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.CodeValidationFail))
			appErr, ok := err.(*errors.AppError)
			require.True(t, ok)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestInput_Normalize(t *testing.T) {
	in := validInput()
	in.Agents = append(in.Agents, &Agent{ID: "Vacataire Paul"})
	in.Normalize()

	paul := in.AgentIndex()["Vacataire Paul"]
	require.NotNil(t, paul)
	assert.Equal(t, StaffTemporary, paul.Kind)
	assert.NotNil(t, paul.Schedule)
	assert.Equal(t, DefaultMaxMinutes, paul.Quota.For(true).Max)
	assert.Equal(t, StaffPermanent, in.Agents[0].Kind)
}

func TestInput_NormalizeSkipsNilAgent(t *testing.T) {
	in := validInput()
	in.Agents = append(in.Agents, nil)
	assert.NotPanics(t, in.Normalize)
	assert.Error(t, in.Validate())
}

func TestYouthMinimum_Required(t *testing.T) {
	ym := YouthMinimum{
		"10:00-11:00": {"Mardi": 2, "Samedi_ROUGE": 3, "Samedi": 1},
		"11:00-12:00": {"Mardi": 0},
	}
	assert.Equal(t, 2, ym.Required("10:00-11:00", Mardi, Rouge, 1))
	assert.Equal(t, 3, ym.Required("10:00-11:00", Samedi, Rouge, 1))
	assert.Equal(t, 1, ym.Required("10:00-11:00", Samedi, Bleu, 1), "颜色列缺失时退回周六列")
	assert.Equal(t, 1, ym.Required("11:00-12:00", Mardi, Rouge, 1), "至少一人")
	assert.Equal(t, 1, ym.Required("14:00-15:00", Jeudi, Rouge, 1))
}

func TestTemplateEntry_JSON(t *testing.T) {
	var entries []TemplateEntry
	require.NoError(t, json.Unmarshal([]byte(`["Alice","VACATAIRES","vacataire"]`), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, NamedAgent("Alice"), entries[0])
	assert.True(t, entries[1].AnyTemporary)
	assert.True(t, entries[2].AnyTemporary)

	data, err := json.Marshal(entries[:2])
	require.NoError(t, err)
	assert.JSONEq(t, `["Alice","VACATAIRES"]`, string(data))
}

func TestTemplateKey(t *testing.T) {
	assert.Equal(t, "Mardi", TemplateKey(Mardi, Rouge))
	assert.Equal(t, "Samedi_BLEU", TemplateKey(Samedi, Bleu))
}

func TestAgent(t *testing.T) {
	a := NewAgent("Claire", SectionJeunesse, SectionRDC)
	a.Schedule[Jeudi] = DaySchedule{
		Morning:   &TimeRange{Start: 540, End: 720},
		Afternoon: &TimeRange{Start: 840, End: 1080},
	}
	assert.Equal(t, SectionJeunesse, a.PrimarySection())
	assert.True(t, a.CanStaff(SectionRDC))
	assert.False(t, a.CanStaff(SectionMF))
	assert.True(t, a.WorksOn(Jeudi))
	assert.False(t, a.WorksOn(Mardi))

	sched := a.Schedule[Jeudi]
	assert.True(t, sched.Covers(TimeRange{Start: 600, End: 660}))
	assert.False(t, sched.Covers(TimeRange{Start: 690, End: 750}), "跨越午休不算覆盖")
	assert.True(t, NewAgent("VACATAIRE Léa").IsTemporary())
}

func TestRules(t *testing.T) {
	r := DefaultRules()
	assert.True(t, r.TemporaryAllowed(Mercredi))
	assert.False(t, r.TemporaryAllowed(Jeudi))
	assert.Equal(t, 3, r.RotationCap(Vendredi))
	assert.Equal(t, 4, r.RotationCap(Samedi))
	assert.Equal(t, 150, r.DurationLimit(Mardi))
	assert.Equal(t, 240, r.DurationLimit(Mercredi))
	assert.True(t, r.InExceptionWindow(TimeRange{Start: 720, End: 780}))
	assert.False(t, r.InExceptionWindow(TimeRange{Start: 600, End: 660}))
}
