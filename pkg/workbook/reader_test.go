package workbook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/model"
)

type rows = [][]interface{}

// newWorkbook 按工作表名写入各行
func newWorkbook(t *testing.T, sheets map[string]rows) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for name, data := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range data {
			r := row
			require.NoError(t, f.SetSheetRow(name, fmt.Sprintf("A%d", i+1), &r))
		}
	}
	if _, ok := sheets["Sheet1"]; !ok {
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	return f
}

func sampleSheets() map[string]rows {
	return map[string]rows{
		SheetParams: {
			{"Paramètre", "Valeur"},
			{ParamMonth, "Mars"},
			{ParamYear, 2025},
			{ParamSlots, "10:00-11:00;11:00-12:00;12:00-13:00"},
			{ParamTemporaryDays, "mercredi, samedi"},
			{ParamExceptionWindow, "12:00-14:00"},
			{ParamIdealMax, "2h30"},
			{ParamMinBreak, 45},
			{"Samedi_S2", "rouge"},
		},
		SheetOpeningHours: {
			{"", "Jour", "Début", "Fin"},
			{"", "Mardi", "10:00", "12:00"},
			{"", "Samedi", "10h", "13h"},
		},
		SheetSections: {
			{"Agent", "Section 1", "Section 2"},
			{"Alice", "RDC", "Adulte"},
			{"Bruno", "Jeunesse", "Cuisine"},
			{"Vacataire Paul", "jeunesse"},
		},
		SheetSchedules: {
			{"Agent", "Jour", "Début matin", "Fin matin", "Début après-midi", "Fin après-midi"},
			{"Alice", "Mardi", "9h", "12h", "14h", "18h"},
			{"Bruno", "Samedi", "09:30", "13:00"},
			{"Inconnu", "Mardi", "9h", "12h"},
		},
		SheetQuota: {
			{"Agent", "Min_MarVen", "Max_MarVen", "Min_MarSam", "Max_MarSam"},
			{"Alice", 4, 10, 6.5, 12},
			{"Bruno"},
		},
		SheetRotation: {
			{"Agent", "Couleur"},
			{"Bruno", "bleu"},
			{"Alice", "vert"},
		},
		SheetYouthMinimum: {
			{"Créneau", "Mardi", "Samedi_ROUGE", "Samedi BLEU"},
			{"10:00-11:00", 2, 3, 1},
		},
		SheetEvents: {
			{"Date", "Début", "Fin", "Nom", "Agents"},
			{"Mardi 4 mars", "10:00", "11:00", "Congé", "Alice ; Bruno"},
			{"2025-04-01", "10:00", "", "Hors mois", "Alice"},
			{"04/03/2025", "14h", "", "Réunion", "Bruno"},
		},
		SheetTemplate: {
			{"MARDI"},
			{"", "R D C", "RDC", "Adulte"},
			{"", "10H-12H", "Alice", "", "", "", "", "Bruno à 11h"},
			{"SAMEDI"},
			{"", "10H-11H", "Alice", "", "", "", "", "VACATAIRES"},
			{"SAMEDI"},
			{"", "10H-13H", "", "Alice"},
		},
	}
}

func readSample(t *testing.T, mutate func(map[string]rows)) (*model.Input, error) {
	t.Helper()
	sheets := sampleSheets()
	if mutate != nil {
		mutate(sheets)
	}
	return NewReader(newWorkbook(t, sheets)).Read()
}

func TestReader_Read(t *testing.T) {
	in, err := readSample(t, nil)
	require.NoError(t, err)

	t.Run("参数", func(t *testing.T) {
		assert.Equal(t, 2025, in.Year)
		assert.Equal(t, time.March, in.Month)
		require.Len(t, in.Slots, 3)
		assert.Equal(t, "12:00-13:00", in.Slots[2].Label)
		assert.Equal(t, []model.Day{model.Mercredi, model.Samedi}, in.Rules.TemporaryDays)
		require.NotNil(t, in.Rules.ExceptionWindow)
		assert.Equal(t, model.TimeRange{Start: 720, End: 840}, *in.Rules.ExceptionWindow)
		assert.Equal(t, 150, in.Rules.IdealMaxMinutes)
		assert.Equal(t, 240, in.Rules.ToleratedMaxMinutes, "未给出的参数保留默认值")
		assert.Equal(t, 45, in.Rules.MinBreakMinutes)
		assert.Equal(t, map[int]model.RotationColor{2: model.Rouge}, in.Rules.SaturdayColors)
	})

	t.Run("开放时间", func(t *testing.T) {
		assert.Equal(t, []model.TimeRange{{Start: 600, End: 720}}, in.OpeningHours[model.Mardi])
		assert.Equal(t, []model.TimeRange{{Start: 600, End: 780}}, in.OpeningHours[model.Samedi])
		assert.Empty(t, in.OpeningHours[model.Jeudi])
	})

	t.Run("人员", func(t *testing.T) {
		require.Len(t, in.Agents, 3)
		idx := in.AgentIndex()

		alice := idx["Alice"]
		assert.Equal(t, []model.Section{model.SectionRDC, model.SectionAdulte}, alice.Sections)
		sched := alice.Schedule[model.Mardi]
		require.NotNil(t, sched.Morning)
		require.NotNil(t, sched.Afternoon)
		assert.Equal(t, model.TimeRange{Start: 540, End: 720}, *sched.Morning)
		assert.Equal(t, model.TimeRange{Start: 840, End: 1080}, *sched.Afternoon)
		assert.Equal(t, model.Bounds{Min: 240, Max: 600}, alice.Quota.Weekday)
		assert.Equal(t, model.Bounds{Min: 390, Max: 720}, alice.Quota.Saturday)
		assert.Equal(t, model.RotationColor(""), alice.Color, "无效颜色被忽略")

		bruno := idx["Bruno"]
		assert.Equal(t, []model.Section{model.SectionJeunesse}, bruno.Sections, "未知区域被忽略")
		assert.Equal(t, model.Bleu, bruno.Color)
		assert.Nil(t, bruno.Schedule[model.Samedi].Afternoon)
		assert.Equal(t, model.Bounds{Min: 0, Max: 99 * 60}, bruno.Quota.Saturday)

		paul := idx["Vacataire Paul"]
		assert.True(t, paul.IsTemporary())
		assert.False(t, paul.WorksOn(model.Mardi))
		assert.NotContains(t, idx, "Inconnu")
	})

	t.Run("青少年区最低人数", func(t *testing.T) {
		assert.Equal(t, map[string]int{"Mardi": 2, "Samedi_ROUGE": 3, "Samedi_BLEU": 1}, in.YouthMinimum["10:00-11:00"])
	})

	t.Run("事件", func(t *testing.T) {
		require.Len(t, in.Events, 1, "目标月份之外的事件被丢弃")
		evs := in.Events["2025-03-04"]
		require.Len(t, evs, 2)
		assert.Equal(t, "Congé", evs[0].Name)
		assert.Equal(t, []string{"Alice", "Bruno"}, evs[0].Agents)
		assert.Equal(t, model.TimeRange{Start: 840, End: 900}, evs[1].TimeRange, "缺少结束时间时持续一小时")
	})

	t.Run("基准排班表", func(t *testing.T) {
		mardi := in.Template.Lookup("Mardi", "10:00-11:00")
		require.NotNil(t, mardi)
		assert.Equal(t, []model.TemplateEntry{model.NamedAgent("Alice")}, mardi[model.SectionRDC])
		assert.Equal(t, []model.TemplateEntry{model.NamedAgent("Bruno")}, mardi[model.SectionJeunesse])
		assert.NotNil(t, in.Template.Lookup("Mardi", "11:00-12:00"))
		assert.Nil(t, in.Template.Lookup("Mardi", "12:00-13:00"), "时段超出时间块")

		rouge := in.Template.Lookup("Samedi_ROUGE", "10:00-11:00")
		require.NotNil(t, rouge)
		assert.Equal(t, []model.TemplateEntry{model.AnyTemporaryStaff()}, rouge[model.SectionJeunesse])

		bleu := in.Template["Samedi_BLEU"]
		assert.Len(t, bleu, 3)
		assert.Equal(t, []model.TemplateEntry{model.NamedAgent("Alice")}, bleu["12:00-13:00"][model.SectionAdulte])
	})

	assert.NoError(t, in.Validate())
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]rows)
		code   errors.Code
	}{
		{"缺少区域分配表", func(s map[string]rows) { delete(s, SheetSections) }, errors.CodeMissingTable},
		{"缺少基准排班表", func(s map[string]rows) { delete(s, SheetTemplate) }, errors.CodeMissingTable},
		{"月份无法识别", func(s map[string]rows) { s[SheetParams][1] = []interface{}{ParamMonth, "Brumaire"} }, errors.CodeInvalidInput},
		{"时段为空", func(s map[string]rows) { s[SheetParams][3] = []interface{}{ParamSlots, ""} }, errors.CodeInvalidInput},
		{"时长无法识别", func(s map[string]rows) { s[SheetParams][6] = []interface{}{ParamIdealMax, "long"} }, errors.CodeInvalidInput},
		{"基准排班表没有服务日", func(s map[string]rows) { s[SheetTemplate] = rows{{"", "10H-12H", "Alice"}} }, errors.CodeInvalidTemplate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readSample(t, tt.mutate)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestReader_OptionalSheets(t *testing.T) {
	in, err := readSample(t, func(s map[string]rows) {
		delete(s, SheetEvents)
		delete(s, SheetYouthMinimum)
		delete(s, SheetQuota)
		delete(s, SheetRotation)
	})
	require.NoError(t, err)
	assert.Empty(t, in.Events)
	assert.Empty(t, in.YouthMinimum)
	assert.Equal(t, model.DefaultQuota(), in.AgentIndex()["Alice"].Quota)
}

func TestReader_NoExceptionWindow(t *testing.T) {
	in, err := readSample(t, func(s map[string]rows) {
		s[SheetParams][5] = []interface{}{ParamExceptionWindow, "aucune"}
	})
	require.NoError(t, err)
	assert.Nil(t, in.Rules.ExceptionWindow)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Samedi 7 mars", "2025-03-07"},
		{"7 mars 2026", "2026-03-07"},
		{"15 août", "2025-08-15"},
		{"2025-03-04", "2025-03-04"},
		{"04/03/2025", "2025-03-04"},
		{"04/03/25", "2025-03-04"},
		{"04/03", "2025-03-04"},
		{"45720", "2025-03-04"},
		{"31 avril", ""},
		{"demain", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, ok := ParseDate(tt.raw, 2025)
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, d.Format("2006-01-02"))
		})
	}
}

func TestParseMonth(t *testing.T) {
	m, ok := ParseMonth(" Février ")
	assert.True(t, ok)
	assert.Equal(t, time.February, m)
	m, ok = ParseMonth("12")
	assert.True(t, ok)
	assert.Equal(t, time.December, m)
	_, ok = ParseMonth("13")
	assert.False(t, ok)
	assert.Equal(t, "Août", MonthLabel(time.August))
}

func TestParseBlockLabel(t *testing.T) {
	tests := []struct {
		label string
		want  model.TimeRange
		ok    bool
	}{
		{"10H-12H30", model.TimeRange{Start: 600, End: 750}, true},
		{"14h - 16h", model.TimeRange{Start: 840, End: 960}, true},
		{"10:00-12:30", model.TimeRange{Start: 600, End: 750}, true},
		{"12H30", model.TimeRange{}, false},
		{"16H-14H", model.TimeRange{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := parseBlockLabel(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateAgent(t *testing.T) {
	assert.Equal(t, "Bruno", templateAgent("Bruno à 11h"))
	assert.Equal(t, "Claire", templateAgent("Claire à partir de 14h"))
	assert.Equal(t, "", templateAgent("-"))
	assert.Equal(t, "Anne-Françoise", templateAgent(" Anne-Françoise "))
}

func TestYouthColumn(t *testing.T) {
	assert.Equal(t, "Mardi", youthColumn("MARDI"))
	assert.Equal(t, "Samedi_ROUGE", youthColumn("samedi rouge"))
	assert.Equal(t, "Samedi_BLEU", youthColumn("Samedi_BLEU"))
	assert.Equal(t, "Samedi", youthColumn("Samedi"))
	assert.Equal(t, "", youthColumn(""))
}
