package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/workbook"
)

func writeSampleWorkbook(t *testing.T, dir string) string {
	t.Helper()
	sheets := map[string][][]interface{}{
		workbook.SheetParams: {
			{"Paramètre", "Valeur"},
			{workbook.ParamMonth, "Avril"},
			{workbook.ParamYear, 2025},
			{workbook.ParamSlots, "10:00-11:00;11:00-12:00"},
		},
		workbook.SheetOpeningHours: {
			{"", "Jour", "Début", "Fin"},
			{"", "Mardi", "10:00", "12:00"},
		},
		workbook.SheetSections: {
			{"Agent", "Section 1"},
			{"Alice", "RDC"},
			{"Bruno", "Adulte"},
			{"Chloé", "Jeunesse"},
		},
		workbook.SheetSchedules: {
			{"Agent", "Jour", "Début matin", "Fin matin"},
			{"Alice", "Mardi", "9h", "12h"},
			{"Bruno", "Mardi", "9h", "12h"},
			{"Chloé", "Mardi", "9h", "12h"},
		},
		workbook.SheetTemplate: {
			{"MARDI"},
			{"", "10H-12H", "Alice", "Bruno", "", "", "", "Chloé"},
		},
	}
	f := excelize.NewFile()
	for name, data := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range data {
			r := row
			require.NoError(t, f.SetSheetRow(name, fmt.Sprintf("A%d", i+1), &r))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	path := filepath.Join(dir, "entree.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := writeSampleWorkbook(t, dir)
	jsonOut := filepath.Join(dir, "plan.json")

	err := run(context.Background(), options{
		input:   input,
		jsonOut: jsonOut,
		workers: 2,
		timeout: 10 * time.Second,
	})
	require.NoError(t, err)

	output := filepath.Join(dir, "planning_avril_2025.xlsx")
	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()
	sheets := f.GetSheetList()
	assert.Equal(t, "Semaine_1", sheets[0])
	assert.Contains(t, sheets, workbook.SheetTemplate)

	data, err := os.ReadFile(jsonOut)
	require.NoError(t, err)
	var plan model.Plan
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Equal(t, 2025, plan.Year)
	assert.NotEmpty(t, plan.Weeks)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()

	err := run(context.Background(), options{input: filepath.Join(dir, "absent.xlsx"), workers: 1, timeout: time.Second})
	assert.Equal(t, errors.CodeWorkbookParse, errors.GetCode(err))

	rules := filepath.Join(dir, "rules.toml")
	require.NoError(t, os.WriteFile(rules, []byte("[rules]\nideal_max = 0\n"), 0o644))
	err = run(context.Background(), options{input: writeSampleWorkbook(t, dir), rules: rules, workers: 1, timeout: time.Second})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestLoadRules(t *testing.T) {
	r, err := loadRules("")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRules().IdealMaxMinutes, r.IdealMaxMinutes)

	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte("[rules]\nideal_max = 120\nexception_window = \"\"\n"), 0o644))
	r, err = loadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 120, r.IdealMaxMinutes)
	assert.Nil(t, r.ExceptionWindow)
}

func TestDefaultOutput(t *testing.T) {
	in := &model.Input{Year: 2025, Month: time.March}
	assert.Equal(t, filepath.Join("data", "planning_mars_2025.xlsx"), defaultOutput(filepath.Join("data", "entree.xlsx"), in))
}
