package workbook

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/stats"
)

// 周表列布局：A=序号 B=时段 C..F=区域 G=事件 H=告警；汇总区 H=周合计 I=配额状态
const (
	colIndex   = 1
	colSlot    = 2
	colSection = 3
	colEvents  = 7
	colAlerts  = 8
	colTotal   = 8
	colStatus  = 9
	lastCol    = "H"
)

// ClosedLabel 关闭时段的单元格文本
const ClosedLabel = "Fermé"

var sectionHeaders = map[model.Section]string{
	model.SectionRDC:      "RDC",
	model.SectionAdulte:   "Adulte",
	model.SectionMF:       "Musique & Films",
	model.SectionJeunesse: "Jeunesse",
}

var sectionColors = map[model.Section]string{
	model.SectionRDC:      "#D6E8F7",
	model.SectionAdulte:   "#D4EDD4",
	model.SectionMF:       "#FFF0CC",
	model.SectionJeunesse: "#FFE0E0",
}

// WeekSheetName 周表名称
func WeekSheetName(index int) string {
	return fmt.Sprintf("Semaine_%d", index)
}

// Writer 将排班结果写成周表
type Writer struct {
	file     *excelize.File
	in       *model.Input
	analyzer *stats.WorkloadAnalyzer
	styles   map[string]int
}

// NewWriter 创建写入器；source 为 nil 时新建工作簿，否则在源工作簿上追加周表并保留其他工作表
func NewWriter(in *model.Input, source *excelize.File) (*Writer, error) {
	f := source
	if f == nil {
		f = excelize.NewFile()
	}
	w := &Writer{
		file:     f,
		in:       in,
		analyzer: stats.NewWorkloadAnalyzer(),
		styles:   make(map[string]int),
	}
	if err := w.initStyles(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "创建单元格样式失败")
	}
	return w, nil
}

// File 底层工作簿
func (w *Writer) File() *excelize.File {
	return w.file
}

// WriteTo 输出 xlsx 内容
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

// WritePlan 为每周生成 "Semaine_N" 表，周表排在最前
func (w *Writer) WritePlan(plan *model.Plan) error {
	// 删除上一次生成的周表
	for _, name := range w.file.GetSheetList() {
		if strings.HasPrefix(name, "Semaine_") {
			if err := w.file.DeleteSheet(name); err != nil {
				return errors.Wrap(err, errors.CodeInternal, "删除旧周表失败")
			}
		}
	}

	names := make([]string, 0, len(plan.Weeks))
	for _, week := range plan.Weeks {
		name := WeekSheetName(week.Index)
		if err := w.writeWeek(name, plan, week); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "写入周表失败").WithField("week", week.Index)
		}
		names = append(names, name)
	}

	// 新建工作簿自带的默认表
	if idx, err := w.file.GetSheetIndex("Sheet1"); err == nil && idx >= 0 && len(names) > 0 {
		if err := w.file.DeleteSheet("Sheet1"); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "删除默认工作表失败")
		}
	}

	for i, name := range names {
		list := w.file.GetSheetList()
		if list[i] == name {
			continue
		}
		if err := w.file.MoveSheet(name, list[i]); err != nil {
			return errors.Wrap(err, errors.CodeInternal, "调整工作表顺序失败")
		}
	}
	if len(names) > 0 {
		w.file.SetActiveSheet(0)
	}
	return nil
}

// writeWeek 写一周：标题、各服务日时段表、人员汇总
func (w *Writer) writeWeek(sheet string, plan *model.Plan, week *model.WeekPlan) error {
	if _, err := w.file.NewSheet(sheet); err != nil {
		return err
	}
	for col, width := range map[string]float64{"A": 5, "B": 14, "C": 22, "D": 22, "E": 22, "F": 28, "G": 30, "H": 32, "I": 22} {
		if err := w.file.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	row := 1
	title := fmt.Sprintf("PLANNING SERVICE PUBLIC — Semaine %d | %s", week.Index, weekRange(plan, week))
	if err := w.banner(sheet, row, title, "title"); err != nil {
		return err
	}
	row += 2

	for _, dp := range week.Days {
		next, err := w.writeDay(sheet, row, plan, week, dp)
		if err != nil {
			return err
		}
		row = next + 1
	}

	return w.writeRecap(sheet, row+1, week)
}

// writeDay 写一天的时段表，返回下一空行
func (w *Writer) writeDay(sheet string, row int, plan *model.Plan, week *model.WeekPlan, dp *model.DayPlan) (int, error) {
	header := fmt.Sprintf("%s  %s", strings.ToUpper(string(dp.Day)), dayLabel(plan, dp))
	style := "day"
	if dp.Day == model.Samedi {
		header += "  SAMEDI " + string(week.SaturdayColor)
		style = "day_" + strings.ToLower(string(week.SaturdayColor))
	}
	if err := w.banner(sheet, row, header, style); err != nil {
		return 0, err
	}
	row++

	headers := []string{"N°", "Créneau"}
	for _, sec := range model.Sections {
		headers = append(headers, sectionHeaders[sec])
	}
	headers = append(headers, "Événement", "Alertes")
	if err := w.setRow(sheet, row, 1, headers, "header"); err != nil {
		return 0, err
	}
	row++

	for i, rec := range dp.Slots {
		label := w.in.Slots[i].Label
		if err := w.setRow(sheet, row, colIndex, []string{fmt.Sprint(i + 1), label}, "cell"); err != nil {
			return 0, err
		}
		if rec == nil {
			if err := w.writeClosed(sheet, row); err != nil {
				return 0, err
			}
			row++
			continue
		}
		if err := w.writeSlot(sheet, row, rec); err != nil {
			return 0, err
		}
		row++
	}
	return row, nil
}

// writeClosed 关闭时段：区域列合并为 "Fermé"
func (w *Writer) writeClosed(sheet string, row int) error {
	first, _ := excelize.CoordinatesToCellName(colSection, row)
	last, _ := excelize.CoordinatesToCellName(colAlerts, row)
	if err := w.file.SetCellStr(sheet, first, ClosedLabel); err != nil {
		return err
	}
	if err := w.file.MergeCell(sheet, first, last); err != nil {
		return err
	}
	return w.file.SetCellStyle(sheet, first, last, w.styles["closed"])
}

// writeSlot 开放时段：各区域人员、事件、告警
func (w *Writer) writeSlot(sheet string, row int, rec *model.SlotRecord) error {
	for i, sec := range model.Sections {
		agents := rec.Assignment[sec]
		value, style := "—", "empty"
		switch {
		case len(agents) > 0:
			value, style = strings.Join(agents, "  /  "), "section_"+string(sec)
		case mentions(rec.Alerts, sec):
			value, style = "ALERTE", "alert"
		}
		if err := w.setCell(sheet, colSection+i, row, value, style); err != nil {
			return err
		}
	}

	events := make([]string, 0, len(rec.Events))
	for _, ev := range rec.Events {
		events = append(events, fmt.Sprintf("%s (%s)", ev.Name, strings.Join(ev.Agents, ", ")))
	}
	evStyle := "cell"
	if len(events) > 0 {
		evStyle = "event"
	}
	if err := w.setCell(sheet, colEvents, row, strings.Join(events, "\n"), evStyle); err != nil {
		return err
	}

	alStyle := "cell"
	if len(rec.Alerts) > 0 {
		alStyle = "alert"
	}
	return w.setCell(sheet, colAlerts, row, strings.Join(rec.Alerts, "\n"), alStyle)
}

// writeRecap 人员汇总：每日服务时长、周合计、配额状态
func (w *Writer) writeRecap(sheet string, row int, week *model.WeekPlan) error {
	if err := w.banner(sheet, row, "RÉCAPITULATIF — Heures SP par agent", "title"); err != nil {
		return err
	}
	row++

	headers := []string{"Agent", "Section"}
	for _, d := range model.Days {
		headers = append(headers, string(d))
	}
	headers = append(headers, "Total semaine", "Statut")
	if err := w.setRow(sheet, row, 1, headers, "header"); err != nil {
		return err
	}
	row++

	summary := w.analyzer.AnalyzeWeek(w.in, week)
	for _, aw := range summary.Agents {
		values := []string{aw.Agent, string(aw.Section)}
		for _, d := range model.Days {
			switch m := aw.PerDay[d]; {
			case week.Day(d) == nil, m == 0:
				values = append(values, "—")
			default:
				values = append(values, model.FormatDuration(m))
			}
		}
		if err := w.setRow(sheet, row, 1, values, "cell"); err != nil {
			return err
		}
		style := "status_" + strings.ToLower(string(aw.Status))
		if err := w.setCell(sheet, colTotal, row, model.FormatDuration(aw.Total), style); err != nil {
			return err
		}
		if err := w.setCell(sheet, colStatus, row, aw.Note, style); err != nil {
			return err
		}
		row++
	}

	if len(week.Alerts) > 0 {
		row++
		alerts := append([]string(nil), week.Alerts...)
		sort.Strings(alerts)
		for _, al := range alerts {
			if err := w.setCell(sheet, 1, row, al, "alert"); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

// banner 合并整行的标题
func (w *Writer) banner(sheet string, row int, text, style string) error {
	first := fmt.Sprintf("A%d", row)
	last := fmt.Sprintf("%s%d", lastCol, row)
	if err := w.file.SetCellStr(sheet, first, text); err != nil {
		return err
	}
	if err := w.file.MergeCell(sheet, first, last); err != nil {
		return err
	}
	return w.file.SetCellStyle(sheet, first, last, w.styles[style])
}

// setRow 从指定列开始写一行
func (w *Writer) setRow(sheet string, row, col int, values []string, style string) error {
	for i, v := range values {
		if err := w.setCell(sheet, col+i, row, v, style); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) setCell(sheet string, col, row int, value, style string) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := w.file.SetCellStr(sheet, name, value); err != nil {
		return err
	}
	return w.file.SetCellStyle(sheet, name, name, w.styles[style])
}

// initStyles 创建全部单元格样式
func (w *Writer) initStyles() error {
	border := []excelize.Border{
		{Type: "left", Color: "#AAAAAA", Style: 1},
		{Type: "right", Color: "#AAAAAA", Style: 1},
		{Type: "top", Color: "#AAAAAA", Style: 1},
		{Type: "bottom", Color: "#AAAAAA", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	left := &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}

	defs := map[string]*excelize.Style{
		"title":     {Font: &excelize.Font{Bold: true, Size: 13, Color: "#FFFFFF"}, Fill: fill("#1A2F4A"), Alignment: center},
		"day":       {Font: &excelize.Font{Bold: true, Size: 12, Color: "#FFFFFF"}, Fill: fill("#1A2F4A"), Alignment: left},
		"day_rouge": {Font: &excelize.Font{Bold: true, Size: 12, Color: "#FFFFFF"}, Fill: fill("#C0392B"), Alignment: left},
		"day_bleu":  {Font: &excelize.Font{Bold: true, Size: 12, Color: "#FFFFFF"}, Fill: fill("#2471A3"), Alignment: left},
		"header":    {Font: &excelize.Font{Bold: true, Color: "#FFFFFF"}, Fill: fill("#2C3E50"), Alignment: center, Border: border},
		"cell":      {Alignment: center, Border: border},
		"empty":     {Font: &excelize.Font{Color: "#C0392B"}, Fill: fill("#FDF2F8"), Alignment: center, Border: border},
		"closed":    {Font: &excelize.Font{Italic: true, Color: "#AAAAAA"}, Fill: fill("#EBEBEB"), Alignment: center, Border: border},
		"event":     {Font: &excelize.Font{Italic: true, Size: 9, Color: "#6E2F09"}, Fill: fill("#FFF3CD"), Alignment: left, Border: border},
		"alert":     {Font: &excelize.Font{Bold: true, Size: 9, Color: "#8B0000"}, Fill: fill("#FFCCCC"), Alignment: left, Border: border},
		"status_ok": {Font: &excelize.Font{Bold: true, Color: "#1E8449"}, Fill: fill("#D5F5E3"), Alignment: center, Border: border},
	}
	defs["status_under"] = &excelize.Style{Font: &excelize.Font{Bold: true, Color: "#8B0000"}, Fill: fill("#FFCCCC"), Alignment: center, Border: border}
	defs["status_over"] = &excelize.Style{Font: &excelize.Font{Bold: true, Color: "#7D6608"}, Fill: fill("#FFF3CD"), Alignment: center, Border: border}
	for sec, color := range sectionColors {
		defs["section_"+string(sec)] = &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#2C3E50"},
			Fill:      fill(color),
			Alignment: center,
			Border:    border,
		}
	}

	for name, def := range defs {
		id, err := w.file.NewStyle(def)
		if err != nil {
			return err
		}
		w.styles[name] = id
	}
	return nil
}

// mentions 告警中是否提到该区域
func mentions(alerts []string, sec model.Section) bool {
	for _, al := range alerts {
		if strings.Contains(al, model.AlertPrefix+string(sec)+" ") {
			return true
		}
	}
	return false
}

// dayLabel "4 Mars 2025"
func dayLabel(plan *model.Plan, dp *model.DayPlan) string {
	day := strings.TrimLeft(dp.Date[len(dp.Date)-2:], "0")
	return fmt.Sprintf("%s %s %d", day, MonthLabel(plan.Month), plan.Year)
}

// weekRange "4 au 8 Mars 2025"
func weekRange(plan *model.Plan, week *model.WeekPlan) string {
	if len(week.Days) == 0 {
		return WeekSheetName(week.Index)
	}
	first := strings.TrimLeft(week.Days[0].Date[8:], "0")
	last := strings.TrimLeft(week.Days[len(week.Days)-1].Date[8:], "0")
	return fmt.Sprintf("%s au %s %s %d", first, last, MonthLabel(plan.Month), plan.Year)
}
