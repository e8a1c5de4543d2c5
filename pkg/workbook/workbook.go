// Package workbook 读写排班工作簿（xlsx）
package workbook

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// 输入工作表名称
const (
	SheetParams       = "Paramètres"
	SheetOpeningHours = "Horaire_ouverture_mediatheque"
	SheetSections     = "Affectations"
	SheetSchedules    = "Horaires_Des_Agents"
	SheetYouthMinimum = "Besoins_Jeunesse"
	SheetQuota        = "SP_MinMax"
	SheetRotation     = "Roulement_Samedi"
	SheetEvents       = "Événements"
	SheetTemplate     = "planning_type"
)

// RequiredSheets 缺失时无法生成任何排班的工作表
var RequiredSheets = []string{
	SheetParams,
	SheetOpeningHours,
	SheetSections,
	SheetSchedules,
	SheetTemplate,
}

// 参数表中的键
const (
	ParamMonth             = "Mois"
	ParamYear              = "Année"
	ParamSlots             = "Liste_des_créneaux"
	ParamTemporaryDays     = "Mode_vacataires"
	ParamExceptionWindow   = "Exception_Vacataire_seul"
	ParamIdealMax          = "Duree_max_ideale"
	ParamToleratedMax      = "Duree_max_toleree"
	ParamMinBreak          = "Pause_min"
	ParamMaxTemporaryAlone = "Max_vacataire_seul"
	ParamSaturdayPrefix    = "Samedi_S"
)

var monthNames = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
	"decembre":  time.December,
}

var monthLabels = [...]string{
	"", "Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

var weekdayNames = []string{"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche"}

// ParseMonth 解析法语月份名或数字
func ParseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if m, ok := monthNames[s]; ok {
		return m, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return time.Month(n), true
	}
	return 0, false
}

// MonthLabel 法语月份名
func MonthLabel(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthLabels[m]
}

// ParseDate 解析事件日期
// 支持 Excel 日期序列号、"2025-03-07"、"07/03/2025"、"07/03/25"、"07/03"、"7 mars"、"Samedi 7 mars 2025"
func ParseDate(raw string, year int) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == "nan" {
		return time.Time{}, false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 1 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}

	for _, day := range weekdayNames {
		if strings.HasPrefix(s, day) {
			s = strings.TrimSpace(strings.TrimPrefix(s, day))
			break
		}
	}

	parts := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(parts) >= 2 {
		if d, err := strconv.Atoi(parts[0]); err == nil {
			if m, ok := monthNames[strings.TrimRight(parts[1], ".")]; ok {
				y := year
				if len(parts) >= 3 {
					if v, err := strconv.Atoi(parts[2]); err == nil {
						y = v
					}
				}
				return validDate(y, m, d)
			}
		}
	}

	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006", "02/01/06", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	for _, layout := range []string{"02/01", "2/1"} {
		if t, err := time.Parse(layout, s); err == nil {
			return validDate(year, t.Month(), t.Day())
		}
	}
	return time.Time{}, false
}

// validDate 拒绝 "31 avril" 这类会被 time.Date 顺延的日期
func validDate(y int, m time.Month, d int) (time.Time, bool) {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// cell 取行中的单元格文本，越界或空值返回 ""
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

// parseNumber 解析数字，兼容逗号小数点
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// splitAgents 拆分以 ';' 分隔的人员单元格
func splitAgents(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ";") {
		p = strings.TrimSpace(p)
		if p != "" && !strings.EqualFold(p, "nan") {
			out = append(out, p)
		}
	}
	return out
}
