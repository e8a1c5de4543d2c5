package workbook

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/logger"
	"github.com/paiban/mediatheque/pkg/model"
)

// Reader 从工作簿读取排班输入
type Reader struct {
	file  *excelize.File
	rules model.Rules
}

// Open 从字节流打开工作簿
func Open(r io.Reader) (*Reader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.WorkbookParse("", err)
	}
	return NewReader(f), nil
}

// OpenFile 打开工作簿文件
func OpenFile(path string) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WorkbookParse(path, err)
	}
	return NewReader(f), nil
}

// NewReader 包装已打开的工作簿，规则默认取 model.DefaultRules
func NewReader(f *excelize.File) *Reader {
	return &Reader{file: f, rules: model.DefaultRules()}
}

// WithRules 设置参数表未覆盖时使用的规则
func (r *Reader) WithRules(rules model.Rules) *Reader {
	r.rules = rules
	return r
}

// File 底层工作簿，写出时可作为源工作簿保留其他工作表
func (r *Reader) File() *excelize.File {
	return r.file
}

// Close 关闭工作簿
func (r *Reader) Close() error {
	return r.file.Close()
}

// Read 读取全部工作表并组装为排班输入
// 缺少必需工作表或关键参数时返回错误，单行数据错误只记录日志并跳过
func (r *Reader) Read() (*model.Input, error) {
	sheets := make(map[string]bool)
	for _, name := range r.file.GetSheetList() {
		sheets[name] = true
	}
	for _, name := range RequiredSheets {
		if !sheets[name] {
			return nil, errors.MissingTable(name)
		}
	}

	params, err := r.readParams()
	if err != nil {
		return nil, err
	}

	in := &model.Input{
		Rules:        r.rules,
		YouthMinimum: make(model.YouthMinimum),
		Events:       make(map[string][]model.Event),
	}
	if err := applyParams(in, params); err != nil {
		return nil, err
	}

	if in.OpeningHours, err = r.readOpeningHours(); err != nil {
		return nil, err
	}
	if in.Agents, err = r.readAgents(); err != nil {
		return nil, err
	}
	index := in.AgentIndex()

	if err := r.readSchedules(index); err != nil {
		return nil, err
	}
	if sheets[SheetQuota] {
		if err := r.readQuota(index); err != nil {
			return nil, err
		}
	}
	if sheets[SheetRotation] {
		if err := r.readRotation(index); err != nil {
			return nil, err
		}
	}
	if sheets[SheetYouthMinimum] {
		if in.YouthMinimum, err = r.readYouthMinimum(); err != nil {
			return nil, err
		}
	}
	if sheets[SheetEvents] {
		if in.Events, err = r.readEvents(in.Year, in.Month); err != nil {
			return nil, err
		}
	}
	if in.Template, err = r.readTemplate(in.Slots); err != nil {
		return nil, err
	}

	in.Normalize()
	logger.Debug().
		Int("agents", len(in.Agents)).
		Int("slots", len(in.Slots)).
		Int("templates", len(in.Template)).
		Int("event_days", len(in.Events)).
		Msg("工作簿读取完成")
	return in, nil
}

// rows 以原始值读取工作表，时间单元格为一天的分数，日期为序列号
func (r *Reader) rows(sheet string) ([][]string, error) {
	rows, err := r.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.WorkbookParse(sheet, err)
	}
	return rows, nil
}

// readParams 参数表：第一列为键，第二列为值
func (r *Reader) readParams() (map[string]string, error) {
	rows, err := r.rows(SheetParams)
	if err != nil {
		return nil, err
	}
	params := make(map[string]string)
	for _, row := range rows {
		key := cell(row, 0)
		if key == "" || key == "Paramètre" {
			continue
		}
		params[key] = cell(row, 1)
	}
	return params, nil
}

// applyParams 将参数写入输入，未给出的参数保留默认规则
func applyParams(in *model.Input, params map[string]string) error {
	month, ok := ParseMonth(params[ParamMonth])
	if !ok {
		return errors.InvalidInput(ParamMonth, fmt.Sprintf("月份无法识别: %q", params[ParamMonth]))
	}
	in.Month = month

	yearF, ok := parseNumber(params[ParamYear])
	if !ok {
		return errors.InvalidInput(ParamYear, fmt.Sprintf("年份无法识别: %q", params[ParamYear]))
	}
	in.Year = int(yearF)

	in.Slots = model.ParseSlots(params[ParamSlots])
	if len(in.Slots) == 0 {
		return errors.InvalidInput(ParamSlots, "时段列表为空")
	}

	if raw, ok := params[ParamTemporaryDays]; ok && raw != "" {
		var days []model.Day
		for _, part := range strings.FieldsFunc(raw, func(c rune) bool {
			return c == ',' || c == ';' || c == ' ' || c == '/'
		}) {
			if d, ok := model.ParseDay(part); ok {
				days = append(days, d)
			}
		}
		in.Rules.TemporaryDays = days
	}

	if raw, ok := params[ParamExceptionWindow]; ok {
		if tr, ok := model.ParseRange(raw); ok {
			in.Rules.ExceptionWindow = &tr
		} else {
			in.Rules.ExceptionWindow = nil
		}
	}

	for key, target := range map[string]*int{
		ParamIdealMax:          &in.Rules.IdealMaxMinutes,
		ParamToleratedMax:      &in.Rules.ToleratedMaxMinutes,
		ParamMinBreak:          &in.Rules.MinBreakMinutes,
		ParamMaxTemporaryAlone: &in.Rules.MaxTemporaryAloneMinutes,
	} {
		raw := params[key]
		if raw == "" {
			continue
		}
		minutes, ok := parseMinutes(raw)
		if !ok {
			return errors.InvalidInput(key, fmt.Sprintf("时长无法识别: %q", raw))
		}
		*target = minutes
	}

	colors := make(map[int]model.RotationColor)
	for i := 1; i <= 5; i++ {
		if c, ok := model.ParseColor(params[ParamSaturdayPrefix+strconv.Itoa(i)]); ok {
			colors[i] = c
		}
	}
	in.Rules.SaturdayColors = colors
	return nil
}

// parseMinutes 时长参数：纯数字视为分钟，"2h30" 之类按时刻格式解析
func parseMinutes(raw string) (int, bool) {
	if strings.ContainsAny(strings.ToLower(raw), "h:") {
		return model.ParseClock(raw)
	}
	f, ok := parseNumber(raw)
	if !ok || f < 0 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// readOpeningHours 开放时间表：第二列为服务日，之后每两列为一个区间
func (r *Reader) readOpeningHours() (map[model.Day][]model.TimeRange, error) {
	rows, err := r.rows(SheetOpeningHours)
	if err != nil {
		return nil, err
	}
	hours := make(map[model.Day][]model.TimeRange)
	for _, row := range rows {
		d, ok := model.ParseDay(cell(row, 1))
		if !ok {
			continue
		}
		for i := 2; i+1 < len(row); i += 2 {
			start, ok1 := model.ParseClock(cell(row, i))
			end, ok2 := model.ParseClock(cell(row, i+1))
			if ok1 && ok2 && start < end {
				hours[d] = append(hours[d], model.TimeRange{Start: start, End: end})
			}
		}
	}
	return hours, nil
}

// readAgents 区域分配表：第一列为人员，之后各列为可值守区域，第一项为主区域
func (r *Reader) readAgents() ([]*model.Agent, error) {
	rows, err := r.rows(SheetSections)
	if err != nil {
		return nil, err
	}
	var agents []*model.Agent
	seen := make(map[string]bool)
	for i, row := range rows {
		id := cell(row, 0)
		if id == "" || id == "Agent" || seen[id] {
			continue
		}
		var sections []model.Section
		for j := 1; j < len(row); j++ {
			raw := cell(row, j)
			if raw == "" {
				continue
			}
			sec, ok := model.ParseSection(raw)
			if !ok {
				logger.Warn().Str("sheet", SheetSections).Int("row", i+1).Str("section", raw).Msg("未知区域，已忽略")
				continue
			}
			sections = append(sections, sec)
		}
		seen[id] = true
		agents = append(agents, model.NewAgent(id, sections...))
	}
	return agents, nil
}

// readSchedules 人员作息表：人员、服务日、上午起止、下午起止
func (r *Reader) readSchedules(index map[string]*model.Agent) error {
	rows, err := r.rows(SheetSchedules)
	if err != nil {
		return err
	}
	for _, row := range rows {
		id := cell(row, 0)
		if id == "" || id == "Agent" {
			continue
		}
		d, ok := model.ParseDay(cell(row, 1))
		if !ok {
			continue
		}
		a, ok := index[id]
		if !ok {
			logger.Debug().Str("agent", id).Msg("作息表中的人员不在区域分配表中")
			continue
		}
		a.Schedule[d] = model.DaySchedule{
			Morning:   rangeCells(row, 2),
			Afternoon: rangeCells(row, 4),
		}
	}
	return nil
}

// rangeCells 相邻两列组成的区间，缺失或无效时返回 nil
func rangeCells(row []string, i int) *model.TimeRange {
	start, ok1 := model.ParseClock(cell(row, i))
	end, ok2 := model.ParseClock(cell(row, i+1))
	if !ok1 || !ok2 || start >= end {
		return nil
	}
	return &model.TimeRange{Start: start, End: end}
}

// readQuota 配额表，单位为小时：平日周下限/上限、含周六周下限/上限
func (r *Reader) readQuota(index map[string]*model.Agent) error {
	rows, err := r.rows(SheetQuota)
	if err != nil {
		return err
	}
	hours := func(row []string, i int, fallback float64) int {
		v, ok := parseNumber(cell(row, i))
		if !ok {
			v = fallback
		}
		return int(math.Round(v * 60))
	}
	for _, row := range rows {
		a, ok := index[cell(row, 0)]
		if !ok {
			continue
		}
		a.Quota = model.Quota{
			Weekday:  model.Bounds{Min: hours(row, 1, 0), Max: hours(row, 2, 99)},
			Saturday: model.Bounds{Min: hours(row, 3, 0), Max: hours(row, 4, 99)},
		}
	}
	return nil
}

// readRotation 周六轮值表
func (r *Reader) readRotation(index map[string]*model.Agent) error {
	rows, err := r.rows(SheetRotation)
	if err != nil {
		return err
	}
	for _, row := range rows {
		a, ok := index[cell(row, 0)]
		if !ok {
			continue
		}
		if c, ok := model.ParseColor(cell(row, 1)); ok {
			a.Color = c
		}
	}
	return nil
}

// readYouthMinimum 青少年区最低人数：首行为列名（服务日或 "Samedi_ROUGE"），首列为时段
func (r *Reader) readYouthMinimum() (model.YouthMinimum, error) {
	rows, err := r.rows(SheetYouthMinimum)
	if err != nil {
		return nil, err
	}
	ym := make(model.YouthMinimum)
	if len(rows) == 0 {
		return ym, nil
	}
	header := make([]string, len(rows[0]))
	for i := range rows[0] {
		header[i] = youthColumn(cell(rows[0], i))
	}
	for _, row := range rows[1:] {
		label := cell(row, 0)
		if label == "" || label == "Créneau" {
			continue
		}
		entry := make(map[string]int)
		for i := 1; i < len(header); i++ {
			if header[i] == "" {
				continue
			}
			v, _ := parseNumber(cell(row, i))
			entry[header[i]] = int(v)
		}
		ym[label] = entry
	}
	return ym, nil
}

// youthColumn 规范化列名："samedi rouge" -> "Samedi_ROUGE"，"MARDI" -> "Mardi"
func youthColumn(raw string) string {
	fields := strings.FieldsFunc(raw, func(c rune) bool { return c == '_' || c == ' ' })
	if len(fields) == 0 {
		return ""
	}
	d, ok := model.ParseDay(fields[0])
	if !ok {
		return raw
	}
	if len(fields) > 1 {
		if c, ok := model.ParseColor(fields[1]); ok {
			return model.TemplateKey(d, c)
		}
	}
	return string(d)
}

// readEvents 事件表：日期、开始、结束、名称、之后各列为人员（可用 ';' 分隔）
// 只保留目标月份的事件，缺少结束时间时默认持续一小时
func (r *Reader) readEvents(year int, month time.Month) (map[string][]model.Event, error) {
	rows, err := r.rows(SheetEvents)
	if err != nil {
		return nil, err
	}
	events := make(map[string][]model.Event)
	for _, row := range rows {
		date, ok := ParseDate(cell(row, 0), year)
		if !ok || date.Year() != year || date.Month() != month {
			continue
		}
		start, ok := model.ParseClock(cell(row, 1))
		name := cell(row, 3)
		if !ok || name == "" {
			continue
		}
		end, ok := model.ParseClock(cell(row, 2))
		if !ok || end <= start {
			end = start + 60
		}
		var agents []string
		for i := 4; i < len(row) && i < 12; i++ {
			agents = append(agents, splitAgents(cell(row, i))...)
		}
		key := date.Format("2006-01-02")
		events[key] = append(events[key], model.Event{
			TimeRange: model.TimeRange{Start: start, End: end},
			Name:      name,
			Agents:    agents,
		})
	}
	return events, nil
}
