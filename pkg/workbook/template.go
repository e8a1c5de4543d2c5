package workbook

import (
	"strings"

	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/logger"
	"github.com/paiban/mediatheque/pkg/model"
)

// 基准排班表中各区域所在的列（从 0 开始）
var templateColumns = []struct {
	section model.Section
	columns []int
}{
	{model.SectionRDC, []int{2}},
	{model.SectionAdulte, []int{3}},
	{model.SectionMF, []int{5, 6}},
	{model.SectionJeunesse, []int{7, 8, 9}},
}

var templateDayHeaders = map[string]model.Day{
	"MARDI":    model.Mardi,
	"MERCREDI": model.Mercredi,
	"JEUDI":    model.Jeudi,
	"VENDREDI": model.Vendredi,
}

// 第二列中不是时间块的标题文字
var templateSkipLabels = map[string]bool{
	"R D C":           true,
	"RDC":             true,
	"Adulte":          true,
	"Musique & Films": true,
	"Jeunesse":        true,
	"12H30":           true,
	"15H30":           true,
}

// templateBlock 基准排班表中的一个时间块，如 "10H-12H30"
type templateBlock struct {
	span    model.TimeRange
	entries model.SectionEntries
}

// readTemplate 读取基准排班表并展开到配置的时段
// 第一列出现 MARDI..VENDREDI 开始对应日的块；第一个 SAMEDI 为红色周六，第二个为蓝色周六
func (r *Reader) readTemplate(slots []model.Slot) (model.Template, error) {
	rows, err := r.rows(SheetTemplate)
	if err != nil {
		return nil, err
	}

	blocks := make(map[string][]templateBlock)
	current := ""
	saturdays := 0

	for i, row := range rows {
		head := strings.ToUpper(cell(row, 0))
		if d, ok := templateDayHeaders[head]; ok {
			current = string(d)
			blocks[current] = nil
			continue
		}
		if head == "SAMEDI" {
			saturdays++
			color := model.Rouge
			if saturdays > 1 {
				color = model.Bleu
			}
			current = model.TemplateKey(model.Samedi, color)
			blocks[current] = nil
			continue
		}
		if current == "" {
			continue
		}

		label := cell(row, 1)
		if label == "" || templateSkipLabels[label] {
			continue
		}
		span, ok := parseBlockLabel(label)
		if !ok {
			logger.Debug().Str("sheet", SheetTemplate).Int("row", i+1).Str("label", label).Msg("无法识别的时间块，已忽略")
			continue
		}

		entries := make(model.SectionEntries)
		for _, sc := range templateColumns {
			for _, col := range sc.columns {
				if name := templateAgent(cell(row, col)); name != "" {
					entries[sc.section] = append(entries[sc.section], model.ParseTemplateEntry(name))
				}
			}
		}
		blocks[current] = append(blocks[current], templateBlock{span: span, entries: entries})
	}

	if len(blocks) == 0 {
		return nil, errors.InvalidTemplate(SheetTemplate, "未找到任何服务日标题")
	}

	return explodeBlocks(blocks, slots), nil
}

// explodeBlocks 将时间块展开为时段：时段完全落在块内时复制块的条目
func explodeBlocks(blocks map[string][]templateBlock, slots []model.Slot) model.Template {
	tpl := make(model.Template)
	for key, list := range blocks {
		tpl[key] = make(map[string]model.SectionEntries)
		for _, b := range list {
			for _, slot := range slots {
				if !slot.Within(b.span) {
					continue
				}
				entries := make(model.SectionEntries, len(b.entries))
				for sec, src := range b.entries {
					entries[sec] = append([]model.TemplateEntry(nil), src...)
				}
				tpl.Set(key, slot.Label, entries)
			}
		}
	}
	return tpl
}

// parseBlockLabel 解析 "10H-12H30"、"14h - 16h"、"10:00-12:30"
func parseBlockLabel(label string) (model.TimeRange, bool) {
	parts := strings.Split(strings.ToUpper(label), "-")
	if len(parts) != 2 {
		return model.TimeRange{}, false
	}
	fix := func(p string) string {
		p = strings.TrimRight(strings.TrimSpace(strings.ReplaceAll(p, "H", ":")), ":")
		if !strings.Contains(p, ":") {
			p += ":00"
		}
		return p
	}
	start, ok1 := model.ParseClock(fix(parts[0]))
	end, ok2 := model.ParseClock(fix(parts[1]))
	if !ok1 || !ok2 || start >= end {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: start, End: end}, true
}

// templateAgent 单元格中的人员名，截掉 " à 11h" / " à partir de" 之类的说明
func templateAgent(raw string) string {
	if raw == "" || raw == "-" {
		return ""
	}
	if i := strings.Index(raw, " à "); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, " à partir"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
