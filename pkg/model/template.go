package model

import (
	"encoding/json"
	"strings"
)

// AnyTemporaryToken 模板中代表“任意临时工”的占位符
const AnyTemporaryToken = "VACATAIRES"

// TemplateEntry 模板中的一个区域条目：具名人员或任意临时工
type TemplateEntry struct {
	Agent        string
	AnyTemporary bool
}

// NamedAgent 具名人员条目
func NamedAgent(id string) TemplateEntry {
	return TemplateEntry{Agent: id}
}

// AnyTemporaryStaff 任意临时工条目
func AnyTemporaryStaff() TemplateEntry {
	return TemplateEntry{AnyTemporary: true}
}

// ParseTemplateEntry 解析模板单元格文本
func ParseTemplateEntry(s string) TemplateEntry {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "VACATAIRES", "VACATAIRE":
		return AnyTemporaryStaff()
	}
	return NamedAgent(s)
}

// String 返回单元格文本形式
func (e TemplateEntry) String() string {
	if e.AnyTemporary {
		return AnyTemporaryToken
	}
	return e.Agent
}

// MarshalJSON 序列化为字符串
func (e TemplateEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON 从字符串反序列化
func (e *TemplateEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*e = ParseTemplateEntry(s)
	return nil
}

// SectionEntries 区域 -> 模板条目
type SectionEntries map[Section][]TemplateEntry

// Template 基准排班表：模板键 -> 时段标签 -> 区域条目
// 模板键为服务日名称，周六按轮值颜色区分（见 TemplateKey）
type Template map[string]map[string]SectionEntries

// TemplateKey 模板键：周六为 "Samedi_ROUGE" / "Samedi_BLEU"
func TemplateKey(d Day, color RotationColor) string {
	if d == Samedi {
		return string(Samedi) + "_" + string(color)
	}
	return string(d)
}

// Lookup 取某个模板键和时段的条目，不存在时返回 nil
func (t Template) Lookup(key, slotLabel string) SectionEntries {
	bySlot, ok := t[key]
	if !ok {
		return nil
	}
	return bySlot[slotLabel]
}

// Set 写入条目
func (t Template) Set(key, slotLabel string, entries SectionEntries) {
	if t[key] == nil {
		t[key] = make(map[string]SectionEntries)
	}
	t[key][slotLabel] = entries
}
