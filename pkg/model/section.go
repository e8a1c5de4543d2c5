package model

import "strings"

// Section 服务区域
type Section string

const (
	SectionRDC      Section = "RDC"
	SectionAdulte   Section = "Adulte"
	SectionMF       Section = "MF"
	SectionJeunesse Section = "Jeunesse"
)

// Sections 按处理顺序排列的区域
var Sections = []Section{SectionRDC, SectionAdulte, SectionMF, SectionJeunesse}

// IsMandatory 必须单人覆盖的区域
func (s Section) IsMandatory() bool {
	return s == SectionRDC || s == SectionAdulte || s == SectionMF
}

var sectionAliases = map[string]Section{
	"rdc":              SectionRDC,
	"r d c":            SectionRDC,
	"adulte":           SectionAdulte,
	"adultes":          SectionAdulte,
	"mf":               SectionMF,
	"musique & films":  SectionMF,
	"musique et films": SectionMF,
	"jeunesse":         SectionJeunesse,
}

// ParseSection 解析区域名称
func ParseSection(s string) (Section, bool) {
	sec, ok := sectionAliases[strings.ToLower(strings.TrimSpace(s))]
	return sec, ok
}
