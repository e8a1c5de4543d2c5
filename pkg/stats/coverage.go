package stats

import (
	"strings"

	"github.com/paiban/mediatheque/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	// 整体覆盖率
	OpenSlots       int     `json:"open_slots"`       // 开放时段数（日 × 时段）
	ClosedSlots     int     `json:"closed_slots"`     // 关闭时段数
	CoveredSlots    int     `json:"covered_slots"`    // 必须区域全部有人的开放时段数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	// 按区域统计
	SectionCoverage map[model.Section]*SectionCoverage `json:"section_coverage"`

	// 按日期统计
	DailyCoverage map[string]*DayCoverage `json:"daily_coverage"`

	// 问题识别
	UncoveredSlots []UncoveredSlot `json:"uncovered_slots"`
	AlertCount     int             `json:"alert_count"`
}

// SectionCoverage 单个区域的覆盖情况
type SectionCoverage struct {
	Section       model.Section `json:"section"`
	Filled        int           `json:"filled"`          // 有人的开放时段数
	Empty         int           `json:"empty"`           // 无人的开放时段数
	Temporary     int           `json:"temporary"`       // 只有临时工的开放时段数
	StaffSlots    int           `json:"staff_slots"`     // 人次合计
	CoverageRate  float64       `json:"coverage_rate"`   // 覆盖率 (%)
	AvgStaffCount float64       `json:"avg_staff_count"` // 平均在岗人数
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string    `json:"date"`
	Day          model.Day `json:"day"`
	OpenSlots    int       `json:"open_slots"`
	CoveredSlots int       `json:"covered_slots"`
	CoverageRate float64   `json:"coverage_rate"`
	StaffCount   int       `json:"staff_count"` // 当日出现的不同人员数
	Alerts       int       `json:"alerts"`
}

// UncoveredSlot 必须区域无人的时段
type UncoveredSlot struct {
	Week    int           `json:"week"`
	Date    string        `json:"date"`
	Day     model.Day     `json:"day"`
	Slot    string        `json:"slot"`
	Section model.Section `json:"section"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	temporary func(agent string) bool
}

// NewCoverageAnalyzer 创建覆盖率分析器，临时工按姓名判定
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{
		temporary: func(agent string) bool {
			return model.KindFromName(agent) == model.StaffTemporary
		},
	}
}

// WithAgents 使用人员列表判定临时工
func (c *CoverageAnalyzer) WithAgents(agents []*model.Agent) *CoverageAnalyzer {
	index := make(map[string]*model.Agent, len(agents))
	for _, a := range agents {
		index[a.ID] = a
	}
	c.temporary = func(agent string) bool {
		if a, ok := index[agent]; ok {
			return a.IsTemporary()
		}
		return model.KindFromName(agent) == model.StaffTemporary
	}
	return c
}

// Analyze 分析整月覆盖率
func (c *CoverageAnalyzer) Analyze(plan *model.Plan) *CoverageMetrics {
	metrics := &CoverageMetrics{
		SectionCoverage: make(map[model.Section]*SectionCoverage, len(model.Sections)),
		DailyCoverage:   make(map[string]*DayCoverage),
	}
	for _, sec := range model.Sections {
		metrics.SectionCoverage[sec] = &SectionCoverage{Section: sec}
	}

	for _, week := range plan.Weeks {
		metrics.AlertCount += len(week.Alerts)
		for _, dp := range week.Days {
			c.analyzeDay(metrics, week.Index, dp)
		}
	}

	if metrics.OpenSlots > 0 {
		metrics.OverallCoverage = float64(metrics.CoveredSlots) / float64(metrics.OpenSlots) * 100
	}
	for _, sc := range metrics.SectionCoverage {
		if total := sc.Filled + sc.Empty; total > 0 {
			sc.CoverageRate = float64(sc.Filled) / float64(total) * 100
		}
		if sc.Filled > 0 {
			sc.AvgStaffCount = float64(sc.StaffSlots) / float64(sc.Filled)
		}
	}
	for _, day := range metrics.DailyCoverage {
		if day.OpenSlots > 0 {
			day.CoverageRate = float64(day.CoveredSlots) / float64(day.OpenSlots) * 100
		}
	}

	return metrics
}

// analyzeDay 统计一天
func (c *CoverageAnalyzer) analyzeDay(metrics *CoverageMetrics, week int, dp *model.DayPlan) {
	day := &DayCoverage{Date: dp.Date, Day: dp.Day}
	metrics.DailyCoverage[dp.Date] = day
	staff := make(map[string]bool)

	for _, rec := range dp.Slots {
		if rec == nil {
			metrics.ClosedSlots++
			continue
		}
		metrics.OpenSlots++
		day.OpenSlots++
		day.Alerts += len(rec.Alerts)
		metrics.AlertCount += len(rec.Alerts)

		covered := true
		for _, sec := range model.Sections {
			agents := rec.Assignment[sec]
			sc := metrics.SectionCoverage[sec]
			if len(agents) == 0 {
				sc.Empty++
				if sec.IsMandatory() {
					covered = false
					metrics.UncoveredSlots = append(metrics.UncoveredSlots, UncoveredSlot{
						Week:    week,
						Date:    dp.Date,
						Day:     dp.Day,
						Slot:    rec.Slot.Label,
						Section: sec,
					})
				}
				continue
			}
			sc.Filled++
			sc.StaffSlots += len(agents)
			if c.onlyTemporary(agents) {
				sc.Temporary++
			}
			for _, a := range agents {
				staff[a] = true
			}
		}
		if covered {
			metrics.CoveredSlots++
			day.CoveredSlots++
		}
	}
	day.StaffCount = len(staff)
}

// onlyTemporary 区域内是否只有临时工
func (c *CoverageAnalyzer) onlyTemporary(agents []string) bool {
	for _, a := range agents {
		if !c.temporary(a) {
			return false
		}
	}
	return true
}

// AlertsMentioning 统计提到某个区域的告警数
func AlertsMentioning(plan *model.Plan, sec model.Section) int {
	n := 0
	for _, week := range plan.Weeks {
		for _, dp := range week.Days {
			for _, rec := range dp.Slots {
				if rec == nil {
					continue
				}
				for _, al := range rec.Alerts {
					if strings.Contains(al, string(sec)+" ") {
						n++
					}
				}
			}
		}
	}
	return n
}
