package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/model"
)

// 排班状态
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// PlanRecord 月度排班记录
type PlanRecord struct {
	ID          uuid.UUID `json:"id"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Status      string    `json:"status"`
	Source      string    `json:"source"` // json/workbook/cli
	Weeks       int       `json:"weeks"`
	OpenSlots   int       `json:"open_slots"`
	AlertCount  int       `json:"alert_count"`
	GeneratedAt time.Time `json:"generated_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssignmentRow 单个时段单个区域的安排
type AssignmentRow struct {
	PlanID  uuid.UUID `json:"plan_id"`
	Week    int       `json:"week"`
	Date    string    `json:"date"`
	Day     string    `json:"day"`
	Slot    string    `json:"slot"`
	Section string    `json:"section"`
	Agents  []string  `json:"agents"`
}

// AlertRow 告警记录，周告警的日期和时段为空
type AlertRow struct {
	PlanID  uuid.UUID `json:"plan_id"`
	Week    int       `json:"week"`
	Date    string    `json:"date,omitempty"`
	Slot    string    `json:"slot,omitempty"`
	Message string    `json:"message"`
}

// PlanRepository 排班仓储
type PlanRepository struct {
	db Transactor
}

// NewPlanRepository 创建排班仓储
func NewPlanRepository(db Transactor) *PlanRepository {
	return &PlanRepository{db: db}
}

// Save 在一个事务中保存排班、逐区域安排和告警
func (r *PlanRepository) Save(ctx context.Context, plan *model.Plan, source string) (*PlanRecord, error) {
	payload, err := json.Marshal(plan)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "序列化排班失败")
	}

	rec := newPlanRecord(plan, source)
	assignments := assignmentRows(plan)
	alerts := alertRows(plan)

	err = r.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO plans (
				id, year, month, status, source, weeks, open_slots, alert_count,
				payload, generated_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			rec.ID, rec.Year, rec.Month, rec.Status, rec.Source, rec.Weeks, rec.OpenSlots, rec.AlertCount,
			payload, rec.GeneratedAt, rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return translate(err, "创建排班记录失败")
		}

		for _, a := range assignments {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO plan_assignments (plan_id, week_index, date, day, slot, section, agents)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, a.PlanID, a.Week, a.Date, a.Day, a.Slot, a.Section, pq.Array(a.Agents)); err != nil {
				return translate(err, "创建排班安排失败")
			}
		}
		for _, al := range alerts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO plan_alerts (plan_id, week_index, date, slot, message)
				VALUES ($1, $2, $3, $4, $5)
			`, al.PlanID, al.Week, al.Date, al.Slot, al.Message); err != nil {
				return translate(err, "创建告警记录失败")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByID 获取排班记录，不存在时返回 NOT_FOUND
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*PlanRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, year, month, status, source, weeks, open_slots, alert_count,
			generated_at, created_at, updated_at
		FROM plans
		WHERE id = $1
	`, id)
	rec, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("plan", id.String())
	}
	if err != nil {
		return nil, translate(err, "查询排班记录失败")
	}
	return rec, nil
}

// Load 读取完整的排班结果
func (r *PlanRepository) Load(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM plans WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("plan", id.String())
	}
	if err != nil {
		return nil, translate(err, "读取排班失败")
	}
	plan := &model.Plan{}
	if err := json.Unmarshal(payload, plan); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "排班数据损坏").WithField("plan_id", id.String())
	}
	return plan, nil
}

// List 列出排班记录
func (r *PlanRepository) List(ctx context.Context, filter ListFilter) ([]*PlanRecord, int, error) {
	where, args, argNum := filter.where()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM plans "+where, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "统计排班数量失败")
	}

	query := fmt.Sprintf(`
		SELECT id, year, month, status, source, weeks, open_slots, alert_count,
			generated_at, created_at, updated_at
		FROM plans %s
		%s
		LIMIT $%d OFFSET $%d
	`, where, filter.order(), argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "查询排班列表失败")
	}
	defer rows.Close()

	var records []*PlanRecord
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, 0, translate(err, "扫描排班记录失败")
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// Publish 将草稿标记为已发布；同一月份之前发布的排班退回草稿
func (r *PlanRepository) Publish(ctx context.Context, id uuid.UUID) error {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE plans SET status = $1, updated_at = $2
			WHERE year = $3 AND month = $4 AND status = $5
		`, StatusDraft, now, rec.Year, rec.Month, StatusPublished); err != nil {
			return translate(err, "撤回已发布排班失败")
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE plans SET status = $1, updated_at = $2 WHERE id = $3
		`, StatusPublished, now, id); err != nil {
			return translate(err, "发布排班失败")
		}
		return nil
	})
}

// Delete 删除排班及其安排和告警
func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM plan_alerts WHERE plan_id = $1",
			"DELETE FROM plan_assignments WHERE plan_id = $1",
			"DELETE FROM plans WHERE id = $1",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return translate(err, "删除排班失败")
			}
		}
		return nil
	})
}

// AssignmentsByAgent 查询某人员在日期范围内的安排（日期含两端，格式 YYYY-MM-DD）
func (r *PlanRepository) AssignmentsByAgent(ctx context.Context, planID uuid.UUID, agent, from, to string) ([]AssignmentRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT plan_id, week_index, date, day, slot, section, agents
		FROM plan_assignments
		WHERE plan_id = $1 AND $2 = ANY(agents) AND date >= $3 AND date <= $4
		ORDER BY date, slot
	`, planID, agent, from, to)
	if err != nil {
		return nil, translate(err, "查询人员安排失败")
	}
	defer rows.Close()

	var out []AssignmentRow
	for rows.Next() {
		var a AssignmentRow
		if err := rows.Scan(&a.PlanID, &a.Week, &a.Date, &a.Day, &a.Slot, &a.Section, pq.Array(&a.Agents)); err != nil {
			return nil, translate(err, "扫描人员安排失败")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Alerts 某次排班的全部告警
func (r *PlanRepository) Alerts(ctx context.Context, planID uuid.UUID) ([]AlertRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT plan_id, week_index, date, slot, message
		FROM plan_alerts
		WHERE plan_id = $1
		ORDER BY week_index, date, slot
	`, planID)
	if err != nil {
		return nil, translate(err, "查询告警失败")
	}
	defer rows.Close()

	var out []AlertRow
	for rows.Next() {
		var a AlertRow
		if err := rows.Scan(&a.PlanID, &a.Week, &a.Date, &a.Slot, &a.Message); err != nil {
			return nil, translate(err, "扫描告警失败")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// newPlanRecord 由排班结果生成记录摘要
func newPlanRecord(plan *model.Plan, source string) *PlanRecord {
	now := time.Now()
	id := plan.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	rec := &PlanRecord{
		ID:          id,
		Year:        plan.Year,
		Month:       int(plan.Month),
		Status:      StatusDraft,
		Source:      source,
		Weeks:       len(plan.Weeks),
		AlertCount:  plan.AlertCount(),
		GeneratedAt: plan.GeneratedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, w := range plan.Weeks {
		for _, dp := range w.Days {
			for _, s := range dp.Slots {
				if s != nil {
					rec.OpenSlots++
				}
			}
		}
	}
	return rec
}

// assignmentRows 展开为逐区域的行，跳过关闭时段和空区域
func assignmentRows(plan *model.Plan) []AssignmentRow {
	var out []AssignmentRow
	for _, w := range plan.Weeks {
		for _, dp := range w.Days {
			for _, s := range dp.Slots {
				if s == nil {
					continue
				}
				for _, sec := range model.Sections {
					agents := s.Assignment[sec]
					if len(agents) == 0 {
						continue
					}
					out = append(out, AssignmentRow{
						PlanID:  plan.ID,
						Week:    w.Index,
						Date:    dp.Date,
						Day:     string(dp.Day),
						Slot:    s.Slot.Label,
						Section: string(sec),
						Agents:  append([]string(nil), agents...),
					})
				}
			}
		}
	}
	return out
}

// alertRows 时段告警在前，周告警按文本排序在后
func alertRows(plan *model.Plan) []AlertRow {
	var out []AlertRow
	for _, w := range plan.Weeks {
		for _, dp := range w.Days {
			for _, s := range dp.Slots {
				if s == nil {
					continue
				}
				for _, msg := range s.Alerts {
					out = append(out, AlertRow{PlanID: plan.ID, Week: w.Index, Date: dp.Date, Slot: s.Slot.Label, Message: msg})
				}
			}
		}
		weekly := append([]string(nil), w.Alerts...)
		sort.Strings(weekly)
		for _, msg := range weekly {
			out = append(out, AlertRow{PlanID: plan.ID, Week: w.Index, Message: msg})
		}
	}
	return out
}

func scanPlan(s Scanner) (*PlanRecord, error) {
	rec := &PlanRecord{}
	err := s.Scan(
		&rec.ID, &rec.Year, &rec.Month, &rec.Status, &rec.Source, &rec.Weeks, &rec.OpenSlots, &rec.AlertCount,
		&rec.GeneratedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// translate 将驱动错误转换为应用错误
func translate(err error, msg string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return errors.Wrap(err, errors.CodeAlreadyExists, msg).WithDetails(pqErr.Detail)
		case "23503", "23502":
			return errors.Wrap(err, errors.CodeInvalidInput, msg).WithDetails(pqErr.Detail)
		}
	}
	if _, ok := err.(*errors.AppError); ok {
		return err
	}
	return errors.Wrap(err, errors.CodeDatabaseError, msg)
}
