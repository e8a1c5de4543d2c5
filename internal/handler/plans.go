package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/paiban/mediatheque/internal/repository"
	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/logger"
	"github.com/paiban/mediatheque/pkg/model"
)

// PlansHandler 已保存排班的查询与发布
type PlansHandler struct {
	store PlanStore
}

// NewPlansHandler 创建已保存排班处理器
func NewPlansHandler(store PlanStore) *PlansHandler {
	return &PlansHandler{store: store}
}

// ListResponse 列表响应
type ListResponse struct {
	Items  []*repository.PlanRecord `json:"items"`
	Total  int                      `json:"total"`
	Offset int                      `json:"offset"`
	Limit  int                      `json:"limit"`
}

// List 列出已保存的排班
// 查询参数：year, month, status, source, offset, limit, order_by, order_dir
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	items, total, err := h.store.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if items == nil {
		items = []*repository.PlanRecord{}
	}
	respondJSON(w, http.StatusOK, ListResponse{
		Items:  items,
		Total:  total,
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// PlanResponse 单个排班响应
type PlanResponse struct {
	Record *repository.PlanRecord `json:"record"`
	Plan   *model.Plan            `json:"plan"`
}

// Get 查询单个排班及其完整结果
func (h *PlansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	plan, err := h.store.Load(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, PlanResponse{Record: rec, Plan: plan})
}

// Alerts 查询某次排班的告警
func (h *PlansHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	alerts, err := h.store.Alerts(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []repository.AlertRow{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// Agent 查询某人员在某次排班中的安排，可用 from/to 限定日期
func (h *PlansHandler) Agent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	agent := r.PathValue("agent")
	from := r.URL.Query().Get("from")
	if from == "" {
		from = "0000-01-01"
	}
	to := r.URL.Query().Get("to")
	if to == "" {
		to = "9999-12-31"
	}

	rows, err := h.store.AssignmentsByAgent(r.Context(), id, agent, from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if rows == nil {
		rows = []repository.AssignmentRow{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agent":       agent,
		"assignments": rows,
	})
}

// Publish 发布排班，同月此前发布的排班退回草稿
func (h *PlansHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.store.Publish(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	logger.WithContext(r.Context()).Info().Str("plan_id", id.String()).Msg("排班已发布")
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": repository.StatusPublished})
}

// Delete 删除排班
func (h *PlansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	logger.WithContext(r.Context()).Info().Str("plan_id", id.String()).Msg("排班已删除")
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.InvalidInput("id", "不是有效的UUID: "+raw)
	}
	return id, nil
}

func parseListFilter(r *http.Request) (repository.ListFilter, error) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter()
	ve := &errors.ValidationErrors{}

	intParam := func(name string, dst *int, min, max int) {
		raw := q.Get(name)
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < min || v > max {
			ve.Add(name, "取值无效: "+raw)
			return
		}
		*dst = v
	}
	intParam("year", &filter.Year, 1, 9999)
	intParam("month", &filter.Month, 1, 12)
	intParam("offset", &filter.Offset, 0, 1<<31-1)
	intParam("limit", &filter.Limit, 1, 100)

	if s := q.Get("status"); s != "" {
		if s != repository.StatusDraft && s != repository.StatusPublished {
			ve.Add("status", "取值无效: "+s)
		}
		filter.Status = s
	}
	filter.Source = q.Get("source")
	if v := q.Get("order_by"); v != "" {
		filter.OrderBy = v
	}
	if v := q.Get("order_dir"); v != "" {
		filter.OrderDir = v
	}

	if ve.HasErrors() {
		return filter, ve.ToAppError()
	}
	return filter, nil
}
