package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/mediatheque/internal/metrics"
	"github.com/paiban/mediatheque/internal/repository"
	"github.com/paiban/mediatheque/internal/rules"
	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/logger"
	"github.com/paiban/mediatheque/pkg/model"
	"github.com/paiban/mediatheque/pkg/scheduler/solver"
	"github.com/paiban/mediatheque/pkg/stats"
	"github.com/paiban/mediatheque/pkg/validator"
	"github.com/paiban/mediatheque/pkg/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PlanStore 排班结果存储
type PlanStore interface {
	Save(ctx context.Context, plan *model.Plan, source string) (*repository.PlanRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.PlanRecord, error)
	Load(ctx context.Context, id uuid.UUID) (*model.Plan, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*repository.PlanRecord, int, error)
	Publish(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	AssignmentsByAgent(ctx context.Context, planID uuid.UUID, agent, from, to string) ([]repository.AssignmentRow, error)
	Alerts(ctx context.Context, planID uuid.UUID) ([]repository.AlertRow, error)
}

// PlanningOptions 排班处理器配置
type PlanningOptions struct {
	Workers        int
	Timeout        time.Duration
	MaxUploadBytes int64
	Rules          model.Rules
	Store          PlanStore // 可为 nil
}

// PlanningHandler 排班处理器
type PlanningHandler struct {
	planner   *solver.Planner
	defaults  model.Rules
	timeout   time.Duration
	maxUpload int64
	store     PlanStore
}

// NewPlanningHandler 创建排班处理器
func NewPlanningHandler(opts PlanningOptions) *PlanningHandler {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	return &PlanningHandler{
		planner:   solver.NewDefaultPlanner(opts.Workers),
		defaults:  opts.Rules,
		timeout:   opts.Timeout,
		maxUpload: opts.MaxUploadBytes,
		store:     opts.Store,
	}
}

// ComputeResponse 排班计算响应
type ComputeResponse struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message,omitempty"`
	Plan       *model.Plan            `json:"plan"`
	Statistics []*solver.Statistics   `json:"statistics"`
	Workload   []*stats.WeekWorkload  `json:"workload"`
	Fairness   *stats.FairnessMetrics `json:"fairness"`
	Coverage   *stats.CoverageMetrics `json:"coverage"`
	Conflicts  []validator.Conflict   `json:"conflicts,omitempty"`
	Record     *repository.PlanRecord `json:"record,omitempty"` // ?save=true 时返回
	Duration   string                 `json:"duration"`
}

// Compute 根据JSON输入生成整月排班
func (h *PlanningHandler) Compute(w http.ResponseWriter, r *http.Request) {
	in := &model.Input{Rules: cloneRules(h.defaults)}
	if err := decodeJSON(w, r, h.maxUpload, in); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.run(r.Context(), in, "json")
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := h.summarize(in, res)
	if wantSave(r) {
		rec, err := h.save(r.Context(), res.Plan, "json")
		if err != nil {
			respondError(w, r, err)
			return
		}
		resp.Record = rec
	}
	respondJSON(w, http.StatusOK, resp)
}

// Workbook 上传工作簿，返回追加了周表的工作簿
// 支持 multipart 表单字段 "file" 或直接以请求体上传
func (h *PlanningHandler) Workbook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	src, err := h.upload(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer src.Close()

	in, reader, err := h.readWorkbook(src)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer reader.Close()

	res, err := h.run(r.Context(), in, "workbook")
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.summarize(in, res)

	writer, err := workbook.NewWriter(in, reader.File())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := writer.WritePlan(res.Plan); err != nil {
		respondError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		respondError(w, r, errors.Wrap(err, errors.CodeInternal, "生成工作簿失败"))
		return
	}

	if wantSave(r) {
		rec, err := h.save(r.Context(), res.Plan, "workbook")
		if err != nil {
			respondError(w, r, err)
			return
		}
		w.Header().Set("X-Plan-ID", rec.ID.String())
	}

	filename := fmt.Sprintf("planning_%s_%d.xlsx", strings.ToLower(workbook.MonthLabel(in.Month)), in.Year)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("X-Plan-Alerts", strconv.Itoa(res.Plan.AlertCount()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// PlanRequest 针对已有排班结果的请求
type PlanRequest struct {
	Input *model.Input `json:"input"`
	Plan  *model.Plan  `json:"plan"`
}

// ValidateResponse 验证响应
type ValidateResponse struct {
	IsValid   bool                           `json:"is_valid"`
	Conflicts []validator.Conflict           `json:"conflicts"`
	Summary   map[validator.ConflictType]int `json:"summary"`
}

// Validate 复核一份排班结果
func (h *PlanningHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodePlanRequest(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	conflicts := validator.NewConflictDetector(nil).DetectPlan(req.Input, req.Plan)
	if conflicts == nil {
		conflicts = []validator.Conflict{}
	}
	respondJSON(w, http.StatusOK, ValidateResponse{
		IsValid:   !validator.HasErrors(conflicts),
		Conflicts: conflicts,
		Summary:   validator.Summarize(conflicts),
	})
}

// WorkloadResponse 工作量响应
type WorkloadResponse struct {
	Weeks    []*stats.WeekWorkload  `json:"weeks"`
	Fairness *stats.FairnessMetrics `json:"fairness"`
	Coverage *stats.CoverageMetrics `json:"coverage"`
}

// Workload 统计一份排班结果的工作量、公平性和覆盖率
func (h *PlanningHandler) Workload(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodePlanRequest(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	weeks := stats.NewWorkloadAnalyzer().AnalyzePlan(req.Input, req.Plan)
	respondJSON(w, http.StatusOK, WorkloadResponse{
		Weeks:    weeks,
		Fairness: stats.NewFairnessAnalyzer().Analyze(weeks),
		Coverage: stats.NewCoverageAnalyzer().WithAgents(req.Input.Agents).Analyze(req.Plan),
	})
}

// RulesResponse 规则响应
type RulesResponse struct {
	Rules     model.Rules        `json:"rules"`
	Catalogue []rules.Definition `json:"catalogue"`
}

// Rules 返回当前生效的默认规则及规则目录
func (h *PlanningHandler) Rules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, RulesResponse{
		Rules:     h.defaults,
		Catalogue: rules.Catalogue(h.defaults),
	})
}

// run 带超时执行一次月度排班并记录指标
func (h *PlanningHandler) run(ctx context.Context, in *model.Input, source string) (*solver.PlanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	res, err := h.planner.Plan(ctx, in)
	metrics.RecordPlanGeneration(source, res, err, time.Since(start))
	return res, err
}

// summarize 计算统计并更新质量指标
func (h *PlanningHandler) summarize(in *model.Input, res *solver.PlanResult) ComputeResponse {
	weeks := stats.NewWorkloadAnalyzer().AnalyzePlan(in, res.Plan)
	fairness := stats.NewFairnessAnalyzer().Analyze(weeks)
	coverage := stats.NewCoverageAnalyzer().WithAgents(in.Agents).Analyze(res.Plan)
	metrics.SetFairnessGini(fairness.WorkloadGini)
	metrics.SetCoverageRate(coverage.OverallCoverage)

	resp := ComputeResponse{
		Success:    true,
		Plan:       res.Plan,
		Statistics: res.Statistics,
		Workload:   weeks,
		Fairness:   fairness,
		Coverage:   coverage,
		Conflicts:  validator.NewConflictDetector(nil).DetectPlan(in, res.Plan),
		Duration:   res.Duration.String(),
	}
	if n := res.Plan.AlertCount(); n > 0 {
		resp.Message = fmt.Sprintf("排班已生成，存在%d条告警", n)
	}
	return resp
}

func (h *PlanningHandler) save(ctx context.Context, plan *model.Plan, source string) (*repository.PlanRecord, error) {
	if h.store == nil {
		return nil, errors.New(errors.CodeInvalidInput, "未启用排班存储")
	}
	return h.store.Save(ctx, plan, source)
}

// upload 取出上传的工作簿内容
func (h *PlanningHandler) upload(r *http.Request) (io.ReadCloser, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析上传文件失败")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "缺少上传文件字段 file")
	}
	return file, nil
}

// readWorkbook 读取工作簿并记录读取指标
func (h *PlanningHandler) readWorkbook(src io.Reader) (*model.Input, *workbook.Reader, error) {
	start := time.Now()
	reader, err := workbook.Open(src)
	if err != nil {
		metrics.RecordWorkbookRead(string(errors.GetCode(err)), time.Since(start))
		return nil, nil, err
	}
	in, err := reader.WithRules(cloneRules(h.defaults)).Read()
	if err != nil {
		metrics.RecordWorkbookRead(string(errors.GetCode(err)), time.Since(start))
		reader.Close()
		return nil, nil, err
	}
	metrics.RecordWorkbookRead("", time.Since(start))
	return in, reader, nil
}

func (h *PlanningHandler) decodePlanRequest(w http.ResponseWriter, r *http.Request) (*PlanRequest, error) {
	req := &PlanRequest{}
	if err := decodeJSON(w, r, h.maxUpload, req); err != nil {
		return nil, err
	}
	ve := &errors.ValidationErrors{}
	if req.Input == nil {
		ve.Add("input", "排班输入不能为空")
	}
	if req.Plan == nil {
		ve.Add("plan", "排班结果不能为空")
	}
	if req.Input != nil {
		for i, a := range req.Input.Agents {
			if a == nil {
				ve.Add("input.agents", fmt.Sprintf("第 %d 个人员为空", i+1))
			}
		}
	}
	if ve.HasErrors() {
		return nil, ve.ToAppError()
	}
	req.Input.Normalize()
	logger.WithContext(r.Context()).Debug().
		Int("weeks", len(req.Plan.Weeks)).
		Int("agents", len(req.Input.Agents)).
		Msg("复核排班结果")
	return req, nil
}

func wantSave(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("save"))
	return v
}

// cloneRules 复制规则，避免请求解码写入共享的默认值
func cloneRules(r model.Rules) model.Rules {
	out := r
	if r.ExceptionWindow != nil {
		window := *r.ExceptionWindow
		out.ExceptionWindow = &window
	}
	out.TemporaryDays = append([]model.Day(nil), r.TemporaryDays...)
	out.SaturdayColors = make(map[int]model.RotationColor, len(r.SaturdayColors))
	for k, v := range r.SaturdayColors {
		out.SaturdayColors[k] = v
	}
	return out
}
