// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/paiban/mediatheque/internal/security"
	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/logger"
)

// Guard 按权限范围包装处理器
type Guard func(scope string) func(http.Handler) http.Handler

// API 全部HTTP处理器
type API struct {
	Planning *PlanningHandler
	Plans    *PlansHandler // 未启用数据库时为 nil
}

// Register 注册路由
func (a *API) Register(mux *http.ServeMux, guard Guard) {
	if guard == nil {
		guard = func(string) func(http.Handler) http.Handler {
			return func(h http.Handler) http.Handler { return h }
		}
	}
	route := func(pattern, scope string, fn http.HandlerFunc) {
		mux.Handle(pattern, guard(scope)(fn))
	}

	route("POST /api/v1/plan/compute", security.ScopePlan, a.Planning.Compute)
	route("POST /api/v1/plan/workbook", security.ScopePlan, a.Planning.Workbook)
	route("POST /api/v1/plan/validate", security.ScopeRead, a.Planning.Validate)
	route("POST /api/v1/stats/workload", security.ScopeRead, a.Planning.Workload)
	route("GET /api/v1/rules", security.ScopeRead, a.Planning.Rules)

	if a.Plans == nil {
		return
	}
	route("GET /api/v1/plans", security.ScopeRead, a.Plans.List)
	route("GET /api/v1/plans/{id}", security.ScopeRead, a.Plans.Get)
	route("GET /api/v1/plans/{id}/alerts", security.ScopeRead, a.Plans.Alerts)
	route("GET /api/v1/plans/{id}/agents/{agent}", security.ScopeRead, a.Plans.Agent)
	route("POST /api/v1/plans/{id}/publish", security.ScopeAdmin, a.Plans.Publish)
	route("DELETE /api/v1/plans/{id}", security.ScopeAdmin, a.Plans.Delete)
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应，非 AppError 视为内部错误
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	event := logger.WithContext(r.Context()).Warn()
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		event = logger.WithContext(r.Context()).Error()
	}
	event.Err(err).Str("code", string(appErr.Code)).Msg("请求失败")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
		"fields":  appErr.Fields,
	})
}

func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.New(errors.CodeTimeout, "排班计算超时")
	case stderrors.Is(err, context.Canceled):
		return errors.New(errors.CodeInternal, "排班请求已取消")
	}
	return errors.Wrap(err, errors.CodeInternal, "服务器内部错误")
}

// decodeJSON 解析请求体，body 超出 limit 字节时报错
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) error {
	body := io.Reader(r.Body)
	if limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.New(errors.CodeInvalidInput, "请求体过大")
		}
		return errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败")
	}
	return nil
}
