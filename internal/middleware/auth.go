// Package middleware 提供HTTP中间件
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/paiban/mediatheque/internal/security"
	"github.com/paiban/mediatheque/pkg/errors"
	"github.com/paiban/mediatheque/pkg/logger"
)

// AuthConfig 认证配置
type AuthConfig struct {
	APIKeyManager *security.APIKeyManager
	RateLimiter   *security.RateLimiter
	SkipPaths     []string // 跳过认证的路径前缀
}

// AuthMiddleware 认证中间件
// 未登记任何密钥时不做认证，只按客户端地址限流
func AuthMiddleware(config *AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if config.APIKeyManager == nil || config.APIKeyManager.Len() == 0 {
				if !allow(config.RateLimiter, clientAddr(r)) {
					writeError(w, errors.New(errors.CodeRateLimited, "请求频率超限"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			raw := security.ExtractAPIKey(r)
			if raw == "" {
				writeError(w, errors.New(errors.CodeUnauthorized, "API密钥未提供"))
				return
			}

			key, err := config.APIKeyManager.Validate(raw)
			if err != nil {
				logger.WithContext(r.Context()).Warn().
					Err(err).
					Str("remote_addr", r.RemoteAddr).
					Msg("API密钥验证失败")
				writeError(w, errors.Wrap(err, errors.CodeUnauthorized, "无效的API密钥"))
				return
			}

			if !allow(config.RateLimiter, key.ID) {
				writeError(w, errors.New(errors.CodeRateLimited, "请求频率超限"))
				return
			}

			ctx := logger.ContextWithClient(r.Context(), key.Name)
			ctx = security.ContextWithKey(ctx, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope 权限范围检查中间件
// 请求未经认证（认证关闭）时放行
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := security.KeyFromContext(r.Context())
			if ok && !key.HasScope(scope) {
				writeError(w, errors.New(errors.CodeForbidden, "权限不足").WithField("scope", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func allow(rl *security.RateLimiter, key string) bool {
	return rl == nil || rl.Allow(key)
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if i := strings.LastIndex(r.RemoteAddr, ":"); i > 0 {
		return r.RemoteAddr[:i]
	}
	return r.RemoteAddr
}

// writeError 与 handler 包保持相同的错误响应格式
func writeError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	if err.Code == errors.CodeRateLimited {
		w.Header().Set("Retry-After", "60")
	}
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"fields":  err.Fields,
	})
}
