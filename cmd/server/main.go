// Médiathèque 服务台排班服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/mediatheque/internal/config"
	"github.com/paiban/mediatheque/internal/database"
	"github.com/paiban/mediatheque/internal/handler"
	"github.com/paiban/mediatheque/internal/metrics"
	"github.com/paiban/mediatheque/internal/middleware"
	"github.com/paiban/mediatheque/internal/repository"
	"github.com/paiban/mediatheque/internal/security"
	"github.com/paiban/mediatheque/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})

	if cfg.IsDevelopment() {
		fmt.Printf("Médiathèque 服务台排班 v%s\n", Version)
		fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
		fmt.Println()
	}

	// 可选的排班存储
	var store handler.PlanStore
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("数据库连接失败")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("数据库迁移失败")
		}
		store = repository.NewPlanRepository(db)
	}

	api := &handler.API{
		Planning: handler.NewPlanningHandler(handler.PlanningOptions{
			Workers:        cfg.Planning.Workers,
			Timeout:        cfg.Planning.Timeout,
			MaxUploadBytes: cfg.API.MaxUploadMB << 20,
			Rules:          cfg.Planning.Rules,
			Store:          store,
		}),
	}
	if store != nil {
		api.Plans = handler.NewPlansHandler(store)
	}

	// API 密钥
	keys := security.NewAPIKeyManager()
	for i, raw := range cfg.API.Keys {
		keys.Register(raw, fmt.Sprintf("key-%d", i+1))
	}
	if keys.Len() == 0 {
		event := logger.Warn()
		if cfg.IsProduction() {
			event = logger.Error()
		}
		event.Msg("未配置 API_KEYS，接口不做认证")
	}

	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "service": cfg.App.Name, "database": "disabled"}
		code := http.StatusOK
		if db != nil {
			status["database"] = "ok"
			if err := db.Health(r.Context()); err != nil {
				status["status"], status["database"] = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	mux.HandleFunc("GET /api/v1/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"message": "Médiathèque 服务台排班 API v1",
			"endpoints": {
				"plan": {
					"compute": "POST /api/v1/plan/compute",
					"workbook": "POST /api/v1/plan/workbook",
					"validate": "POST /api/v1/plan/validate"
				},
				"stats": {
					"workload": "POST /api/v1/stats/workload"
				},
				"rules": "GET /api/v1/rules",
				"plans": {
					"list": "GET /api/v1/plans",
					"get": "GET /api/v1/plans/{id}",
					"alerts": "GET /api/v1/plans/{id}/alerts",
					"agent": "GET /api/v1/plans/{id}/agents/{agent}",
					"publish": "POST /api/v1/plans/{id}/publish",
					"delete": "DELETE /api/v1/plans/{id}"
				}
			}
		}`))
	})

	// 业务 API
	api.Register(mux, func(scope string) func(http.Handler) http.Handler {
		return middleware.RequireScope(scope)
	})

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// 执行顺序：requestID -> recovery -> logging -> cors -> securityHeaders -> auth -> handler
	h := middleware.Chain(mux,
		middleware.RequestIDMiddleware,
		middleware.RecoveryMiddleware,
		middleware.LoggingMiddleware,
		middleware.CORSMiddleware,
		middleware.SecurityHeadersMiddleware,
		middleware.AuthMiddleware(&middleware.AuthConfig{
			APIKeyManager: keys,
			RateLimiter:   security.NewRateLimiter(cfg.API.RateLimit, time.Minute),
			SkipPaths:     []string{"/health", "/version", cfg.Metrics.Path},
		}),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      h,
		ReadTimeout:  cfg.API.Timeout,
		WriteTimeout: cfg.API.Timeout + cfg.Planning.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("database", store != nil).
			Int("workers", cfg.Planning.Workers).
			Str("api_docs", fmt.Sprintf("http://localhost:%d/api/v1/", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}
