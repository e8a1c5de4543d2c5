// Package database 提供数据库连接和管理
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paiban/mediatheque/internal/config"
	"github.com/paiban/mediatheque/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

// DB 数据库连接封装
type DB struct {
	*sql.DB
	cfg       *config.DatabaseConfig
	slowQuery time.Duration
}

// New 创建新的数据库连接
func New(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	// 配置连接池
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("数据库连接成功")

	return &DB{DB: db, cfg: cfg, slowQuery: 100 * time.Millisecond}, nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	if db.DB != nil {
		logger.Info().Msg("关闭数据库连接")
		return db.DB.Close()
	}
	return nil
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Transaction 执行事务
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}

	return nil
}

// Schema 排班持久化所需的表
const Schema = `
CREATE TABLE IF NOT EXISTS plans (
	id           UUID PRIMARY KEY,
	year         INTEGER NOT NULL,
	month        INTEGER NOT NULL,
	status       TEXT NOT NULL DEFAULT 'draft',
	source       TEXT NOT NULL,
	weeks        INTEGER NOT NULL,
	open_slots   INTEGER NOT NULL,
	alert_count  INTEGER NOT NULL,
	payload      JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS plans_period_idx ON plans (year, month);

CREATE TABLE IF NOT EXISTS plan_assignments (
	plan_id    UUID NOT NULL REFERENCES plans (id),
	week_index INTEGER NOT NULL,
	date       TEXT NOT NULL,
	day        TEXT NOT NULL,
	slot       TEXT NOT NULL,
	section    TEXT NOT NULL,
	agents     TEXT[] NOT NULL,
	PRIMARY KEY (plan_id, date, slot, section)
);
CREATE INDEX IF NOT EXISTS plan_assignments_agents_idx ON plan_assignments USING GIN (agents);

CREATE TABLE IF NOT EXISTS plan_alerts (
	plan_id    UUID NOT NULL REFERENCES plans (id),
	week_index INTEGER NOT NULL,
	date       TEXT NOT NULL DEFAULT '',
	slot       TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL
);
`

// Migrate 创建缺失的表
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("初始化数据表失败: %w", err)
	}
	logger.Info().Msg("数据表已就绪")
	return nil
}

// Stats 返回数据库统计信息
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext 执行SQL语句
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer db.observe(query, time.Now())
	return db.DB.ExecContext(ctx, query, args...)
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer db.observe(query, time.Now())
	return db.DB.QueryContext(ctx, query, args...)
}

// QueryRowContext 执行单行查询
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer db.observe(query, time.Now())
	return db.DB.QueryRowContext(ctx, query, args...)
}

// observe 超过阈值的查询记录警告
func (db *DB) observe(query string, start time.Time) {
	if d := time.Since(start); d > db.slowQuery {
		logger.Warn().
			Str("query", truncateQuery(query)).
			Dur("duration", d).
			Msg("慢SQL查询")
	}
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
