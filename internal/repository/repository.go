// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ListFilter 列表查询过滤器
type ListFilter struct {
	Year     int    `json:"year,omitempty"`
	Month    int    `json:"month,omitempty"`
	Status   string `json:"status,omitempty"`
	Source   string `json:"source,omitempty"`
	Offset   int    `json:"offset"`
	Limit    int    `json:"limit"`
	OrderBy  string `json:"order_by,omitempty"`
	OrderDir string `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Offset:   0,
		Limit:    20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// WithPeriod 设置年月
func (f ListFilter) WithPeriod(year, month int) ListFilter {
	f.Year = year
	f.Month = month
	return f
}

// 允许排序的列
var orderColumns = map[string]bool{
	"created_at":  true,
	"year":        true,
	"month":       true,
	"alert_count": true,
}

// where 生成 WHERE 子句和参数，返回下一个占位符序号
func (f ListFilter) where() (string, []interface{}, int) {
	var conditions []string
	var args []interface{}
	argNum := 1

	add := func(column string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}
	if f.Year > 0 {
		add("year", f.Year)
	}
	if f.Month > 0 {
		add("month", f.Month)
	}
	if f.Status != "" {
		add("status", f.Status)
	}
	if f.Source != "" {
		add("source", f.Source)
	}

	if len(conditions) == 0 {
		return "", args, argNum
	}
	return "WHERE " + strings.Join(conditions, " AND "), args, argNum
}

// order 生成 ORDER BY 子句，非法列名回退到 created_at
func (f ListFilter) order() string {
	col := f.OrderBy
	if !orderColumns[col] {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.OrderDir, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s", col, dir)
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Transactor 支持事务的数据库
type Transactor interface {
	DB
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
