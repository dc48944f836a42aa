// Package repository 提供普查与通勤时长的只读数据访问层
package repository

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // 注册 postgres 方言
)

// 表名
const (
	TableCensus            = "census"
	TableProviderDurations = "provider_facility_durations"
	TableFacilityDurations = "facility_facility_durations"
)

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// dialect 所有仓储共用的 SQL 方言
func dialect() goqu.DialectWrapper {
	return goqu.Dialect("postgres")
}

// queryAll 执行查询并逐行回调
func queryAll(ctx context.Context, db DB, query string, args []interface{}, fn func(Scanner) error) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
