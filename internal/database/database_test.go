package database

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/paiban/visitplan/internal/config"
)

func TestDriverName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "postgres", false},
		{"postgres", "postgres", false},
		{"pgx", "pgx", false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := DriverName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("DriverName(%q) 错误 = %v, 期望错误 %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("DriverName(%q) = %q, 期望 %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateQuery(t *testing.T) {
	short := "SELECT 1"
	if truncateQuery(short) != short {
		t.Error("短查询不应截断")
	}
	long := strings.Repeat("x", 250)
	got := truncateQuery(long)
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("长查询截断结果长度 %d", len(got))
	}
}

func TestDB_HealthAndQuery(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("创建 sqlmock 失败: %v", err)
	}
	db := Wrap(sqlDB, &config.DatabaseConfig{Driver: "postgres"})

	mock.ExpectPing()
	if err := db.Health(context.Background()); err != nil {
		t.Fatalf("健康检查失败: %v", err)
	}

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT 1").Scan(&n); err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if n != 1 {
		t.Errorf("期望 1，实际 %d", n)
	}

	mock.ExpectClose()
	if err := db.Close(); err != nil {
		t.Fatalf("关闭失败: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("存在未满足的期望: %v", err)
	}
}
