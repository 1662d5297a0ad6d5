// Package database 把数据库配置装配成可用的连接池。
// 楼栋、平面图、房间清单与入住/合同引用都在同一个 PostgreSQL 库里。
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"estate-data/internal/config"

	_ "github.com/lib/pq"
)

// 连接池兜底参数。房间同步走短事务，连接定期回收
const (
	defaultMaxConns = 20
	defaultMaxIdle  = 5
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// NewPostgresDB 按配置建立 PostgreSQL 连接池并带超时探活。
// 启动路径靠这里的错误决定是否回退到内存清单，
// 探活失败时连池一起关掉，不留半开的池。
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdle
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Close 关闭连接池（nil 安全）
func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
