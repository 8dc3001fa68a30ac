package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/iabetor/pispeak/internal/logger"
	_ "modernc.org/sqlite"
)

// 播报记录的状态取值。
const (
	StatusSuccess         = "success"
	StatusEngineFailure   = "engine_failure"
	StatusPlaybackFailure = "playback_failure"
)

// timeLayout 固定宽度，保证按字符串排序即按时间排序。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry 是一次播报尝试的记录。
type Entry struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Volume     float64   `json:"volume"`
	Engine     string    `json:"engine"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	Samples    int       `json:"samples"`
	Clipped    int       `json:"clipped"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store 使用 SQLite 持久化播报历史。
type Store struct {
	db   *sql.DB
	path string
}

// Open 打开或创建历史数据库。
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// 设置 WAL 模式（并发请求同时写入）
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 busy_timeout 失败: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Infof("[history] 数据库已打开: %s", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS speak_history (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			volume REAL NOT NULL,
			engine TEXT NOT NULL,
			status TEXT NOT NULL,
			detail TEXT DEFAULT '',
			samples INTEGER DEFAULT 0,
			clipped INTEGER DEFAULT 0,
			duration_ms INTEGER DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_speak_history_created_at ON speak_history(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}
	return nil
}

// Path 返回数据库文件路径。
func (s *Store) Path() string { return s.path }

// Record 写入一条记录。ID 和 CreatedAt 为空时自动生成。
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO speak_history (id, text, volume, engine, status, detail, samples, clipped, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Text, e.Volume, e.Engine, e.Status, e.Detail, e.Samples, e.Clipped, e.DurationMs,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("写入播报记录失败: %w", err)
	}
	return nil
}

// Recent 按时间倒序返回最近的 limit 条记录。
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, volume, engine, status, detail, samples, clipped, duration_ms, created_at
		 FROM speak_history ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询播报记录失败: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Text, &e.Volume, &e.Engine, &e.Status, &e.Detail,
			&e.Samples, &e.Clipped, &e.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("读取播报记录失败: %w", err)
		}
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
