package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

func (c *SqliteConfig) ToMap() map[string]interface{} {
	return map[string]interface{}{"path": c.Path}
}

// NewSqliteConnector returns the default history backend.
func NewSqliteConnector() Connector {
	return &SqliteStore{}
}

type SqliteStore struct {
	Path string
	db   *sql.DB
}

func (s *SqliteStore) Load(config map[string]interface{}) error {
	if path, ok := config["path"].(string); ok && path != "" {
		s.Path = path
	}
	return nil
}

func (s *SqliteStore) Connect() (*sql.DB, error) {
	if s.Path == "" {
		return nil, errors.New("sqlite store: path not configured")
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_fk=1", s.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s.db = db
	return db, nil
}

func (s *SqliteStore) Ensure(th TableNames) error {
	_, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		output_path TEXT NOT NULL,
		image_bytes INTEGER NOT NULL,
		image_sha256 TEXT NOT NULL,
		failed BOOLEAN NOT NULL DEFAULT FALSE,
		response_body TEXT NULL,
		ran_at TEXT NOT NULL
	)`, th.runs()))
	return err
}

func (s *SqliteStore) RecordRun(th TableNames, r Run) error {
	_, err := s.db.Exec(
		fmt.Sprintf(`INSERT INTO %s(job, status_code, output_path, image_bytes, image_sha256, failed, response_body, ran_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`, th.runs()),
		r.Job, r.StatusCode, r.OutputPath, r.ImageBytes, r.ImageSHA256, r.Failed, r.ResponseBody, r.RanAt,
	)
	return err
}

func (s *SqliteStore) ListRuns(th TableNames) ([]Run, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT id, job, status_code, output_path, image_bytes, image_sha256, failed, response_body, ran_at FROM %s ORDER BY id ASC`, th.runs()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Job, &r.StatusCode, &r.OutputPath, &r.ImageBytes, &r.ImageSHA256, &r.Failed, &r.ResponseBody, &r.RanAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SqliteStore) LatestRun(th TableNames) (*Run, error) {
	row := s.db.QueryRow(fmt.Sprintf(`SELECT id, job, status_code, output_path, image_bytes, image_sha256, failed, response_body, ran_at FROM %s ORDER BY id DESC LIMIT 1`, th.runs()))
	var r Run
	err := row.Scan(&r.ID, &r.Job, &r.StatusCode, &r.OutputPath, &r.ImageBytes, &r.ImageSHA256, &r.Failed, &r.ResponseBody, &r.RanAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SqliteStore) CountRuns(th TableNames) (int, error) {
	row := s.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, th.runs()))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
