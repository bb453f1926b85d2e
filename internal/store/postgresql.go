package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p *PostgresConfig) ToMap() map[string]interface{} {
	// Prefer explicit DSN; otherwise build from components when host is provided.
	dsn := strings.TrimSpace(p.DSN)
	if dsn == "" && strings.TrimSpace(p.Host) != "" {
		port := p.Port
		if port == 0 {
			port = 5432
		}
		ssl := strings.TrimSpace(p.SSLMode)
		if ssl == "" {
			ssl = "disable"
		}
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			strings.TrimSpace(p.User), strings.TrimSpace(p.Password),
			strings.TrimSpace(p.Host), port, strings.TrimSpace(p.DBName), ssl,
		)
	}
	return map[string]interface{}{"dsn": dsn}
}

// NewPostgresConnector returns a history backend on PostgreSQL via pgx stdlib.
func NewPostgresConnector() Connector {
	return &PostgresStore{}
}

type PostgresStore struct {
	DSN string
	db  *sql.DB
}

func (p *PostgresStore) Load(config map[string]interface{}) error {
	if dsn, ok := config["dsn"].(string); ok && dsn != "" {
		p.DSN = dsn
	}
	return nil
}

func (p *PostgresStore) Connect() (*sql.DB, error) {
	if p.DSN == "" {
		return nil, errors.New("postgresql store: dsn not configured")
	}
	db, err := sql.Open("pgx", p.DSN)
	if err != nil {
		return nil, err
	}
	p.db = db
	return db, nil
}

func (p *PostgresStore) Ensure(th TableNames) error {
	_, err := p.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id SERIAL PRIMARY KEY,
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

func (p *PostgresStore) RecordRun(th TableNames, r Run) error {
	_, err := p.db.Exec(
		fmt.Sprintf(`INSERT INTO %s(job, status_code, output_path, image_bytes, image_sha256, failed, response_body, ran_at) VALUES($1, $2, $3, $4, $5, $6, $7, $8)`, th.runs()),
		r.Job, r.StatusCode, r.OutputPath, r.ImageBytes, r.ImageSHA256, r.Failed, r.ResponseBody, r.RanAt,
	)
	return err
}

func (p *PostgresStore) ListRuns(th TableNames) ([]Run, error) {
	rows, err := p.db.Query(fmt.Sprintf(`SELECT id, job, status_code, output_path, image_bytes, image_sha256, failed, response_body, ran_at FROM %s ORDER BY id ASC`, th.runs()))
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

func (p *PostgresStore) LatestRun(th TableNames) (*Run, error) {
	row := p.db.QueryRow(fmt.Sprintf(`SELECT id, job, status_code, output_path, image_bytes, image_sha256, failed, response_body, ran_at FROM %s ORDER BY id DESC LIMIT 1`, th.runs()))
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

func (p *PostgresStore) CountRuns(th TableNames) (int, error) {
	row := p.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, th.runs()))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *PostgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
