package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// waitForPostgresDSN pings the DSN until it responds or timeout elapses (pgx stdlib).
func waitForPostgresDSN(dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			pingErr := db.Ping()
			_ = db.Close()
			if pingErr == nil {
				return nil
			}
			lastErr = pingErr
		} else {
			lastErr = err
		}
		time.Sleep(500 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for postgres")
	}
	return lastErr
}

// Integration test with PostgreSQL via testcontainers
func TestPostgresStore_RecordAndList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := tc.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "imgrun_test",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		),
	}
	pg, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		// Skip on CI envs that cannot run containers, rather than failing whole suite
		t.Skipf("skipping Postgres container test: %v", err)
		return
	}
	defer func() { _ = pg.Terminate(ctx) }()

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/imgrun_test?sslmode=disable", host, port.Port())

	if err := waitForPostgresDSN(dsn, 30*time.Second); err != nil {
		t.Fatalf("postgres not ready: %v", err)
	}

	cfg := &Config{Driver: DriverPostgresql, DriverConfig: &PostgresConfig{DSN: dsn}}
	st, err := Open("", cfg)
	if err != nil {
		t.Fatalf("open postgres store: %v", err)
	}
	defer func() { _ = st.Close() }()

	if err := st.RecordRun(Run{Job: "sunset", StatusCode: 200, OutputPath: "a.jpg", ImageBytes: 42, ImageSHA256: "deadbeef"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	body := "invalid api key"
	if err := st.RecordRun(Run{Job: "sunset", StatusCode: 403, Failed: true, ResponseBody: &body}); err != nil {
		t.Fatalf("record failed run: %v", err)
	}

	runs, err := st.ListRuns()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Job != "sunset" || runs[0].StatusCode != 200 {
		t.Fatalf("first run mismatch: %+v", runs[0])
	}
	latest, err := st.LatestRun()
	if err != nil || latest == nil || latest.StatusCode != 403 || !latest.Failed {
		t.Fatalf("latest mismatch: %+v err=%v", latest, err)
	}
}

func TestPostgresConfig_ToMapBuildsDSN(t *testing.T) {
	p := &PostgresConfig{Host: "db.local", User: "u", Password: "p", DBName: "imgrun"}
	m := p.ToMap()
	want := "postgres://u:p@db.local:5432/imgrun?sslmode=disable"
	if m["dsn"] != want {
		t.Fatalf("dsn: %v", m["dsn"])
	}

	explicit := &PostgresConfig{DSN: "postgres://x"}
	if explicit.ToMap()["dsn"] != "postgres://x" {
		t.Fatalf("explicit dsn should win")
	}
}
