package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Driver names accepted in store configuration.
const (
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

// DbFileName is the default filename for the generation history database.
const DbFileName = "imgrun.db"

// DefaultRunsTable is the table name used unless configured otherwise.
const DefaultRunsTable = "generation_runs"

// Run represents a single generation record.
// ResponseBody may be nil when body saving was disabled or the run succeeded.
type Run struct {
	ID           int
	Job          string
	StatusCode   int
	OutputPath   string
	ImageBytes   int
	ImageSHA256  string
	Failed       bool
	ResponseBody *string
	RanAt        string // RFC3339Nano UTC
}

// TableNames allows renaming the history table per deployment.
type TableNames struct {
	GenerationRuns string
}

func (t TableNames) runs() string {
	if strings.TrimSpace(t.GenerationRuns) == "" {
		return DefaultRunsTable
	}
	return t.GenerationRuns
}

// DriverConfig is implemented by per-driver configuration structs.
type DriverConfig interface {
	ToMap() map[string]interface{}
}

// Config selects and configures a store driver.
type Config struct {
	Driver       string `mapstructure:"driver"`
	TableNames   TableNames
	DriverConfig DriverConfig
}

// Connector abstracts the SQL backends holding run history.
type Connector interface {
	Connect() (*sql.DB, error)
	Load(config map[string]interface{}) error
	Ensure(th TableNames) error
	RecordRun(th TableNames, r Run) error
	ListRuns(th TableNames) ([]Run, error)
	LatestRun(th TableNames) (*Run, error)
	CountRuns(th TableNames) (int, error)
	Close() error
}

// Store persists generation run history behind a Connector.
type Store struct {
	connector Connector
	tables    TableNames
}

// Open builds a store from config. A nil config or empty driver opens the
// default sqlite database at dbPath.
func Open(dbPath string, cfg *Config) (*Store, error) {
	var c Connector
	tables := TableNames{}
	driver := ""
	var driverCfg map[string]interface{}
	if cfg != nil {
		driver = strings.TrimSpace(strings.ToLower(cfg.Driver))
		tables = cfg.TableNames
		if cfg.DriverConfig != nil {
			driverCfg = cfg.DriverConfig.ToMap()
		}
	}
	switch driver {
	case "", DriverSqlite:
		c = NewSqliteConnector()
		if driverCfg == nil {
			driverCfg = (&SqliteConfig{Path: dbPath}).ToMap()
		}
	case DriverPostgresql:
		c = NewPostgresConnector()
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	if err := c.Load(driverCfg); err != nil {
		return nil, err
	}
	if _, err := c.Connect(); err != nil {
		return nil, err
	}
	if err := c.Ensure(tables); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Store{connector: c, tables: tables}, nil
}

func (s *Store) Close() error {
	if s == nil || s.connector == nil {
		return nil
	}
	return s.connector.Close()
}

// RecordRun appends a run record; RanAt is stamped here when empty.
func (s *Store) RecordRun(r Run) error {
	if strings.TrimSpace(r.RanAt) == "" {
		r.RanAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return s.connector.RecordRun(s.tables, r)
}

// ListRuns returns run history ordered by id ascending.
func (s *Store) ListRuns() ([]Run, error) {
	return s.connector.ListRuns(s.tables)
}

// LatestRun returns the newest run, or nil when history is empty.
func (s *Store) LatestRun() (*Run, error) {
	return s.connector.LatestRun(s.tables)
}

// CountRuns returns the number of recorded runs.
func (s *Store) CountRuns() (int, error) {
	return s.connector.CountRuns(s.tables)
}
