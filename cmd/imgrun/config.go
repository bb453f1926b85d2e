package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/imgrun/imgrun"
	"github.com/imgrun/imgrun/internal/common"
	"github.com/spf13/viper"
)

type EnvConfig struct {
	Name         string `mapstructure:"name"`
	Value        string `mapstructure:"value"`
	ValueFromEnv string `mapstructure:"valueFromEnv"`
}

type AuthConfig struct {
	// TokenEnv names the environment variable holding the bearer credential.
	TokenEnv string `mapstructure:"token_env"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// Format: text (default), json, color
	Format      string `mapstructure:"format"`
	MaskSecrets *bool  `mapstructure:"mask_secrets"`
}

type StoreConfig struct {
	Driver           string                 `mapstructure:"driver"`
	SaveResponseBody bool                   `mapstructure:"save_response_body"`
	TableNames       map[string]string      `mapstructure:"table_names"`
	Sqlite           map[string]interface{} `mapstructure:"sqlite"`
	Postgresql       map[string]interface{} `mapstructure:"postgresql"`
}

type ClientConfig struct {
	Insecure      bool   `mapstructure:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version"`
	MaxTLSVersion string `mapstructure:"max_tls_version"`
}

type WaitConfig struct {
	URL      string `mapstructure:"url"`
	Method   string `mapstructure:"method"`
	Status   int    `mapstructure:"status"`
	Timeout  string `mapstructure:"timeout"`
	Interval string `mapstructure:"interval"`
}

type ConfigDoc struct {
	JobsDir string        `mapstructure:"jobs_dir"`
	Env     []EnvConfig   `mapstructure:"env"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	Store   StoreConfig   `mapstructure:"store"`
	Client  ClientConfig  `mapstructure:"client"`
	Wait    WaitConfig    `mapstructure:"wait"`
}

// Load reads and decodes the YAML config document at path.
func (d *ConfigDoc) Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(d); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// GetEnv builds the global env from the config env entries. valueFromEnv
// entries read the process environment; an unset variable yields an empty
// value rather than an error.
func (d *ConfigDoc) GetEnv(verbose bool) *imgrun.Env {
	e := imgrun.NewEnv()
	logger := common.GetLogger().WithComponent("config")
	for _, ec := range d.Env {
		name := strings.TrimSpace(ec.Name)
		if name == "" {
			continue
		}
		val := ec.Value
		if src := strings.TrimSpace(ec.ValueFromEnv); src != "" {
			val = os.Getenv(src)
			if val == "" && verbose {
				logger.Debug("config env variable empty", "name", name, "from", src)
			}
		}
		e.Global[name] = val
	}
	return e
}

// ToStoreOptions converts the store section into driver options for the
// library. Returns nil for the default sqlite-under-jobs-dir behavior.
func (d *ConfigDoc) ToStoreOptions() (*imgrun.StoreConfig, error) {
	driver := strings.TrimSpace(strings.ToLower(d.Store.Driver))
	if driver == "" && len(d.Store.TableNames) == 0 && len(d.Store.Sqlite) == 0 {
		return nil, nil
	}
	cfg := &imgrun.StoreConfig{Driver: driver}
	if tn, ok := d.Store.TableNames["generation_runs"]; ok {
		cfg.TableNames.GenerationRuns = tn
	}
	switch driver {
	case imgrun.DriverPostgresql:
		var pc imgrun.PostgresConfig
		if err := mapstructure.Decode(d.Store.Postgresql, &pc); err != nil {
			return nil, fmt.Errorf("decode postgresql store config: %w", err)
		}
		cfg.DriverConfig = &pc
	case "", imgrun.DriverSqlite:
		cfg.Driver = imgrun.DriverSqlite
		if len(d.Store.Sqlite) > 0 {
			var sc imgrun.SqliteConfig
			if err := mapstructure.Decode(d.Store.Sqlite, &sc); err != nil {
				return nil, fmt.Errorf("decode sqlite store config: %w", err)
			}
			cfg.DriverConfig = &sc
		}
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
	return cfg, nil
}

// ApplyLogging installs the configured default logger and masking policy.
func (d *ConfigDoc) ApplyLogging(verbose bool) {
	level := common.ParseLogLevel(strings.TrimSpace(d.Logging.Level))
	if verbose && level < common.LogLevelDebug {
		level = common.LogLevelDebug
	}
	switch strings.TrimSpace(strings.ToLower(d.Logging.Format)) {
	case "json":
		common.SetDefaultLogger(common.NewJSONLogger(level))
	case "color":
		common.SetDefaultLogger(common.NewColorLogger(level))
	default:
		common.SetDefaultLogger(common.NewLogger(level))
	}
	if d.Logging.MaskSecrets != nil {
		common.EnableMasking(*d.Logging.MaskSecrets)
	}
}
