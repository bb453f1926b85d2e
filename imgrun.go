// Package imgrun runs text-to-image generation jobs against remote inference
// APIs and saves the returned images to disk, recording each run in a local
// history store. Jobs are YAML files with a generate block describing the
// request, the expected response shape, and the output path.
package imgrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/imgrun/imgrun/internal/common"
	"github.com/imgrun/imgrun/internal/env"
	"github.com/imgrun/imgrun/internal/httpc"
	"github.com/imgrun/imgrun/internal/store"
	"github.com/imgrun/imgrun/internal/task"
)

// Re-export commonly used types for the public API.

// Env is the layered variable structure used by jobs.
type Env = env.Env

// NewEnv returns an initialized Env.
func NewEnv() *Env { return env.New() }

// Job is a single YAML-described generation.
type Job = task.Job

// Result is the outcome of a single generation dispatch.
type Result = task.Result

// Store persists generation run history.
type Store = store.Store

// StoreConfig selects and configures the history backend.
type StoreConfig = store.Config

// Run is one recorded history entry.
type Run = store.Run

// SqliteConfig configures the default sqlite backend.
type SqliteConfig = store.SqliteConfig

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig = store.PostgresConfig

// Store driver names.
const (
	DriverSqlite     = store.DriverSqlite
	DriverPostgresql = store.DriverPostgresql
)

// StoreDBFileName is the default sqlite filename for run history.
const StoreDBFileName = store.DbFileName

// NewHTTPClient builds a resty client honoring TLS options carried in ctx.
func NewHTTPClient(ctx context.Context) *resty.Client { return httpc.New(ctx) }

// WithTLSInsecure marks ctx so HTTP clients skip certificate verification.
func WithTLSInsecure(ctx context.Context, insecure bool) context.Context {
	return httpc.WithTLSInsecure(ctx, insecure)
}

// WithTLSMinVersion sets the minimum TLS version for HTTP clients built from ctx.
func WithTLSMinVersion(ctx context.Context, v string) context.Context {
	return httpc.WithTLSMinVersion(ctx, v)
}

// WithTLSMaxVersion sets the maximum TLS version for HTTP clients built from ctx.
func WithTLSMaxVersion(ctx context.Context, v string) context.Context {
	return httpc.WithTLSMaxVersion(ctx, v)
}

// OpenStoreFromOptions opens the run-history store. A nil config opens the
// default sqlite database under dir.
func OpenStoreFromOptions(dir string, cfg *StoreConfig) (*Store, error) {
	return store.Open(filepath.Join(dir, store.DbFileName), cfg)
}

// Generator runs generation jobs from a directory.
//
// Each job is dispatched exactly once; a rejected response is a terminal,
// handled outcome reported on Out and recorded as failed. Only transport and
// filesystem faults abort the run with an error.
type Generator struct {
	// Env carries global variables applied to every job.
	Env *Env
	// Dir is the directory holding *.yaml job files, run in filename order.
	Dir string
	// Out receives the one-line outcome per job. Defaults to os.Stdout.
	Out io.Writer
	// Store records run history when set. Optional.
	Store *Store
	// SaveResponseBody keeps the raw error body in the history record.
	SaveResponseBody bool
	// TokenEnv names the credential variable for jobs that do not set one.
	TokenEnv string
}

// RunJob dispatches a single job and reports/records its outcome.
func (g *Generator) RunJob(ctx context.Context, job *Job) (*Result, error) {
	logger := common.GetLogger().WithComponent("generator")

	gen := job.Generate
	gen.Env = g.layeredEnv(gen.Env)
	if gen.Request.TokenEnv == "" {
		gen.Request.TokenEnv = g.TokenEnv
	}

	res, err := gen.Execute(ctx)
	if err != nil {
		return nil, err
	}

	out := g.Out
	if out == nil {
		out = os.Stdout
	}
	if res.Saved {
		_, _ = fmt.Fprintf(out, "Image saved as %s\n", res.OutputPath)
	} else {
		_, _ = fmt.Fprintf(out, "Error: %d %s\n", res.StatusCode, res.ResponseBody)
	}

	if g.Store != nil {
		rec := Run{
			Job:         gen.Name,
			StatusCode:  res.StatusCode,
			OutputPath:  res.OutputPath,
			ImageBytes:  res.ImageBytes,
			ImageSHA256: res.ImageSHA256,
			Failed:      res.Failed,
		}
		if g.SaveResponseBody && res.ResponseBody != "" {
			body := res.ResponseBody
			rec.ResponseBody = &body
		}
		if err := g.Store.RecordRun(rec); err != nil {
			logger.Warn("failed to record run", "error", err, "job", gen.Name)
		}
	}
	return res, nil
}

// Run loads and dispatches all jobs under Dir in filename order.
// It stops at the first transport or filesystem fault; handled rejections do
// not stop the run.
func (g *Generator) Run(ctx context.Context) ([]*Result, error) {
	files, err := listJobFiles(g.Dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no job files found in %s", g.Dir)
	}

	logger := common.GetLogger().WithComponent("generator")
	results := make([]*Result, 0, len(files))
	for _, f := range files {
		var job Job
		if err := job.LoadFromFile(f); err != nil {
			return results, fmt.Errorf("load job %s: %w", f, err)
		}
		logger.Debug("running job", "file", f, "name", job.Generate.Name)
		res, err := g.RunJob(ctx, &job)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// layeredEnv merges the generator's global env under the job's local env.
func (g *Generator) layeredEnv(local *Env) *Env {
	e := env.New()
	if g.Env != nil {
		for k, v := range g.Env.Global {
			e.Global[k] = v
		}
		for k, v := range g.Env.Local {
			e.Global[k] = v
		}
	}
	if local != nil {
		for k, v := range local.Local {
			e.Local[k] = v
		}
	}
	return e
}

func listJobFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
