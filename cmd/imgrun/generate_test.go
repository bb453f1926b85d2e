package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/imgrun/imgrun"
	"github.com/spf13/viper"
)

func resetViper(t *testing.T, cfgPath string) {
	t.Helper()
	v := viper.GetViper()
	v.Set("config", cfgPath)
	v.Set("jobs", "")
	v.Set("v", false)
}

func TestGenerateCmd_SavesImageAndRecordsRun(t *testing.T) {
	imgData := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02, 0x03}
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(200)
		_, _ = w.Write(imgData)
	}))
	defer srv.Close()

	t.Setenv("GEN_TEST_KEY", "tok123")

	tdir := t.TempDir()
	jobsDir := filepath.Join(tdir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outPath := filepath.Join(tdir, "out", "sunset.jpg")
	writeFile(t, jobsDir, "001_sunset.yaml", fmt.Sprintf(`---
generate:
  name: sunset
  request:
    url: %s/v1/images/generations
    prompt: "a sunset over the sea"
  output: %s
`, srv.URL, outPath))

	cfgPath := writeFile(t, tdir, "config.yaml", fmt.Sprintf(`---
jobs_dir: %s
auth:
  token_env: GEN_TEST_KEY
`, jobsDir))

	resetViper(t, cfgPath)
	if err := generateCmd.RunE(generateCmd, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}

	if gotAuth != "Bearer tok123" {
		t.Fatalf("authorization header: %q", gotAuth)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(got, imgData) {
		t.Fatalf("output bytes differ: %v vs %v", got, imgData)
	}

	// run history recorded in the sqlite db beside the jobs dir
	st, err := imgrun.OpenStoreFromOptions(jobsDir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()
	runs, err := st.ListRuns()
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Job != "sunset" || runs[0].StatusCode != 200 || runs[0].Failed {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestGenerateCmd_RejectedResponseIsHandled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(403)
		_, _ = w.Write([]byte("invalid api key"))
	}))
	defer srv.Close()

	tdir := t.TempDir()
	jobsDir := filepath.Join(tdir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outPath := filepath.Join(tdir, "never.jpg")
	writeFile(t, jobsDir, "001_rejected.yaml", fmt.Sprintf(`---
generate:
  name: rejected
  request:
    url: %s/v1/images/generations
    prompt: "anything"
  output: %s
`, srv.URL, outPath))

	cfgPath := writeFile(t, tdir, "config.yaml", fmt.Sprintf(`---
jobs_dir: %s
`, jobsDir))

	resetViper(t, cfgPath)
	// A rejected response is a handled outcome, not a command failure.
	if err := generateCmd.RunE(generateCmd, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err=%v", err)
	}

	st, err := imgrun.OpenStoreFromOptions(jobsDir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()
	runs, err := st.ListRuns()
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || !runs[0].Failed || runs[0].StatusCode != 403 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}

func TestGenerateCmd_TransportFaultFailsCommand(t *testing.T) {
	tdir := t.TempDir()
	jobsDir := filepath.Join(tdir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Closed port: connection refused is a transport fault and must surface.
	writeFile(t, jobsDir, "001_unreachable.yaml", `---
generate:
  name: unreachable
  request:
    url: http://127.0.0.1:1/v1/images/generations
    prompt: "anything"
`)
	cfgPath := writeFile(t, tdir, "config.yaml", fmt.Sprintf(`---
jobs_dir: %s
`, jobsDir))

	resetViper(t, cfgPath)
	if err := generateCmd.RunE(generateCmd, nil); err == nil {
		t.Fatalf("expected transport fault to fail the command")
	}
}

func TestGenerateCmd_WaitGateBeforeJobs(t *testing.T) {
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			order = append(order, "wait")
			w.WriteHeader(200)
		default:
			order = append(order, "generate")
			w.Header().Set("Content-Type", "image/jpeg")
			w.WriteHeader(200)
			_, _ = w.Write([]byte{0xFF, 0xD8})
		}
	}))
	defer srv.Close()

	tdir := t.TempDir()
	jobsDir := filepath.Join(tdir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, jobsDir, "001_job.yaml", fmt.Sprintf(`---
generate:
  name: gated
  request:
    url: %s/v1/images/generations
    prompt: "p"
  output: %s
`, srv.URL, filepath.Join(tdir, "gated.jpg")))

	cfgPath := writeFile(t, tdir, "config.yaml", fmt.Sprintf(`---
jobs_dir: %s
wait:
  url: %s/healthz
  timeout: 2s
  interval: 50ms
`, jobsDir, srv.URL))

	resetViper(t, cfgPath)
	if err := generateCmd.RunE(generateCmd, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if len(order) < 2 || order[0] != "wait" || order[len(order)-1] != "generate" {
		t.Fatalf("expected wait probe before generation, got %v", order)
	}
}

func TestGenerateCmd_GlobalEnvRendersURL(t *testing.T) {
	imgData := []byte{0xFF, 0xD8, 0x00}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write(imgData)
	}))
	defer srv.Close()

	tdir := t.TempDir()
	jobsDir := filepath.Join(tdir, "jobs")
	if err := os.MkdirAll(jobsDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outPath := filepath.Join(tdir, "env.jpg")
	writeFile(t, jobsDir, "001_env.yaml", fmt.Sprintf(`---
generate:
  name: env-url
  request:
    url: "{{.env.base_url}}/v1/images/generations"
    prompt: "p"
  output: %s
`, outPath))

	cfgPath := writeFile(t, tdir, "config.yaml", fmt.Sprintf(`---
jobs_dir: %s
env:
  - name: base_url
    value: %s
`, jobsDir, srv.URL))

	resetViper(t, cfgPath)
	if err := generateCmd.RunE(generateCmd, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}
