package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imgrun/imgrun"
	"github.com/imgrun/imgrun/internal/common"
)

const (
	DefaultWaitTimeout  = 60 * time.Second
	DefaultWaitInterval = 2 * time.Second
)

// waitParams holds the parsed and normalized parameters for waiting
type waitParams struct {
	url      string
	method   string
	expected int
	timeout  time.Duration
	interval time.Duration
}

// parseWaitConfig parses and normalizes wait configuration with defaults
func parseWaitConfig(wc WaitConfig, e *imgrun.Env) waitParams {
	urlRaw := strings.TrimSpace(wc.URL)

	method := strings.ToUpper(strings.TrimSpace(wc.Method))
	if method == "" {
		method = "GET"
	}

	expected := wc.Status
	if expected == 0 {
		expected = 200
	}

	timeout := DefaultWaitTimeout
	if s := strings.TrimSpace(wc.Timeout); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			timeout = d
		}
	}

	interval := DefaultWaitInterval
	if s := strings.TrimSpace(wc.Interval); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			interval = d
		}
	}

	url := e.RenderGoTemplate(urlRaw)

	return waitParams{
		url:      url,
		method:   method,
		expected: expected,
		timeout:  timeout,
		interval: interval,
	}
}

// probeOnce performs a single readiness request and reports the status code.
func probeOnce(ctx context.Context, method, url string) (int, error) {
	client := imgrun.NewHTTPClient(ctx)
	req := client.R().SetContext(ctx)

	switch method {
	case "HEAD":
		resp, err := req.Head(url)
		if resp != nil {
			return resp.StatusCode(), err
		}
		return 0, err
	default:
		resp, err := req.Get(url)
		if resp != nil {
			return resp.StatusCode(), err
		}
		return 0, err
	}
}

// doWait polls an HTTP endpoint until it returns the expected status or the
// timeout elapses. This gates the run on inference server readiness; the
// generation requests themselves are never retried.
//
// Behavior:
// - method defaults to GET; supports GET and HEAD (others fall back to GET)
// - expected status defaults to 200
// - timeout defaults to 60s; interval defaults to 2s
// - url is rendered with Go template using the provided env
// - TLS client options are read from ctx
func doWait(ctx context.Context, e *imgrun.Env, wc WaitConfig, verbose bool) error {
	if strings.TrimSpace(wc.URL) == "" {
		return nil
	}

	params := parseWaitConfig(wc, e)
	logger := common.GetLogger().WithComponent("wait")
	if verbose {
		logger.Debug("waiting for endpoint", "url", params.url, "expected", params.expected, "timeout", params.timeout)
	}

	deadline := time.Now().Add(params.timeout)
	var lastStatus int
	for {
		status, err := probeOnce(ctx, params.method, params.url)
		if err == nil && status == params.expected {
			logger.Debug("endpoint ready", "url", params.url, "status", status)
			return nil
		}

		lastStatus = status
		if time.Now().After(deadline) {
			return fmt.Errorf("wait: timeout waiting for %s to return %d (last=%d)",
				params.url, params.expected, lastStatus)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(params.interval):
		}
	}
}
