package httpc

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/go-resty/resty/v2"
)

type ctxKey string

// Context keys controlling TLS behavior of clients built by New.
const (
	CtxTLSInsecureKey   ctxKey = "imgrun_tls_insecure"
	CtxTLSMinVersionKey ctxKey = "imgrun_tls_min_version"
	CtxTLSMaxVersionKey ctxKey = "imgrun_tls_max_version"
)

// WithTLSInsecure marks the context so clients skip certificate verification.
func WithTLSInsecure(ctx context.Context, insecure bool) context.Context {
	return context.WithValue(ctx, CtxTLSInsecureKey, insecure)
}

// WithTLSMinVersion sets the minimum TLS version (e.g. "1.2", "tls1.3").
func WithTLSMinVersion(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, CtxTLSMinVersionKey, v)
}

// WithTLSMaxVersion sets the maximum TLS version (e.g. "1.2", "tls1.3").
func WithTLSMaxVersion(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, CtxTLSMaxVersionKey, v)
}

// ParseTLSVersion maps human-friendly version strings to tls constants.
// Returns 0 for unknown or empty input.
func ParseTLSVersion(s string) uint16 {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13
	}
	return 0
}

// New returns a resty.Client configured from TLS options carried in ctx.
// Without any TLS keys the client is left at resty defaults.
// No retry policy and no timeout are configured; a dispatch is sent exactly once
// and blocks until the server answers or the transport fails.
func New(ctx context.Context) *resty.Client {
	c := resty.New()

	insecure, _ := ctx.Value(CtxTLSInsecureKey).(bool)
	minS, _ := ctx.Value(CtxTLSMinVersionKey).(string)
	maxS, _ := ctx.Value(CtxTLSMaxVersionKey).(string)
	minV := ParseTLSVersion(minS)
	maxV := ParseTLSVersion(maxS)

	if !insecure && minV == 0 && maxV == 0 {
		return c
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if insecure {
		cfg.InsecureSkipVerify = true // #nosec G402 -- explicit opt-in for self-hosted endpoints
	}
	if minV != 0 {
		cfg.MinVersion = minV
	}
	if maxV != 0 {
		cfg.MaxVersion = maxV
	}
	c.SetTLSClientConfig(cfg)
	return c
}
