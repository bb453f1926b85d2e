package task

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/imgrun/imgrun/internal/common"
	"github.com/imgrun/imgrun/internal/env"
	"github.com/imgrun/imgrun/internal/httpc"
)

// DefaultOutputPath is used when a job does not configure one.
const DefaultOutputPath = "a.jpg"

type Generate struct {
	Name     string       `yaml:"name"`
	Env      *env.Env     `yaml:"env"`
	Request  RequestSpec  `yaml:"request"`
	Response ResponseSpec `yaml:"response"`
	// Output is the image destination path; overwritten unconditionally.
	Output string `yaml:"output"`
}

// Execute dispatches this generation: it renders the request, performs
// exactly one HTTP POST, and branches on the response status.
//
// Allowed status: the image is decoded and written to the output path
// (create/truncate) and Result.Saved is set. Non-allowed status: nothing is
// written, Result.Failed is set and the raw body text is kept; the returned
// error is nil because a rejected request is a handled, terminal outcome.
// Only transport faults and filesystem write failures return an error.
func (g *Generate) Execute(ctx context.Context) (*Result, error) {
	logger := common.GetLogger().WithComponent("task-generate").WithJob(g.Name)

	hdrs, queries, body, rerr := g.Request.Render(g.Env)
	if rerr != nil {
		logger.Error("failed to render request template", "error", rerr)
		return nil, fmt.Errorf("generate request render error: %w", rerr)
	}

	url := g.Env.RenderGoTemplate(g.Request.URL)
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("generate: job %q has no request url", g.Name)
	}

	logger.Debug("request details", "method", "POST", "url", url,
		"headers_count", len(hdrs), "authorization", common.MaskSensitiveData(hdrs["Authorization"]), "body_size", len(body))

	resp, err := dispatch(ctx, url, hdrs, queries, body)
	if err != nil {
		logger.Error("HTTP request failed", "error", err, "url", url)
		return nil, err
	}

	status := resp.StatusCode()
	respBody := resp.Body()
	logger.Debug("received HTTP response", "status_code", status, "response_size", len(respBody))

	if err := g.Response.ValidateStatus(status, g.Env); err != nil {
		msg := g.Response.ExtractError(respBody)
		logger.Warn("generation rejected", "status_code", status, "message", msg)
		return &Result{StatusCode: status, ResponseBody: string(respBody), Failed: true}, nil
	}

	img, err := g.Response.DecodeImage(respBody)
	if err != nil {
		logger.Error("failed to decode image from response", "error", err)
		return nil, err
	}

	out := g.OutputPath()
	if err := writeImage(out, img); err != nil {
		logger.Error("failed to write image", "error", err, "path", out)
		return nil, err
	}
	sum := sha256.Sum256(img)

	logger.Debug("image saved", "path", out, "bytes", len(img))
	return &Result{
		StatusCode:  status,
		Saved:       true,
		OutputPath:  out,
		ImageBytes:  len(img),
		ImageSHA256: hex.EncodeToString(sum[:]),
	}, nil
}

// OutputPath returns the rendered destination path, falling back to a.jpg.
func (g *Generate) OutputPath() string {
	out := strings.TrimSpace(g.Output)
	if out == "" {
		return DefaultOutputPath
	}
	return filepath.Clean(g.Env.RenderGoTemplate(out))
}

func dispatch(ctx context.Context, url string, headers, queries map[string]string, body string) (*resty.Response, error) {
	client := httpc.New(ctx)
	req := client.R().SetContext(ctx).SetHeaders(headers).SetQueryParams(queries)
	if strings.TrimSpace(body) != "" {
		req.SetBody([]byte(body))
	}
	return req.Post(url)
}

func writeImage(path string, img []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	// #nosec G306 -- generated images are regular artifacts
	return os.WriteFile(path, img, 0o644)
}
