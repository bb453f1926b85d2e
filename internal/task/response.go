package task

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/imgrun/imgrun/internal/env"
	"github.com/tidwall/gjson"
)

type ResponseSpec struct {
	// ResultCode entries may be integers or go-template strings in YAML.
	// Loaded as strings to allow templating at execution time.
	// Empty means the fixed default: only 200 is a success.
	ResultCode []string `yaml:"result_code"`
	// ImageFrom is a gjson path to a base64-encoded image inside a JSON
	// response body (e.g. "data.0.b64_json" for OpenAI-style APIs).
	// Empty means the raw response body is the image.
	ImageFrom string `yaml:"image_from"`
	// ErrorFrom is a gjson path to a human-readable message inside a JSON
	// error body. Extraction feeds logging only; the stdout error line always
	// carries the raw body text.
	ErrorFrom string `yaml:"error_from"`
}

// AllowedStatus renders ResultCode against provided env vars and returns the set of allowed codes.
// An empty spec yields {200}.
func (r ResponseSpec) AllowedStatus(e *env.Env) map[int]struct{} {
	allowed := map[int]struct{}{}
	for _, c := range r.ResultCode {
		tpl := c
		if strings.Contains(tpl, "${{") {
			tpl = strings.ReplaceAll(tpl, "${{", "{{")
		}
		rendered := strings.TrimSpace(e.RenderGoTemplate(tpl))
		if rendered == "" {
			continue
		}
		if n, err := strconv.Atoi(rendered); err == nil {
			allowed[n] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		allowed[200] = struct{}{}
	}
	return allowed
}

// ValidateStatus checks whether the status code is in the allowed set.
func (r ResponseSpec) ValidateStatus(status int, e *env.Env) error {
	allowed := r.AllowedStatus(e)
	if _, ok := allowed[status]; !ok {
		return fmt.Errorf("status %d not in allowed set", status)
	}
	return nil
}

// DecodeImage returns the image bytes carried by a successful response body.
// With ImageFrom unset the body itself is the image. With ImageFrom set the
// body is JSON and the path must resolve to a base64 payload.
func (r ResponseSpec) DecodeImage(body []byte) ([]byte, error) {
	path := strings.TrimSpace(r.ImageFrom)
	if path == "" {
		return body, nil
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return nil, fmt.Errorf("image_from path %q not found in response body", path)
	}
	img, err := base64.StdEncoding.DecodeString(res.String())
	if err != nil {
		return nil, fmt.Errorf("image_from path %q: decode base64: %w", path, err)
	}
	return img, nil
}

// ExtractError pulls a message out of a JSON error body using ErrorFrom.
// Returns empty when unset or when the path does not resolve.
func (r ResponseSpec) ExtractError(body []byte) string {
	path := strings.TrimSpace(r.ErrorFrom)
	if path == "" || len(body) == 0 {
		return ""
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return ""
	}
	return res.String()
}
