package task

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/imgrun/imgrun/internal/env"
)

// DefaultAccept is sent when a job does not override the Accept header.
const DefaultAccept = "image/jpeg"

// DefaultTokenEnv is the environment variable the bearer credential is read
// from when a job does not name one.
const DefaultTokenEnv = "IMGRUN_API_KEY"

type RequestSpec struct {
	URL    string `yaml:"url"`
	Prompt string `yaml:"prompt"`
	// TokenEnv names the environment variable holding the bearer credential.
	TokenEnv string `yaml:"token_env"`
	// Accept overrides the Accept header (default image/jpeg).
	Accept  string   `yaml:"accept"`
	Headers []Header `yaml:"headers"`
	Queries []Query  `yaml:"queries"`
	// Params are extra JSON body fields sent alongside prompt (e.g. seed, size).
	// String values are template-rendered; other scalars pass through.
	Params map[string]interface{} `yaml:"params"`
}

// Render builds headers, query params and the JSON body applying Go template
// rendering using e. The body always carries the prompt field; without Params
// it is exactly {"prompt": "..."}.
//
// The Authorization header is built from the TokenEnv process environment
// variable read here, at render time. An unset variable yields an empty token
// and the header is still sent; the remote rejection then surfaces through
// the normal non-200 branch.
func (r RequestSpec) Render(e *env.Env) (map[string]string, map[string]string, string, error) {
	hdrs := renderHeaders(e, r.Headers)
	queries := renderQueries(e, r.Queries)

	if _, ok := hdrs["Content-Type"]; !ok {
		hdrs["Content-Type"] = "application/json"
	}
	if _, ok := hdrs["Accept"]; !ok {
		accept := strings.TrimSpace(r.Accept)
		if accept == "" {
			accept = DefaultAccept
		}
		hdrs["Accept"] = accept
	}
	if _, ok := hdrs["Authorization"]; !ok {
		tokenEnv := strings.TrimSpace(r.TokenEnv)
		if tokenEnv == "" {
			tokenEnv = DefaultTokenEnv
		}
		hdrs["Authorization"] = "Bearer " + os.Getenv(tokenEnv)
	}

	prompt, err := renderBody(e, r.Prompt)
	if err != nil {
		return hdrs, queries, "", fmt.Errorf("prompt template error: %w", err)
	}

	payload := map[string]interface{}{"prompt": prompt}
	for k, v := range r.Params {
		if k == "prompt" {
			continue
		}
		if s, ok := v.(string); ok {
			rendered, perr := renderBody(e, s)
			if perr != nil {
				return hdrs, queries, "", fmt.Errorf("param %q template error: %w", k, perr)
			}
			payload[k] = rendered
			continue
		}
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return hdrs, queries, "", err
	}
	return hdrs, queries, string(body), nil
}

func renderHeaders(e *env.Env, hs []Header) map[string]string {
	hdrs := make(map[string]string)
	for _, h := range hs {
		if h.Name == "" {
			continue
		}
		val := h.Value
		if strings.Contains(val, "{{") {
			val = e.RenderGoTemplate(val)
		}
		hdrs[h.Name] = val
	}
	return hdrs
}

func renderQueries(e *env.Env, qs []Query) map[string]string {
	m := make(map[string]string)
	for _, q := range qs {
		if q.Name == "" {
			continue
		}
		val := q.Value
		if strings.Contains(val, "{{") {
			val = e.RenderGoTemplate(val)
		}
		m[q.Name] = val
	}
	return m
}

func renderBody(e *env.Env, b string) (string, error) {
	if strings.Contains(b, "{{") {
		return e.RenderGoTemplateErr(b)
	}
	return b, nil
}
