package common

import (
	"strings"
	"testing"
)

func TestMaskString_BearerToken(t *testing.T) {
	m := NewMasker()
	in := "sending Authorization: Bearer fw-abc123XYZ"
	out := m.MaskString(in)
	if strings.Contains(out, "fw-abc123XYZ") {
		t.Fatalf("token leaked: %q", out)
	}
	if !strings.Contains(out, "***MASKED***") {
		t.Fatalf("expected mask marker, got %q", out)
	}
}

func TestMaskString_APIKeyAssignments(t *testing.T) {
	m := NewMasker()
	cases := []string{
		`{"api_key": "sk-verysecret"}`,
		`api-key=sk-verysecret`,
		`token: sk-verysecret`,
	}
	for _, in := range cases {
		out := m.MaskString(in)
		if strings.Contains(out, "sk-verysecret") {
			t.Fatalf("secret leaked for %q: %q", in, out)
		}
	}
}

func TestMaskValue_KeyBased(t *testing.T) {
	m := NewMasker()
	if got := m.MaskValue("authorization", "Bearer tok"); got != "***MASKED***" {
		t.Fatalf("expected key-based mask, got %v", got)
	}
	if got := m.MaskValue("status_code", 200); got != 200 {
		t.Fatalf("non-string values should pass through, got %v", got)
	}
	if got := m.MaskValue("url", "https://api.fireworks.ai/x"); got != "https://api.fireworks.ai/x" {
		t.Fatalf("plain value should pass through, got %v", got)
	}
}

func TestMasker_Disabled(t *testing.T) {
	m := NewMasker()
	m.SetEnabled(false)
	in := "Bearer fw-abc"
	if out := m.MaskString(in); out != in {
		t.Fatalf("disabled masker changed input: %q", out)
	}
	if !m.IsEnabled() == false {
		t.Fatalf("expected disabled")
	}
}
