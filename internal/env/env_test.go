package env

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRenderGoTemplate_BasicMissingAndEmpty(t *testing.T) {
	e := Env{Local: Map{"model": "flux-1-schnell", "city": "Seoul"}}
	got := e.RenderGoTemplate("use {{.model}} from {{.city}}")
	if got != "use flux-1-schnell from Seoul" {
		t.Fatalf("unexpected render result: %q", got)
	}

	// missing key leaves template unchanged
	got2 := e.RenderGoTemplate("{{.UNKNOWN}} ok")
	if got2 != "{{.UNKNOWN}} ok" {
		t.Fatalf("expected missing key to keep input, got: %q", got2)
	}

	if e.RenderGoTemplate("") != "" {
		t.Fatalf("empty input should return empty string")
	}

	nilEnv := Env{}
	in := "{{.FOO}}"
	if nilEnv.RenderGoTemplate(in) != in {
		t.Fatalf("nil env should keep input unchanged")
	}
}

func TestRenderGoTemplate_GroupedAccess(t *testing.T) {
	e := Env{Global: Map{"base": "https://api.example.com"}, Local: Map{"model": "sdxl"}}
	got := e.RenderGoTemplate("{{.env.base}}/models/{{.env.model}}")
	if got != "https://api.example.com/models/sdxl" {
		t.Fatalf("grouped access failed: %q", got)
	}
}

func TestLookup_LocalOverridesGlobal(t *testing.T) {
	e := Env{Global: Map{"a": "g", "b": "g"}, Local: Map{"a": "l"}}
	if v, ok := e.Lookup("a"); !ok || v != "l" {
		t.Fatalf("expected local precedence, got %q ok=%v", v, ok)
	}
	if v, ok := e.Lookup("b"); !ok || v != "g" {
		t.Fatalf("expected global fallback, got %q ok=%v", v, ok)
	}
	if _, ok := e.Lookup("c"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestRenderGoTemplateErr_MissingKeyFails(t *testing.T) {
	e := Env{Local: Map{"ok": "1"}}
	if _, err := e.RenderGoTemplateErr("{{.nope}}"); err == nil {
		t.Fatalf("expected error for missing key")
	}
	got, err := e.RenderGoTemplateErr("v={{.ok}}")
	if err != nil || got != "v=1" {
		t.Fatalf("unexpected: got=%q err=%v", got, err)
	}
}

func TestEnv_UnmarshalYAML_PlainMapping(t *testing.T) {
	var e Env
	if err := yaml.Unmarshal([]byte("prompt_style: watercolor\nsize: \"1024\"\n"), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Local["prompt_style"] != "watercolor" || e.Local["size"] != "1024" {
		t.Fatalf("unexpected local map: %v", e.Local)
	}
}

func TestClone_Independence(t *testing.T) {
	e := New()
	e.Global["a"] = "1"
	c := e.Clone()
	c.Global["a"] = "2"
	c.Local["x"] = "y"
	if e.Global["a"] != "1" {
		t.Fatalf("clone mutated original global")
	}
	if _, ok := e.Local["x"]; ok {
		t.Fatalf("clone mutated original local")
	}
}
