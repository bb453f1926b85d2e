package env

import (
	"bytes"
	"html/template"

	"gopkg.in/yaml.v3"
)

type Map map[string]string

// New returns a pointer to Env with all internal maps initialized.
// Using this helps avoid nil map checks when populating Global/Local.
func New() *Env {
	return &Env{Global: Map{}, Local: Map{}}
}

// Env supports layered variables:
// - Global: variables from config (apply to the whole run)
// - Local: variables from each job (reset per job)
// Lookup and rendering give precedence to Local over Global.
// Note: zero values (nil maps) are handled gracefully.
type Env struct {
	Global Map `yaml:"-" json:"-" mapstructure:"-"`
	Local  Map `yaml:"env" json:"env" mapstructure:"env"`
}

// UnmarshalYAML allows decoding a plain mapping under the `env` key directly into Local.
func (e *Env) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	var m map[string]string
	if err := value.Decode(&m); err != nil {
		return err
	}
	e.Local = m
	return nil
}

// Clone performs a deep copy of the Env maps.
func (e *Env) Clone() *Env {
	out := New()
	if e == nil {
		return out
	}
	for k, v := range e.Global {
		out.Global[k] = v
	}
	for k, v := range e.Local {
		out.Local[k] = v
	}
	return out
}

// merged returns a combined map (Global then overridden by Local).
func (e *Env) merged() map[string]string {
	m := map[string]string{}
	if e != nil && e.Global != nil {
		for k, v := range e.Global {
			m[k] = v
		}
	}
	if e != nil && e.Local != nil {
		for k, v := range e.Local {
			m[k] = v
		}
	}
	return m
}

// dataForTemplate builds the dot object for template execution supporting both
// flat lookups (e.g., {{.model}}) and grouped lookups ({{.env.model}}).
func (e *Env) dataForTemplate() map[string]interface{} {
	data := map[string]interface{}{}
	merged := e.merged()
	for k, v := range merged {
		data[k] = v
	}
	data["env"] = merged
	return data
}

// Lookup searches Local first, then Global.
func (e *Env) Lookup(key string) (string, bool) {
	if e != nil && e.Local != nil {
		if v, ok := e.Local[key]; ok {
			return v, true
		}
	}
	if e != nil && e.Global != nil {
		if v, ok := e.Global[key]; ok {
			return v, true
		}
	}
	return "", false
}

// RenderGoTemplate renders strings like {{.model}} with html/template using default Go delimiters.
// Missing keys keep the original string unchanged.
func (e *Env) RenderGoTemplate(s string) string {
	if len(s) == 0 {
		return s
	}
	t, err := template.New("gotmpl").Option("missingkey=error").Parse(s)
	if err != nil {
		return s
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, e.dataForTemplate()); err != nil {
		return s
	}
	return buf.String()
}

// RenderGoTemplateErr behaves like RenderGoTemplate but returns an error when
// the template cannot be parsed or executed (including missing keys due to missingkey=error).
// Used for critical contexts like the request prompt where silent fallback would hide issues.
func (e *Env) RenderGoTemplateErr(s string) (string, error) {
	if len(s) == 0 {
		return s, nil
	}
	t, err := template.New("gotmpl").Option("missingkey=error").Parse(s)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, e.dataForTemplate()); err != nil {
		return "", err
	}
	return buf.String(), nil
}
