package task

import (
	"encoding/json"
	"testing"

	"github.com/imgrun/imgrun/internal/env"
)

// FuzzRequestRenderPrompt ensures arbitrary prompt content always yields a
// valid one-field JSON body when no templates are involved.
func FuzzRequestRenderPrompt(f *testing.F) {
	f.Add("A beautiful sunset over the ocean")
	f.Add("quotes \" and \\ backslashes")
	f.Add("line\nbreaks\tand tabs")
	f.Add("unicode ☃ 🎨 漢字")
	f.Add("")
	f.Fuzz(func(t *testing.T, prompt string) {
		req := RequestSpec{Prompt: prompt}
		_, _, body, err := req.Render(env.New())
		if err != nil {
			// Template-looking input may legitimately fail to render.
			return
		}
		var decoded map[string]string
		if err := json.Unmarshal([]byte(body), &decoded); err != nil {
			t.Fatalf("body not valid JSON for %q: %v", prompt, err)
		}
		if len(decoded) != 1 {
			t.Fatalf("expected one field, got %v", decoded)
		}
	})
}

// FuzzDecodeImage ensures DecodeImage never panics on malformed JSON bodies.
func FuzzDecodeImage(f *testing.F) {
	f.Add([]byte(`{"data":[{"b64_json":"YQ=="}]}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(``))
	f.Add([]byte(`not json at all`))
	f.Fuzz(func(t *testing.T, body []byte) {
		r := ResponseSpec{ImageFrom: "data.0.b64_json"}
		_, _ = r.DecodeImage(body)
	})
}
