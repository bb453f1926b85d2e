package task

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/imgrun/imgrun/internal/env"
)

func TestResponse_AllowedStatus_DefaultIs200Only(t *testing.T) {
	r := ResponseSpec{}
	e := env.New()
	allowed := r.AllowedStatus(e)
	if len(allowed) != 1 {
		t.Fatalf("expected single default code, got %v", allowed)
	}
	if _, ok := allowed[200]; !ok {
		t.Fatalf("expected 200 allowed by default")
	}
	if err := r.ValidateStatus(200, e); err != nil {
		t.Fatalf("200 should pass: %v", err)
	}
	if err := r.ValidateStatus(403, e); err == nil {
		t.Fatalf("403 should fail the default set")
	}
}

func TestResponse_AllowedStatus_TemplatedCodes(t *testing.T) {
	e := &env.Env{Local: env.Map{"ok": "201"}}
	r := ResponseSpec{ResultCode: []string{"200", "${{.ok}}"}}
	allowed := r.AllowedStatus(e)
	if _, ok := allowed[200]; !ok {
		t.Fatalf("200 missing: %v", allowed)
	}
	if _, ok := allowed[201]; !ok {
		t.Fatalf("templated 201 missing: %v", allowed)
	}
}

func TestResponse_DecodeImage_RawBody(t *testing.T) {
	img := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	r := ResponseSpec{}
	got, err := r.DecodeImage(img)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, img) {
		t.Fatalf("raw body should pass through unchanged")
	}
}

func TestResponse_DecodeImage_Base64Path(t *testing.T) {
	img := []byte("fake-image-bytes")
	b64 := base64.StdEncoding.EncodeToString(img)
	body := []byte(`{"created":1,"data":[{"b64_json":"` + b64 + `"}]}`)
	r := ResponseSpec{ImageFrom: "data.0.b64_json"}
	got, err := r.DecodeImage(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, img) {
		t.Fatalf("decoded image mismatch: %q", got)
	}
}

func TestResponse_DecodeImage_PathMissing(t *testing.T) {
	r := ResponseSpec{ImageFrom: "data.0.b64_json"}
	if _, err := r.DecodeImage([]byte(`{"data":[]}`)); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestResponse_DecodeImage_BadBase64(t *testing.T) {
	r := ResponseSpec{ImageFrom: "img"}
	if _, err := r.DecodeImage([]byte(`{"img":"!!not-base64!!"}`)); err == nil {
		t.Fatalf("expected base64 decode error")
	}
}

func TestResponse_ExtractError(t *testing.T) {
	r := ResponseSpec{ErrorFrom: "error.message"}
	body := []byte(`{"error":{"message":"invalid api key"}}`)
	if got := r.ExtractError(body); got != "invalid api key" {
		t.Fatalf("extract: %q", got)
	}
	if got := r.ExtractError([]byte(`{}`)); got != "" {
		t.Fatalf("expected empty on miss, got %q", got)
	}
	none := ResponseSpec{}
	if got := none.ExtractError(body); got != "" {
		t.Fatalf("expected empty when unset, got %q", got)
	}
}
