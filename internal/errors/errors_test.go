package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"unit failure", "R001", "Computation unit failed", CategoryRuntime},
		{"reconcile mismatch", "R002", "Reconciliation mismatch", CategoryReconcile},
		{"template parse", "T001", "Template parse error", CategoryTemplate},
		{"config missing", "C001", "Configuration file not found", CategoryConfig},
		{"snapshot", "S002", "Snapshot not found", CategoryStorage},
		{"transport", "L001", "WebSocket upgrade failed", CategoryTransport},
		{"unknown error code", "Z999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryRuntime, "unit %q failed", "render")
	if err.Message != `unit "render" failed` {
		t.Errorf("Message = %q, want %q", err.Message, `unit "render" failed`)
	}
	if err.Code != "" {
		t.Errorf("Code = %q, want empty", err.Code)
	}
}

func TestError_Error(t *testing.T) {
	got := New("R001").Error()
	if got != "R001: Computation unit failed" {
		t.Errorf("Error() = %q", got)
	}

	got = New("R001").WithDetail("unit 7").Wrap(fmt.Errorf("boom")).Error()
	want := "R001: Computation unit failed (unit 7): boom"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &Error{Message: "plain"}
	if plain.Error() != "plain" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "plain")
	}
}

func TestUnwrapAndIs(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	err := New("S001").Wrap(sentinel)
	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is should see through Wrap")
	}
	var re *Error
	if !stderrors.As(fmt.Errorf("outer: %w", err), &re) {
		t.Fatal("errors.As should find *Error")
	}
	if re.Code != "S001" {
		t.Errorf("Code = %q, want S001", re.Code)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "R001") != nil {
		t.Error("FromError(nil) should return nil")
	}
	orig := New("T001")
	if FromError(orig, "R001") != orig {
		t.Error("FromError should return *Error unchanged")
	}
	wrapped := FromError(fmt.Errorf("io"), "S001")
	if wrapped.Code != "S001" || wrapped.Wrapped == nil {
		t.Errorf("FromError = %+v, want S001 wrapping cause", wrapped)
	}
}

func TestFromPanic(t *testing.T) {
	err := FromPanic("kaboom", "R001")
	if !strings.Contains(err.Error(), "panic: kaboom") {
		t.Errorf("Error() = %q, want panic text", err.Error())
	}
	cause := fmt.Errorf("typed")
	err = FromPanic(cause, "R004")
	if !stderrors.Is(err, cause) {
		t.Error("FromPanic should wrap error values directly")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", New("R003"))
	if !HasCode(err, "R003") {
		t.Error("HasCode should find R003")
	}
	if HasCode(err, "R001") {
		t.Error("HasCode should not find R001")
	}
	if HasCode(nil, "R001") {
		t.Error("HasCode(nil) should be false")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer DisableColors()

	err := New("T001").
		WithLocation("counter.html", 3, 7).
		WithContext([]string{"<li v-for=\"x items\">"}).
		WithDetail("missing 'in'").
		Wrap(fmt.Errorf("bad clause"))
	out := err.Format()

	for _, want := range []string{
		"ERROR T001: Template parse error",
		"counter.html:3:7",
		"<li v-for=",
		"missing 'in'",
		"Cause: bad clause",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatColors(t *testing.T) {
	EnableColors()
	defer DisableColors()

	out := New("R001").Format()
	if !strings.Contains(out, colorRed) {
		t.Error("Format() should contain ANSI codes when colors are enabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("T002").WithLocation("", 2, 0)
	got := err.FormatCompact()
	want := "<input>:2: T002: Invalid directive"
	if got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("C003").WithDetail("scheduler.maxUpdateCount must be positive")
	var got map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &got); e != nil {
		t.Fatalf("FormatJSON() is not valid JSON: %v", e)
	}
	if got["code"] != "C003" {
		t.Errorf("code = %v, want C003", got["code"])
	}
	if got["category"] != string(CategoryConfig) {
		t.Errorf("category = %v, want config", got["category"])
	}
	if _, ok := got["location"]; ok {
		t.Error("location should be omitted when unset")
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	var buf bytes.Buffer
	Fprint(&buf, fmt.Errorf("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("Fprint() = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestRegistry(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Errorf("GetTemplate(%q) not found", code)
		}
		if tmpl.Message == "" {
			t.Errorf("code %q has empty message", code)
		}
	}

	Register("X900", Template{Category: CategoryRuntime, Message: "custom"})
	if New("X900").Message != "custom" {
		t.Error("Register should add a template")
	}
}
