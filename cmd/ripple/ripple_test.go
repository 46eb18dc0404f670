package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/ripple/internal/errors"
)

const listTemplate = `<ul><li v-for="x in items" :key="x">{{ x }}</li></ul>`

func TestRunInspect(t *testing.T) {
	var out bytes.Buffer
	data := map[string]any{"items": []any{"a", "b", "c"}}
	if err := runInspect(&out, listTemplate, data, []string{`items=["c","b","a"]`}); err != nil {
		t.Fatalf("runInspect() error = %v", err)
	}

	got := out.String()
	if !strings.HasPrefix(got, "<ul><li>a</li><li>b</li><li>c</li></ul>\n") {
		t.Errorf("output does not start with the initial HTML:\n%s", got)
	}
	if !strings.Contains(got, "2 ops (created 0, moved 2, removed 0, text 0, attrs 0)") {
		t.Errorf("output missing op summary:\n%s", got)
	}
	if n := strings.Count(got, "move li#"); n != 2 {
		t.Errorf("move lines = %d, want 2:\n%s", n, got)
	}
	if !strings.HasSuffix(got, "<ul><li>c</li><li>b</li><li>a</li></ul>\n") {
		t.Errorf("output does not end with the updated HTML:\n%s", got)
	}
}

func TestRunInspectDefinesNewKeys(t *testing.T) {
	var out bytes.Buffer
	src := `<p>{{ greeting }} {{ name }}</p>`
	err := runInspect(&out, src, map[string]any{"greeting": "hi"}, []string{"name=ada", "greeting=hello"})
	if err != nil {
		t.Fatalf("runInspect() error = %v", err)
	}
	if !strings.HasSuffix(out.String(), "<p>hello ada</p>\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunInspectErrors(t *testing.T) {
	var out bytes.Buffer
	err := runInspect(&out, listTemplate, nil, []string{"novalue"})
	if !errors.HasCode(err, "C003") {
		t.Errorf("bad --set error = %v, want C003", err)
	}

	err = runInspect(&out, `<ul><li v-for="x"></li></ul>`, nil, nil)
	if !errors.HasCode(err, "T002") {
		t.Errorf("bad template error = %v, want T002", err)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"3", float64(3)},
		{"true", true},
		{`"quoted"`, "quoted"},
		{"plain text", "plain text"},
		{`["a","b"]`, []any{"a", "b"}},
		{`{"k":1}`, map[string]any{"k": float64(1)}},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestReadData(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"d.json": `{"title": "x", "items": ["a"]}`,
		"d.yaml": "title: x\nitems:\n  - a\n",
		"d.toml": "title = \"x\"\nitems = [\"a\"]\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		data, err := readData(path)
		if err != nil {
			t.Fatalf("readData(%s) error = %v", name, err)
		}
		if data["title"] != "x" {
			t.Errorf("%s: title = %v, want x", name, data["title"])
		}
		if items, ok := data["items"].([]any); !ok || len(items) != 1 || items[0] != "a" {
			t.Errorf("%s: items = %#v, want [a]", name, data["items"])
		}
	}

	if data, err := readData(""); err != nil || len(data) != 0 {
		t.Errorf("readData(\"\") = %v, %v", data, err)
	}
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0644)
	if _, err := readData(bad); err == nil {
		t.Error("readData(bad.json) succeeded")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := loadConfig(dir); !errors.HasCode(err, "C001") {
		t.Errorf("empty dir error = %v, want C001", err)
	}

	path := filepath.Join(dir, "ripple.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9000\"\nlog:\n  format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{dir, path} {
		cfg, err := loadConfig(p)
		if err != nil {
			t.Fatalf("loadConfig(%s) error = %v", p, err)
		}
		if cfg.Server.Addr != ":9000" {
			t.Errorf("Server.Addr = %q, want :9000", cfg.Server.Addr)
		}
	}

	cfg, _ := loadConfig(path)
	var buf bytes.Buffer
	newLogger(cfg, &buf).Info("hello", "k", 1)
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("json logger output = %q", buf.String())
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if out.String() != version+"\n" {
		t.Errorf("version output = %q", out.String())
	}
}
