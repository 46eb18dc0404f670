package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/ripple/internal/config"
	"github.com/vango-dev/ripple/internal/errors"
)

// loadConfig reads path, which may be a file or a directory. Without a path
// the working directory is searched, and defaults are used when it holds no
// configuration.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if !config.Exists(".") {
			return config.New(), nil
		}
		return config.Load(".")
	}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return config.Load(path)
	}
	return config.LoadFile(path)
}

// newLogger builds the process logger from the log section.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// readTemplate returns the template source at path.
func readTemplate(path string) (string, error) {
	if path == "" {
		return "", errors.New("T001").WithDetail("no template given").
			WithSuggestion("Pass the template file with --template.")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(src), nil
}

// readData loads initial state from a JSON, YAML or TOML file. An empty
// path yields empty state.
func readData(path string) (map[string]any, error) {
	data := map[string]any{}
	if path == "" {
		return data, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(src, &data)
	case ".toml":
		_, err = toml.Decode(string(src), &data)
	default:
		err = json.Unmarshal(src, &data)
	}
	if err != nil {
		return nil, errors.Newf(errors.CategoryConfig, "parse %s", filepath.Base(path)).Wrap(err)
	}
	return data, nil
}

// parseValue reads a --set value as JSON, falling back to a plain string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
