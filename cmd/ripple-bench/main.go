// Command ripple-bench measures update propagation through the reactive graph
// and keyed list reconciliation onto a streaming surface.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

type profile struct {
	Name      string
	Widths    []int
	Heights   []int
	ListSizes []int
	Iters     int
	MaxProcs  int
}

var profiles = map[string]profile{
	"fast": {
		Name:      "fast",
		Widths:    []int{1, 10},
		Heights:   []int{1, 10},
		ListSizes: []int{10, 100},
		Iters:     20,
	},
	"standard": {
		Name:      "standard",
		Widths:    []int{1, 10, 100},
		Heights:   []int{1, 10, 100},
		ListSizes: []int{100, 1_000},
		Iters:     100,
	},
	"stress": {
		Name:      "stress",
		Widths:    []int{1, 10, 100, 1_000},
		Heights:   []int{1, 10, 100, 1_000},
		ListSizes: []int{100, 1_000, 10_000},
		Iters:     100,
		MaxProcs:  1,
	},
}

type benchConfig struct {
	profile
	Only       string
	JSONOutput string
}

// report is the machine readable result written with -json.
type report struct {
	Profile   string           `json:"profile"`
	GoVersion string           `json:"go_version"`
	Propagate []propagateCase  `json:"propagate,omitempty"`
	Reconcile []reconcileCase  `json:"reconcile,omitempty"`
	Started   time.Time        `json:"started"`
	Elapsed   time.Duration    `json:"elapsed_ns"`
	Settings  map[string]int64 `json:"settings"`
}

func main() {
	log.SetFlags(0)
	// Failures inside the graph are counted by the benchmarks themselves.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	debug.SetGCPercent(100)

	log.Printf("Starting ripple benchmark (%s profile), please wait...", cfg.Name)
	rep, err := run(cfg, os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Finished in %s", rep.Elapsed.Round(time.Millisecond))

	if err := writeJSON(cfg.JSONOutput, rep); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

func run(cfg benchConfig, out io.Writer) (*report, error) {
	rep := &report{
		Profile:   cfg.Name,
		GoVersion: runtime.Version(),
		Started:   time.Now(),
		Settings: map[string]int64{
			"iters":      int64(cfg.Iters),
			"gomaxprocs": int64(runtime.GOMAXPROCS(0)),
		},
	}

	if cfg.Only == "" || cfg.Only == "propagate" {
		cases, err := benchmarkPropagate(cfg.Widths, cfg.Heights, cfg.Iters)
		if err != nil {
			return nil, err
		}
		renderPropagate(out, cases)
		rep.Propagate = cases
	}
	if cfg.Only == "" || cfg.Only == "reconcile" {
		cases, err := benchmarkReconcile(cfg.ListSizes, cfg.Iters)
		if err != nil {
			return nil, err
		}
		renderReconcile(out, cases)
		rep.Reconcile = cases
	}

	rep.Elapsed = time.Since(rep.Started)
	return rep, nil
}

func parseConfig(args []string) (benchConfig, error) {
	fs := flag.NewFlagSet("ripple-bench", flag.ContinueOnError)
	profileFlag := fs.String("profile", "standard", "profile: fast|standard|stress")
	itersFlag := fs.Int("iters", -1, "timed iterations per case")
	onlyFlag := fs.String("only", "", "run a single suite: propagate|reconcile")
	maxProcsFlag := fs.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	jsonFlag := fs.String("json", "", "JSON output path ('-' for stdout)")
	if err := fs.Parse(args); err != nil {
		return benchConfig{}, err
	}

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	p, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", *profileFlag)
	}
	cfg := benchConfig{profile: p, JSONOutput: *jsonFlag}

	if *itersFlag > 0 {
		cfg.Iters = *itersFlag
	}
	if *maxProcsFlag >= 0 {
		cfg.MaxProcs = *maxProcsFlag
	}
	switch only := strings.ToLower(strings.TrimSpace(*onlyFlag)); only {
	case "", "propagate", "reconcile":
		cfg.Only = only
	default:
		return benchConfig{}, fmt.Errorf("unknown suite %q", *onlyFlag)
	}
	return cfg, nil
}

func writeJSON(path string, rep *report) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
