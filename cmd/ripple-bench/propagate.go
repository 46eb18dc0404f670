package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vango-dev/ripple/pkg/reactive"
	"github.com/vango-dev/ripple/pkg/scheduler"
)

type timing struct {
	Avg time.Duration `json:"avg_ns"`
	Min time.Duration `json:"min_ns"`
	P75 time.Duration `json:"p75_ns"`
	P99 time.Duration `json:"p99_ns"`
	Max time.Duration `json:"max_ns"`
}

func timingOf(t *tachymeter.Tachymeter) timing {
	calc := t.Calc()
	return timing{
		Avg: calc.Time.Avg,
		Min: calc.Time.Min,
		P75: calc.Time.P75,
		P99: calc.Time.P99,
		Max: calc.Time.Max,
	}
}

type propagateCase struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Effects int64  `json:"effect_runs"`
	Timing  timing `json:"timing"`
}

// benchmarkPropagate builds w chains of h computed values over one source,
// each ending in an effect, and times a write followed by the flush.
func benchmarkPropagate(ww, hh []int, iters int) ([]propagateCase, error) {
	var cases []propagateCase
	for _, w := range ww {
		for _, h := range hh {
			c, err := propagate(w, h, iters)
			if err != nil {
				return nil, err
			}
			cases = append(cases, c)
		}
	}
	return cases, nil
}

func propagate(w, h, iters int) (propagateCase, error) {
	var (
		host  scheduler.Microtasks
		fails int
	)
	rt := reactive.New(
		reactive.WithHost(&host),
		reactive.WithErrorHandler(func(error) { fails++ }),
	)
	src := rt.Reactive(map[string]any{"n": 1})

	var runs int64
	sinks := make([]int, w)
	for i := 0; i < w; i++ {
		last := func() int { return src.Get("n").(int) }
		for j := 0; j < h; j++ {
			prev := last
			c := reactive.NewComputed(rt, func() int { return prev() + 1 })
			last = c.Get
		}
		rt.Effect(func() {
			sinks[i] = last()
			runs++
		})
	}
	runs = 0

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for n := 0; n < iters; n++ {
		want := n + 2
		start := time.Now()
		src.Set("n", want)
		host.Drain()
		tach.AddTime(time.Since(start))

		if sinks[w-1] != want+h {
			return propagateCase{}, fmt.Errorf("propagate %d * %d: sink = %d, want %d", w, h, sinks[w-1], want+h)
		}
	}
	if fails > 0 {
		return propagateCase{}, fmt.Errorf("propagate %d * %d: %d failed runs", w, h, fails)
	}
	if want := int64(w * iters); runs != want {
		return propagateCase{}, fmt.Errorf("propagate %d * %d: %d effect runs, want %d", w, h, runs, want)
	}

	return propagateCase{Width: w, Height: h, Effects: runs, Timing: timingOf(tach)}, nil
}

func renderPropagate(out io.Writer, cases []propagateCase) {
	tbl := table.NewWriter()
	tbl.SetTitle("Propagation")
	tbl.SetOutputMirror(out)
	tbl.AppendHeader(table.Row{"benchmark", "effects", "avg", "min", "p75", "p99", "max"})
	for _, c := range cases {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("propagate: %d * %d", c.Width, c.Height),
			humanize.Comma(c.Effects),
			c.Timing.Avg,
			c.Timing.Min,
			c.Timing.P75,
			c.Timing.P99,
			c.Timing.Max,
		})
	}
	tbl.Render()
}
