package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/vango-dev/ripple/pkg/protocol"
	"github.com/vango-dev/ripple/pkg/surface/stream"
	"github.com/vango-dev/ripple/pkg/vdom"
)

// reorder maps the keys of a mounted list to the keys of the next render.
type reorder struct {
	name string
	next func(keys []string, rng *rand.Rand) []string
}

var reorders = []reorder{
	{"append", func(keys []string, _ *rand.Rand) []string {
		return append(slices.Clone(keys), keyRange(len(keys), len(keys)+len(keys)/10+1)...)
	}},
	{"prepend", func(keys []string, _ *rand.Rand) []string {
		return append(keyRange(len(keys), len(keys)+len(keys)/10+1), keys...)
	}},
	{"reverse", func(keys []string, _ *rand.Rand) []string {
		out := slices.Clone(keys)
		slices.Reverse(out)
		return out
	}},
	{"swap ends", func(keys []string, _ *rand.Rand) []string {
		out := slices.Clone(keys)
		out[0], out[len(out)-1] = out[len(out)-1], out[0]
		return out
	}},
	{"remove odd", func(keys []string, _ *rand.Rand) []string {
		out := make([]string, 0, len(keys)/2+1)
		for i := 0; i < len(keys); i += 2 {
			out = append(out, keys[i])
		}
		return out
	}},
	{"shuffle", func(keys []string, rng *rand.Rand) []string {
		out := slices.Clone(keys)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}},
}

type reconcileCase struct {
	Name    string `json:"name"`
	Size    int    `json:"size"`
	Ops     int    `json:"ops"`
	Moved   int    `json:"moved"`
	Patches int    `json:"patches"`
	Frames  int    `json:"frames"`
	Bytes   uint64 `json:"bytes"`
	Timing  timing `json:"timing"`
}

func keyRange(from, to int) []string {
	keys := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		keys = append(keys, strconv.Itoa(i))
	}
	return keys
}

func keyedList(keys []string) *vdom.VNode {
	return vdom.Ul(vdom.Range(keys, func(k string, _ int) *vdom.VNode {
		return vdom.Li(vdom.Key(k), k)
	}))
}

// benchmarkReconcile mounts a keyed list of each size and times patching it
// to a reordered version, including encoding the resulting frames.
func benchmarkReconcile(sizes []int, iters int) ([]reconcileCase, error) {
	var cases []reconcileCase
	for _, size := range sizes {
		for _, ro := range reorders {
			c, err := reconcile(ro, size, iters)
			if err != nil {
				return nil, err
			}
			cases = append(cases, c)
		}
	}
	return cases, nil
}

func reconcile(ro reorder, size, iters int) (reconcileCase, error) {
	rng := rand.New(rand.NewPCG(uint64(size), 1))
	keys := keyRange(0, size)
	c := reconcileCase{Name: ro.name, Size: size}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for n := 0; n < iters; n++ {
		next := ro.next(keys, rng)

		surf := stream.New()
		r := vdom.NewReconciler(surf)
		prev := keyedList(keys)
		r.Patch(surf.Root(), nil, prev)
		initial := surf.TakeFrame()
		nextTree := keyedList(next)

		start := time.Now()
		r.Patch(surf.Root(), prev, nextTree)
		pf := surf.TakeFrame()
		frames, bytes, err := encode(pf)
		tach.AddTime(time.Since(start))
		if err != nil {
			return c, fmt.Errorf("%s %d: %w", ro.name, size, err)
		}

		// Counts from the last iteration are reported.
		stats := r.LastStats()
		c.Ops = stats.Ops()
		c.Moved = stats.Moved
		c.Frames = frames
		c.Bytes = bytes
		c.Patches = 0
		if pf != nil {
			c.Patches = len(pf.Patches)
		}

		if n == 0 {
			if err := verify(surf, initial, pf); err != nil {
				return c, fmt.Errorf("%s %d: %w", ro.name, size, err)
			}
		}
	}
	c.Timing = timingOf(tach)
	return c, nil
}

func encode(pf *protocol.PatchesFrame) (int, uint64, error) {
	if pf == nil {
		return 0, 0, nil
	}
	frames, err := protocol.PatchFrames(pf)
	if err != nil {
		return 0, 0, err
	}
	var total uint64
	for _, f := range frames {
		data, err := f.Encode()
		if err != nil {
			return 0, 0, err
		}
		total += uint64(len(data))
	}
	return len(frames), total, nil
}

// verify replays both frames onto a mirror and compares it with the surface.
func verify(surf *stream.Surface, frames ...*protocol.PatchesFrame) error {
	m := stream.NewMirror()
	for _, pf := range frames {
		if pf == nil {
			continue
		}
		if err := m.Apply(pf); err != nil {
			return err
		}
	}
	if got, want := m.HTML(), surf.Document().HTML(); got != want {
		return fmt.Errorf("mirror diverged: %d bytes, want %d", len(got), len(want))
	}
	return nil
}

func renderReconcile(out io.Writer, cases []reconcileCase) {
	tbl := table.NewWriter()
	tbl.SetTitle("Keyed reconcile")
	tbl.SetOutputMirror(out)
	tbl.AppendHeader(table.Row{"benchmark", "ops", "moved", "patches", "wire", "avg", "min", "p75", "p99", "max"})
	for _, c := range cases {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("%s: %s", c.Name, humanize.Comma(int64(c.Size))),
			humanize.Comma(int64(c.Ops)),
			humanize.Comma(int64(c.Moved)),
			humanize.Comma(int64(c.Patches)),
			humanize.Bytes(c.Bytes),
			c.Timing.Avg,
			c.Timing.Min,
			c.Timing.P75,
			c.Timing.P99,
			c.Timing.Max,
		})
	}
	tbl.Render()
}
