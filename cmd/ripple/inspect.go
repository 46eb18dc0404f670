package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ripple/internal/errors"
	"github.com/vango-dev/ripple/pkg/app"
	"github.com/vango-dev/ripple/pkg/reactive"
	"github.com/vango-dev/ripple/pkg/scheduler"
	"github.com/vango-dev/ripple/pkg/surface/memdom"
)

type inspectOptions struct {
	templatePath string
	dataPath     string
	sets         []string
}

func inspectCmd() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Render a template and show the operations an update causes",
		Long: `Render a template once, then apply the --set assignments in a single
batch and print the surface operations the reconciler issued.

Values are parsed as JSON when possible, otherwise taken as strings.

Examples:
  ripple inspect -t list.html -d list.yaml --set 'items=["c","b","a"]'
  ripple inspect -t title.html --set title=hello --set count=3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readTemplate(opts.templatePath)
			if err != nil {
				return err
			}
			data, err := readData(opts.dataPath)
			if err != nil {
				return err
			}
			return runInspect(cmd.OutOrStdout(), src, data, opts.sets)
		},
	}

	cmd.Flags().StringVarP(&opts.templatePath, "template", "t", "", "Template file")
	cmd.Flags().StringVarP(&opts.dataPath, "data", "d", "", "Initial state (JSON, YAML or TOML)")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "Assignment key=value, repeatable")

	return cmd
}

func runInspect(w io.Writer, src string, data map[string]any, sets []string) error {
	assignments := make([][2]string, 0, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return errors.New("C003").WithDetailf("--set %q is not key=value", s)
		}
		assignments = append(assignments, [2]string{k, v})
	}

	var failure error
	host := &scheduler.Microtasks{}
	rt := reactive.New(
		reactive.WithHost(host),
		reactive.WithErrorHandler(func(err error) {
			if failure == nil {
				failure = err
			}
		}),
	)
	comp, err := app.New(rt, app.Options{Data: data, Template: src})
	if err != nil {
		return err
	}

	doc := memdom.New()
	comp.Mount(doc, doc.Root)
	if failure != nil {
		return failure
	}
	fmt.Fprintf(w, "%s\n", doc.HTML())
	if len(assignments) == 0 {
		return nil
	}

	doc.Reset()
	for _, a := range assignments {
		if comp.Data().Reactive(a[0]) {
			comp.Set(a[0], parseValue(a[1]))
		} else {
			comp.Define(a[0], parseValue(a[1]))
		}
	}
	host.Drain()
	if failure != nil {
		return failure
	}

	ops := doc.Ops()
	stats := comp.Reconciler().LastStats()
	fmt.Fprintf(w, "\n%d ops (created %d, moved %d, removed %d, text %d, attrs %d)\n",
		len(ops), stats.Created, stats.Moved, stats.Removed, stats.TextUpdates, stats.AttrUpdates)
	if len(ops) > 0 {
		fmt.Fprintf(w, "%s\n", memdom.FormatOps(ops))
	}
	fmt.Fprintf(w, "\n%s\n", doc.HTML())
	return nil
}
