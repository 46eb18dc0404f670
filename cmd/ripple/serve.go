package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/ripple/internal/config"
	"github.com/vango-dev/ripple/pkg/app"
	"github.com/vango-dev/ripple/pkg/live"
	"github.com/vango-dev/ripple/pkg/reactive"
	"github.com/vango-dev/ripple/pkg/scheduler"
	"github.com/vango-dev/ripple/pkg/snapshot"
	"github.com/vango-dev/ripple/pkg/surface/stream"
	"github.com/vango-dev/ripple/pkg/telemetry"
)

type serveOptions struct {
	configPath   string
	templatePath string
	dataPath     string
	addr         string
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a template to websocket clients",
		Long: `Render a template against its data and stream every change to
connected websocket clients as binary patch frames.

When a snapshot backend is configured, the state saved by the previous run
is restored on start and saved again on shutdown.

Examples:
  ripple serve --template todo.html --data todo.yaml
  ripple serve --config ripple.toml --template todo.html --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file or directory (default: search the working directory)")
	cmd.Flags().StringVarP(&opts.templatePath, "template", "t", "", "Template file")
	cmd.Flags().StringVarP(&opts.dataPath, "data", "d", "", "Initial state (JSON, YAML or TOML)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	src, err := readTemplate(opts.templatePath)
	if err != nil {
		return err
	}
	data, err := readData(opts.dataPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Snapshot)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	// The loop outlives ctx so the final snapshot can still be taken.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := scheduler.NewLoop(scheduler.WithLoopLogger(logger.With("component", "loop")))
	go loop.Run(loopCtx)
	defer loop.Close()

	reg := prometheus.NewRegistry()
	liveOpts := []live.Option{
		live.WithLogger(logger.With("component", "live")),
		live.WithWSPath(cfg.Server.WSPath),
	}
	rtOpts := []reactive.Option{
		reactive.WithHost(loop),
		reactive.WithLogger(logger.With("component", "reactive")),
		reactive.WithMaxUpdateCount(cfg.Scheduler.MaxUpdateCount),
		reactive.WithErrorHandler(func(err error) {
			logger.Error("unit failed", "error", err)
		}),
	}
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := telemetry.NewMetrics(
			telemetry.WithRegistry(reg),
			telemetry.WithNamespace(cfg.Metrics.Namespace),
		)
		liveOpts = append(liveOpts, live.WithMetrics(metrics), live.WithGatherer(reg, cfg.Metrics.Path))
		rtOpts = append(rtOpts, reactive.WithObserver(metrics))
	}
	if cfg.Tracing.Enabled {
		rtOpts = append(rtOpts, reactive.WithObserver(telemetry.NewTracer(telemetry.WithTracerName(cfg.Tracing.TracerName))))
	}

	surf := stream.New()
	srv := live.New(loop, surf, liveOpts...)
	rtOpts = append(rtOpts, reactive.WithObserver(srv))

	comp, err := mount(ctx, loop, store, cfg, surf, logger, app.Options{Data: data, Template: src}, rtOpts)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.Server.Addr)
	}()
	success("Serving on %s (websocket %s)", cfg.Server.Addr, cfg.Server.WSPath)

	select {
	case err = <-errCh:
	case <-ctx.Done():
		info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownDuration())
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	if store != nil {
		if serr := save(shutdownCtx, loop, store, cfg.Snapshot.Key, comp); serr != nil {
			logger.Error("save snapshot", "error", serr)
			if err == nil {
				err = serr
			}
		} else {
			logger.Info("snapshot saved", "key", cfg.Snapshot.Key)
		}
	}
	return err
}

// mount creates the runtime and component on the loop, restores saved state
// and renders into surf.
func mount(ctx context.Context, loop *scheduler.Loop, store snapshot.Store, cfg *config.Config,
	surf *stream.Surface, logger *slog.Logger, opts app.Options, rtOpts []reactive.Option,
) (*app.Component, error) {
	var state map[string]any
	if store != nil {
		var err error
		state, err = snapshot.LoadState(ctx, store, cfg.Snapshot.Key)
		switch {
		case stderrors.Is(err, snapshot.ErrNotFound):
			logger.Info("no snapshot to restore", "key", cfg.Snapshot.Key)
		case err != nil:
			return nil, err
		}
	}

	var (
		comp *app.Component
		err  error
	)
	doErr := loop.Do(ctx, func() {
		rt := reactive.New(rtOpts...)
		comp, err = app.New(rt, opts, app.WithLogger(logger.With("component", "app")))
		if err != nil {
			return
		}
		if state != nil {
			comp.Restore(state)
			logger.Info("snapshot restored", "key", cfg.Snapshot.Key, "keys", len(state))
		}
		comp.Mount(surf, surf.Root())
	})
	if doErr != nil {
		return nil, doErr
	}
	return comp, err
}

// save encodes the component's data on the loop and writes it to store.
func save(ctx context.Context, loop *scheduler.Loop, store snapshot.Store, key string, comp *app.Component) error {
	var (
		data []byte
		err  error
	)
	if doErr := loop.Do(ctx, func() {
		data, err = snapshot.Encode(comp.Data())
	}); doErr != nil {
		return doErr
	}
	if err != nil {
		return err
	}
	return store.Save(ctx, key, data)
}
