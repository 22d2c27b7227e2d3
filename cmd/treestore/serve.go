package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/treestore/internal/config"
	"github.com/vango-dev/treestore/pkg/observe"
	"github.com/vango-dev/treestore/pkg/server"
	"github.com/vango-dev/treestore/pkg/store"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve [document]",
		Short: "Serve a document over HTTP and websockets",
		Long: `Serve a document over HTTP.

  GET /state?path=...   read a value
  PUT /state?path=...   write a JSON value
  GET /watch?path=...   websocket stream of a value
  GET /metrics          Prometheus metrics
  GET /healthz          health check

The document defaults to the "document" field of treestore.json. Without
one the store starts as an empty object.

Examples:
  treestore serve state.json
  treestore serve --listen :8080 --log-level debug`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			docPath := cfg.DocumentPath()
			if len(args) == 1 {
				docPath = args[0]
			}

			srv, err := buildServer(cfg, docPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			success(cmd.ErrOrStderr(), "serving %s on http://%s", displayName(docPath), cfg.Server.Listen)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default from treestore.json)")

	return cmd
}

// buildServer loads the document and wires the store, its observers and
// the HTTP server from cfg.
func buildServer(cfg *config.Config, docPath string) (*server.Server, error) {
	logger := cfg.Logger()

	var doc any = map[string]any{}
	if docPath != "" {
		v, err := loadDocument(docPath)
		if err != nil {
			return nil, err
		}
		doc = v
	}

	var (
		observers store.Observers
		gatherer  prometheus.Gatherer
	)
	if cfg.MetricsEnabled() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		observers = append(observers, observe.NewMetrics(
			observe.WithNamespace(cfg.Metrics.Namespace),
			observe.WithRegistry(reg),
		))
		gatherer = reg
	}
	if cfg.Tracing.Enabled {
		observers = append(observers, observe.NewTracing(
			observe.WithStoreName(displayName(docPath)),
			observe.WithTraceWrites(cfg.Tracing.Writes),
		))
	}

	st := store.New(doc,
		store.WithLogger(logger),
		store.WithObserver(observers),
		store.WithMaxPasses(cfg.Store.MaxPasses),
	)
	logger.Debug("store ready", "document", docPath, "observers", len(observers))

	return server.New(st, &server.Config{
		Address:     cfg.Server.Listen,
		WatchBuffer: cfg.Server.WatchBuffer,
		Gatherer:    gatherer,
		Logger:      logger.With(slog.String("component", "server")),
	}), nil
}

func displayName(docPath string) string {
	if docPath == "" {
		return "empty document"
	}
	return filepath.Base(docPath)
}
