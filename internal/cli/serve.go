package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/graphgate/internal/compiler"
	"github.com/roach88/graphgate/internal/config"
	"github.com/roach88/graphgate/internal/metrics"
	"github.com/roach88/graphgate/internal/pipeline"
	"github.com/roach88/graphgate/internal/schema"
	"github.com/roach88/graphgate/internal/server"
)

// ServeOptions holds flags for the serve command. Flags override the
// configuration file and environment.
type ServeOptions struct {
	*RootOptions
	Schema  string
	Listen  string
	Backend string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiler over HTTP",
		Long: `Serve POST /v1/compile, GET /healthz and GET /metrics.

Configuration comes from --config, GRAPHGATE_ environment variables
(e.g. GRAPHGATE_SERVER_LISTEN) and the flags below, in increasing
precedence. The schema is loaded once at startup.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema directory (overrides schema.dir)")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides server.listen)")
	cmd.Flags().StringVarP(&opts.Backend, "backend", "b", "", "default backend (overrides backend)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadServeConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	log, err := cfg.Logger()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	log.SetOutput(cmd.ErrOrStderr())

	srv, err := newServer(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"listen":  cfg.Server.Listen,
		"backend": cfg.Backend,
		"schema":  cfg.Schema.Dir,
	}).Info("serving")
	if err := srv.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "server failed", err)
	}
	return nil
}

// loadServeConfig loads configuration and applies flag overrides.
func loadServeConfig(opts *ServeOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Schema != "" {
		cfg.Schema.Dir = opts.Schema
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// newServer loads the schema and wires the compiler, metrics and HTTP
// server described by cfg.
func newServer(cfg *config.Config, log *logrus.Logger) (*server.Server, error) {
	res, errs := schema.LoadDir(cfg.Schema.Dir, schema.LoadModeCollectAll)
	if len(errs) > 0 {
		for _, err := range errs {
			log.WithError(err).Error("schema error")
		}
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("loading schema %s", cfg.Schema.Dir), errors.Join(errs...))
	}
	for _, w := range res.Warnings {
		log.WithField("path", w.Path).Warn(w.Message)
	}
	log.WithFields(logrus.Fields{
		"shapes":      res.Registry.Len(),
		"fingerprint": res.Fingerprint,
	}).Info("schema loaded")

	compilerOpts := []compiler.Option{
		compiler.WithLogger(log),
		compiler.WithGuardScope(cfg.GuardScope()),
		compiler.WithMaxEdges(cfg.Compile.MaxEdges),
	}
	serverOpts := []server.Option{server.WithLogger(log)}

	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector, err := metrics.New(reg)
		if err != nil {
			return nil, WrapExitError(ExitFailure, "registering metrics", err)
		}
		compilerOpts = append(compilerOpts, compiler.WithMetrics(collector))
		serverOpts = append(serverOpts, server.WithMetrics(collector, reg))
	}

	c := compiler.New(res.Registry, compilerOpts...)
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		Backend:     pipeline.Backend(cfg.Backend),
		CORSOrigins: cfg.Server.CORSOrigins,
	}, c, serverOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configuring server", err)
	}
	return srv, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
