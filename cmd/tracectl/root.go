package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tracecore/internal/config"
	"tracecore/internal/core"
	"tracecore/internal/export"
	promrec "tracecore/internal/infra/metrics/prometheus"
	"tracecore/internal/storage"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	cfgFile string
	storage string
	actor   string
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "tracectl",
		Short:         "Requirements traceability workspace",
		Long:          "tracectl creates, links and baselines requirements and reports impact, suspect links and verification coverage.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "config file (default .tracecore.yaml)")
	pf.StringVar(&opts.storage, "storage", "", "persistence driver (memory, file, sqlite, postgres, badger, blob, detached)")
	pf.StringVar(&opts.actor, "actor", "", "user recorded in the change ledger")
	pf.StringVarP(&opts.output, "output", "o", string(export.FormatJSON), "output format (json, yaml, toml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newReqCmd(opts),
		newLinkCmd(opts),
		newSuspectCmd(opts),
		newImpactCmd(opts),
		newCoverageCmd(opts),
		newBaselineCmd(opts),
		newFieldCmd(opts),
		newValidateCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// session is an opened workspace bound to one command invocation.
type session struct {
	cfg      config.Config
	engine   *core.Engine
	logger   *slog.Logger
	registry *prometheus.Registry
	actor    string
	format   export.Format
	out      io.Writer
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	v := viper.New()
	search := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		search = append(search, home)
	}
	if err := config.ReadFile(v, opts.cfgFile, search...); err != nil {
		return config.Config{}, err
	}
	if opts.storage != "" {
		v.Set("storage.driver", opts.storage)
	}
	if opts.actor != "" {
		v.Set("engine.actor", opts.actor)
	}
	if opts.verbose {
		v.Set("log.level", "debug")
	}
	return config.Load(v)
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openSession loads configuration, opens the configured persistence driver
// and loads the workspace into a fresh engine.
func openSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	format, err := export.ParseFormat(opts.output)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

	s := &session{
		cfg:    cfg,
		logger: logger,
		actor:  cfg.Engine.Actor,
		format: format,
		out:    cmd.OutOrStdout(),
	}
	var metrics core.MetricsRecorder
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		rec, err := promrec.New(promrec.Config{Namespace: cfg.Metrics.Namespace, Registry: s.registry})
		if err != nil {
			return nil, err
		}
		metrics = rec
	} else {
		metrics = core.NewExpvarMetricsRecorder("")
	}

	ctx := cmd.Context()
	persistence, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	s.engine = core.New(
		core.WithPersistence(persistence),
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithCacheCapacity(cfg.Engine.CacheCapacity),
		core.WithFlushDelay(cfg.Engine.FlushDelay),
		core.WithKeyPrefix(cfg.Engine.KeyPrefix),
	)
	if err := s.engine.Open(ctx); err != nil {
		return nil, errors.Join(err, s.engine.Close(ctx))
	}
	return s, nil
}

// close force-flushes pending changes and releases the driver.
func (s *session) close(ctx context.Context) error {
	return s.engine.Close(ctx)
}

// withSession runs fn against an opened workspace and always closes it.
func withSession(opts *rootOptions, fn func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		s, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := s.close(cmd.Context()); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close workspace: %w", cerr))
			}
		}()
		return fn(cmd, s, args)
	}
}

func (s *session) render(v any) error {
	return export.Write(s.out, v, s.format)
}
