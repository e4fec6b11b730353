package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/config"
	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/host/memhost"
	"github.com/dshills/rigsync/internal/logging"
	"github.com/dshills/rigsync/internal/metrics"
	"github.com/dshills/rigsync/internal/proxy"
	"github.com/dshills/rigsync/internal/sync/pending"
	"github.com/dshills/rigsync/internal/sync/rig"
)

// globalFlags holds the persistent flags.
type globalFlags struct {
	configPath  string
	logLevel    string
	metricsFile string
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	flags    globalFlags
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "rigsync",
		Short: "Capture, diff and replay armature scenes",
		Long: `rigsync synchronizes armature datablocks between scene files.

Bone hierarchies are only readable and writable while their owner object is
in edit mode; rigsync enters and leaves that mode around every access and
defers bone writes until the rest of the armature is saved.`,
		Version:            fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVarP(&a.flags.configPath, "config", "c", "", "configuration file (TOML or YAML)")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&a.flags.metricsFile, "metrics-file", "", "write metrics in text format to this file on exit")

	root.AddCommand(newCaptureCmd(a))
	root.AddCommand(newDiffCmd(a))
	root.AddCommand(newReplayCmd(a))
	root.AddCommand(newConfigCmd(a))
	return root
}

// setup loads the configuration and builds the logger and metric registry.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var opts []config.Option
	if a.flags.configPath != "" {
		opts = append(opts, config.WithFile(a.flags.configPath))
	}
	a.cfg = config.New(opts...)
	if err := a.cfg.Load(cmd.Context()); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.flags.logLevel != "" {
		a.cfg.SetFlag("logging.level", a.flags.logLevel)
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(a.cfg.Logging(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	return metrics.Register(a.registry)
}

// teardown flushes the logger and writes the metrics file.
func (a *app) teardown(cmd *cobra.Command, args []string) error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.flags.metricsFile == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.flags.metricsFile, a.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// session is a document opened with its syncer and pending store.
type session struct {
	doc    *memhost.Document
	syncer *rig.Syncer
	store  *pending.Store
	ctx    *proxy.Context
}

func (s *session) Close() error {
	return s.store.Close()
}

// open loads the scene at path and attaches a syncer configured from the
// sync and pending sections.
func (a *app) open(ctx context.Context, path string) (*session, error) {
	doc, err := memhost.LoadSceneFile(path)
	if err != nil {
		return nil, err
	}

	pc := a.cfg.Pending()
	store, err := pending.New(ctx, pending.Config{
		Shards:           pc.Shards,
		LifeWindow:       pc.LifeWindow,
		MaxEntrySize:     pc.MaxEntrySize,
		HardMaxCacheSize: pc.HardMaxCacheSize,
	}, a.logger)
	if err != nil {
		return nil, err
	}

	sc := a.cfg.Sync()
	logger := a.logger.With(zap.String("scene", path))
	doc.OnModeChange(func(obj *memhost.Object, from, to host.Mode) {
		logger.Debug("host mode changed",
			zap.String("object", obj.Name()),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	})
	syncer := rig.NewSyncer(doc, store,
		rig.WithModes(sc.GatedMode, sc.BaselineMode),
		rig.WithGatedAttribute(sc.GatedAttribute),
		rig.WithRequeueOnFailure(sc.RequeueOnFailure),
		rig.WithLogger(logger),
	)
	return &session{doc: doc, syncer: syncer, store: store, ctx: proxy.NewContext(logger)}, nil
}
