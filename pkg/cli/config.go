package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/glimpse/pkg/adapter"
	"github.com/m-mizutani/glimpse/pkg/catalog"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/repository"
	"github.com/m-mizutani/glimpse/pkg/usecase/alert"
	"github.com/m-mizutani/glimpse/pkg/usecase/record"
	"github.com/m-mizutani/glimpse/pkg/usecase/retrieve"
	"github.com/m-mizutani/glimpse/pkg/usecase/setting"
	"github.com/m-mizutani/glimpse/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const summariesDir = "summaries"

// config holds the global flag values
type config struct {
	dataDir   string
	logLevel  string
	logFormat string
	profile   string
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "glimpse")
	}
	return ".glimpse"
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "data-dir",
			Aliases:     []string{"d"},
			Usage:       "Directory holding config.json, profiles, summaries and screenshots",
			Value:       defaultDataDir(),
			Sources:     cli.EnvVars("GLIMPSE_DATA_DIR"),
			Destination: &cfg.dataDir,
		},
		&cli.StringFlag{
			Name:        "profile",
			Aliases:     []string{"p"},
			Usage:       "Run with a saved profile instead of config.json",
			Sources:     cli.EnvVars("GLIMPSE_PROFILE"),
			Destination: &cfg.profile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("GLIMPSE_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("GLIMPSE_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// setupLogger installs the logger selected by the flags and attaches it to ctx.
func (cfg *config) setupLogger(ctx context.Context) (context.Context, error) {
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.logLevel, os.Stderr, logging.WithFormat(format))
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

func (cfg *config) settings() *setting.Manager {
	return setting.New(cfg.dataDir)
}

// loadConfig returns config.json (or the selected profile) with environment overrides.
func (cfg *config) loadConfig() (*model.Config, error) {
	m := cfg.settings()
	if cfg.profile == "" {
		return m.LoadConfig()
	}

	conf, err := m.LoadProfile(cfg.profile)
	if err != nil {
		return nil, err
	}
	if err := setting.ApplyEnv(conf); err != nil {
		return nil, err
	}
	return conf, nil
}

// runtime holds what every command needs once the config is resolved
type runtime struct {
	conf      *model.Config
	catalog   *catalog.Catalog
	store     *record.Store
	retriever *retrieve.Retriever
	closers   []func() error
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			logging.Default().Warn("failed to close resource", "error", err)
		}
	}
}

// open sets up logging, loads config and catalog, and connects the record store.
func (cfg *config) open(ctx context.Context) (context.Context, *runtime, error) {
	ctx, err := cfg.setupLogger(ctx)
	if err != nil {
		return nil, nil, err
	}

	conf, err := cfg.loadConfig()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to load config")
	}

	rt := &runtime{conf: conf, catalog: catalog.Default()}
	if conf.CatalogFile != "" {
		c, err := catalog.Load(conf.CatalogFile)
		if err != nil {
			return nil, nil, err
		}
		rt.catalog = c
	}

	repo, err := cfg.newRepository(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, nil, err
	}
	rt.store = record.New(repo)
	rt.retriever = retrieve.New(rt.store)

	logging.From(ctx).Debug("runtime ready",
		"data_dir", cfg.dataDir,
		"profile", cfg.profile,
		"backend", conf.Storage.Backend,
	)
	return ctx, rt, nil
}

// newRepository creates the day store selected by storage.backend
func (cfg *config) newRepository(ctx context.Context, rt *runtime) (repository.Repository, error) {
	st := rt.conf.Storage

	switch st.Backend {
	case model.BackendFile, "":
		return repository.NewFile(filepath.Join(cfg.dataDir, summariesDir)), nil

	case model.BackendFirestore:
		if st.Firestore.Project == "" {
			return nil, goerr.New("storage.firestore.project is required")
		}
		repo, err := repository.NewFirestore(ctx, st.Firestore.Project, st.Firestore.Database)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create repository")
		}
		rt.closers = append(rt.closers, repo.Close)
		return repo, nil

	default:
		return nil, goerr.New("unknown storage backend", goerr.V("backend", st.Backend))
	}
}

// newArtifacts stores screenshots and log snapshots in the archive bucket when one is
// configured, otherwise under the data directory.
func (cfg *config) newArtifacts(ctx context.Context, rt *runtime) (adapter.Artifacts, error) {
	bucket := rt.conf.Storage.ArchiveBucket
	if bucket == "" {
		return adapter.NewLocalArtifacts(cfg.dataDir), nil
	}

	gcs, err := adapter.NewGCSArtifacts(ctx, bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create artifact storage")
	}
	rt.closers = append(rt.closers, gcs.Close)
	return gcs, nil
}

// newSink returns nil when record export is not configured
func (cfg *config) newSink(ctx context.Context, rt *runtime) (adapter.RecordSink, error) {
	bq := rt.conf.Storage.BigQuery
	if !bq.Enabled() {
		return nil, nil
	}

	sink, err := adapter.NewBigQuerySink(ctx, bq.Project, bq.Dataset, bq.Table)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, sink.Close)

	if err := sink.EnsureTable(ctx); err != nil {
		return nil, err
	}
	return sink, nil
}

func (cfg *config) newGate(ctx context.Context, rt *runtime) (*alert.Gate, error) {
	policy, err := alert.LoadPolicy(ctx, rt.conf.Alert.PolicyDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load alert policy")
	}

	c := rt.conf.Capture
	return alert.NewGate(alert.NewDeduplicator(), c.AlertConfidenceThreshold, c.AlertCooldown(),
		alert.WithPolicy(policy),
		alert.WithCatalog(rt.catalog),
	), nil
}
