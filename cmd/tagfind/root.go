package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/config"
	"github.com/hupe1980/tagfind/internal/app"
	tagprom "github.com/hupe1980/tagfind/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli holds the state shared by all commands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "tagfind",
		Short: "Find graph vertices by tag intersection",
		Long: `tagfind attaches tags (name=value attributes) to graph vertices and finds
the vertices carrying all of a given set of tags.

Vertices live in one of several backends (memory, badger, s3, minio,
dynamodb, neo4j) selected by configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("driver", config.DriverMemory, "backend driver (memory, badger, s3, minio, dynamodb, neo4j)")
	flags.String("badger-dir", "", "badger data directory")

	// Bind flags to viper
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = c.v.BindPFlag("backend.driver", flags.Lookup("driver"))
	_ = c.v.BindPFlag("backend.badger.dir", flags.Lookup("badger-dir"))

	rootCmd.AddCommand(
		c.newFindCmd(),
		c.newTagCmd(),
		c.newShowCmd(),
		c.newLoadCmd(),
		c.newServeCmd(),
	)
	return rootCmd
}

// initConfig reads the config file if one was given.
func (c *cli) initConfig() error {
	if c.cfgFile == "" {
		return nil
	}
	c.v.SetConfigFile(c.cfgFile)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// session is an opened backend with a tag store on top.
type session struct {
	cfg      *config.Config
	logger   *tagfind.Logger
	backend  *app.Backend
	store    *tagfind.TagStore
	registry *prometheus.Registry
	metrics  *tagprom.Collector
}

func (c *cli) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load(c.v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Log, c.stderr)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}

	var mc tagfind.MetricsCollector = tagfind.NoopMetricsCollector{}
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.metrics, err = tagprom.New(s.registry, cfg.Metrics.Namespace)
		if err != nil {
			return nil, err
		}
		mc = s.metrics
	}

	s.backend, err = app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend: %w", err)
	}
	s.store = tagfind.NewTagStore(s.backend.Graph, app.EngineOptions(cfg.Engine, logger, mc)...)
	return s, nil
}

func (s *session) close(ctx context.Context) {
	if err := s.backend.Close(ctx); err != nil {
		s.logger.Error("failed to close backend", "error", err)
	}
}

// withTimeout applies the configured per-operation timeout.
func (s *session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Engine.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Engine.Timeout)
	}
	return context.WithCancel(ctx)
}
