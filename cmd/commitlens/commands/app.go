// Package commands holds the commitlens subcommands and the composition root they share.
package commands

import (
	"commitlens/internal/backends"
	"commitlens/internal/cache"
	"commitlens/internal/config"
	"commitlens/internal/correlate"
	"commitlens/internal/directory"
	"commitlens/internal/identity"
	"commitlens/internal/pub"
	"commitlens/internal/tracker"
	"commitlens/internal/worker"
	"context"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	ConfigEnvKey     = "COMMITLENS_CONFIG"
	ProjectDirEnvKey = "COMMITLENS_PROJECT_DIR"
	WorkersEnvKey    = "REFRESH_WORKERS"
	TopicEnvKey      = "REFRESH_TOPIC_ARN"
)

// Options are the flags shared by every subcommand.
type Options struct {
	ConfigPath string
	ProjectDir string
}

func (o *Options) Bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&o.ConfigPath, "config", "c", os.Getenv(ConfigEnvKey), "path to the .env.json config file")
	cmd.PersistentFlags().StringVarP(&o.ProjectDir, "project-dir", "p", os.Getenv(ProjectDirEnvKey), "project directory searched for .env.json")
}

func (o *Options) configPath() string {
	return config.Locate(o.ConfigPath, o.ProjectDir)
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func ConfigureLogging(level, format string) {
	if lvl, err := log.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if strings.EqualFold(format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stderr)
}

// App is everything one config file needs: its store, the directory cache built on it and the
// consumers of that cache.
type App struct {
	Registry   *config.Registry
	Config     *config.Store
	Directory  *cache.Directory
	Tracker    *tracker.Client
	Correlator *correlate.Correlator

	pool *worker.Pool
}

// NewApp builds the App for the located config file and restores the persisted cache.
func NewApp(ctx context.Context, o *Options) (*App, error) {
	reg := config.NewRegistry()
	path := o.configPath()
	store := reg.Open(path)

	stateStore, err := backends.StateBackendFromEnv(ctx, path)
	if err != nil {
		return nil, err
	}

	workers, err := strconv.Atoi(getenv(WorkersEnvKey, "2"))
	if err != nil {
		log.WithError(err).Warnf("invalid %s, using 2", WorkersEnvKey)
		workers = 2
	}
	pool := worker.NewPool(workers, workers*4)

	opts := []cache.Option{
		cache.WithStateStore(stateStore),
		cache.WithCredentialStore(store),
		cache.WithDispatcher(pool, worker.IsInteractive),
	}
	if arn := os.Getenv(TopicEnvKey); arn != "" {
		snsClient, err := backends.SNSClientFromEnv(ctx)
		if err != nil {
			pool.Close()
			return nil, err
		}
		opts = append(opts, cache.WithRefreshHook(pub.RefreshHook(pub.NewSNS(snsClient), arn, backends.CacheName(path))))
	}

	dir := cache.NewDirectory(directory.NewClient(store), identity.NewNormalizer(store), opts...)
	if err := dir.Load(ctx); err != nil {
		log.WithError(err).Warn("starting with an empty directory cache")
	}

	tr := tracker.NewClient(store)
	log.WithField("config", path).Debug("commitlens initialized")
	return &App{
		Registry:   reg,
		Config:     store,
		Directory:  dir,
		Tracker:    tr,
		Correlator: correlate.New(dir, tr),
		pool:       pool,
	}, nil
}

// Close drains background refreshes and persists the cache.
func (a *App) Close(ctx context.Context) {
	a.pool.Close()
	if err := a.Directory.Save(ctx); err != nil {
		log.WithError(err).Error("failed to save directory cache")
	}
}

// openConfig is for commands that only touch the config document.
func openConfig(o *Options) *config.Store {
	return config.NewRegistry().Open(o.configPath())
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
