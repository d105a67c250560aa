// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from an optional YAML file with CAREHUB_* environment
// overrides; module overrides and the log level follow hot reloads.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/artpar/carehub/adapters/backup"
	apihttp "github.com/artpar/carehub/adapters/http"
	"github.com/artpar/carehub/adapters/http/admin"
	"github.com/artpar/carehub/adapters/metrics"
	"github.com/artpar/carehub/config"
	"github.com/artpar/carehub/core/hooks"
	"github.com/artpar/carehub/core/registry"
	"github.com/artpar/carehub/modules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Registry   *registry.Registry
	Metrics    *metrics.Collector
	Backups    *backup.FileStore
	HTTPServer *http.Server

	modules  []modules.Module
	applied  *config.Config
	gatherer prometheus.Gatherer
}

// Options configures application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When empty or missing, configuration
	// comes from defaults and the environment.
	ConfigPath string

	// Config, when set, is used instead of loading ConfigPath.
	Config *config.Config

	// Watch enables hot reload on file change and SIGHUP.
	Watch bool

	// Version is reported by /version.
	Version string

	// LogOutput receives log lines. Defaults to os.Stdout.
	LogOutput io.Writer
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.LoadWithFallback(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := setupLogger(cfg.Logging, out)
	logger.Info().Str("version", opts.Version).Msg("initializing carehub")

	a := &App{Logger: logger}

	if err := a.initConfig(opts, cfg); err != nil {
		return nil, err
	}
	cfg = a.Config.Get()
	a.applied = cfg

	if cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = metrics.NewWithRegistry(promReg)
		a.gatherer = promReg
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	a.initRegistry(cfg)

	if cfg.Backup.Dir != "" {
		store, err := backup.NewFileStore(cfg.Backup.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("init backup store: %w", err)
		}
		a.Backups = store
	}

	if err := a.loadModules(cfg); err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	a.applyOverrides(cfg.Modules.Overrides)
	registerAppHooks(a.Registry, logger)

	a.initHTTPServer(cfg, opts.Version)

	if opts.Watch && a.Config.Path() != "" {
		if err := a.Config.WatchFile(); err != nil {
			logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.Config.WatchSignals()
	}

	return a, nil
}

func (a *App) initConfig(opts Options, cfg *config.Config) error {
	if opts.Config == nil && opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			holder, err := config.NewHolder(opts.ConfigPath, a.Logger)
			if err != nil {
				return err
			}
			a.Config = holder
		}
	}
	if a.Config == nil {
		a.Config = config.NewStaticHolder(cfg, a.Logger)
	}

	a.Config.OnChange(a.onConfigChange)
	a.Config.OnError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})
	return nil
}

func (a *App) initRegistry(cfg *config.Config) {
	dispatcherOpts := []hooks.Option{hooks.WithTimeout(cfg.Hooks.Timeout)}
	registryOpts := []registry.Option{registry.WithLogger(a.Logger)}
	if a.Metrics != nil {
		dispatcherOpts = append(dispatcherOpts, hooks.WithObserver(a.Metrics))
		registryOpts = append(registryOpts, registry.WithMetrics(a.Metrics))
	}

	dispatcher := hooks.New(a.Logger, dispatcherOpts...)
	registryOpts = append(registryOpts, registry.WithHooks(dispatcher))
	a.Registry = registry.New(registryOpts...)
}

func (a *App) initHTTPServer(cfg *config.Config, version string) {
	adminDeps := admin.Deps{Registry: a.Registry, Logger: a.Logger}
	if a.Backups != nil {
		adminDeps.Backups = a.Backups
	}

	routerCfg := apihttp.RouterConfig{
		MetricsPath:  cfg.Metrics.Path,
		AdminHandler: admin.NewHandler(adminDeps).Router(),
		Version:      version,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsHandler = promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})
	}

	health := apihttp.NewHealthHandler(apihttp.HealthCheckFunc(a.checkDependencies))
	router := apihttp.NewRouter(health, a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// checkDependencies fails when any enabled module has unmet or circular
// dependencies.
func (a *App) checkDependencies(ctx context.Context) error {
	var broken []string
	for _, d := range a.Registry.GetEnabled() {
		if err := a.Registry.ValidateDependencies(d.ID); err != nil {
			broken = append(broken, err.Error())
		}
	}
	if len(broken) > 0 {
		return errors.New(strings.Join(broken, "; "))
	}
	return nil
}

func (a *App) onConfigChange(cfg *config.Config) {
	old := a.applied
	a.applied = cfg

	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && cfg.Logging.Level != old.Logging.Level {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.Hooks.Timeout != old.Hooks.Timeout {
		a.Registry.Hooks().SetTimeout(cfg.Hooks.Timeout)
	}

	changed := config.ChangedOverrides(old, cfg)
	overrides := make(map[string]config.ModuleOverride, len(changed))
	for _, id := range changed {
		if o, ok := cfg.Modules.Overrides[id]; ok {
			overrides[id] = o
		} else {
			a.Logger.Info().Str("module", id).Msg("override removed, current settings kept")
		}
	}
	a.applyOverrides(overrides)

	if a.Metrics != nil {
		a.Metrics.ConfigReloads.Inc()
		a.Metrics.ConfigLastReload.SetToCurrentTime()
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.HTTPServer.Handler
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.Config.Stop()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.saveBackups(ctx)

	for i := len(a.modules) - 1; i >= 0; i-- {
		a.modules[i].Unregister(a.Registry)
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
