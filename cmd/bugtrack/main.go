package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/auth"
	"github.com/tgienger/bugtrack/internal/config"
	"github.com/tgienger/bugtrack/internal/db"
	"github.com/tgienger/bugtrack/internal/logging"
	"github.com/tgienger/bugtrack/internal/session"
	"github.com/tgienger/bugtrack/internal/ui"
	"github.com/tgienger/bugtrack/internal/ui/styles"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// Global flags
	configPath  string
	apiURL      string
	metricsAddr string
	verbose     bool
	noPersist   bool

	// Built in setup
	cfg           *config.Config
	logger        *zap.Logger
	database      *db.DB
	client        *api.Client
	authService   *auth.Service
	tenants       *session.Session
	metricsServer *http.Server
)

// rootCmd runs the terminal dashboard
var rootCmd = &cobra.Command{
	Use:   "bugtrack",
	Short: "Bug Track - browse and triage DBMS bug reports",
	Long: `Bug Track is a terminal client for the Bug Track API.

It lists bug reports filed against the tracked database systems, groups
them by category, and lets you search, re-categorise and discuss them.

Run without arguments to start the interactive dashboard.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runDashboard,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/bugtrack/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Bug Track API base URL (or set BUGTRACK_API_URL)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noPersist, "no-persist", false, "Keep the session tokens in memory only")

	addCommands(rootCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, rootCmd)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// execute runs root and releases whatever setup built, even when the
// command fails.
func execute(ctx context.Context, root *cobra.Command) error {
	defer teardown()
	return root.ExecuteContext(ctx)
}

// configFile is --config or the default location
func configFile() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// setup loads the config and wires the client, auth and session
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile())
	if err != nil {
		return err
	}
	c.Apply(config.Overrides{APIURL: apiURL, MetricsAddr: metricsAddr, Verbose: verbose})
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = c

	logger, err = logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}

	database, err = db.New()
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := api.NewMetrics(registry)

	client = api.NewClient(api.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	var tokens auth.TokenStore = auth.NewSettingsStore(database)
	if noPersist {
		tokens = auth.NewMemoryStore()
	}
	authService = auth.NewService(client, tokens, logger)
	client.Use(
		api.Instrument(metrics),
		api.Logging(logger),
		api.NewAuthMiddleware(authService, authService, logger, metrics),
	)
	tenants = session.New(client, database, logger)

	if cfg.MetricsAddr != "" {
		startMetricsServer(cfg.MetricsAddr, registry)
	}

	logger.Debug("bugtrack started",
		zap.String("version", version),
		zap.String("api_url", cfg.APIURL),
		zap.String("command", cmd.CommandPath()),
	)
	return nil
}

func startMetricsServer(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer = srv
	log := logger
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
}

// teardown is safe to call more than once
func teardown() {
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(ctx)
		metricsServer = nil
	}
	if database != nil {
		database.Close()
		database = nil
	}
	if logger != nil {
		_ = logger.Sync()
		logger = nil
	}
}

// runDashboard starts the interactive UI
func runDashboard(cmd *cobra.Command, args []string) error {
	app := ui.NewApp(ui.Deps{
		Auth:    authService,
		Session: tenants,
		API:     client,
		Store:   database,
		Themes:  styles.NewThemeStore(database, cfg.Theme),
		Logger:  logger,
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}
