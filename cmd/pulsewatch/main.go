package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pulsewatch/pulsewatch/internal/config"
	"github.com/pulsewatch/pulsewatch/internal/dispatcher"
	"github.com/pulsewatch/pulsewatch/internal/history"
	"github.com/pulsewatch/pulsewatch/internal/metrics"
	"github.com/pulsewatch/pulsewatch/internal/notify"
	"github.com/pulsewatch/pulsewatch/internal/scheduler"
	"github.com/pulsewatch/pulsewatch/internal/series"
	"github.com/pulsewatch/pulsewatch/internal/server"
	"github.com/pulsewatch/pulsewatch/internal/store"
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application wires the record store, scheduler, dispatcher and HTTP surface
type Application struct {
	config     *config.Config
	store      *store.Store
	query      series.Query
	scheduler  *scheduler.Scheduler
	dispatcher *dispatcher.Dispatcher
	sender     notify.Sender
	history    history.Store
	server     *server.HTTPServer
	metrics    *metrics.Manager

	ctx          context.Context
	cancel       context.CancelFunc
	dispatcherWG sync.WaitGroup
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initialize(); err != nil {
		cancel()
		return nil, err
	}

	return app, nil
}

func (app *Application) initialize() error {
	logCfg := app.config.Logging
	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := utils.GetLogger()

	app.metrics = metrics.NewManager()

	// Record store loads first; a malformed document aborts startup.
	st, err := store.Open(app.config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	st.SetMetricsManager(app.metrics)
	app.store = st

	query, err := series.NewInfluxQuery(&app.config.Influx)
	if err != nil {
		return fmt.Errorf("failed to create series query service: %w", err)
	}
	app.query = query

	if app.config.Telegram.BotToken != "" {
		sender, err := notify.NewTelegramSender(app.config.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("failed to create telegram sender: %w", err)
		}
		app.sender = sender
	} else {
		logger.Warn("No bot token configured, alert messages go to the log channel")
		app.sender = notify.NewLogSender()
	}

	if app.config.History.Enabled {
		hist, err := history.New(&app.config.History)
		if err != nil {
			return fmt.Errorf("failed to create history store: %w", err)
		}
		if err := hist.Connect(); err != nil {
			return fmt.Errorf("failed to connect history store: %w", err)
		}
		if err := hist.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate history store: %w", err)
		}
		app.history = hist
	}

	app.scheduler = scheduler.New(app.query, &app.config.Scheduler)
	app.scheduler.SetMetricsManager(app.metrics)

	app.dispatcher = dispatcher.New(app.store, app.scheduler, app.sender, app.history)
	app.dispatcher.SetMetricsManager(app.metrics)

	app.server = server.NewHTTPServer(&app.config.Server, app.store, app.scheduler,
		app.dispatcher, app.history, app.metrics)

	return nil
}

// Start starts the application
func (app *Application) Start() error {
	logger := utils.GetLogger()
	logger.WithField("version", AppVersion).Info("Starting pulsewatch")

	// Dispatcher consumes read-results until the scheduler closes the channel.
	app.dispatcherWG.Add(1)
	go func() {
		defer app.dispatcherWG.Done()
		app.dispatcher.Run(app.ctx)
	}()

	// Replay persisted notifications into live timers.
	app.scheduler.Replay(app.store.AllNotifications())

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if app.history != nil && app.config.History.RetentionDays > 0 {
		go app.historyCleanupLoop()
	}

	logger.WithFields(map[string]interface{}{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"influx_url":     app.config.Influx.URL,
		"active_timers":  app.scheduler.ActiveCount(),
	}).Info("pulsewatch started")

	return nil
}

// historyCleanupLoop prunes fired alerts past retention, once at startup and
// then daily, until the application context is cancelled.
func (app *Application) historyCleanupLoop() {
	logger := utils.GetLogger()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		if _, err := app.history.Cleanup(app.ctx, app.config.History.RetentionDays); err != nil {
			logger.WithField("error", err).Warn("History cleanup failed")
		}

		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	logger := utils.GetLogger()
	logger.Info("Stopping pulsewatch")

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			logger.WithField("error", err).Error("Failed to stop HTTP server")
		}
	}

	// Stopping the scheduler closes the results channel, which ends the
	// dispatcher once it has drained in-flight results.
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	app.dispatcherWG.Wait()
	app.cancel()

	if app.history != nil {
		if err := app.history.Close(); err != nil {
			logger.WithField("error", err).Error("Failed to close history store")
		}
	}

	if app.query != nil {
		if err := app.query.Close(); err != nil {
			logger.WithField("error", err).Error("Failed to close series query service")
		}
	}

	logger.Info("pulsewatch stopped")
	return nil
}

// CLI commands

var rootCmd = &cobra.Command{
	Use:     "pulsewatch",
	Short:   "Per-user threshold alerts over a time-series source",
	Long:    `pulsewatch registers threshold alerts against a time-series data source, polls each alert on its own schedule and delivers a one-shot message the moment a condition is satisfied.`,
	Version: AppVersion,
	RunE:    runApp,
}

func runApp(cmd *cobra.Command, args []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	return app.Stop()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pulsewatch %s\n", AppVersion)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("InfluxDB: %s\n", cfg.Influx.URL)
		fmt.Printf("Record document: %s\n", cfg.Store.Path)
		fmt.Printf("History: %s (%v)\n", cfg.History.Type, cfg.History.Enabled)

		return nil
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println("Testing pulsewatch connectivity...")

		fmt.Printf("Testing InfluxDB connection to %s...\n", cfg.Influx.URL)
		query, err := series.NewInfluxQuery(&cfg.Influx)
		if err != nil {
			return fmt.Errorf("failed to create query service: %w", err)
		}
		defer query.Close()
		if err := query.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("failed to reach InfluxDB: %w", err)
		}
		fmt.Println("✓ InfluxDB connection successful")

		fmt.Printf("Testing record document at %s...\n", cfg.Store.Path)
		if _, err := store.Open(cfg.Store.Path); err != nil {
			return fmt.Errorf("failed to open record store: %w", err)
		}
		fmt.Println("✓ Record document loads cleanly")

		if cfg.History.Enabled {
			fmt.Printf("Testing history storage (%s)...\n", cfg.History.Type)
			hist, err := history.New(&cfg.History)
			if err != nil {
				return fmt.Errorf("failed to create history store: %w", err)
			}
			if err := hist.Connect(); err != nil {
				return fmt.Errorf("failed to connect history store: %w", err)
			}
			defer hist.Close()
			fmt.Println("✓ History storage connection successful")
		}

		fmt.Println("\nAll connectivity tests passed! ✓")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
