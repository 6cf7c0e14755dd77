package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/chainscope/internal/config"
	"github.com/eddiefleurent/chainscope/internal/logging"
	"github.com/eddiefleurent/chainscope/internal/marketdata"
	"github.com/eddiefleurent/chainscope/internal/mock"
	"github.com/eddiefleurent/chainscope/internal/retry"
	"github.com/eddiefleurent/chainscope/internal/scanner"
	"github.com/eddiefleurent/chainscope/internal/storage"
)

const defaultConfigPath = "config.yaml"

// App holds the dependencies shared by every command.
type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Provider marketdata.Provider
	Store    storage.Interface
	Scanner  *scanner.Scanner

	// source names the provider in reports
	source    string
	logCloser io.Closer
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chainscope",
		Short: "Option chain positioning analytics",
		Long: `chainscope reads one expiration's option chain and reports where the
open interest sits: the max pain strike, the straddle-implied expected move,
put/call ratios and the five largest call and put open-interest walls.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	rootCmd.PersistentFlags().String("config", defaultConfigPath, "path to configuration file")
	rootCmd.PersistentFlags().Bool("mock", false, "use the synthetic market data provider")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newAnalyzeCmd(app),
		newExpirationsCmd(app),
		newScanCmd(app),
		newServeCmd(app),
	)
	return rootCmd
}

// init loads configuration and builds the provider stack. Dependencies
// already set on the App, as tests do, are kept.
func (app *App) init(cmd *cobra.Command) error {
	flags := cmd.Flags()
	useMock, _ := flags.GetBool("mock")
	debug, _ := flags.GetBool("debug")
	path, _ := flags.GetString("config")

	if app.Config == nil {
		cfg, err := loadConfig(path, flags.Changed("config"), useMock)
		if err != nil {
			return err
		}
		app.Config = cfg
	}
	if useMock {
		app.Config.Provider.Name = config.ProviderMock
	}
	if debug {
		app.Config.Environment.LogLevel = "debug"
	}

	if app.Logger == nil {
		logCfg := logging.DefaultLogConfig()
		logCfg.Level = app.Config.Environment.LogLevel
		logCfg.Format = app.Config.Environment.LogFormat
		logCfg.FilePath = app.Config.Environment.LogFile
		logCfg.Console = cmd.ErrOrStderr()
		logger, closer, err := logging.New(logCfg)
		if err != nil {
			return err
		}
		app.Logger, app.logCloser = logger, closer
	}

	if app.Provider == nil {
		app.Provider, app.source = buildProvider(app.Config, app.Logger)
	}
	if app.source == "" {
		app.source = app.Config.Provider.Name
	}
	if app.Store == nil {
		app.Store = storage.NewStorage(app.Config.Server.HistorySize)
	}
	if app.Scanner == nil {
		app.Scanner = scanner.New(app.Provider, app.Logger,
			scanner.WithRecorder(app.Store),
			scanner.WithConcurrency(app.Config.Scan.Concurrency),
			scanner.WithSource(app.source),
		)
	}
	return nil
}

func (app *App) close() {
	if app.logCloser != nil {
		_ = app.logCloser.Close()
	}
}

// loadConfig reads path. A missing default config.yaml falls back to the
// built-in defaults, as does --mock; an explicitly named file must exist.
// Without a file, TRADIER_API_KEY in the environment selects Tradier.
func loadConfig(path string, explicit, useMock bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || (explicit && !useMock) {
		return nil, err
	}

	cfg = config.Default()
	if key := os.Getenv("TRADIER_API_KEY"); key != "" && !useMock {
		cfg.Provider.Name = config.ProviderTradier
		cfg.Provider.APIKey = key
		cfg.Provider.Sandbox = os.Getenv("TRADIER_SANDBOX") == "true"
	}
	return cfg, nil
}

// buildProvider stacks retry over the circuit breaker over the Tradier client.
// Retries stop as soon as the breaker opens.
func buildProvider(cfg *config.Config, logger *logrus.Logger) (marketdata.Provider, string) {
	if cfg.UseMock() {
		logger.Info("using synthetic market data")
		return mock.NewProvider(), config.ProviderMock
	}

	api := marketdata.NewTradierAPIWithBaseURL(cfg.Provider.APIKey, cfg.Provider.Sandbox, cfg.Provider.APIEndpoint).
		WithTimeout(cfg.ProviderTimeout()).
		WithLogger(logger)

	breaker := marketdata.NewCircuitBreakerProviderWithSettings(api, marketdata.CircuitBreakerSettings{
		MaxRequests:  cfg.CircuitBreaker.MaxRequests,
		Interval:     cfg.BreakerInterval(),
		Timeout:      cfg.BreakerTimeout(),
		MinRequests:  cfg.CircuitBreaker.MinRequests,
		FailureRatio: cfg.CircuitBreaker.FailureRatio,
	}, logger)

	source := config.ProviderTradier
	if cfg.Provider.Sandbox {
		source += "-sandbox"
	}
	return retry.NewClient(breaker, logger, retry.Config{
		MaxRetries:     cfg.Retry.MaxRetries,
		InitialBackoff: cfg.RetryInitialBackoff(),
		MaxBackoff:     cfg.RetryMaxBackoff(),
		Timeout:        cfg.RetryTimeout(),
	}), source
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func requireArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}
}
