package main

import (
	"call-forecast/config"
	"call-forecast/engine"
	"call-forecast/formatter"
	"call-forecast/logging"
	"call-forecast/metrics"
	"call-forecast/server"
	"call-forecast/source"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	logLevel   string

	// Shared run flags
	input           string
	hours           int
	timezone        string
	successStatuses []string

	// forecast flags
	format      string
	showBuckets bool
	pushGateway string

	// serve flags
	listenAddr      string
	refreshSchedule string
)

var rootCmd = &cobra.Command{
	Use:           "callforecast",
	Short:         "Forecast hourly call volume and answer rate from call logs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print a forecast for the coming hours",
	Long: `Read call logs once and print the hourly forecast.

Examples:
  # Forecast the next 24 hours from a CSV export
  callforecast forecast --input calls.csv

  # JSON for the next 48 hours, counting RESOLVED as success
  callforecast forecast --input calls.csv --hours 48 --format json --success-status RESOLVED

  # Read from the database configured in config.yaml and push metrics
  callforecast forecast --config config.yaml --push-url http://localhost:9091`,
	RunE: runForecast,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the forecast over HTTP and refresh it on a schedule",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $CONFIG_PATH or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&input, "input", "", "input CSV file (selects the csv source)")
	rootCmd.PersistentFlags().IntVar(&hours, "hours", 0, "forecast horizon in hours (default 24 from config; 0 prints an empty forecast)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA timezone of the call logs")
	rootCmd.PersistentFlags().StringSliceVar(&successStatuses, "success-status", nil, "status counted as answered (repeatable)")

	forecastCmd.Flags().StringVar(&format, "format", "", "output format: text|json|csv")
	forecastCmd.Flags().BoolVar(&showBuckets, "buckets", false, "also print the historical buckets")
	forecastCmd.Flags().StringVar(&pushGateway, "push-url", "", "Pushgateway URL to push metrics to (e.g., http://localhost:9091)")

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (e.g., :8080)")
	serveCmd.Flags().StringVar(&refreshSchedule, "schedule", "", "cron expression for refreshes (e.g., \"*/15 * * * *\")")

	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies flags
// that were set explicitly before validating.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Read(path)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Source.Driver = "csv"
		cfg.Source.Path = input
	}
	if flags.Changed("hours") {
		cfg.HorizonHours = hours
	}
	if flags.Changed("timezone") {
		cfg.Timezone = timezone
	}
	if flags.Changed("success-status") {
		cfg.SuccessStatuses = successStatuses
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("format") {
		cfg.OutputFormat = format
	}
	if flags.Changed("push-url") {
		cfg.PushURL = pushGateway
	}
	if flags.Changed("listen") {
		cfg.ListenAddr = listenAddr
	}
	if flags.Changed("schedule") {
		cfg.RefreshSchedule = refreshSchedule
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (config.Config, *zap.Logger, *engine.Engine, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, nil, nil, err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, nil, nil, err
	}

	src, closeSrc, err := source.FromConfig(cmd.Context(), cfg.Source)
	if err != nil {
		logger.Sync()
		return config.Config{}, nil, nil, nil, err
	}

	eng := engine.New(src, engine.Options{
		Horizon:       cfg.HorizonHours,
		SuccessLabels: cfg.SuccessStatuses,
		Location:      cfg.Location,
	}, logger)

	cleanup := func() error {
		err := closeSrc()
		logger.Sync()
		return err
	}
	return cfg, logger, eng, cleanup, nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, logger, eng, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := eng.Run(cmd.Context(), time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch cfg.OutputFormat {
	case "json":
		fmt.Fprintln(out, formatter.FormatJSON(result))
	case "csv":
		fmt.Fprint(out, formatter.FormatCSV(result))
	default: // "text"
		fmt.Fprint(out, formatter.FormatText(result))
	}
	if showBuckets {
		fmt.Fprintln(out)
		fmt.Fprint(out, formatter.FormatBuckets(result.Buckets))
	}

	if cfg.PushURL != "" {
		jobName := "call_forecast"
		if err := push.New(cfg.PushURL, jobName).Gatherer(metrics.Registry).Push(); err != nil {
			logger.Error("error pushing to Pushgateway", zap.Error(err))
		} else {
			logger.Info("metrics pushed to Pushgateway", zap.String("url", cfg.PushURL))
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, eng, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(eng, server.Config{
		ListenAddr:      cfg.ListenAddr,
		RefreshSchedule: cfg.RefreshSchedule,
		Location:        cfg.Location,
	}, logger)
	return srv.Start(ctx)
}
