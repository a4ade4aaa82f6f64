package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/selendra/dex-sub001/config"
	"github.com/selendra/dex-sub001/monitor"
	"github.com/selendra/dex-sub001/oracle"
	"github.com/selendra/dex-sub001/oracle/chain"
	"github.com/selendra/dex-sub001/oracle/feed"
	v1 "github.com/selendra/dex-sub001/router/v1"
	"github.com/selendra/dex-sub001/telemetry"
)

const (
	logLevelJSON = "json"
	logLevelText = "text"

	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"

	shutdownTimeout = 15 * time.Second
)

var rootCmd = &cobra.Command{
	Use:   "dex-oracle [config-file]",
	Args:  cobra.ExactArgs(1),
	Short: "dex-oracle serves pool and external prices and coordinates protocol fees.",
	Long: `A process that reconciles externally fed prices with on-chain pool prices
and TWAPs, and exposes protocol fee controller operations over HTTP. Feeders
and fee roles authenticate with a signing key per request.`,
	RunE: dexOracleCmdHandler,
}

func init() {
	rootCmd.PersistentFlags().String(flagLogLevel, zerolog.InfoLevel.String(), "logging level")
	rootCmd.PersistentFlags().String(flagLogFormat, logLevelText, "logging format; must be either json or text")

	rootCmd.AddCommand(getVersionCmd())
	rootCmd.AddCommand(getAccruedCmd())
	rootCmd.AddCommand(getVerifyCmd())
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	logLvlStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return zerolog.Logger{}, err
	}

	logLvl, err := zerolog.ParseLevel(logLvlStr)
	if err != nil {
		return zerolog.Logger{}, err
	}

	logFormatStr, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return zerolog.Logger{}, err
	}

	var logWriter io.Writer
	switch strings.ToLower(logFormatStr) {
	case logLevelJSON:
		logWriter = os.Stderr

	case logLevelText:
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}

	default:
		return zerolog.Logger{}, fmt.Errorf("invalid logging format: %s", logFormatStr)
	}

	return zerolog.New(logWriter).Level(logLvl).With().Timestamp().Logger(), nil
}

func dexOracleCmdHandler(cmd *cobra.Command, args []string) error {
	logger, err := getLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.ParseConfig(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	g, ctx := errgroup.WithContext(ctx)

	// listen for and trap any OS signal to gracefully shutdown and exit
	trapSignal(cancel, logger)

	metrics, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return err
	}

	o, closeStore, err := newOracle(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	g.Go(func() error {
		// start the process that serves the oracle over HTTP
		var m v1.Metrics
		if metrics != nil {
			m = metrics
		}
		return startServer(ctx, logger, cfg, o, m)
	})

	if cfg.Monitor.Enabled {
		mon, err := newMonitor(logger, cfg, o)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return mon.Start(ctx)
		})
	}

	// Block main process until all spawned goroutines have gracefully exited and
	// signal has been captured in the main process or if an error occurs.
	return g.Wait()
}

// newOracle dials the chain, opens the configured feed store and wires the
// oracle over them. The returned func closes the store.
func newOracle(ctx context.Context, logger zerolog.Logger, cfg config.Config) (*oracle.Oracle, func(), error) {
	client, err := chain.Dial(ctx, logger, cfg.RPC.Endpoint, cfg.ChainConfig())
	if err != nil {
		return nil, nil, err
	}

	var store feed.Store
	switch cfg.FeedStore.Backend {
	case config.FeedStoreRedis:
		store, err = feed.NewRedisStore(ctx, logger, cfg.RedisConfig())
		if err != nil {
			return nil, nil, err
		}

	default:
		store = feed.NewMemoryStore(logger)
	}

	closeStore := func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close feed store")
		}
	}

	opts := []oracle.Option{}
	if cfg.Oracle.AccrualConcurrency > 0 {
		opts = append(opts, oracle.WithAccrualConcurrency(cfg.Oracle.AccrualConcurrency))
	}

	return oracle.New(logger, cfg.OracleConfig(), client, store, opts...), closeStore, nil
}

func newMonitor(logger zerolog.Logger, cfg config.Config, o *oracle.Oracle) (*monitor.Monitor, error) {
	pairs, err := cfg.MonitorPairs()
	if err != nil {
		return nil, err
	}

	slackClient := monitor.NewSlackClient(logger, cfg.Monitor.SlackToken, cfg.Monitor.SlackChannel)
	return monitor.New(logger, o, slackClient, pairs, cfg.MonitorMaxDeviation(), cfg.Monitor.Interval), nil
}

// trapSignal will listen for any OS signal and cancel the context to exit gracefully.
func trapSignal(cancel context.CancelFunc, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh, syscall.SIGTERM)
	signal.Notify(sigCh, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("caught signal; shutting down...")
		cancel()
	}()
}

func startServer(
	ctx context.Context,
	logger zerolog.Logger,
	cfg config.Config,
	o v1.Oracle,
	metrics v1.Metrics,
) error {
	rtr := mux.NewRouter()
	v1Router := v1.New(logger, cfg, o, metrics)
	v1Router.RegisterRoutes(rtr, v1.APIPathPrefix)

	srvErrCh := make(chan error, 1)
	srv := &http.Server{
		Handler:           rtr,
		Addr:              cfg.Server.ListenAddr,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		logger.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("starting dex-oracle server...")
		srvErrCh <- srv.ListenAndServe()
	}()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			logger.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("shutting down dex-oracle server...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("failed to gracefully shutdown dex-oracle server")
				return err
			}

			return nil

		case err := <-srvErrCh:
			logger.Error().Err(err).Msg("failed to start dex-oracle server")
			return err
		}
	}
}
