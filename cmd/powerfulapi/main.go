// Package main provides the PowerfulAPI service entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/Probotsvip/PowerfulAPI/internal/core"
	"github.com/Probotsvip/PowerfulAPI/internal/gate"
	httpserver "github.com/Probotsvip/PowerfulAPI/internal/http"
	"github.com/Probotsvip/PowerfulAPI/internal/proxy"
	"github.com/Probotsvip/PowerfulAPI/internal/store"
	"github.com/Probotsvip/PowerfulAPI/pkg/source"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "powerfulapi",
	Short: "PowerfulAPI - multi-source music resolution gateway",
	Long: `PowerfulAPI accepts free-text music queries, resolves them across multiple
discovery backends, and serves the result through an anonymizing stream proxy,
rate limited per API key.`,
	RunE: runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().String("public-base-url", "", "externally reachable base URL for proxy links")
	rootCmd.PersistentFlags().String("store-path", "./powerfulapi.db", "sqlite database path")
	rootCmd.PersistentFlags().String("saavn-base-url", "", "JioSaavn API base URL override")
	rootCmd.PersistentFlags().String("saavn-trending-url", "", "JioSaavn trending URL override")
	rootCmd.PersistentFlags().String("youtube-base-url", "", "YouTube base URL override")
	rootCmd.PersistentFlags().String("fallback-url", "", "generic fallback search endpoint")
	rootCmd.PersistentFlags().Duration("token-ttl", time.Hour, "proxy token lifetime")
	rootCmd.PersistentFlags().Int("max-tokens", 10000, "proxy token cache capacity")
	rootCmd.PersistentFlags().Int("burst-per-minute", 60, "per-key request burst limit (0 disables)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(keysCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("POWERFULAPI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.PublicBaseURL = viper.GetString("public-base-url")

	cfg.Sources.SaavnBaseURL = viper.GetString("saavn-base-url")
	cfg.Sources.SaavnTrendingURL = viper.GetString("saavn-trending-url")
	cfg.Sources.YouTubeBaseURL = viper.GetString("youtube-base-url")
	cfg.Sources.FallbackURL = viper.GetString("fallback-url")

	cfg.Proxy.TokenTTL = viper.GetDuration("token-ttl")
	if cfg.Proxy.TokenTTL == 0 {
		cfg.Proxy.TokenTTL = time.Hour
	}
	cfg.Proxy.MaxTokens = viper.GetInt("max-tokens")
	if cfg.Proxy.MaxTokens == 0 {
		cfg.Proxy.MaxTokens = 10000
	}

	cfg.Gate.BurstPerMinute = viper.GetInt("burst-per-minute")

	cfg.Store.Path = viper.GetString("store-path")
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./powerfulapi.db"
	}

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting PowerfulAPI",
		zap.String("version", "1.0.0"),
		zap.String("store_path", config.Store.Path))

	credentials, err := store.Open(config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer func() {
		_ = credentials.Close()
	}()

	usageLog := store.NewUsageLog(credentials.DB(), logger.Named("usage"))

	catalog := source.NewSaavnAdapter(config.Sources.SaavnBaseURL, config.Sources.SaavnTrendingURL)
	titles := source.NewYTSearchAdapter(config.Sources.YouTubeBaseURL)
	fallback := source.NewGenericAdapter(config.Sources.FallbackURL)

	resolver := core.NewResolver(catalog, titles, fallback, logger.Named("resolver"))

	var burst *gate.Burst
	if config.Gate.BurstPerMinute > 0 {
		burst = gate.NewBurst(config.Gate.BurstPerMinute)
		defer burst.Stop()
	}
	accessGate := gate.New(credentials, burst, logger.Named("gate"))

	tokens := proxy.NewTokenStore(config.Proxy.TokenTTL, config.Proxy.SweepInterval, config.Proxy.MaxTokens)
	defer tokens.Stop()
	relay := proxy.NewRelay(tokens, logger.Named("relay"))

	metrics := httpserver.NewMetrics()
	api := httpserver.NewAPI(resolver, accessGate, tokens, relay, credentials, usageLog,
		config.Server.PublicBaseURL, metrics, logger.Named("api"))
	server := httpserver.NewServer(&config.Server, api, metrics, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				metrics.ActiveTokens.Set(float64(tokens.Len()))
			}
		}
	})

	logger.Info("PowerfulAPI started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("PowerfulAPI stopped with error", zap.Error(err))
		return err
	}

	logger.Info("PowerfulAPI stopped gracefully")
	return nil
}
