package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"sjsage522/couponworker/config"
	"sjsage522/couponworker/helpers"
	"sjsage522/couponworker/internal"
	"sjsage522/couponworker/internal/crawler"
	"sjsage522/couponworker/logger"
	"sjsage522/couponworker/services/cache"
	"sjsage522/couponworker/services/output"
	"sjsage522/couponworker/services/publisher"
	"sjsage522/couponworker/services/worker"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagMode      string
	flagSegmenter string
	flagOutputDir string
)

var rootCmd = &cobra.Command{
	Use:           "couponworker",
	Short:         "couponworker collects Traveloka coupons and offers from a listing page.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape the listing once and write the reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the totals of the last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		applyFlags(cmd, cfg)
		summary, err := output.ReadSummary(filepath.Join(cfg.OutputDir, output.AllResults))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "coupons: %d\noffers: %d\ntotal: %d\n",
			summary.TotalCoupons, summary.TotalOffers, summary.TotalItems)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&flagMode, "mode", "", "acquisition mode: static or interactive")
	runCmd.Flags().StringVar(&flagSegmenter, "segmenter", "", "segmentation strategy: structural, plaintext or fragments")
	rootCmd.PersistentFlags().StringVarP(&flagOutputDir, "output", "o", "", "directory for the result files")

	rootCmd.AddCommand(runCmd, summaryCmd)
}

func main() {
	godotenv.Load()
	logger.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Default.Error().Err(err).Msg("Run failed")
		stop()
		os.Exit(1)
	}
}

// applyFlags lets explicitly set flags win over the environment
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("mode") {
		cfg.Mode = flagMode
	}
	if cmd.Flags().Changed("segmenter") {
		cfg.Segmenter = flagSegmenter
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = flagOutputDir
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Default

	log.Info().
		Str("environment", cfg.Environment).
		Str("mode", cfg.Mode).
		Str("url", cfg.SourceURL).
		Msg("Starting application")

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	c, err := crawler.CreateCrawler(cfg, services.Dependencies)
	if err != nil {
		return err
	}

	w := worker.NewWorker(
		c,
		output.NewWriter(cfg.OutputDir),
		services.Publisher,
		services.ErrorLog,
		os.Stdout,
	)
	_, err = w.Run(ctx)
	return err
}

// Services holds all the initialized services
type Services struct {
	internal.Dependencies
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices connects the optional cache and publisher. Either one is
// skipped when its address is unset or unreachable.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}
	services.ErrorLog = helpers.NewLogger(cfg.ErrorLogFile)
	services.Publisher = publisher.Nop{}

	if cfg.MemcacheAddr != "" {
		memcache := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := memcache.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unavailable, rate-limit blocking disabled")
		} else {
			services.Cache = memcache
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			logger.ForPublisher().Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, records will not be published")
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return services
}
