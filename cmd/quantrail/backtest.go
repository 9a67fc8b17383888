package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantrail/quantrail/internal/backtest"
	"github.com/quantrail/quantrail/internal/calendar"
	"github.com/quantrail/quantrail/internal/config"
	"github.com/quantrail/quantrail/internal/core"
	"github.com/quantrail/quantrail/internal/indicator"
	"github.com/quantrail/quantrail/internal/logger"
	"github.com/quantrail/quantrail/internal/marketdata"
	"github.com/quantrail/quantrail/internal/metrics"
	"github.com/quantrail/quantrail/internal/storage/archive"
	ledgerstore "github.com/quantrail/quantrail/internal/storage/ledger"
	"github.com/quantrail/quantrail/internal/strategy"
)

var (
	backtestFrom string
	backtestTo   string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy.json]",
	Short: "Run a strategy against historical data",
	Long:  "Replay historical candles through a strategy definition and report PnL, win/loss counts and streaks",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (required)")

	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fromDate, err := time.Parse("2006-01-02", backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}
	toDate, err := time.Parse("2006-01-02", backtestTo)
	if err != nil {
		return fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}

	cfg := config.Defaults()
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Must(debug || cfg.Logging.Mode == "development")
	defer log.Sync()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading strategy definition: %w", err)
	}
	def, err := strategy.ParseDefinition(raw)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg, def, log)
	if err != nil {
		return err
	}

	report, err := engine.Run(cmd.Context(), fromDate, toDate)
	if err != nil {
		return err
	}

	printReport(report)

	if cfg.Archive.Enabled {
		path, err := archiveReport(cmd, cfg, report)
		if err != nil {
			return err
		}
		fmt.Printf("\nReport archived to %s\n", path)
	}
	return nil
}

func buildEngine(cfg *config.Config, def *strategy.Definition, log *zap.Logger) (*backtest.Engine, error) {
	holidays, err := cfg.Calendar.ParsedHolidays()
	if err != nil {
		return nil, err
	}
	cal, err := calendar.NewStaticService(cfg.Calendar.SessionOpen, cfg.Calendar.SessionClose, holidays)
	if err != nil {
		return nil, err
	}
	scheduler := calendar.NewScheduler(cal, core.Exchange(cfg.Calendar.Exchange), core.Segment(cfg.Calendar.Segment))

	source := marketdata.NewCSVSource(cfg.Data.Dir)
	fetcher := marketdata.NewSegmentedFetcher(source, marketdata.FetcherOptions{
		SegmentDays: cfg.Data.SegmentDays,
		MaxRetries:  cfg.Data.MaxRetries,
		RetryBase:   cfg.Data.RetryBase,
		Concurrency: cfg.Data.Concurrency,
	}, log)

	var ledgers ledgerstore.Repository
	switch cfg.Ledger.Driver {
	case "sqlite":
		ledgers, err = ledgerstore.NewSQLite(cfg.Ledger.DSN)
		if err != nil {
			return nil, err
		}
	default:
		ledgers = ledgerstore.NewMemoryRepository()
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	return backtest.New(def, fetcher, ledgers, scheduler, indicator.NewRegistry(), reg, log), nil
}

func archiveReport(cmd *cobra.Command, cfg *config.Config, report *backtest.Report) (string, error) {
	var (
		storage archive.Storage
		err     error
	)
	switch cfg.Archive.Type {
	case "s3":
		storage, err = archive.NewS3(archive.S3Config{
			Bucket:    cfg.Archive.S3.Bucket,
			Endpoint:  cfg.Archive.S3.Endpoint,
			Region:    cfg.Archive.S3.Region,
			AccessKey: cfg.Archive.S3.AccessKey,
			SecretKey: cfg.Archive.S3.SecretKey,
			Prefix:    cfg.Archive.S3.Prefix,
		})
	default:
		storage, err = archive.NewLocalFS(cfg.Archive.Path)
	}
	if err != nil {
		return "", err
	}
	return archive.NewReportArchive(storage).Store(cmd.Context(), report.StrategyName, time.Now(), report.Snapshot())
}

func printReport(report *backtest.Report) {
	fmt.Println("=== QUANTRAIL Backtest ===")
	fmt.Printf("Strategy: %s\n", report.StrategyName)
	fmt.Printf("Period:   %s to %s\n", report.StartDate.Format("2006-01-02"), report.EndDate.Format("2006-01-02"))
	fmt.Println()
	fmt.Printf("Trades:        %d (%d won / %d lost)\n", report.TotalTrades(), report.WinningTrades(), report.LosingTrades())
	fmt.Printf("Total points:  %.2f\n", report.TotalPoints())
	fmt.Printf("Total percent: %.2f%%\n", report.TotalPercent())
	fmt.Printf("Max gain:      %.2f\n", report.MaxGain())
	fmt.Printf("Max loss:      %.2f\n", report.MaxLoss())
	fmt.Printf("Win streak:    %d\n", report.MaxWinStreak())
	fmt.Printf("Loss streak:   %d\n", report.MaxLossStreak())
}
