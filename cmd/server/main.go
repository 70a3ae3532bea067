// Command server runs the position and ledger tracking service: SQLite
// ledger store, HTTP API, and the background price-refresh and strategy
// jobs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmallord/costbook/internal/clients/exchange"
	"github.com/jmallord/costbook/internal/clients/pricefeed"
	"github.com/jmallord/costbook/internal/config"
	"github.com/jmallord/costbook/internal/database"
	"github.com/jmallord/costbook/internal/domain"
	"github.com/jmallord/costbook/internal/modules/portfolio"
	"github.com/jmallord/costbook/internal/scheduler"
	"github.com/jmallord/costbook/internal/server"
	"github.com/jmallord/costbook/internal/strategy"
	"github.com/jmallord/costbook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("trading_enabled", cfg.EnableTrading).
		Msg("Starting ledger service")

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate ledger schema")
	}

	portfolioRepo := portfolio.NewPortfolioRepository(db.Conn(), log)
	positionRepo := portfolio.NewPositionRepository(db.Conn(), log)
	transactionRepo := portfolio.NewTransactionRepository(db.Conn(), log)
	portfolioService := portfolio.NewService(db.Conn(), portfolioRepo, positionRepo, transactionRepo, log)

	// Bootstrap the default portfolio so jobs have a target on first run
	defaultPortfolio, err := portfolioService.EnsurePortfolio(portfolio.EnsureParams{
		Name:       cfg.PortfolioName,
		MarketType: domain.MarketPrediction,
		Exchange:   cfg.PortfolioExchange,
		Currency:   cfg.PortfolioCurrency,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure default portfolio")
	}
	log.Info().
		Int64("portfolio_id", defaultPortfolio.ID).
		Str("name", defaultPortfolio.Name).
		Msg("Default portfolio ready")

	feeRate, err := decimal.NewFromString(cfg.PaperFeeRate)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.PaperFeeRate).Msg("Invalid paper fee rate")
	}

	priceFeed := pricefeed.NewClient(cfg.PriceFeedURL, log)
	paperExchange := exchange.NewPaperClient(feeRate, cfg.EnableTrading, log)

	holdStrategy := strategy.NewHoldStrategy(paperExchange, log)
	strategyRunner := strategy.NewRunner(holdStrategy, log)

	portfolioHandler := portfolio.NewHandler(portfolioService, log)

	srv := server.New(server.Config{
		Log:              log,
		DB:               db,
		PortfolioHandler: portfolioHandler,
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
	})

	sched := scheduler.New(log)
	priceRefresh := scheduler.NewPriceRefreshJob(portfolioService, priceFeed, cfg.PortfolioName, log)
	if err := sched.AddJob(cfg.PriceRefreshSchedule, priceRefresh); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price refresh job")
	}
	strategyCycle := scheduler.NewStrategyCycleJob(strategyRunner, log)
	if err := sched.AddJob(cfg.StrategySchedule, strategyCycle); err != nil {
		log.Fatal().Err(err).Msg("Failed to register strategy job")
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
