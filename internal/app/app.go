// Package app wires configuration, storage, clients and services into
// the shared core used by cmd/folio-server and cmd/folio.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ivstorm/folio/internal/clients/moex"
	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/importer"
	"github.com/ivstorm/folio/internal/interfaces"
	"github.com/ivstorm/folio/internal/services/portfolio"
	"github.com/ivstorm/folio/internal/storage/bolt"
)

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Store       interfaces.PortfolioStore
	Quotes      interfaces.QuoteClient
	Portfolios  interfaces.PortfolioService
	Importer    interfaces.RecordImporter
	StartupTime time.Time
}

// NewApp loads configuration and initializes the full service stack.
// configPath may be empty, in which case FOLIO_CONFIG and then the
// default folio.toml locations are tried.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}

	var config *common.Config
	var err error
	if configPath != "" {
		config, err = common.LoadConfig(configPath)
	} else {
		config, err = common.LoadConfig("folio.toml", filepath.Join("config", "folio.toml"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	store, err := bolt.NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	quotes := moex.NewClient(
		moex.WithBaseURL(config.Moex.BaseURL),
		moex.WithLogger(logger),
		moex.WithRateLimit(config.Moex.RateLimit),
		moex.WithTimeout(config.Moex.GetTimeout()),
	)

	app := &App{
		Config:      config,
		Logger:      logger,
		Store:       store,
		Quotes:      quotes,
		Portfolios:  portfolio.NewService(store, quotes, logger, config.Valuation.CouponTaxRate),
		Importer:    importer.NewImporter(logger),
		StartupTime: time.Now(),
	}

	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Msg("Application initialized")

	return app, nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
