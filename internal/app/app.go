package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/ppf/cryptowatcher/internal/config"
	"github.com/ppf/cryptowatcher/internal/dashboard"
	"github.com/ppf/cryptowatcher/internal/fetcher"
	"github.com/ppf/cryptowatcher/internal/market"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newMarketClient(logger zerolog.Logger) *market.Client {
	return market.NewClient(market.Options{
		BaseURL:       a.Config.Market.BaseURL,
		Timeout:       a.Config.Market.RequestTimeout,
		UserAgent:     a.Config.Market.UserAgent,
		KlineInterval: a.Config.Market.KlineInterval,
	}, logger)
}

func (a *App) newFetcher(logger zerolog.Logger) *fetcher.Fetcher {
	return fetcher.New(a.newMarketClient(logger), fetcher.Options{
		HistoryLimit: a.Config.Watch.HistorySize,
	}, logger)
}

// Run starts the interactive dashboard and blocks until the user quits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("stdout is not a terminal; the dashboard needs an interactive TTY")
	}

	pairs, ignored := a.Config.Watch.Pairs()
	for _, coin := range ignored {
		a.Logger.Warn().Str("coin", coin).Msg("ignoring invalid coin")
	}
	if len(pairs) == 0 {
		return errors.New("no valid coins to track")
	}

	// The terminal belongs to the dashboard; logs go to the configured
	// file or nowhere.
	logger := a.Logger
	if a.Config.Logging.File == "" {
		logger = zerolog.Nop()
	}

	model := dashboard.NewModel(dashboard.Options{
		Pairs:       pairs,
		Interval:    a.Config.Watch.Interval,
		PageSize:    a.Config.Watch.PageSize,
		HistorySize: a.Config.Watch.HistorySize,
	}, a.newFetcher(logger), logger)

	logger.Info().
		Int("assets", len(pairs)).
		Dur("interval", a.Config.Watch.Interval).
		Msg("starting dashboard")

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			logger.Info().Msg("dashboard interrupted")
			return nil
		}
		return fmt.Errorf("dashboard terminated: %w", err)
	}

	logger.Info().Msg("dashboard stopped")
	return nil
}

// ExportOptions hold parameters for exporting a kline window.
type ExportOptions struct {
	Coin      string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// QuoteOptions configure the quote command.
type QuoteOptions struct {
	Coins []string
}
