// Package fetcher runs one concurrent refresh cycle across the tracked
// symbols and reports a per-symbol outcome.
package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppf/cryptowatcher/internal/history"
	"github.com/ppf/cryptowatcher/internal/market"
)

// MarketAPI is the slice of the Binance client the fetcher consumes.
type MarketAPI interface {
	Ticker24h(ctx context.Context, symbol string) (market.Ticker, error)
	Klines(ctx context.Context, symbol string, limit int) ([]market.Kline, error)
}

var _ MarketAPI = (*market.Client)(nil)

// CycleFetcher runs one full refresh cycle.
type CycleFetcher interface {
	FetchCycle(ctx context.Context, reqs []Request) Cycle
}

// Request names one symbol to refresh. WithHistory additionally asks for
// a kline backfill, used while an asset has no samples yet.
type Request struct {
	Symbol      string
	WithHistory bool
}

// Result is the outcome for one symbol: either Err is set, or Ticker is
// non-nil and History holds the backfill when one was requested. Result
// values retain no fetcher state; the dashboard owns them after merge.
type Result struct {
	Symbol    string
	Ticker    *market.Ticker
	History   []history.Sample
	FetchedAt time.Time
	Err       error
}

// Cycle carries every result of one refresh round. It is handed over
// only after all symbols resolved, so a partially failed round still
// updates each asset that succeeded.
type Cycle struct {
	Results   []Result
	StartedAt time.Time
	Elapsed   time.Duration
}

// Options parameterise the fetcher.
type Options struct {
	HistoryLimit int
}

// Fetcher fans a refresh cycle out across symbols, one goroutine each.
type Fetcher struct {
	api          MarketAPI
	logger       zerolog.Logger
	historyLimit int
}

var _ CycleFetcher = (*Fetcher)(nil)

// New constructs a fetcher on top of a market API client.
func New(api MarketAPI, opts Options, logger zerolog.Logger) *Fetcher {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = history.DefaultCapacity
	}

	return &Fetcher{
		api:          api,
		logger:       logger.With().Str("component", "fetcher").Logger(),
		historyLimit: limit,
	}
}

// FetchCycle resolves every request concurrently and returns once all of
// them finished. Each request writes only its own result slot; a failed
// symbol records Err there without delaying or cancelling its siblings.
func (f *Fetcher) FetchCycle(ctx context.Context, reqs []Request) Cycle {
	started := time.Now()
	results := make([]Result, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(slot int, req Request) {
			defer wg.Done()
			results[slot] = f.fetchOne(ctx, req)
		}(i, req)
	}
	wg.Wait()

	cycle := Cycle{Results: results, StartedAt: started, Elapsed: time.Since(started)}
	f.logger.Debug().Int("symbols", len(reqs)).Dur("elapsed", cycle.Elapsed).Msg("fetch cycle finished")
	return cycle
}

// fetchOne resolves a single symbol. The ticker and, when requested, the
// kline backfill must both succeed; otherwise the result carries only
// the error.
func (f *Fetcher) fetchOne(ctx context.Context, req Request) Result {
	res := Result{Symbol: req.Symbol}

	ticker, err := f.api.Ticker24h(ctx, req.Symbol)
	if err != nil {
		f.logger.Warn().Str("symbol", req.Symbol).Err(err).Msg("ticker fetch failed")
		res.Err = fmt.Errorf("ticker %s: %w", req.Symbol, err)
		return res
	}

	if req.WithHistory {
		klines, err := f.api.Klines(ctx, req.Symbol, f.historyLimit)
		if err != nil {
			f.logger.Warn().Str("symbol", req.Symbol).Err(err).Msg("kline backfill failed")
			res.Err = fmt.Errorf("klines %s: %w", req.Symbol, err)
			return res
		}
		res.History = make([]history.Sample, 0, len(klines))
		for _, k := range klines {
			res.History = append(res.History, history.Sample{Time: k.OpenTime, Price: k.Close})
		}
	}

	res.Ticker = &ticker
	res.FetchedAt = time.Now()
	return res
}
