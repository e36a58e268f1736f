package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ppf/cryptowatcher/internal/config"
	"github.com/ppf/cryptowatcher/internal/fetcher"
)

// Quote fetches 24h stats once and prints them as a table.
func (a *App) Quote(ctx context.Context, opts QuoteOptions) error {
	watch := a.Config.Watch
	if len(opts.Coins) > 0 {
		watch = config.WatchConfig{Coins: opts.Coins, QuoteAsset: a.Config.Watch.QuoteAsset}
	}

	pairs, ignored := watch.Pairs()
	for _, coin := range ignored {
		a.Logger.Warn().Str("coin", coin).Msg("ignoring invalid coin")
	}
	if len(pairs) == 0 {
		return errors.New("no valid coins to quote")
	}

	reqs := make([]fetcher.Request, len(pairs))
	for i, pair := range pairs {
		reqs[i] = fetcher.Request{Symbol: pair.Symbol}
	}
	cycle := a.newFetcher(a.Logger).FetchCycle(ctx, reqs)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Pair\tPrice\t24h%\tHigh\tLow\tVolume\tError")

	for i, res := range cycle.Results {
		label := pairs[i].Label
		if res.Err != nil {
			fmt.Fprintf(writer, "%s\t-\t-\t-\t-\t-\t%s\n", label, sanitizeInline(res.Err.Error()))
			continue
		}
		ticker := res.Ticker
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t\n",
			label,
			formatDecimal(ticker.LastPrice, 2),
			formatDecimal(ticker.ChangePercent, 2),
			formatDecimal(ticker.High, 2),
			formatDecimal(ticker.Low, 2),
			formatDecimal(ticker.Volume, 2),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
