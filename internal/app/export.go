package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/ppf/cryptowatcher/internal/config"
	"github.com/ppf/cryptowatcher/internal/market"
)

// smaWindow is the moving-average span drawn on exported charts.
const smaWindow = 10

// Export fetches one market's kline window and renders it as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	pair, err := a.Config.ResolvePair(opts.Coin)
	if err != nil {
		return err
	}

	client := a.newMarketClient(a.Logger)
	klines, err := client.Klines(ctx, pair.Symbol, opts.MaxPoints)
	if err != nil {
		return err
	}
	if len(klines) == 0 {
		a.Logger.Info().Str("symbol", pair.Symbol).Msg("no klines returned for export")
		return nil
	}

	downsampled := downsampleKlines(klines, opts.MaxPoints)
	a.Logger.Info().
		Str("symbol", pair.Symbol).
		Int("total", len(klines)).
		Int("exported", len(downsampled)).
		Msg("exporting klines")

	if opts.CSVPath != "" {
		if err := writeKlinesCSV(opts.CSVPath, pair, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeKlinesPNG(opts.PNGPath, pair, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleKlines(klines []market.Kline, max int) []market.Kline {
	if max <= 0 || len(klines) <= max {
		return klines
	}

	result := make([]market.Kline, 0, max)
	step := float64(len(klines)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(klines) {
			idx = len(klines) - 1
		}
		result = append(result, klines[idx])
	}
	return result
}

func writeKlinesCSV(path string, pair config.Pair, klines []market.Kline) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"open_time", "symbol", "close"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, k := range klines {
		record := []string{
			k.OpenTime.UTC().Format(time.RFC3339),
			pair.Symbol,
			k.Close.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeKlinesPNG(path string, pair config.Pair, klines []market.Kline) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(klines))
	closes := make([]float64, len(klines))
	for i, k := range klines {
		x[i] = k.OpenTime
		closes[i] = k.Close.InexactFloat64()
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Close price",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    pair.Label,
				XValues: x,
				YValues: closes,
			},
			chart.TimeSeries{
				Name:    "SMA",
				XValues: x,
				YValues: smaValues(closes, smaWindow),
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

// smaValues computes a trailing simple moving average, shrinking the
// window at the head of the series.
func smaValues(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
