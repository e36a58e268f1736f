package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ppf/cryptowatcher/internal/config"
	"github.com/ppf/cryptowatcher/internal/history"
)

// Asset aggregates everything the dashboard tracks for one market: the
// rolling price window, the latest 24h statistics, and the outcome of
// the most recent fetch. Owned and mutated only by the dashboard loop.
type Asset struct {
	Symbol string
	Label  string

	History *history.Buffer

	High24h   decimal.Decimal
	Low24h    decimal.Decimal
	Volume24h decimal.Decimal
	ChangePct decimal.Decimal

	LastErr     error
	LastUpdated time.Time
}

func newAsset(pair config.Pair, capacity int) *Asset {
	return &Asset{
		Symbol:  pair.Symbol,
		Label:   pair.Label,
		History: history.NewBuffer(capacity),
	}
}
