package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ppf/cryptowatcher/internal/history"
)

// Price renders a full price, grouping thousands: "$42,069.42".
func Price(p decimal.Decimal) string {
	if p.LessThan(decimal.NewFromInt(1000)) {
		return fmt.Sprintf("$%.2f", p.InexactFloat64())
	}
	rounded := p.Round(2)
	whole := rounded.IntPart()
	frac := rounded.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).IntPart()
	return fmt.Sprintf("$%s.%02d", groupThousands(whole), frac)
}

// PriceShort abbreviates a price for tight spots: "$1.5k", "$1.5M".
func PriceShort(p decimal.Decimal) string {
	v := p.InexactFloat64()
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fk", v/1_000)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// Volume abbreviates a 24h volume: "1.5B", "1.5M", "1.5K", "500".
func Volume(v decimal.Decimal) string {
	f := v.InexactFloat64()
	switch {
	case f >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", f/1_000_000_000)
	case f >= 1_000_000:
		return fmt.Sprintf("%.1fM", f/1_000_000)
	case f >= 1_000:
		return fmt.Sprintf("%.1fK", f/1_000)
	default:
		return fmt.Sprintf("%.0f", f)
	}
}

// Change renders a signed 24h move with its direction arrow.
func Change(pct decimal.Decimal) string {
	arrow := "▲"
	if pct.IsNegative() {
		arrow = "▼"
	}
	return fmt.Sprintf("%s %s%%", arrow, pct.Abs().StringFixed(2))
}

// Ago humanises the time since the last completed refresh.
func Ago(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	secs := int(time.Since(t).Seconds())
	if secs < 0 {
		secs = 0
	}
	if secs < 60 {
		return fmt.Sprintf("%ds ago", secs)
	}
	return fmt.Sprintf("%dm ago", secs/60)
}

// TimeLabels picks the first, middle, and last sample times as HH:MM
// axis labels, or placeholders while the history is empty.
func TimeLabels(samples []history.Sample) [3]string {
	if len(samples) == 0 {
		return [3]string{"--:--", "--:--", "--:--"}
	}
	first := samples[0].Time
	last := samples[len(samples)-1].Time
	mid := first.Add(last.Sub(first) / 2)

	clock := func(t time.Time) string { return t.Local().Format("15:04") }
	return [3]string{clock(first), clock(mid), clock(last)}
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	b.Grow(len(s) + len(s)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}
