package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ppf/cryptowatcher/internal/config"
	"github.com/ppf/cryptowatcher/internal/fetcher"
	"github.com/ppf/cryptowatcher/internal/history"
	"github.com/ppf/cryptowatcher/internal/market"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubFetcher struct {
	mu       sync.Mutex
	calls    int
	lastReqs []fetcher.Request
	cycle    fetcher.Cycle
}

func (s *stubFetcher) FetchCycle(_ context.Context, reqs []fetcher.Request) fetcher.Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastReqs = reqs
	return s.cycle
}

func testPairs(coins ...string) []config.Pair {
	pairs := make([]config.Pair, len(coins))
	for i, c := range coins {
		pairs[i] = config.Pair{Symbol: c + "USDT", Label: c + "/USDT"}
	}
	return pairs
}

func newTestModel(stub *stubFetcher, coins ...string) Model {
	return NewModel(Options{
		Pairs:       testPairs(coins...),
		Interval:    time.Minute,
		PageSize:    4,
		HistorySize: 60,
	}, stub, noopLogger())
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func seedHistory(t *testing.T, a *Asset, n int, base time.Time, startPrice int64) {
	t.Helper()
	samples := make([]history.Sample, n)
	for i := range samples {
		samples[i] = history.Sample{
			Time:  base.Add(time.Duration(i) * time.Minute),
			Price: decimal.NewFromInt(startPrice + int64(i)),
		}
	}
	if err := a.History.BulkLoad(samples); err != nil {
		t.Fatalf("seed history: %v", err)
	}
}

func TestPaginationBounds(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC", "ETH", "SOL", "DOGE", "ADA", "XRP")
	if got := m.pages(); got != 2 {
		t.Fatalf("pages = %d, want 2", got)
	}

	var tm tea.Model = m
	step := func(key string, wantPage int) {
		t.Helper()
		tm, _ = tm.Update(keyMsg(key))
		if got := tm.(Model).page; got != wantPage {
			t.Fatalf("after %s: page = %d, want %d", key, got, wantPage)
		}
	}

	step("right", 1)
	step("right", 1) // already at the last page
	step("left", 0)
	step("left", 0) // already at the first page

	if got := len(tm.(Model).visible()); got != 4 {
		t.Errorf("visible on page 0 = %d assets, want 4", got)
	}
	tm, _ = tm.Update(keyMsg("right"))
	if got := len(tm.(Model).visible()); got != 2 {
		t.Errorf("visible on page 1 = %d assets, want 2", got)
	}
}

func TestQuitDoesNotWaitForFetch(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC")
	if !m.fetching {
		t.Fatal("model should start with the initial cycle in flight")
	}

	tm, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("quit produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit command did not produce tea.QuitMsg")
	}
	if !tm.(Model).quitting {
		t.Error("model not marked as quitting")
	}
	if got := tm.(Model).View(); got != "" {
		t.Errorf("quitting view = %q, want empty", got)
	}
}

func TestRefreshSkippedWhileCycleInFlight(t *testing.T) {
	stub := &stubFetcher{}
	m := newTestModel(stub, "BTC")

	// Initial cycle still marked in flight: refresh is a no-op.
	tm, cmd := m.Update(keyMsg("r"))
	if cmd != nil {
		t.Fatal("refresh while fetching should not start a cycle")
	}

	// Completing the cycle re-arms the refresh key.
	tm, _ = tm.Update(cycleMsg{})
	if tm.(Model).fetching {
		t.Fatal("fetching flag not cleared by cycle completion")
	}
	tm, cmd = tm.Update(keyMsg("r"))
	if cmd == nil {
		t.Fatal("refresh after completion should start a cycle")
	}
	if !tm.(Model).fetching {
		t.Error("fetching flag not set")
	}

	if msg := cmd(); stub.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", stub.calls)
	} else if _, ok := msg.(cycleMsg); !ok {
		t.Errorf("refresh command produced %T, want cycleMsg", msg)
	}
}

func TestTickAlwaysReschedules(t *testing.T) {
	stub := &stubFetcher{}
	m := newTestModel(stub, "BTC")

	// Tick during an in-flight cycle: no new fetch, but the timer chain
	// must continue.
	tm, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick must reschedule even while fetching")
	}
	if stub.calls != 0 {
		t.Errorf("fetcher calls = %d, want 0", stub.calls)
	}

	tm, _ = tm.Update(cycleMsg{})
	tm, cmd = tm.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick after completion produced no command")
	}
	if !tm.(Model).fetching {
		t.Error("tick after completion should start a cycle")
	}
}

func TestApplyCycleMergesSuccessAndFailureAtomically(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC", "ETH")
	base := time.Now().Add(-2 * time.Hour)
	seedHistory(t, m.index["BTCUSDT"], 60, base, 40000)
	seedHistory(t, m.index["ETHUSDT"], 60, base, 3000)

	fetchedAt := time.Now()
	cycle := fetcher.Cycle{Results: []fetcher.Result{
		{
			Symbol: "BTCUSDT",
			Ticker: &market.Ticker{
				Symbol:        "BTCUSDT",
				LastPrice:     decimal.NewFromInt(50000),
				High:          decimal.NewFromInt(51000),
				Low:           decimal.NewFromInt(49000),
				Volume:        decimal.NewFromInt(28000),
				ChangePercent: decimal.RequireFromString("2.5"),
			},
			FetchedAt: fetchedAt,
		},
		{Symbol: "ETHUSDT", Err: errors.New("connection timed out")},
	}}

	tm, _ := m.Update(cycleMsg{cycle: cycle})
	got := tm.(Model)

	btc := got.index["BTCUSDT"]
	if btc.History.Len() != 60 {
		t.Errorf("BTC history len = %d, want 60 (oldest evicted)", btc.History.Len())
	}
	if last, _ := btc.History.Last(); !last.Price.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("BTC newest price = %s, want 50000", last.Price)
	}
	if snap := btc.History.Snapshot(); !snap[0].Time.Equal(base.Add(time.Minute)) {
		t.Errorf("BTC oldest sample = %v, want first seeded sample evicted", snap[0].Time)
	}
	if btc.LastErr != nil {
		t.Errorf("BTC lastErr = %v, want nil", btc.LastErr)
	}
	if !btc.High24h.Equal(decimal.NewFromInt(51000)) {
		t.Errorf("BTC high = %s", btc.High24h)
	}
	if !btc.LastUpdated.Equal(fetchedAt) {
		t.Errorf("BTC lastUpdated = %v", btc.LastUpdated)
	}

	eth := got.index["ETHUSDT"]
	if eth.History.Len() != 60 {
		t.Errorf("ETH history len = %d, want unchanged 60", eth.History.Len())
	}
	if last, _ := eth.History.Last(); !last.Price.Equal(decimal.NewFromInt(3059)) {
		t.Errorf("ETH newest price = %s, want last seeded 3059", last.Price)
	}
	if eth.LastErr == nil {
		t.Error("ETH lastErr not set")
	}

	if got.fetching {
		t.Error("fetching flag not cleared")
	}
	if got.status != "1 of 2 updates failed" {
		t.Errorf("status = %q", got.status)
	}
}

func TestApplyCycleBulkLoadsFirstBackfill(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC")
	base := time.Now().Add(-15 * time.Hour)

	backfill := make([]history.Sample, 60)
	for i := range backfill {
		backfill[i] = history.Sample{
			Time:  base.Add(time.Duration(i) * 15 * time.Minute),
			Price: decimal.NewFromInt(41000 + int64(i)),
		}
	}
	cycle := fetcher.Cycle{Results: []fetcher.Result{{
		Symbol:    "BTCUSDT",
		Ticker:    &market.Ticker{Symbol: "BTCUSDT", LastPrice: decimal.NewFromInt(50000)},
		History:   backfill,
		FetchedAt: time.Now(),
	}}}

	tm, _ := m.Update(cycleMsg{cycle: cycle})
	btc := tm.(Model).index["BTCUSDT"]

	if btc.History.Len() != 60 {
		t.Fatalf("history len = %d, want 60 after backfill plus live sample", btc.History.Len())
	}
	if last, _ := btc.History.Last(); !last.Price.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("newest price = %s, want live ticker price", last.Price)
	}
	if snap := btc.History.Snapshot(); !snap[0].Time.Equal(backfill[1].Time) {
		t.Errorf("oldest sample = %v, want first backfill sample evicted", snap[0].Time)
	}

	// A later cycle without a backfill only appends.
	cycle2 := fetcher.Cycle{Results: []fetcher.Result{{
		Symbol:    "BTCUSDT",
		Ticker:    &market.Ticker{Symbol: "BTCUSDT", LastPrice: decimal.NewFromInt(50100)},
		FetchedAt: time.Now().Add(time.Second),
	}}}
	tm, _ = tm.Update(cycleMsg{cycle: cycle2})
	btc = tm.(Model).index["BTCUSDT"]
	if btc.History.Len() != 60 {
		t.Errorf("history len = %d, want 60", btc.History.Len())
	}
	if last, _ := btc.History.Last(); !last.Price.Equal(decimal.NewFromInt(50100)) {
		t.Errorf("newest price = %s, want 50100", last.Price)
	}
}

func TestApplyCycleRejectsBackfillForPopulatedAsset(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC")
	base := time.Now().Add(-time.Hour)
	seedHistory(t, m.index["BTCUSDT"], 10, base, 40000)

	backfill := make([]history.Sample, 5)
	for i := range backfill {
		backfill[i] = history.Sample{
			Time:  base.Add(time.Duration(i) * time.Second),
			Price: decimal.NewFromInt(1),
		}
	}
	cycle := fetcher.Cycle{Results: []fetcher.Result{{
		Symbol:    "BTCUSDT",
		Ticker:    &market.Ticker{Symbol: "BTCUSDT", LastPrice: decimal.NewFromInt(50000)},
		History:   backfill,
		FetchedAt: time.Now(),
	}}}

	tm, _ := m.Update(cycleMsg{cycle: cycle})
	btc := tm.(Model).index["BTCUSDT"]

	// The stray backfill is rejected; only the live sample lands.
	if btc.History.Len() != 11 {
		t.Fatalf("history len = %d, want 11", btc.History.Len())
	}
	if snap := btc.History.Snapshot(); !snap[0].Time.Equal(base) {
		t.Errorf("oldest sample = %v, want seeded history intact", snap[0].Time)
	}
	if last, _ := btc.History.Last(); !last.Price.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("newest price = %s, want live ticker price", last.Price)
	}
}

func TestApplyCycleDropsStaleSampleButKeepsStats(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC")
	base := time.Now().Add(-time.Hour)
	seedHistory(t, m.index["BTCUSDT"], 10, base, 40000)
	last, _ := m.index["BTCUSDT"].History.Last()

	cycle := fetcher.Cycle{Results: []fetcher.Result{{
		Symbol: "BTCUSDT",
		Ticker: &market.Ticker{
			Symbol:    "BTCUSDT",
			LastPrice: decimal.NewFromInt(99999),
			High:      decimal.NewFromInt(123),
		},
		FetchedAt: last.Time, // not after the newest stored sample
	}}}

	tm, _ := m.Update(cycleMsg{cycle: cycle})
	btc := tm.(Model).index["BTCUSDT"]

	if btc.History.Len() != 10 {
		t.Errorf("history len = %d, want unchanged 10", btc.History.Len())
	}
	if got, _ := btc.History.Last(); !got.Price.Equal(last.Price) {
		t.Errorf("newest price = %s, want unchanged %s", got.Price, last.Price)
	}
	if !btc.High24h.Equal(decimal.NewFromInt(123)) {
		t.Errorf("high = %s, want stats still applied", btc.High24h)
	}
	if btc.LastErr != nil {
		t.Errorf("lastErr = %v, want nil (stale sample is not user-facing)", btc.LastErr)
	}
}

func TestStartCycleRequestsBackfillOnlyForEmptyHistories(t *testing.T) {
	stub := &stubFetcher{}
	m := newTestModel(stub, "BTC", "ETH")
	seedHistory(t, m.index["BTCUSDT"], 5, time.Now().Add(-time.Hour), 40000)

	m.startCycle()()

	if len(stub.lastReqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(stub.lastReqs))
	}
	for _, req := range stub.lastReqs {
		wantHistory := req.Symbol == "ETHUSDT"
		if req.WithHistory != wantHistory {
			t.Errorf("%s WithHistory = %v, want %v", req.Symbol, req.WithHistory, wantHistory)
		}
	}
}

func TestWindowResize(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC")
	tm, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	got := tm.(Model)
	if got.width != 120 || got.height != 40 {
		t.Errorf("size = %dx%d, want 120x40", got.width, got.height)
	}
}

func TestUnknownKeyIgnored(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC", "ETH", "SOL", "DOGE", "ADA")
	tm, cmd := m.Update(keyMsg("x"))
	if cmd != nil {
		t.Error("unknown key produced a command")
	}
	if got := tm.(Model); got.page != 0 || got.quitting {
		t.Errorf("unknown key changed state: %+v", got)
	}
}

func TestViewBeforeFirstResize(t *testing.T) {
	m := newTestModel(&stubFetcher{}, "BTC")
	if got := m.View(); got != "loading..." {
		t.Errorf("view = %q, want loading placeholder", got)
	}
}
