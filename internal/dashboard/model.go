// Package dashboard drives the terminal UI: one Elm-style loop owning
// all asset state, fed by timer ticks, key presses, and completed fetch
// cycles.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/ppf/cryptowatcher/internal/config"
	"github.com/ppf/cryptowatcher/internal/fetcher"
	"github.com/ppf/cryptowatcher/internal/history"
	"github.com/ppf/cryptowatcher/internal/ui"
)

const statusFetching = "Fetching…"

// tickMsg fires once per refresh interval.
type tickMsg time.Time

// cycleMsg delivers a completed fetch cycle back into the loop. All
// per-symbol outcomes land in one message, so the view never shows a
// half-applied refresh.
type cycleMsg struct {
	cycle fetcher.Cycle
}

// Options parameterise the dashboard model.
type Options struct {
	Pairs       []config.Pair
	Interval    time.Duration
	PageSize    int
	HistorySize int
}

// Model is the bubbletea model for the watch loop. State is mutated
// only inside Update; fetches run as commands and re-enter as cycleMsg.
type Model struct {
	assets  []*Asset
	index   map[string]*Asset
	fetcher fetcher.CycleFetcher
	logger  zerolog.Logger

	interval time.Duration
	pageSize int

	page       int
	width      int
	height     int
	fetching   bool
	quitting   bool
	status     string
	lastUpdate time.Time
}

// NewModel builds the dashboard over the given pairs. The initial fetch
// is launched by Init, so the model starts with a cycle marked in
// flight.
func NewModel(opts Options, f fetcher.CycleFetcher, logger zerolog.Logger) Model {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > config.MaxPageSize {
		pageSize = config.MaxPageSize
	}

	m := Model{
		assets:   make([]*Asset, 0, len(opts.Pairs)),
		index:    make(map[string]*Asset, len(opts.Pairs)),
		fetcher:  f,
		logger:   logger.With().Str("component", "dashboard").Logger(),
		interval: interval,
		pageSize: pageSize,
		fetching: true,
		status:   statusFetching,
	}
	for _, pair := range opts.Pairs {
		asset := newAsset(pair, opts.HistorySize)
		m.assets = append(m.assets, asset)
		m.index[asset.Symbol] = asset
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("cryptowatcher"), m.startCycle(), m.tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			cmd := m.maybeStartCycle()
			return m, cmd
		case key.Matches(msg, keys.Next):
			m.nextPage()
		case key.Matches(msg, keys.Prev):
			m.prevPage()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		cmd := m.maybeStartCycle()
		return m, tea.Batch(cmd, m.tick())

	case cycleMsg:
		m.applyCycle(msg.cycle)
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}
	return ui.Render(m.frame())
}

// tick schedules the next timer event. It always reschedules, even while
// a cycle is in flight, so the cadence survives skipped refreshes.
func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// maybeStartCycle launches a refresh unless one is already running.
func (m *Model) maybeStartCycle() tea.Cmd {
	if m.fetching {
		m.logger.Debug().Msg("fetch cycle already in flight, skipping")
		return nil
	}
	m.fetching = true
	m.status = statusFetching
	return m.startCycle()
}

// startCycle returns the command that runs one fetch cycle off the loop.
// Assets with an empty history also request a kline backfill.
func (m *Model) startCycle() tea.Cmd {
	reqs := make([]fetcher.Request, len(m.assets))
	for i, asset := range m.assets {
		reqs[i] = fetcher.Request{
			Symbol:      asset.Symbol,
			WithHistory: asset.History.Len() == 0,
		}
	}
	f := m.fetcher
	return func() tea.Msg {
		return cycleMsg{cycle: f.FetchCycle(context.Background(), reqs)}
	}
}

// applyCycle merges one completed cycle into the asset map. Failed
// symbols keep their previous data and only record the error.
func (m *Model) applyCycle(c fetcher.Cycle) {
	m.fetching = false

	failed := 0
	for _, res := range c.Results {
		asset, ok := m.index[res.Symbol]
		if !ok {
			m.logger.Warn().Str("symbol", res.Symbol).Msg("result for untracked symbol")
			continue
		}
		if res.Err != nil {
			failed++
			asset.LastErr = res.Err
			continue
		}
		m.merge(asset, res)
	}

	m.lastUpdate = time.Now()
	if failed > 0 {
		m.status = fmt.Sprintf("%d of %d updates failed", failed, len(c.Results))
	} else {
		m.status = ""
	}
}

func (m *Model) merge(asset *Asset, res fetcher.Result) {
	asset.LastErr = nil

	if len(res.History) > 0 {
		if err := asset.History.BulkLoad(res.History); err != nil {
			m.logger.Error().Str("symbol", asset.Symbol).Err(err).Msg("history backfill rejected")
		}
	}

	sample := history.Sample{Time: res.FetchedAt, Price: res.Ticker.LastPrice}
	if err := asset.History.Append(sample); err != nil {
		if errors.Is(err, history.ErrStaleSample) {
			m.logger.Debug().Str("symbol", asset.Symbol).Time("at", res.FetchedAt).Msg("dropping stale sample")
		} else {
			m.logger.Warn().Str("symbol", asset.Symbol).Err(err).Msg("sample append failed")
		}
	}

	asset.High24h = res.Ticker.High
	asset.Low24h = res.Ticker.Low
	asset.Volume24h = res.Ticker.Volume
	asset.ChangePct = res.Ticker.ChangePercent
	asset.LastUpdated = res.FetchedAt
}

func (m *Model) pages() int {
	n := (len(m.assets) + m.pageSize - 1) / m.pageSize
	if n == 0 {
		n = 1
	}
	return n
}

func (m *Model) nextPage() {
	if m.page < m.pages()-1 {
		m.page++
	}
}

func (m *Model) prevPage() {
	if m.page > 0 {
		m.page--
	}
}

func (m *Model) visible() []*Asset {
	lo := m.page * m.pageSize
	hi := lo + m.pageSize
	if hi > len(m.assets) {
		hi = len(m.assets)
	}
	return m.assets[lo:hi]
}

// frame projects current state into the renderer's input. Histories are
// snapshotted so the renderer never holds live buffer internals.
func (m *Model) frame() ui.Frame {
	f := ui.Frame{
		Width:      m.width,
		Height:     m.height,
		Page:       m.page + 1,
		Pages:      m.pages(),
		Status:     m.status,
		LastUpdate: m.lastUpdate,
	}
	for _, asset := range m.visible() {
		f.Assets = append(f.Assets, ui.AssetView{
			Label:     asset.Label,
			ChangePct: asset.ChangePct,
			High:      asset.High24h,
			Low:       asset.Low24h,
			Volume:    asset.Volume24h,
			Stale:     asset.LastErr != nil,
			Samples:   asset.History.Snapshot(),
		})
	}
	return f
}
