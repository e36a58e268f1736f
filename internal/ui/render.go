// Package ui projects dashboard state into a styled terminal frame. It
// never mutates its input and writes nothing itself; the caller hands
// the returned string to the terminal runtime.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"github.com/ppf/cryptowatcher/internal/history"
)

const statusBarHeight = 3

// AssetView is one panel's worth of display data, detached from live
// dashboard state.
type AssetView struct {
	Label     string
	ChangePct decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    decimal.Decimal
	Stale     bool
	Samples   []history.Sample
}

// Frame is everything the renderer needs for one draw.
type Frame struct {
	Width      int
	Height     int
	Page       int
	Pages      int
	Status     string
	LastUpdate time.Time
	Assets     []AssetView
}

// Render draws the visible page of asset panels plus the status bar.
func Render(f Frame) string {
	if f.Width < 24 || f.Height < 8 {
		return "terminal too small"
	}
	grid := renderGrid(f.Assets, f.Width, f.Height-statusBarHeight)
	return lipgloss.JoinVertical(lipgloss.Left, grid, renderStatusBar(f))
}

// renderGrid lays panels out by count: one full-screen, two side by
// side, three as one wide over two, four and up as a 2x2 grid.
func renderGrid(assets []AssetView, w, h int) string {
	switch len(assets) {
	case 0:
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center,
			mutedStyle.Render("no markets tracked"))
	case 1:
		return renderPanel(assets[0], 0, w, h)
	case 2:
		lw := w / 2
		return lipgloss.JoinHorizontal(lipgloss.Top,
			renderPanel(assets[0], 0, lw, h),
			renderPanel(assets[1], 1, w-lw, h),
		)
	case 3:
		th := h / 2
		lw := w / 2
		bottom := lipgloss.JoinHorizontal(lipgloss.Top,
			renderPanel(assets[1], 1, lw, h-th),
			renderPanel(assets[2], 2, w-lw, h-th),
		)
		return lipgloss.JoinVertical(lipgloss.Left,
			renderPanel(assets[0], 0, w, th), bottom)
	default:
		th := h / 2
		lw := w / 2
		top := lipgloss.JoinHorizontal(lipgloss.Top,
			renderPanel(assets[0], 0, lw, th),
			renderPanel(assets[1], 1, w-lw, th),
		)
		bottom := lipgloss.JoinHorizontal(lipgloss.Top,
			renderPanel(assets[2], 2, lw, h-th),
			renderPanel(assets[3], 3, w-lw, h-th),
		)
		return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
	}
}

func renderPanel(av AssetView, idx, w, h int) string {
	color := chartColors[idx%len(chartColors)]
	innerW, innerH := w-2, h-2
	if innerW < 1 || innerH < 1 {
		return ""
	}

	chartH := innerH - 2
	showLabels := chartH >= 1
	if !showLabels {
		chartH = innerH - 1
	}

	parts := []string{panelTitle(av, color, innerW)}
	if chartH >= 1 {
		parts = append(parts, panelBody(av, color, innerW, chartH))
	}
	if showLabels {
		parts = append(parts, timeAxis(av.Samples, innerW))
	}

	return panelStyle.Width(innerW).Height(innerH).Render(strings.Join(parts, "\n"))
}

// panelTitle assembles the header line, dropping trailing segments until
// it fits the panel width.
func panelTitle(av AssetView, color lipgloss.Color, maxW int) string {
	price := decimal.Zero
	if n := len(av.Samples); n > 0 {
		price = av.Samples[n-1].Price
	}

	changeStyle := positiveStyle
	if av.ChangePct.IsNegative() {
		changeStyle = negativeStyle
	}

	div := dividerStyle.Render(" │ ")
	segments := []string{
		markerStyle.Render("◈ ") + lipgloss.NewStyle().Foreground(color).Bold(true).Render(av.Label),
		priceStyle.Render(Price(price)),
		changeStyle.Render(Change(av.ChangePct)),
		mutedStyle.Render("H:" + PriceShort(av.High) + " L:" + PriceShort(av.Low)),
		mutedStyle.Render("Vol:" + Volume(av.Volume)),
	}
	suffix := markerStyle.Render(" ◈")
	if av.Stale {
		suffix = staleStyle.Render(" ⚠ stale")
	}

	for n := len(segments); n >= 2; n-- {
		title := strings.Join(segments[:n], div) + suffix
		if lipgloss.Width(title) <= maxW {
			return title
		}
	}
	return truncate(av.Label, maxW)
}

func panelBody(av AssetView, color lipgloss.Color, w, h int) string {
	if len(av.Samples) == 0 {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center,
			placeholderStyle.Render("awaiting data"))
	}
	lineStyle := lipgloss.NewStyle().Foreground(color)
	lines := chart(av.Samples, w, h)
	styled := make([]string, len(lines))
	for i, line := range lines {
		styled[i] = lineStyle.Render(line)
	}
	return strings.Join(styled, "\n")
}

// timeAxis spreads the first, middle, and last sample clocks across the
// panel width.
func timeAxis(samples []history.Sample, width int) string {
	labels := TimeLabels(samples)
	total := runewidth.StringWidth(labels[0]) + runewidth.StringWidth(labels[1]) + runewidth.StringWidth(labels[2])
	if total > width {
		return mutedStyle.Render(truncate(labels[2], width))
	}
	gap := width - total
	left := gap / 2
	right := gap - left
	return mutedStyle.Render(labels[0] + strings.Repeat(" ", left) + labels[1] + strings.Repeat(" ", right) + labels[2])
}

func renderStatusBar(f Frame) string {
	innerW := f.Width - 2

	shortcuts := " " +
		keyStyle.Render("Q") + mutedStyle.Render("·Quit  ") +
		keyStyle.Render("R") + mutedStyle.Render("·Refresh  ") +
		keyStyle.Render("←→")
	if f.Pages > 1 {
		shortcuts += mutedStyle.Render("·Page")
	}

	page := ""
	if f.Pages > 1 {
		page = pageStyle.Render(fmt.Sprintf("Page %d/%d  ", f.Page, f.Pages))
	}
	updated := mutedStyle.Render("Updated " + Ago(f.LastUpdate))
	status := ""
	if f.Status != "" {
		status = "  " + statusStyle.Render(f.Status)
	}

	spacer := strings.Repeat(" ", 10)
	content := ""
	for _, tier := range []string{
		shortcuts + spacer + page + updated + status,
		shortcuts + spacer + updated,
		shortcuts,
	} {
		if lipgloss.Width(tier) <= innerW {
			content = tier
			break
		}
	}
	if content == "" {
		content = truncate(" Q·Quit", innerW)
	}

	return statusBarStyle.Width(innerW).Render(content)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "…")
}
