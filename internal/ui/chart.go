package ui

import (
	"math"
	"strings"

	"github.com/ppf/cryptowatcher/internal/history"
)

// Braille cells pack 2x4 dots; dot bits follow the Unicode layout.
var dotBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// chart plots samples as a connected braille line filling width x height
// terminal cells, oldest sample on the left. Returns one string per row.
func chart(samples []history.Sample, width, height int) []string {
	if width <= 0 || height <= 0 || len(samples) == 0 {
		return nil
	}

	prices := make([]float64, len(samples))
	for i, s := range samples {
		prices[i] = s.Price.InexactFloat64()
	}
	lo, hi := priceBounds(prices)

	cols := width * 2
	rows := height * 4
	cells := make([][]uint8, height)
	for i := range cells {
		cells[i] = make([]uint8, width)
	}

	prev := -1
	for x := 0; x < cols; x++ {
		y := plotY(valueAt(prices, x, cols), lo, hi, rows)
		if prev >= 0 {
			for yy := min(prev, y) + 1; yy < max(prev, y); yy++ {
				setDot(cells, x, yy)
			}
		}
		setDot(cells, x, y)
		prev = y
	}

	lines := make([]string, height)
	for r := 0; r < height; r++ {
		var b strings.Builder
		for c := 0; c < width; c++ {
			if cells[r][c] == 0 {
				b.WriteRune(' ')
			} else {
				b.WriteRune(rune(0x2800 + int(cells[r][c])))
			}
		}
		lines[r] = b.String()
	}
	return lines
}

// priceBounds pads the observed range by 10% on each side so the line
// never hugs the panel edge. A flat series still gets a non-zero span.
func priceBounds(prices []float64) (float64, float64) {
	if len(prices) == 0 {
		return 0, 100
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Abs(hi) * 0.01
		if pad == 0 {
			pad = 1
		}
	}
	return lo - pad, hi + pad
}

// valueAt linearly interpolates the series across the plot columns.
func valueAt(prices []float64, x, cols int) float64 {
	if len(prices) == 1 {
		return prices[0]
	}
	pos := float64(x) * float64(len(prices)-1) / float64(cols-1)
	i := int(pos)
	if i >= len(prices)-1 {
		return prices[len(prices)-1]
	}
	frac := pos - float64(i)
	return prices[i] + (prices[i+1]-prices[i])*frac
}

func plotY(v, lo, hi float64, rows int) int {
	y := rows - 1 - int((v-lo)/(hi-lo)*float64(rows-1)+0.5)
	if y < 0 {
		y = 0
	}
	if y > rows-1 {
		y = rows - 1
	}
	return y
}

func setDot(cells [][]uint8, x, y int) {
	r, c := y/4, x/2
	if r < 0 || r >= len(cells) || c < 0 || c >= len(cells[r]) {
		return
	}
	cells[r][c] |= dotBits[y%4][x%2]
}
