package chart

import (
	"strings"

	"impulse-sim/internal/waveform"
)

// ASCII draws points into a width x height character grid, one column per
// bucket of samples using the bucket maximum. It returns "" when there is
// nothing to draw.
func ASCII(points []waveform.Point, width, height int) string {
	if len(points) == 0 || width < 2 || height < 2 {
		return ""
	}
	cols := make([]float64, width)
	for c := range cols {
		lo := c * len(points) / width
		hi := (c + 1) * len(points) / width
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(points) {
			hi = len(points)
		}
		m := points[lo].Voltage
		for _, pt := range points[lo:hi] {
			if pt.Voltage > m {
				m = pt.Voltage
			}
		}
		cols[c] = m
	}
	top := cols[0]
	for _, v := range cols {
		if v > top {
			top = v
		}
	}
	if top <= 0 {
		return ""
	}

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	for c, v := range cols {
		level := int(v/top*float64(height-1) + 0.5)
		if level < 0 {
			level = 0
		}
		row := height - 1 - level
		grid[row][c] = '•'
		for r := row + 1; r < height; r++ {
			grid[r][c] = '·'
		}
	}
	lines := make([]string, height)
	for r := range grid {
		lines[r] = string(grid[r])
	}
	return strings.Join(lines, "\n")
}
