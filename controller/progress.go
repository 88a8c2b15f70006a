package controller

import (
	"fmt"
	"io"
)

// Percent returns seen/total as a percentage clamped to [0, 100]. An empty
// run is complete.
func Percent(seen, total int) float64 {
	if total <= 0 {
		return 100
	}
	p := 100 * float64(seen) / float64(total)
	if p > 100 {
		p = 100
	}
	return p
}

// ConsoleProgress returns a ProgressFunc that keeps one "Progress: NN.NN %"
// line refreshed on w. The line is only redrawn when the printed value changes.
func ConsoleProgress(w io.Writer) ProgressFunc {
	last := ""
	return func(seen, total int) {
		line := fmt.Sprintf("\r  Progress: %6.2f %%", Percent(seen, total))
		if line == last {
			return
		}
		last = line
		fmt.Fprint(w, line)
		if seen >= total {
			fmt.Fprintln(w)
		}
	}
}
