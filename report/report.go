// Package report emits diagnostic summaries of per-cell QC metrics. It is an
// observational side channel: nothing downstream consumes its output, and
// chart failures should be logged by the caller rather than aborting a run.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Summary is a one-line numeric description of a QC metric distribution.
type Summary struct {
	Metric string
	N      int
	Min    float64
	Max    float64
	Mean   float64
	SD     float64
	Median float64
	P95    float64
}

// Summarize computes a Summary over vals. Errors only when vals is empty.
func Summarize(metric string, vals []float64) (Summary, error) {
	out := Summary{Metric: metric, N: len(vals)}

	var err error
	if out.Min, err = stats.Min(vals); err != nil {
		return out, fmt.Errorf("%s: %w", metric, err)
	}
	if out.Max, err = stats.Max(vals); err != nil {
		return out, fmt.Errorf("%s: %w", metric, err)
	}
	if out.Median, err = stats.Median(vals); err != nil {
		return out, fmt.Errorf("%s: %w", metric, err)
	}
	if out.P95, err = stats.Percentile(vals, 95); err != nil {
		return out, fmt.Errorf("%s: %w", metric, err)
	}

	out.Mean, out.SD = stat.MeanStdDev(vals, nil)

	return out, nil
}

// WriteSummaryTable prints summaries as a tab-delimited table.
func WriteSummaryTable(w io.Writer, sums []Summary) {
	fmt.Fprintln(w, strings.Join([]string{
		"metric",
		"n",
		"min",
		"max",
		"mean",
		"sd",
		"median",
		"p95",
	}, "\t"))

	for _, s := range sums {
		fmt.Fprintf(w, "%s\t%d\t%g\t%g\t%g\t%g\t%g\t%g\n",
			s.Metric, s.N, s.Min, s.Max, s.Mean, s.SD, s.Median, s.P95)
	}
}

// TerminalHistogram prints an ASCII histogram of vals to w, the quick-look
// stand-in for a violin plot.
func TerminalHistogram(w io.Writer, title string, vals []float64) error {
	if len(vals) == 0 {
		return fmt.Errorf("%s: no values to plot", title)
	}

	fmt.Fprintf(w, "\n%s (n=%d)\n", title, len(vals))

	hist := histogram.Hist(25, vals)

	return histogram.Fprint(w, hist, histogram.Linear(40))
}
