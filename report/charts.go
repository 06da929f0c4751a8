package report

import (
	"bytes"
	"fmt"
	"math"
	"os"

	hist2 "github.com/grd/histogram"
	"github.com/wcharczuk/go-chart/v2"
)

// DistributionPNG renders a binned distribution of vals as a PNG line chart
// at path.
func DistributionPNG(path, title string, vals []float64, nBins int) error {
	xs, ys, err := binSeries(vals, nBins)
	if err != nil {
		return fmt.Errorf("%s: %w", title, err)
	}

	graph := chart.Chart{
		Title:  title,
		Width:  512,
		Height: 256,
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
			},
		},
	}

	return renderPNG(path, graph)
}

// ScatterPNG renders ys against xs as a PNG scatter plot at path.
func ScatterPNG(path, xName, yName string, xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("scatter %s vs %s: %d x values but %d y values", yName, xName, len(xs), len(ys))
	}
	if len(xs) == 0 {
		return fmt.Errorf("scatter %s vs %s: no values to plot", yName, xName)
	}

	graph := chart.Chart{
		Title:  yName + " vs " + xName,
		Width:  512,
		Height: 512,
		XAxis:  chart.XAxis{Name: xName},
		YAxis:  chart.YAxis{Name: yName},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    3,
				},
			},
		},
	}

	return renderPNG(path, graph)
}

// binSeries reduces vals to nBins fixed-width bins, returning bin centers and
// occupancy counts.
func binSeries(vals []float64, nBins int) (xs, ys []float64, err error) {
	if len(vals) == 0 {
		return nil, nil, fmt.Errorf("no values to bin")
	}
	if nBins < 1 {
		return nil, nil, fmt.Errorf("need at least 1 bin, got %d", nBins)
	}

	min, max := vals[0], vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	width := (max - min) / float64(nBins)
	if width == 0 {
		// All values identical; any positive width yields one occupied bin.
		width = 1
	}

	hg, err := hist2.NewHistogram(hist2.Range(min, uint(nBins), width))
	if err != nil {
		return nil, nil, err
	}

	top := min + width*float64(nBins)
	for _, v := range vals {
		// The top bin edge is exclusive; fold the maximum into the last bin.
		if v >= top {
			v = math.Nextafter(top, min)
		}
		hg.Add(v)
	}

	xs = make([]float64, nBins)
	ys = make([]float64, nBins)
	for i := 0; i < nBins; i++ {
		xs[i] = min + (float64(i)+0.5)*width
		ys[i] = float64(hg.Get(i))
	}

	return xs, ys, nil
}

func renderPNG(path string, graph chart.Chart) error {
	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return err
	}

	outFile, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := buffer.WriteTo(outFile); err != nil {
		outFile.Close()
		return err
	}

	return outFile.Close()
}
