package main

import (
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/carbocation/runningvariance"
	"github.com/carbocation/scqc"
	"github.com/carbocation/scqc/report"
	"github.com/carbocation/scqc/scloom"
)

func run(loomInput, loomFiltered string, thr scqc.Thresholds, plotDir, qcTable string, showHist bool) error {

	file, err := scloom.ReadPath(loomInput, client)
	if err != nil {
		return err
	}

	m, err := file.ToCountMatrix()
	if err != nil {
		return err
	}
	log.Println("Loaded", loomInput, "with", m.NCells(), "cells and", m.NGenes(), "genes")

	// Show info
	describe("Number of counts (in the dataset units) per gene", scqc.CountsPerGene(m))
	describe("Number of cells in which each gene is detected", scqc.CellsPerGene(m))

	// Suggested pySCENIC-style cutoffs, logged for operator reference; the
	// applied thresholds come from the flags alone.
	nCells := float64(m.NCells())
	log.Printf("minCountsPerGene: %g (3 counts in 1%% of cells)\n", 3*.01*nCells)
	log.Printf("minSamples: %g (1%% of cells)\n", .01*nCells)

	res, err := scqc.Filter(m, thr)
	if err != nil {
		return err
	}
	log.Println("Initial cuts retained", res.PreCut.NCells(), "of", m.NCells(), "cells and", res.PreCut.NGenes(), "of", m.NGenes(), "genes")
	log.Println("Gene-count and mito cuts retained", res.Matrix.NCells(), "of", res.PreCut.NCells(), "cells")

	runReports(res, plotDir, showHist)

	if qcTable != "" {
		if err := writeQCTable(qcTable, res); err != nil {
			return err
		}
		log.Println("Wrote per-cell QC table to", qcTable)
	}

	out, err := scloom.FromCountMatrix(
		res.Matrix,
		scloom.FloatAttr("nGene", scqc.GenesPerCell(res.Matrix)),
		scloom.FloatAttr("nUMI", scqc.CountsPerCell(res.Matrix)),
	)
	if err != nil {
		return err
	}

	if err := scloom.WritePath(loomFiltered, out); err != nil {
		return err
	}
	log.Println("Wrote", loomFiltered, "with", res.Matrix.NCells(), "cells and", res.Matrix.NGenes(), "genes")

	return nil
}

// runReports emits the diagnostic side channel: a summary table always, plus
// terminal histograms and PNG charts on request. Failures here are logged
// and never abort the run.
func runReports(res *scqc.FilterResult, plotDir string, showHist bool) {

	metrics := []struct {
		Name string
		Vals []float64
	}{
		{"n_genes", res.NGenes},
		{"n_counts", res.NCounts},
		{"percent_mito", res.PctMito},
	}

	sums := make([]report.Summary, 0, len(metrics))
	for _, metric := range metrics {
		s, err := report.Summarize(metric.Name, metric.Vals)
		if err != nil {
			log.Println(err)
			continue
		}
		sums = append(sums, s)
	}
	report.WriteSummaryTable(os.Stdout, sums)

	if showHist {
		for _, metric := range metrics {
			if err := report.TerminalHistogram(os.Stdout, metric.Name, metric.Vals); err != nil {
				log.Println(err)
			}
		}
	}

	if plotDir == "" {
		return
	}

	if err := os.MkdirAll(plotDir, 0o755); err != nil {
		log.Println(err)
		return
	}

	for _, metric := range metrics {
		path := filepath.Join(plotDir, metric.Name+".png")
		if err := report.DistributionPNG(path, metric.Name, metric.Vals, 50); err != nil {
			log.Println(err)
		}
	}

	if err := report.ScatterPNG(filepath.Join(plotDir, "n_counts_vs_percent_mito.png"), "n_counts", "percent_mito", res.NCounts, res.PctMito); err != nil {
		log.Println(err)
	}
	if err := report.ScatterPNG(filepath.Join(plotDir, "n_counts_vs_n_genes.png"), "n_counts", "n_genes", res.NCounts, res.NGenes); err != nil {
		log.Println(err)
	}
}

type rangeStat struct {
	runningvariance.RunningStat
	Min float64
	Max float64
}

func newRangeStat() *rangeStat {
	return &rangeStat{
		*runningvariance.NewRunningStat(),
		math.MaxFloat64,
		-math.MaxFloat64,
	}
}

func (s *rangeStat) Push(x float64) {
	s.RunningStat.Push(x)

	if x > s.Max {
		s.Max = x
	}
	if x < s.Min {
		s.Min = x
	}
}

func describe(name string, vals []float64) {
	st := newRangeStat()
	for _, v := range vals {
		st.Push(v)
	}

	log.Printf("%s: %g - %g (mean %g, sd %g)\n", name, st.Min, st.Max, st.Mean(), st.StandardDeviation())
}
