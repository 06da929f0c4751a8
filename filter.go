package scqc

// Thresholds carries the QC filter configuration. It is a pure value: parsed
// once from flags and passed into each stage unchanged.
type Thresholds struct {
	// MinGenesPerCell keeps cells in which at least this many genes are
	// detected.
	MinGenesPerCell int

	// MinCellsPerGene keeps genes detected in at least this many cells.
	MinCellsPerGene int

	// MaxGenesPerCell keeps cells in which strictly fewer than this many
	// genes are detected. Doublets (two cells captured as one) show up as
	// implausibly gene-rich "cells".
	MaxGenesPerCell int

	// MaxMitoFraction keeps cells whose mitochondrial count fraction is
	// strictly below this value. High fractions indicate stressed or lysed
	// cells.
	MaxMitoFraction float64

	// MitoPrefix identifies mitochondrial genes by identifier prefix,
	// conventionally "MT-".
	MitoPrefix string
}

// FilterResult holds the final filtered matrix together with the intermediate
// state the diagnostic reporter consumes.
type FilterResult struct {
	// Matrix is the matrix surviving all five cuts.
	Matrix *CountMatrix

	// PreCut is the matrix after the minimum-genes and minimum-cells cuts
	// but before the maximum-genes and mitochondrial cuts. The diagnostic
	// plots are drawn from this state, matching the point at which the
	// per-cell annotations below are computed.
	PreCut *CountMatrix

	// Per-PreCut-cell annotations. NGenes is computed after the
	// minimum-genes cut but before the minimum-cells cut removes genes;
	// NCounts and PctMito are computed on PreCut itself. The maximum-genes
	// cut consults NGenes as recorded here, not a recomputation, so the
	// step ordering of the pipeline is observable in the output.
	NGenes  []float64
	NCounts []float64
	PctMito []float64
}

// Filter applies the five QC cuts in their fixed order:
//
//  1. keep cells with at least MinGenesPerCell detected genes;
//  2. keep genes detected in at least MinCellsPerGene of the surviving cells;
//  3. recompute total counts and mitochondrial fraction on the narrowed
//     matrix;
//  4. keep cells with fewer than MaxGenesPerCell detected genes (as counted
//     in step 1);
//  5. keep cells with a mitochondrial fraction below MaxMitoFraction.
//
// The steps do not commute: step 2's detection counts depend on step 1's
// surviving cells, and step 5's fractions depend on step 2's surviving genes.
// Each step narrows a fresh copy; the input matrix is never modified.
func Filter(m *CountMatrix, thr Thresholds) (*FilterResult, error) {
	// Step 1: minimum genes per cell.
	nGenes := GenesPerCell(m)
	keepCells := make([]bool, m.NCells())
	for i, n := range nGenes {
		keepCells[i] = n >= float64(thr.MinGenesPerCell)
	}

	narrowed, err := m.SelectCells(keepCells)
	if err != nil {
		return nil, err
	}
	nGenes = subset(nGenes, keepCells)

	// Step 2: minimum cells per gene, detection recomputed against the
	// cells surviving step 1.
	cellsPerGene := CellsPerGene(narrowed)
	keepGenes := make([]bool, narrowed.NGenes())
	for j, n := range cellsPerGene {
		keepGenes[j] = n >= float64(thr.MinCellsPerGene)
	}

	preCut, err := narrowed.SelectGenes(keepGenes)
	if err != nil {
		return nil, err
	}

	// Step 3: per-cell annotations on the narrowed matrix.
	nCounts := CountsPerCell(preCut)
	pctMito := MitoFractionPerCell(preCut, thr.MitoPrefix)

	out := &FilterResult{
		PreCut:  preCut,
		NGenes:  nGenes,
		NCounts: nCounts,
		PctMito: pctMito,
	}

	// Step 4: maximum genes per cell.
	keepCells = make([]bool, preCut.NCells())
	for i, n := range nGenes {
		keepCells[i] = n < float64(thr.MaxGenesPerCell)
	}

	cut, err := preCut.SelectCells(keepCells)
	if err != nil {
		return nil, err
	}
	pctMito = subset(pctMito, keepCells)

	// Step 5: maximum mitochondrial fraction.
	keepCells = make([]bool, cut.NCells())
	for i, f := range pctMito {
		keepCells[i] = f < thr.MaxMitoFraction
	}

	out.Matrix, err = cut.SelectCells(keepCells)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func subset(vals []float64, keep []bool) []float64 {
	out := make([]float64, 0, len(vals))
	for i, k := range keep {
		if k {
			out = append(out, vals[i])
		}
	}

	return out
}
