package scqc

import "strings"

// CountsPerGene returns the column-wise sum of the matrix: the total counts
// attributed to each gene across all cells.
func CountsPerGene(m *CountMatrix) []float64 {
	out := make([]float64, m.NGenes())
	for _, row := range m.Counts {
		for j, v := range row {
			out[j] += v
		}
	}

	return out
}

// CellsPerGene returns, for each gene, the number of cells in which the gene
// is detected (has a nonzero count).
func CellsPerGene(m *CountMatrix) []float64 {
	out := make([]float64, m.NGenes())
	for _, row := range m.Counts {
		for j, v := range row {
			if v > 0 {
				out[j]++
			}
		}
	}

	return out
}

// CountsPerCell returns the row-wise sum of the matrix: the total UMI counts
// per cell.
func CountsPerCell(m *CountMatrix) []float64 {
	out := make([]float64, m.NCells())
	for i, row := range m.Counts {
		for _, v := range row {
			out[i] += v
		}
	}

	return out
}

// GenesPerCell returns, for each cell, the number of genes detected (with a
// nonzero count) in that cell.
func GenesPerCell(m *CountMatrix) []float64 {
	out := make([]float64, m.NCells())
	for i, row := range m.Counts {
		for _, v := range row {
			if v > 0 {
				out[i]++
			}
		}
	}

	return out
}

// MitoFractionPerCell returns, for each cell, the fraction of its total
// counts that comes from genes whose identifier starts with prefix
// (conventionally "MT-"). A cell with zero total counts is assigned a
// fraction of 0 rather than 0/0; any positive minimum-genes threshold removes
// such a cell before this value is ever consulted.
func MitoFractionPerCell(m *CountMatrix, prefix string) []float64 {
	mito := make([]bool, m.NGenes())
	for j, g := range m.GeneIDs {
		mito[j] = strings.HasPrefix(g, prefix)
	}

	out := make([]float64, m.NCells())
	for i, row := range m.Counts {
		var total, mitoTotal float64
		for j, v := range row {
			total += v
			if mito[j] {
				mitoTotal += v
			}
		}

		if total > 0 {
			out[i] = mitoTotal / total
		}
	}

	return out
}
