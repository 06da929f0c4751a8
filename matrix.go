// Package scqc provides quality-control statistics and threshold filters for
// single-cell RNA-seq count matrices.
package scqc

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when identifiers, masks, or attribute
// vectors do not line up with the matrix axes they describe.
var ErrDimensionMismatch = errors.New("scqc: dimension mismatch")

// CountMatrix is a dense cells-by-genes expression count matrix. CellIDs and
// GeneIDs align 1:1 with the rows and columns of Counts. Filters never modify
// a CountMatrix in place; they return a narrowed copy so that every
// intermediate state of the pipeline remains inspectable.
type CountMatrix struct {
	Counts  [][]float64
	CellIDs []string
	GeneIDs []string
}

// NewCountMatrix validates that the identifiers align with the matrix axes
// and that every row has the same width.
func NewCountMatrix(counts [][]float64, cellIDs, geneIDs []string) (*CountMatrix, error) {
	if len(counts) != len(cellIDs) {
		return nil, fmt.Errorf("%w: %d matrix rows but %d cell identifiers", ErrDimensionMismatch, len(counts), len(cellIDs))
	}

	for i, row := range counts {
		if len(row) != len(geneIDs) {
			return nil, fmt.Errorf("%w: row %d has %d entries but there are %d gene identifiers", ErrDimensionMismatch, i, len(row), len(geneIDs))
		}
	}

	return &CountMatrix{Counts: counts, CellIDs: cellIDs, GeneIDs: geneIDs}, nil
}

// NCells is the number of matrix rows.
func (m *CountMatrix) NCells() int {
	return len(m.CellIDs)
}

// NGenes is the number of matrix columns.
func (m *CountMatrix) NGenes() int {
	return len(m.GeneIDs)
}

// SelectCells returns a new matrix containing only the rows for which keep is
// true. The cell identifier vector is subset in the same operation, so the
// identifier/axis alignment cannot drift.
func (m *CountMatrix) SelectCells(keep []bool) (*CountMatrix, error) {
	if len(keep) != m.NCells() {
		return nil, fmt.Errorf("%w: mask covers %d cells but matrix has %d", ErrDimensionMismatch, len(keep), m.NCells())
	}

	out := &CountMatrix{GeneIDs: m.GeneIDs}
	for i, k := range keep {
		if !k {
			continue
		}

		row := make([]float64, len(m.Counts[i]))
		copy(row, m.Counts[i])

		out.Counts = append(out.Counts, row)
		out.CellIDs = append(out.CellIDs, m.CellIDs[i])
	}

	return out, nil
}

// SelectGenes returns a new matrix containing only the columns for which keep
// is true, subsetting the gene identifier vector in the same operation.
func (m *CountMatrix) SelectGenes(keep []bool) (*CountMatrix, error) {
	if len(keep) != m.NGenes() {
		return nil, fmt.Errorf("%w: mask covers %d genes but matrix has %d", ErrDimensionMismatch, len(keep), m.NGenes())
	}

	out := &CountMatrix{CellIDs: m.CellIDs}
	for j, k := range keep {
		if !k {
			continue
		}
		out.GeneIDs = append(out.GeneIDs, m.GeneIDs[j])
	}

	for _, row := range m.Counts {
		newRow := make([]float64, 0, len(out.GeneIDs))
		for j, k := range keep {
			if k {
				newRow = append(newRow, row[j])
			}
		}
		out.Counts = append(out.Counts, newRow)
	}

	return out, nil
}
