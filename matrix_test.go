package scqc

import (
	"errors"
	"reflect"
	"testing"
)

func testMatrix(t *testing.T) *CountMatrix {
	t.Helper()

	m, err := NewCountMatrix(
		[][]float64{
			{10, 0, 5},
			{0, 2, 0},
			{1, 1, 1},
		},
		[]string{"cellA", "cellB", "cellC"},
		[]string{"MT-CO1", "ACTB", "GAPDH"},
	)
	if err != nil {
		t.Fatalf("building test matrix: %v", err)
	}

	return m
}

func TestNewCountMatrixRejectsMisalignment(t *testing.T) {
	for _, v := range []struct {
		Counts  [][]float64
		CellIDs []string
		GeneIDs []string
	}{
		{[][]float64{{1, 2}}, []string{"a", "b"}, []string{"g1", "g2"}},
		{[][]float64{{1, 2}, {3}}, []string{"a", "b"}, []string{"g1", "g2"}},
		{[][]float64{{1}}, []string{"a"}, []string{"g1", "g2"}},
	} {
		if _, err := NewCountMatrix(v.Counts, v.CellIDs, v.GeneIDs); !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch for %+v, got %v", v, err)
		}
	}
}

func TestSelectCellsKeepsIdentifiersAligned(t *testing.T) {
	m := testMatrix(t)

	out, err := m.SelectCells([]bool{true, false, true})
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"cellA", "cellC"}; !reflect.DeepEqual(out.CellIDs, want) {
		t.Fatalf("CellIDs: got %v, want %v", out.CellIDs, want)
	}
	if len(out.Counts) != len(out.CellIDs) {
		t.Fatalf("matrix has %d rows but %d cell identifiers", len(out.Counts), len(out.CellIDs))
	}
	if want := [][]float64{{10, 0, 5}, {1, 1, 1}}; !reflect.DeepEqual(out.Counts, want) {
		t.Fatalf("Counts: got %v, want %v", out.Counts, want)
	}

	// The source matrix must be untouched.
	if m.NCells() != 3 || m.Counts[0][0] != 10 {
		t.Fatalf("source matrix was modified: %+v", m)
	}
}

func TestSelectGenesKeepsIdentifiersAligned(t *testing.T) {
	m := testMatrix(t)

	out, err := m.SelectGenes([]bool{false, true, true})
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"ACTB", "GAPDH"}; !reflect.DeepEqual(out.GeneIDs, want) {
		t.Fatalf("GeneIDs: got %v, want %v", out.GeneIDs, want)
	}
	if want := [][]float64{{0, 5}, {2, 0}, {1, 1}}; !reflect.DeepEqual(out.Counts, want) {
		t.Fatalf("Counts: got %v, want %v", out.Counts, want)
	}
}

func TestSelectRejectsBadMaskLength(t *testing.T) {
	m := testMatrix(t)

	if _, err := m.SelectCells([]bool{true}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("SelectCells: expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := m.SelectGenes([]bool{true, false}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("SelectGenes: expected ErrDimensionMismatch, got %v", err)
	}
}
