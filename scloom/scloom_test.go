package scloom

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/carbocation/scqc"
)

func testFile(t *testing.T) *File {
	t.Helper()

	m, err := scqc.NewCountMatrix(
		[][]float64{
			{10, 0, 5},
			{0, 2, 0},
		},
		[]string{"cellA", "cellB"},
		[]string{"MT-CO1", "ACTB", "GAPDH"},
	)
	if err != nil {
		t.Fatal(err)
	}

	f, err := FromCountMatrix(m,
		FloatAttr("nGene", scqc.GenesPerCell(m)),
		FloatAttr("nUMI", scqc.CountsPerCell(m)),
	)
	if err != nil {
		t.Fatal(err)
	}

	return f
}

func TestRoundTrip(t *testing.T) {
	f := testFile(t)

	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatal(err)
	}

	back, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(back, f) {
		t.Fatalf("round trip changed the file:\nwrote %+v\nread  %+v", f, back)
	}
}

func TestRoundTripThroughCountMatrix(t *testing.T) {
	f := testFile(t)

	m, err := f.ToCountMatrix()
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"cellA", "cellB"}; !reflect.DeepEqual(m.CellIDs, want) {
		t.Fatalf("CellIDs: got %v, want %v", m.CellIDs, want)
	}
	if want := []string{"MT-CO1", "ACTB", "GAPDH"}; !reflect.DeepEqual(m.GeneIDs, want) {
		t.Fatalf("GeneIDs: got %v, want %v", m.GeneIDs, want)
	}
	if want := [][]float64{{10, 0, 5}, {0, 2, 0}}; !reflect.DeepEqual(m.Counts, want) {
		t.Fatalf("Counts: got %v, want %v", m.Counts, want)
	}
}

func TestReadWriteGzipPath(t *testing.T) {
	f := testFile(t)

	path := filepath.Join(t.TempDir(), "filtered.scloom.gz")
	if err := WritePath(path, f); err != nil {
		t.Fatal(err)
	}

	back, err := ReadPath(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(back, f) {
		t.Fatalf("gzip round trip changed the file:\nwrote %+v\nread  %+v", f, back)
	}
}

func TestReadCommaDelimited(t *testing.T) {
	in := strings.Join([]string{
		"#scloom,1,2,3",
		"#rowattr,Gene,MT-CO1,ACTB",
		"#colattr,CellID,c1,c2,c3",
		"4,0,1",
		"0,2,2",
	}, "\n") + "\n"

	f, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	if f.Rows != 2 || f.Cols != 3 {
		t.Fatalf("shape: got %dx%d, want 2x3", f.Rows, f.Cols)
	}
	if want := [][]float64{{4, 0, 1}, {0, 2, 2}}; !reflect.DeepEqual(f.Matrix, want) {
		t.Fatalf("Matrix: got %v, want %v", f.Matrix, want)
	}
}

// Input without the header magic parses as a plain dense gene-by-cell table.
func TestReadPlainTableFallback(t *testing.T) {
	in := strings.Join([]string{
		"Gene,AAACCTG,AAACGGG",
		"MT-CO1,4,0",
		"ACTB,0,2",
		"GAPDH,1,1",
	}, "\n") + "\n"

	f, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}

	if f.Rows != 3 || f.Cols != 2 {
		t.Fatalf("shape: got %dx%d, want 3x2", f.Rows, f.Cols)
	}

	genes, ok := f.RowAttr(AttrGene)
	if !ok || !reflect.DeepEqual(genes, []string{"MT-CO1", "ACTB", "GAPDH"}) {
		t.Fatalf("Gene attr: got %v (present=%v)", genes, ok)
	}

	cells, ok := f.ColAttr(AttrCellID)
	if !ok || !reflect.DeepEqual(cells, []string{"AAACCTG", "AAACGGG"}) {
		t.Fatalf("CellID attr: got %v (present=%v)", cells, ok)
	}

	if _, err := f.ToCountMatrix(); err != nil {
		t.Fatalf("table-derived file should convert to a count matrix: %v", err)
	}
}

func TestReadRejectsMalformedInput(t *testing.T) {
	for _, v := range []struct {
		Name string
		In   string
	}{
		{"empty", ""},
		{"bad magic", "#loom\t1\t1\t1\n0\n"},
		{"bad version", "#scloom\t9\t1\t1\n0\n"},
		{"non-numeric shape", "#scloom\t1\tx\t1\n0\n"},
		{"attr arity", "#scloom\t1\t1\t2\n#rowattr\tGene\tA\tB\n0\t0\n"},
		{"matrix arity", "#scloom\t1\t1\t2\n#rowattr\tGene\tA\n0\t0\t0\n"},
		{"row count", "#scloom\t1\t2\t1\n#rowattr\tGene\tA\tB\n0\n"},
		{"negative count", "#scloom\t1\t1\t2\n#rowattr\tGene\tA\n1\t-2\n"},
		{"non-numeric count", "#scloom\t1\t1\t2\n#rowattr\tGene\tA\n1\tz\n"},
		{"attr after matrix", "#scloom\t1\t1\t1\n5\n#rowattr\tGene\tA\n"},
	} {
		if _, err := Read(strings.NewReader(v.In)); !errors.Is(err, ErrFormat) {
			t.Fatalf("%s: expected ErrFormat, got %v", v.Name, err)
		}
	}
}

func TestToCountMatrixRequiresIdentityAttrs(t *testing.T) {
	f := &File{
		Rows:     1,
		Cols:     1,
		RowAttrs: []Attr{{Name: AttrGene, Values: []string{"ACTB"}}},
		Matrix:   [][]float64{{1}},
	}

	if _, err := f.ToCountMatrix(); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for missing CellID, got %v", err)
	}
}

func TestFormatValuePreservesIntegers(t *testing.T) {
	for _, v := range []struct {
		In   float64
		Want string
	}{
		{0, "0"},
		{7, "7"},
		{123456789, "123456789"},
		{0.5, "0.5"},
		{1e16, "1e+16"},
	} {
		if got := formatValue(v.In); got != v.Want {
			t.Fatalf("formatValue(%v): got %q, want %q", v.In, got, v.Want)
		}
	}
}
