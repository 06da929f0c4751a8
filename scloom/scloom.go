// Package scloom reads and writes a flat-text container for annotated count
// matrices. A file carries one gene-by-cell matrix plus any number of named
// per-gene (row) and per-cell (column) attribute vectors, mirroring the
// semantic content of a loom file in a delimited-text layout:
//
//	#scloom	1	<nGenes>	<nCells>
//	#rowattr	Gene	<nGenes values...>
//	#colattr	CellID	<nCells values...>
//	#colattr	nGene	<nCells values...>
//	<nGenes matrix lines, each with nCells numeric values>
//
// Attribute lines may appear in any order between the header and the matrix
// body. Files are written tab-delimited; on read the delimiter is taken from
// the byte following the header magic, so comma- and semicolon-delimited
// variants parse too. Input without the magic falls back to a plain dense
// gene-by-cell table (cell identifiers in the header row, gene identifiers in
// the first column) with a sniffed delimiter. Compression (gzip, bzip2, xz,
// zip, zlib) is detected from the leading bytes on read; on write, a .gz
// path suffix selects gzip output.
package scloom

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/scqc"
	"github.com/csimplestring/go-csv/detector"
)

const (
	magic   = "#scloom"
	version = "1"

	rowAttrTag = "#rowattr"
	colAttrTag = "#colattr"

	// AttrGene and AttrCellID are the identity attributes every count
	// matrix must carry.
	AttrGene   = "Gene"
	AttrCellID = "CellID"
)

// ErrFormat reports an unreadable or schema-mismatched file. All parse
// failures wrap it.
var ErrFormat = errors.New("scloom: malformed file")

// Attr is a named attribute vector along one matrix axis.
type Attr struct {
	Name   string
	Values []string
}

// FloatAttr builds an attribute vector from numeric values, formatting
// integers without an exponent so counts round-trip exactly.
func FloatAttr(name string, vals []float64) Attr {
	out := Attr{Name: name, Values: make([]string, 0, len(vals))}
	for _, v := range vals {
		out.Values = append(out.Values, formatValue(v))
	}

	return out
}

// File is an in-memory scloom container. The matrix is gene-major: Rows
// genes by Cols cells, matching the on-disk orientation.
type File struct {
	Rows, Cols int
	RowAttrs   []Attr
	ColAttrs   []Attr
	Matrix     [][]float64
}

// RowAttr returns the named per-gene attribute vector, if present.
func (f *File) RowAttr(name string) ([]string, bool) {
	for _, a := range f.RowAttrs {
		if a.Name == name {
			return a.Values, true
		}
	}

	return nil, false
}

// ColAttr returns the named per-cell attribute vector, if present.
func (f *File) ColAttr(name string) ([]string, bool) {
	for _, a := range f.ColAttrs {
		if a.Name == name {
			return a.Values, true
		}
	}

	return nil, false
}

// ToCountMatrix transposes the gene-major file into the cells-by-genes
// orientation the QC statistics operate on. The file must carry the Gene row
// attribute and the CellID column attribute.
func (f *File) ToCountMatrix() (*scqc.CountMatrix, error) {
	genes, ok := f.RowAttr(AttrGene)
	if !ok {
		return nil, fmt.Errorf("%w: missing the %q row attribute", ErrFormat, AttrGene)
	}

	cells, ok := f.ColAttr(AttrCellID)
	if !ok {
		return nil, fmt.Errorf("%w: missing the %q column attribute", ErrFormat, AttrCellID)
	}

	counts := make([][]float64, f.Cols)
	for i := range counts {
		counts[i] = make([]float64, f.Rows)
		for j := range f.Matrix {
			counts[i][j] = f.Matrix[j][i]
		}
	}

	// Copy the identifiers so the file and the matrix share no storage.
	cellIDs := make([]string, len(cells))
	copy(cellIDs, cells)
	geneIDs := make([]string, len(genes))
	copy(geneIDs, genes)

	return scqc.NewCountMatrix(counts, cellIDs, geneIDs)
}

// FromCountMatrix transposes a cells-by-genes matrix into a gene-major file,
// attaching the Gene and CellID identity attributes plus any additional
// per-cell attributes (nGene, nUMI).
func FromCountMatrix(m *scqc.CountMatrix, colAttrs ...Attr) (*File, error) {
	for _, a := range colAttrs {
		if len(a.Values) != m.NCells() {
			return nil, fmt.Errorf("scloom: column attribute %q has %d values for %d cells", a.Name, len(a.Values), m.NCells())
		}
	}

	out := &File{
		Rows:     m.NGenes(),
		Cols:     m.NCells(),
		RowAttrs: []Attr{{Name: AttrGene, Values: append([]string{}, m.GeneIDs...)}},
		ColAttrs: append([]Attr{{Name: AttrCellID, Values: append([]string{}, m.CellIDs...)}}, colAttrs...),
	}

	out.Matrix = make([][]float64, out.Rows)
	for j := range out.Matrix {
		out.Matrix[j] = make([]float64, out.Cols)
		for i := range m.Counts {
			out.Matrix[j][i] = m.Counts[i][j]
		}
	}

	return out, nil
}

// ReadPath opens and parses an scloom file from a local path or, with a
// non-nil client, a gs:// object. Compressed inputs are decompressed
// transparently.
func ReadPath(path string, client *storage.Client) (*File, error) {
	raw, _, err := scqc.MaybeOpenFromGoogleStorage(path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer raw.Close()

	r, err := scqc.MaybeDecompressReadCloser(raw)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	out, err := Read(r)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	return out, nil
}

// Read parses an annotated matrix from r. Input beginning with the #scloom
// magic is parsed as the native container; anything else is treated as a
// plain delimited gene-by-cell table with cell identifiers in the header row
// and gene identifiers in the first column, the dense-export convention of
// cellranger and GCT-style files.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(data, []byte(magic)) {
		sep, err := delimiterFromHeader(data)
		if err != nil {
			return nil, err
		}
		return readNative(data, sep)
	}

	return readTable(data, detectDelimiter(data))
}

func readNative(data []byte, sep string) (*File, error) {
	scanner := newLineScanner(data)

	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: empty input", ErrFormat)
	}

	out := &File{}
	header := strings.Split(scanner.Text(), sep)
	if len(header) != 4 || header[0] != magic {
		return nil, fmt.Errorf("%w: expected a %s header line with 4 fields, got %q", ErrFormat, magic, scanner.Text())
	}

	var err error
	if header[1] != version {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrFormat, header[1])
	}
	if out.Rows, err = strconv.Atoi(header[2]); err != nil || out.Rows < 0 {
		return nil, fmt.Errorf("%w: bad row count %q", ErrFormat, header[2])
	}
	if out.Cols, err = strconv.Atoi(header[3]); err != nil || out.Cols < 0 {
		return nil, fmt.Errorf("%w: bad column count %q", ErrFormat, header[3])
	}

	out.Matrix = make([][]float64, 0, out.Rows)
	for lineNum := 2; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Split(line, sep)

		switch fields[0] {
		case rowAttrTag, colAttrTag:
			if len(out.Matrix) > 0 {
				return nil, fmt.Errorf("%w: line %d: attribute line after the matrix body began", ErrFormat, lineNum)
			}

			attr, err := parseAttrLine(fields, out.Rows, out.Cols, lineNum)
			if err != nil {
				return nil, err
			}
			if fields[0] == rowAttrTag {
				out.RowAttrs = append(out.RowAttrs, attr)
			} else {
				out.ColAttrs = append(out.ColAttrs, attr)
			}
		default:
			row, err := parseMatrixLine(fields, out.Cols, lineNum)
			if err != nil {
				return nil, err
			}
			out.Matrix = append(out.Matrix, row)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(out.Matrix) != out.Rows {
		return nil, fmt.Errorf("%w: header promised %d matrix rows but found %d", ErrFormat, out.Rows, len(out.Matrix))
	}

	return out, nil
}

// readTable parses a headerless dense table: one header row of cell
// identifiers (after a corner label), then one row per gene with the gene
// identifier in the first field.
func readTable(data []byte, sep string) (*File, error) {
	scanner := newLineScanner(data)

	var cells []string
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		fields := strings.Split(scanner.Text(), sep)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: table header row has %d fields", ErrFormat, len(fields))
		}
		cells = fields[1:]
		break
	}
	if cells == nil {
		return nil, fmt.Errorf("%w: empty input", ErrFormat)
	}

	out := &File{Cols: len(cells)}
	var genes []string
	for lineNum := 2; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Split(line, sep)
		if len(fields) != out.Cols+1 {
			return nil, fmt.Errorf("%w: line %d: table row has %d fields, want %d", ErrFormat, lineNum, len(fields), out.Cols+1)
		}

		row, err := parseMatrixLine(fields[1:], out.Cols, lineNum)
		if err != nil {
			return nil, err
		}

		genes = append(genes, fields[0])
		out.Matrix = append(out.Matrix, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	out.Rows = len(genes)
	out.RowAttrs = []Attr{{Name: AttrGene, Values: genes}}
	out.ColAttrs = []Attr{{Name: AttrCellID, Values: append([]string{}, cells...)}}

	return out, nil
}

func newLineScanner(data []byte) *bufio.Scanner {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	// Wide matrices produce long lines; a cell line with a million columns
	// easily exceeds the default 64KiB token limit.
	scanner.Buffer(make([]byte, 1024*1024), 512*1024*1024)

	return scanner
}

// delimiterFromHeader reads the delimiter directly from the byte that follows
// the magic on the header line.
func delimiterFromHeader(data []byte) (string, error) {
	if len(data) <= len(magic) {
		return "", fmt.Errorf("%w: truncated header", ErrFormat)
	}

	switch data[len(magic)] {
	case '\t':
		return "\t", nil
	case ',':
		return ",", nil
	case ';':
		return ";", nil
	}

	return "", fmt.Errorf("%w: unsupported delimiter %q after header magic", ErrFormat, data[len(magic)])
}

func parseAttrLine(fields []string, nRows, nCols, lineNum int) (Attr, error) {
	if len(fields) < 2 {
		return Attr{}, fmt.Errorf("%w: line %d: attribute line with no name", ErrFormat, lineNum)
	}

	want := nCols
	if fields[0] == rowAttrTag {
		want = nRows
	}

	attr := Attr{Name: fields[1], Values: fields[2:]}
	if len(attr.Values) != want {
		return Attr{}, fmt.Errorf("%w: line %d: attribute %q has %d values, want %d", ErrFormat, lineNum, attr.Name, len(attr.Values), want)
	}

	return attr, nil
}

func parseMatrixLine(fields []string, nCols, lineNum int) ([]float64, error) {
	if len(fields) != nCols {
		return nil, fmt.Errorf("%w: line %d: matrix line has %d values, want %d", ErrFormat, lineNum, len(fields), nCols)
	}

	row := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: non-numeric matrix value %q", ErrFormat, lineNum, field)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: line %d: count values must be finite and non-negative, got %q", ErrFormat, lineNum, field)
		}
		row[i] = v
	}

	return row, nil
}

// WritePath serializes f to a local path, gzip-compressed when the path ends
// in .gz.
func WritePath(path string, f *File) error {
	fh, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer fh.Close()

	var w io.Writer = fh
	var gzw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gzw = gzip.NewWriter(fh)
		w = gzw
	}

	if err := Write(w, f); err != nil {
		return pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	if gzw != nil {
		if err := gzw.Close(); err != nil {
			return pfx.Err(err)
		}
	}

	return fh.Close()
}

// Write serializes f to w, tab-delimited.
func Write(w io.Writer, f *File) error {
	if len(f.Matrix) != f.Rows {
		return fmt.Errorf("scloom: file declares %d rows but matrix has %d", f.Rows, len(f.Matrix))
	}

	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\t%s\t%d\t%d\n", magic, version, f.Rows, f.Cols)

	for _, a := range f.RowAttrs {
		if err := writeAttrLine(bw, rowAttrTag, a, f.Rows); err != nil {
			return err
		}
	}
	for _, a := range f.ColAttrs {
		if err := writeAttrLine(bw, colAttrTag, a, f.Cols); err != nil {
			return err
		}
	}

	for _, row := range f.Matrix {
		if len(row) != f.Cols {
			return fmt.Errorf("scloom: matrix row has %d values, want %d", len(row), f.Cols)
		}
		for i, v := range row {
			if i > 0 {
				bw.WriteByte('\t')
			}
			bw.WriteString(formatValue(v))
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

func writeAttrLine(bw *bufio.Writer, tag string, a Attr, want int) error {
	if len(a.Values) != want {
		return fmt.Errorf("scloom: attribute %q has %d values, want %d", a.Name, len(a.Values), want)
	}

	bw.WriteString(tag)
	bw.WriteByte('\t')
	bw.WriteString(a.Name)
	for _, v := range a.Values {
		bw.WriteByte('\t')
		bw.WriteString(v)
	}
	bw.WriteByte('\n')

	return nil
}

// detectDelimiter sniffs the delimiter from the first lines of the input,
// defaulting to tab.
func detectDelimiter(data []byte) string {
	sample := data
	if nl := nthLineEnd(data, 10); nl > 0 {
		sample = data[:nl]
	}

	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(sample), '"')
	if len(delimiters) > 0 {
		return delimiters[0]
	}

	return "\t"
}

func nthLineEnd(data []byte, n int) int {
	seen := 0
	for i, b := range data {
		if b == '\n' {
			if seen++; seen == n {
				return i
			}
		}
	}

	return -1
}

// formatValue renders integral values without an exponent so that integer
// counts survive a write/read cycle bit-for-bit.
func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}

	return strconv.FormatFloat(v, 'g', -1, 64)
}
