package main

import (
	"os"

	"github.com/carbocation/scqc"
	"github.com/gocarina/gocsv"
)

type cellQC struct {
	CellID  string  `csv:"cell_id"`
	NGenes  float64 `csv:"n_genes"`
	NCounts float64 `csv:"n_counts"`
	PctMito float64 `csv:"percent_mito"`
	Kept    bool    `csv:"kept"`
}

// writeQCTable records the per-cell metrics for every cell that survived the
// initial cuts, with a kept column marking which also survived the gene-count
// and mito cuts.
func writeQCTable(path string, res *scqc.FilterResult) error {
	kept := make(map[string]struct{}, res.Matrix.NCells())
	for _, id := range res.Matrix.CellIDs {
		kept[id] = struct{}{}
	}

	rows := make([]*cellQC, 0, res.PreCut.NCells())
	for i, id := range res.PreCut.CellIDs {
		_, ok := kept[id]
		rows = append(rows, &cellQC{
			CellID:  id,
			NGenes:  res.NGenes[i],
			NCounts: res.NCounts[i],
			PctMito: res.PctMito[i],
			Kept:    ok,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gocsv.MarshalFile(&rows, f)
}
