// scfilter performs basic QC filtering of a single-cell RNA-seq count
// matrix: it computes per-cell and per-gene summary statistics, removes
// low-quality cells and under-detected genes by threshold, and writes the
// narrowed matrix back out with recomputed annotations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/scqc"
	_ "github.com/carbocation/scqc/compileinfoprint"
)

// Safe for concurrent use by multiple goroutines
var client *storage.Client

func main() {
	var loomInput, loomFiltered string
	var thrMinGenes, thrMinCells, thrNGenes int
	var thrPctMito float64
	var mitoPrefix, plotDir, qcTable string
	var showHist bool

	flag.StringVar(&loomInput, "loom_input", "", "Unfiltered input matrix file. Local path or gs:// object; compressed input is detected and decompressed.")
	flag.StringVar(&loomFiltered, "loom_filtered", "", "Filtered output matrix file. Written locally; a .gz suffix enables gzip compression.")
	flag.IntVar(&thrMinGenes, "thr_min_genes", 200, "Threshold on minimum genes expressed per cell")
	flag.IntVar(&thrMinCells, "thr_min_cells", 3, "Threshold on minimum cells in which a gene is detected")
	flag.IntVar(&thrNGenes, "thr_n_genes", 5000, "Threshold on maximum genes detected per cell")
	flag.Float64Var(&thrPctMito, "thr_pct_mito", 0.25, "Threshold on maximum fraction of counts in mito genes vs all genes")
	flag.StringVar(&mitoPrefix, "mito_prefix", "MT-", "Gene identifier prefix that marks mitochondrial genes")
	flag.StringVar(&plotDir, "plotdir", "", "(Optional.) Directory in which to write diagnostic PNG charts.")
	flag.StringVar(&qcTable, "qc_table", "", "(Optional.) Path for a per-cell QC metrics CSV.")
	flag.BoolVar(&showHist, "hist", false, "Print terminal histograms of the per-cell QC metrics")

	flag.Parse()

	fmt.Fprintln(os.Stderr, strings.Join(os.Args, " "))

	if loomInput == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide -loom_input")
	}

	if loomFiltered == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide -loom_filtered")
	}

	// Initialize the Google Storage client only if we're pointing to Google
	// Storage paths.
	if strings.HasPrefix(loomInput, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	thr := scqc.Thresholds{
		MinGenesPerCell: thrMinGenes,
		MinCellsPerGene: thrMinCells,
		MaxGenesPerCell: thrNGenes,
		MaxMitoFraction: thrPctMito,
		MitoPrefix:      mitoPrefix,
	}

	log.Println("Launched scfilter")

	if err := run(scqc.ExpandHome(loomInput), scqc.ExpandHome(loomFiltered), thr, scqc.ExpandHome(plotDir), scqc.ExpandHome(qcTable), showHist); err != nil {
		log.Fatalln(err)
	}
}
