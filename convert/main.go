// Command convert turns the quarterly CMS Part D public-use files
// (pipe-delimited text inside ZIP archives) into typed Parquet
// datasets ready for bulk loading and analytical queries.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

func main() {
	dataDir := flag.String("data", "", "directory containing the quarterly PPUF/SPUF ZIP archives")
	outDir := flag.String("out", "", "output directory for Parquet files")
	pricing := flag.Bool("pricing", false, "convert the ~55M-row pricing file instead of the core datasets")
	flag.Parse()

	if *dataDir == "" || *outDir == "" {
		fmt.Fprintln(os.Stderr, "usage: convert -data <zip dir> -out <parquet dir> [-pricing]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	start := time.Now()

	if *pricing {
		n, err := convertPricing(*dataDir, *outDir)
		if err != nil {
			log.Fatalf("drug_pricing: %v", err)
		}
		log.Printf("drug_pricing: %d rows in %s", n, time.Since(start).Round(time.Second))
		return
	}

	total := 0
	failed := 0
	for _, ds := range datasets {
		n, err := ds.run(*dataDir, *outDir)
		if err != nil {
			log.Printf("%s: %v", ds.output, err)
			failed++
			continue
		}
		total += n
	}

	log.Printf("conversion complete: %d rows in %s", total, time.Since(start).Round(time.Second))
	if failed > 0 {
		log.Fatalf("%d of %d datasets failed", failed, len(datasets))
	}
}
