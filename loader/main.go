// Command loader bulk-loads the converted Parquet datasets into
// PostgreSQL, either an external server (-pg) or an in-process
// embedded instance (-embedded) whose data persists under -runtime.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"partdtool/store"
)

const defaultBatchSize = 50_000

func main() {
	parquetDir := flag.String("parquet", "", "directory of converted Parquet datasets")
	connStr := flag.String("pg", "", "PostgreSQL connection string")
	embedded := flag.Bool("embedded", false, "use an in-process PostgreSQL instead of -pg")
	runtimeDir := flag.String("runtime", "partd-data", "runtime directory for -embedded; loaded data persists here")
	initSchema := flag.Bool("init", false, "initialize the schema before loading")
	only := flag.String("only", "", "load a single dataset (plans, formulary_drugs, beneficiary_costs, drug_pricing, geographic, excluded_drugs)")
	batchSize := flag.Int("batch", defaultBatchSize, "rows per COPY batch")
	flag.Parse()

	if *parquetDir == "" && !*initSchema {
		fmt.Fprintln(os.Stderr, "usage: loader -parquet <dir> [-pg <connstr> | -embedded [-runtime <dir>]] [-init] [-only <dataset>]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *connStr == "" && !*embedded {
		log.Fatal("either -pg or -embedded is required")
	}

	ctx := context.Background()

	var pool *pgxpool.Pool
	if *embedded {
		p, stop, err := store.StartEmbedded(ctx, *runtimeDir, store.DefaultEmbeddedPort)
		if err != nil {
			log.Fatalf("embedded postgres: %v", err)
		}
		defer stop()
		pool = p
		log.Printf("embedded postgres running, data under %s", *runtimeDir)
	} else {
		p, err := store.Connect(ctx, *connStr)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer p.Close()
		pool = p
	}

	if *initSchema {
		if err := store.InitSchema(ctx, pool); err != nil {
			log.Fatalf("init schema: %v", err)
		}
		log.Println("schema initialized")
		if *parquetDir == "" {
			return
		}
	}

	if err := loadAll(ctx, pool, *parquetDir, *only, *batchSize); err != nil {
		log.Fatalf("load: %v", err)
	}
	log.Println("load completed")
}
