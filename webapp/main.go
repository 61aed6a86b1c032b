// Command webapp serves the formulary analytics JSON API over the
// loaded PostgreSQL datasets.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"partdtool/analysis"
	"partdtool/store"
)

func main() {
	listen := flag.String("listen", ":8080", "address to serve the API on")
	connStr := flag.String("pg", "", "PostgreSQL connection string")
	embedded := flag.Bool("embedded", false, "use an in-process PostgreSQL instead of -pg")
	runtimeDir := flag.String("runtime", "partd-data", "runtime directory for -embedded")
	companiesSpec := flag.String("companies", "", "override the tracked companies, e.g. 'Humana=HUMANA;CVS=CVS,AETNA'")
	drugsSpec := flag.String("glp1-drugs", "", "override the tracked GLP-1 drugs, e.g. 'Ozempic=2398842;Wegovy=2553603'")
	flag.Parse()

	if *connStr == "" && !*embedded {
		log.Fatal("either -pg or -embedded is required")
	}

	companies := analysis.DefaultCompanies
	if *companiesSpec != "" {
		c, err := parseCompanies(*companiesSpec)
		if err != nil {
			log.Fatalf("-companies: %v", err)
		}
		companies = c
	}
	drugs := DefaultGLP1Drugs
	if *drugsSpec != "" {
		d, err := parseDrugs(*drugsSpec)
		if err != nil {
			log.Fatalf("-glp1-drugs: %v", err)
		}
		drugs = d
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

	s := newServer(store.New(pool), companies, drugs)
	if err := listenAndServe(*listen, s); err != nil {
		log.Fatal(err)
	}
}
