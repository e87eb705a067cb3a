// Command zipimport loads the postal code reference dataset from a local
// file or an s3:// object into the database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/BruksfildServices01/homeservices-coverage/internal/config"
	"github.com/BruksfildServices01/homeservices-coverage/internal/dataset"
	dbpkg "github.com/BruksfildServices01/homeservices-coverage/internal/db"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/infra/repository"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

func main() {
	src := flag.String("src", "", "gazetteer file: local path or s3://bucket/key")
	boundaries := flag.String("boundaries", "", "optional GeoJSON boundaries: local path or s3://bucket/key")
	chunk := flag.Int("chunk", 0, "rows per upsert batch (default IMPORT_CHUNK_SIZE)")
	flag.Parse()

	if *src == "" && *boundaries == "" {
		flag.Usage()
		os.Exit(2)
	}

	lg := logger.Setup()
	cfg := config.Load()
	if *chunk <= 0 {
		*chunk = cfg.ImportChunkSize
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sources := dataset.Router{
		Local: dataset.LocalSource{},
		S3:    dataset.NewS3Source(dataset.NewS3Client(cfg)),
	}

	db := dbpkg.NewDB(cfg)
	store := repository.NewPostalCodeGormStore(db)
	registry := postalcode.NewRegistry(store, postalcode.NewLinearIndex(), cfg.CentroidPadDeg)
	if _, err := registry.Load(ctx); err != nil {
		log.Fatalf("failed to load existing postal codes: %v", err)
	}

	var records []postalcode.Record
	if *src != "" {
		recs, warnings, err := dataset.ReadRecords(ctx, sources, *src)
		if err != nil {
			log.Fatalf("failed to read dataset: %v", err)
		}
		for _, w := range warnings {
			lg.Warn("dataset row skipped", "src", *src, "reason", w)
		}
		records = recs
	}

	var rings map[string][]geo.Ring
	if *boundaries != "" {
		data, err := dataset.ReadAll(ctx, sources, *boundaries)
		if err != nil {
			log.Fatalf("failed to read boundaries: %v", err)
		}
		decoded, warnings, err := postalcode.DecodeBoundaries(data)
		if err != nil {
			log.Fatalf("failed to decode boundaries: %v", err)
		}
		for _, w := range warnings {
			lg.Warn("boundary feature skipped", "src", *boundaries, "reason", w)
		}
		rings = decoded
	}

	rep, err := postalcode.NewImporter(registry, *chunk).Import(ctx, records, rings)
	for _, e := range rep.Errors {
		lg.Warn("import error", "detail", e)
	}
	if err != nil {
		log.Fatalf("import interrupted after %d of %d rows: %v", rep.Processed, rep.Total, err)
	}
	log.Printf("imported %d of %d rows (%d errors)", rep.Processed, rep.Total, len(rep.Errors))
}
