package main

import (
	"context"
	"errors"
	"flag"

	"labor_pipeline_backend/internal/legacy"
	"labor_pipeline_backend/platform/config"
	"labor_pipeline_backend/platform/db"
	"labor_pipeline_backend/platform/logger"

	"github.com/jackc/pgx/v5"
)

var errDryRun = errors.New("dry run")

// status-backfill rewrites legacy status spellings in place using the
// embedded mapping table. All rewrites run in one transaction.
func main() {
	dryRun := flag.Bool("dry-run", false, "count affected rows and roll back")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	table, err := legacy.Default()
	if err != nil {
		log.Error("failed to load legacy mapping table", "error", err)
		panic("failed to load legacy mapping table: " + err.Error())
	}
	log.Info("starting status backfill", "mappingVersion", table.Version, "dryRun", *dryRun)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	total := 0
	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, rw := range table.Plan(legacy.Columns) {
			query, args := rw.SQL()
			tag, err := tx.Exec(ctx, query, args...)
			if err != nil {
				return err
			}
			if n := int(tag.RowsAffected()); n > 0 {
				total += n
				log.Info("rewrote legacy status", "table", rw.Table, "column", rw.Name, "from", rw.From, "to", rw.To, "rows", n)
			}
		}
		if *dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		log.Error("status backfill failed", "error", err)
		panic("status backfill failed: " + err.Error())
	}

	log.Info("status backfill complete", "rows", total, "mappingVersion", table.Version, "dryRun", *dryRun)
}
