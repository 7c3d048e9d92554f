// Command komission is the operator CLI for the outlier ingestion and
// curation pipeline (spec.md §6): crawling, CSV/pattern-library ingestion,
// and the two read-only audits, dispatched through internal/cli.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ds4psb/komission-core/internal/cli"
	"github.com/ds4psb/komission-core/internal/data/aggregates"
	"github.com/ds4psb/komission-core/internal/data/db"
	clusterrepos "github.com/ds4psb/komission-core/internal/data/repos/cluster"
	contentrepos "github.com/ds4psb/komission-core/internal/data/repos/content"
	curationrepos "github.com/ds4psb/komission-core/internal/data/repos/curation"
	evidencerepos "github.com/ds4psb/komission-core/internal/data/repos/evidence"
	runrepos "github.com/ds4psb/komission-core/internal/data/repos/runs"
	"github.com/ds4psb/komission-core/internal/platform/envutil"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	log, err := logger.New(envutil.String("LOG_MODE", "prod"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "komission: failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	postgres, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		return 1
	}
	if err := postgres.AutoMigrateAll(); err != nil {
		log.Error("failed to auto-migrate", "error", err)
		return 1
	}
	gormDB := postgres.DB()

	runs := runrepos.NewRunRepo(gormDB, log)
	artifacts := runrepos.NewArtifactRepo(gormDB, log)
	outliers := contentrepos.NewOutlierRepo(gormDB, log)
	nodes := contentrepos.NewPatternNodeRepo(gormDB, log)
	rules := curationrepos.NewRuleRepo(gormDB, log)
	patternLibrary := evidencerepos.NewPatternLibraryRepo(gormDB, log)
	recurrence := clusterrepos.NewRecurrenceRepo(gormDB, log)

	runAgg := aggregates.NewRunAggregate(aggregates.RunAggregateDeps{
		Base:      aggregates.BaseDeps{DB: gormDB, Log: log},
		Runs:      runs,
		Artifacts: artifacts,
	})

	deps := cli.Deps{
		Log:            log,
		Runs:           runs,
		Artifacts:      artifacts,
		RunAgg:         runAgg,
		Outliers:       outliers,
		Nodes:          nodes,
		Rules:          rules,
		PatternLibrary: patternLibrary,
		Recurrence:     recurrence,
	}

	return cli.Dispatch(context.Background(), deps, os.Args[1:], os.Stdout, os.Stderr)
}
