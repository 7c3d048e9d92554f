// Package cli implements komission's operator-facing subcommands
// (spec.md §6): run_crawler, ingest_outlier_csv, ingest_pattern_library,
// audit_pipeline_contracts, audit_pipeline_state and track_depth_experiment.
// Dispatch follows the same stdlib flag.FlagSet-per-subcommand shape as the
// teacher's cmd/tarsy entrypoint — no cobra or urfave/cli dependency, since
// nothing in the corpus ships one.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	runrepos "github.com/ds4psb/komission-core/internal/data/repos/runs"

	"github.com/ds4psb/komission-core/internal/data/aggregates"
	clusterrepos "github.com/ds4psb/komission-core/internal/data/repos/cluster"
	contentrepos "github.com/ds4psb/komission-core/internal/data/repos/content"
	curationrepos "github.com/ds4psb/komission-core/internal/data/repos/curation"
	evidencerepos "github.com/ds4psb/komission-core/internal/data/repos/evidence"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// Deps wires every table gateway and aggregate a subcommand might need. Not
// every command uses every field; cmd/komission constructs one Deps for the
// whole process.
type Deps struct {
	Log *logger.Logger

	Runs      runrepos.RunRepo
	Artifacts runrepos.ArtifactRepo
	RunAgg    aggregates.RunAggregate

	Outliers contentrepos.OutlierRepo
	Nodes    contentrepos.PatternNodeRepo

	Rules          curationrepos.RuleRepo
	PatternLibrary evidencerepos.PatternLibraryRepo
	Recurrence     clusterrepos.RecurrenceRepo
}

// command is one subcommand's flag set and entry point. Stdout/Stderr are
// threaded through explicitly rather than using the log/fmt globals, so
// tests can capture output.
type command struct {
	name string
	run  func(ctx context.Context, deps Deps, args []string, stdout, stderr io.Writer) int
}

func commands() []command {
	return []command{
		{name: "run_crawler", run: runRunCrawler},
		{name: "ingest_outlier_csv", run: runIngestOutlierCSV},
		{name: "ingest_pattern_library", run: runIngestPatternLibrary},
		{name: "audit_pipeline_contracts", run: runAuditPipelineContracts},
		{name: "audit_pipeline_state", run: runAuditPipelineState},
		{name: "track_depth_experiment", run: runTrackDepthExperiment},
	}
}

// Dispatch runs the subcommand named by args[0] (os.Args[1:] from main) and
// returns its process exit code. An unknown or missing subcommand prints
// usage to stderr and returns 2, the conventional flag-parse-error code.
func Dispatch(ctx context.Context, deps Deps, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	name := args[0]
	for _, c := range commands() {
		if c.name == name {
			return c.run(ctx, deps, args[1:], stdout, stderr)
		}
	}
	fmt.Fprintf(stderr, "komission: unknown command %q\n", name)
	printUsage(stderr)
	return 2
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: komission <command> [flags]")
	fmt.Fprintln(w, "commands:")
	for _, c := range commands() {
		fmt.Fprintf(w, "  %s\n", c.name)
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}
