package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ds4psb/komission-core/internal/data/aggregates"
	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"github.com/ds4psb/komission-core/internal/ingest"
)

// runCrawlerInputs is canonical-JSON-marshaled to compute the Run's
// idempotency key (spec.md §8 scenario 1): two invocations with the same
// source and limit must hash to the same key so the second is skipped.
type runCrawlerInputs struct {
	Source string `json:"source"`
	Limit  int    `json:"limit"`
}

func runRunCrawler(ctx context.Context, deps Deps, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("run_crawler", stderr)
	source := fs.String("source", "", "crawl source name (e.g. mock)")
	limit := fs.Int("limit", 0, "maximum number of items to fetch")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *source == "" || *limit <= 0 {
		fmt.Fprintln(stderr, "run_crawler: --source and --limit (>0) are required")
		return 2
	}

	src, ok := ingest.Sources()[*source]
	if !ok {
		fmt.Fprintf(stderr, "run_crawler: unknown source %q\n", *source)
		return 2
	}

	run, skipped, err := deps.RunAgg.Acquire(ctx, aggregates.AcquireRunInput{
		RunType:      domainruns.RunTypeCrawler,
		Inputs:       runCrawlerInputs{Source: *source, Limit: *limit},
		TriggeredBy:  "cli:run_crawler",
		SkipIfExists: true,
	})
	if err != nil {
		fmt.Fprintf(stderr, "run_crawler: acquiring run: %v\n", err)
		return 1
	}
	if skipped {
		fmt.Fprintf(stdout, "run_crawler: skipped, already completed as run_id=%s\n", run.RunID)
		return 0
	}

	items, err := src.Fetch(ctx, *limit)
	if err != nil {
		failRun(ctx, deps, run, err)
		fmt.Fprintf(stderr, "run_crawler: fetching from %q: %v\n", *source, err)
		return 1
	}

	created, duplicates := 0, 0
	for _, item := range items {
		res, err := ingest.Item(ctx, deps.Outliers, item)
		if err != nil {
			failRun(ctx, deps, run, err)
			fmt.Fprintf(stderr, "run_crawler: ingesting %q: %v\n", item.ExternalID, err)
			return 1
		}
		if res.Created {
			created++
		} else {
			duplicates++
		}
	}

	summary := map[string]any{
		"fetched":    len(items),
		"created":    created,
		"duplicates": duplicates,
	}
	if _, err := deps.RunAgg.Complete(ctx, aggregates.CompleteRunInput{Run: run, ResultSummary: summary}); err != nil {
		fmt.Fprintf(stderr, "run_crawler: completing run: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "run_crawler: run_id=%s fetched=%d created=%d duplicates=%d\n", run.RunID, len(items), created, duplicates)
	return 0
}

func failRun(ctx context.Context, deps Deps, run *domainruns.Run, cause error) {
	_, _ = deps.RunAgg.Fail(ctx, aggregates.FailRunInput{Run: run, ErrorMessage: cause.Error()})
}
