package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ds4psb/komission-core/internal/ingest"
)

func runIngestOutlierCSV(ctx context.Context, deps Deps, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("ingest_outlier_csv", stderr)
	csvPath := fs.String("csv", "", "path to the outlier csv file")
	sourceName := fs.String("source-name", "", "source_name to stamp on every row")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *csvPath == "" || *sourceName == "" {
		fmt.Fprintln(stderr, "ingest_outlier_csv: --csv and --source-name are required")
		return 2
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		fmt.Fprintf(stderr, "ingest_outlier_csv: opening %q: %v\n", *csvPath, err)
		return 1
	}
	defer f.Close()

	items, err := ingest.ParseCSV(f, *sourceName)
	if err != nil {
		fmt.Fprintf(stderr, "ingest_outlier_csv: %v\n", err)
		return 1
	}

	created, duplicates := 0, 0
	for _, item := range items {
		res, err := ingest.Item(ctx, deps.Outliers, item)
		if err != nil {
			fmt.Fprintf(stderr, "ingest_outlier_csv: ingesting %q: %v\n", item.ExternalID, err)
			return 1
		}
		if res.Created {
			created++
		} else {
			duplicates++
		}
	}

	fmt.Fprintf(stdout, "ingest_outlier_csv: rows=%d created=%d duplicates=%d\n", len(items), created, duplicates)
	return 0
}
