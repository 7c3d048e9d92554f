package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ds4psb/komission-core/internal/ingest"
)

func runIngestPatternLibrary(ctx context.Context, deps Deps, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("ingest_pattern_library", stderr)
	input := fs.String("input", "", "path to a patterns.json file")
	dryRun := fs.Bool("dry-run", false, "validate and print revisions without writing")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *input == "" {
		fmt.Fprintln(stderr, "ingest_pattern_library: --input is required")
		return 2
	}

	f, err := os.Open(*input)
	if err != nil {
		fmt.Fprintf(stderr, "ingest_pattern_library: opening %q: %v\n", *input, err)
		return 1
	}
	defer f.Close()

	entries, err := ingest.ParsePatternLibraryFile(f)
	if err != nil {
		fmt.Fprintf(stderr, "ingest_pattern_library: %v\n", err)
		return 1
	}

	written := 0
	for _, entry := range entries {
		res, err := ingest.PatternLibraryItem(ctx, deps.PatternLibrary, entry, *dryRun)
		if err != nil {
			fmt.Fprintf(stderr, "ingest_pattern_library: %s: %v\n", entry.PatternID, err)
			return 1
		}
		verb := "would write"
		if res.Written {
			verb = "wrote"
			written++
		}
		fmt.Fprintf(stdout, "ingest_pattern_library: %s pattern_id=%s revision=%d\n", verb, res.PatternID, res.Revision)
	}

	if *dryRun {
		fmt.Fprintf(stdout, "ingest_pattern_library: dry-run, %d entries validated, nothing written\n", len(entries))
	} else {
		fmt.Fprintf(stdout, "ingest_pattern_library: %d/%d entries written\n", written, len(entries))
	}
	return 0
}
