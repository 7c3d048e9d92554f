package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ds4psb/komission-core/internal/audit"
	domaincuration "github.com/ds4psb/komission-core/internal/domain/curation"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

func runAuditPipelineContracts(ctx context.Context, deps Deps, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("audit_pipeline_contracts", stderr)
	withDB := fs.Bool("with-db", false, "load active curation rules from the database instead of auditing an empty rule set")
	failOnIssue := fs.Bool("fail-on-issue", false, "exit non-zero if any referenced feature key is unproduced")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var rules []domaincuration.Rule
	if *withDB {
		if deps.Rules == nil {
			fmt.Fprintln(stderr, "audit_pipeline_contracts: --with-db requires a database connection")
			return 1
		}
		var err error
		rules, err = deps.Rules.ListActive(dbctx.Context{Ctx: ctx})
		if err != nil {
			fmt.Fprintf(stderr, "audit_pipeline_contracts: loading active rules: %v\n", err)
			return 1
		}
	}

	report, err := audit.AuditPipelineContracts(rules)
	if err != nil {
		fmt.Fprintf(stderr, "audit_pipeline_contracts: %v\n", err)
		return 1
	}

	if report.OK {
		fmt.Fprintf(stdout, "audit_pipeline_contracts: OK, %d rules checked, keyspace is a superset\n", len(rules))
		return 0
	}

	fmt.Fprintf(stdout, "audit_pipeline_contracts: FAIL, %d unproduced key(s) referenced:\n", len(report.MissingKeys))
	for _, k := range report.MissingKeys {
		fmt.Fprintf(stdout, "  - %s\n", k)
	}
	if *failOnIssue {
		return 1
	}
	return 0
}
