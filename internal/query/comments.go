// Package query implements the read-only lookups behind the original's
// MCP resources and tools (SPEC_FULL.md §10, supplemented from
// original_source/backend/app/mcp/{resources,tools}): comment snapshots,
// evidence summaries, VDG status, pattern/recurrence lineage, pattern
// confidence, and system health. The MCP transport itself is out of scope
// (spec.md §1's Non-goals exclude external integrations); these are the
// underlying query functions a transport layer would call.
package query

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	contentrepos "github.com/ds4psb/komission-core/internal/data/repos/content"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// Comment is one decoded entry from an OutlierItem's top_comments snapshot.
type Comment struct {
	Text  string `json:"text"`
	Likes int64  `json:"likes"`
	Tag   string `json:"tag,omitempty"`
	Lang  string `json:"lang,omitempty"`
}

// CommentsSnapshot decodes the best-5-comments snapshot captured at crawl
// time (spec.md §4.1). A missing or empty top_comments blob returns an
// empty slice, not an error.
func CommentsSnapshot(ctx context.Context, outliers contentrepos.OutlierRepo, outlierID uuid.UUID) ([]Comment, error) {
	item, err := outliers.GetByID(dbctx.Context{Ctx: ctx}, outlierID)
	if err != nil {
		return nil, err
	}
	return decodeComments(item.TopComments)
}

func decodeComments(raw []byte) ([]Comment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []Comment
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TagCounts buckets a comment snapshot by its Tag field, mirroring the
// original's sentiment-tag distribution in its evidence summary.
func TagCounts(comments []Comment) map[string]int {
	counts := make(map[string]int)
	for _, c := range comments {
		tag := c.Tag
		if tag == "" {
			tag = "unknown"
		}
		counts[tag]++
	}
	return counts
}
