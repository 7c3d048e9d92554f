package ingest

import (
	"context"
	"fmt"

	domainingest "github.com/ds4psb/komission-core/internal/domain/ingest"
)

// Source fetches up to limit CrawlItems. The real platform crawlers are
// external collaborators (spec.md §1's Non-goals); this is the seam they
// plug into. Only a deterministic mock source ships here.
type Source interface {
	Fetch(ctx context.Context, limit int) ([]domainingest.CrawlItem, error)
}

// MockSource is the "mock" crawl source named in spec.md §8 scenario 1
// (the idempotent-crawl test). It deterministically synthesizes up to
// limit items from a fixed seed sequence, so two runs with the same limit
// produce byte-identical CrawlItems and therefore the same run inputs hash.
type MockSource struct{}

func (MockSource) Fetch(_ context.Context, limit int) ([]domainingest.CrawlItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	items := make([]domainingest.CrawlItem, 0, limit)
	for i := 0; i < limit; i++ {
		items = append(items, domainingest.CrawlItem{
			SourceName: "mock",
			ExternalID: fmt.Sprintf("mock-%04d", i),
			Platform:   "mock",
			VideoURL:   fmt.Sprintf("https://mock.invalid/video/%04d", i),
			Title:      fmt.Sprintf("Mock video %04d", i),
			ViewCount:  int64(10_000 * (i + 1)),
			LikeCount:  int64(500 * (i + 1)),
			ShareCount: int64(50 * (i + 1)),
			GrowthRate: 0.1,
		})
	}
	return items, nil
}

// Sources is the name->Source registry run_crawler dispatches through.
func Sources() map[string]Source {
	return map[string]Source{
		"mock": MockSource{},
	}
}
