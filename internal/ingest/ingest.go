package ingest

import (
	"context"

	"gorm.io/datatypes"

	contentrepos "github.com/ds4psb/komission-core/internal/data/repos/content"
	domaincontent "github.com/ds4psb/komission-core/internal/domain/content"
	domainingest "github.com/ds4psb/komission-core/internal/domain/ingest"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/urlnorm"
)

// Result reports what Item did with a single CrawlItem.
type Result struct {
	Item    *domaincontent.OutlierItem
	Created bool
}

// Item canonicalizes, dedups and persists a single CrawlItem (spec.md §6):
// dedup key is (platform, external_id), falling back to canonical
// video_url. An existing row is returned unmodified with Created=false —
// ingestion never overwrites a candidate that already has analyst or
// curation state attached to it.
func Item(ctx context.Context, outliers contentrepos.OutlierRepo, raw domainingest.CrawlItem) (Result, error) {
	dbc := dbctx.Context{Ctx: ctx}

	platform := urlnorm.Platform(raw.Platform)
	canonicalURL, err := urlnorm.CanonicalURL(raw.VideoURL)
	if err != nil {
		return Result{}, err
	}

	existing, err := outliers.GetByPlatformExternalID(dbc, platform, raw.ExternalID)
	if err != nil {
		return Result{}, err
	}
	if existing == nil {
		existing, err = outliers.GetByVideoURL(dbc, canonicalURL)
		if err != nil {
			return Result{}, err
		}
	}
	if existing != nil {
		return Result{Item: existing, Created: false}, nil
	}

	score, tier := Score(raw)

	item := &domaincontent.OutlierItem{
		Platform:        platform,
		ExternalID:      raw.ExternalID,
		VideoURL:        canonicalURL,
		SourceName:      raw.SourceName,
		Category:        raw.Category,
		Title:           raw.Title,
		ViewCount:       raw.ViewCount,
		LikeCount:       raw.LikeCount,
		ShareCount:      raw.ShareCount,
		GrowthRate:      raw.GrowthRate,
		OutlierScore:    score,
		OutlierTier:     domaincontent.OutlierTier(tier),
		AnalysisStat:    domaincontent.AnalysisStatusPending,
		Status:          domaincontent.OutlierStatusPending,
		TopComments:     datatypes.JSON("[]"),
	}
	if raw.CreatorAvgViews != nil {
		item.CreatorAvgViews = *raw.CreatorAvgViews
	}
	if raw.EngagementRate != nil {
		item.EngagementRate = *raw.EngagementRate
	}

	if err := outliers.Create(dbc, item); err != nil {
		return Result{}, err
	}
	return Result{Item: item, Created: true}, nil
}
