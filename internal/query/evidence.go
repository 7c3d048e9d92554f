package query

import (
	"context"

	"github.com/google/uuid"

	contentrepos "github.com/ds4psb/komission-core/internal/data/repos/content"
	domaincontent "github.com/ds4psb/komission-core/internal/domain/content"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// EvidenceSummary combines an OutlierItem's engagement metrics with its
// comment-tag distribution, the read-model behind the original's
// evidence/{pattern_id} resource.
type EvidenceSummary struct {
	OutlierID       uuid.UUID
	ViewCount       int64
	LikeCount       int64
	ShareCount      int64
	GrowthRate      float64
	EngagementRate  float64
	OutlierTier     domaincontent.OutlierTier
	OutlierScore    float64
	CreatorAvgViews int64
	TotalComments   int
	TagCounts       map[string]int
}

// BuildEvidenceSummary loads outlierID and assembles its EvidenceSummary.
func BuildEvidenceSummary(ctx context.Context, outliers contentrepos.OutlierRepo, outlierID uuid.UUID) (EvidenceSummary, error) {
	item, err := outliers.GetByID(dbctx.Context{Ctx: ctx}, outlierID)
	if err != nil {
		return EvidenceSummary{}, err
	}
	comments, err := decodeComments(item.TopComments)
	if err != nil {
		return EvidenceSummary{}, err
	}
	return EvidenceSummary{
		OutlierID:       item.ID,
		ViewCount:       item.ViewCount,
		LikeCount:       item.LikeCount,
		ShareCount:      item.ShareCount,
		GrowthRate:      item.GrowthRate,
		EngagementRate:  item.EngagementRate,
		OutlierTier:     item.OutlierTier,
		OutlierScore:    item.OutlierScore,
		CreatorAvgViews: item.CreatorAvgViews,
		TotalComments:   len(comments),
		TagCounts:       TagCounts(comments),
	}, nil
}
