// Package ingest is the crawl/CSV ingestion boundary: deduplication,
// outlier scoring, and tier assignment over internal/domain/ingest.CrawlItem
// (spec.md §6's ingest contract), feeding the run_crawler and
// ingest_outlier_csv CLI commands.
package ingest

import domainingest "github.com/ds4psb/komission-core/internal/domain/ingest"

// Score computes outlier_score as 100 x viewcount_multiplier x
// engagement_modifier (spec.md §9's Open Question: this implementation picks that scale, with
// 500 as the S-tier threshold, over the "percent above median" alternative
// some ingest scripts use). A source that already supplies outlier_score
// (CrawlItem.OutlierScore) is trusted as-is; this only fills the gap when a
// source omits it.
func Score(item domainingest.CrawlItem) (score float64, tier string) {
	if item.OutlierScore != nil {
		score = *item.OutlierScore
	} else {
		viewMultiplier := 1.0
		if item.CreatorAvgViews != nil && *item.CreatorAvgViews > 0 {
			viewMultiplier = float64(item.ViewCount) / float64(*item.CreatorAvgViews)
		}
		engagementModifier := 1.0
		if item.EngagementRate != nil {
			engagementModifier = 1 + *item.EngagementRate*10
		} else if item.ViewCount > 0 {
			engagementRate := float64(item.LikeCount+item.ShareCount) / float64(item.ViewCount)
			engagementModifier = 1 + engagementRate*10
		}
		score = 100 * viewMultiplier * engagementModifier
	}

	if item.OutlierTier != "" {
		tier = item.OutlierTier
	} else {
		tier = tierOf(score)
	}
	return score, tier
}

func tierOf(score float64) string {
	switch {
	case score >= 500:
		return "S"
	case score >= 300:
		return "A"
	case score >= 150:
		return "B"
	default:
		return "C"
	}
}
