// Package ingest holds the contract boundary with the platform-specific
// crawlers (external collaborators per spec §1): only the shape they must
// emit, never the fetchers themselves.
package ingest

// CrawlItem is the ingest input contract. Deduplication key is
// (platform, external_id), then canonical video_url.
type CrawlItem struct {
	SourceName       string  `json:"source_name"`
	ExternalID       string  `json:"external_id"`
	Platform         string  `json:"platform"`
	Category         string  `json:"category,omitempty"`
	VideoURL         string  `json:"video_url"`
	Title            string  `json:"title,omitempty"`
	ThumbnailURL     string  `json:"thumbnail_url,omitempty"`
	ViewCount        int64   `json:"view_count"`
	LikeCount        int64   `json:"like_count"`
	ShareCount       int64   `json:"share_count"`
	GrowthRate       float64 `json:"growth_rate"`
	OutlierScore     *float64 `json:"outlier_score,omitempty"`
	OutlierTier      string  `json:"outlier_tier,omitempty"`
	CreatorAvgViews  *int64  `json:"creator_avg_views,omitempty"`
	EngagementRate   *float64 `json:"engagement_rate,omitempty"`
}
