package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	domainingest "github.com/ds4psb/komission-core/internal/domain/ingest"
)

// csvColumns are the required header names for ingest_outlier_csv. Extra
// columns are ignored; a missing required column is a hard error before any
// row is parsed.
var csvColumns = []string{"external_id", "platform", "video_url", "view_count", "like_count", "share_count", "growth_rate"}

// ParseCSV reads outlier rows from r into CrawlItems, stamping sourceName on
// every row (spec.md §6's ingest_outlier_csv --source-name). It reads the
// whole file before returning, so a malformed row fails the entire ingest
// rather than partially loading.
func ParseCSV(r io.Reader, sourceName string) ([]domainingest.CrawlItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: reading csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, want := range csvColumns {
		if _, ok := index[want]; !ok {
			return nil, fmt.Errorf("ingest: csv missing required column %q", want)
		}
	}

	var items []domainingest.CrawlItem
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading csv row %d: %w", rowNum, err)
		}
		rowNum++

		item, err := rowToItem(row, index, sourceName)
		if err != nil {
			return nil, fmt.Errorf("ingest: row %d: %w", rowNum, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func rowToItem(row []string, index map[string]int, sourceName string) (domainingest.CrawlItem, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	parseInt := func(col string) (int64, error) {
		v := get(col)
		if v == "" {
			return 0, nil
		}
		return strconv.ParseInt(v, 10, 64)
	}
	parseFloat := func(col string) (float64, error) {
		v := get(col)
		if v == "" {
			return 0, nil
		}
		return strconv.ParseFloat(v, 64)
	}

	views, err := parseInt("view_count")
	if err != nil {
		return domainingest.CrawlItem{}, fmt.Errorf("view_count: %w", err)
	}
	likes, err := parseInt("like_count")
	if err != nil {
		return domainingest.CrawlItem{}, fmt.Errorf("like_count: %w", err)
	}
	shares, err := parseInt("share_count")
	if err != nil {
		return domainingest.CrawlItem{}, fmt.Errorf("share_count: %w", err)
	}
	growth, err := parseFloat("growth_rate")
	if err != nil {
		return domainingest.CrawlItem{}, fmt.Errorf("growth_rate: %w", err)
	}

	return domainingest.CrawlItem{
		SourceName: sourceName,
		ExternalID: get("external_id"),
		Platform:   get("platform"),
		Category:   get("category"),
		VideoURL:   get("video_url"),
		Title:      get("title"),
		ViewCount:  views,
		LikeCount:  likes,
		ShareCount: shares,
		GrowthRate: growth,
	}, nil
}
