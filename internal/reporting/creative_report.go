// Package reporting builds creative performance reports from the snapshots
// the creatives pipeline writes to ClickHouse. Each snapshot row is the state
// of one creative at one fetch, so the latest row per creative describes its
// current performance and the first and last rows describe its trend.
package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreativeMetrics is the latest known state of one creative.
// CTR is expressed as a percentage (0-100).
type CreativeMetrics struct {
	CreativeID   string    `json:"creative_id"`
	Name         string    `json:"name"`
	CreativeType string    `json:"creative_type"`
	Impressions  float64   `json:"impressions"`
	Clicks       float64   `json:"clicks"`
	Spend        float64   `json:"spend"`
	CTR          float64   `json:"ctr"`
	CPC          float64   `json:"cpc"`
	Frequency    float64   `json:"frequency"`
	Performance  string    `json:"performance"`
	FatigueLevel string    `json:"fatigue_level"`
	LastSeen     time.Time `json:"last_seen"`
}

// FatigueTrend compares a creative's first and latest snapshots in the window.
type FatigueTrend struct {
	CreativeID     string  `json:"creative_id"`
	Name           string  `json:"name"`
	FirstFrequency float64 `json:"first_frequency"`
	LastFrequency  float64 `json:"last_frequency"`
	FirstCTR       float64 `json:"first_ctr"`
	LastCTR        float64 `json:"last_ctr"`
	Snapshots      int64   `json:"snapshots"`
}

// Fatiguing reports whether frequency rose while CTR fell.
func (f FatigueTrend) Fatiguing() bool {
	return f.LastFrequency > f.FirstFrequency && f.LastCTR < f.FirstCTR
}

// TypeMetrics aggregates the latest snapshots by creative type.
type TypeMetrics struct {
	CreativeType string  `json:"creative_type"`
	Creatives    int64   `json:"creatives"`
	Impressions  float64 `json:"impressions"`
	Clicks       float64 `json:"clicks"`
	Spend        float64 `json:"spend"`
	CTR          float64 `json:"ctr"`
}

// CreativeSummary is the full report for one ad account.
type CreativeSummary struct {
	AdAccountID  string            `json:"ad_account_id"`
	Days         int               `json:"days"`
	TopCreatives []CreativeMetrics `json:"top_creatives"` // ranked by CTR
	Fatigue      []FatigueTrend    `json:"fatigue"`       // largest frequency increase first
	ByType       []TypeMetrics     `json:"by_type"`
}

// GenerateCreativeReport queries ClickHouse for the account's snapshots over
// the last days and assembles the report.
func GenerateCreativeReport(ctx context.Context, db *sql.DB, accountID string, days, limit int) (*CreativeSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	summary := &CreativeSummary{AdAccountID: accountID, Days: days}

	top, err := getTopCreatives(ctx, db, accountID, days, limit)
	if err != nil {
		return nil, fmt.Errorf("get top creatives: %w", err)
	}
	summary.TopCreatives = top

	fatigue, err := getFatigueTrends(ctx, db, accountID, days, limit)
	if err != nil {
		return nil, fmt.Errorf("get fatigue trends: %w", err)
	}
	summary.Fatigue = fatigue

	byType, err := getTypeBreakdown(ctx, db, accountID, days)
	if err != nil {
		return nil, fmt.Errorf("get type breakdown: %w", err)
	}
	summary.ByType = byType

	return summary, nil
}

const topCreativesQuery = `
		SELECT
			creative_id,
			argMax(name, timestamp) as latest_name,
			argMax(creative_type, timestamp) as latest_type,
			argMax(impressions, timestamp) as latest_impressions,
			argMax(clicks, timestamp) as latest_clicks,
			argMax(spend, timestamp) as latest_spend,
			argMax(ctr, timestamp) as latest_ctr,
			argMax(cpc, timestamp) as latest_cpc,
			argMax(frequency, timestamp) as latest_frequency,
			argMax(performance, timestamp) as latest_performance,
			argMax(fatigue_level, timestamp) as latest_fatigue,
			max(timestamp) as last_seen
		FROM creative_snapshots
		WHERE ad_account_id = ?
			AND timestamp >= now() - INTERVAL ? DAY
		GROUP BY creative_id
		HAVING latest_impressions > 0
		ORDER BY latest_ctr DESC
		LIMIT ?`

func getTopCreatives(ctx context.Context, db *sql.DB, accountID string, days, limit int) ([]CreativeMetrics, error) {
	rows, err := db.QueryContext(ctx, topCreativesQuery, accountID, days, limit)
	if err != nil {
		return nil, fmt.Errorf("query top creatives: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []CreativeMetrics
	for rows.Next() {
		var m CreativeMetrics
		if err := rows.Scan(&m.CreativeID, &m.Name, &m.CreativeType, &m.Impressions, &m.Clicks,
			&m.Spend, &m.CTR, &m.CPC, &m.Frequency, &m.Performance, &m.FatigueLevel, &m.LastSeen); err != nil {
			return nil, fmt.Errorf("scan top creative: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const fatigueTrendQuery = `
		SELECT
			creative_id,
			argMax(name, timestamp) as latest_name,
			argMin(frequency, timestamp) as first_frequency,
			argMax(frequency, timestamp) as last_frequency,
			argMin(ctr, timestamp) as first_ctr,
			argMax(ctr, timestamp) as last_ctr,
			count() as snapshots
		FROM creative_snapshots
		WHERE ad_account_id = ?
			AND timestamp >= now() - INTERVAL ? DAY
		GROUP BY creative_id
		HAVING snapshots > 1
		ORDER BY last_frequency - first_frequency DESC
		LIMIT ?`

func getFatigueTrends(ctx context.Context, db *sql.DB, accountID string, days, limit int) ([]FatigueTrend, error) {
	rows, err := db.QueryContext(ctx, fatigueTrendQuery, accountID, days, limit)
	if err != nil {
		return nil, fmt.Errorf("query fatigue trends: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []FatigueTrend
	for rows.Next() {
		var f FatigueTrend
		if err := rows.Scan(&f.CreativeID, &f.Name, &f.FirstFrequency, &f.LastFrequency,
			&f.FirstCTR, &f.LastCTR, &f.Snapshots); err != nil {
			return nil, fmt.Errorf("scan fatigue trend: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const typeBreakdownQuery = `
		SELECT
			latest_type,
			count() as creatives,
			sum(latest_impressions) as impressions,
			sum(latest_clicks) as clicks,
			sum(latest_spend) as spend
		FROM (
			SELECT
				creative_id,
				argMax(creative_type, timestamp) as latest_type,
				argMax(impressions, timestamp) as latest_impressions,
				argMax(clicks, timestamp) as latest_clicks,
				argMax(spend, timestamp) as latest_spend
			FROM creative_snapshots
			WHERE ad_account_id = ?
				AND timestamp >= now() - INTERVAL ? DAY
			GROUP BY creative_id
		)
		GROUP BY latest_type
		ORDER BY spend DESC`

func getTypeBreakdown(ctx context.Context, db *sql.DB, accountID string, days int) ([]TypeMetrics, error) {
	rows, err := db.QueryContext(ctx, typeBreakdownQuery, accountID, days)
	if err != nil {
		return nil, fmt.Errorf("query type breakdown: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []TypeMetrics
	for rows.Next() {
		var m TypeMetrics
		if err := rows.Scan(&m.CreativeType, &m.Creatives, &m.Impressions, &m.Clicks, &m.Spend); err != nil {
			return nil, fmt.Errorf("scan type breakdown: %w", err)
		}
		if m.Impressions > 0 {
			m.CTR = m.Clicks / m.Impressions * 100
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
