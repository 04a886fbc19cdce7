// Package analytics stores a snapshot of every live creatives fetch in
// ClickHouse so creative performance and fatigue can be tracked over time.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/patrickwarner/adcreatives/internal/models"
)

// ErrUnavailable is returned when the analytics DB is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// Recorder stores creative snapshots.
type Recorder interface {
	RecordCreatives(ctx context.Context, accountID, dateRange string, records []models.CreativeRecord) error
}

// Analytics wraps a ClickHouse DB connection.
type Analytics struct {
	DB  *sql.DB
	now func() time.Time
}

var _ Recorder = (*Analytics)(nil)

const createSnapshotsSQL = `CREATE TABLE IF NOT EXISTS creative_snapshots (
       timestamp      DateTime,
       ad_account_id  String,
       date_range     String,
       creative_id    String,
       name           String,
       creative_type  LowCardinality(String),
       campaign_name  String,
       adset_name     String,
       status         LowCardinality(String),
       impressions    Float64,
       clicks         Float64,
       spend          Float64,
       reach          Float64,
       ctr            Float64,
       cpc            Float64,
       cpm            Float64,
       frequency      Float64,
       performance    LowCardinality(String),
       fatigue_level  LowCardinality(String),
       asset_count    UInt16,
       has_video      UInt8
   ) ENGINE=MergeTree() ORDER BY (ad_account_id, creative_id, timestamp)`

const insertSnapshotSQL = `INSERT INTO creative_snapshots (timestamp, ad_account_id, date_range, creative_id, name, creative_type, campaign_name, adset_name, status, impressions, clicks, spend, reach, ctr, cpc, cpm, frequency, performance, fatigue_level, asset_count, has_video) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InitClickHouse connects to ClickHouse and ensures the snapshot table exists.
func InitClickHouse(dsn string) (*Analytics, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(5)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), createSnapshotsSQL); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return New(db), nil
}

// New wraps an open ClickHouse handle.
func New(db *sql.DB) *Analytics {
	return &Analytics{DB: db, now: time.Now}
}

// RecordCreatives writes one row per record in a single batch.
func (a *Analytics) RecordCreatives(ctx context.Context, accountID, dateRange string, records []models.CreativeRecord) error {
	if a == nil || a.DB == nil {
		return ErrUnavailable
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSnapshotSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare snapshot batch: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	ts := a.now().UTC().Truncate(time.Second)
	for _, r := range records {
		hasVideo := uint8(0)
		if r.VideoURL != nil {
			hasVideo = 1
		}
		if _, err := stmt.ExecContext(ctx, ts, accountID, dateRange, r.ID, r.Name, string(r.CreativeType),
			r.CampaignName, r.AdsetName, r.Status, r.Impressions, r.Clicks, r.Spend, r.Reach,
			r.CTR, r.CPC, r.CPM, r.Frequency, string(r.Performance), string(r.FatigueLevel),
			uint16(len(r.Assets)), hasVideo); err != nil {
			_ = tx.Rollback()
			zap.L().Error("clickhouse insert failed", zap.Error(err), zap.String("creative_id", r.ID))
			return fmt.Errorf("insert snapshot for creative %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot batch: %w", err)
	}
	return nil
}

// SetClock replaces the time source used to stamp snapshots.
func (a *Analytics) SetClock(now func() time.Time) { a.now = now }

// SnapshotRow is one stored snapshot of a creative.
type SnapshotRow struct {
	Timestamp    time.Time `json:"timestamp"`
	DateRange    string    `json:"date_range"`
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
}

const creativeHistorySQL = `SELECT timestamp, date_range, creative_id, name, creative_type, impressions, clicks, spend, ctr, cpc, frequency, performance, fatigue_level
	FROM creative_snapshots
	WHERE ad_account_id = ? AND creative_id = ?
	ORDER BY timestamp DESC
	LIMIT ?`

// CreativeHistory returns the latest snapshots of one creative, newest first.
func (a *Analytics) CreativeHistory(ctx context.Context, accountID, creativeID string, limit int) ([]SnapshotRow, error) {
	if a == nil || a.DB == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := a.DB.QueryContext(ctx, creativeHistorySQL, accountID, creativeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query creative history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		if err := rows.Scan(&s.Timestamp, &s.DateRange, &s.CreativeID, &s.Name, &s.CreativeType,
			&s.Impressions, &s.Clicks, &s.Spend, &s.CTR, &s.CPC, &s.Frequency, &s.Performance, &s.FatigueLevel); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// Close closes the ClickHouse connection.
func (a *Analytics) Close() {
	if a != nil && a.DB != nil {
		if err := a.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
