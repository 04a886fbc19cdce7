package analytics

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/adcreatives/internal/models"
)

func setupClickHouseMock(t *testing.T) (*Analytics, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	a := New(db)
	a.now = func() time.Time { return now }
	return a, mock, now
}

func sampleRecords() []models.CreativeRecord {
	return []models.CreativeRecord{
		{
			ID: "c1", Name: "Hero", CreativeType: models.CreativeTypeVideo,
			VideoURL: models.StringPtr("https://video.example/1.mp4"),
			Impressions: 1000, Clicks: 30, CTR: 3, Performance: models.PerformanceGood, FatigueLevel: models.FatigueLow,
		},
		{
			ID: "c2", Name: "Cards", CreativeType: models.CreativeTypeCarousel,
			Assets:      []models.CreativeAsset{{ImageURL: models.StringPtr("a")}, {ImageURL: models.StringPtr("b")}},
			Performance: models.PerformancePoor, FatigueLevel: models.FatigueHigh,
		},
	}
}

func TestRecordCreatives(t *testing.T) {
	a, mock, now := setupClickHouseMock(t)
	records := sampleRecords()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insertSnapshotSQL))
	prep.ExpectExec().
		WithArgs(now, "act_1", "last_7d", "c1", "Hero", "video", "", "", "", 1000.0, 30.0, 0.0, 0.0, 3.0, 0.0, 0.0, 0.0, "good", "low", uint16(0), uint8(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(now, "act_1", "last_7d", "c2", "Cards", "carousel", "", "", "", 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, "poor", "high", uint16(2), uint8(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, a.RecordCreatives(context.Background(), "act_1", "last_7d", records))
}

func TestRecordCreativesRollsBackOnError(t *testing.T) {
	a, mock, _ := setupClickHouseMock(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insertSnapshotSQL))
	prep.ExpectExec().WillReturnError(errors.New("code: 60, table does not exist"))
	mock.ExpectRollback()

	err := a.RecordCreatives(context.Background(), "act_1", "last_7d", sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1")
}

func TestRecordCreativesNoop(t *testing.T) {
	a, _, _ := setupClickHouseMock(t)
	require.NoError(t, a.RecordCreatives(context.Background(), "act_1", "last_7d", nil))

	var nilAnalytics *Analytics
	assert.ErrorIs(t, nilAnalytics.RecordCreatives(context.Background(), "act_1", "last_7d", sampleRecords()), ErrUnavailable)
}

func TestMockAnalytics(t *testing.T) {
	m := NewMockAnalytics()
	require.NoError(t, m.RecordCreatives(context.Background(), "act_1", "last_30d", sampleRecords()))
	snaps := m.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "last_30d", snaps[0].DateRange)
	assert.Len(t, snaps[0].Records, 2)
}

func TestCreativeHistory(t *testing.T) {
	a, mock, now := setupClickHouseMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(creativeHistorySQL)).
		WithArgs("act_1", "c1", 100).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "date_range", "creative_id", "name", "creative_type",
			"impressions", "clicks", "spend", "ctr", "cpc", "frequency", "performance", "fatigue_level"}).
			AddRow(now, "last_7d", "c1", "Hero", "video", 1000.0, 30.0, 15.0, 3.0, 0.5, 2.1, "good", "medium").
			AddRow(now.Add(-24*time.Hour), "last_7d", "c1", "Hero", "video", 800.0, 28.0, 12.0, 3.5, 0.43, 1.8, "excellent", "low"))

	rows, err := a.CreativeHistory(context.Background(), "act_1", "c1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, now, rows[0].Timestamp)
	assert.Equal(t, "medium", rows[0].FatigueLevel)
	assert.InDelta(t, 1.8, rows[1].Frequency, 1e-9)
}

func TestCreativeHistoryUnavailable(t *testing.T) {
	var nilAnalytics *Analytics
	_, err := nilAnalytics.CreativeHistory(context.Background(), "act_1", "c1", 10)
	assert.ErrorIs(t, err, ErrUnavailable)
}
