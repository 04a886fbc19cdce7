package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/patrickwarner/adcreatives/internal/analytics"
	"github.com/patrickwarner/adcreatives/internal/config"
	"github.com/patrickwarner/adcreatives/internal/creatives"
	"github.com/patrickwarner/adcreatives/internal/models"
	"github.com/patrickwarner/adcreatives/internal/observability"
)

var (
	account = flag.String("account", "act_demo", "ad account ID to seed")
	days    = flag.Int("days", 30, "number of daily snapshots per creative")
	dsn     = flag.String("dsn", "", "ClickHouse DSN (defaults to CLICKHOUSE_DSN)")
	seed    = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
)

func main() {
	flag.Parse()

	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *dsn == "" {
		*dsn = config.Load().ClickHouseDSN
	}
	a, err := analytics.InitClickHouse(*dsn)
	if err != nil {
		logger.Fatal("connect clickhouse", zap.Error(err))
	}
	defer a.Close()

	r := rand.New(rand.NewSource(*seed))
	base := creatives.MockCreatives(*account)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	ctx := context.Background()
	for d := *days - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		a.SetClock(func() time.Time { return day.Add(9 * time.Hour) })

		records := make([]models.CreativeRecord, len(base))
		for i, rec := range base {
			records[i] = age(r, rec, *days-d)
		}
		if err := a.RecordCreatives(ctx, *account, creatives.RangeLast30Days, records); err != nil {
			logger.Fatal("record snapshots", zap.Error(err), zap.Time("day", day))
		}
	}

	logger.Info("seeded creative snapshots",
		zap.String("account", *account),
		zap.Int("days", *days),
		zap.Int("creatives", len(base)))
}

// age scales a sample record to its state after n days of delivery. Reach
// grows slower than impressions and CTR decays, so later snapshots drift
// towards higher fatigue.
func age(r *rand.Rand, rec models.CreativeRecord, n int) models.CreativeRecord {
	scale := float64(n) / 30
	jitter := 0.9 + r.Float64()*0.2

	rec.Impressions = float64(int(rec.Impressions * scale * jitter))
	rec.Reach = float64(int(rec.Reach * (0.5 + scale*0.5) * jitter))
	if rec.Reach > rec.Impressions {
		rec.Reach = rec.Impressions
	}
	decay := 1.2 - 0.4*scale
	rec.Clicks = float64(int(rec.Clicks * scale * decay * jitter))
	rec.Spend = rec.Spend * scale * jitter

	rec.CTR, rec.CPC, rec.CPM, rec.Frequency = 0, 0, 0, 0
	if rec.Impressions > 0 {
		rec.CTR = rec.Clicks / rec.Impressions * 100
		rec.CPM = rec.Spend / rec.Impressions * 1000
	}
	if rec.Clicks > 0 {
		rec.CPC = rec.Spend / rec.Clicks
	}
	if rec.Reach > 0 {
		rec.Frequency = rec.Impressions / rec.Reach
	}
	rec.Performance = creatives.ClassifyPerformance(rec.CTR, rec.CPC)
	rec.FatigueLevel = creatives.ClassifyFatigue(rec.Frequency)
	return rec
}
