// Creative Report Tool prints creative performance and fatigue for an ad account.
//
// It reads the snapshots the creatives service writes to ClickHouse on every
// live fetch and prints:
//   - the top creatives ranked by CTR
//   - creatives whose frequency is climbing, with their CTR trend
//   - performance by creative type
//
// Usage:
//
//	go run ./tools/creative_report -account=act_123 -days=30
//
// Configuration:
//
//	-account: Required. The ad account id (with or without the act_ prefix)
//	-days: Optional. Number of days of snapshots to include (default: 7)
//	-limit: Optional. Rows per section (default: 10)
//	-clickhouse-dsn: Optional. ClickHouse connection string
//
// Environment Variables:
//
//	CLICKHOUSE_DSN: ClickHouse connection string (overridden by -clickhouse-dsn flag)
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/reporting"
)

func main() {
	var (
		account = flag.String("account", "", "Ad account id to report on")
		days    = flag.Int("days", 7, "Number of days to include in report")
		limit   = flag.Int("limit", 10, "Rows per section")
		dsn     = flag.String("clickhouse-dsn", getEnv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000/default"), "ClickHouse DSN")
	)
	flag.Parse()

	if *account == "" {
		fmt.Fprintf(os.Stderr, "Error: account is required\n")
		flag.Usage()
		os.Exit(1)
	}

	db, err := sql.Open("clickhouse", *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to ClickHouse: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging ClickHouse: %v\n", err)
		os.Exit(1)
	}

	summary, err := reporting.GenerateCreativeReport(ctx, db, graph.AccountPath(*account), *days, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	printCreativeReport(summary)
}

func printCreativeReport(summary *reporting.CreativeSummary) {
	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
	fmt.Printf("                              CREATIVE PERFORMANCE REPORT                          \n")
	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
	fmt.Printf("Ad Account: %s\n", summary.AdAccountID)
	fmt.Printf("Snapshot Window: %d days (ending %s)\n", summary.Days, time.Now().Format("2006-01-02"))
	fmt.Printf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	if len(summary.TopCreatives) > 0 {
		fmt.Printf("🎨 TOP CREATIVES BY CTR\n")
		fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
		fmt.Printf("Creative             | Type     | Impressions |   CTR   |   CPC   | Freq | Grade\n")
		fmt.Printf("---------------------|----------|-------------|---------|---------|------|----------\n")
		for _, c := range summary.TopCreatives {
			fmt.Printf("%-20s | %-8s | %11s | %6.2f%% | $%6.2f | %4.1f | %s/%s\n",
				truncate(c.CreativeID, 20),
				c.CreativeType,
				formatNumber(int64(c.Impressions)),
				c.CTR,
				c.CPC,
				c.Frequency,
				c.Performance,
				c.FatigueLevel,
			)
		}
		fmt.Printf("\n")
	} else {
		fmt.Printf("⚠️  No snapshots in this window - fetch creatives for the account first\n\n")
	}

	if len(summary.Fatigue) > 0 {
		fmt.Printf("📉 FATIGUE TREND\n")
		fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
		fmt.Printf("Creative             | Frequency      | CTR                | Snapshots\n")
		fmt.Printf("---------------------|----------------|--------------------|----------\n")
		for _, f := range summary.Fatigue {
			marker := ""
			if f.Fatiguing() {
				marker = " ⚠️"
			}
			fmt.Printf("%-20s | %5.2f → %5.2f | %6.2f%% → %6.2f%% | %9d%s\n",
				truncate(f.CreativeID, 20),
				f.FirstFrequency, f.LastFrequency,
				f.FirstCTR, f.LastCTR,
				f.Snapshots, marker,
			)
		}
		fmt.Printf("\n")
	}

	if len(summary.ByType) > 0 {
		fmt.Printf("📊 BY CREATIVE TYPE\n")
		fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
		fmt.Printf("Type     | Creatives | Impressions | Clicks |   CTR   |   Spend   \n")
		fmt.Printf("---------|-----------|-------------|--------|---------|----------\n")
		for _, m := range summary.ByType {
			fmt.Printf("%-8s | %9d | %11s | %6s | %6.2f%% | $%8.2f\n",
				m.CreativeType,
				m.Creatives,
				formatNumber(int64(m.Impressions)),
				formatNumber(int64(m.Clicks)),
				m.CTR,
				m.Spend,
			)
		}
		fmt.Printf("\n")
	}

	fmt.Printf("💡 INSIGHTS\n")
	fmt.Printf("───────────────────────────────────────────────────────────────────────────────────\n")
	fatiguing := 0
	for _, f := range summary.Fatigue {
		if f.Fatiguing() {
			fatiguing++
		}
	}
	if fatiguing > 0 {
		fmt.Printf("⚠️  %d creative(s) show rising frequency with falling CTR - consider refreshing them\n", fatiguing)
	}
	if len(summary.TopCreatives) > 1 {
		best := summary.TopCreatives[0]
		worst := summary.TopCreatives[len(summary.TopCreatives)-1]
		if worst.CTR > 0 && best.CTR > worst.CTR*2 {
			fmt.Printf("📈 Creative %s is performing %.1fx better than Creative %s\n",
				best.CreativeID, best.CTR/worst.CTR, worst.CreativeID)
		}
	}
	if fatiguing == 0 && len(summary.TopCreatives) > 0 {
		fmt.Printf("✅ No creative fatigue detected in this window\n")
	}

	fmt.Printf("═══════════════════════════════════════════════════════════════════════════════════\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// formatNumber formats large integers with comma separators for improved readability.
// Example: 1234567 becomes "1,234,567"
func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}
	return result
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
