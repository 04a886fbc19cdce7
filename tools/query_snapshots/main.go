package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/patrickwarner/adcreatives/internal/analytics"
	"github.com/patrickwarner/adcreatives/internal/config"
	"github.com/patrickwarner/adcreatives/internal/graph"
	"github.com/patrickwarner/adcreatives/internal/observability"
)

func main() {
	logger, err := observability.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var account, creative, dsn string
	var limit int
	flag.StringVar(&account, "account", "", "ad account ID")
	flag.StringVar(&creative, "creative", "", "creative ID")
	flag.IntVar(&limit, "limit", 30, "maximum snapshots to print")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN")
	flag.Parse()

	if account == "" || creative == "" {
		fmt.Fprintln(os.Stderr, "account and creative required")
		os.Exit(1)
	}
	if dsn == "" {
		cfg := config.Load()
		dsn = cfg.ClickHouseDSN
	}

	a, err := analytics.InitClickHouse(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect clickhouse: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshots, err := a.CreativeHistory(ctx, graph.AccountPath(account), creative, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query snapshots: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshots); err != nil {
		fmt.Fprintf(os.Stderr, "encode snapshots: %v\n", err)
		os.Exit(1)
	}
}
