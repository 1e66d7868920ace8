// refresh runs the receivables refresh once, for one company or the whole fleet.
//
// Usage:
//
//	go run ./cmd/refresh                 # every active company
//	go run ./cmd/refresh -tenant <guid>  # one company
//	go run ./cmd/refresh -tenant <guid> -pipeline aging
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"receivables-analytics/internal/config"
	"receivables-analytics/internal/core"
	"receivables-analytics/internal/db"
	"receivables-analytics/internal/logging"
	"receivables-analytics/internal/refresh"
	"receivables-analytics/internal/scheduler"
	"receivables-analytics/internal/store"

	"github.com/sirupsen/logrus"
)

func main() {
	tenant := flag.String("tenant", "", "company guid to refresh (default: all active companies)")
	pipeline := flag.String("pipeline", "all", "pipeline to run for -tenant: all, summaries or aging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}
	defer pool.Close()

	st := store.New(pool)
	orch := refresh.New(refresh.FromStore(st), nil, core.NewFormatter(cfg.CurrencySymbol), logger)

	if *tenant == "" {
		report, err := scheduler.NewFleet(st, orch, cfg.RefreshConcurrency, logger).RefreshAll(ctx)
		if err != nil {
			logger.WithError(err).Fatal("fleet refresh")
		}
		fmt.Printf("succeeded=%d skipped=%d failed=%d\n", len(report.Succeeded), len(report.Skipped), len(report.Failed))
		if report.Err() != nil {
			os.Exit(1)
		}
		return
	}

	var res *refresh.Result
	switch *pipeline {
	case "all":
		res, err = orch.RefreshTenant(ctx, *tenant)
	case "summaries":
		res, err = orch.RefreshSummaries(ctx, *tenant)
	case "aging":
		res, err = orch.RefreshInvoiceAging(ctx, *tenant)
	default:
		logger.WithField("pipeline", *pipeline).Fatal("unknown pipeline")
	}
	if err != nil {
		logger.WithError(err).WithField("tenant", *tenant).Fatal("refresh failed")
	}
	fmt.Printf("refreshed %s: %d customers, %d invoices at %s\n",
		res.TenantID, res.Customers, res.Invoices, res.RefreshedAt.Format("2006-01-02 15:04:05"))
}
