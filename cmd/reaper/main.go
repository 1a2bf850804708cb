package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/pact/internal/audit"
	"example.com/pact/internal/clients"
	"example.com/pact/internal/config"
	"example.com/pact/internal/enforce"
	persistence "example.com/pact/internal/persistence/postgres"
	"example.com/pact/internal/pipeline"
	"example.com/pact/internal/reaper"
	"example.com/pact/internal/stake"
	"example.com/pact/internal/verify"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	contracts := persistence.NewContractRepository(pool)
	feed := persistence.NewFeedRepository(pool)
	stats := persistence.NewStatsRepository(pool)
	stakeStore := persistence.NewStakeStore(pool)

	// The reaper synthesizes failures itself, so the verification engine is
	// wired with unconfigured collaborators and never invoked.
	verifier := verify.NewEngine(clients.NewMockActivityClient(), clients.UnconfiguredJudge{})
	gate := audit.NewGate(cfg.MaxPenaltyUSD, cfg.FalsePositiveRate)
	executor := enforce.NewExecutor(clients.NewLogSocialPoster())
	stakes := stake.NewManager(stakeStore, cfg.FalsePositiveRate)

	pipe := pipeline.New(verifier, gate, executor, stakes, contracts, feed, stats)
	sweeper := reaper.NewSweeper(contracts, pipe, cfg.ReaperPollInterval, cfg.ReaperGracePeriod)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}
	go func() {
		log.Printf("reaper metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	go sweeper.Start(ctx)
	log.Printf("reaper started (interval=%s, grace=%s)", cfg.ReaperPollInterval, cfg.ReaperGracePeriod)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	sweeper.Wait()
	_ = metricsSrv.Close()
}
