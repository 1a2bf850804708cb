package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/pact/internal/api"
	"example.com/pact/internal/audit"
	"example.com/pact/internal/auth"
	"example.com/pact/internal/clients"
	"example.com/pact/internal/config"
	"example.com/pact/internal/contract"
	"example.com/pact/internal/enforce"
	"example.com/pact/internal/outbox"
	persistence "example.com/pact/internal/persistence/postgres"
	"example.com/pact/internal/pipeline"
	"example.com/pact/internal/stake"
	httptransport "example.com/pact/internal/transport/http"
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

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)

	go dispatcher.Start(ctx)

	// Collaborator clients. Mocks stand in for the activity tracker, the
	// judgment service, and the goal parser until real backends exist.
	activities := clients.NewMockActivityClient()
	judge := clients.MockJudge{}
	parser := clients.NewMockGoalParser()
	social := clients.NewLogSocialPoster()

	verifier := verify.NewEngine(activities, judge)
	gate := audit.NewGate(cfg.MaxPenaltyUSD, cfg.FalsePositiveRate)
	executor := enforce.NewExecutor(social)
	stakes := stake.NewManager(stakeStore, cfg.FalsePositiveRate)
	builder := contract.NewBuilder(parser)

	pipe := pipeline.New(verifier, gate, executor, stakes, contracts, feed, stats)

	handler := api.NewHandler(builder, pipe, contracts, feed, stats, stakes)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for local dev
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(cors(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("pact-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}
