// Command replanner runs the fleet-replanner service: either a one-shot
// planning cycle, the admin HTTP server, or a schema migration, selected by
// subcommand. Grounded on the teacher's cmd/api/main.go (config→db→
// services→router wiring, signal-driven graceful shutdown) and
// cmd/migrate/main.go (subcommand dispatch).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pageza/fleet-replanner/internal/authz"
	"github.com/pageza/fleet-replanner/internal/config"
	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/httpapi"
	"github.com/pageza/fleet-replanner/internal/replan"
	"github.com/pageza/fleet-replanner/internal/solver"
	"github.com/pageza/fleet-replanner/internal/store/postgres"
	"github.com/pageza/fleet-replanner/internal/travel"
)

const migrationsPath = "internal/store/postgres/migrations"

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: replanner <serve|run|migrate up|migrate down>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	switch os.Args[1] {
	case "migrate":
		runMigrateCommand(cfg, os.Args[2:])
	case "run":
		runOnce(cfg)
	case "serve":
		serve(cfg)
	default:
		log.Fatalf("unknown command %q", os.Args[1])
	}
}

func runMigrateCommand(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("usage: replanner migrate <up|down>")
	}

	var err error
	switch fs.Arg(0) {
	case "up":
		err = runMigrationsUp(cfg.DatabaseURL, migrationsPath)
	case "down":
		err = runMigrationsDown(cfg.DatabaseURL, migrationsPath)
	default:
		log.Fatalf("unknown migrate subcommand %q", fs.Arg(0))
	}
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

func buildOrchestrator(cfg *config.Config, logger *log.Logger) (*replan.Orchestrator, *postgres.Store, error) {
	db, err := postgres.New(cfg.DatabaseURL, cfg.DatabaseMaxConnections, cfg.DatabaseMaxIdle)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	cache, err := buildTravelCache(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load time zone %q: %w", cfg.TimeZone, err)
	}
	window, err := parseWorkingWindow(cfg.WorkingWindowStart, cfg.WorkingWindowEnd, loc)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	solverClient := solver.NewHTTPClient(cfg.SolverURL, cfg.SolverTimeout)
	applier := replan.NewWriteApplier(db, 50, 10)
	depot := domain.Coordinate{Lat: cfg.DepotLat, Lng: cfg.DepotLng}

	orc := replan.NewOrchestrator(db, solverClient, cache, applier, window, depot,
		cfg.TravelPenaltySeconds, cfg.MaxOverflowAttempts, logger)
	return orc, db, nil
}

func buildTravelCache(cfg *config.Config) (travel.Cache, error) {
	oracle := travel.NewHaversineOracle(cfg.TravelAvgSpeedKPH)

	switch cfg.TravelCacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		})
		return travel.NewRedisCache(client, oracle, cfg.TravelCacheTTL), nil
	case "memory":
		return travel.NewMemoryCache(oracle, cfg.TravelCacheTTL), nil
	default:
		return nil, fmt.Errorf("unknown travel cache backend %q", cfg.TravelCacheBackend)
	}
}

func parseWorkingWindow(start, end string, loc *time.Location) (replan.WorkingWindow, error) {
	startDur, err := parseClock(start)
	if err != nil {
		return replan.WorkingWindow{}, fmt.Errorf("parse WORKING_WINDOW_START: %w", err)
	}
	endDur, err := parseClock(end)
	if err != nil {
		return replan.WorkingWindow{}, fmt.Errorf("parse WORKING_WINDOW_END: %w", err)
	}
	return replan.WorkingWindow{Start: startDur, End: endDur, Location: loc}, nil
}

func parseClock(hhmmss string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", hhmmss)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// runOnce executes a single planning cycle and exits; for cron-driven
// deployments (spec.md §2: "invoked on a schedule").
func runOnce(cfg *config.Config) {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	orc, db, err := buildOrchestrator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to build orchestrator: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := orc.Run(ctx)
	if errors.Is(err, replan.ErrNoTechnicians) || errors.Is(err, replan.ErrNoJobs) {
		logger.Printf("cycle skipped: %v", err)
		return
	}
	if err != nil {
		log.Fatalf("cycle failed: %v", err)
	}
	logger.Printf("cycle complete: %d scheduled, %d pending review, %d passes",
		len(result.Scheduled), len(result.PendingReview), result.PassesRun)
}

// serve runs the admin HTTP server exposing the manual-trigger and
// progress-stream endpoints (C14), with graceful shutdown grounded on the
// teacher's cmd/api/main.go.
func serve(cfg *config.Config) {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	orc, db, err := buildOrchestrator(cfg, logger)
	if err != nil {
		log.Fatalf("failed to build orchestrator: %v", err)
	}
	defer db.Close()

	az := authz.NewService(cfg.JWTSecret, cfg.JWTExpiry, cfg.BcryptCost, cfg.AdminTOTPIssuer)
	totpSecret := os.Getenv("ADMIN_TOTP_SECRET")

	srv := httpapi.NewServer(orc, az, totpSecret, logger)
	router := httpapi.NewRouter(srv)

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Printf("starting admin server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
}
