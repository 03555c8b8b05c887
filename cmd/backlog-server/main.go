// Package main is the entry point for the Backlog Breakdown game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MRamiBalles/BacklogBreakdown/server/internal/domain/item"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/engine"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/events"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/infra/storage"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/network"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/logger"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/metrics"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/platform/optimization"
	"github.com/MRamiBalles/BacklogBreakdown/server/internal/recorder"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "backlog.db", "SQLite database path (empty disables persistence)")
	seed := flag.Uint64("seed", 0, "RNG seed for the first session (0 picks one from the clock)")
	catalogPath := flag.String("catalog", "", "Item catalog JSON file (empty uses the built-in catalog)")
	profile := flag.String("profile", "default", "Tuning profile: default, stress or low")
	tick := flag.Duration("tick", engine.TickRate, "Simulation frame period")
	flag.Parse()

	log.Println("[BACKLOG-SERVER] Initializing 'Backlog Breakdown' Authoritative Server...")

	appLogger := logger.NewLogger()
	collector := metrics.Get()

	tuning, err := optimization.ByName(*profile)
	if err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}

	catalog := item.DefaultCatalog()
	if *catalogPath != "" {
		appLogger.Info("Loading item catalog from " + *catalogPath + "...")
		catalog, err = item.LoadCatalogFile(*catalogPath)
		if err != nil {
			appLogger.Error("Failed to load catalog: " + err.Error())
			os.Exit(1)
		}
	}

	var (
		db          *sql.DB
		persister   events.EventPersister
		sessionRepo storage.SessionRepository
		eventRepo   storage.EventRepository
	)
	if *dbPath != "" {
		appLogger.Info("Initializing SQLite database '" + *dbPath + "'...")
		db, err = storage.InitSQLite(*dbPath)
		if err != nil {
			appLogger.Error("Failed to initialize SQLite: " + err.Error())
			os.Exit(1)
		}
		storage.ConfigurePool(db, tuning.DBMaxOpenConns, tuning.DBMaxIdleConns)

		sqliteEvents := storage.NewSQLiteEventRepository(db)
		persister = storage.NewEventLogPersister(sqliteEvents, collector)
		eventRepo = sqliteEvents
		sessionRepo = storage.NewSQLiteSessionRepository(db)
	} else {
		appLogger.Warn("No database configured. Events live in memory only.")
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(persister)
	eventLog.SetErrorHandler(func(err error) {
		appLogger.Error("Event persistence failed: " + err.Error())
	})
	eventLog.Subscribe(func(e events.GameEvent) {
		collector.RecordGameEvent(string(e.Type))
		if p, ok := e.Payload.(engine.PurchaseResult); ok && e.Type == events.EventTypePurchase {
			collector.RecordPurchase(p.Bulk)
		}
	})
	if eventRepo == nil {
		eventRepo = storage.NewLogEventRepository(eventLog)
	}

	appLogger.Info("Bootstrapping Engine Subsystems...")
	cfg := engine.DefaultConfig()
	cfg.Seed = *seed
	cfg.TickRate = *tick
	gameEngine := engine.NewEngine(cfg, catalog, eventLog, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go gameEngine.Start(ctx)

	appLogger.Info("Bootstrapping Session Recorder...")
	worker := recorder.NewWorker(eventLog, gameEngine, sessionRepo, collector, appLogger, tuning.EventPollInterval, tuning.CheckpointInterval)
	worker.Start(ctx)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(gameEngine, tuning, appLogger, collector)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)
	hub.StartSnapshotPusher(ctx)

	// Setup API Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWs)
	network.NewControlAPI(gameEngine, tuning, appLogger).RegisterRoutes(mux)
	network.NewReplayHandler(eventRepo, sessionRepo, gameEngine, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("[BACKLOG-SERVER] HTTP API & WS Server listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[BACKLOG-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[BACKLOG-SERVER] Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown failed: " + err.Error())
	}

	cancel()
	worker.Wait()
	eventLog.Wait()

	if db != nil {
		if err := db.Close(); err != nil {
			appLogger.Error("Failed to close database: " + err.Error())
		}
	}
	log.Println("[BACKLOG-SERVER] Bye.")
}
