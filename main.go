package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/wfunc/phrasegame/broadcast"
	"github.com/wfunc/phrasegame/config"
	"github.com/wfunc/phrasegame/game"
	"github.com/wfunc/phrasegame/logger"
	"github.com/wfunc/phrasegame/monitor"
	"github.com/wfunc/phrasegame/persistence"
	"github.com/wfunc/phrasegame/phrase"
	"github.com/wfunc/phrasegame/room"
	"github.com/wfunc/phrasegame/rpc"
	"github.com/wfunc/phrasegame/server"
	"github.com/wfunc/phrasegame/services"
	"github.com/wfunc/phrasegame/session"
	"github.com/wfunc/phrasegame/timer"
)

func main() {
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.Init(cfg.Log.Development)
	defer logger.Sync()
	if envErr != nil {
		logger.Log.Debugw("no .env file loaded", "error", envErr)
	}

	clock := clockwork.NewRealClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store
	store, err := persistence.New(cfg.Persistence, cfg.Database.Postgres, clock)
	if err != nil {
		logger.Log.Fatalf("Failed to open session store: %v", err)
	}

	// Phrases
	catalog := phrase.NewCatalog(cfg.Game.DefaultLanguage)
	local := &phrase.FileSource{Path: cfg.Phrases.Path}
	if err := catalog.Reload(ctx, local); err != nil {
		logger.Log.Warnw("failed to load phrases", "path", cfg.Phrases.Path, "error", err)
	}
	if cfg.Phrases.RemoteURL != "" {
		updater := phrase.NewUpdater(catalog, phrase.NewHTTPSource(cfg.Phrases.RemoteURL), local, clock,
			cfg.Phrases.RefreshInterval, cfg.Phrases.InitialDelay)
		go updater.Run(ctx)
	}

	sessions := session.NewManager()
	hub := broadcast.NewHub(sessions)
	mon := monitor.NewMonitor("phrasegame")
	stats := services.NewStatsService(store, sessions, catalog)
	if err := stats.Load(); err != nil {
		logger.Log.Errorw("failed to load stats, starting from zero", "error", err)
	}

	timers := timer.NewTimerManager(clock, timer.DefaultResolution)
	rooms := room.NewRoomManager(clock, room.Defaults{
		Language:             cfg.Game.DefaultLanguage,
		RoundDurationSeconds: cfg.Game.DefaultRoundSeconds,
	})
	engine := game.NewEngine(game.Dependencies{
		Rooms:       rooms,
		Phrases:     catalog,
		Stats:       stats,
		Store:       store,
		Broadcaster: hub,
		Timers:      timers,
		Clock:       clock,
		Monitor:     mon,
	}, game.Options{
		GracePeriod:        cfg.Game.GracePeriod,
		RestoreGracePeriod: cfg.Game.RestoreGracePeriod,
		TickInterval:       cfg.Game.TickInterval,
	})

	// Restore rooms saved by the previous run
	saved, err := store.LoadRooms()
	if err != nil {
		logger.Log.Errorw("failed to load rooms, starting empty", "error", err)
	}
	if n := rooms.Restore(saved); n > 0 {
		logger.Log.Infof("Restored %d rooms", n)
		engine.Recover()
	}

	gameServer := server.NewGameServer(server.Options{
		Addr:          cfg.Server.HTTPAddress,
		CORSOrigins:   cfg.Server.CORSOrigins,
		StatsInterval: cfg.Game.StatsInterval,
		Heartbeat:     30 * time.Second,
	}, server.Dependencies{
		Engine:      engine,
		Sessions:    sessions,
		Broadcaster: hub,
		Stats:       stats,
		Monitor:     mon,
		Clock:       clock,
	})

	var rpcServer *rpc.Server
	if cfg.Server.RPCAddress != "" {
		rpcServer, err = rpc.NewServer(cfg.Server.RPCAddress, rpc.NewAdminService(stats, engine))
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		go rpcServer.Start()
	}

	var healthServer *rpc.HealthServer
	if cfg.Server.GRPCAddress != "" {
		healthServer, err = rpc.NewHealthServer(cfg.Server.GRPCAddress)
		if err != nil {
			logger.Log.Fatalf("Failed to create gRPC health server: %v", err)
		}
		go func() {
			if err := healthServer.Start(); err != nil {
				logger.Log.Errorw("gRPC health server stopped", "error", err)
			}
		}()
	}

	// Start Server
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- gameServer.Start()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-signals:
		logger.Log.Infof("Received %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Log.Errorf("Game server failed: %v", err)
		}
	}

	if healthServer != nil {
		healthServer.SetServing(false)
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnw("HTTP shutdown incomplete", "error", err)
	}
	if rpcServer != nil {
		rpcServer.Stop()
	}
	if healthServer != nil {
		healthServer.Stop()
	}

	cancel()
	engine.Close()
	timers.Stop()
	if err := store.Close(); err != nil {
		logger.Log.Errorw("failed to close session store", "error", err)
	}
	logger.Log.Info("Server stopped.")
}
