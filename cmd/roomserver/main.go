// Package main provides the room server binary: the websocket session
// coordinator, its HTTP API, and the optional admin health listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomsync/internal/config"
	"github.com/cory-johannsen/roomsync/internal/frontend/handlers"
	"github.com/cory-johannsen/roomsync/internal/frontend/ws"
	"github.com/cory-johannsen/roomsync/internal/game/room"
	"github.com/cory-johannsen/roomsync/internal/game/session"
	"github.com/cory-johannsen/roomsync/internal/game/spawn"
	"github.com/cory-johannsen/roomsync/internal/gameserver"
	"github.com/cory-johannsen/roomsync/internal/observability"
	"github.com/cory-johannsen/roomsync/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	registry, err := loadRegistry(cfg.Session.RoomsFile)
	if err != nil {
		logger.Fatal("loading rooms", zap.Error(err))
	}
	logger.Info("rooms loaded",
		zap.Int("count", registry.Len()),
		zap.Strings("ids", registry.IDs()),
	)

	spawner, err := spawn.NewSpawner(spawnSource(cfg.Session.SpawnSeed), spawn.Bounds{
		MinX: cfg.Session.Spawn.MinX,
		MaxX: cfg.Session.Spawn.MaxX,
		Y:    cfg.Session.Spawn.Y,
		MinZ: cfg.Session.Spawn.MinZ,
		MaxZ: cfg.Session.Spawn.MaxZ,
	})
	if err != nil {
		logger.Fatal("creating spawner", zap.Error(err))
	}

	clock := session.SystemClock{}
	hub := gameserver.NewHub(logger.Named("hub"))
	coord := session.NewCoordinator(registry, hub, spawner, clock, logger.Named("coordinator"))
	reaper := gameserver.NewIdleReaper(coord, cfg.Session.SweepInterval, cfg.Session.IdleThreshold, clock, logger.Named("reaper"))

	socket := ws.NewHandler(cfg.Socket, cfg.HTTP.AllowedOrigins, hub, coord, logger.Named("ws"))
	api := handlers.NewAPI(coord, hub, cfg.Update, clock, logger.Named("api"))
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           handlers.NewRouter(cfg.HTTP, api, cfg.Socket.Path, socket, logger.Named("http")),
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	lifecycle := server.NewLifecycle(logger, cfg.HTTP.ShutdownTimeout)

	if cfg.Admin.Enabled {
		admin := gameserver.NewAdminServer(logger.Named("admin"))
		lifecycle.Add("admin", &server.FuncService{
			StartFn: func(context.Context) error {
				return admin.ListenAndServe(cfg.Admin.Addr())
			},
			StopFn: admin.Stop,
		})
	}

	lifecycle.Add("http", &server.FuncService{
		StartFn: func(context.Context) error {
			lis, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", httpServer.Addr, err)
			}
			logger.Info("HTTP server listening",
				zap.String("addr", lis.Addr().String()),
				zap.String("socket_path", cfg.Socket.Path),
			)
			if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving HTTP: %w", err)
			}
			return nil
		},
		StopFn: func(ctx context.Context) error {
			err := httpServer.Shutdown(ctx)
			if wsErr := socket.Shutdown(ctx); wsErr != nil && err == nil {
				err = wsErr
			}
			return err
		},
	})

	lifecycle.Add("reaper", &server.FuncService{
		StartFn: reaper.Run,
	})

	logger.Info("room server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.Bool("admin", cfg.Admin.Enabled),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func loadRegistry(path string) (*room.Registry, error) {
	if path == "" {
		return room.DefaultRegistry(), nil
	}
	return room.LoadRegistryFromFile(path)
}

func spawnSource(seed uint64) spawn.Source {
	if seed == 0 {
		return spawn.NewCryptoSource()
	}
	return spawn.NewSeededSource(seed)
}
