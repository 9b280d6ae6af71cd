package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/signal-relay/config"
	"github.com/cwrk-planet/signal-relay/internal/logger"
	"github.com/cwrk-planet/signal-relay/internal/postgres"
	"github.com/cwrk-planet/signal-relay/internal/registry"
	grpcx "github.com/cwrk-planet/signal-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/signal-relay/internal/transport/http"
	"github.com/cwrk-planet/signal-relay/internal/transport/ws"

	"google.golang.org/grpc"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting signal-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "generator", cfg.Registry.Generator)

	// --- registry ---
	gen := registry.Digits(cfg.Registry.Digits)
	if cfg.Registry.Generator == config.GeneratorWords {
		gen = registry.StateAnimal()
	}
	reg := registry.New(gen)

	// --- audit log (optional) ---
	ctx := context.Background()
	var (
		events    httpx.EventLister
		wsOpts    = []ws.ServerOption{ws.WithPingEvery(cfg.WS.PingEvery)}
		auditStop func(context.Context) error
	)
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxConns:        cfg.Postgres.MaxConns,
			ApplicationName: cfg.Logging.Service,
		})
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()

		if cfg.Postgres.AutoCreate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatalf("postgres: %v", err)
			}
		}

		repo := postgres.NewEventRepository(pool)
		writer := postgres.NewEventWriter(repo, cfg.Postgres.QueueSize)
		events = repo
		wsOpts = append(wsOpts, ws.WithRecorder(writer))
		auditStop = writer.Close
		slog.Info("audit log enabled")
	}

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, reg, wsOpts...)

	// --- HTTP ---
	handler := httpx.NewHandler(reg, events)
	router := httpx.NewRouter(handler, wsServer.HandleWS, httpx.RouterConfig{
		StaticDir:      cfg.HTTP.StaticDir,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     router,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		IdleTimeout: cfg.HTTP.IdleTimeout,
	}

	// --- gRPC (optional) ---
	var grpcServer *grpc.Server
	if cfg.GRPC.Addr != "" {
		grpcServer = grpc.NewServer(
			grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor(slog.Default(), grpcx.DefaultCallTimeout)),
			grpc.ChainStreamInterceptor(grpcx.StreamServerInterceptor(slog.Default())),
		)
		grpcx.Register(grpcServer, grpcx.NewServer(reg))
	}

	// --- run ---
	errCh := make(chan error, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr, "static", cfg.HTTP.StaticDir)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if grpcServer != nil {
		go func() {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				errCh <- err
				return
			}
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := grpcServer.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	// hijacked WebSocket connections are not tracked by Shutdown; they end
	// when the process exits
	_ = httpSrv.Shutdown(ctxShutdown)
	if auditStop != nil {
		if err := auditStop(ctxShutdown); err != nil {
			slog.Warn("audit drain incomplete", "err", err)
		}
	}
	slog.Info("stopped", "rooms", reg.Len())
}
