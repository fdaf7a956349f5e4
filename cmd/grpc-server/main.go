package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"riftbound/internal/catalog"
	"riftbound/internal/grpcserver"
	"riftbound/pkg/database"
	"riftbound/pkg/logging"
	"riftbound/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.NewZapLogger("grpc-server", cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("db open failed", err, map[string]any{"path": cfg.Database.Path})
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Error("db migrate failed", err, nil)
		os.Exit(1)
	}

	listener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", err, map[string]any{"addr": cfg.Server.GRPCAddr})
		os.Exit(1)
	}

	svc := grpcserver.NewServer(catalog.NewRepo(db))
	grpcServer := grpcserver.NewGRPCServer(svc, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("gRPC server listening", map[string]any{"addr": cfg.Server.GRPCAddr})
		errCh <- grpcServer.Serve(listener)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", map[string]any{"signal": sig.String()})
	case err := <-errCh:
		log.Error("grpc server stopped", err, nil)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		log.Warn("graceful stop timed out, forcing", nil)
		grpcServer.Stop()
	}
	log.Info("gRPC server stopped", nil)
}
