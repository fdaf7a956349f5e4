package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"riftbound/internal/auth"
	"riftbound/internal/catalog"
	"riftbound/internal/collection"
	"riftbound/internal/decks"
	"riftbound/internal/draft"
	"riftbound/internal/maintenance"
	"riftbound/internal/ratelimit"
	redisclient "riftbound/internal/redis"
	synchub "riftbound/internal/sync"
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

	log := logging.NewZapLogger("api-server", cfg.Log.Level)
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

	rdb, err := redisclient.NewClient(cfg.Redis.Addr, &redisclient.Options{DialTimeout: 3 * time.Second})
	if err != nil {
		log.Error("redis client failed", err, nil)
		os.Exit(1)
	}
	defer rdb.Close()

	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	authRepo := auth.NewRepo(db)

	// sync clients authenticate with the same bearer tokens as the API
	verify := func(token string) (string, error) {
		claims, err := tokenSvc.Parse(token)
		if err != nil {
			return "", err
		}
		current, err := authRepo.GetTokenVersion(context.Background(), claims.UserID)
		if err != nil {
			return "", err
		}
		if current != claims.TokenVersion {
			return "", errors.New("token revoked")
		}
		return claims.UserID, nil
	}

	hub := synchub.NewHub(log)
	tcpSrv := synchub.NewServer(cfg.Server.TCPAddr, hub, verify, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(logging.GinMiddleware(log, auth.UserID), gin.Recovery())
	_ = router.SetTrustedProxies(cfg.Server.TrustedProxies)

	router.GET("/ws", synchub.WSHandler(hub, verify))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Database.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		}
		status := http.StatusOK
		body["status"] = "ready"
		if err := db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "not_ready"
			body["db_error"] = err.Error()
		} else {
			body["db"] = "ok"
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "not_ready"
			body["redis_error"] = err.Error()
		} else {
			body["redis"] = "ok"
		}
		c.JSON(status, body)
	})

	// Auth
	auth.NewHandler(authRepo, tokenSvc, log).RegisterRoutes(router.Group("/auth"))

	// Catalog (public)
	cardRepo := catalog.NewRepo(db)
	catalog.NewHandler(cardRepo).RegisterRoutes(router.Group("/cards"))

	protected := router.Group("", auth.AuthMiddleware(tokenSvc, authRepo))
	optional := router.Group("", auth.OptionalMiddleware(tokenSvc, authRepo))

	limiter := ratelimit.New(cfg.Limits.SavePerMinute, cfg.Limits.SaveBurst)
	limit := limiter.Middleware(auth.UserID)

	// Decks
	coord := decks.NewCoordinator(db, cardRepo, log)
	decks.NewHandler(coord, hub).RegisterRoutes(protected, optional, limit)

	// Drafts (redis)
	draftStore := draft.NewStore(rdb, cfg.Redis.DraftTTL)
	draft.NewHandler(draftStore, cardRepo, coord, hub).RegisterRoutes(protected, limit)

	// Collection and wishlist
	collection.NewHandler(collection.NewRepo(db), hub).RegisterRoutes(protected)

	sched := maintenance.NewScheduler(log)
	jobs := []maintenance.Job{
		{Name: "wal-checkpoint", Spec: cfg.Maintenance.CheckpointSpec, Run: maintenance.Checkpoint(db)},
		{Name: "sqlite-optimize", Spec: cfg.Maintenance.OptimizeSpec, Run: maintenance.Optimize(db)},
		{Name: "limiter-sweep", Spec: "@every 5m", Run: func(context.Context) error {
			limiter.Sweep()
			return nil
		}},
		{Name: "draft-gauge", Spec: "@every 10m", Run: func(ctx context.Context) error {
			n, err := draftStore.Active(ctx)
			if err != nil {
				return err
			}
			log.Info("active drafts", map[string]any{"count": n})
			return nil
		}},
	}
	for _, j := range jobs {
		if err := sched.Add(j); err != nil {
			log.Error("schedule job failed", err, map[string]any{"job": j.Name})
			os.Exit(1)
		}
	}
	sched.Start()

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("TCP sync server listening", map[string]any{"addr": cfg.Server.TCPAddr})
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("HTTP API server listening", map[string]any{"addr": cfg.Server.HTTPAddr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", map[string]any{"signal": sig.String()})
	case err := <-errCh:
		log.Error("server error", err, nil)
	}

	log.Info("shutting down servers", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", err, nil)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Error("tcp shutdown error", err, nil)
	}
	hub.Close()

	wg.Wait()
	log.Info("servers stopped", nil)
}
