package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	fbauth "firebase.google.com/go/v4/auth"

	"github.com/atelierhq/portal-backend/config"
	"github.com/atelierhq/portal-backend/internal/auth"
	"github.com/atelierhq/portal-backend/internal/bootstrap"
	"github.com/atelierhq/portal-backend/internal/files"
	"github.com/atelierhq/portal-backend/internal/orders"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, change events disabled: %v", err)
		rdb = nil
	}

	var authClient *fbauth.Client
	if cfg.Firebase.CredentialsPath != "" {
		authClient, err = auth.InitializeFirebase(&cfg.Firebase)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
	} else {
		log.Println("FIREBASE_CREDENTIALS_PATH not set, trusting X-User-Id (development only)")
	}

	deps := bootstrap.RouterDeps{
		ServiceName: "portal-backend",
		Version:     cfg.App.Version,
		DB:          pool,
		Redis:       rdb,
		AuthClient:  authClient,
	}

	if cfg.Storage.Bucket != "" {
		presigner, err := files.NewPresigner(ctx, cfg.Storage.Bucket, cfg.Storage.Region)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		deps.Presigner = presigner
	}
	if cfg.Shopify.ShopURL != "" && rdb != nil {
		deps.Shopify = orders.NewShopifyClient(cfg.Shopify.ShopURL, cfg.Shopify.APIKey, cfg.Shopify.APISecret, rdb)
	}

	r := bootstrap.BuildRouter(deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
