package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/sprakbanken/karp-s/internal/auth"
	"github.com/sprakbanken/karp-s/internal/config"
	"github.com/sprakbanken/karp-s/internal/httpapi"
	"github.com/sprakbanken/karp-s/internal/karpdb"
	"github.com/sprakbanken/karp-s/internal/logging"
	"github.com/sprakbanken/karp-s/internal/schema"
)

// loadJWTPublicKey reads and parses the configured RS256 verification
// key, if any. A missing configuration simply disables bearer-JWT auth.
func loadJWTPublicKey(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(pem)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	appLog := logging.NewApp(cfg.Logging)
	sqlLog := logging.NewSQLAudit(cfg.Logging)

	catalogue, err := config.LoadCatalogue(cfg.Resources.CatalogueFile)
	if err != nil {
		appLog.Fatalf("failed to load catalogue: %v", err)
	}
	resources, err := config.LoadResources(cfg.Resources.Dir, "")
	if err != nil {
		appLog.Fatalf("failed to load resources: %v", err)
	}

	cache := schema.NewCache()
	if err := cache.Load(catalogue, resources); err != nil {
		appLog.Fatalf("failed to load schema cache: %v", err)
	}
	appLog.Infof("schema cache loaded: %d resources", cache.ResourceCount())

	db, err := karpdb.Open(cfg.Database.DSN(), sqlLog)
	if err != nil {
		appLog.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	publicKey, err := loadJWTPublicKey(cfg.Auth.JWTPublicKeyFile)
	if err != nil {
		appLog.Fatalf("failed to load JWT public key: %v", err)
	}
	resolver := auth.NewResolver(publicKey, cfg.Auth.APIKeyURL, cfg.Auth.APIKeyAuth)

	api := httpapi.NewAPI(cache, db, resolver, cfg.Auth.APIKeyHeader)
	router := httpapi.NewRouter(api, appLog)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		appLog.Info("shutting down...")
		srv.Shutdown(context.Background())
	}()

	appLog.Infof("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		appLog.Fatalf("server error: %v", err)
	}
}
