// authgate-api serves the REST API: auth-method status, local login,
// authorization queries, password recovery, and the protected demo data.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cccteam/logger"
	"github.com/go-playground/errors/v5"
	"github.com/guardteam/authgate/internal/appconf"
	"github.com/guardteam/authgate/internal/azureoidc"
	"github.com/guardteam/authgate/internal/jwtlocal"
	"github.com/guardteam/authgate/server"
	"github.com/guardteam/authgate/store"
	"github.com/guardteam/authgate/store/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	configPath := flag.String("config", "authgate.yaml", "path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := appconf.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "appconf.Load()")
	}

	var issuerOpts []jwtlocal.Option
	if cfg.Auth.TokenTTL > 0 {
		issuerOpts = append(issuerOpts, jwtlocal.WithTTL(cfg.Auth.TokenTTL))
	}
	issuer, err := jwtlocal.NewIssuer([]byte(cfg.Auth.JWTSecret), issuerOpts...)
	if err != nil {
		return errors.Wrap(err, "jwtlocal.NewIssuer()")
	}

	st, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []server.Option{}
	if cfg.Auth.AdminToken != "" {
		opts = append(opts, server.WithAdminToken(cfg.Auth.AdminToken))
	}
	if cfg.Azure.IssuerURL != "" {
		opts = append(opts, server.WithAzureVerifier(azureoidc.New(cfg.Azure.IssuerURL, cfg.Azure.ClientID)))
	}
	if cfg.Reset.TokenTTL > 0 {
		opts = append(opts, server.WithResetTokenTTL(cfg.Reset.TokenTTL))
	}
	if cfg.Reset.RateMax > 0 {
		opts = append(opts, server.WithResetRateLimit(cfg.Reset.RateMax))
	}

	api := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(st, issuer, opts...).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Ctx(ctx).Infof("authgate-api listening on %s", cfg.Server.Addr)
		errCh <- api.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http.Server.ListenAndServe()")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http.Server.Shutdown()")
	}

	return nil
}

func newStore(ctx context.Context, cfg *appconf.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "pgxpool.New()")
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, errors.Wrap(err, "pgxpool.Pool.Ping()")
		}

		return postgres.New(pool), nil
	default:
		mem := store.NewMemory()
		if err := store.SeedDemo(mem); err != nil {
			return nil, errors.Wrap(err, "store.SeedDemo()")
		}

		return mem, nil
	}
}
