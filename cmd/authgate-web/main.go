// authgate-web serves the browser front end. It renders the sign-in
// surfaces and protected pages, keeping the session in an encrypted
// cookie and calling the authgate API on the user's behalf.
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
	"github.com/gorilla/securecookie"
	"github.com/guardteam/authgate/credstore"
	"github.com/guardteam/authgate/internal/appconf"
	"github.com/guardteam/authgate/web"
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
	if cfg.Web.CookieHashKey == "" {
		return errors.New("web.cookie_hash_key is required")
	}
	if cfg.Web.APIBaseURL == "" {
		return errors.New("web.api_base_url is required")
	}

	var blockKey []byte
	if cfg.Web.CookieKey != "" {
		blockKey = []byte(cfg.Web.CookieKey)
	}
	sc := securecookie.New([]byte(cfg.Web.CookieHashKey), blockKey)

	opts := []web.Option{}
	if cfg.Azure.IssuerURL != "" && cfg.Azure.ClientSecret != "" {
		azure, err := web.NewAzureAuth(ctx, sc, cfg.Azure.IssuerURL, cfg.Azure.ClientID, cfg.Azure.ClientSecret, cfg.Azure.RedirectURL)
		if err != nil {
			return errors.Wrap(err, "web.NewAzureAuth()")
		}
		opts = append(opts, web.WithAzureAuth(azure))
	}

	app, err := web.New(cfg.Web.APIBaseURL, credstore.NewCookieClient(sc), opts...)
	if err != nil {
		return errors.Wrap(err, "web.New()")
	}

	srv := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Ctx(ctx).Infof("authgate-web listening on %s", cfg.Web.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http.Server.ListenAndServe()")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http.Server.Shutdown()")
	}

	return nil
}
