package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guardteam/authgate/client"
	"github.com/guardteam/authgate/credstore"
	"github.com/guardteam/authgate/permission"
)

func backend(t *testing.T, azure, local bool, authz http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /config/auth/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"azureAdHabilitado": azure,
			"jwtLocalHabilitado": local,
		})
	})
	if authz != nil {
		mux.HandleFunc("GET /autorizacion/informacion-usuario", authz)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func userInfoHandler(codes ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perms := make([]permission.Permission, 0, len(codes))
		for _, code := range codes {
			module, action, _ := strings.Cut(code, "_")
			perms = append(perms, permission.Permission{Code: code, Module: module, Action: action})
		}
		_ = json.NewEncoder(w).Encode(permission.UserInfo{
			Email:           "admin@test.com",
			Name:            "Admin",
			Permissions:     perms,
			PermissionCodes: codes,
		})
	}
}

func TestGuard_State(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		authz    http.HandlerFunc
		token    string
		criteria permission.Criteria
		want     State
	}{
		{
			name:     "no token is unauthenticated",
			criteria: permission.Criteria{Codes: []string{"USUARIOS_LEER"}},
			want:     Unauthenticated,
		},
		{
			name:     "empty criteria allowed without profile fetch",
			token:    "Bearer sometoken",
			criteria: permission.Criteria{},
			want:     AuthenticatedWithPermissions,
		},
		{
			name:     "granted criteria",
			authz:    userInfoHandler("USUARIOS_LEER"),
			token:    "Bearer sometoken",
			criteria: permission.Criteria{Codes: []string{"USUARIOS_LEER"}},
			want:     AuthenticatedWithPermissions,
		},
		{
			name:     "denied criteria",
			authz:    userInfoHandler("USUARIOS_LEER"),
			token:    "Bearer sometoken",
			criteria: permission.Criteria{Codes: []string{"USUARIOS_CREAR"}},
			want:     AccessDenied,
		},
		{
			name: "profile fetch failure stays authenticated without permissions",
			authz: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			token:    "Bearer sometoken",
			criteria: permission.Criteria{Codes: []string{"USUARIOS_LEER"}},
			want:     AuthenticatedNoPermissions,
		},
		{
			name: "401 during fetch drops to unauthenticated",
			authz: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			token:    "Bearer sometoken",
			criteria: permission.Criteria{Codes: []string{"USUARIOS_LEER"}},
			want:     Unauthenticated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := backend(t, false, true, tt.authz)
			store := credstore.NewMemoryStore()
			c := client.New(srv.URL, store, client.WithTokenMaxAge(0))
			if _, err := c.ResolveMethod(context.Background()); err != nil {
				t.Fatalf("client.Client.ResolveMethod() error = %v", err)
			}
			if tt.token != "" {
				store.Set(credstore.KeyToken, []byte(tt.token))
			}

			g := New(func(http.ResponseWriter, *http.Request) Session { return c })
			if got := g.State(context.Background(), c, tt.criteria); got != tt.want {
				t.Errorf("Guard.State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard_RequireAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		local        bool
		token        string
		wantStatus   int
		wantLocation string
	}{
		{
			name:       "authenticated passes through",
			local:      true,
			token:      "Bearer sometoken",
			wantStatus: http.StatusOK,
		},
		{
			name:         "unauthenticated local redirects to login with returnUrl",
			local:        true,
			wantStatus:   http.StatusFound,
			wantLocation: "/login?returnUrl=%2Fdatos",
		},
		{
			name:         "no method resolved redirects to selector",
			local:        false,
			wantStatus:   http.StatusFound,
			wantLocation: "/auth-selector",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := backend(t, false, tt.local, nil)
			store := credstore.NewMemoryStore()
			c := client.New(srv.URL, store, client.WithTokenMaxAge(0))
			if _, err := c.ResolveMethod(context.Background()); err != nil {
				t.Fatalf("client.Client.ResolveMethod() error = %v", err)
			}
			if tt.token != "" {
				store.Set(credstore.KeyToken, []byte(tt.token))
			}

			g := New(func(http.ResponseWriter, *http.Request) Session { return c })
			handler := g.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/datos", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantLocation != "" && rec.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLocation)
			}
		})
	}
}

func TestGuard_RequirePermissions(t *testing.T) {
	t.Parallel()

	t.Run("granted route passes through", func(t *testing.T) {
		t.Parallel()

		srv := backend(t, false, true, userInfoHandler("REPORTES_LEER"))
		store := credstore.NewMemoryStore()
		c := client.New(srv.URL, store, client.WithTokenMaxAge(0))
		if _, err := c.ResolveMethod(context.Background()); err != nil {
			t.Fatalf("client.Client.ResolveMethod() error = %v", err)
		}
		store.Set(credstore.KeyToken, []byte("Bearer sometoken"))

		g := New(func(http.ResponseWriter, *http.Request) Session { return c })
		handler := g.RequirePermissions(permission.Criteria{Module: "REPORTES"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reportes", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("denied route records attempted URL", func(t *testing.T) {
		t.Parallel()

		srv := backend(t, false, true, userInfoHandler("USUARIOS_LEER"))
		store := credstore.NewMemoryStore()
		c := client.New(srv.URL, store, client.WithTokenMaxAge(0))
		if _, err := c.ResolveMethod(context.Background()); err != nil {
			t.Fatalf("client.Client.ResolveMethod() error = %v", err)
		}
		store.Set(credstore.KeyToken, []byte("Bearer sometoken"))

		g := New(func(http.ResponseWriter, *http.Request) Session { return c })
		handler := g.RequirePermissions(permission.Criteria{Codes: []string{"CONFIG_EDITAR"}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler reached on denied route")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/configuracion?tab=avanzada", nil))

		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
		}
		if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/acceso-denegado?returnUrl=") {
			t.Errorf("Location = %q, want access-denied redirect", loc)
		}

		attempted, ok := AttemptedURL(store)
		if !ok {
			t.Fatal("AttemptedURL() not recorded")
		}
		if attempted != "/configuracion?tab=avanzada" {
			t.Errorf("AttemptedURL() = %q, want %q", attempted, "/configuracion?tab=avanzada")
		}
		if _, ok := AttemptedURL(store); ok {
			t.Error("AttemptedURL() not cleared after read")
		}
	})
}
