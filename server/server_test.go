package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/guardteam/authgate/internal/azureoidc"
	"github.com/guardteam/authgate/internal/jwtlocal"
	"github.com/guardteam/authgate/mock/mock_azureoidc"
	"github.com/guardteam/authgate/permission"
	"github.com/guardteam/authgate/store"
	gomock "go.uber.org/mock/gomock"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *store.Memory, *jwtlocal.Issuer) {
	t.Helper()

	mem := store.NewMemory()
	if err := store.SeedDemo(mem); err != nil {
		t.Fatalf("store.SeedDemo() error = %v", err)
	}
	issuer, err := jwtlocal.NewIssuer([]byte("test-secret"))
	if err != nil {
		t.Fatalf("jwtlocal.NewIssuer() error = %v", err)
	}

	srv := httptest.NewServer(New(mem, issuer, opts...).Routes())
	t.Cleanup(srv.Close)

	return srv, mem, issuer
}

func doJSON(t *testing.T, method, url string, headers map[string]string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("json.Encoder.Encode() error = %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("http.NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http.Client.Do() error = %v", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("json.Decoder.Decode() error = %v", err)
		}
	}

	return resp.StatusCode
}

func login(t *testing.T, baseURL, email, password string) (string, int) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/auth/login", nil)
	if err != nil {
		t.Fatalf("http.NewRequest() error = %v", err)
	}
	req.SetBasicAuth(email, password)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http.Client.Do() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode
	}

	body := struct {
		Token   string `json:"token"`
		Type    string `json:"type"`
		Message string `json:"message"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("json.Decoder.Decode() error = %v", err)
	}
	if body.Type != "Bearer" {
		t.Fatalf("login type = %q, want %q", body.Type, "Bearer")
	}

	return body.Token, resp.StatusCode
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

func TestServer_Login(t *testing.T) {
	t.Parallel()

	srv, _, issuer := newTestServer(t)

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{
			name:       "valid credentials",
			email:      "admin@test.com",
			password:   "admin123",
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			email:      "admin@test.com",
			password:   "nope",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown user",
			email:      "ghost@test.com",
			password:   "admin123",
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, status := login(t, srv.URL, tt.email, tt.password)
			if status != tt.wantStatus {
				t.Fatalf("login status = %d, want %d", status, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			if !strings.HasPrefix(token, jwtlocal.TokenPrefix) {
				t.Errorf("token = %q, want %q prefix", token, jwtlocal.TokenPrefix)
			}
			claims, err := issuer.Verify(token)
			if err != nil {
				t.Fatalf("Issuer.Verify() error = %v", err)
			}
			if claims.Subject != tt.email {
				t.Errorf("claims.Subject = %q, want %q", claims.Subject, tt.email)
			}
			if claims.Profile != "Usuario Básico" {
				t.Errorf("claims.Profile = %q, want %q", claims.Profile, "Usuario Básico")
			}
			codes := claims.PermissionCodes()
			if !contains(codes, "USUARIOS_LEER") || !contains(codes, "DASHBOARD_LEER") {
				t.Errorf("claims.PermissionCodes() = %v, want USUARIOS_LEER and DASHBOARD_LEER", codes)
			}
		})
	}

	t.Run("missing basic auth", func(t *testing.T) {
		t.Parallel()

		if status := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", nil, nil, nil); status != http.StatusUnauthorized {
			t.Errorf("login status = %d, want %d", status, http.StatusUnauthorized)
		}
	})

	t.Run("local auth disabled", func(t *testing.T) {
		t.Parallel()

		srv, mem, _ := newTestServer(t)
		if err := mem.SetAuthFlags(context.Background(), store.AuthFlags{AzureADEnabled: true, LocalJWTEnabled: false}); err != nil {
			t.Fatalf("Memory.SetAuthFlags() error = %v", err)
		}

		if _, status := login(t, srv.URL, "admin@test.com", "admin123"); status != http.StatusForbidden {
			t.Errorf("login status = %d, want %d", status, http.StatusForbidden)
		}
	})
}

func TestServer_AuthStatus(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	body := struct {
		AzureADEnabled  bool  `json:"azureAdHabilitado"`
		LocalJWTEnabled bool  `json:"jwtLocalHabilitado"`
		Timestamp       int64 `json:"timestamp"`
	}{}
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/config/auth/status", nil, nil, &body); status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if body.AzureADEnabled || !body.LocalJWTEnabled {
		t.Errorf("flags = azure:%t local:%t, want azure:false local:true", body.AzureADEnabled, body.LocalJWTEnabled)
	}
	if body.Timestamp == 0 {
		t.Error("timestamp = 0, want server time")
	}
}

func TestServer_UpdateAuthConfig(t *testing.T) {
	t.Parallel()

	boolPtr := func(b bool) *bool { return &b }

	type request struct {
		AzureADEnabled  *bool `json:"azureAdHabilitado"`
		LocalJWTEnabled *bool `json:"jwtLocalHabilitado"`
	}

	tests := []struct {
		name       string
		adminToken string
		header     map[string]string
		body       request
		wantStatus int
		wantFlags  *store.AuthFlags
	}{
		{
			name:       "valid partial update",
			adminToken: "admin-secret",
			header:     map[string]string{"X-Admin-Token": "admin-secret"},
			body:       request{AzureADEnabled: boolPtr(true)},
			wantStatus: http.StatusOK,
			wantFlags:  &store.AuthFlags{AzureADEnabled: true, LocalJWTEnabled: true},
		},
		{
			name:       "missing admin token",
			adminToken: "admin-secret",
			body:       request{AzureADEnabled: boolPtr(true)},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "wrong admin token",
			adminToken: "admin-secret",
			header:     map[string]string{"X-Admin-Token": "guess"},
			body:       request{AzureADEnabled: boolPtr(true)},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no admin token configured",
			header:     map[string]string{"X-Admin-Token": ""},
			body:       request{AzureADEnabled: boolPtr(true)},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "rejects disabling both methods",
			adminToken: "admin-secret",
			header:     map[string]string{"X-Admin-Token": "admin-secret"},
			body:       request{AzureADEnabled: boolPtr(false), LocalJWTEnabled: boolPtr(false)},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var opts []Option
			if tt.adminToken != "" {
				opts = append(opts, WithAdminToken(tt.adminToken))
			}
			srv, mem, _ := newTestServer(t, opts...)

			status := doJSON(t, http.MethodPost, srv.URL+"/api/config/auth/config/admin", tt.header, tt.body, nil)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if tt.wantFlags == nil {
				return
			}

			flags, err := mem.AuthFlags(context.Background())
			if err != nil {
				t.Fatalf("Memory.AuthFlags() error = %v", err)
			}
			if flags != *tt.wantFlags {
				t.Errorf("flags = %+v, want %+v", flags, *tt.wantFlags)
			}
		})
	}
}

func TestServer_Authorization_Local(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t)

	token, status := login(t, srv.URL, "usuario@test.com", "user123")
	if status != http.StatusOK {
		t.Fatalf("login status = %d, want %d", status, http.StatusOK)
	}
	auth := map[string]string{"Authorization": token}

	t.Run("informacion-usuario", func(t *testing.T) {
		t.Parallel()

		info := permission.UserInfo{}
		if status := doJSON(t, http.MethodGet, srv.URL+"/api/autorizacion/informacion-usuario", auth, nil, &info); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		if info.Email != "usuario@test.com" {
			t.Errorf("info.Email = %q, want %q", info.Email, "usuario@test.com")
		}
		if info.Name != "Usuario Local" {
			t.Errorf("info.Name = %q, want %q", info.Name, "Usuario Local")
		}
		if !contains(info.PermissionCodes, "USUARIOS_LEER") || !contains(info.PermissionCodes, "DASHBOARD_LEER") {
			t.Errorf("info.PermissionCodes = %v, want USUARIOS_LEER and DASHBOARD_LEER", info.PermissionCodes)
		}
		if contains(info.PermissionCodes, "CONFIG_EDITAR") {
			t.Errorf("info.PermissionCodes = %v, want no CONFIG_EDITAR", info.PermissionCodes)
		}
	})

	t.Run("tiene-permiso", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			code string
			want bool
		}{
			{code: "USUARIOS_LEER", want: true},
			{code: "CONFIG_EDITAR", want: false},
		}
		for _, tt := range tests {
			body := struct {
				Granted bool `json:"tienePermiso"`
			}{}
			url := fmt.Sprintf("%s/api/autorizacion/tiene-permiso/%s", srv.URL, tt.code)
			if status := doJSON(t, http.MethodGet, url, auth, nil, &body); status != http.StatusOK {
				t.Fatalf("status = %d, want %d", status, http.StatusOK)
			}
			if body.Granted != tt.want {
				t.Errorf("tienePermiso(%s) = %t, want %t", tt.code, body.Granted, tt.want)
			}
		}
	})

	t.Run("tiene-permiso-modulo", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			module string
			want   bool
		}{
			{module: "DASHBOARD", want: true},
			{module: "CONFIGURACION", want: false},
		}
		for _, tt := range tests {
			body := struct {
				Granted bool `json:"tienePermiso"`
			}{}
			url := fmt.Sprintf("%s/api/autorizacion/tiene-permiso-modulo/%s", srv.URL, tt.module)
			if status := doJSON(t, http.MethodGet, url, auth, nil, &body); status != http.StatusOK {
				t.Fatalf("status = %d, want %d", status, http.StatusOK)
			}
			if body.Granted != tt.want {
				t.Errorf("tienePermiso(modulo %s) = %t, want %t", tt.module, body.Granted, tt.want)
			}
		}
	})

	t.Run("verificar-permisos", func(t *testing.T) {
		t.Parallel()

		results := map[string]bool{}
		status := doJSON(t, http.MethodPost, srv.URL+"/api/autorizacion/verificar-permisos", auth, []string{"USUARIOS_LEER", "CONFIG_EDITAR"}, &results)
		if status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		if !results["USUARIOS_LEER"] || results["CONFIG_EDITAR"] {
			t.Errorf("results = %v, want USUARIOS_LEER:true CONFIG_EDITAR:false", results)
		}
	})

	t.Run("missing bearer token", func(t *testing.T) {
		t.Parallel()

		if status := doJSON(t, http.MethodGet, srv.URL+"/api/autorizacion/informacion-usuario", nil, nil, nil); status != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
		}
	})

	t.Run("garbage bearer token", func(t *testing.T) {
		t.Parallel()

		headers := map[string]string{"Authorization": "Bearer not.a.token"}
		if status := doJSON(t, http.MethodGet, srv.URL+"/api/autorizacion/informacion-usuario", headers, nil, nil); status != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", status, http.StatusUnauthorized)
		}
	})
}

func TestServer_Authorization_Azure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	verifier := mock_azureoidc.NewMockVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any(), "admin-azure-token").Return(&azureoidc.Claims{
		Email:  "admin@contoso.com",
		Name:   "Azure Admin",
		Groups: []string{"9f0b2c7e-admin-group"},
	}, nil).AnyTimes()
	verifier.EXPECT().Verify(gomock.Any(), "guest-azure-token").Return(&azureoidc.Claims{
		Email:  "guest@contoso.com",
		Name:   "Azure Guest",
		Groups: []string{"no-such-group"},
	}, nil).AnyTimes()

	srv, mem, _ := newTestServer(t, WithAzureVerifier(verifier))
	if err := mem.SetAuthFlags(context.Background(), store.AuthFlags{AzureADEnabled: true, LocalJWTEnabled: true}); err != nil {
		t.Fatalf("Memory.SetAuthFlags() error = %v", err)
	}

	t.Run("group mapped to admin profile", func(t *testing.T) {
		t.Parallel()

		info := permission.UserInfo{}
		headers := map[string]string{"Authorization": "Bearer admin-azure-token"}
		if status := doJSON(t, http.MethodGet, srv.URL+"/api/autorizacion/informacion-usuario", headers, nil, &info); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		if info.Email != "admin@contoso.com" {
			t.Errorf("info.Email = %q, want %q", info.Email, "admin@contoso.com")
		}
		if len(info.Profiles) != 1 || info.Profiles[0].Name != "Administrador" {
			t.Errorf("info.Profiles = %+v, want Administrador", info.Profiles)
		}
		if !contains(info.PermissionCodes, "CONFIG_EDITAR") {
			t.Errorf("info.PermissionCodes = %v, want CONFIG_EDITAR", info.PermissionCodes)
		}
	})

	t.Run("unknown group falls back to default profile", func(t *testing.T) {
		t.Parallel()

		info := permission.UserInfo{}
		headers := map[string]string{"Authorization": "Bearer guest-azure-token"}
		if status := doJSON(t, http.MethodGet, srv.URL+"/api/autorizacion/informacion-usuario", headers, nil, &info); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		if len(info.Profiles) != 1 || info.Profiles[0].Name != "Usuario Básico" {
			t.Errorf("info.Profiles = %+v, want Usuario Básico", info.Profiles)
		}
		if contains(info.PermissionCodes, "CONFIG_EDITAR") {
			t.Errorf("info.PermissionCodes = %v, want no CONFIG_EDITAR", info.PermissionCodes)
		}
	})
}

func TestServer_Data(t *testing.T) {
	t.Parallel()

	srv, _, issuer := newTestServer(t)

	token, status := login(t, srv.URL, "usuario@test.com", "user123")
	if status != http.StatusOK {
		t.Fatalf("login status = %d, want %d", status, http.StatusOK)
	}
	auth := map[string]string{"Authorization": token}

	t.Run("data granted", func(t *testing.T) {
		t.Parallel()

		body := struct {
			Message  string    `json:"mensaje"`
			User     string    `json:"usuario"`
			Products []Product `json:"productos"`
		}{}
		if status := doJSON(t, http.MethodGet, srv.URL+"/api/data", auth, nil, &body); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		if body.User != "usuario@test.com" {
			t.Errorf("usuario = %q, want %q", body.User, "usuario@test.com")
		}
		if len(body.Products) != 3 {
			t.Errorf("len(productos) = %d, want 3", len(body.Products))
		}
	})

	t.Run("dashboard granted", func(t *testing.T) {
		t.Parallel()

		body := struct {
			Metrics struct {
				ActiveUsers int `json:"usuariosActivos"`
			} `json:"metricas"`
		}{}
		if status := doJSON(t, http.MethodGet, srv.URL+"/api/data/dashboard", auth, nil, &body); status != http.StatusOK {
			t.Fatalf("status = %d, want %d", status, http.StatusOK)
		}
		if body.Metrics.ActiveUsers == 0 {
			t.Error("metricas.usuariosActivos = 0, want demo metrics")
		}
	})

	t.Run("data denied without permission", func(t *testing.T) {
		t.Parallel()

		limited, err := issuer.Issue("limitado@test.com", "Limitado", "Usuario Básico", []string{"REPORTES_LEER"})
		if err != nil {
			t.Fatalf("Issuer.Issue() error = %v", err)
		}
		headers := map[string]string{"Authorization": limited}
		if status := doJSON(t, http.MethodGet, srv.URL+"/api/data", headers, nil, nil); status != http.StatusForbidden {
			t.Errorf("status = %d, want %d", status, http.StatusForbidden)
		}
	})
}

type captureMailer struct {
	mu     sync.Mutex
	tokens []string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, _, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)

	return nil
}

func (m *captureMailer) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.tokens...)
}

func TestServer_PasswordReset(t *testing.T) {
	t.Parallel()

	mailer := &captureMailer{}
	srv, _, _ := newTestServer(t, WithMailer(mailer))

	forgot := func(t *testing.T, email string) {
		t.Helper()

		body := struct {
			Message string `json:"message"`
		}{}
		if status := doJSON(t, http.MethodPost, srv.URL+"/api/auth/local/forgot-password", nil, map[string]string{"email": email}, &body); status != http.StatusOK {
			t.Fatalf("forgot-password status = %d, want %d", status, http.StatusOK)
		}
		if body.Message != "Si el email existe, recibirás instrucciones de recuperación" {
			t.Fatalf("forgot-password message = %q", body.Message)
		}
	}
	validate := func(t *testing.T, token string) bool {
		t.Helper()

		body := struct {
			Valid bool `json:"valid"`
		}{}
		if status := doJSON(t, http.MethodPost, srv.URL+"/api/auth/local/validate-reset-token", nil, map[string]string{"token": token}, &body); status != http.StatusOK {
			t.Fatalf("validate-reset-token status = %d, want %d", status, http.StatusOK)
		}

		return body.Valid
	}
	reset := func(t *testing.T, token, password string) int {
		t.Helper()

		return doJSON(t, http.MethodPost, srv.URL+"/api/auth/local/reset-password", nil, map[string]string{"token": token, "newPassword": password}, nil)
	}

	forgot(t, "usuario@test.com")
	tokens := mailer.all()
	if len(tokens) != 1 {
		t.Fatalf("len(tokens) = %d, want 1", len(tokens))
	}
	token := tokens[0]

	if !validate(t, token) {
		t.Error("validate(token) = false, want true before use")
	}
	if status := reset(t, token, "corta"); status != http.StatusBadRequest {
		t.Errorf("reset with short password status = %d, want %d", status, http.StatusBadRequest)
	}
	if status := reset(t, "no-such-token", "nuevaclave123"); status != http.StatusBadRequest {
		t.Errorf("reset with unknown token status = %d, want %d", status, http.StatusBadRequest)
	}
	if status := reset(t, token, "nuevaclave123"); status != http.StatusOK {
		t.Fatalf("reset status = %d, want %d", status, http.StatusOK)
	}

	if _, status := login(t, srv.URL, "usuario@test.com", "user123"); status != http.StatusUnauthorized {
		t.Errorf("login with old password status = %d, want %d", status, http.StatusUnauthorized)
	}
	if _, status := login(t, srv.URL, "usuario@test.com", "nuevaclave123"); status != http.StatusOK {
		t.Errorf("login with new password status = %d, want %d", status, http.StatusOK)
	}

	if validate(t, token) {
		t.Error("validate(token) = true, want false after use")
	}
	if status := reset(t, token, "otraclave123"); status != http.StatusBadRequest {
		t.Errorf("reset with consumed token status = %d, want %d", status, http.StatusBadRequest)
	}

	t.Run("unknown email keeps response identical", func(t *testing.T) {
		before := len(mailer.all())
		forgot(t, "ghost@test.com")
		if after := len(mailer.all()); after != before {
			t.Errorf("len(tokens) = %d, want %d", after, before)
		}
	})

	t.Run("rate limited after three requests per hour", func(t *testing.T) {
		forgot(t, "usuario@test.com")
		forgot(t, "usuario@test.com")
		if got := len(mailer.all()); got != 3 {
			t.Fatalf("len(tokens) = %d, want 3", got)
		}

		forgot(t, "usuario@test.com")
		if got := len(mailer.all()); got != 3 {
			t.Errorf("len(tokens) = %d, want 3 after rate limit", got)
		}
	})
}
