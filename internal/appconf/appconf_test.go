package appconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		want    *Config
		wantErr bool
	}{
		{
			name: "full configuration",
			yaml: `
server:
  addr: ":9090"
auth:
  jwt_secret: super-secret
  admin_token: admin-secret
  token_ttl: 12h
azure:
  issuer_url: https://login.microsoftonline.com/tenant/v2.0
  client_id: client-123
  client_secret: shh
  redirect_url: http://localhost:4000/auth/azure/callback
database:
  driver: postgres
  dsn: postgres://localhost/authgate
reset:
  rate_max: 5
  token_ttl: 30m
web:
  addr: ":4000"
  api_base_url: http://localhost:9090
  cookie_hash_key: hash-key
  cookie_block_key: block-key
`,
			want: &Config{
				Server: Server{Addr: ":9090"},
				Auth: Auth{
					JWTSecret:   "super-secret",
					AdminToken:  "admin-secret",
					TokenTTL:    12 * time.Hour,
					TokenTTLRaw: "12h",
				},
				Azure: Azure{
					IssuerURL:    "https://login.microsoftonline.com/tenant/v2.0",
					ClientID:     "client-123",
					ClientSecret: "shh",
					RedirectURL:  "http://localhost:4000/auth/azure/callback",
				},
				Database: Database{Driver: "postgres", DSN: "postgres://localhost/authgate"},
				Reset: Reset{
					RateMax:     5,
					TokenTTL:    30 * time.Minute,
					TokenTTLRaw: "30m",
				},
				Web: Web{
					Addr:          ":4000",
					APIBaseURL:    "http://localhost:9090",
					CookieHashKey: "hash-key",
					CookieKey:     "block-key",
				},
			},
		},
		{
			name: "defaults",
			yaml: `
auth:
  jwt_secret: super-secret
`,
			want: &Config{
				Server:   Server{Addr: ":8080"},
				Auth:     Auth{JWTSecret: "super-secret"},
				Database: Database{Driver: "memory"},
				Web:      Web{Addr: ":3000"},
			},
		},
		{
			name:    "missing jwt secret",
			yaml:    `server: {addr: ":8080"}`,
			wantErr: true,
		},
		{
			name: "unknown driver",
			yaml: `
auth:
  jwt_secret: super-secret
database:
  driver: spanner
`,
			wantErr: true,
		},
		{
			name: "postgres without dsn",
			yaml: `
auth:
  jwt_secret: super-secret
database:
  driver: postgres
`,
			wantErr: true,
		},
		{
			name: "azure without client id",
			yaml: `
auth:
  jwt_secret: super-secret
azure:
  issuer_url: https://login.microsoftonline.com/tenant/v2.0
`,
			wantErr: true,
		},
		{
			name: "bad token ttl",
			yaml: `
auth:
  jwt_secret: super-secret
  token_ttl: eventually
`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %t", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("AUTHGATE_TEST_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
auth:
  jwt_secret: ${AUTHGATE_TEST_SECRET}
  admin_token: ${AUTHGATE_TEST_UNSET}
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "from-env")
	}
	if cfg.Auth.AdminToken != "" {
		t.Errorf("Auth.AdminToken = %q, want empty for unset variable", cfg.Auth.AdminToken)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() error = nil, want error for missing file")
	}
}
