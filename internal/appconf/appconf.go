// Package appconf loads the YAML configuration files for the authgate
// binaries. Values in the form ${VAR_NAME} are expanded from the
// environment before parsing, so secrets stay out of the files.
package appconf

import (
	"os"
	"regexp"
	"time"

	"github.com/go-playground/errors/v5"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for the API server and the web
// front end.
type Config struct {
	Server   Server   `yaml:"server"`
	Auth     Auth     `yaml:"auth"`
	Azure    Azure    `yaml:"azure"`
	Database Database `yaml:"database"`
	Reset    Reset    `yaml:"reset"`
	Web      Web      `yaml:"web"`
}

// Server holds the API listen address.
type Server struct {
	Addr string `yaml:"addr"`
}

// Auth holds the local JWT issuing configuration.
type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AdminToken string        `yaml:"admin_token"`
	TokenTTL   time.Duration `yaml:"-"`

	TokenTTLRaw string `yaml:"token_ttl"`
}

// Azure holds the Entra ID verifier configuration. Leaving IssuerURL empty
// disables Azure token verification regardless of the stored auth flags.
type Azure struct {
	IssuerURL    string `yaml:"issuer_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Database selects and configures the backing store.
type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Reset holds the password-recovery limits.
type Reset struct {
	RateMax  int64         `yaml:"rate_max"`
	TokenTTL time.Duration `yaml:"-"`

	TokenTTLRaw string `yaml:"token_ttl"`
}

// Web holds the browser front end configuration.
type Web struct {
	Addr          string `yaml:"addr"`
	APIBaseURL    string `yaml:"api_base_url"`
	CookieHashKey string `yaml:"cookie_hash_key"`
	CookieKey     string `yaml:"cookie_block_key"`
}

// Load reads, expands, parses, and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "os.ReadFile()")
	}

	return Parse(data)
}

// Parse parses and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server:   Server{Addr: ":8080"},
		Database: Database{Driver: "memory"},
		Web:      Web{Addr: ":3000"},
	}

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, errors.Wrap(err, "yaml.Unmarshal()")
	}
	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the value of the environment
// variable, or the empty string when unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) parseDurations() error {
	var err error

	if c.Auth.TokenTTLRaw != "" {
		if c.Auth.TokenTTL, err = time.ParseDuration(c.Auth.TokenTTLRaw); err != nil {
			return errors.Wrapf(err, "parsing auth.token_ttl %q", c.Auth.TokenTTLRaw)
		}
	}
	if c.Reset.TokenTTLRaw != "" {
		if c.Reset.TokenTTL, err = time.ParseDuration(c.Reset.TokenTTLRaw); err != nil {
			return errors.Wrapf(err, "parsing reset.token_ttl %q", c.Reset.TokenTTLRaw)
		}
	}

	return nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return errors.Newf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Azure.IssuerURL != "" && c.Azure.ClientID == "" {
		return errors.New("azure.client_id is required when azure.issuer_url is set")
	}

	return nil
}
