// Package config loads profileproof configuration from a YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PROFILEPROOF_"

type Config struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Store struct {
		// redis | memory
		Driver    string `yaml:"driver"`
		KeyPrefix string `yaml:"key_prefix"`
		Redis     struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Challenge struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"challenge"`

	Platform struct {
		ProfileURL    string        `yaml:"profile_url"`
		Timeout       time.Duration `yaml:"timeout"`
		MaxAttempts   uint          `yaml:"max_attempts"`
		MaxBodyBytes  int64         `yaml:"max_body_bytes"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		Burst         int           `yaml:"burst"`
		UserAgent     string        `yaml:"user_agent"`
		Cookies       struct {
			SessionID   string `yaml:"sessionid"`
			SessionHash string `yaml:"sessionhash"`
			BBUserID    string `yaml:"bbuserid"`
			BBPassword  string `yaml:"bbpassword"`
		} `yaml:"cookies"`
	} `yaml:"platform"`

	Proof struct {
		// PEM EC private key; proofs are disabled when empty
		SigningKeyFile string        `yaml:"signing_key_file"`
		Issuer         string        `yaml:"issuer"`
		TTL            time.Duration `yaml:"ttl"`
	} `yaml:"proof"`

	Events struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"events"`

	Log struct {
		// dev | prod
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	c := &Config{}
	c.Server.Addr = ":9000"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 15 * time.Second

	c.Store.Driver = "redis"
	c.Store.KeyPrefix = "profileproof:challenge:"
	c.Store.Redis.Addr = "localhost:6379"
	c.Store.Redis.DB = 1

	c.Challenge.TTL = 5 * time.Minute

	c.Platform.ProfileURL = "http://forums.somethingawful.com/member.php?action=getinfo&username="
	c.Platform.Timeout = 10 * time.Second
	c.Platform.MaxAttempts = 3
	c.Platform.MaxBodyBytes = 4 << 20
	c.Platform.RatePerSecond = 5
	c.Platform.Burst = 5

	c.Proof.Issuer = "profileproof"
	c.Proof.TTL = 24 * time.Hour

	c.Events.Enabled = true

	c.Log.Env = "dev"
	c.Log.Level = "info"
	return c
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A .env file in the working directory
// is loaded if present; real environment variables win over it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str(envPrefix+"ADDR", &c.Server.Addr)

	str(envPrefix+"STORE_DRIVER", &c.Store.Driver)
	str(envPrefix+"KEY_PREFIX", &c.Store.KeyPrefix)
	str(envPrefix+"REDIS_ADDR", &c.Store.Redis.Addr)
	str(envPrefix+"REDIS_PASSWORD", &c.Store.Redis.Password)
	integer(envPrefix+"REDIS_DB", &c.Store.Redis.DB)

	dur(envPrefix+"CHALLENGE_TTL", &c.Challenge.TTL)

	str(envPrefix+"PROFILE_URL", &c.Platform.ProfileURL)
	dur(envPrefix+"FETCH_TIMEOUT", &c.Platform.Timeout)

	// Credential names kept from the original deployment settings
	str("COOKIE_SESSIONID", &c.Platform.Cookies.SessionID)
	str("COOKIE_SESSIONHASH", &c.Platform.Cookies.SessionHash)
	str("COOKIE_BBUSERID", &c.Platform.Cookies.BBUserID)
	str("COOKIE_BBPASSWORD", &c.Platform.Cookies.BBPassword)

	str(envPrefix+"SIGNING_KEY_FILE", &c.Proof.SigningKeyFile)
	str(envPrefix+"PROOF_ISSUER", &c.Proof.Issuer)
	dur(envPrefix+"PROOF_TTL", &c.Proof.TTL)

	boolean(envPrefix+"EVENTS_ENABLED", &c.Events.Enabled)

	str(envPrefix+"LOG_ENV", &c.Log.Env)
	str(envPrefix+"LOG_LEVEL", &c.Log.Level)

	return errors.Join(errs...)
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Platform.ProfileURL == "" {
		errs = append(errs, errors.New("platform.profile_url is required"))
	}
	if c.Challenge.TTL <= 0 {
		errs = append(errs, errors.New("challenge.ttl must be positive"))
	}
	if c.Platform.Timeout <= 0 {
		errs = append(errs, errors.New("platform.timeout must be positive"))
	}
	switch c.Store.Driver {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.Driver == "memory" && c.Events.Enabled {
		errs = append(errs, errors.New("events require the redis store driver"))
	}
	return errors.Join(errs...)
}

// MissingCookies lists session cookies that are not configured.
func (c *Config) MissingCookies() []string {
	var missing []string
	for name, v := range map[string]string{
		"sessionid":   c.Platform.Cookies.SessionID,
		"sessionhash": c.Platform.Cookies.SessionHash,
		"bbuserid":    c.Platform.Cookies.BBUserID,
		"bbpassword":  c.Platform.Cookies.BBPassword,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
