package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the event handler.
type Config struct {
	Webhook  WebhookConfig  `toml:"webhook"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Security SecurityConfig `toml:"security"`
	Log      LogConfig      `toml:"log"`
}

type WebhookConfig struct {
	Addr string `toml:"addr"`
	Path string `toml:"path"`
	// DedupWindow is how often, in seconds, the seen-event set is cleared.
	DedupWindow int `toml:"dedup_window"`
	// Funnel publishes the listener through `tailscale funnel`.
	Funnel bool `toml:"funnel"`
}

// CatalogConfig controls how permissive registration and dispatch are.
// In strict mode a duplicate registration panics at startup and an
// unknown event is reported as an error instead of being skipped.
type CatalogConfig struct {
	Strict bool `toml:"strict"`
}

type GatewayConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// SecurityConfig protects the webhook from unexpected or noisy senders.
// Mode is "open" or "allowlist"; in allowlist mode only Origins may
// validate a subscription or deliver events. RateLimit deliveries are
// accepted per origin every RateWindow seconds; zero disables the limit.
//
// A delivery's origin is its WebHook-Request-Origin header, which only
// CloudEvents senders set. Event Grid schema deliveries have no such header
// and are keyed by peer IP address, so an allowlist serving them must list
// the sender addresses (or the reverse proxy in front of the webhook)
// alongside host names like "eventgrid.azure.net".
type SecurityConfig struct {
	Mode       string   `toml:"mode"`
	Origins    []string `toml:"origins"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow int      `toml:"rate_window"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func defaults() Config {
	return Config{
		Webhook: WebhookConfig{
			Addr:        ":18790",
			Path:        "/api/events",
			DedupWindow: 3600,
		},
		Security: SecurityConfig{
			Mode:       "open",
			RateWindow: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the TOML config file (if it exists) and
// applies environment variable overrides. Env vars always win.
//
// Config file resolution: ACS_EVENTS_CONFIG env var → ~/.config/acs-eventhandler/config.toml → skip.
func Load() (*Config, error) {
	cfg := defaults()

	path := configPath()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func configPath() string {
	if p := os.Getenv("ACS_EVENTS_CONFIG"); p != "" {
		return expandHome(p)
	}
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "acs-eventhandler", "config.toml")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ACS_EVENTS_WEBHOOK_ADDR"); v != "" {
		cfg.Webhook.Addr = v
	}
	if v := os.Getenv("ACS_EVENTS_WEBHOOK_PATH"); v != "" {
		cfg.Webhook.Path = v
	}
	if v := os.Getenv("ACS_EVENTS_FUNNEL"); v != "" {
		cfg.Webhook.Funnel = v == "true" || v == "1"
	}
	if v := os.Getenv("ACS_EVENTS_STRICT"); v != "" {
		cfg.Catalog.Strict = v == "true" || v == "1"
	}
	if v := os.Getenv("ACS_EVENTS_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("ACS_EVENTS_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("ACS_EVENTS_SECURITY_MODE"); v != "" {
		cfg.Security.Mode = v
	}
	if v := os.Getenv("ACS_EVENTS_ALLOWED_ORIGINS"); v != "" {
		cfg.Security.Origins = splitList(v)
	}
	if v := os.Getenv("ACS_EVENTS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.RateLimit = n
		}
	}
	if v := os.Getenv("ACS_EVENTS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate normalizes out-of-range values back to their defaults.
func (c *Config) Validate() error {
	d := defaults()
	if c.Webhook.Addr == "" {
		c.Webhook.Addr = d.Webhook.Addr
	}
	if c.Webhook.Path == "" {
		c.Webhook.Path = d.Webhook.Path
	}
	if !strings.HasPrefix(c.Webhook.Path, "/") {
		c.Webhook.Path = "/" + c.Webhook.Path
	}
	if c.Webhook.DedupWindow < 60 {
		c.Webhook.DedupWindow = d.Webhook.DedupWindow
	}

	mode := strings.ToLower(c.Security.Mode)
	switch mode {
	case "open", "allowlist":
		c.Security.Mode = mode
	default:
		c.Security.Mode = d.Security.Mode
	}
	if c.Security.RateLimit < 0 {
		c.Security.RateLimit = 0
	}
	if c.Security.RateWindow <= 0 {
		c.Security.RateWindow = d.Security.RateWindow
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
