package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when --config is not given.
const DefaultPath = "telewiki.yml"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "TELEWIKI_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (TELEWIKI_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: TELEWIKI_TELNET_PORT -> telnet.port,
	// TELEWIKI_AI_RATE_LIMIT_RPM -> ai.rate_limit_rpm.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps an environment variable to a config key. The first underscore
// after the prefix separates the section from the field.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOllama: true,
	ProviderOpenAI: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Telnet.Port < 1 || c.Telnet.Port > 65535 {
		return fmt.Errorf("telnet.port %d out of range", c.Telnet.Port)
	}
	if c.Telnet.IdleMinutes < 0 {
		return fmt.Errorf("telnet.idle_minutes must be non-negative")
	}
	if c.Telnet.MaxConnections < 0 {
		return fmt.Errorf("telnet.max_connections must be non-negative")
	}

	if c.Session.LineWidth < 5 {
		return fmt.Errorf("session.line_width must be at least 5")
	}
	if c.Session.PageSize < 1 {
		return fmt.Errorf("session.page_size must be at least 1")
	}
	if c.Session.CaptchaEnabled {
		if strings.TrimSpace(c.Session.CaptchaWord) == "" {
			return fmt.Errorf("session.captcha_word is required when the captcha is enabled")
		}
		if c.Session.CaptchaCount < 1 {
			return fmt.Errorf("session.captcha_count must be at least 1")
		}
	}

	if c.Wiki.Language == "" && c.Wiki.APIURL == "" {
		return fmt.Errorf("wiki.language or wiki.api_url is required")
	}

	if c.AI.Enabled {
		u, err := url.Parse(c.AI.URI)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("invalid ai.uri %q: must be a ws:// or wss:// URL", c.AI.URI)
		}
	}
	if c.AI.Provider != "" && !validProviders[c.AI.Provider] {
		return fmt.Errorf("invalid ai.provider %q: must be one of ollama, openai", c.AI.Provider)
	}
	if c.AI.Port < 0 || c.AI.Port > 65535 {
		return fmt.Errorf("ai.port %d out of range", c.AI.Port)
	}
	if c.AI.RateLimitRPM < 0 {
		return fmt.Errorf("ai.rate_limit_rpm must be non-negative")
	}
	if (c.AI.CertFile == "") != (c.AI.KeyFile == "") {
		return fmt.Errorf("ai.cert_file and ai.key_file must be set together")
	}

	if c.Guestbook.Enabled && c.Guestbook.DBPath == "" {
		return fmt.Errorf("guestbook.db_path is required when the guestbook is enabled")
	}

	return nil
}

// Welcome returns the banner with telnet line endings.
func (c *Config) Welcome() string {
	msg := strings.ReplaceAll(c.Telnet.WelcomeMessage, "\r\n", "\n")
	return strings.ReplaceAll(msg, "\n", "\r\n")
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return ""
}
