package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Telnet.Port != 8023 {
		t.Errorf("expected default telnet port 8023, got %d", cfg.Telnet.Port)
	}
	if cfg.Session.LineWidth != 80 || cfg.Session.PageSize != 23 {
		t.Errorf("unexpected session defaults: %+v", cfg.Session)
	}
	if cfg.Session.CaptchaWord != "venera" || cfg.Session.CaptchaCount != 3 {
		t.Errorf("unexpected captcha defaults: %+v", cfg.Session)
	}
	if cfg.AI.Provider != ProviderOllama {
		t.Errorf("expected default provider %q, got %q", ProviderOllama, cfg.AI.Provider)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telewiki.yml")

	original := DefaultConfig()
	original.Telnet.Port = 2323
	original.Wiki.Language = "de"
	original.AI.Provider = ProviderOpenAI
	original.AI.Model = "gpt-4o-mini"
	original.AI.InsecureTLS = false
	original.Session.CaptchaEnabled = false

	// Save.
	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load back.
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify round-trip.
	if loaded.Telnet.Port != 2323 {
		t.Errorf("telnet.port: got %d, want 2323", loaded.Telnet.Port)
	}
	if loaded.Wiki.Language != "de" {
		t.Errorf("wiki.language: got %q, want de", loaded.Wiki.Language)
	}
	if loaded.AI.Provider != ProviderOpenAI || loaded.AI.Model != "gpt-4o-mini" {
		t.Errorf("ai: got %+v", loaded.AI)
	}
	if loaded.AI.InsecureTLS {
		t.Error("ai.insecure_tls: got true, want false")
	}
	if loaded.Session.CaptchaEnabled {
		t.Error("session.captcha_enabled: got true, want false")
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telnet.Port != DefaultConfig().Telnet.Port {
		t.Errorf("expected default port, got %d", cfg.Telnet.Port)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("TELEWIKI_TELNET_PORT", "2424")
	t.Setenv("TELEWIKI_AI_RATE_LIMIT_RPM", "12")
	t.Setenv("TELEWIKI_AI_ENABLED", "false")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Telnet.Port != 2424 {
		t.Errorf("env override failed: got port %d, want 2424", loaded.Telnet.Port)
	}
	if loaded.AI.RateLimitRPM != 12 {
		t.Errorf("env override failed: got rpm %d, want 12", loaded.AI.RateLimitRPM)
	}
	if loaded.AI.Enabled {
		t.Error("env override failed: ai.enabled still true")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"TELEWIKI_TELNET_PORT":          "telnet.port",
		"TELEWIKI_SESSION_CAPTCHA_WORD": "session.captcha_word",
		"TELEWIKI_GUESTBOOK_DB_PATH":    "guestbook.db_path",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Telnet.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Telnet.Port = 70000 }, true},
		{"narrow line", func(c *Config) { c.Session.LineWidth = 4 }, true},
		{"zero page size", func(c *Config) { c.Session.PageSize = 0 }, true},
		{"captcha without word", func(c *Config) { c.Session.CaptchaWord = " " }, true},
		{"captcha disabled without word", func(c *Config) {
			c.Session.CaptchaEnabled = false
			c.Session.CaptchaWord = ""
		}, false},
		{"zero captcha count", func(c *Config) { c.Session.CaptchaCount = 0 }, true},
		{"no wiki source", func(c *Config) { c.Wiki.Language = "" }, true},
		{"custom api url", func(c *Config) {
			c.Wiki.Language = ""
			c.Wiki.APIURL = "http://localhost/w/api.php"
		}, false},
		{"http ai uri", func(c *Config) { c.AI.URI = "http://localhost/ai" }, true},
		{"ai disabled ignores uri", func(c *Config) {
			c.AI.Enabled = false
			c.AI.URI = ""
		}, false},
		{"unknown provider", func(c *Config) { c.AI.Provider = "anthropic" }, true},
		{"negative rpm", func(c *Config) { c.AI.RateLimitRPM = -1 }, true},
		{"cert without key", func(c *Config) { c.AI.CertFile = "server.crt" }, true},
		{"guestbook without path", func(c *Config) { c.Guestbook.DBPath = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWelcome(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telnet.WelcomeMessage = "line one\nline two\r\nline three"
	if got := cfg.Welcome(); got != "line one\r\nline two\r\nline three" {
		t.Errorf("Welcome() = %q", got)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	if got := APIKeyEnvVar(ProviderOpenAI); got != "OPENAI_API_KEY" {
		t.Errorf("APIKeyEnvVar(openai) = %q", got)
	}
	if got := APIKeyEnvVar(ProviderOllama); got != "" {
		t.Errorf("APIKeyEnvVar(ollama) = %q, want empty", got)
	}
}

func TestValidatePort(t *testing.T) {
	for _, s := range []string{"1", "8023", "65535"} {
		if err := validatePort(s); err != nil {
			t.Errorf("validatePort(%q) = %v", s, err)
		}
	}
	for _, s := range []string{"", "abc", "0", "65536"} {
		if err := validatePort(s); err == nil {
			t.Errorf("validatePort(%q) should fail", s)
		}
	}
}
