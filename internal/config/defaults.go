package config

// DefaultWelcome is the banner shown to new connections.
const DefaultWelcome = "=== Wikipedia Telnet Gateway ==="

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Telnet: TelnetConfig{
			Port:           8023,
			WelcomeMessage: DefaultWelcome,
			IdleMinutes:    30,
			MaxConnections: 64,
		},
		Session: SessionConfig{
			LineWidth:       80,
			PageSize:        23,
			CaptchaEnabled:  true,
			CaptchaQuestion: "Repeat the first spacecraft to land on another planet three times.",
			CaptchaWord:     "venera",
			CaptchaCount:    3,
		},
		Wiki: WikiConfig{
			Language: "en",
		},
		AI: AIConfig{
			Enabled:     true,
			URI:         "wss://127.0.0.1:50000/ai",
			Credential:  "AAAAB3NzaC1yc2EAAAADAQABAAABAQDBg",
			InsecureTLS: true,
			Model:       "smollm2:360m",
			Provider:    ProviderOllama,
			Port:        50000,
			OllamaURI:   "http://localhost:11434",
			WebSearch:   true,
		},
		Guestbook: GuestbookConfig{
			Enabled: true,
			DBPath:  "telewiki.db",
		},
	}
}
