package config

// ProviderType identifies an LLM provider used by the AI relay.
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	ProviderOpenAI ProviderType = "openai"
)

// Config is the top-level telewiki configuration, corresponding to telewiki.yml.
type Config struct {
	Telnet    TelnetConfig    `yaml:"telnet" koanf:"telnet"`
	Session   SessionConfig   `yaml:"session" koanf:"session"`
	Wiki      WikiConfig      `yaml:"wiki" koanf:"wiki"`
	AI        AIConfig        `yaml:"ai" koanf:"ai"`
	Guestbook GuestbookConfig `yaml:"guestbook" koanf:"guestbook"`
}

// TelnetConfig holds listener settings.
type TelnetConfig struct {
	Port           int    `yaml:"port" koanf:"port"`
	WelcomeMessage string `yaml:"welcome_message" koanf:"welcome_message"`
	// IdleMinutes disconnects sessions without input; zero disables it.
	IdleMinutes    int `yaml:"idle_minutes" koanf:"idle_minutes"`
	MaxConnections int `yaml:"max_connections" koanf:"max_connections"`
}

// SessionConfig holds per-connection defaults.
type SessionConfig struct {
	LineWidth       int    `yaml:"line_width" koanf:"line_width"`
	PageSize        int    `yaml:"page_size" koanf:"page_size"`
	CaptchaEnabled  bool   `yaml:"captcha_enabled" koanf:"captcha_enabled"`
	CaptchaQuestion string `yaml:"captcha_question" koanf:"captcha_question"`
	CaptchaWord     string `yaml:"captcha_word" koanf:"captcha_word"`
	CaptchaCount    int    `yaml:"captcha_count" koanf:"captcha_count"`
}

// WikiConfig selects the document source.
type WikiConfig struct {
	Language string `yaml:"language" koanf:"language"`
	APIURL   string `yaml:"api_url" koanf:"api_url"`
}

// AIConfig covers both the session's AI channel and the relay server.
type AIConfig struct {
	Enabled      bool         `yaml:"enabled" koanf:"enabled"`
	URI          string       `yaml:"uri" koanf:"uri"`
	Credential   string       `yaml:"credential" koanf:"credential"`
	InsecureTLS  bool         `yaml:"insecure_tls" koanf:"insecure_tls"`
	Model        string       `yaml:"model" koanf:"model"`
	Provider     ProviderType `yaml:"provider" koanf:"provider"`
	Port         int          `yaml:"port" koanf:"port"`
	RateLimitRPM int          `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	OllamaURI    string       `yaml:"ollama_uri" koanf:"ollama_uri"`
	CertFile     string       `yaml:"cert_file" koanf:"cert_file"`
	KeyFile      string       `yaml:"key_file" koanf:"key_file"`
	WebSearch    bool         `yaml:"web_search" koanf:"web_search"`
}

// GuestbookConfig holds guestbook persistence settings.
type GuestbookConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	DBPath  string `yaml:"db_path" koanf:"db_path"`
}
