package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to telewiki! Let's configure your gateway.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Telnet port.
	portPrompt := promptui.Prompt{
		Label:    "Telnet port",
		Default:  strconv.Itoa(cfg.Telnet.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("telnet port: %w", err)
	}
	cfg.Telnet.Port, _ = strconv.Atoi(portStr)

	// 2. Wikipedia language edition.
	langPrompt := promptui.Prompt{
		Label:   "Wikipedia language code",
		Default: cfg.Wiki.Language,
	}
	if cfg.Wiki.Language, err = langPrompt.Run(); err != nil {
		return nil, fmt.Errorf("language: %w", err)
	}

	// 3. AI assistant.
	aiPrompt := promptui.Select{
		Label: "Enable the MULTIVAC AI assistant",
		Items: []string{"yes", "no"},
	}
	aiIdx, _, err := aiPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("ai selection: %w", err)
	}
	cfg.AI.Enabled = aiIdx == 0

	if cfg.AI.Enabled {
		uriPrompt := promptui.Prompt{
			Label:   "AI relay websocket URI",
			Default: cfg.AI.URI,
		}
		if cfg.AI.URI, err = uriPrompt.Run(); err != nil {
			return nil, fmt.Errorf("ai uri: %w", err)
		}

		providerPrompt := promptui.Select{
			Label: "Select LLM provider for the relay",
			Items: []string{string(ProviderOllama), string(ProviderOpenAI)},
		}
		_, providerStr, err := providerPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("provider selection: %w", err)
		}
		cfg.AI.Provider = ProviderType(providerStr)
		if cfg.AI.Provider == ProviderOpenAI {
			cfg.AI.Model = "gpt-4o-mini"
		}

		modelPrompt := promptui.Prompt{
			Label:   "Model",
			Default: cfg.AI.Model,
		}
		if cfg.AI.Model, err = modelPrompt.Run(); err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}

		if envVar := APIKeyEnvVar(cfg.AI.Provider); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running telewiki ai-server.\n", envVar)
		}
	}

	// 4. Guestbook database.
	dbPrompt := promptui.Prompt{
		Label:   "Guestbook database path",
		Default: cfg.Guestbook.DBPath,
	}
	if cfg.Guestbook.DBPath, err = dbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("guestbook path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("port must be a number")
	}
	if n < 1 || n > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}
