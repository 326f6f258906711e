package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/aiserver"
	"github.com/ziadkadry99/telewiki/internal/guestbook"
	"github.com/ziadkadry99/telewiki/internal/websearch"
)

var (
	aiServerPort int
	aiAllowAll   bool
)

var aiServerCmd = &cobra.Command{
	Use:   "ai-server",
	Short: "Start the AI relay",
	Long:  `Starts the websocket relay that streams LLM answers to telnet sessions, falling back to a web search when the model has nothing useful to say. The guestbook REST API is served alongside it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.AI.Port = aiServerPort
		}

		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return err
		}

		var searcher aiserver.WebSearcher
		if cfg.AI.WebSearch {
			searcher = websearch.New()
		}

		var store *guestbook.Store
		if cfg.Guestbook.Enabled {
			database, s, err := openGuestbook(cfg)
			if err != nil {
				return err
			}
			defer database.Close()
			store = s
		}

		srv := aiserver.New(aiserver.Config{
			Port:      cfg.AI.Port,
			AuthToken: cfg.AI.Credential,
			Model:     cfg.AI.Model,
			CertFile:  cfg.AI.CertFile,
			KeyFile:   cfg.AI.KeyFile,
			AllowAll:  aiAllowAll,
		}, provider, searcher, store, logger.Named("ai"))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("AI relay starting",
			zap.String("version", Version),
			zap.String("provider", provider.Name()),
			zap.String("model", cfg.AI.Model),
			zap.Int("port", cfg.AI.Port),
			zap.Bool("web_search", cfg.AI.WebSearch),
		)
		return runUntilSignal(ctx, srv.Start, srv.Shutdown)
	},
}

func init() {
	aiServerCmd.Flags().IntVar(&aiServerPort, "port", 50000, "port to listen on (overrides config)")
	aiServerCmd.Flags().BoolVar(&aiAllowAll, "allow-all-origins", false, "allow all CORS origins")
	rootCmd.AddCommand(aiServerCmd)
}
