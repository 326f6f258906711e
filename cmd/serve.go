package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/telewiki/internal/chat"
	"github.com/ziadkadry99/telewiki/internal/server"
	"github.com/ziadkadry99/telewiki/internal/session"
	"github.com/ziadkadry99/telewiki/internal/terminal"
	"github.com/ziadkadry99/telewiki/internal/wiki"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the telnet gateway",
	Long:  `Accepts telnet connections and runs an interactive Wikipedia browsing session for each client.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Telnet.Port = servePort
		}

		deps := session.Deps{
			Config: cfg,
			Docs:   wiki.NewClient(cfg.Wiki.Language, cfg.Wiki.APIURL),
			Logger: logger.Named("session"),
		}
		if cfg.AI.Enabled {
			deps.Channel = &chat.WSChannel{
				URI:              cfg.AI.URI,
				InsecureTLS:      cfg.AI.InsecureTLS,
				HandshakeTimeout: 10 * time.Second,
			}
		}
		if cfg.Guestbook.Enabled {
			database, store, err := openGuestbook(cfg)
			if err != nil {
				return err
			}
			defer database.Close()
			deps.Guestbook = store
		}

		handler := func(ctx context.Context, t *terminal.Terminal) error {
			err := session.New(t, deps).Run(ctx)
			if errors.Is(err, session.ErrAccessDenied) {
				return nil
			}
			return err
		}
		srv := server.New(server.Config{
			Port:           cfg.Telnet.Port,
			IdleTimeout:    time.Duration(cfg.Telnet.IdleMinutes) * time.Minute,
			MaxConnections: cfg.Telnet.MaxConnections,
		}, handler, logger.Named("telnet"))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("telewiki starting",
			zap.String("version", Version),
			zap.Int("port", cfg.Telnet.Port),
			zap.String("language", cfg.Wiki.Language),
			zap.Bool("ai", cfg.AI.Enabled),
			zap.Bool("guestbook", cfg.Guestbook.Enabled),
		)
		return runUntilSignal(ctx, srv.Start, srv.Shutdown)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8023, "telnet port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
