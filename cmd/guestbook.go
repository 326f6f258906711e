package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/telewiki/internal/guestbook"
)

var (
	guestbookLimit int
	guestbookJSON  bool
)

var guestbookCmd = &cobra.Command{
	Use:   "guestbook",
	Short: "Inspect the visitor guestbook",
}

var guestbookListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print guestbook entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, store, err := openGuestbook(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		entries, err := store.List(cmd.Context(), guestbookLimit)
		if err != nil {
			return fmt.Errorf("listing guestbook: %w", err)
		}
		if guestbookJSON {
			if entries == nil {
				entries = []guestbook.Entry{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Println("The guestbook is empty.")
			return nil
		}
		for _, line := range guestbook.Lines(entries) {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	guestbookListCmd.Flags().IntVar(&guestbookLimit, "limit", 50, "maximum number of entries (0 for all)")
	guestbookListCmd.Flags().BoolVar(&guestbookJSON, "json", false, "print entries as JSON")
	guestbookCmd.AddCommand(guestbookListCmd)
	rootCmd.AddCommand(guestbookCmd)
}
