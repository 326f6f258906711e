package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/telewiki/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a telewiki configuration with an interactive wizard",
	Long:  `Runs an interactive wizard for the telnet port, Wikipedia language, AI relay and guestbook, and writes the result to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
