package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/geolens/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a test digest using the configured notifier.",
	Args:  cobra.NoArgs,
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	n := setupNotifier(cmd.Context(), cfg, httpClient, logger)

	if err := notifier.SendTestMessage(n); err != nil {
		return err
	}
	printSuccess("test notification sent via " + cfg.Notification.Type)
	return nil
}
