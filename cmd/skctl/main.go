package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/client"
	"github.com/Razue/sammelkarten-sub002/internal/events"
	"github.com/Razue/sammelkarten-sub002/internal/session"
	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var (
	serverURL  string
	adminToken string
	jsonOutput bool

	api          *client.Client
	sessionStore *session.Store
	bus          events.Publisher
)

func defaultServerURL() string {
	if s := os.Getenv("SK_SERVER_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "skctl <command>",
	Short: "CLI client for the sammelkarten event bridge",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		api = client.New(serverURL, adminToken)

		path, err := session.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving session path: %w", err)
		}
		sessionStore = session.NewFile(path)

		// Commands that emit signals share one bus: NATS when SK_NATS_URL
		// is set, otherwise signals are dropped.
		if natsURL := os.Getenv("SK_NATS_URL"); natsURL != "" {
			bus, err = events.ConnectNATS(natsURL)
			if err != nil {
				return fmt.Errorf("connecting to bus: %w", err)
			}
		} else {
			bus = &events.NoopPublisher{}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return bus.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "server base URL")
	rootCmd.PersistentFlags().StringVar(&adminToken, "admin-token", os.Getenv("SK_ADMIN_TOKEN"), "bearer token for admin commands")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(tradeCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
