package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/events"
	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var watchTopic string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream bus events as they are published",
	Long:  `Watch subscribes to the NATS bus (SK_NATS_URL) and prints every event on the given topic pattern.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL := os.Getenv("SK_NATS_URL")
		if natsURL == "" {
			return fmt.Errorf("SK_NATS_URL is not set")
		}

		bus, err := events.ConnectNATS(natsURL)
		if err != nil {
			return fmt.Errorf("connecting to bus: %w", err)
		}
		defer bus.Close()

		ch, unsubscribe, err := bus.Subscribe(watchTopic)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", watchTopic, err)
		}
		defer unsubscribe()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fmt.Fprintln(os.Stderr, ui.RenderMuted("watching "+watchTopic+" (ctrl-c to stop)"))
		for {
			select {
			case <-ctx.Done():
				return nil
			case sig, ok := <-ch:
				if !ok {
					return nil
				}
				fmt.Printf("%s %s\n", ui.RenderAccent(sig.Topic), string(sig.Data))
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchTopic, "topic", "sk.>", "topic pattern to watch")
}
