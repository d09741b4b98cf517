package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the cached session identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, ok := sessionStore.Get()
		if !ok {
			fmt.Println(ui.RenderMuted("not logged in"))
			return nil
		}
		if jsonOutput {
			printJSON(data)
			return nil
		}
		fmt.Printf("Pubkey:     %s\n", data.Pubkey)
		fmt.Printf("Logged in:  %s\n", data.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}
