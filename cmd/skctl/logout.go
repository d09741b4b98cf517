package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Tear down the server session and clear the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, ok := sessionStore.Get()
		if ok && data.Token != "" {
			if err := api.DeleteSession(cmd.Context(), data.Token, data.CSRFToken); err != nil {
				// Best-effort: the local cache is cleared regardless.
				fmt.Println(ui.RenderWarn("server session delete failed: " + err.Error()))
			}
		}
		if err := sessionStore.Clear(); err != nil {
			return fmt.Errorf("clearing session cache: %w", err)
		}
		fmt.Println(ui.RenderOK("logged out"))
		return nil
	},
}
