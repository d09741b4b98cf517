package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and rebuild the published-event index (admin)",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from the persisted event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.RebuildIndex(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(ui.RenderOK("index rebuilt"))
		return nil
	},
}

var indexStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the index snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := api.IndexState(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexStateCmd)
}
