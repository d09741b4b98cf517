package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Card catalog and publishing",
}

var cardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the card catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cards, err := api.ListCards(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(cards)
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tRARITY\tPRICE (SATS)")
		for _, c := range cards {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ID, c.Name, c.Rarity, c.PriceSats)
		}
		return w.Flush()
	},
}

var cardPublishCmd = &cobra.Command{
	Use:   "publish <card-id> [card-id...]",
	Short: "Publish card definition events (admin)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			ev, err := api.PublishCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(ev)
				return nil
			}
			fmt.Println(ui.RenderOK("published"), args[0], ui.RenderMuted(ev.ID))
			return nil
		}

		result, err := api.PublishCards(cmd.Context(), args)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(result)
			return nil
		}
		for _, ev := range result.Succeeded {
			fmt.Println(ui.RenderOK("published"), ui.RenderMuted(ev.ID))
		}
		for _, f := range result.Failed {
			fmt.Println(ui.RenderWarn("failed"), f.CardID+":", f.Reason)
		}
		fmt.Printf("%d published, %d failed\n", len(result.Succeeded), len(result.Failed))
		return nil
	},
}

func init() {
	cardCmd.AddCommand(cardListCmd)
	cardCmd.AddCommand(cardPublishCmd)
}
