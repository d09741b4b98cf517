package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/auth"
	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var (
	profileName    string
	profileAbout   string
	profilePicture string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile metadata events and signals",
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Sign a profile metadata event and announce it",
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := map[string]any{}
		if profileName != "" {
			fields["name"] = profileName
		}
		if profileAbout != "" {
			fields["about"] = profileAbout
		}
		if profilePicture != "" {
			fields["picture"] = profilePicture
		}
		if len(fields) == 0 {
			return fmt.Errorf("nothing to set: pass at least one of --name, --about, --picture")
		}

		controller, _, err := promptController()
		if err != nil {
			return err
		}
		ev, err := controller.UpdateProfile(cmd.Context(), fields)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(ev)
			return nil
		}
		fmt.Println(ui.RenderOK("profile updated"), ui.RenderMuted(ev.ID))
		return nil
	},
}

var profileRequestCmd = &cobra.Command{
	Use:   "request <pubkey>",
	Short: "Ask bus listeners to fetch a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Requesting a peer's profile signs nothing, so no key prompt.
		controller := auth.New(nil, api, sessionStore, bus, nil, nil)
		controller.RequestProfile(cmd.Context(), args[0])
		fmt.Println(ui.RenderOK("profile requested"), ui.RenderMuted(args[0]))
		return nil
	},
}

func init() {
	profileSetCmd.Flags().StringVar(&profileName, "name", "", "display name")
	profileSetCmd.Flags().StringVar(&profileAbout, "about", "", "about text")
	profileSetCmd.Flags().StringVar(&profilePicture, "picture", "", "picture URL")

	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileRequestCmd)
}
