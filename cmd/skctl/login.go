package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/auth"
	"github.com/Razue/sammelkarten-sub002/internal/schema"
	"github.com/Razue/sammelkarten-sub002/internal/signer"
	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the server with a nostr key",
	Long: `Login prompts for a secret key (hex or nsec bech32), signs the server's
auth challenge with it, and caches the resulting session locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		controller, local, err := promptController()
		if err != nil {
			return err
		}
		if err := controller.BeginLogin(cmd.Context()); err != nil {
			return err
		}

		pubkey, _ := local.GetPublicKey(context.Background())
		fmt.Println(ui.RenderOK("logged in"), ui.RenderMuted(pubkey))
		return nil
	},
}

// promptController reads a secret key from the terminal and assembles a
// handshake controller around it, emitting signals on the shared bus.
func promptController() (*auth.Controller, *signer.Local, error) {
	fmt.Fprint(os.Stderr, "Secret key (hex or nsec): ")
	secret, err := ui.ReadSecret(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("reading secret key: %w", err)
	}
	secretHex, err := decodeSecretKey(secret)
	if err != nil {
		return nil, nil, err
	}

	local, err := signer.NewLocal(secretHex)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid secret key: %w", err)
	}
	controller := auth.New(signer.NewAdapter(local), api, sessionStore, bus, schema.New(nil), nil)
	return controller, local, nil
}

// decodeSecretKey accepts a raw hex key or an nsec bech32 encoding.
func decodeSecretKey(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", fmt.Errorf("no secret key provided")
	}
	if strings.HasPrefix(secret, "nsec1") {
		prefix, value, err := nip19.Decode(secret)
		if err != nil {
			return "", fmt.Errorf("decoding nsec: %w", err)
		}
		if prefix != "nsec" {
			return "", fmt.Errorf("unexpected bech32 prefix %q", prefix)
		}
		return value.(string), nil
	}
	return secret, nil
}
