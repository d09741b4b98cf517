package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/ui"
)

var (
	offerCard      string
	offerType      string
	offerPrice     int64
	offerExpiresIn time.Duration

	acceptTradeID string
	acceptCard    string
	acceptBuyer   string
	acceptSeller  string
	acceptPrice   int64
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Trade offer and execution events",
}

var tradeOfferCmd = &cobra.Command{
	Use:   "offer",
	Short: "Sign a trade offer event and announce it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if offerCard == "" {
			return fmt.Errorf("--card is required")
		}
		if offerType != "buy" && offerType != "sell" {
			return fmt.Errorf("--type must be buy or sell, got %q", offerType)
		}
		offer := model.OfferData{
			CardID:    offerCard,
			OfferType: offerType,
			PriceSats: offerPrice,
			ExpiresAt: time.Now().Add(offerExpiresIn).Unix(),
		}

		controller, _, err := promptController()
		if err != nil {
			return err
		}
		ev, err := controller.CreateTradeOffer(cmd.Context(), offer)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(ev)
			return nil
		}
		fmt.Println(ui.RenderOK("offer created"), ui.RenderMuted(ev.ID))
		return nil
	},
}

var tradeAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Sign a trade execution event and announce it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if acceptTradeID == "" || acceptCard == "" {
			return fmt.Errorf("--trade and --card are required")
		}
		if acceptBuyer == "" || acceptSeller == "" {
			return fmt.Errorf("--buyer and --seller are required")
		}
		trade := model.TradeData{
			TradeID:      acceptTradeID,
			CardID:       acceptCard,
			BuyerPubkey:  acceptBuyer,
			SellerPubkey: acceptSeller,
			PriceSats:    acceptPrice,
		}

		controller, _, err := promptController()
		if err != nil {
			return err
		}
		ev, err := controller.AcceptTrade(cmd.Context(), trade)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(ev)
			return nil
		}
		fmt.Println(ui.RenderOK("trade accepted"), ui.RenderMuted(ev.ID))
		return nil
	},
}

func init() {
	tradeOfferCmd.Flags().StringVar(&offerCard, "card", "", "card ID")
	tradeOfferCmd.Flags().StringVar(&offerType, "type", "sell", "offer type (buy or sell)")
	tradeOfferCmd.Flags().Int64Var(&offerPrice, "price", 0, "price in sats")
	tradeOfferCmd.Flags().DurationVar(&offerExpiresIn, "expires-in", 24*time.Hour, "offer lifetime")

	tradeAcceptCmd.Flags().StringVar(&acceptTradeID, "trade", "", "trade ID")
	tradeAcceptCmd.Flags().StringVar(&acceptCard, "card", "", "card ID")
	tradeAcceptCmd.Flags().StringVar(&acceptBuyer, "buyer", "", "buyer pubkey")
	tradeAcceptCmd.Flags().StringVar(&acceptSeller, "seller", "", "seller pubkey")
	tradeAcceptCmd.Flags().Int64Var(&acceptPrice, "price", 0, "price in sats")

	tradeCmd.AddCommand(tradeOfferCmd)
	tradeCmd.AddCommand(tradeAcceptCmd)
}
