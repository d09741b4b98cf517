package model

// OfferData describes a trade offer. It is carried twice in a kind-32122
// event: as individual string tags and as the JSON content, which must agree.
type OfferData struct {
	CardID    string `json:"card_id"`
	OfferType string `json:"offer_type"` // "buy" or "sell"
	PriceSats int64  `json:"price"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// TradeData describes the execution of a matched trade, carried in a
// kind-32123 event the same dual-encoded way.
type TradeData struct {
	TradeID      string `json:"trade_id"`
	CardID       string `json:"card_id"`
	BuyerPubkey  string `json:"buyer_pubkey"`
	SellerPubkey string `json:"seller_pubkey"`
	PriceSats    int64  `json:"price"`
}
