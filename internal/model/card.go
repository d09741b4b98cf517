package model

import "time"

// Card is a read-side card record. Card storage and price simulation live
// outside this module; the store exposes cards as a simple query interface.
type Card struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Rarity    string    `json:"rarity"`
	ImageURL  string    `json:"image_url,omitempty"`
	PriceSats int64     `json:"price_sats"`
	UpdatedAt time.Time `json:"updated_at"`
}
