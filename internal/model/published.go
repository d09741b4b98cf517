package model

import (
	"encoding/json"
	"time"
)

// PublishedEvent is a persisted signed event row, mirroring what the admin
// workflow broadcasts.
type PublishedEvent struct {
	ID          int64           `json:"id"`
	EventID     string          `json:"event_id"`
	Pubkey      string          `json:"pubkey"`
	Kind        int             `json:"kind"`
	DTag        string          `json:"d_tag"`
	CreatedAt   int64           `json:"created_at"` // event timestamp, unix seconds
	Raw         json.RawMessage `json:"raw"`        // the full signed event, byte-for-byte
	PublishedAt time.Time       `json:"published_at"`
}
