package model

import "time"

// SessionData is the client-side mirror of a server session. It is a cache
// for fast re-render only; the server never accepts it as proof of
// authentication.
type SessionData struct {
	Pubkey    string    `json:"pubkey" toml:"pubkey"`
	Token     string    `json:"token" toml:"token"`
	CSRFToken string    `json:"csrf_token,omitempty" toml:"csrf_token,omitempty"`
	CreatedAt time.Time `json:"created_at" toml:"created_at"`
}

// ServerSession is the server-authoritative binding of a verified pubkey to
// an active login.
type ServerSession struct {
	Token     string    `json:"token"`
	Pubkey    string    `json:"pubkey"`
	CSRFToken string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
