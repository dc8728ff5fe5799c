package models

import "encoding/json"

// SyncPayload is the record stored in the remote store under a sync code.
type SyncPayload struct {
	// Products is kept raw so a pulled payload goes through the same
	// decoding and migration as an import.
	Products json.RawMessage `json:"products"`

	// CreatedAt and ExpiresAt are Unix millisecond timestamps. ExpiresAt is
	// advisory: the remote store enforces the window.
	CreatedAt int64 `json:"createdAt"`
	ExpiresAt int64 `json:"expiresAt"`
}

// Reference is one row of the auxiliary barcode table used to pre-fill
// product names.
type Reference struct {
	IBN   string `json:"IBN"`
	Title string `json:"Title"`
}
