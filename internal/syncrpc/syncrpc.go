// Package syncrpc exposes a remote.Store over Connect RPC and provides a
// client that implements remote.Store against such a server.
//
// Messages are plain Go structs encoded with a JSON codec registered under
// the "json" name, so any Connect-speaking HTTP client can call the service
// with Content-Type application/json.
package syncrpc

import (
	"encoding/json"
)

const (
	// ServiceName is the fully-qualified name of the sync service.
	ServiceName = "pantry.sync.v1.SyncService"

	PutProcedure    = "/" + ServiceName + "/Put"
	GetProcedure    = "/" + ServiceName + "/Get"
	DeleteProcedure = "/" + ServiceName + "/Delete"
)

// PutRequest stores Value under Key for TTLSeconds.
type PutRequest struct {
	Key        string `json:"key"`
	Value      []byte `json:"value"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

type PutResponse struct {
	ExpiresAt int64 `json:"expiresAt"`
}

type GetRequest struct {
	Key string `json:"key"`
}

type GetResponse struct {
	Value []byte `json:"value"`
}

type DeleteRequest struct {
	Key string `json:"key"`
}

type DeleteResponse struct{}

// Codec is a connect.Codec using encoding/json.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
