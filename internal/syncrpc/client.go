package syncrpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/pantry/internal/remote"
)

var _ remote.Store = (*Client)(nil)

// Client implements remote.Store by calling a sync daemon.
type Client struct {
	put    *connect.Client[PutRequest, PutResponse]
	get    *connect.Client[GetRequest, GetResponse]
	delete *connect.Client[DeleteRequest, DeleteResponse]
}

// NewClient creates a client for the daemon at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &Client{
		put:    connect.NewClient[PutRequest, PutResponse](httpClient, baseURL+PutProcedure, opts...),
		get:    connect.NewClient[GetRequest, GetResponse](httpClient, baseURL+GetProcedure, opts...),
		delete: connect.NewClient[DeleteRequest, DeleteResponse](httpClient, baseURL+DeleteProcedure, opts...),
	}
}

// Put implements remote.Store.
func (c *Client) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	_, err := c.put.CallUnary(ctx, connect.NewRequest(&PutRequest{
		Key:        key,
		Value:      value,
		TTLSeconds: int64(ttl / time.Second),
	}))
	if connect.CodeOf(err) == connect.CodeAlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sync put: %w", err)
	}
	return true, nil
}

// Get implements remote.Store.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.get.CallUnary(ctx, connect.NewRequest(&GetRequest{Key: key}))
	if connect.CodeOf(err) == connect.CodeNotFound {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sync get: %w", err)
	}
	return resp.Msg.Value, nil
}

// Delete implements remote.Store.
func (c *Client) Delete(ctx context.Context, key string) error {
	if _, err := c.delete.CallUnary(ctx, connect.NewRequest(&DeleteRequest{Key: key})); err != nil {
		return fmt.Errorf("sync delete: %w", err)
	}
	return nil
}
