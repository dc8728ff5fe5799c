package syncrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/pantry/internal/metrics"
	"github.com/mmynk/pantry/internal/remote"
)

// DefaultMaxTTL caps how long a record may live when the server is not
// configured otherwise.
const DefaultMaxTTL = 24 * time.Hour

// SyncService implements the sync RPCs on top of a remote.Store.
type SyncService struct {
	store   remote.Store
	maxTTL  time.Duration
	metrics *metrics.Metrics
}

// NewSyncService creates a SyncService. A non-positive maxTTL selects
// DefaultMaxTTL; m may be nil.
func NewSyncService(store remote.Store, maxTTL time.Duration, m *metrics.Metrics) *SyncService {
	if maxTTL <= 0 {
		maxTTL = DefaultMaxTTL
	}
	return &SyncService{store: store, maxTTL: maxTTL, metrics: m}
}

// NewHandler builds an HTTP handler serving all sync procedures. The returned
// path is the prefix to mount it under.
func NewHandler(svc *SyncService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PutProcedure, connect.NewUnaryHandler(PutProcedure, svc.Put, opts...))
	mux.Handle(GetProcedure, connect.NewUnaryHandler(GetProcedure, svc.Get, opts...))
	mux.Handle(DeleteProcedure, connect.NewUnaryHandler(DeleteProcedure, svc.Delete, opts...))
	return "/" + ServiceName + "/", mux
}

// Put stores a record unless the key is live.
func (s *SyncService) Put(ctx context.Context, req *connect.Request[PutRequest]) (*connect.Response[PutResponse], error) {
	slog.Debug("Put request received", "bytes", len(req.Msg.Value), "ttl_seconds", req.Msg.TTLSeconds)

	if req.Msg.Key == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("key required"))
	}
	if len(req.Msg.Value) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("value required"))
	}

	ttl := time.Duration(req.Msg.TTLSeconds) * time.Second
	if ttl <= 0 || ttl > s.maxTTL {
		ttl = s.maxTTL
	}

	created, err := s.store.Put(ctx, req.Msg.Key, req.Msg.Value, ttl)
	if err != nil {
		slog.Error("Put failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if !created {
		s.metrics.RecordOp("put_conflict")
		return nil, connect.NewError(connect.CodeAlreadyExists, fmt.Errorf("key in use"))
	}

	s.metrics.RecordOp("put")
	return connect.NewResponse(&PutResponse{
		ExpiresAt: time.Now().Add(ttl).UnixMilli(),
	}), nil
}

// Get returns a live record.
func (s *SyncService) Get(ctx context.Context, req *connect.Request[GetRequest]) (*connect.Response[GetResponse], error) {
	if req.Msg.Key == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("key required"))
	}

	value, err := s.store.Get(ctx, req.Msg.Key)
	if errors.Is(err, remote.ErrNotFound) {
		s.metrics.RecordOp("get_miss")
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		slog.Error("Get failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.metrics.RecordOp("get")
	return connect.NewResponse(&GetResponse{Value: value}), nil
}

// Delete removes a record.
func (s *SyncService) Delete(ctx context.Context, req *connect.Request[DeleteRequest]) (*connect.Response[DeleteResponse], error) {
	if req.Msg.Key == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("key required"))
	}

	if err := s.store.Delete(ctx, req.Msg.Key); err != nil {
		slog.Error("Delete failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.metrics.RecordOp("delete")
	return connect.NewResponse(&DeleteResponse{}), nil
}
