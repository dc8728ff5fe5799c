package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/pantry/internal/metrics"
	"github.com/mmynk/pantry/internal/remote"
	"github.com/mmynk/pantry/internal/remote/sqlstore"
	"github.com/mmynk/pantry/internal/syncrpc"
)

// captureRequestID records the request ID seen by the handler chain.
func captureRequestID(seen *string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			*seen = GetRequestID(ctx)
			return next(ctx, req)
		}
	}
}

func setHeader(key, value string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set(key, value)
			return next(ctx, req)
		}
	}
}

func setup(t *testing.T, m *metrics.Metrics, seen *string, clientOpts ...connect.ClientOption) *syncrpc.Client {
	t.Helper()

	store, err := sqlstore.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	path, handler := syncrpc.NewHandler(
		syncrpc.NewSyncService(store, time.Hour, m),
		connect.WithInterceptors(LoggingInterceptor(), MetricsInterceptor(m), captureRequestID(seen)),
	)
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
	})
	return syncrpc.NewClient(server.Client(), server.URL, clientOpts...)
}

func TestMetricsInterceptor(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	var seen string
	client := setup(t, m, &seen)

	if _, err := client.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := client.Get(ctx, "missing"); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if got := testutil.ToFloat64(m.RPCRequests.WithLabelValues(syncrpc.PutProcedure, "ok")); got != 1 {
		t.Errorf("put ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RPCRequests.WithLabelValues(syncrpc.GetProcedure, "not_found")); got != 1 {
		t.Errorf("get not_found count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Records.WithLabelValues("put")); got != 1 {
		t.Errorf("put record count = %v, want 1", got)
	}
}

func TestLoggingInterceptor_RequestID(t *testing.T) {
	ctx := context.Background()

	t.Run("from header", func(t *testing.T) {
		var seen string
		client := setup(t, metrics.New(), &seen,
			connect.WithInterceptors(setHeader("X-Request-Id", "req-42")))

		if _, err := client.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if seen != "req-42" {
			t.Errorf("request id = %q, want req-42", seen)
		}
	})

	t.Run("generated", func(t *testing.T) {
		var seen string
		client := setup(t, metrics.New(), &seen)

		if _, err := client.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if len(seen) != 36 {
			t.Errorf("expected a generated UUID, got %q", seen)
		}
	})
}

func TestGetRequestID_Missing(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}
