package syncrpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/pantry/internal/metrics"
	"github.com/mmynk/pantry/internal/middleware"
	"github.com/mmynk/pantry/internal/remote"
	"github.com/mmynk/pantry/internal/remote/sqlstore"
)

// setupTestServer serves a SyncService backed by a temp SQLite store.
func setupTestServer(t *testing.T) (*Client, *httptest.Server) {
	t.Helper()

	store, err := sqlstore.Open(filepath.Join(t.TempDir(), "sync.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	m := metrics.New()
	path, handler := NewHandler(
		NewSyncService(store, time.Hour, m),
		connect.WithInterceptors(middleware.LoggingInterceptor(), middleware.MetricsInterceptor(m)),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return NewClient(http.DefaultClient, server.URL), server
}

func TestPutGetDelete(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	created, err := client.Put(ctx, "sync:abc", []byte(`{"products":[]}`), 10*time.Minute)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !created {
		t.Fatal("expected record to be created")
	}

	value, err := client.Get(ctx, "sync:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != `{"products":[]}` {
		t.Errorf("value mismatch: got %s", value)
	}

	if err := client.Delete(ctx, "sync:abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err = client.Get(ctx, "sync:abc")
	if err != remote.ErrNotFound {
		t.Errorf("expected remote.ErrNotFound after delete, got %v", err)
	}
}

func TestPut_KeyInUse(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()

	if _, err := client.Put(ctx, "k", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	created, err := client.Put(ctx, "k", []byte("2"), time.Minute)
	if err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	if created {
		t.Error("expected created=false for a live key")
	}
}

func TestGet_NotFound(t *testing.T) {
	client, _ := setupTestServer(t)

	_, err := client.Get(context.Background(), "missing")
	if err != remote.ErrNotFound {
		t.Errorf("expected remote.ErrNotFound, got %v", err)
	}
}

func TestPut_InvalidArgument(t *testing.T) {
	client, _ := setupTestServer(t)

	_, err := client.Put(context.Background(), "", []byte("1"), time.Minute)
	if err == nil {
		t.Fatal("expected error for empty key")
	}
	if code := connect.CodeOf(err); code != connect.CodeInvalidArgument {
		t.Errorf("expected CodeInvalidArgument, got %v", code)
	}
}

func TestPlainJSONClient(t *testing.T) {
	_, server := setupTestServer(t)

	resp, err := http.Post(server.URL+GetProcedure, "application/json", strings.NewReader(`{"key":"nope"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing key, got %d", resp.StatusCode)
	}
}
