package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/present", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(DefaultOptions())

	ok, err := client.Exists(context.Background(), srv.URL+"/present")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Error("Exists = false for a present file")
	}

	ok, err = client.Exists(context.Background(), srv.URL+"/absent")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("Exists = true for an absent file")
	}
}

func TestExistsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(DefaultOptions())
	_, err := client.Exists(context.Background(), srv.URL+"/anything")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
}

func TestDownloadFile(t *testing.T) {
	body := []byte("Package: base-files\nVersion: 12.4\n")
	mux := http.NewServeMux()
	mux.HandleFunc("/pool/base-files.deb", func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "base-files.deb")
	client := NewClient(DefaultOptions())
	if err := client.DownloadFile(context.Background(), srv.URL+"/pool/base-files.deb", dest); err != nil {
		t.Fatalf("DownloadFile failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("downloaded %q, want %q", got, body)
	}
}

func TestDownloadFileNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing")
	client := NewClient(DefaultOptions())
	err := client.DownloadFile(context.Background(), srv.URL+"/missing", dest)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want 404", statusErr.Code)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination file left behind after failed download")
	}
}

func TestDownloadFileCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dest := filepath.Join(t.TempDir(), "never")
	client := NewClient(DefaultOptions())
	if err := client.DownloadFile(ctx, srv.URL+"/never", dest); err == nil {
		t.Fatal("expected an error after cancellation")
	}
}
