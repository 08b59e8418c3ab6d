package scan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestScanParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("auth header = %q", got)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "receipt.jpg" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":"1543.20","vendor":"Total Garage","date":"2026-08-02","confidence":0.91}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	res, err := c.Scan(context.Background(), []byte{0xff, 0xd8}, "receipt.jpg")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Amount.Equal(decimal.RequireFromString("1543.20")) {
		t.Errorf("amount = %s", res.Amount)
	}
	if res.Vendor != "Total Garage" || res.Confidence != 0.91 {
		t.Errorf("result = %+v", res)
	}
}

func TestScanServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.Scan(context.Background(), nil, "r.jpg"); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("err = %v, want 503 surfaced", err)
	}
}

func TestScanNotConfigured(t *testing.T) {
	c := NewClient("", "", 0)
	if _, err := c.Scan(context.Background(), nil, "r.jpg"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}
