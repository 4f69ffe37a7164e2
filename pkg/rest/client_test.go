// pkg/rest/client_test.go
package rest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/YaganovValera/analytics-system/services/exchange-connector/pkg/logger"
)

func TestClient_ExecuteDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/time" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"serverTime":1700000000000}`))
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	err = client.Execute(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/api/v3/time",
		Metric: "fetch_server_time",
	}, &out)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.ServerTime != 1700000000000 {
		t.Errorf("serverTime = %d", out.ServerTime)
	}
}

func TestClient_ExecuteSignsRequest(t *testing.T) {
	secret := []byte("top-secret")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-MBX-APIKEY"); got != "api-key" {
			t.Errorf("api key header = %q", got)
		}
		q := r.URL.Query()
		sig := q.Get("signature")
		q.Del("signature")

		mac := hmac.New(sha256.New, secret)
		mac.Write([]byte(q.Encode()))
		if want := hex.EncodeToString(mac.Sum(nil)); sig != want {
			t.Errorf("signature = %q; want %q", sig, want)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	signer := HMACSigner{
		APIKey:    "api-key",
		Secret:    secret,
		KeyHeader: "X-MBX-APIKEY",
		SigParam:  "signature",
	}
	client, err := New(Config{BaseURL: srv.URL}, signer, logger.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	query := url.Values{}
	query.Set("symbol", "BTCUSDT")
	err = client.Execute(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/api/v3/account",
		Metric: "fetch_account",
		Query:  query,
		Sign:   true,
	}, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestClient_ExecuteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = client.Execute(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/api/v3/ticker",
		Metric: "fetch_ticker",
	}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTeapot {
		t.Errorf("status = %d", apiErr.Status)
	}
}

func TestClient_ExecuteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = client.Execute(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "/slow",
		Metric:  "fetch_slow",
		Timeout: 30 * time.Millisecond,
	}, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_ConfigValidation(t *testing.T) {
	if _, err := New(Config{}, nil, logger.Nop()); err == nil {
		t.Error("expected error for empty base_url")
	}

	client, err := New(Config{BaseURL: "http://x"}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := client.Execute(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil); err == nil {
		t.Error("expected error for missing metric tag")
	}
}
