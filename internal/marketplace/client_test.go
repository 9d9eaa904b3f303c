package marketplace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(serverURL string, attempts int) *Client {
	return NewClient(serverURL, "client-id", "client-secret", attempts, time.Millisecond, zap.NewNop())
}

func TestCheckToken_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/seller/check_token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostFormValue("token") != "access-123" {
			t.Errorf("expected token form field, got %q", r.PostFormValue("token"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"account_id": 42, "first_name": "Ivan", "email": "ivan@example.test"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	resp, err := client.CheckToken(context.Background(), "user-1", "access-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.AccountID != 42 {
		t.Errorf("expected account id 42, got %d", resp.AccountID)
	}
	if resp.Email != "ivan@example.test" {
		t.Errorf("expected email to be decoded, got %q", resp.Email)
	}
}

func TestCheckToken_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "token expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	_, err := client.CheckToken(context.Background(), "user-1", "stale")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsClientError(err) {
		t.Errorf("expected client error classification, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a 4xx to short-circuit retries, got %d calls", calls)
	}
}

func TestCheckToken_ServerErrorRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"account_id": 1, "first_name": "n", "email": "e"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	if _, err := client.CheckToken(context.Background(), "user-1", "tok"); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestGetShopItems_EmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "4" {
			t.Errorf("expected page=4, got %s", r.URL.Query().Get("page"))
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"product_list": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	items, err := client.GetShopItems(context.Background(), "user-1", "tok", 7, 4, 99)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty page, got %d items", len(items))
	}
}

func TestChangePrice_RemoteRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/seller/shop/7/product/sendSkuData" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		http.Error(w, `{"error": "price out of range"}`, http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	err := client.ChangePrice(context.Background(), "user-1", "tok", 7, PriceChangePayload{
		ProductID: 100,
		SkuList:   []PriceChangeSku{{ID: 1, FullPrice: 1960, SellPrice: 1960}},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", apiErr.Status)
	}
	if apiErr.Body == "" {
		t.Error("expected raw body to be carried on the error")
	}
}

func TestAuth_PasswordGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if r.PostFormValue("grant_type") != "password" {
			t.Errorf("expected password grant, got %q", r.PostFormValue("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "acc-1", "refresh_token": "ref-1", "token_type": "bearer", "expires_in": 3600}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	pair, err := client.Auth(context.Background(), "user-1", "login", "password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pair.AccessToken != "acc-1" || pair.RefreshToken != "ref-1" {
		t.Errorf("unexpected token pair: %+v", pair)
	}
}

func TestRefreshAuth_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "acc-2", "token_type": "bearer", "expires_in": 3600}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	pair, err := client.RefreshAuth(context.Background(), "user-1", "ref-old")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pair.RefreshToken != "ref-old" {
		t.Errorf("expected refresh token to be kept, got %q", pair.RefreshToken)
	}
}
