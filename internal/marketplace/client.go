package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	userIDHeader    = "X-User-Id"
	requestIDHeader = "X-Request-Id"
)

// Client talks to the seller-side marketplace API. Authentication-path calls
// (Auth, RefreshAuth, CheckToken) are retried with a fixed backoff; everything
// else is attempted once and left to the next scheduled cycle on failure.
type Client struct {
	baseURL       string
	clientID      string
	clientSecret  string
	httpClient    *http.Client
	logger        *zap.Logger
	retryAttempts int
	retryBackoff  time.Duration
}

func NewClient(baseURL, clientID, clientSecret string, retryAttempts int, retryBackoff time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:        logger,
		retryAttempts: retryAttempts,
		retryBackoff:  retryBackoff,
	}
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Auth performs a password grant for the account credential.
func (c *Client) Auth(ctx context.Context, userID, login, password string) (*TokenPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	var pair *TokenPair
	err := c.withRetry(ctx, "auth", userID, func() error {
		token, err := c.oauthConfig().PasswordCredentialsToken(ctx, login, password)
		if err != nil {
			return err
		}
		pair = &TokenPair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("password grant failed: %w", err)
	}
	return pair, nil
}

// RefreshAuth exchanges a refresh token for a fresh pair.
func (c *Client) RefreshAuth(ctx context.Context, userID, refreshToken string) (*TokenPair, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	var pair *TokenPair
	err := c.withRetry(ctx, "refresh_auth", userID, func() error {
		source := c.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		token, err := source.Token()
		if err != nil {
			return err
		}
		rotated := token.RefreshToken
		if rotated == "" {
			rotated = refreshToken
		}
		pair = &TokenPair{AccessToken: token.AccessToken, RefreshToken: rotated}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh grant failed: %w", err)
	}
	return pair, nil
}

// CheckToken validates an access token and reports the account it belongs to.
func (c *Client) CheckToken(ctx context.Context, userID, accessToken string) (*CheckTokenResponse, error) {
	var out CheckTokenResponse
	err := c.withRetry(ctx, "check_token", userID, func() error {
		form := url.Values{"token": {accessToken}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/seller/check_token", strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.clientID, c.clientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		c.setTraceHeaders(req, userID)
		return c.do(req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetShops lists the shops of the authenticated account.
func (c *Client) GetShops(ctx context.Context, userID, accessToken string) ([]Shop, error) {
	var shops []Shop
	req, err := c.newJSONRequest(ctx, http.MethodGet, c.baseURL+"/seller/shop/", nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req, userID, accessToken)
	if err := c.do(req, &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

// GetShopItems returns one page of a shop's active products. An empty page
// terminates pagination.
func (c *Client) GetShopItems(ctx context.Context, userID, accessToken string, shopID int64, page, size int) ([]ShopItem, error) {
	endpoint := fmt.Sprintf(
		"%s/seller/shop/%d/product?filter=active&sortBy=id&order=descending&size=%d&page=%d",
		c.baseURL, shopID, size, page,
	)
	req, err := c.newJSONRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req, userID, accessToken)
	var out shopItemPage
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.ProductList, nil
}

// GetProductInfo fetches category and sku data for one product.
func (c *Client) GetProductInfo(ctx context.Context, userID, accessToken string, shopID, productID int64) (*ProductInfo, error) {
	endpoint := fmt.Sprintf("%s/seller/shop/%d/product/info?productId=%d", c.baseURL, shopID, productID)
	req, err := c.newJSONRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeaders(req, userID, accessToken)
	var out ProductInfo
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePrice pushes a full sku payload for one product. Not retried: a
// failed attempt is picked up by the next recalculation cycle.
func (c *Client) ChangePrice(ctx context.Context, userID, accessToken string, shopID int64, payload PriceChangePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal price change payload: %w", err)
	}
	endpoint := fmt.Sprintf("%s/seller/shop/%d/product/sendSkuData", c.baseURL, shopID)
	req, err := c.newJSONRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setAuthHeaders(req, userID, accessToken)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

func (c *Client) setAuthHeaders(req *http.Request, userID, accessToken string) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	c.setTraceHeaders(req, userID)
}

func (c *Client) setTraceHeaders(req *http.Request, userID string) {
	req.Header.Set(userIDHeader, userID)
	req.Header.Set(requestIDHeader, uuid.New().String())
}

// do executes the request, maps any non-2xx response to *APIError and decodes
// a JSON body into out when out is non-nil.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, op, userID string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		err = fn()
		if err == nil || IsClientError(err) {
			return err
		}
		c.logger.Warn("marketplace call failed",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt == c.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryBackoff):
		}
	}
	return err
}
