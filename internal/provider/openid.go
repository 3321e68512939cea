// Package provider implements the outbound identity-provider exchange.
// The provider is treated as an opaque verifier: the client swaps an
// authorization code for a token and reads the user info endpoint, and
// nothing else about the provider protocol leaks into the service.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scholar-spark/auth-service/internal/config"
	"github.com/scholar-spark/auth-service/internal/domain"
)

const requestTimeout = 10 * time.Second

// Client exchanges authorization codes against a configured provider
type Client struct {
	httpClient   *http.Client
	tokenURL     string
	userInfoURL  string
	clientID     string
	clientSecret string
}

func NewClient(cfg config.OpenIDConfig) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: requestTimeout},
		tokenURL:     cfg.TokenURL,
		userInfoURL:  cfg.UserInfoURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// ExchangeCodeForToken redeems an authorization code for a provider token
func (c *Client) ExchangeCodeForToken(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	return body.AccessToken, nil
}

// FetchUserInfo reads the provider's user info endpoint with the token
func (c *Client) FetchUserInfo(ctx context.Context, token string) (*domain.ProviderUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info endpoint returned status %d", resp.StatusCode)
	}

	var info domain.ProviderUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if info.Subject == "" {
		return nil, fmt.Errorf("user info contained no subject")
	}

	return &info, nil
}
