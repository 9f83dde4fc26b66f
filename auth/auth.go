// Package auth acquires and caches the upstream access credential. It is
// the single source of truth for whether the current credential is still
// valid, and it deduplicates concurrent refreshes so a burst of callers
// triggers exactly one token exchange.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/mediaflow-hub/listing-aggregator/model"
)

// safetyMargin is subtracted from the reported token lifetime so a token
// is never used when it could expire mid-flight.
const safetyMargin = 60 * time.Second

// Credential is an upstream bearer token with its local expiry. It is
// replaced wholesale on renewal, never mutated in place.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the credential can still be used at the given time.
func (c Credential) Valid(now time.Time) bool {
	return c.Token != "" && now.Before(c.ExpiresAt)
}

// CredentialCache performs the client-credentials exchange against the
// token endpoint and caches the result until it nears expiry.
type CredentialCache struct {
	tokenURL     string
	clientID     string
	clientSecret string
	userAgent    string
	httpClient   *http.Client
	now          func() time.Time

	mu      sync.RWMutex
	current Credential

	group singleflight.Group
}

// NewCredentialCache creates a credential cache for the given token
// endpoint and client credentials.
func NewCredentialCache(tokenURL, clientID, clientSecret, userAgent string, timeout time.Duration) *CredentialCache {
	return &CredentialCache{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		httpClient:   &http.Client{Timeout: timeout},
		now:          time.Now,
	}
}

// GetToken returns a valid credential, performing the upstream exchange
// only when no cached credential remains usable. Concurrent callers during
// a refresh share a single outstanding exchange.
func (c *CredentialCache) GetToken(ctx context.Context) (Credential, error) {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()
	if cur.Valid(c.now()) {
		return cur, nil
	}

	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		// A waiter may arrive after another caller already refreshed.
		c.mu.RLock()
		cur := c.current
		c.mu.RUnlock()
		if cur.Valid(c.now()) {
			return cur, nil
		}

		cred, err := c.exchange(ctx)
		if err != nil {
			return Credential{}, err
		}

		c.mu.Lock()
		c.current = cred
		c.mu.Unlock()
		return cred, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *CredentialCache) exchange(ctx context.Context) (Credential, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return Credential{}, &model.CredentialError{Err: fmt.Errorf("client id or secret is not configured")}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, &model.CredentialError{Err: err}
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Token exchange request failed")
		return Credential{}, &model.CredentialError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error().Int("status", resp.StatusCode).Msg("Token endpoint returned non-2xx status")
		return Credential{}, &model.CredentialError{
			Err: fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Credential{}, &model.CredentialError{Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return Credential{}, &model.CredentialError{Err: fmt.Errorf("token response contained no access token")}
	}

	cred := Credential{
		Token:     tr.AccessToken,
		ExpiresAt: c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - safetyMargin),
	}
	log.Info().Time("expires_at", cred.ExpiresAt).Msg("Obtained upstream access credential")
	return cred, nil
}
