package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mediaflow-hub/listing-aggregator/auth"
	"github.com/mediaflow-hub/listing-aggregator/model"
)

// ListingClient fetches one raw listing page for a channel.
type ListingClient interface {
	FetchListing(ctx context.Context, query model.SourceQuery) (RawListing, error)
}

// HTTPClient is the production ListingClient. It obtains a bearer token
// from the credential cache and issues authenticated listing requests with
// a bounded timeout.
type HTTPClient struct {
	baseURL     string
	userAgent   string
	credentials *auth.CredentialCache
	httpClient  *http.Client
}

// NewHTTPClient creates a listing client for the given API base URL.
func NewHTTPClient(baseURL, userAgent string, credentials *auth.CredentialCache, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		userAgent:   userAgent,
		credentials: credentials,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// FetchListing implements ListingClient. Credential failures surface as
// CredentialError, non-2xx responses as UpstreamError, and transport
// failures (including timeouts) as NetworkError.
func (c *HTTPClient) FetchListing(ctx context.Context, query model.SourceQuery) (RawListing, error) {
	cred, err := c.credentials.GetToken(ctx)
	if err != nil {
		return RawListing{}, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(query.PageSize))
	params.Set("raw_json", "1")
	if query.Cursor != "" {
		params.Set("after", query.Cursor)
	}
	if query.Sort == model.SortTop {
		params.Set("t", string(query.Window))
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s?%s", c.baseURL, query.Channel, query.Sort, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RawListing{}, fmt.Errorf("building listing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		timeout := isTimeout(err)
		log.Warn().Err(err).Str("channel", query.Channel).Bool("timeout", timeout).Msg("Listing request failed")
		return RawListing{}, &model.NetworkError{Err: err, Timeout: timeout}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Str("channel", query.Channel).Msg("Listing request returned non-2xx status")
		return RawListing{}, &model.UpstreamError{Status: resp.StatusCode}
	}

	var listing RawListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return RawListing{}, &model.UpstreamError{Status: resp.StatusCode, Err: fmt.Errorf("decoding listing body: %w", err)}
	}

	log.Debug().
		Str("channel", query.Channel).
		Int("posts", len(listing.Data.Children)).
		Str("after", listing.Data.After).
		Msg("Fetched listing page")
	return listing, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Timeout()
	}
	return false
}
