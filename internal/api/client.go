// Package api is the authenticated gateway to the mission backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nhle/ecomission/internal/credential"
)

const refreshPath = "/auth/refresh"

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL            string
	Timeout            time.Duration
	RequestsPerSecond  float64
	Burst              int
	KakaoClientID      string
	KakaoRedirectURI   string
	SocialLoginTimeout time.Duration
	HTTPClient         *http.Client
	Logger             zerolog.Logger
}

// Client is a thin JSON HTTP client for the mission backend. It attaches
// the bearer token read fresh from the token store on every call and
// transparently refreshes it once on a 401.
type Client struct {
	baseURL       string
	tokens        credential.TokenStore
	httpClient    *http.Client
	limiter       *rate.Limiter
	socialTimeout time.Duration
	kakao         *oauth2.Config
	refreshes     singleflight.Group
	log           zerolog.Logger
}

// NewClient creates a new backend client.
func NewClient(opts Options, tokens credential.TokenStore) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 20
	}

	socialTimeout := opts.SocialLoginTimeout
	if socialTimeout <= 0 {
		socialTimeout = 10 * time.Second
	}

	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		tokens:        tokens,
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		socialTimeout: socialTimeout,
		kakao: &oauth2.Config{
			ClientID:    opts.KakaoClientID,
			RedirectURL: opts.KakaoRedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://kauth.kakao.com/oauth/authorize",
				TokenURL: "https://kauth.kakao.com/oauth/token",
			},
		},
		log: opts.Logger.With().Str("component", "api").Logger(),
	}
}

// Get performs an authenticated GET and decodes the JSON response into result.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.Request(ctx, http.MethodGet, path, nil, result)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.Request(ctx, http.MethodPost, path, body, result)
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

// Request performs an authenticated call. On a 401 it refreshes the access
// token once and retries; a failed refresh or a second 401 yields
// AuthExpiredError.
func (c *Client) Request(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	status, respBody, err := c.send(ctx, method, path, body, true)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if !c.refreshTokens(ctx) {
			return &AuthExpiredError{}
		}
		status, respBody, err = c.send(ctx, method, path, body, true)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return &AuthExpiredError{}
		}
	}

	return decodeResponse(method, path, status, respBody, result)
}

// send executes one round trip and returns the status and the full body.
// Transport failures come back as NetworkError.
func (c *Client) send(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	withAuth bool,
) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, &NetworkError{Method: method, Path: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		token, err := c.tokens.Access()
		if err != nil {
			return 0, nil, fmt.Errorf("reading access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return 0, nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &NetworkError{Method: method, Path: path, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("request_id", requestID).
		Msg("api request")

	return resp.StatusCode, respBody, nil
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// refreshTokens exchanges the refresh token for a new access token.
// Concurrent callers share one exchange. Storage is only touched on success.
func (c *Client) refreshTokens(ctx context.Context) bool {
	ok, _, _ := c.refreshes.Do("refresh", func() (interface{}, error) {
		refresh, err := c.tokens.Refresh()
		if err != nil || refresh == "" {
			return false, nil
		}

		status, body, err := c.send(ctx, http.MethodPost, refreshPath, map[string]string{"refresh": refresh}, false)
		if err != nil || status < 200 || status >= 300 {
			c.log.Info().Int("status", status).Err(err).Msg("token refresh failed")
			return false, nil
		}

		var rotated refreshResponse
		if err := json.Unmarshal(body, &rotated); err != nil || rotated.Access == "" {
			c.log.Info().Err(err).Msg("token refresh returned no access token")
			return false, nil
		}

		if err := c.tokens.SetTokens(rotated.Access, rotated.Refresh); err != nil {
			c.log.Warn().Err(err).Msg("storing refreshed tokens")
			return false, nil
		}
		return true, nil
	})
	refreshed, _ := ok.(bool)
	return refreshed
}

type errorBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// serverMessage extracts message, then a string detail, from an error body.
func serverMessage(body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	var detail string
	if json.Unmarshal(eb.Detail, &detail) == nil {
		return detail
	}
	return ""
}

func decodeResponse(method, path string, status int, body []byte, result interface{}) error {
	if status < 200 || status >= 300 {
		msg := serverMessage(body)
		if msg == "" {
			msg = fmt.Sprintf("request failed (HTTP %d)", status)
		}
		return &HTTPError{Status: status, Method: method, Path: path, Message: msg}
	}

	// No content to parse (e.g. 204).
	if result == nil || status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}
	return nil
}

// decodeList unmarshals a JSON array response, treating any other shape as
// an empty list.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding list: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
