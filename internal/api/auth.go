package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoTokens is returned when a login response carries no usable tokens.
var ErrNoTokens = errors.New("login response carries no tokens")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type kakaoCallbackRequest struct {
	Code string `json:"code"`
}

// tokenPair accepts every token field spelling the backend has used.
type tokenPair struct {
	Access       string `json:"access"`
	AccessToken  string `json:"access_token"`
	Token        string `json:"token"`
	AccessCamel  string `json:"accessToken"`
	Refresh      string `json:"refresh"`
	RefreshToken string `json:"refresh_token"`
	RefreshCamel string `json:"refreshToken"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p tokenPair) access() string {
	return firstNonEmpty(p.Access, p.AccessToken, p.Token, p.AccessCamel)
}

func (p tokenPair) refresh() string {
	return firstNonEmpty(p.Refresh, p.RefreshToken, p.RefreshCamel)
}

// Login authenticates with email and password and stores the issued tokens.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.exchange(ctx, "/auth/login", loginRequest{Email: email, Password: password})
}

// KakaoAuthURL returns the Kakao authorize URL the user must visit. The
// backend exchanges the resulting code in KakaoLogin.
func (c *Client) KakaoAuthURL(state string) string {
	return c.kakao.AuthCodeURL(state)
}

// KakaoLogin exchanges a Kakao authorization code for backend tokens. The
// exchange is bounded by the configured social login timeout and surfaces
// a NetworkError when it elapses.
func (c *Client) KakaoLogin(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, c.socialTimeout)
	defer cancel()
	return c.exchange(ctx, "/auth/kakao/callback", kakaoCallbackRequest{Code: code})
}

// exchange posts credentials to an unauthenticated login endpoint and
// stores the returned token pair.
func (c *Client) exchange(ctx context.Context, path string, body interface{}) error {
	status, respBody, err := c.send(ctx, http.MethodPost, path, body, false)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		msg := serverMessage(respBody)
		if msg == "" {
			msg = loginFailedMessage
		}
		return &HTTPError{Status: status, Method: http.MethodPost, Path: path, Message: msg}
	}

	var pair tokenPair
	if err := json.Unmarshal(respBody, &pair); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}
	if pair.access() == "" || pair.refresh() == "" {
		return ErrNoTokens
	}

	if err := c.tokens.SetTokens(pair.access(), pair.refresh()); err != nil {
		return fmt.Errorf("storing tokens: %w", err)
	}
	c.log.Info().Str("path", path).Msg("signed in")
	return nil
}

// Logout tells the backend to revoke the refresh token, then clears local
// tokens regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	if refresh, err := c.tokens.Refresh(); err == nil && refresh != "" {
		if err := c.Post(ctx, "/auth/logout", map[string]string{"refresh": refresh}, nil); err != nil {
			c.log.Debug().Err(err).Msg("server logout failed")
		}
	}
	if err := c.tokens.Clear(); err != nil {
		return fmt.Errorf("clearing tokens: %w", err)
	}
	return nil
}
