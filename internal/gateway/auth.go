package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
)

// RefreshCookie is the cookie the server sets at login and reads on refresh.
const RefreshCookie = "Auth-refresh"

type tokenResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"accessToken"`
}

// Login exchanges credentials for tokens and stores them.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return errors.New("login: email and password are required")
	}
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := c.authenticate(ctx, c.endpoint("auth", "login"), body); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Register creates an account and signs in with it.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	if name == "" || email == "" || password == "" {
		return errors.New("register: name, email and password are required")
	}
	body, err := json.Marshal(map[string]string{"name": name, "email": email, "password": password})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if err := c.authenticate(ctx, c.endpoint("auth", "registration"), body); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// authenticate posts credentials to u and stores the returned access token
// and refresh cookie.
func (c *Client) authenticate(ctx context.Context, u string, body []byte) error {
	resp, err := c.do(ctx, http.MethodPost, u, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	access, err := decodeToken(resp.Body)
	if err != nil {
		return err
	}
	t := Tokens{Access: access}
	for _, ck := range resp.Cookies() {
		if ck.Name == RefreshCookie {
			t.Refresh = ck.Value
		}
	}
	return c.tokens.Save(t)
}

// Refresh asks the server for a new access token using the stored refresh
// cookie.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refresh(ctx, "")
}

// refresh renews the access token that was rejected. Callers queue on the
// lock; once one has stored a new token the others reuse it instead of
// asking again.
func (c *Client) refresh(ctx context.Context, rejected string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	before, err := c.tokens.Load()
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if rejected != "" && before.Access != "" && before.Access != rejected {
		return nil
	}
	resp, err := c.send(ctx, http.MethodPost, c.endpoint("auth", "refresh"), []byte("{}"), "application/json", "")
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("refresh: status %d: %w", resp.StatusCode, ErrUnauthorized)
	}
	access, err := decodeToken(resp.Body)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	t := Tokens{Access: access, Refresh: before.Refresh}
	for _, ck := range resp.Cookies() {
		if ck.Name == RefreshCookie && ck.Value != "" {
			t.Refresh = ck.Value
		}
	}
	return c.tokens.Save(t)
}

// Logout clears local tokens and tells the server to drop the refresh
// cookie. Local tokens are cleared even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodPost, c.endpoint("auth", "logout"), []byte("{}"), "application/json", "")
	if err != nil {
		log.Printf("logout: %v", err)
	} else {
		drain(resp)
	}
	if err := c.tokens.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Authenticated reports whether an access token is stored.
func (c *Client) Authenticated() bool {
	t, err := c.tokens.Load()
	return err == nil && t.Access != ""
}

func decodeToken(r io.Reader) (string, error) {
	var tr tokenResponse
	if err := json.NewDecoder(r).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("server returned an empty access token")
	}
	return tr.AccessToken, nil
}
