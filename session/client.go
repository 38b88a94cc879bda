package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Role mirrors the account roles exposed by the API.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// User is the wire projection of the authenticated account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
	Avatar   string `json:"avatar,omitempty"`
	Verified bool   `json:"verified"`
}

// ProfilePatch carries profile fields for PUT /users/me. Nil pointers are
// omitted from the request.
type ProfilePatch struct {
	Name   *string `json:"name,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	City   *string `json:"city,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

// RegisterParams is the payload for POST /auth/register.
type RegisterParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	City     string `json:"city,omitempty"`
}

// CatalogListing is a catalog entry as served by GET /profiles.
type CatalogListing struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Age      int      `json:"age"`
	City     string   `json:"city"`
	Verified bool     `json:"verified"`
	Elite    bool     `json:"elite"`
	Price    float64  `json:"price"`
	Photos   []string `json:"photos"`
}

// ConversationSummary is an entry of GET /messages/conversations.
type ConversationSummary struct {
	PartnerID string `json:"partnerId"`
	LastText  string `json:"lastText"`
	Unread    int    `json:"unread"`
}

// ErrorKind classifies API failures for the caller.
type ErrorKind int

const (
	// KindUnavailable covers connectivity and server-side failures; existing
	// local state must survive these.
	KindUnavailable ErrorKind = iota
	// KindUnauthorized is a 401: the session is no longer valid.
	KindUnauthorized
	// KindInvalid covers rejected input (4xx other than 401).
	KindInvalid
)

// APIError is the typed result of a failed API call. The envelope message is
// user-facing.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "request failed with status " + strconv.Itoa(e.Status)
}

// IsUnauthorized reports whether err is a 401 API failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

// envelope is the shared response shape {success, message, data}. It is
// decoded exactly once, at this boundary.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type authData struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds an API client. baseURL includes any server path prefix,
// e.g. "http://localhost:3001/api".
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Login exchanges credentials for a token and user record.
func (c *Client) Login(ctx context.Context, email, password string) (*User, string, error) {
	body := map[string]string{"email": email, "password": password}
	var data authData
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &data); err != nil {
		return nil, "", err
	}
	if data.User == nil || data.Token == "" {
		return nil, "", &APIError{Kind: KindUnavailable, Message: "malformed login response"}
	}
	return data.User, data.Token, nil
}

// Register creates an account; the response doubles as a login.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*User, string, error) {
	var data authData
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", params, &data); err != nil {
		return nil, "", err
	}
	if data.User == nil || data.Token == "" {
		return nil, "", &APIError{Kind: KindUnavailable, Message: "malformed register response"}
	}
	return data.User, data.Token, nil
}

// Logout invalidates the token server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

// Me fetches the account behind the token.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var data authData
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &data); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, &APIError{Kind: KindUnavailable, Message: "malformed user response"}
	}
	return data.User, nil
}

// UpdateProfile applies a profile patch; the response replaces the cached
// user.
func (c *Client) UpdateProfile(ctx context.Context, token string, patch ProfilePatch) (*User, error) {
	var data authData
	if err := c.do(ctx, http.MethodPut, "/users/me", token, patch, &data); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, &APIError{Kind: KindUnavailable, Message: "malformed user response"}
	}
	return data.User, nil
}

// Listings fetches the public catalog, optionally filtered by city or search.
func (c *Client) Listings(ctx context.Context, city, search string) ([]CatalogListing, error) {
	path := "/profiles"
	q := url.Values{}
	if city != "" {
		q.Set("city", city)
	}
	if search != "" {
		q.Set("search", search)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var data struct {
		Listings []CatalogListing `json:"listings"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &data); err != nil {
		return nil, err
	}
	return data.Listings, nil
}

// Favorites fetches the caller's saved listing IDs.
func (c *Client) Favorites(ctx context.Context, token string) ([]string, error) {
	var data struct {
		ListingIDs []string `json:"listingIds"`
	}
	if err := c.do(ctx, http.MethodGet, "/favorites", token, nil, &data); err != nil {
		return nil, err
	}
	return data.ListingIDs, nil
}

// Conversations fetches the caller's conversation list.
func (c *Client) Conversations(ctx context.Context, token string) ([]ConversationSummary, error) {
	var data struct {
		Conversations []ConversationSummary `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/conversations", token, nil, &data); err != nil {
		return nil, err
	}
	return data.Conversations, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("session: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("session: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: KindUnavailable, Message: "connection error"}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Kind: KindUnavailable, Status: resp.StatusCode, Message: "malformed response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		kind := KindUnavailable
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			kind = KindUnauthorized
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			kind = KindInvalid
		}
		return &APIError{Kind: kind, Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &APIError{Kind: KindUnavailable, Status: resp.StatusCode, Message: "malformed response data"}
		}
	}

	return nil
}
