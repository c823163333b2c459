// Package spond is the client for the Spond scheduling platform: login,
// group/event listing and event create/update.
package spond

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	appLog "fot/internal/log"
	"fot/internal/model"
)

// SubmissionError is a failed remote call. It is deliberately distinct from
// composition errors: the event was built, the platform refused or failed.
type SubmissionError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("spond %s failed (HTTP %d): %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("spond %s failed: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

type Group struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Members   []any      `json:"members"`
	SubGroups []SubGroup `json:"subGroups"`
}

type SubGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Event struct {
	ID             string `json:"id"`
	Heading        string `json:"heading"`
	Description    string `json:"description"`
	StartTimestamp string `json:"startTimestamp"`
	Location       struct {
		Address string `json:"address"`
	} `json:"location"`
	Responses struct {
		AcceptedIDs []string `json:"acceptedIds"`
		DeclinedIDs []string `json:"declinedIds"`
	} `json:"responses"`
}

// Client talks to the Spond API. It logs in lazily on first use and is safe
// for concurrent use.
type Client struct {
	baseURL  string
	username string
	password string
	base     *http.Client

	mu     sync.Mutex
	authed *http.Client
}

func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		base:     &http.Client{Timeout: timeout},
	}
}

// Login exchanges the credentials for a login token and prepares a
// bearer-authenticated HTTP client.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

func (c *Client) loginLocked(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{"email": c.username, "password": c.password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"login", bytes.NewReader(body))
	if err != nil {
		return &SubmissionError{Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		LoginToken string `json:"loginToken"`
	}
	if err := do(c.base, req, "login", &out); err != nil {
		return err
	}
	if out.LoginToken == "" {
		return &SubmissionError{Op: "login", Err: errors.New("no login token in response")}
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: out.LoginToken, TokenType: "Bearer"})
	authed := oauth2.NewClient(context.WithValue(context.Background(), oauth2.HTTPClient, c.base), src)
	authed.Timeout = c.base.Timeout
	c.authed = authed

	appLog.Debug("spond login ok", "user", c.username)
	return nil
}

func (c *Client) client(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authed == nil {
		if err := c.loginLocked(ctx); err != nil {
			return nil, err
		}
	}
	return c.authed, nil
}

// Create submits a composed event and returns the platform-assigned id.
func (c *Client) Create(ctx context.Context, spec model.EventSpec) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.send(ctx, "create", http.MethodPost, "sponds/", NewCreateRequest(spec), &out); err != nil {
		return "", err
	}
	appLog.Info("spond event created", "id", out.ID, "heading", spec.Heading)
	return out.ID, nil
}

// Update fetches the stored event, overlays fields and posts it back.
func (c *Client) Update(ctx context.Context, eventID string, fields UpdateFields) (map[string]any, error) {
	if eventID == "" {
		return nil, &SubmissionError{Op: "update", Err: errors.New("event id is empty")}
	}
	path := "sponds/" + url.PathEscape(eventID)

	var current map[string]any
	if err := c.send(ctx, "fetch", http.MethodGet, path, nil, &current); err != nil {
		return nil, err
	}

	if current == nil {
		current = map[string]any{}
	}
	updates := fields.Map()
	for k, v := range updates {
		current[k] = v
	}

	if err := c.send(ctx, "update", http.MethodPost, path, current, nil); err != nil {
		return nil, err
	}
	appLog.Info("spond event updated", "id", eventID, "fields", len(updates))
	return updates, nil
}

func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	var out []Group
	if err := c.send(ctx, "groups", http.MethodGet, "groups/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Events lists events, optionally filtered by group and a minimum start.
func (c *Client) Events(ctx context.Context, groupID string, minStart time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("max", strconv.Itoa(limit))
	q.Set("order", "asc")
	q.Set("scheduled", "true")
	if groupID != "" {
		q.Set("groupId", groupID)
	}
	if !minStart.IsZero() {
		q.Set("minStartTimestamp", FormatTimestamp(minStart))
	}

	var out []Event
	if err := c.send(ctx, "events", http.MethodGet, "sponds/?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, op, method, path string, in, out any) error {
	hc, err := c.client(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &SubmissionError{Op: op, Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return do(hc, req, op, out)
}

func do(hc *http.Client, req *http.Request, op string, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return &SubmissionError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &SubmissionError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b)), Err: errors.New(resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &SubmissionError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
