package cli

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
)

// Client talks to the fabrik API. All responses come back as generic maps;
// fabctl renders the fields it cares about.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func accountPath(userID, guildID, suffix string) string {
	p := "/v1/accounts/" + url.PathEscape(userID) + suffix
	if guildID != "" {
		p += "?guild=" + url.QueryEscape(guildID)
	}
	return p
}

func (c *Client) Ensure(ctx context.Context, userID, guildID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(userID, guildID, "/ensure"), nil, &out, "")
	return out, err
}

func (c *Client) Account(ctx context.Context, userID, guildID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, accountPath(userID, guildID, "/"), nil, &out, "")
	return out, err
}

func (c *Client) Work(ctx context.Context, userID, guildID, actionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(userID, guildID, "/work"), nil, &out, actionID)
	return out, err
}

func (c *Client) Daily(ctx context.Context, userID, guildID, actionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(userID, guildID, "/daily"), nil, &out, actionID)
	return out, err
}

func (c *Client) Deposit(ctx context.Context, userID, guildID string, amount int64, actionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(userID, guildID, "/deposit"), map[string]any{
		"amount": amount,
	}, &out, actionID)
	return out, err
}

func (c *Client) Withdraw(ctx context.Context, userID, guildID string, amount int64, actionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(userID, guildID, "/withdraw"), map[string]any{
		"amount": amount,
	}, &out, actionID)
	return out, err
}

func (c *Client) Transfer(ctx context.Context, amount int64, from, to, guildID, actionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/transfers", map[string]any{
		"amount": amount,
		"from":   from,
		"to":     to,
		"guild":  guildID,
	}, &out, actionID)
	return out, err
}

func (c *Client) Fabric(ctx context.Context, userID, guildID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, accountPath(userID, guildID, "/fabric"), nil, &out, "")
	return out, err
}

func (c *Client) FabricAction(ctx context.Context, userID, guildID, action, actionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(userID, guildID, "/fabric/"+action), nil, &out, actionID)
	return out, err
}

func (c *Client) SellFabric(ctx context.Context, userID, guildID string, percentage int64, actionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(userID, guildID, "/fabric/sell"), map[string]any{
		"percentage": percentage,
	}, &out, actionID)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, guildID string, limit int, cached bool) (map[string]any, error) {
	q := url.Values{}
	if guildID != "" {
		q.Set("guild", guildID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cached {
		q.Set("cached", "1")
	}
	path := "/v1/leaderboard"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out, err
}

func (c *Client) StoreItems(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/store/items", nil, &out, "")
	return out, err
}

func (c *Client) Buy(ctx context.Context, userID, guildID, itemID, actionID string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, accountPath(userID, guildID, "/store/buy"), map[string]any{
		"item_id": itemID,
	}, &out, actionID)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, actionID string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actionID != "" {
		req.Header.Set("Action-Id", actionID)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
