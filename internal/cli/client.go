package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wealthlings/internal/game"
)

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

// APIError is a structured non-2xx reply from the game server. Anything
// else returned by Client is a transport failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

type HealResult struct {
	Creature  game.Creature  `json:"creature"`
	Inventory game.Inventory `json:"inventory"`
}

type PurchaseResult struct {
	Inventory game.Inventory `json:"inventory"`
	Coins     int64          `json:"coins"`
}

type CloseResult struct {
	Session game.View `json:"session"`
	Saved   bool      `json:"saved"`
}

func (c *Client) StartSession(ctx context.Context, id string, resume bool) (game.View, error) {
	var out game.View
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/sessions", map[string]any{
		"id":     id,
		"resume": resume,
	}, &out, "")
	return out, err
}

func (c *Client) Session(ctx context.Context, id string) (game.View, error) {
	var out game.View
	err := c.jsonRequest(ctx, http.MethodGet, sessionPath(id, ""), nil, &out, "")
	return out, err
}

func (c *Client) EndSession(ctx context.Context, id string) (CloseResult, error) {
	var out CloseResult
	err := c.jsonRequest(ctx, http.MethodDelete, sessionPath(id, ""), nil, &out, "")
	return out, err
}

func (c *Client) Heal(ctx context.Context, id, creatureID, idem string) (HealResult, error) {
	var out HealResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPath(id, "/heal"), map[string]any{
		"creature_id": creatureID,
	}, &out, idem)
	return out, err
}

func (c *Client) Feed(ctx context.Context, id, creatureID, idem string) (HealResult, error) {
	var out HealResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPath(id, "/feed"), map[string]any{
		"creature_id": creatureID,
	}, &out, idem)
	return out, err
}

func (c *Client) Purchase(ctx context.Context, id, kind, idem string) (PurchaseResult, error) {
	var out PurchaseResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPath(id, "/purchase"), map[string]any{
		"kind": kind,
	}, &out, idem)
	return out, err
}

func (c *Client) Sell(ctx context.Context, id, creatureID, idem string) (game.SellResult, error) {
	var out game.SellResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPath(id, "/creatures/"+url.PathEscape(creatureID)+"/sell"), nil, &out, idem)
	return out, err
}

// Scan uploads image (may be nil) as the multipart "image" field.
func (c *Client) Scan(ctx context.Context, id, filename string, image io.Reader, idem string) (game.Creature, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if image != nil {
		part, err := mw.CreateFormFile("image", filename)
		if err != nil {
			return game.Creature{}, err
		}
		if _, err := io.Copy(part, image); err != nil {
			return game.Creature{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return game.Creature{}, err
	}
	var out struct {
		Creature game.Creature `json:"creature"`
	}
	err := c.request(ctx, http.MethodPost, sessionPath(id, "/scan"), mw.FormDataContentType(), &buf, &out, idem)
	return out.Creature, err
}

func (c *Client) StoreItems(ctx context.Context) ([]game.StoreItem, error) {
	var out struct {
		Items []game.StoreItem `json:"items"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/store/items", nil, &out, "")
	return out.Items, err
}

func (c *Client) Do(ctx context.Context, method, path string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, body, &out, idem)
	return out, err
}

func sessionPath(id, suffix string) string {
	return "/v1/sessions/" + url.PathEscape(id) + suffix
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.request(ctx, method, path, contentType, body, out, idem)
}

func (c *Client) request(ctx context.Context, method, path, contentType string, body io.Reader, out any, idem string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
