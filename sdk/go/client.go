package ekanbansdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal e-kanban HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Card is the API projection of one kanban card.
type Card struct {
	KanbanID      int64   `json:"kanban_id"`
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	ContainerType string  `json:"tipo_contenitore"`
	Quantity      float64 `json:"quantity"`
	StatusCurrent int64   `json:"status_current"`
	StatusName    string  `json:"status_name"`
	StatusColor   string  `json:"status_color"`
	ActorRole     int     `json:"customer_supplier"`
	UpdatedAt     string  `json:"data_aggiornamento"`
	SupplierName  string  `json:"supplier_name"`
	CustomerName  string  `json:"customer_name"`
}

// Transition is one history row of a card.
type Transition struct {
	ID             int64  `json:"id"`
	KanbanID       int64  `json:"kanban_id"`
	PreviousStatus int64  `json:"previous_status"`
	NextStatus     int64  `json:"next_status"`
	ActorRole      int    `json:"actor_role"`
	ActorID        string `json:"actor_id,omitempty"`
	RecordedAt     string `json:"recorded_at"`
}

// Dashboard groups active cards by product name.
type Dashboard struct {
	KanbansByProduct map[string][]Card `json:"kanbans_by_product"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Advance moves a card to its next status as the given role (1=supplier, 2=customer).
func (c *Client) Advance(ctx context.Context, kanbanID int64, role int) (Card, error) {
	body := map[string]any{"customer_supplier": role}
	var resp Card
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/kanbans/%d/advance", kanbanID), body, &resp)
	return resp, err
}

// Retire pulls a card out of circulation.
func (c *Client) Retire(ctx context.Context, kanbanID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("v0/kanbans/%d/retire", kanbanID), nil, nil)
}

// History returns a card's transitions oldest first.
func (c *Client) History(ctx context.Context, kanbanID int64) ([]Transition, error) {
	var resp []Transition
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/kanbans/%d/history", kanbanID), nil, &resp)
	return resp, err
}

// CustomerDashboard returns the buying-side board for an account.
func (c *Client) CustomerDashboard(ctx context.Context, accountID int64) (Dashboard, error) {
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/dashboards/customer/%d", accountID), nil, &resp)
	return resp, err
}

// SupplierDashboard returns the selling-side board for an account.
func (c *Client) SupplierDashboard(ctx context.Context, accountID int64) (Dashboard, error) {
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/dashboards/supplier/%d", accountID), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
