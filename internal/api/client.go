package api

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

	"github.com/pobal-network/pobal/internal/app/ledger"
	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/security"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client calls a running pobal server. Requests are signed with the
// keypair when one is set; otherwise the caller header is sent bare.
type Client struct {
	base   string
	http   *http.Client
	kp     *security.Keypair
	caller domain.Principal
}

// NewClient creates a client for the server at base, e.g. http://127.0.0.1:9944.
func NewClient(base string, kp *security.Keypair, caller domain.Principal) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		kp:     kp,
		caller: caller,
	}
}

// Do sends one request and decodes a JSON response into out (if non-nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.kp != nil && (c.caller == "" || c.caller == c.kp.Principal()) {
		security.SignRequest(req, c.kp, body, time.Now())
	} else if c.caller != "" {
		req.Header.Set(security.HeaderPrincipal, string(c.caller))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// ─── Coordinator Operations ─────────────────────────────────────────────────

func (c *Client) Register(ctx context.Context) error {
	return c.Do(ctx, "POST", "/v1/members", nil, nil)
}

func (c *Client) Deregister(ctx context.Context) error {
	return c.Do(ctx, "DELETE", "/v1/members/self", nil, nil)
}

func (c *Client) ClearMembers(ctx context.Context) error {
	return c.Do(ctx, "DELETE", "/v1/members", nil, nil)
}

func (c *Client) AddTask(ctx context.Context, name string) error {
	return c.Do(ctx, "POST", "/v1/tasks", addTaskRequest{Name: name}, nil)
}

func (c *Client) RemoveTask(ctx context.Context, name string) error {
	return c.Do(ctx, "DELETE", "/v1/tasks/"+url.PathEscape(name), nil, nil)
}

func (c *Client) ClearTasks(ctx context.Context) error {
	return c.Do(ctx, "DELETE", "/v1/tasks", nil, nil)
}

func (c *Client) FundTask(ctx context.Context, name string, amount domain.Balance) error {
	return c.Do(ctx, "POST", "/v1/tasks/"+url.PathEscape(name)+"/fund", fundTaskRequest{Amount: amount}, nil)
}

func (c *Client) SetSelectionInterval(ctx context.Context, interval domain.BlockHeight) error {
	return c.Do(ctx, "PUT", "/v1/interval", setIntervalRequest{Interval: interval}, nil)
}

func (c *Client) StartNewEra(ctx context.Context) error {
	return c.Do(ctx, "POST", "/v1/era", nil, nil)
}

func (c *Client) SubmitProof(ctx context.Context, proof domain.Hash) error {
	return c.Do(ctx, "POST", "/v1/proof", submitProofRequest{Proof: proof}, nil)
}

func (c *Client) CompleteTask(ctx context.Context) (*ledger.Payout, error) {
	var resp struct {
		Payout *ledger.Payout `json:"payout"`
	}
	if err := c.Do(ctx, "POST", "/v1/complete", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Payout, nil
}

func (c *Client) Faucet(ctx context.Context, amount domain.Balance) error {
	return c.Do(ctx, "POST", "/v1/faucet", faucetRequest{Amount: amount}, nil)
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// StatusView is the decoded /v1/status response.
type StatusView = statusResponse

func (c *Client) Status(ctx context.Context) (*StatusView, error) {
	var s StatusView
	if err := c.Do(ctx, "GET", "/v1/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Events(ctx context.Context, after int64, kind domain.EventKind, limit int) ([]domain.Event, error) {
	path := fmt.Sprintf("/v1/events?after=%d&limit=%d", after, limit)
	if kind != "" {
		path += "&kind=" + url.QueryEscape(string(kind))
	}
	var resp struct {
		Events []domain.Event `json:"events"`
	}
	if err := c.Do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *Client) Balance(ctx context.Context, p domain.Principal) (domain.Balance, error) {
	var resp struct {
		Balance domain.Balance `json:"balance"`
	}
	if err := c.Do(ctx, "GET", "/v1/wallet/"+url.PathEscape(string(p)), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}
