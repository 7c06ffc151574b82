package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	appErrors "github.com/mailops/console-backend/internal/errors"
	"github.com/mailops/console-backend/internal/model"
)

// CommandAPI is the campaign command surface of the external dispatcher.
// The orchestrator only issues commands through it; it never mutates
// dispatcher-owned state directly.
type CommandAPI interface {
	CreateAndStart(ctx context.Context, cfg model.CampaignConfig, roster []model.Recipient) (*model.CampaignState, error)
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.CampaignState, error)
}

// Client talks JSON over HTTP to the dispatch endpoint named in the
// campaign configuration.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    http.DefaultClient,
	}
}

type startRequest struct {
	Config model.CampaignConfig `json:"config"`
	Roster []model.Recipient    `json:"roster"`
}

func (c *Client) CreateAndStart(ctx context.Context, cfg model.CampaignConfig, roster []model.Recipient) (*model.CampaignState, error) {
	body, err := json.Marshal(startRequest{Config: cfg, Roster: roster})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/campaigns", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, appErrors.NewCommandRejected("start", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, appErrors.NewCommandRejected("start", readError(resp))
	}

	var state model.CampaignState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, appErrors.NewCommandRejected("start", "bad dispatcher response: "+err.Error())
	}
	return &state, nil
}

func (c *Client) Pause(ctx context.Context, id string) error {
	return c.command(ctx, "pause", id)
}

func (c *Client) Resume(ctx context.Context, id string) error {
	return c.command(ctx, "resume", id)
}

func (c *Client) command(ctx context.Context, verb, id string) error {
	url := fmt.Sprintf("%s/campaigns/%s/%s", c.BaseURL, id, verb)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return appErrors.NewCommandRejected(verb, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return appErrors.NewCommandRejected(verb, readError(resp))
	}
	return nil
}

func (c *Client) Get(ctx context.Context, id string) (*model.CampaignState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/campaigns/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dispatcher get: %s", readError(resp))
	}

	var state model.CampaignState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

func readError(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(b))
	if msg == "" {
		return resp.Status
	}
	return msg
}

var _ CommandAPI = (*Client)(nil)
