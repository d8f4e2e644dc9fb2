// Package partner posts new website leads to the partner's lead-email endpoint.
package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sales_leads_backend/platform/config"
)

const maxErrorBody = 2048

// Lead is the snake_case payload the partner endpoint expects.
type Lead struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	AssignedTo        int64   `json:"assigned_to"`
	MobileNumber      string  `json:"mobile_number"`
	Email             string  `json:"email"`
	City              string  `json:"city"`
	WebsiteType       int64   `json:"website_type"`
	IndustryType      int64   `json:"industry_type"`
	ContactPreference int64   `json:"contact_preference"`
	PreferredDate     string  `json:"preferred_date"`
	PreferredTimeSlot string  `json:"preferred_time_slot"`
	LeadSource        int64   `json:"lead_source"`
	CheckboxIDs       []int64 `json:"checkbox_ids"`
	Requirements      string  `json:"requirements"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// Client posts leads with a bounded timeout. A zero Client (no URL) is disabled.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(cfg config.PartnerConfig) *Client {
	return &Client{
		url:    cfg.GetPartnerLeadURL(),
		client: &http.Client{Timeout: cfg.GetPartnerTimeout()},
	}
}

// NewClientWithHTTP is NewClient with a caller-supplied transport.
func NewClientWithHTTP(url string, timeout time.Duration, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	hc.Timeout = timeout
	return &Client{url: url, client: hc}
}

func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// PostLead sends one lead. Non-2xx responses are errors carrying the response body.
func (c *Client) PostLead(ctx context.Context, lead Lead) error {
	if !c.Enabled() {
		return nil
	}
	if lead.CheckboxIDs == nil {
		lead.CheckboxIDs = []int64{}
	}

	body, err := json.Marshal(lead)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("partner lead post failed: %s: %s", resp.Status, string(data))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
