// Package bsp is the client for the WhatsApp business solution provider.
// The rest of the application depends only on the send/fetch capability,
// not on the provider's wire format.
package bsp

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

	"pedidos_backend/platform/config"
	"pedidos_backend/platform/logger"

	"golang.org/x/time/rate"
)

// SendStatus is the outcome of a send call as reported by the provider.
type SendStatus string

const (
	StatusSent     SendStatus = "sent"
	StatusRejected SendStatus = "rejected"
	StatusFailed   SendStatus = "failed"
)

// Normalized rejection reason codes.
const (
	// ReasonReengagementRequired means the recipient has not messaged within
	// the provider's rolling engagement window, so template sends are
	// rejected until a plain message re-opens the window.
	ReasonReengagementRequired = "reengagement_required"
	ReasonInvalidRecipient     = "invalid_recipient"
	ReasonAccountSuspended     = "account_suspended"
)

// Result is the normalized outcome of a single send call.
type Result struct {
	Status     SendStatus
	ReasonCode string
	MessageID  string
}

// PolicyRejected reports whether the rejection is the engagement-window
// policy error that the fallback path is designed for.
func (r Result) PolicyRejected() bool {
	return r.Status == StatusRejected && r.ReasonCode == ReasonReengagementRequired
}

// WireMessage is one inbound message as returned by the provider's
// message-list endpoint, used by the polling fallback.
type WireMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Client talks to the BSP's HTTP API. A nil client is a no-op stand-in for
// environments without a configured provider.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a BSP client, or nil when no base URL is configured.
func NewClient(cfg config.BSPConfig, log *logger.Logger) *Client {
	if !cfg.IsBSPEnabled() {
		return nil
	}

	perSecond := cfg.GetBSPSendRatePerSecond()
	if perSecond <= 0 {
		perSecond = 5
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetBSPBaseURL(), "/"),
		apiKey:  cfg.GetBSPAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		log:     log,
	}
}

type templateRequest struct {
	To       string            `json:"to"`
	Type     string            `json:"type"`
	Template string            `json:"template,omitempty"`
	Vars     map[string]string `json:"variables,omitempty"`
	Body     string            `json:"body,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendTemplate sends an approved message template.
func (c *Client) SendTemplate(ctx context.Context, phoneNumber, template string, vars map[string]string) (Result, error) {
	return c.send(ctx, templateRequest{
		To:       phoneNumber,
		Type:     "template",
		Template: template,
		Vars:     vars,
	})
}

// SendText sends a plain-text message. Not subject to the engagement-window
// policy; a reply to it re-opens the window for templates.
func (c *Client) SendText(ctx context.Context, phoneNumber, body string) (Result, error) {
	return c.send(ctx, templateRequest{
		To:   phoneNumber,
		Type: "text",
		Body: body,
	})
}

func (c *Client) send(ctx context.Context, payload templateRequest) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("bsp client not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal bsp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("bsp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read bsp response: %w", err)
	}

	var parsed sendResponse
	if err := json.Unmarshal(data, &parsed); err != nil && resp.StatusCode < http.StatusInternalServerError {
		return Result{}, fmt.Errorf("decode bsp response (%d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode < http.StatusBadRequest:
		c.log.Info("bsp message sent", "to", payload.To, "type", payload.Type)
		return Result{Status: StatusSent, MessageID: parsed.MessageID}, nil
	case resp.StatusCode < http.StatusInternalServerError:
		reason := normalizeReason(parsed.Error.Code)
		c.log.Warn("bsp message rejected", "to", payload.To, "type", payload.Type, "reason", reason)
		return Result{Status: StatusRejected, ReasonCode: reason}, nil
	default:
		return Result{}, fmt.Errorf("bsp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
}

// FetchMessages returns inbound messages received since the given time.
// Used by the polling fallback delivery path.
func (c *Client) FetchMessages(ctx context.Context, since time.Time) ([]WireMessage, error) {
	if c == nil {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/v1/messages?direction=inbound&since=%s",
		c.baseURL, url.QueryEscape(since.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bsp poll failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bsp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Messages []WireMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode bsp poll response: %w", err)
	}
	return parsed.Messages, nil
}

// normalizeReason maps provider error codes onto the reason codes the
// notifier's state machine branches on.
func normalizeReason(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "131047", "re_engagement", "re_engagement_required", "outside_window", "engagement_window_expired":
		return ReasonReengagementRequired
	case "131026", "invalid_recipient", "recipient_not_found", "invalid_phone":
		return ReasonInvalidRecipient
	case "133000", "account_suspended", "account_locked":
		return ReasonAccountSuspended
	default:
		if code == "" {
			return "unknown"
		}
		return code
	}
}
