// Package api implements the keeper reports API: the lightweight
// alternative to forum post editing. Deliveries are independent per
// forum; a circuit breaker makes the run fail fast against a dead
// endpoint instead of waiting out the timeout once per forum.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sudoom/webtlo/models"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

// SendResult is the API's acknowledgement of one forum delivery.
type SendResult struct {
	ForumID       int64 `json:"forum_id"`
	TopicsCount   int   `json:"topics_count"`
	ReportedCount int   `json:"reported_count"`
}

// Client talks to the keeper reports API.
type Client struct {
	baseURL string
	apiKey  string
	userID  int64
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[SendResult]
}

// NewClient builds an API client from configuration.
func NewClient(cfg models.APIConfig, user models.UserConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 40 * time.Second
	}

	// The breaker opens after a short streak of consecutive failures.
	// Report deliveries are retried on the next run anyway, so there is
	// no point hammering an endpoint that just refused several forums.
	breaker := gobreaker.NewCircuitBreaker[SendResult](gobreaker.Settings{
		Name:    "keeper-reports-api",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  user.APIKey,
		userID:  user.ID,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

// CheckAccess probes the API once before the run. A failure disables
// API mode for the whole run.
func (c *Client) CheckAccess(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reports API is not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reports API answered %s", resp.Status)
	}
	return nil
}

type sendTopicsRequest struct {
	KeeperID int64   `json:"keeper_id"`
	Topics   []int64 `json:"topics"`
}

// SendForumTopics replaces the keeper's reported topic set for one
// forum. The call is an idempotent replace, safe to repeat.
func (c *Client) SendForumTopics(ctx context.Context, forumID int64, topics []models.KeptTopic) (SendResult, error) {
	return c.breaker.Execute(func() (SendResult, error) {
		ids := make([]int64, 0, len(topics))
		for _, t := range topics {
			ids = append(ids, t.ID)
		}

		var result SendResult
		err := c.postJSON(ctx, fmt.Sprintf("/keepers/reports/%d", forumID),
			sendTopicsRequest{KeeperID: c.userID, Topics: ids}, &result)
		if err != nil {
			return SendResult{}, err
		}
		result.ForumID = forumID
		result.TopicsCount = len(ids)
		return result, nil
	})
}

type setStatusRequest struct {
	KeeperID    int64   `json:"keeper_id"`
	ForumIDs    []int64 `json:"forum_ids"`
	UnsetOthers bool    `json:"unset_others"`
}

// SetForumsStatus marks the given forums as reported in this run,
// optionally clearing the mark everywhere else. Idempotent replace.
func (c *Client) SetForumsStatus(ctx context.Context, forumIDs []int64, unsetOthers bool) error {
	return c.postJSON(ctx, "/keepers/status",
		setStatusRequest{KeeperID: c.userID, ForumIDs: forumIDs, UnsetOthers: unsetOthers}, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("reports API answered %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}
