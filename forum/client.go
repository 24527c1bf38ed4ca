// Package forum implements the forum posting capability: creating and
// editing posts in keeping-list topics and searching the account's own
// posts. Responses are the forum's HTML pages; the few values the
// engine needs (post and topic ids) are extracted with anchored
// regexps.
package forum

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sudoom/webtlo/models"

	"golang.org/x/time/rate"
)

// MessageMode selects between creating a reply and editing an existing
// post.
type MessageMode string

const (
	ModeReply MessageMode = "reply"
	ModeEdit  MessageMode = "editpost"
)

// Client talks to one forum mirror. All calls pass through the injected
// limiter, which provides the courtesy pacing between consecutive
// remote writes.
type Client struct {
	baseURL string
	user    models.UserConfig
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a forum client for the configured mirror. A nil
// limiter disables pacing (tests).
func NewClient(cfg models.ForumConfig, user models.UserConfig, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		user:    user,
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		limiter: limiter,
	}
}

// CheckAccess verifies the forum answers at all before any mutation is
// attempted.
func (c *Client) CheckAccess(ctx context.Context) error {
	body, err := c.get(ctx, "/index.php", nil)
	if err != nil {
		return fmt.Errorf("forum is not available: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("forum returned an empty page")
	}
	return nil
}

// postedIDRe matches the post id the forum reports back after a
// successful reply or edit (redirect target of the posting form).
var postedIDRe = regexp.MustCompile(`viewtopic\.php\?p=(\d+)`)

// SendMessage creates or edits one post and returns the post id the
// forum acknowledged. A zero id with a nil error means the forum
// accepted the request but exposed no post, which callers treat as the
// post having been archived.
func (c *Client) SendMessage(ctx context.Context, mode MessageMode, body string, topicID, postID int64, title string) (int64, error) {
	form := url.Values{
		"mode":        {string(mode)},
		"t":           {strconv.FormatInt(topicID, 10)},
		"message":     {body},
		"submit_mode": {"submit"},
	}
	if postID != 0 {
		form.Set("p", strconv.FormatInt(postID, 10))
	}
	if title != "" {
		form.Set("subject", title)
	}

	page, err := c.post(ctx, "/posting.php", form)
	if err != nil {
		return 0, fmt.Errorf("failed to send message to topic %d: %w", topicID, err)
	}

	m := postedIDRe.FindStringSubmatch(page)
	if m == nil {
		return 0, nil
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

// SearchPostID finds the id of a post inside the given topic. With
// selfOnly set, only posts of the configured account match. Zero means
// no post was found.
func (c *Client) SearchPostID(ctx context.Context, topicID int64, selfOnly bool) (int64, error) {
	query := url.Values{"t": {strconv.FormatInt(topicID, 10)}}
	if selfOnly {
		query.Set("uid", strconv.FormatInt(c.user.ID, 10))
	}
	page, err := c.get(ctx, "/search.php", query)
	if err != nil {
		return 0, fmt.Errorf("failed to search posts in topic %d: %w", topicID, err)
	}

	m := postedIDRe.FindStringSubmatch(page)
	if m == nil {
		return 0, nil
	}
	return strconv.ParseInt(m[1], 10, 64)
}

var topicIDRe = regexp.MustCompile(`viewtopic\.php\?t=(\d+)`)

// SearchTopicIDs lists the ids of topics in the keeper sub-forum that
// hold posts of the given user.
func (c *Client) SearchTopicIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := url.Values{"uid": {strconv.FormatInt(userID, 10)}}
	page, err := c.get(ctx, "/search.php", query)
	if err != nil {
		return nil, fmt.Errorf("failed to search topics of user %d: %w", userID, err)
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, m := range topicIDRe.FindAllStringSubmatch(page, -1) {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// topicPostRe captures post id and author id pairs from a topic page,
// in page order. Index 0 is always the topic's original post.
var topicPostRe = regexp.MustCompile(`id="post_(\d+)"[\s\S]*?profile\.php\?mode=viewprofile&(?:amp;)?u=(\d+)`)

// ScanTopic lists the posts of one topic with their author ids, in page
// order.
func (c *Client) ScanTopic(ctx context.Context, topicID int64) ([]models.TopicPost, error) {
	query := url.Values{"t": {strconv.FormatInt(topicID, 10)}}
	page, err := c.get(ctx, "/viewtopic.php", query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan topic %d: %w", topicID, err)
	}

	var posts []models.TopicPost
	for _, m := range topicPostRe.FindAllStringSubmatch(page, -1) {
		postID, err1 := strconv.ParseInt(m[1], 10, 64)
		userID, err2 := strconv.ParseInt(m[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		posts = append(posts, models.TopicPost{PostID: postID, UserID: userID})
	}
	if posts == nil {
		return nil, fmt.Errorf("topic %d returned no readable posts", topicID)
	}
	return posts, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (string, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (string, error) {
	form.Set("api_key", c.user.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (string, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("forum answered %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read forum response: %w", err)
	}
	return string(body), nil
}
