package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harborops/harbordesk/internal/models"
)

const defaultHTTPTimeout = 15 * time.Second

// ThreadLister is the optional inbound side of a backend: the initial
// already-deserialized thread snapshot.
type ThreadLister interface {
	ListThreads(ctx context.Context) ([]models.Thread, error)
}

// GatewayIntents carries outbound intents to the platform gateway over
// HTTP. Push events arrive separately via PushClient.
type GatewayIntents struct {
	baseURL string
	token   string
	client  *http.Client
}

// GatewayOption configures GatewayIntents.
type GatewayOption func(*GatewayIntents)

// WithHTTPClient overrides the underlying client, for tests.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *GatewayIntents) {
		if client != nil {
			g.client = client
		}
	}
}

// NewGatewayIntents creates a gateway client rooted at baseURL.
func NewGatewayIntents(baseURL, token string, opts ...GatewayOption) *GatewayIntents {
	g := &GatewayIntents{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ListThreads fetches the inbox snapshot.
func (g *GatewayIntents) ListThreads(ctx context.Context) ([]models.Thread, error) {
	var out struct {
		Threads []models.Thread `json:"threads"`
	}
	if err := g.do(ctx, http.MethodGet, "/threads", nil, &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

// SendMessage delivers a draft and returns the canonical message.
func (g *GatewayIntents) SendMessage(ctx context.Context, threadID string, draft Draft) (models.Message, error) {
	path, err := threadPath(threadID, "/messages")
	if err != nil {
		return models.Message{}, err
	}
	var msg models.Message
	if err := g.do(ctx, http.MethodPost, path, draft, &msg); err != nil {
		return models.Message{}, err
	}
	msg.ThreadID = threadID
	return msg, nil
}

// LoadOlderMessages fetches one backward page.
func (g *GatewayIntents) LoadOlderMessages(ctx context.Context, threadID, beforeCursor string, limit int) (Page, error) {
	query := url.Values{}
	if beforeCursor != "" {
		query.Set("before", beforeCursor)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path, err := threadPath(threadID, "/messages")
	if err != nil {
		return Page{}, err
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out struct {
		Messages []models.Message `json:"messages"`
		HasMore  bool             `json:"has_more"`
	}
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return Page{}, err
	}
	for i := range out.Messages {
		out.Messages[i].ThreadID = threadID
	}
	return Page{Messages: out.Messages, HasMore: out.HasMore}, nil
}

// MarkThreadRead records the actor's read position.
func (g *GatewayIntents) MarkThreadRead(ctx context.Context, threadID string) error {
	path, err := threadPath(threadID, "/read")
	if err != nil {
		return err
	}
	return g.do(ctx, http.MethodPost, path, nil, nil)
}

// TogglePin pins or unpins a thread.
func (g *GatewayIntents) TogglePin(ctx context.Context, threadID string, pinned bool) error {
	path, err := threadPath(threadID, "/pin")
	if err != nil {
		return err
	}
	body := map[string]bool{"pinned": pinned}
	return g.do(ctx, http.MethodPost, path, body, nil)
}

// StartCall opens a call on the thread.
func (g *GatewayIntents) StartCall(ctx context.Context, threadID string, kind models.CallType) (*models.CallMetadata, error) {
	path, err := threadPath(threadID, "/calls")
	if err != nil {
		return nil, err
	}
	body := map[string]string{"type": string(kind)}
	meta := &models.CallMetadata{}
	if err := g.do(ctx, http.MethodPost, path, body, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// JoinCall joins an in-progress call.
func (g *GatewayIntents) JoinCall(ctx context.Context, meta *models.CallMetadata) error {
	if meta == nil || meta.ID == "" {
		return fmt.Errorf("call metadata required")
	}
	path := fmt.Sprintf("/calls/%s/join", url.PathEscape(meta.ID))
	return g.do(ctx, http.MethodPost, path, nil, nil)
}

// threadPath builds a request path under a thread; an empty thread id
// would otherwise address the collection route.
func threadPath(threadID, suffix string) (string, error) {
	if threadID == "" {
		return "", models.ErrMissingThreadID
	}
	return "/threads/" + url.PathEscape(threadID) + suffix, nil
}

func (g *GatewayIntents) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var (
	_ Intents      = (*GatewayIntents)(nil)
	_ ThreadLister = (*GatewayIntents)(nil)
)
