package remote

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

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/logging"
	"github.com/linkmeir/linkvault/internal/models"
)

// Client talks to a vaultd server: HTTP for writes, a websocket feed for
// the live subscription.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
}

// NewClient creates a Client for the given vaultd base URL and bearer
// token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{},
		dialer:  websocket.DefaultDialer,
	}
}

// writeRequest is the PUT body. Both arrays are always sent: the merge
// contract replaces them wholesale while the server preserves everything
// else in the document.
type writeRequest struct {
	Items []models.Item `json:"items"`
	Trash []models.Item `json:"trash"`
}

// Write implements DocumentStore.
func (c *Client) Write(ctx context.Context, uid string, items, trash []models.Item) error {
	if items == nil {
		items = []models.Item{}
	}
	if trash == nil {
		trash = []models.Item{}
	}
	body, err := json.Marshal(writeRequest{Items: items, Trash: trash})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode document", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.vaultURL(uid), bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "failed to build write request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "document write failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return apperrors.New(apperrors.ErrPermission, fmt.Sprintf("document write rejected with status %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return apperrors.New(apperrors.ErrSyncFailed, fmt.Sprintf("document write failed with status %d", resp.StatusCode))
	}
	return nil
}

// Subscribe implements DocumentStore. The server pushes a snapshot event
// immediately after the dial, then an update event per document write.
func (c *Client) Subscribe(ctx context.Context, uid string, onChange ChangeFunc, onError ErrorFunc) (*Subscription, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, c.watchURL(uid), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized) {
			return nil, apperrors.Wrap(apperrors.ErrPermission, "watch subscription rejected", err)
		}
		return nil, apperrors.Wrap(apperrors.ErrSyncFailed, "failed to open watch subscription", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := newSubscription(uuid.New().String(), func() {
		cancel()
		conn.Close()
	})

	go c.readLoop(subCtx, conn, uid, onChange, onError)

	return sub, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, uid string, onChange ChangeFunc, onError ErrorFunc) {
	defer conn.Close()
	for {
		var event WatchEvent
		if err := conn.ReadJSON(&event); err != nil {
			// A closed subscription is not an error worth surfacing.
			if ctx.Err() == nil {
				logging.Warn("watch feed interrupted", map[string]interface{}{
					"uid":   uid,
					"error": err.Error(),
				})
				onError(apperrors.Wrap(apperrors.ErrSyncFailed, "watch feed interrupted", err))
			}
			return
		}
		event.Document.Normalize()
		onChange(Update{Exists: event.Exists, Document: event.Document})
	}
}

func (c *Client) vaultURL(uid string) string {
	return fmt.Sprintf("%s/v1/users/%s/vault", c.baseURL, url.PathEscape(uid))
}

func (c *Client) watchURL(uid string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return fmt.Sprintf("%s/v1/users/%s/watch", base, url.PathEscape(uid))
}

// SetTimeout adjusts the HTTP client timeout for writes. The watch feed
// itself has no bounded wait; failures surface whenever the transport
// reports them.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}
