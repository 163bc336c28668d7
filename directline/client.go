package directline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"botchat/activity"
	"botchat/config"
)

const DefaultDomain = "https://directline.botframework.com/v3/directline"

// ClientConfig describes a Direct Line 3.0 endpoint.
type ClientConfig struct {
	// Domain is the Direct Line base URL, up to and including /v3/directline.
	Domain string
	// Token is a Direct Line secret or conversation token, sent as a bearer.
	Token  string
	UserID string
	Locale string

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// Client is a Source backed by the Direct Line 3.0 REST + WebSocket API.
//
// It does not refresh tokens and does not reconnect: when the stream drops
// the status moves to FailedToConnect and the caller decides what to do.
type Client struct {
	*hub

	cfg            ClientConfig
	conversationID string
	token          string

	connMu sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
}

type conversation struct {
	ConversationID string `json:"conversationId"`
	Token          string `json:"token"`
	StreamURL      string `json:"streamUrl"`
	ExpiresIn      int    `json:"expires_in"`
}

// Dial starts a conversation and opens its activity stream.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	cfg.Domain = strings.TrimRight(cfg.Domain, "/")
	if cfg.Token == "" {
		return nil, fmt.Errorf("direct line: missing secret or token")
	}
	if cfg.UserID == "" {
		cfg.UserID = "user"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}

	c := &Client{hub: &hub{hold: true}, cfg: cfg, token: cfg.Token, done: make(chan struct{})}
	c.advance(Connecting)

	conv, err := c.startConversation(ctx)
	if err != nil {
		c.advance(FailedToConnect)
		return nil, err
	}
	c.conversationID = conv.ConversationID
	if conv.Token != "" {
		c.token = conv.Token
	}

	conn, _, err := cfg.Dialer.DialContext(ctx, conv.StreamURL, nil)
	if err != nil {
		c.advance(FailedToConnect)
		return nil, fmt.Errorf("direct line: failed to open stream: %w", err)
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[directline] conversation %s started, stream open", c.conversationID)
	}

	c.advance(Connected)
	go c.readLoop(conn)
	return c, nil
}

// ConversationID returns the id assigned by the channel.
func (c *Client) ConversationID() string {
	return c.conversationID
}

func (c *Client) startConversation(ctx context.Context) (*conversation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Domain+"/conversations", nil)
	if err != nil {
		return nil, fmt.Errorf("direct line: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("direct line: failed to start conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("direct line: start conversation returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var conv conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return nil, fmt.Errorf("direct line: failed to decode conversation: %w", err)
	}
	if conv.ConversationID == "" || conv.StreamURL == "" {
		return nil, fmt.Errorf("direct line: conversation response missing id or streamUrl")
	}
	return &conv, nil
}

// readLoop forwards ActivitySet frames until the socket closes. Empty frames
// are keep-alives.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			if config.DebugLog != nil {
				config.DebugLog.Printf("[directline] stream read failed: %v", err)
			}
			c.advance(FailedToConnect)
			return
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}

		acts, _, err := activity.DecodeSet(data)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[directline] skipping undecodable frame: %v", err)
			}
			continue
		}
		for _, a := range acts {
			c.publish(a, nil)
		}
	}
}

type outboundActivity struct {
	Type        activity.Type         `json:"type"`
	From        activity.Account      `json:"from"`
	Text        string                `json:"text,omitempty"`
	Locale      string                `json:"locale,omitempty"`
	Attachments []activity.Attachment `json:"attachments,omitempty"`
	ChannelData *activity.ChannelData `json:"channelData,omitempty"`
}

// PostActivity sends a user activity. The channel echoes it back through the
// stream with its final id and timestamp.
func (c *Client) PostActivity(ctx context.Context, a activity.Activity) (string, error) {
	if c.isClosed() {
		return "", ErrEnded
	}
	if c.Status() != Connected {
		return "", ErrNotConnected
	}

	typ := a.Type
	if typ == "" {
		typ = activity.TypeMessage
	}
	body, err := json.Marshal(outboundActivity{
		Type:        typ,
		From:        activity.Account{ID: c.cfg.UserID, Role: activity.RoleUser},
		Text:        a.Text,
		Locale:      c.cfg.Locale,
		Attachments: a.Attachments,
		ChannelData: a.ChannelData,
	})
	if err != nil {
		return "", fmt.Errorf("direct line: failed to encode activity: %w", err)
	}

	url := fmt.Sprintf("%s/conversations/%s/activities", c.cfg.Domain, c.conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("direct line: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("direct line: failed to post activity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("direct line: post activity returned %s", resp.Status)
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("direct line: failed to decode post response: %w", err)
	}
	return res.ID, nil
}

// End closes the stream. It does not tell the channel; Direct Line
// conversations simply expire.
func (c *Client) End() error {
	if !c.close() {
		return nil
	}

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return nil
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := conn.Close()
	<-c.done
	if err != nil {
		return fmt.Errorf("direct line: failed to close stream: %w", err)
	}
	return nil
}
