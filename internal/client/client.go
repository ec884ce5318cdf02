// Package client dials a running portal and speaks its wire protocol from
// the caller's side: one request per connection, a status line and a JSON
// envelope back, then the portal closes the socket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/server"
)

// DefaultTimeout bounds the whole exchange: dial, write and read.
const DefaultTimeout = 10 * time.Second

// Response couples the parsed envelope with the exact body text the portal
// wrote, for callers that relay bytes instead of fields.
type Response struct {
	server.Envelope
	Body string
}

// Err converts an error envelope into a Go error, nil on success.
func (r *Response) Err() error {
	if r.Status == server.StatusError {
		return errors.New(r.Message)
	}
	return nil
}

type Client struct {
	addr    string
	timeout time.Duration
	log     pslog.Logger
}

func New(addr string, timeout time.Duration, logger pslog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Client{addr: addr, timeout: timeout, log: logger.With("component", "client")}
}

// Get performs a read against path, which may carry a query string.
func (c *Client) Get(path string) (*Response, error) {
	req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\n\r\n", path, c.addr)
	return c.roundTrip(path, req)
}

// Post sends form as an urlencoded body.
func (c *Client) Post(path string, form url.Values) (*Response, error) {
	body := form.Encode()
	req := fmt.Sprintf("POST %s HTTP/1.1\r\nHost: %s\r\nContent-Type: application/x-www-form-urlencoded\r\nContent-Length: %d\r\n\r\n%s",
		path, c.addr, len(body), body)
	return c.roundTrip(path, req)
}

func (c *Client) roundTrip(path, raw string) (*Response, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to portal at %s: %w", c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := io.WriteString(conn, raw); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("portal exchange", "path", path, "bytes", len(data))
	return parseResponse(string(data))
}

func parseResponse(raw string) (*Response, error) {
	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	if !ok {
		return nil, errors.New("malformed response: no header terminator")
	}
	statusLine, _, _ := strings.Cut(head, "\r\n")
	if !strings.Contains(statusLine, " 200 ") {
		return nil, fmt.Errorf("portal answered %q", statusLine)
	}
	resp := &Response{Body: body}
	if err := json.Unmarshal([]byte(body), &resp.Envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return resp, nil
}
