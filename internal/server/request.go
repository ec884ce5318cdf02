package server

import (
	"bufio"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// errMalformedRequest marks a request line with fewer than two tokens. It is
// the one condition answered with a bare 400 instead of an envelope.
var errMalformedRequest = errors.New("malformed request line")

const (
	// maxBodyBytes caps the single body read on write routes.
	maxBodyBytes = 64 * 1024
	// bodyGrace bounds the wait for a body that was not sent together
	// with the headers.
	bodyGrace = 200 * time.Millisecond
)

// request is one decoded wire request.
type request struct {
	method string
	path   string
	query  url.Values
	params map[string]any
}

// readRequest decodes the request line, discards headers, and for write
// verbs performs at most one bounded read for the body. A body that never
// arrives leaves the parameter map empty rather than blocking the worker.
func readRequest(conn net.Conn, r *bufio.Reader) (*request, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, errMalformedRequest
	}

	path, rawQuery, _ := strings.Cut(fields[1], "?")
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}
	req := &request{
		method: fields[0],
		path:   path,
		query:  query,
		params: map[string]any{},
	}

	// Header lines up to the blank separator are read and ignored. An
	// early EOF ends the request where it stands.
	for {
		header, err := r.ReadString('\n')
		if err != nil || strings.TrimSpace(header) == "" {
			break
		}
	}

	if req.method == "POST" {
		req.params = ParseBody(readBody(conn, r))
	}
	return req, nil
}

// readBody returns whatever a single read produces. When the body rode in
// with the headers it is already buffered and returned immediately;
// otherwise one short-deadline read gives a late body a moment to arrive.
func readBody(conn net.Conn, r *bufio.Reader) []byte {
	buf := make([]byte, maxBodyBytes)
	if r.Buffered() == 0 {
		_ = conn.SetReadDeadline(time.Now().Add(bodyGrace))
	}
	n, _ := r.Read(buf)
	return buf[:n]
}
