// Package server is the portal's protocol layer: a raw-TCP listener
// hand-decoding a tiny HTTP-like protocol, one request per connection. A
// fixed worker pool services connections, with the accept loop permanently
// occupying one slot; every routed outcome travels as a 200 response whose
// JSON envelope carries the application-level status.
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/command"
	"github.com/douyin-rboot/droidrun-portal/internal/snapshot"
)

const (
	// DefaultAddr is the portal's listen address.
	DefaultAddr = ":8080"
	// DefaultWorkers is the pool size. One worker runs the accept loop,
	// so the concurrent-request capacity is one less.
	DefaultWorkers = 5

	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// Config wires a Server. Aggregator and Dispatcher are required.
type Config struct {
	Addr       string
	Workers    int
	Aggregator *snapshot.Aggregator
	Dispatcher *command.Dispatcher
	Logger     pslog.Logger
}

// Server owns the listener, the worker pool and the route table.
type Server struct {
	addr    string
	workers int
	agg     *snapshot.Aggregator
	disp    *command.Dispatcher
	log     pslog.Logger
	mux     map[string]handlerFunc

	ln       net.Listener
	conns    chan net.Conn
	quit     chan struct{}
	closed   atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	workers := cfg.Workers
	if workers < 2 {
		workers = DefaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	s := &Server{
		addr:    addr,
		workers: workers,
		agg:     cfg.Aggregator,
		disp:    cfg.Dispatcher,
		log:     logger.With("component", "server"),
		conns:   make(chan net.Conn),
		quit:    make(chan struct{}),
	}
	s.mux = s.routes()
	return s
}

// Start binds the listener and launches the pool. It returns once the
// server is accepting; serving continues until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	s.wg.Add(s.workers)
	go s.acceptLoop()
	for i := 1; i < s.workers; i++ {
		go s.worker(i)
	}
	s.log.Info("portal listening", "addr", ln.Addr().String(), "workers", s.workers)
	return nil
}

// Addr reports the bound address, useful when Start was given port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Stop closes the listener, lets queued and in-flight connections finish,
// and waits for the pool to drain. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.closed.Store(true)
		close(s.quit)
		if s.ln != nil {
			_ = s.ln.Close()
		}
	})
	s.wg.Wait()
}

// acceptLoop runs on the first pool worker for the server's whole lifetime.
// Closing the listener during Stop is the expected way out and is not
// reported as a failure.
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	defer close(s.conns)
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				s.log.Debug("listener closed")
				return
			}
			s.log.Error("accept failed", "error", err)
			continue
		}
		select {
		case s.conns <- conn:
		case <-s.quit:
			_ = conn.Close()
			return
		}
	}
}

func (s *Server) worker(id int) {
	defer s.wg.Done()
	s.log.Debug("worker started", "worker", id)
	for conn := range s.conns {
		s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	log := s.log.With("conn", uuid.NewString(), "remote", conn.RemoteAddr().String())

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	req, err := readRequest(conn, bufio.NewReaderSize(conn, maxBodyBytes))
	if err != nil {
		if errors.Is(err, errMalformedRequest) {
			log.Warn("malformed request line")
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_, _ = io.WriteString(conn, "HTTP/1.1 400 Bad Request\r\n\r\n")
		} else {
			log.Debug("request read failed", "error", err)
		}
		return
	}

	env := s.dispatch(req)
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writeEnvelope(conn, env); err != nil {
		if !s.closed.Load() {
			log.Error("response write failed", "error", err)
		}
		return
	}
	log.Debug("request served", "method", req.method, "path", req.path, "status", env.Status)
}

// writeEnvelope emits the full wire response: 200 status line, JSON content
// type with computed length, permissive CORS, and a close instruction.
func writeEnvelope(w io.Writer, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		body = []byte(`{"status":"error","message":"response encoding failed"}`)
	}
	var b bytes.Buffer
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("Content-Type: application/json\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("Access-Control-Allow-Origin: *\r\n")
	b.WriteString("Access-Control-Allow-Methods: GET, POST, OPTIONS\r\n")
	b.WriteString("Access-Control-Allow-Headers: Content-Type\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.Write(body)
	_, err = w.Write(b.Bytes())
	return err
}
