package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/command"
	"github.com/douyin-rboot/droidrun-portal/internal/device/sim"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
	"github.com/douyin-rboot/droidrun-portal/internal/settings"
	"github.com/douyin-rboot/droidrun-portal/internal/snapshot"
)

func quietLogger() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{
		Mode:    pslog.ModeStructured,
		NoColor: true,
	})
}

type testPortal struct {
	addr  string
	srv   *Server
	parts *sim.Parts
	store *settings.Store
	path  string
}

func startPortal(t *testing.T) *testPortal {
	t.Helper()
	provider, parts := sim.NewProvider(model.NewRect(0, 0, 720, 1280))
	parts.Keyboard.SetConnected(true)

	path := filepath.Join(t.TempDir(), "portal.yaml")
	store, err := settings.Open(path, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	engine := snapshot.NewEngine(parts.Device, quietLogger())
	agg := snapshot.NewAggregator(engine, parts.Device, quietLogger())
	disp := command.New(command.Config{Provider: provider, Settings: store, Logger: quietLogger()})

	srv := New(Config{Addr: "127.0.0.1:0", Aggregator: agg, Dispatcher: disp, Logger: quietLogger()})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Stop)
	return &testPortal{addr: srv.Addr(), srv: srv, parts: parts, store: store, path: path}
}

func send(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatal(err)
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		t.Fatal(err)
	}
	return string(resp)
}

func get(t *testing.T, addr, target string) string {
	t.Helper()
	return send(t, addr, "GET "+target+" HTTP/1.1\r\nHost: portal\r\n\r\n")
}

// tryGet is the goroutine-safe variant of get: it reports failures instead
// of stopping the test.
func tryGet(addr, target string) (string, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	if _, err := conn.Write([]byte("GET " + target + " HTTP/1.1\r\nHost: portal\r\n\r\n")); err != nil {
		return "", err
	}
	resp, err := io.ReadAll(conn)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

func post(t *testing.T, addr, path, body string) string {
	t.Helper()
	raw := fmt.Sprintf("POST %s HTTP/1.1\r\nHost: portal\r\nContent-Length: %d\r\n\r\n%s", path, len(body), body)
	return send(t, addr, raw)
}

func splitResponse(t *testing.T, resp string) (status string, headers map[string]string, body string) {
	t.Helper()
	head, body, ok := strings.Cut(resp, "\r\n\r\n")
	if !ok {
		t.Fatalf("response has no header terminator: %q", resp)
	}
	lines := strings.Split(head, "\r\n")
	headers = make(map[string]string)
	for _, l := range lines[1:] {
		if k, v, ok := strings.Cut(l, ": "); ok {
			headers[k] = v
		}
	}
	return lines[0], headers, body
}

func envelopeOf(t *testing.T, resp string) Envelope {
	t.Helper()
	status, _, body := splitResponse(t, resp)
	if status != "HTTP/1.1 200 OK" {
		t.Fatalf("status line = %q", status)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		t.Fatalf("invalid envelope %q: %v", body, err)
	}
	return env
}

func TestServer_Ping(t *testing.T) {
	p := startPortal(t)
	for i := 0; i < 3; i++ {
		resp := get(t, p.addr, "/ping")
		status, headers, body := splitResponse(t, resp)
		if status != "HTTP/1.1 200 OK" {
			t.Fatalf("status line = %q", status)
		}
		if body != `{"status":"success","data":"pong"}` {
			t.Fatalf("body = %q", body)
		}
		if headers["Content-Type"] != "application/json" {
			t.Errorf("content type = %q", headers["Content-Type"])
		}
		if headers["Content-Length"] != strconv.Itoa(len(body)) {
			t.Errorf("content length = %q for %d body bytes", headers["Content-Length"], len(body))
		}
		if headers["Access-Control-Allow-Origin"] != "*" {
			t.Errorf("allow origin = %q", headers["Access-Control-Allow-Origin"])
		}
		if headers["Connection"] != "close" {
			t.Errorf("connection = %q", headers["Connection"])
		}
	}
}

func TestServer_MalformedRequestLine(t *testing.T) {
	p := startPortal(t)
	resp := send(t, p.addr, "NONSENSE\r\n\r\n")
	if resp != "HTTP/1.1 400 Bad Request\r\n\r\n" {
		t.Errorf("malformed request answered %q", resp)
	}
}

func TestServer_UnknownEndpoint(t *testing.T) {
	p := startPortal(t)

	env := envelopeOf(t, get(t, p.addr, "/nope"))
	if env.Status != StatusError || env.Message != "Unknown endpoint: GET /nope" {
		t.Errorf("envelope = %+v", env)
	}

	// Known path with the wrong verb is just as unknown.
	env = envelopeOf(t, post(t, p.addr, "/ping", ""))
	if env.Status != StatusError || env.Message != "Unknown endpoint: POST /ping" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestServer_KeyboardKeyBothBodyForms(t *testing.T) {
	p := startPortal(t)
	want := "success: Key event sent via keyboard - code: 66"

	env := envelopeOf(t, post(t, p.addr, "/keyboard/key", "key_code=66"))
	if env.Status != StatusSuccess || env.Data != want {
		t.Errorf("urlencoded body: %+v", env)
	}

	env = envelopeOf(t, post(t, p.addr, "/keyboard/key", `{"key_code": 66}`))
	if env.Status != StatusSuccess || env.Data != want {
		t.Errorf("json body: %+v", env)
	}

	keys := p.parts.Keyboard.Keys()
	if len(keys) != 2 || keys[0] != 66 || keys[1] != 66 {
		t.Errorf("keyboard recorded %v", keys)
	}
}

func TestServer_KeyboardValidation(t *testing.T) {
	p := startPortal(t)

	env := envelopeOf(t, post(t, p.addr, "/keyboard/key", "key_code=enter"))
	if env.Status != StatusError || env.Message != "error: key_code must be an integer" {
		t.Errorf("non-integer code: %+v", env)
	}

	env = envelopeOf(t, post(t, p.addr, "/keyboard/input", ""))
	if env.Status != StatusError || env.Message != "error: text parameter is required" {
		t.Errorf("missing payload: %+v", env)
	}
}

func TestServer_KeyboardClearWithoutConnection(t *testing.T) {
	p := startPortal(t)
	p.parts.Keyboard.SetConnected(false)

	env := envelopeOf(t, post(t, p.addr, "/keyboard/clear", ""))
	if env.Status != StatusError {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Message != "error: No input connection available - ensure a text field is focused" {
		t.Errorf("message = %q", env.Message)
	}
}

func TestServer_KeyboardInput(t *testing.T) {
	p := startPortal(t)

	env := envelopeOf(t, post(t, p.addr, "/keyboard/input", `{"base64_text":"aGVsbG8="}`))
	if env.Status != StatusSuccess || env.Data != "success: Text input sent via keyboard" {
		t.Fatalf("envelope = %+v", env)
	}
	if p.parts.Keyboard.Text() != "hello" {
		t.Errorf("keyboard received %q", p.parts.Keyboard.Text())
	}
}

func TestServer_OverlayOffsetRoundTrip(t *testing.T) {
	p := startPortal(t)

	env := envelopeOf(t, post(t, p.addr, "/overlay_offset", "offset=25"))
	if env.Status != StatusSuccess || env.Data != "success: Overlay offset set to 25" {
		t.Fatalf("envelope = %+v", env)
	}
	if p.parts.Overlay.Offset() != 25 {
		t.Errorf("overlay offset = %d", p.parts.Overlay.Offset())
	}
	if p.store.OverlayOffset() != 25 {
		t.Errorf("store offset = %d", p.store.OverlayOffset())
	}

	// Simulated restart: a fresh store on the same file sees the value.
	reopened, err := settings.Open(p.path, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if reopened.OverlayOffset() != 25 {
		t.Errorf("offset after restart = %d", reopened.OverlayOffset())
	}
}

func TestServer_TreeRoute(t *testing.T) {
	p := startPortal(t)
	sim.Demo(p.parts)

	env := envelopeOf(t, get(t, p.addr, "/a11y_tree"))
	if env.Status != StatusSuccess {
		t.Fatalf("envelope = %+v", env)
	}
	roots, ok := env.Data.([]any)
	if !ok || len(roots) != 1 {
		t.Fatalf("data = %#v", env.Data)
	}
	root, ok := roots[0].(map[string]any)
	if !ok {
		t.Fatalf("root = %#v", roots[0])
	}
	if root["className"] != "android.widget.FrameLayout" {
		t.Errorf("root class = %v", root["className"])
	}
	if root["index"] != float64(1) {
		t.Errorf("root index = %v", root["index"])
	}
	if root["bounds"] != "0,0,720,1280" {
		t.Errorf("root bounds = %v", root["bounds"])
	}
	id, _ := root["id"].(string)
	if len(id) != 16 {
		t.Errorf("root id = %q", id)
	}
	kids, _ := root["children"].([]any)
	if len(kids) != 2 {
		t.Fatalf("root has %d children", len(kids))
	}
	search, _ := kids[0].(map[string]any)
	if search["text"] != "Search settings" || search["index"] != float64(2) {
		t.Errorf("first child = %v", search)
	}
}

func TestServer_StateRoute(t *testing.T) {
	p := startPortal(t)
	sim.Demo(p.parts)

	env := envelopeOf(t, get(t, p.addr, "/state"))
	if env.Status != StatusSuccess {
		t.Fatalf("envelope = %+v", env)
	}
	combined, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %#v", env.Data)
	}
	if _, ok := combined["a11y_tree"].([]any); !ok {
		t.Errorf("a11y_tree = %#v", combined["a11y_tree"])
	}
	state, ok := combined["phone_state"].(map[string]any)
	if !ok {
		t.Fatalf("phone_state = %#v", combined["phone_state"])
	}
	if state["currentApp"] != "Settings" || state["packageName"] != "com.android.settings" {
		t.Errorf("state = %v", state)
	}
	focused, ok := state["focusedElement"].(map[string]any)
	if !ok || focused["resourceId"] != "com.android.settings:id/search" {
		t.Errorf("focusedElement = %#v", state["focusedElement"])
	}
}

func TestServer_PhoneStateRoute(t *testing.T) {
	p := startPortal(t)
	sim.Demo(p.parts)

	env := envelopeOf(t, get(t, p.addr, "/phone_state"))
	if env.Status != StatusSuccess {
		t.Fatalf("envelope = %+v", env)
	}
	state, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %#v", env.Data)
	}
	if state["currentApp"] != "Settings" {
		t.Errorf("currentApp = %v", state["currentApp"])
	}
	if state["keyboardVisible"] != false {
		t.Errorf("keyboardVisible = %v", state["keyboardVisible"])
	}
}

func TestServer_ScreenshotRoute(t *testing.T) {
	p := startPortal(t)
	sim.Demo(p.parts)

	env := envelopeOf(t, get(t, p.addr, "/screenshot?hideOverlay=false"))
	if env.Status != StatusSuccess {
		t.Fatalf("envelope = %+v", env)
	}
	payload, ok := env.Data.(string)
	if !ok || payload == "" {
		t.Fatalf("data = %#v", env.Data)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("payload is not a PNG: %v", err)
	}

	// Default capture (overlay suppressed) works the same way.
	env = envelopeOf(t, get(t, p.addr, "/screenshot"))
	if env.Status != StatusSuccess {
		t.Errorf("default capture envelope = %+v", env)
	}
}

func TestServer_ScreenshotTimeout(t *testing.T) {
	provider, parts := sim.NewProvider(model.NewRect(0, 0, 720, 1280))
	parts.Screen.SetDelay(500 * time.Millisecond)

	engine := snapshot.NewEngine(parts.Device, quietLogger())
	agg := snapshot.NewAggregator(engine, parts.Device, quietLogger())
	disp := command.New(command.Config{
		Provider:          provider,
		ScreenshotTimeout: 30 * time.Millisecond,
		Logger:            quietLogger(),
	})
	srv := New(Config{Addr: "127.0.0.1:0", Aggregator: agg, Dispatcher: disp, Logger: quietLogger()})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Stop)

	env := envelopeOf(t, get(t, srv.Addr(), "/screenshot"))
	if env.Status != StatusError || env.Message != "error: Screenshot capture timed out" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestServer_ConcurrentPings(t *testing.T) {
	p := startPortal(t)

	// More clients than worker slots; the surplus queues and is served.
	const clients = 12
	var wg sync.WaitGroup
	errs := make(chan string, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := tryGet(p.addr, "/ping")
			if err != nil {
				errs <- err.Error()
				return
			}
			if !strings.Contains(resp, `"pong"`) {
				errs <- "missing pong: " + resp
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestServer_SnapshotContentionNeverErrors(t *testing.T) {
	p := startPortal(t)
	p.parts.Device.Load(sim.WindowSpec{Root: sim.Spec{
		Class:  "android.widget.FrameLayout",
		Bounds: model.NewRect(0, 0, 720, 1280),
	}})

	type reply struct {
		resp string
		err  error
	}
	started, release := p.parts.Device.GateWalks()
	first := make(chan reply, 1)
	go func() {
		resp, err := tryGet(p.addr, "/a11y_tree")
		first <- reply{resp, err}
	}()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first walk never started")
	}

	// While the walk is held open, a second request is answered promptly
	// from the published state, never an error and never a queue.
	second := make(chan reply, 1)
	go func() {
		resp, err := tryGet(p.addr, "/a11y_tree")
		second <- reply{resp, err}
	}()
	select {
	case r := <-second:
		if r.err != nil {
			t.Fatal(r.err)
		}
		env := envelopeOf(t, r.resp)
		if env.Status != StatusSuccess {
			t.Errorf("contended read envelope = %+v", env)
		}
		if roots, ok := env.Data.([]any); !ok || len(roots) != 0 {
			t.Errorf("contended read data = %#v", env.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("contended read blocked behind the in-flight walk")
	}

	close(release)
	select {
	case r := <-first:
		if r.err != nil {
			t.Fatal(r.err)
		}
		env := envelopeOf(t, r.resp)
		if env.Status != StatusSuccess {
			t.Errorf("gated read envelope = %+v", env)
		}
		if roots, ok := env.Data.([]any); !ok || len(roots) != 1 {
			t.Errorf("gated read data = %#v", env.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gated read never completed")
	}
}

func TestServer_StopRefusesNewConnections(t *testing.T) {
	p := startPortal(t)
	if !strings.Contains(get(t, p.addr, "/ping"), "pong") {
		t.Fatal("server not serving before stop")
	}

	// Stop is idempotent; the cleanup's second call is a no-op.
	p.srv.Stop()
	if _, err := net.Dial("tcp", p.addr); err == nil {
		t.Error("dial succeeded after Stop")
	}
}

func TestServer_Defaults(t *testing.T) {
	s := New(Config{})
	if s.addr != DefaultAddr {
		t.Errorf("addr = %q", s.addr)
	}
	if s.workers != DefaultWorkers {
		t.Errorf("workers = %d", s.workers)
	}
	if s.mux == nil || len(s.mux) != 9 {
		t.Errorf("route table has %d entries", len(s.mux))
	}
}
