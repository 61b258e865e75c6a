// Package main provides a CI-friendly WebSocket smoke test for canvasd.
//
// It validates:
//   - handshake + subprotocol selection
//   - hello/hello_ack connection establishment
//   - join/join_ack + an empty catchup/caught_up pair for a fresh session
//   - a data message broadcast to the other joined client, but not echoed
//     back to its own sender
//   - a server_command from a non-operator client is rejected
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"canvasd/internal/gateway"
)

const (
	defaultSubprotocol = "canvasd.session.v1"
	maxReadBytes        = 1 << 20 // 1MiB
)

type smokeClient struct {
	name string
	conn *websocket.Conn

	inbox chan gateway.Envelope
	errCh chan error
}

func main() {
	var (
		wsURL     = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		origin    = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		sessionID = flag.String("session", "dev-room-1", "Canvas session id to join")
		timeout   = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose   = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()

	a := mustConnect(root, "A", *wsURL, *origin, *timeout)
	defer closeWS(a.conn)

	b := mustConnect(root, "B", *wsURL, *origin, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("connected: A, B origin=%q\n", *origin)
	}

	mustJoin(root, a, *sessionID, *timeout)
	mustJoin(root, b, *sessionID, *timeout)

	mustSendAndAssertBroadcast(root, a, b, *sessionID, []byte("hello canvas"), *timeout)

	mustAssertServerCommandForbidden(root, a, *sessionID, *timeout)

	fmt.Printf("OK: session=%s\n", *sessionID)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, wsURL, origin string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	assertSubprotocol(resp, defaultSubprotocol)

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:  name,
		conn:  conn,
		inbox: make(chan gateway.Envelope, 512),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()

	hello := gateway.Envelope{
		V:       gateway.Version,
		Type:    gateway.TypeHello,
		ID:      fmt.Sprintf("%s-hello", name),
		TS:      time.Now().UTC(),
		Payload: mustJSON(gateway.HelloPayload{ClientKey: name}),
	}
	mustWriteWithTimeout(parent, conn, hello, stepTimeout)

	_ = c.mustReadUntilType(parent, gateway.TypeHelloAck, stepTimeout, nil)

	return c
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}

			if mt != websocket.MessageText && mt != websocket.MessageBinary {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			var env gateway.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad json: %w", err):
				default:
				}
				return
			}
			if err := env.Validate(); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad envelope: %w", err):
				default:
				}
				return
			}

			select {
			case c.inbox <- env:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func mustJoin(parent context.Context, c *smokeClient, sessionID string, stepTimeout time.Duration) {
	env := gateway.Envelope{
		V:    gateway.Version,
		Type: gateway.TypeJoin,
		ID:   fmt.Sprintf("%s-join", c.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(gateway.JoinPayload{
			SessionID:   sessionID,
			DisplayName: c.name,
		}),
	}
	mustWriteWithTimeout(parent, c.conn, env, stepTimeout)

	ack := c.mustReadUntilType(parent, gateway.TypeJoinAck, stepTimeout, nil)

	var p gateway.JoinAckPayload
	if err := json.Unmarshal(ack.Payload, &p); err != nil {
		fatalf("unmarshal join_ack payload (%s): %v", c.name, err)
	}
	if p.SessionID != sessionID {
		fatalf("join_ack session_id mismatch (%s): got=%q want=%q", c.name, p.SessionID, sessionID)
	}

	_ = c.mustReadUntilType(parent, gateway.TypeCatchup, stepTimeout, nil)
	_ = c.mustReadUntilType(parent, gateway.TypeCaughtUp, stepTimeout, nil)
}

func mustSendAndAssertBroadcast(parent context.Context, sender, receiver *smokeClient, sessionID string, body []byte, stepTimeout time.Duration) {
	env := gateway.Envelope{
		V:    gateway.Version,
		Type: gateway.TypeData,
		ID:   fmt.Sprintf("%s-data", sender.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(gateway.DataPayload{
			Type:      1,
			ContextID: 1,
			Body:      body,
		}),
	}
	mustWriteWithTimeout(parent, sender.conn, env, stepTimeout)

	got := receiver.mustReadUntilType(parent, gateway.TypeData, stepTimeout, nil)
	var p gateway.DataPayload
	if err := json.Unmarshal(got.Payload, &p); err != nil {
		fatalf("unmarshal data payload (%s): %v", receiver.name, err)
	}
	if string(p.Body) != string(body) {
		fatalf("broadcast body mismatch (%s): got=%q want=%q", receiver.name, p.Body, body)
	}

	mustAssertNoType(parent, sender, gateway.TypeData, 750*time.Millisecond)
}

func mustAssertServerCommandForbidden(parent context.Context, c *smokeClient, sessionID string, stepTimeout time.Duration) {
	env := gateway.Envelope{
		V:    gateway.Version,
		Type: gateway.TypeServerCommand,
		ID:   fmt.Sprintf("%s-cmd", c.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(map[string]any{
			"cmd": "kick-user",
		}),
	}
	mustWriteWithTimeout(parent, c.conn, env, stepTimeout)

	got := c.mustReadUntilType(parent, gateway.TypeError, stepTimeout, nil)
	var p gateway.ErrorPayload
	if err := json.Unmarshal(got.Payload, &p); err != nil {
		fatalf("unmarshal error payload (%s): %v", c.name, err)
	}
	if p.Code != "forbidden" {
		fatalf("expected forbidden server_command rejection (%s), got code=%q", c.name, p.Code)
	}
}

func mustAssertNoType(parent context.Context, c *smokeClient, forbiddenType string, wait time.Duration) {
	ctx, cancel := context.WithTimeout(parent, wait)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed unexpectedly (%s)", c.name)
			}
			fatalf("connection closed unexpectedly (%s): %v", c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed unexpectedly (%s)", c.name)
			}
			if env.Type == forbiddenType {
				fatalf("unexpected %s received (%s)", forbiddenType, c.name)
			}
		}
	}
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration, skipTypes map[string]struct{}) gateway.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
			if skipTypes != nil {
				if _, ok := skipTypes[env.Type]; ok {
					continue
				}
			}
			fatalf("unexpected envelope type (%s): got=%q want=%q", c.name, env.Type, wantType)
		}
	}

}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env gateway.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
