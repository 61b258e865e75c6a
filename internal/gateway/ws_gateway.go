package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"canvasd/internal/history"
	"canvasd/internal/metrics"
	"canvasd/internal/servercmd"
	"canvasd/internal/token"
)

const (
	wsSubprotocolV1 = "canvasd.session.v1"

	wsDefaultSendQueueSize = 256
	wsMinSendQueueSize     = 32

	wsDefaultWriteTimeout = 5 * time.Second
	wsDefaultReadIdle     = 2 * time.Minute
	wsCloseGrace          = 1 * time.Second

	wsMaxPingFailures = 3

	// Security defaults:
	// - Origin is required by default.
	// - Only localhost is allowed by default (secure-by-default for dev).
	wsDefaultOriginRequired = true
	wsDefaultAllowedOrigins = "http://localhost,http://127.0.0.1"

	wsDefaultCatchupKeyMin = 1
	wsDefaultCatchupKeyMax = 1 << 20
)

// snapshotter is implemented by history.Backend values that can return the
// full live log, used to stream a catch-up backlog to newly joined clients.
// It is intentionally not part of history.Backend itself: a backend that
// cannot enumerate its log (e.g. a pure write-ahead trail) still satisfies
// the core contract, it just cannot serve catch-up.
type snapshotter interface {
	Snapshot() []history.Message
}

// WSGateway is the WebSocket entrypoint for canvasd. It enforces origin
// policy, subprotocol selection, rate limits, heartbeats, and routes
// validated envelopes to the Hub and the joined session's SessionHistory.
type WSGateway struct {
	log *slog.Logger
	hub *Hub

	devInsecure    bool
	originRequired bool
	allowedOrigins []string
	originPatterns []string

	writeTimeout    time.Duration
	readIdleTimeout time.Duration
	sendQueueSize   int

	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration

	rateEvents int
	rateWindow time.Duration

	catchupKeyMin int
	catchupKeyMax int
	catchupKey    int64

	metrics *metrics.Registry
}

// WSOption configures optional WSGateway dependencies.
type WSOption func(*WSGateway)

// WithMetrics attaches a metrics registry. Counters are recorded at this
// calling layer, after each SessionHistory call returns, never from inside
// a history.Listener (which runs synchronously under the session's lock).
func WithMetrics(reg *metrics.Registry) WSOption {
	return func(g *WSGateway) { g.metrics = reg }
}

// NewWSGateway constructs a gateway with secure defaults. When hub is nil,
// it falls back to an in-memory Hub for dev.
func NewWSGateway(log *slog.Logger, hub *Hub, opts ...WSOption) *WSGateway {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if hub == nil {
		hub = NewHub(log)
	}

	g := &WSGateway{log: log, hub: hub}

	g.devInsecure = envBoolWS("CANVASD_WS_DEV_INSECURE", false)

	g.originRequired = envBoolWS("CANVASD_WS_ORIGIN_REQUIRED", wsDefaultOriginRequired)
	g.allowedOrigins = envCSVWS("CANVASD_WS_ALLOWED_ORIGINS", wsDefaultAllowedOrigins)
	g.originPatterns = deriveOriginPatternsFromAllowedOrigins(g.allowedOrigins)

	g.writeTimeout = envDurationWS("CANVASD_WS_WRITE_TIMEOUT", wsDefaultWriteTimeout)
	g.readIdleTimeout = envDurationWS("CANVASD_WS_READ_IDLE_TIMEOUT", wsDefaultReadIdle)

	g.sendQueueSize = envIntWS("CANVASD_WS_SEND_QUEUE", wsDefaultSendQueueSize)
	if g.sendQueueSize < wsMinSendQueueSize {
		g.sendQueueSize = wsMinSendQueueSize
	}

	g.heartbeatEvery = envDurationWS("CANVASD_WS_HEARTBEAT_INTERVAL", heartbeatInterval)
	g.heartbeatTimeout = envDurationWS("CANVASD_WS_HEARTBEAT_TIMEOUT", heartbeatTimeout)

	g.rateEvents = envIntWS("CANVASD_WS_RATE_EVENTS", rateLimitEvents)
	g.rateWindow = envDurationWS("CANVASD_WS_RATE_WINDOW", rateLimitWindow)

	g.catchupKeyMin = envIntWS("CANVASD_CATCHUP_KEY_MIN", wsDefaultCatchupKeyMin)
	g.catchupKeyMax = envIntWS("CANVASD_CATCHUP_KEY_MAX", wsDefaultCatchupKeyMax)
	g.catchupKey = int64(g.catchupKeyMin)

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// ServeHTTP adapter so it can be mounted as http.Handler.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

func (g *WSGateway) nextCatchupKey() int {
	span := int64(g.catchupKeyMax - g.catchupKeyMin + 1)
	if span <= 0 {
		span = 1
	}
	v := atomic.AddInt64(&g.catchupKey, 1)
	return g.catchupKeyMin + int(((v-1)%span+span)%span)
}

// HandleWS upgrades an HTTP request to a WebSocket session and runs the
// per-connection read/write loop.
func (g *WSGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{wsSubprotocolV1},
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.devInsecure,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if sp := conn.Subprotocol(); sp != wsSubprotocolV1 {
		g.log.Info("ws.reject.subprotocol", "got", sp, "want", wsSubprotocolV1)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}

	conn.SetReadLimit(maxFrameBytes)

	connID, err := NewConnectionID(time.Now().UTC())
	if err != nil {
		connID = NewRandomHex(10)
	}
	client := NewClient(connID, connID, g.sendQueueSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		closeOnce sync.Once
		joined    *Session
		joinedID  string
	)

	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			if joined != nil {
				joined.Leave(client.SessionID)
				g.hub.RemoveIfEmpty(joinedID)
				joined = nil
			}
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
		})
	}

	rl := NewRateLimiter(g.rateEvents, g.rateWindow)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case env := <-client.Send:
				if err := writeEnvelope(ctx, conn, env, g.writeTimeout); err != nil {
					g.log.Info("ws.write.fail", "connection_id", client.SessionID, "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		t := time.NewTicker(g.heartbeatEvery)
		defer t.Stop()

		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				return
			case <-t.C:
				hbCtx, hbCancel := context.WithTimeout(ctx, g.heartbeatTimeout)
				err := conn.Ping(hbCtx)
				hbCancel()
				if err != nil {
					failures++
					g.log.Info("ws.ping.fail", "connection_id", client.SessionID, "failures", failures, "err", err)
					if failures >= wsMaxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.readIdleTimeout)
		env, err := readEnvelope(readCtx, conn)
		readCancel()

		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
				break readLoop
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "context done")
				break readLoop
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
				break readLoop
			case readErrBadJSON:
				g.trySendError(ctx, client, "bad_json", "invalid JSON")
				continue readLoop
			default:
				g.log.Info("ws.read.fail", "connection_id", client.SessionID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
				break readLoop
			}
		}

		now := time.Now().UTC()
		if !rl.Allow(now) {
			g.trySendError(ctx, client, "rate_limited", "too many events")
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			break readLoop
		}

		if err := env.Validate(); err != nil {
			g.trySendError(ctx, client, "bad_envelope", err.Error())
			continue readLoop
		}

		switch env.Type {
		case TypeHello:
			if err := g.onHello(ctx, client, env); err != nil {
				g.trySendError(ctx, client, "hello_failed", err.Error())
				shutdown(websocket.StatusPolicyViolation, "hello failed")
				break readLoop
			}

		case TypeJoin:
			sess, sessID, err := g.onJoin(ctx, client, env)
			if err != nil {
				g.trySendError(ctx, client, "join_failed", err.Error())
				continue readLoop
			}
			if joined != nil && joined != sess {
				joined.Leave(client.SessionID)
				g.hub.RemoveIfEmpty(joinedID)
			}
			joined, joinedID = sess, sessID

		case TypeData:
			if joined == nil {
				g.trySendError(ctx, client, "not_joined", "join first")
				continue readLoop
			}
			if err := g.onData(client, joined, env); err != nil {
				g.trySendError(ctx, client, "data_rejected", err.Error())
				continue readLoop
			}

		case TypeServerCommand:
			if joined == nil {
				g.trySendError(ctx, client, "not_joined", "join first")
				continue readLoop
			}
			g.onServerCommand(ctx, client, joined, env)

		default:
			g.trySendError(ctx, client, "unsupported", fmt.Sprintf("unsupported type: %s", env.Type))
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(wsCloseGrace):
	}
}

// ---- handlers ----

func (g *WSGateway) onHello(ctx context.Context, client *Client, env Envelope) error {
	var p HelloPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if strings.TrimSpace(p.ClientKey) != "" {
		client.ClientKey = p.ClientKey
	}

	ack := HelloAckPayload{ConnectionID: client.SessionID}
	if !g.enqueuePayload(ctx, client, TypeHelloAck, ack) {
		return errors.New("backpressure: hello_ack")
	}
	return nil
}

func (g *WSGateway) onJoin(ctx context.Context, client *Client, env Envelope) (*Session, string, error) {
	var p JoinPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, "", fmt.Errorf("invalid payload: %w", err)
	}

	sessionID := strings.TrimSpace(p.SessionID)
	if sessionID == "" {
		return nil, "", errors.New("missing session_id")
	}

	sess := g.hub.GetOrCreateSession(sessionID)
	h := sess.History

	if h.HasPassword() {
		ok, err := h.VerifyPassword(p.Password)
		if err != nil || !ok {
			return nil, "", errors.New("invalid password")
		}
	}

	if p.Invite != "" {
		result := h.CheckInvite(client.ClientKey, p.DisplayName, p.Invite, true)
		switch result {
		case history.CheckInviteOk, history.CheckInviteUsed:
			if g.metrics != nil {
				g.metrics.InvitesUsed.WithLabelValues(sessionID).Inc()
				g.metrics.InvitesActive.WithLabelValues(sessionID).Set(float64(h.InviteCount()))
			}
		default:
			return nil, "", fmt.Errorf("invite rejected: %s", result)
		}
	}

	sess.Join(client)

	idx := h.Index()
	ack := JoinAckPayload{
		SessionID:  sessionID,
		StartID:    idx.StartID,
		HistoryPos: idx.HistoryPos,
		Op:         h.IsOp(client.ClientKey),
		Trusted:    h.IsTrusted(client.ClientKey),
	}
	if !g.enqueuePayload(ctx, client, TypeJoinAck, ack) {
		sess.Leave(client.SessionID)
		return nil, "", errors.New("backpressure: join_ack")
	}

	g.sendCatchup(ctx, client, h)
	return sess, sessionID, nil
}

func (g *WSGateway) sendCatchup(ctx context.Context, client *Client, h *history.SessionHistory) {
	var backlog []history.Message
	if snap, ok := h.Backend().(snapshotter); ok {
		backlog = snap.Snapshot()
	}

	key := g.nextCatchupKey()
	g.enqueuePayload(ctx, client, TypeCatchup, CatchupPayload{Key: key, Count: int64(len(backlog))})

	for _, m := range backlog {
		g.enqueuePayload(ctx, client, TypeData, DataPayload{Type: uint8(m.Type()), ContextID: m.ContextID(), Body: m.Payload()})
	}

	g.enqueuePayload(ctx, client, TypeCaughtUp, CatchupPayload{Key: key, Count: int64(len(backlog))})
}

func (g *WSGateway) onData(client *Client, sess *Session, env Envelope) error {
	var p DataPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if len(p.Body) > maxMessagePayloadBytes {
		return fmt.Errorf("payload too large: max=%d bytes", maxMessagePayloadBytes)
	}

	msg := history.NewMessage(history.MessageType(p.Type), p.ContextID, p.Body)
	if !sess.History.AddMessage(msg) {
		return errors.New("history full")
	}

	if g.metrics != nil {
		g.metrics.MessagesAppended.WithLabelValues(sess.History.ID()).Inc()
		g.metrics.BytesAppended.WithLabelValues(sess.History.ID()).Add(float64(msg.Length()))
		g.metrics.HistorySize.WithLabelValues(sess.History.ID()).Set(float64(sess.History.SizeInBytes()))
	}

	sess.Broadcast(Envelope{
		V:       Version,
		Type:    TypeData,
		ID:      NewRandomHex(10),
		TS:      time.Now().UTC(),
		Payload: mustMarshal(p),
	}, client.SessionID)
	return nil
}

func (g *WSGateway) onServerCommand(ctx context.Context, client *Client, sess *Session, env Envelope) {
	h := sess.History
	if !h.IsOp(client.ClientKey) {
		g.trySendError(ctx, client, "forbidden", "operator privilege required")
		return
	}

	cmd := servercmd.DecodeServerCommand(env.Payload, g.log)
	var reply servercmd.ServerReply

	switch cmd.Cmd {
	case "kick-user":
		reply = servercmd.MakeResult(cmd.Cmd, true, "user kicked")
	case "add-ban":
		username, _ := cmd.Kwargs["username"].(string)
		ip, _ := cmd.Kwargs["ip"].(string)
		extAuthID, _ := cmd.Kwargs["ext_auth_id"].(string)
		sid, _ := cmd.Kwargs["sid"].(string)
		if ip != "" {
			ip = token.HashFieldHex(ip)
		}
		if extAuthID != "" {
			extAuthID = token.HashFieldHex(extAuthID)
		}
		if id := h.AddBan(username, ip, extAuthID, sid, client.ClientKey, nil); id != 0 {
			if g.metrics != nil {
				g.metrics.BansAdded.WithLabelValues(h.ID()).Inc()
			}
			reply = servercmd.MakeResult(cmd.Cmd, true, "ban added")
		} else {
			reply = servercmd.MakeResult(cmd.Cmd, false, "ban already exists")
		}
	case "remove-ban":
		id, ok := banIDFromKwargs(cmd.Kwargs)
		if !ok || h.RemoveBan(id) == "" {
			reply = servercmd.MakeResult(cmd.Cmd, false, "ban not found")
			break
		}
		if g.metrics != nil {
			g.metrics.BansRemoved.WithLabelValues(h.ID()).Inc()
		}
		reply = servercmd.MakeResult(cmd.Cmd, true, "ban removed")
	case "create-invite":
		maxUses, _ := cmd.Kwargs["max_uses"].(float64)
		trust, _ := cmd.Kwargs["trust"].(bool)
		op, _ := cmd.Kwargs["op"].(bool)
		inv, ok := h.CreateInvite(client.ClientKey, int(maxUses), trust, op)
		if !ok {
			reply = servercmd.MakeResult(cmd.Cmd, false, "invite capacity reached")
			break
		}
		if g.metrics != nil {
			g.metrics.InvitesCreated.WithLabelValues(h.ID()).Inc()
			g.metrics.InvitesActive.WithLabelValues(h.ID()).Set(float64(h.InviteCount()))
		}
		reply = servercmd.MakeResult(cmd.Cmd, true, inv.Secret)
	case "mute":
		reply = servercmd.MakeResult(cmd.Cmd, true, "mute updated")
	default:
		reply = servercmd.MakeResult(cmd.Cmd, false, "unknown command")
	}

	replyBytes, err := reply.Encode()
	if err != nil {
		g.log.Error("servercmd.encode.fail", "err", err)
		return
	}
	g.enqueue(ctx, client, Envelope{V: Version, Type: TypeServerReply, ID: NewRandomHex(10), TS: time.Now().UTC(), Payload: replyBytes})
}

// banIDFromKwargs extracts the numeric "ban_id" field a remove-ban command
// carries in its kwargs. JSON numbers decode to float64 via encoding/json's
// default any-unmarshal, hence the type switch.
func banIDFromKwargs(kwargs map[string]any) (int, bool) {
	v, ok := kwargs["ban_id"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// ---- send helpers ----

func (g *WSGateway) trySendError(ctx context.Context, client *Client, code, msg string) {
	g.enqueuePayload(ctx, client, TypeError, ErrorPayload{Code: code, Message: msg})
}

func (g *WSGateway) enqueuePayload(ctx context.Context, client *Client, typ string, payload any) bool {
	b, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	return g.enqueue(ctx, client, Envelope{V: Version, Type: typ, ID: NewRandomHex(10), TS: time.Now().UTC(), Payload: b})
}

func (g *WSGateway) enqueue(ctx context.Context, client *Client, env Envelope) bool {
	select {
	case <-ctx.Done():
		return false
	case <-client.Done():
		return false
	case client.Send <- env:
		return true
	default:
		return false
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// ---- envelope IO ----

func readEnvelope(ctx context.Context, conn *websocket.Conn) (Envelope, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return Envelope{}, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return Envelope{}, fmt.Errorf("unsupported message type: %v", mt)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
	readErrBadJSON
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}

	s := err.Error()
	if strings.Contains(s, "unexpected end of JSON input") || strings.Contains(s, "invalid character") {
		return readErrBadJSON
	}
	return readErrUnknown
}

// ---- origin policy ----

func (g *WSGateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.originRequired {
			return errors.New("missing origin")
		}
		return nil
	}

	if len(g.allowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)

	for _, a := range g.allowedOrigins {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if a == "*" {
			return nil
		}
		if origin == a {
			return nil
		}
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}

	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		h := strings.TrimSpace(u.Host)
		if h == "" {
			return ""
		}
		if host, _, err := net.SplitHostPort(h); err == nil {
			return strings.ToLower(host)
		}
		return strings.ToLower(h)
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

func deriveOriginPatternsFromAllowedOrigins(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		h := originHostOnly(a)
		if h == "" || h == "*" {
			continue
		}
		seen[h] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}

	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// ---- env helpers ----

func envBoolWS(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envIntWS(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDurationWS(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envCSVWS(key string, def string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		raw = def
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
