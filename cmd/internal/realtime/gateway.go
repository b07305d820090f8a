package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// Gateway is the per-connection protocol state machine and the only component
// with a direct socket boundary.
//
// Per-connection states: Connected (no room) -> Joined(room) -> Joined(room')
// on a re-join (implicitly leaving the prior room) -> Closed. One goroutine
// reads inbound frames; one goroutine owns all outbound writes, fed by the
// client's bounded queue.
type Gateway struct {
	log      *slog.Logger
	registry *ConnectionRegistry
	rooms    RoomDirectory
	presence PresenceSet
	cache    RecentCache
	store    MessageStore
	relay    Relay
	tasks    *TaskRunner
	metrics  *Metrics
	subs     *subscriptions

	instanceID string

	writeTimeout    time.Duration
	readIdleTimeout time.Duration
	sendQueueSize   int

	heartbeatEvery   time.Duration
	heartbeatTimeout time.Duration

	rateEvents int
	rateWindow time.Duration

	// runCtx outlives individual connections; relay subscriptions and
	// detached work hang off it.
	runCtx    context.Context
	stop      context.CancelFunc
	closeOnce sync.Once
}

// GatewayConfig carries the gateway's tunables. Zero values take defaults.
type GatewayConfig struct {
	InstanceID string

	WriteTimeout    time.Duration
	ReadIdleTimeout time.Duration
	SendQueueSize   int

	HeartbeatEvery   time.Duration
	HeartbeatTimeout time.Duration

	RateEvents int
	RateWindow time.Duration
}

// GatewayDeps carries the shared components the gateway coordinates.
// Nil fields fall back to in-memory implementations for dev.
type GatewayDeps struct {
	Registry *ConnectionRegistry
	Rooms    RoomDirectory
	Presence PresenceSet
	Cache    RecentCache
	Store    MessageStore
	Relay    Relay
	Tasks    *TaskRunner
	Metrics  *Metrics
}

// NewGateway constructs a gateway with defaults for any missing piece.
func NewGateway(log *slog.Logger, cfg GatewayConfig, deps GatewayDeps) *Gateway {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if deps.Registry == nil {
		deps.Registry = NewConnectionRegistry(log)
	}
	if deps.Rooms == nil {
		deps.Rooms = NewMemoryRoomDirectory()
	}
	if deps.Presence == nil {
		deps.Presence = NewMemoryPresenceSet()
	}
	if deps.Cache == nil {
		deps.Cache = NewMemoryRecentCache(DefaultCacheCapacity)
	}
	if deps.Store == nil {
		deps.Store = NewMemoryStore()
	}
	if deps.Relay == nil {
		deps.Relay = NewMemoryRelay()
	}
	if deps.Tasks == nil {
		deps.Tasks = NewTaskRunner(log, 4, 256)
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(prometheus.NewRegistry())
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = NewConnectionID()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReadIdleTimeout <= 0 {
		cfg.ReadIdleTimeout = defaultReadIdle
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}
	if cfg.SendQueueSize < minSendQueueSize {
		cfg.SendQueueSize = minSendQueueSize
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = heartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = heartbeatTimeout
	}
	if cfg.RateEvents <= 0 {
		cfg.RateEvents = rateLimitEvents
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = rateLimitWindow
	}

	runCtx, stop := context.WithCancel(context.Background())

	return &Gateway{
		log:      log,
		registry: deps.Registry,
		rooms:    deps.Rooms,
		presence: deps.Presence,
		cache:    deps.Cache,
		store:    deps.Store,
		relay:    deps.Relay,
		tasks:    deps.Tasks,
		metrics:  deps.Metrics,
		subs:     newSubscriptions(log, deps.Relay),

		instanceID: cfg.InstanceID,

		writeTimeout:    cfg.WriteTimeout,
		readIdleTimeout: cfg.ReadIdleTimeout,
		sendQueueSize:   cfg.SendQueueSize,

		heartbeatEvery:   cfg.HeartbeatEvery,
		heartbeatTimeout: cfg.HeartbeatTimeout,

		rateEvents: cfg.RateEvents,
		rateWindow: cfg.RateWindow,

		runCtx: runCtx,
		stop:   stop,
	}
}

// InstanceID identifies this gateway process.
func (g *Gateway) InstanceID() string { return g.instanceID }

// Registry exposes the connection registry for monitoring handlers.
func (g *Gateway) Registry() *ConnectionRegistry { return g.registry }

// Rooms exposes the room directory for monitoring handlers.
func (g *Gateway) Rooms() RoomDirectory { return g.rooms }

// Store exposes the message store for the stats endpoint.
func (g *Gateway) Store() MessageStore { return g.store }

// SubscriptionCount reports this instance's active room subscriptions.
func (g *Gateway) SubscriptionCount() int { return g.subs.count() }

// Bootstrap ensures the default room set exists and subscribes to each room's
// relay channel. Called once at startup.
func (g *Gateway) Bootstrap(ctx context.Context, roomIDs []string) error {
	for _, id := range roomIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := g.rooms.EnsureRoom(ctx, id, ""); err != nil {
			return fmt.Errorf("bootstrap room %q: %w", id, err)
		}
		if err := g.subscribeRoom(id); err != nil {
			return fmt.Errorf("bootstrap subscribe %q: %w", id, err)
		}
	}
	return nil
}

// Close cancels relay subscriptions and stops detached workers.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		g.stop()
		g.subs.close()
		g.tasks.Close()
	})
}

// ServeHTTP adapter so the gateway can be mounted as an http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS upgrades the request and runs the connection's protocol loop.
// Mount under a pattern with a {conn_id} path value; a missing id gets a
// server-assigned one.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	connID := strings.TrimSpace(r.PathValue("conn_id"))
	if connID == "" {
		connID = NewConnectionID()
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin policy belongs to the fronting proxy/load balancer; the
		// gateway itself accepts any origin, like the service it fronts for.
		InsecureSkipVerify: true,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	conn.SetReadLimit(maxFrameBytes)

	client := NewClient(connID, g.sendQueueSize)
	g.registry.Register(connID, client)
	g.metrics.Connections.Inc()
	g.log.Info("ws.connect", "conn_id", connID, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var closeOnce sync.Once

	// shutdown is idempotent. Membership and presence cleanup are synchronous
	// here; in-flight detached persistence is never awaited.
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			roomID, name, _ := g.registry.Unregister(connID, client)
			if roomID != "" {
				g.announceLeave(roomID, name)
			}
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
			g.metrics.Connections.Dec()
			g.log.Info("ws.disconnect", "conn_id", connID, "reason", reason)
		})
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)

		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				// Closed from fan-out: the send queue stalled.
				shutdown(websocket.StatusPolicyViolation, "send queue stalled")
				return
			case frame := <-client.Send:
				if err := writeFrame(ctx, conn, frame, g.writeTimeout); err != nil {
					g.log.Info("ws.write.fail", "conn_id", connID, "close_status", websocket.CloseStatus(err), "err", err)
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
					g.log.Info("ws.ping.fail", "conn_id", connID, "failures", failures, "err", err)
					if failures >= maxPingFailures {
						shutdown(websocket.StatusGoingAway, "heartbeat failed")
						return
					}
					continue
				}
				failures = 0
			}
		}
	}()

	rl := NewRateLimiter(g.rateEvents, g.rateWindow)

	var joinedRoom, joinedName string

readLoop:
	for {
		readCtx, readCancel := context.WithTimeout(ctx, g.readIdleTimeout)
		data, err := readFrame(readCtx, conn)
		readCancel()

		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose:
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case readErrCtxDone:
				shutdown(websocket.StatusNormalClosure, "context done")
			case readErrConnClosed:
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
			default:
				g.log.Info("ws.read.fail", "conn_id", connID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			break readLoop
		}

		if !rl.Allow(time.Now().UTC()) {
			g.sendError(client, "too many events")
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			break readLoop
		}

		f, kind, err := decodeFrame(data)
		if err != nil {
			g.sendError(client, "invalid JSON")
			continue readLoop
		}

		switch kind {
		case frameJoin:
			roomID, name, err := g.onJoin(ctx, client, f)
			if err != nil {
				g.log.Info("ws.join.fail", "conn_id", connID, "err", err)
				g.sendError(client, "join failed: "+err.Error())
				continue readLoop
			}
			joinedRoom, joinedName = roomID, name

		case frameSend:
			if joinedRoom == "" {
				g.sendError(client, "you must join a room first")
				continue readLoop
			}
			if err := g.onSend(ctx, client, joinedRoom, joinedName, *f.Content); err != nil {
				g.sendError(client, err.Error())
			}

		case framePing:
			g.sendPong(client)

		default:
			if f.Event != nil {
				g.sendError(client, "unknown event: "+*f.Event)
			} else {
				g.sendError(client, "unrecognized event format")
			}
		}
	}

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone

	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
}

// ---- handlers ----

// onJoin ensures the room, moves the connection's membership, backfills and
// reads recent history, sends history + welcome to the caller, and publishes a
// join notice. Returns the joined room and display name.
func (g *Gateway) onJoin(ctx context.Context, client *Client, f inboundFrame) (string, string, error) {
	roomID := strings.TrimSpace(derefString(f.RoomID))
	if roomID == "" {
		return "", "", errors.New("missing roomId")
	}
	name := strings.TrimSpace(derefString(f.DisplayName))
	if name == "" {
		name = "User_" + shortID(client.ConnID)
	}

	room, err := g.rooms.EnsureRoom(ctx, roomID, "")
	if err != nil {
		return "", "", fmt.Errorf("ensure room: %w", err)
	}

	prevRoom, prevName, ok := g.registry.SetRoom(client.ConnID, roomID, name)
	if !ok {
		return "", "", errors.New("connection not registered")
	}
	// The previous identity goes offline on a room switch and also on a
	// same-room rename, otherwise the old name stays in the presence set.
	if prevRoom != "" && (prevRoom != roomID || prevName != name) {
		g.announceLeave(prevRoom, prevName)
	}

	if err := g.presence.Add(ctx, roomID, name); err != nil {
		g.log.Warn("presence.add.fail", "room_id", roomID, "err", err)
	}

	if err := g.subscribeRoom(roomID); err != nil {
		g.log.Warn("relay.subscribe.fail", "room_id", roomID, "err", err)
	}

	history, err := g.roomHistory(ctx, roomID)
	if err != nil {
		g.log.Warn("history.fail", "room_id", roomID, "err", err)
	}
	for _, m := range history {
		g.send(client, m)
	}

	now := time.Now().UTC()
	g.send(client, systemMessage(roomID, fmt.Sprintf("Welcome to %s, %s!", room.Name, name), nil, now))

	users, err := g.presence.MembersOf(ctx, roomID)
	if err != nil {
		g.log.Warn("presence.members.fail", "room_id", roomID, "err", err)
	}
	g.publish(ctx, roomID, systemMessage(roomID, name+" joined the room", users, now))

	g.log.Info("room.join", "conn_id", client.ConnID, "room_id", roomID, "username", name)
	return roomID, name, nil
}

// onSend persists (detached), caches, and publishes one chat message.
func (g *Gateway) onSend(ctx context.Context, client *Client, roomID, name, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty message")
	}
	if len([]rune(content)) > maxMessageChars {
		return fmt.Errorf("message too long: max=%d chars", maxMessageChars)
	}

	now := time.Now().UTC()
	id, err := NewMessageID(now)
	if err != nil {
		id = NewConnectionID()
	}

	msg := Message{
		ID:              id,
		RoomID:          roomID,
		SenderID:        client.ConnID,
		Username:        name,
		Content:         content,
		TimestampMillis: now.UnixMilli(),
	}

	g.metrics.MessagesIn.Inc()

	// Durable append is best-effort from the hot path's perspective.
	g.tasks.Submit("store.append", func(taskCtx context.Context) error {
		return g.store.Append(taskCtx, msg)
	})

	if err := g.cache.Push(ctx, roomID, msg); err != nil {
		g.log.Warn("cache.push.fail", "room_id", roomID, "err", err)
	}

	g.publish(ctx, roomID, msg)
	return nil
}

// roomHistory reads the recent cache, backfilling it from the durable store
// on a miss so subsequent joins are served from cache.
func (g *Gateway) roomHistory(ctx context.Context, roomID string) ([]Message, error) {
	msgs, err := g.cache.Recent(ctx, roomID)
	if err != nil {
		g.log.Warn("cache.read.fail", "room_id", roomID, "err", err)
		msgs = nil
	}
	if len(msgs) > 0 {
		return msgs, nil
	}

	msgs, err = g.store.Recent(ctx, roomID, g.cache.Capacity())
	if err != nil {
		return nil, fmt.Errorf("store recent: %w", err)
	}
	for _, m := range msgs {
		if err := g.cache.Push(ctx, roomID, m); err != nil {
			g.log.Warn("cache.backfill.fail", "room_id", roomID, "err", err)
			break
		}
	}
	return msgs, nil
}

// ---- fan-out ----

// subscribeRoom establishes this instance's relay subscription for roomID,
// exactly once per room.
func (g *Gateway) subscribeRoom(roomID string) error {
	added, err := g.subs.ensure(g.runCtx, roomID, func(m Message) {
		g.metrics.RelayDelivered.Inc()
		g.deliverLocal(roomID, m)
	})
	if err != nil {
		return err
	}
	if added {
		g.metrics.Subscriptions.Inc()
	}
	return nil
}

// publish hands msg to the relay. On relay failure the message is still
// fanned out to local members so a bus outage degrades rather than silences.
func (g *Gateway) publish(ctx context.Context, roomID string, msg Message) {
	if err := g.relay.Publish(ctx, roomID, msg); err != nil {
		g.log.Warn("relay.publish.fail", "room_id", roomID, "err", err)
		g.deliverLocal(roomID, msg)
		return
	}
	g.metrics.RelayPublished.Inc()
}

// deliverLocal fans one message out to this instance's members of roomID.
// A member whose queue is full is disconnected rather than allowed to block
// the fan-out of others.
func (g *Gateway) deliverLocal(roomID string, msg Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		g.log.Error("fanout.marshal.fail", "room_id", roomID, "err", err)
		return
	}

	for _, cl := range g.registry.MembersOf(roomID) {
		if cl.TryEnqueue(frame) {
			g.metrics.MessagesOut.Inc()
			continue
		}
		g.metrics.SlowConsumers.Inc()
		g.log.Warn("fanout.slow_consumer", "room_id", roomID, "conn_id", cl.ConnID)
		cl.Close()
	}
}

// announceLeave runs the synchronous side of leaving a room: presence removal
// and a leave notice. It uses a background context because the connection's
// request context may already be dead on the disconnect path.
func (g *Gateway) announceLeave(roomID, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.presence.Remove(ctx, roomID, name); err != nil {
		g.log.Warn("presence.remove.fail", "room_id", roomID, "err", err)
	}
	users, err := g.presence.MembersOf(ctx, roomID)
	if err != nil {
		g.log.Warn("presence.members.fail", "room_id", roomID, "err", err)
	}

	g.publish(ctx, roomID, systemMessage(roomID, name+" left the room", users, time.Now().UTC()))
	g.log.Info("room.leave", "room_id", roomID, "username", name)
}

// ---- per-client sends ----

func (g *Gateway) send(client *Client, msg Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		g.log.Error("send.marshal.fail", "err", err)
		return
	}
	if !client.TryEnqueue(frame) {
		g.metrics.SlowConsumers.Inc()
		client.Close()
	}
}

func (g *Gateway) sendError(client *Client, text string) {
	frame, err := json.Marshal(errorMessage(text, time.Now().UTC()))
	if err != nil {
		return
	}
	_ = client.TryEnqueue(frame)
}

func (g *Gateway) sendPong(client *Client) {
	frame, err := json.Marshal(pongFrame{Event: "pong"})
	if err != nil {
		return
	}
	_ = client.TryEnqueue(frame)
}

// ---- frame IO ----

func readFrame(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return nil, fmt.Errorf("unsupported message type: %v", mt)
	}
	return data, nil
}

func writeFrame(parent context.Context, conn *websocket.Conn, frame []byte, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
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
	return readErrUnknown
}

// ---- small helpers ----

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
