package game

import (
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/s0930s44/BINGO/domain"
	"github.com/s0930s44/BINGO/logger"
)

// PeriodicTickerChannelCreator abstracts time.Ticker so tests can drive the
// reconciliation sweep by hand.
type PeriodicTickerChannelCreator interface {
	Create(d time.Duration) <-chan time.Time
}

type inboundEvent struct {
	from *Client
	env  Envelope
}

type registration struct {
	client *Client
	ack    chan struct{}
}

type roomExpiry struct {
	room string
	gen  uint64
}

// HubConfig carries the policy knobs the event loop needs.
type HubConfig struct {
	ReconcileInterval time.Duration
	RoomGrace         time.Duration
	LockOnStart       bool
}

// Hub routes every client event through a single goroutine that owns the
// registry and the session table. Each mutation and the broadcasts it
// triggers run as one unit, so no event can observe a half-applied change.
type Hub struct {
	registry *Registry
	sessions *SessionTable
	persist  Persistence

	clients map[string]*Client

	register    chan registration
	unregister  chan *Client
	inbound     chan inboundEvent
	expirations chan roomExpiry

	reconcileEvery time.Duration
	tickerCreator  PeriodicTickerChannelCreator

	quit chan struct{}
	done chan struct{}
}

func NewHub(cfg HubConfig, verifier SecretVerifier, persist Persistence, tickers PeriodicTickerChannelCreator) *Hub {
	h := &Hub{
		sessions:       NewSessionTable(verifier),
		persist:        persist,
		clients:        make(map[string]*Client),
		register:       make(chan registration),
		unregister:     make(chan *Client, 32),
		inbound:        make(chan inboundEvent, 256),
		expirations:    make(chan roomExpiry, 32),
		reconcileEvery: cfg.ReconcileInterval,
		tickerCreator:  tickers,
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	h.registry = NewRegistry(cfg.RoomGrace, cfg.LockOnStart, h.scheduleExpiry)
	return h
}

// Run processes events in arrival order until Stop. The started channel is
// closed once the loop is live so callers can wait for it.
func (h *Hub) Run(started chan struct{}) {
	ticker := h.tickerCreator.Create(h.reconcileEvery)
	close(started)
	defer close(h.done)
	for {
		select {
		case reg := <-h.register:
			h.clients[reg.client.id] = reg.client
			logger.Debugf("conn %s registered", reg.client.id)
			close(reg.ack)
		case c := <-h.unregister:
			h.handleDisconnect(c)
		case ev := <-h.inbound:
			h.handleEvent(ev)
		case exp := <-h.expirations:
			h.handleExpiry(exp)
		case <-ticker:
			h.reconcile()
		case <-h.quit:
			return
		}
	}
}

// Stop terminates the loop. Events still queued are discarded.
func (h *Hub) Stop() {
	close(h.quit)
	<-h.done
}

// Register announces a new connection and waits until the loop has taken it
// in. The caller starts the pumps only afterwards, so no frame can reach the
// loop before its sender is known.
func (h *Hub) Register(c *Client) {
	ack := make(chan struct{})
	select {
	case h.register <- registration{client: c, ack: ack}:
	case <-h.done:
		return
	}
	select {
	case <-ack:
	case <-h.done:
	}
}

// Disconnect reports a dead connection. Safe to call more than once; after
// the hub has stopped it is a no-op.
func (h *Hub) Disconnect(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Deliver posts one decoded frame into the event loop.
func (h *Hub) Deliver(ev inboundEvent) {
	select {
	case h.inbound <- ev:
	case <-h.done:
	}
}

// scheduleExpiry arms a timer that reports the idle room back into the
// loop. The expiry is re-validated there against the room's generation, so
// a timer that fires while a rejoin is in flight cannot delete the room.
func (h *Hub) scheduleExpiry(roomName string, gen uint64, after time.Duration) *time.Timer {
	return time.AfterFunc(after, func() {
		select {
		case h.expirations <- roomExpiry{room: roomName, gen: gen}:
		case <-h.done:
		}
	})
}

func (h *Hub) handleEvent(ev inboundEvent) {
	// A frame can arrive queued behind its sender's disconnect.
	if _, ok := h.clients[ev.from.id]; !ok {
		return
	}
	switch ev.env.Event {
	case EventLogin:
		h.handleLogin(ev.from, ev.env.Data)
	case EventRequestRoomsList:
		h.sendTo(ev.from, EventRoomsListUpdate, RoomsList{RoomNames: h.registry.RoomNames()})
	case EventDrawNumber:
		h.handleDraw(ev.from, ev.env.Data)
	case EventUpdateLineCount:
		h.handleProgress(ev.from, ev.env.Data)
	default:
		logger.Warningf("conn %s: unknown event %q", ev.from.id, ev.env.Event)
	}
}

func (h *Hub) handleLogin(c *Client, data json.RawMessage) {
	var req LoginRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendTo(c, EventLoginError, LoginError{Message: "invalid-login-payload"})
		return
	}
	sess, created, err := h.sessions.Login(c.id, req.Username, req.Room, req.IsAdmin, req.AdminSecret, h.registry)
	if err != nil {
		h.sendTo(c, EventLoginError, LoginError{Message: err.Error()})
		return
	}
	logger.Infof("%s %q joined room %q (conn %s)", sess.Role, sess.Username, sess.Room, c.id)

	h.persist.UpsertUser(userRecord(sess))
	if rec, ok := h.registry.roomRecord(sess.Room); ok {
		h.persist.UpsertRoom(rec)
	}

	h.sendTo(c, EventLoginSuccess, LoginSuccess{Room: sess.Room, IsAdmin: sess.Role == RoleAdmin})
	if created {
		h.broadcastRoomsList()
	}
	h.pushRoomViews(sess.Room)
}

func (h *Hub) handleDraw(c *Client, data json.RawMessage) {
	sess, ok := h.sessions.Get(c.id)
	if !ok || sess.Role != RoleAdmin {
		h.sendTo(c, EventErrorMessage, ErrorMessage{Message: domain.ErrNotAdmin.Error()})
		return
	}
	var req DrawNumberRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendTo(c, EventErrorMessage, ErrorMessage{Message: "invalid-draw-payload"})
		return
	}
	if err := h.registry.RecordDraw(sess.Room, req.Number); err != nil {
		h.sendTo(c, EventErrorMessage, ErrorMessage{Message: err.Error()})
		return
	}
	logger.Infof("room %q: number %d drawn by %q", sess.Room, req.Number, sess.Username)

	h.persist.InsertDrawnNumber(sess.Room, req.Number, h.registry.DrawCount(sess.Room)-1)
	if rec, ok := h.registry.roomRecord(sess.Room); ok {
		h.persist.UpsertRoom(rec)
	}

	h.broadcastRoom(sess.Room, EventNumberDrawn, NumberDrawn{Number: req.Number})
	h.broadcastRoom(sess.Room, EventLockCards, nil)
	h.pushRoomViews(sess.Room)
}

func (h *Hub) handleProgress(c *Client, data json.RawMessage) {
	var req UpdateLineCountRequest
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Warningf("conn %s: bad line count payload: %v", c.id, err)
		return
	}
	if !h.sessions.RecordProgress(c.id, req.LineCount) {
		return
	}
	sess, _ := h.sessions.Get(c.id)
	h.persist.UpsertUser(userRecord(sess))
	h.pushAdmins(sess.Room, EventLineCountUpdate, computeLineCountView(h.sessions, sess.Room))
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	sess, ok := h.sessions.Remove(c.id)
	if !ok {
		return
	}
	logger.Infof("%s %q left room %q (conn %s)", sess.Role, sess.Username, sess.Room, c.id)
	h.persist.DeleteUser(sess.ConnID)

	deleted := h.registry.Leave(sess.Room, sess.Role == RoleAdmin)
	if deleted {
		logger.Infof("room %q deleted", sess.Room)
		h.persist.DeleteRoom(sess.Room)
	} else if rec, ok := h.registry.roomRecord(sess.Room); ok {
		h.persist.UpsertRoom(rec)
	}

	h.broadcastRoomsList()
	if !deleted {
		h.pushRoomViews(sess.Room)
	}
}

func (h *Hub) handleExpiry(exp roomExpiry) {
	if !h.registry.ExpireIfIdle(exp.room, exp.gen) {
		return
	}
	logger.Infof("room %q idle grace elapsed, deleted", exp.room)
	h.persist.DeleteRoom(exp.room)
	h.broadcastRoomsList()
}

// reconcile runs inside the loop, so it can never overlap itself or any
// other event. Registry counters are overwritten from the session table,
// rooms corrected to zero members get the usual deletion policy, and the
// storage backend is re-synced in the background from the fixed snapshot.
func (h *Hub) reconcile() {
	for _, name := range h.registry.RoomNames() {
		members, admins := h.sessions.CountsInRoom(name)
		drifted, deleted := h.registry.ReconcileCounts(name, members, admins)
		if drifted {
			logger.Warningf("reconcile: room %q counters corrected to %d members / %d admins", name, members, admins)
		}
		if deleted {
			logger.Warningf("reconcile: room %q had no live members, deleted", name)
			h.persist.DeleteRoom(name)
		}
	}
	h.broadcastRoomsList()
	h.persist.SyncRooms(h.registry.Snapshot())
}

func (h *Hub) sendTo(c *Client, event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logger.Criticalf("encode %s: %v", event, err)
		return
	}
	h.deliverFrame(c, data)
}

func (h *Hub) broadcastAll(event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logger.Criticalf("encode %s: %v", event, err)
		return
	}
	for _, c := range h.clients {
		h.deliverFrame(c, data)
	}
}

func (h *Hub) broadcastRoomsList() {
	h.broadcastAll(EventRoomsListUpdate, RoomsList{RoomNames: h.registry.RoomNames()})
}

func (h *Hub) broadcastRoom(roomName, event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logger.Criticalf("encode %s: %v", event, err)
		return
	}
	for _, sess := range h.sessions.InRoom(roomName) {
		if c, ok := h.clients[sess.ConnID]; ok {
			h.deliverFrame(c, data)
		}
	}
}

func (h *Hub) pushAdmins(roomName, event string, payload any) {
	data, err := encodeEvent(event, payload)
	if err != nil {
		logger.Criticalf("encode %s: %v", event, err)
		return
	}
	for _, sess := range h.sessions.InRoom(roomName) {
		if sess.Role != RoleAdmin {
			continue
		}
		if c, ok := h.clients[sess.ConnID]; ok {
			h.deliverFrame(c, data)
		}
	}
}

// pushRoomViews refreshes the admin-facing aggregates after a membership or
// progress change in roomName.
func (h *Hub) pushRoomViews(roomName string) {
	h.pushAdmins(roomName, EventPlayersUpdate, computePlayersView(h.sessions, roomName))
	h.pushAdmins(roomName, EventLineCountUpdate, computeLineCountView(h.sessions, roomName))
}

// deliverFrame enqueues without blocking. A client whose queue is full is
// not keeping up; it gets closed and cleans itself up through ReadPump.
func (h *Hub) deliverFrame(c *Client, data []byte) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	if !c.enqueue(data) {
		logger.Warningf("conn %s: send queue full, closing connection", c.id)
		c.conn.Close("slow consumer")
	}
}

func userRecord(sess *Session) domain.UserRecord {
	return domain.UserRecord{
		ConnID:   sess.ConnID,
		Username: sess.Username,
		Room:     sess.Room,
		IsAdmin:  sess.Role == RoleAdmin,
		Progress: sess.Progress,
	}
}
