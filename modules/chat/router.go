package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/example/presence-chat/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

// RouterConfig tunes a Router.
type RouterConfig struct {
	HistorySize   int
	TypingTimeout time.Duration
	InboxSize     int
	// StrictInvariants panics on registry/store desync instead of logging.
	StrictInvariants bool
}

// Stats is the read-only query surface over router state.
type Stats struct {
	Connections int                  `json:"connections"`
	Rooms       int                  `json:"rooms"`
	Summaries   []domain.RoomSummary `json:"summaries"`
	Typing      int                  `json:"typing"`
	StartedAt   time.Time            `json:"started_at"`
	Uptime      time.Duration        `json:"uptime"`
}

type request struct {
	cmd Command
	// expiry is set for timer-driven typing expiry instead of cmd.
	expiry *typingExpiry
	done   chan error
}

type typingExpiry struct {
	room   string
	connID string
	gen    uint64
}

type delivery struct {
	ids []string
	ev  Event
}

// Router is the single serialization point for every state mutation. Commands
// are queued on an inbox and handled one at a time by Run; mutation finishes
// before any fan-out starts.
type Router struct {
	mu        sync.RWMutex
	registry  ConnectionRegistry
	rooms     RoomStore
	presence  *Tracker
	lifecycle *Lifecycle
	lastID    uint64

	deliverer Deliverer
	notifier  Notifier
	logger    types.Logger
	strict    bool

	inbox     chan request
	stopped   chan struct{}
	running   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	startedAt time.Time
}

// NewRouter creates a Router over fresh in-memory state.
func NewRouter(cfg RouterConfig, logger types.Logger) *Router {
	return NewRouterWith(cfg, NewMemoryRegistry(), NewMemoryRoomStore(cfg.HistorySize), logger)
}

// NewRouterWith creates a Router over the given registry and store.
func NewRouterWith(cfg RouterConfig, registry ConnectionRegistry, rooms RoomStore, logger types.Logger) *Router {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1024
	}
	r := &Router{
		registry:  registry,
		rooms:     rooms,
		deliverer: nopDeliverer{},
		notifier:  nopNotifier{},
		logger:    logger,
		strict:    cfg.StrictInvariants,
		inbox:     make(chan request, cfg.InboxSize),
		stopped:   make(chan struct{}),
		running:   make(chan struct{}),
		startedAt: time.Now(),
	}
	r.presence = NewTracker(registry, rooms, cfg.TypingTimeout, r.enqueueExpiry)
	r.lifecycle = NewLifecycle(registry, rooms, r.presence, r.nextID)
	return r
}

// SetDeliverer sets the transport. Must be called before Run.
func (r *Router) SetDeliverer(d Deliverer) {
	if d != nil {
		r.deliverer = d
	}
}

// SetNotifier sets the domain fact sink. Must be called before Run.
func (r *Router) SetNotifier(n Notifier) {
	if n != nil {
		r.notifier = n
	}
}

// EnsureRoom creates room at startup if it does not exist yet. It reports
// whether the room was created.
func (r *Router) EnsureRoom(name string) bool {
	key := domain.NormalizeRoomKey(name)
	if key == "" {
		return false
	}
	r.mu.Lock()
	room, created := r.rooms.GetOrCreate(key, strings.TrimSpace(name))
	r.mu.Unlock()
	if created {
		r.notifier.RoomCreated(room, "system")
	}
	return created
}

// Run processes the inbox until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	r.startOnce.Do(func() { close(r.running) })
	defer r.stopOnce.Do(func() {
		close(r.stopped)
		r.mu.Lock()
		r.presence.Stop()
		r.mu.Unlock()
	})

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Router stopping")
			return
		case req := <-r.inbox:
			err := r.process(req)
			if req.done != nil {
				req.done <- err
			}
		}
	}
}

// Done is closed once Run has returned.
func (r *Router) Done() <-chan struct{} {
	return r.stopped
}

// Running reports whether Run has started and not yet returned.
func (r *Router) Running() bool {
	select {
	case <-r.running:
	default:
		return false
	}
	select {
	case <-r.stopped:
		return false
	default:
		return true
	}
}

// Submit queues cmd and waits until it has been processed. The returned
// error is the same one reported to the sender as an error event.
func (r *Router) Submit(ctx context.Context, cmd Command) error {
	req := request{cmd: cmd, done: make(chan error, 1)}
	select {
	case r.inbox <- req:
	case <-r.stopped:
		return domain.ErrRouterStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-r.stopped:
		return domain.ErrRouterStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueueExpiry runs on a timer goroutine.
func (r *Router) enqueueExpiry(room, connID string, gen uint64) {
	select {
	case r.inbox <- request{expiry: &typingExpiry{room: room, connID: connID, gen: gen}}:
	case <-r.stopped:
	}
}

func (r *Router) process(req request) error {
	r.mu.Lock()
	var (
		out    *outcome
		err    error
		connID = req.cmd.ConnID
	)
	if req.expiry != nil {
		connID = req.expiry.connID
		out = &outcome{events: r.presence.Expire(req.expiry.room, connID, req.expiry.gen)}
	} else {
		out, err = r.dispatch(req.cmd)
	}
	if err != nil {
		out = &outcome{events: []Event{ErrorEvent(connID, err)}}
	}
	deliveries := r.resolve(out.events)
	r.checkInvariants(connID, out.events)
	r.mu.Unlock()

	for _, d := range deliveries {
		r.deliverer.Deliver(d.ids, d.ev)
	}
	for _, fn := range out.notices {
		fn(r.notifier)
	}

	if err != nil {
		r.logger.Debug("Command rejected",
			"type", string(req.cmd.Type),
			"connID", req.cmd.ConnID,
			"error", err)
	}
	return err
}

// requiredState is the connection state each command is accepted in.
// Disconnect is accepted in any state.
var requiredState = map[CommandType]domain.ConnState{
	CmdJoin:           domain.StateUnjoined,
	CmdSendMessage:    domain.StateJoined,
	CmdTyping:         domain.StateJoined,
	CmdStopTyping:     domain.StateJoined,
	CmdSwitchRoom:     domain.StateJoined,
	CmdPrivateMessage: domain.StateJoined,
}

// state reports where connID is in its lifecycle. Disconnect deletes the
// session, so a connection id is only ever seen as unjoined or joined here;
// the transport stops submitting once it has sent the disconnect.
func (r *Router) state(connID string) domain.ConnState {
	if _, joined := r.registry.Lookup(connID); joined {
		return domain.StateJoined
	}
	return domain.StateUnjoined
}

func (r *Router) dispatch(cmd Command) (*outcome, error) {
	from := r.state(cmd.ConnID)
	if want, ok := requiredState[cmd.Type]; ok && from != want {
		return nil, fmt.Errorf("%s: %w: connection is %s", cmd.Type, domain.ErrInvalidEventForState, from)
	}

	switch cmd.Type {
	case CmdJoin:
		return r.lifecycle.Join(cmd.ConnID, cmd.DisplayName, cmd.Room)
	case CmdSwitchRoom:
		return r.lifecycle.SwitchRoom(cmd.ConnID, cmd.Room)
	case CmdDisconnect:
		out, err := r.lifecycle.Disconnect(cmd.ConnID)
		if err == nil {
			r.logger.Debug("Connection state changed",
				"connID", cmd.ConnID,
				"from", from.String(),
				"to", domain.StateDisconnected.String())
		}
		return out, err
	case CmdSendMessage:
		return r.sendMessage(cmd)
	case CmdTyping:
		return r.typing(cmd, true)
	case CmdStopTyping:
		return r.typing(cmd, false)
	case CmdPrivateMessage:
		return r.privateMessage(cmd)
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidPayload, cmd.Type)
	}
}

func (r *Router) sendMessage(cmd Command) (*outcome, error) {
	session, _ := r.registry.Lookup(cmd.ConnID)
	if err := ValidateMessage(cmd.Text); err != nil {
		return nil, err
	}
	msg := domain.Message{
		ID:         r.nextID(),
		Kind:       domain.KindUser,
		Room:       session.RoomKey,
		SenderID:   session.ConnID,
		SenderName: session.DisplayName,
		Text:       cmd.Text,
		Timestamp:  time.Now(),
	}
	if err := r.rooms.AppendMessage(session.RoomKey, msg); err != nil {
		return nil, err
	}

	out := &outcome{}
	out.emit(r.presence.StopTyping(session.RoomKey, session.ConnID)...)
	out.emit(messageEvent(AllInRoom(session.RoomKey), msg))
	out.notify(func(n Notifier) { n.MessageSent(msg) })
	return out, nil
}

func (r *Router) typing(cmd Command, start bool) (*outcome, error) {
	session, _ := r.registry.Lookup(cmd.ConnID)
	if start {
		return &outcome{events: r.presence.StartTyping(session.RoomKey, session.ConnID)}, nil
	}
	return &outcome{events: r.presence.StopTyping(session.RoomKey, session.ConnID)}, nil
}

func (r *Router) privateMessage(cmd Command) (*outcome, error) {
	sender, _ := r.registry.Lookup(cmd.ConnID)
	target := strings.TrimSpace(cmd.Target)
	if target == "" {
		return nil, ErrTargetEmpty
	}
	if err := ValidateMessage(cmd.Text); err != nil {
		return nil, err
	}
	recipient, ok := r.registry.Lookup(target)
	if !ok {
		return nil, fmt.Errorf("private-message to %s: %w", target, domain.ErrUnknownTarget)
	}

	msg := domain.Message{
		ID:         r.nextID(),
		Kind:       domain.KindPrivate,
		SenderID:   sender.ConnID,
		SenderName: sender.DisplayName,
		To:         recipient.ConnID,
		ToName:     recipient.DisplayName,
		Text:       cmd.Text,
		Timestamp:  time.Now(),
	}
	payload := PrivateMessagePayload{
		ID:        msg.ID,
		From:      sender.DisplayName,
		FromID:    sender.ConnID,
		To:        recipient.DisplayName,
		ToID:      recipient.ConnID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}

	out := &outcome{}
	out.emit(Event{Type: EventPrivateMessage, Payload: payload, To: Single(recipient.ConnID)})
	if recipient.ConnID != sender.ConnID {
		out.emit(Event{Type: EventPrivateMessage, Payload: payload, To: Single(sender.ConnID)})
	}
	out.notify(func(n Notifier) { n.PrivateMessageSent(msg) })
	return out, nil
}

// resolve turns recipient selectors into connection ids against the state
// as it stands after the command's mutation.
func (r *Router) resolve(events []Event) []delivery {
	out := make([]delivery, 0, len(events))
	for _, ev := range events {
		var ids []string
		switch ev.To.Kind {
		case RecipientSingle:
			ids = []string{ev.To.ConnID}
		case RecipientAllInRoom:
			ids = r.rooms.Members(ev.To.Room)
		case RecipientAllInRoomExcept:
			for _, id := range r.rooms.Members(ev.To.Room) {
				if id != ev.To.ConnID {
					ids = append(ids, id)
				}
			}
		}
		if len(ids) > 0 {
			out = append(out, delivery{ids: ids, ev: ev})
		}
	}
	return out
}

// checkInvariants verifies registry and room store agree on membership. A
// strict router scans all state; otherwise only the rooms addressed by
// events and connID's own session are checked. Must be called with r.mu
// held.
func (r *Router) checkInvariants(connID string, events []Event) {
	if r.strict {
		for _, room := range r.rooms.ListRooms() {
			r.checkMembers(room.Key, room.Members)
		}
		for _, s := range r.registry.Sessions() {
			r.checkSession(s)
		}
		return
	}

	checked := make(map[string]bool)
	for _, ev := range events {
		if ev.To.Kind == RecipientSingle || checked[ev.To.Room] {
			continue
		}
		checked[ev.To.Room] = true
		r.checkMembers(ev.To.Room, r.rooms.Members(ev.To.Room))
	}
	if s, ok := r.registry.Lookup(connID); ok {
		r.checkSession(s)
	}
}

func (r *Router) checkMembers(key string, members []string) {
	for _, id := range members {
		s, ok := r.registry.Lookup(id)
		if !ok {
			r.violation("member %s of room %q is not registered", id, key)
			continue
		}
		if s.RoomKey != key {
			r.violation("member %s of room %q is registered in %q", id, key, s.RoomKey)
		}
	}
}

func (r *Router) checkSession(s domain.Session) {
	if !r.rooms.IsMember(s.RoomKey, s.ConnID) {
		r.violation("session %s is not a member of its room %q", s.ConnID, s.RoomKey)
	}
}

func (r *Router) violation(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.strict {
		panic("chat: invariant violated: " + msg)
	}
	r.logger.Error("Invariant violated", "detail", msg)
}

func (r *Router) nextID() uint64 {
	r.lastID++
	return r.lastID
}

// Read-only queries. They share the lock with process so they never observe
// a half-applied command.

// Stats returns connection and room counts with per-room summaries.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Connections: r.registry.Count(),
		Rooms:       r.rooms.Count(),
		Summaries:   r.lifecycle.Summaries(),
		Typing:      r.presence.Pending(),
		StartedAt:   r.startedAt,
		Uptime:      time.Since(r.startedAt),
	}
}

// Rooms returns summaries of every room in creation order.
func (r *Router) Rooms() []domain.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lifecycle.Summaries()
}

// History returns the history of the room named name, oldest first.
func (r *Router) History(name string) ([]domain.Message, error) {
	key := domain.NormalizeRoomKey(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.rooms.Exists(key) {
		return nil, fmt.Errorf("history of %q: %w", key, domain.ErrUnknownRoom)
	}
	return r.rooms.History(key), nil
}

// Presence returns the membership snapshot of the room named name.
func (r *Router) Presence(name string) (domain.Presence, error) {
	key := domain.NormalizeRoomKey(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.rooms.Exists(key) {
		return domain.Presence{}, fmt.Errorf("presence of %q: %w", key, domain.ErrUnknownRoom)
	}
	return r.presence.Snapshot(key), nil
}

// Session returns the session of a joined connection.
func (r *Router) Session(connID string) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registry.Lookup(connID)
}

// IsTyping reports whether connID is currently typing in its room.
func (r *Router) IsTyping(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.registry.Lookup(connID)
	return ok && r.presence.IsTyping(s.RoomKey, connID)
}
