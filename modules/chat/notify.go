package chat

import domain "github.com/example/presence-chat/domain/chat"

// Notifier is told about domain facts after the Router has committed them.
// The module publishes them on the EventBus.
type Notifier interface {
	MessageSent(msg domain.Message)
	PrivateMessageSent(msg domain.Message)
	UserJoined(session domain.Session)
	UserLeft(session domain.Session, room string)
	RoomCreated(room Room, createdBy string)
}

type nopNotifier struct{}

func (nopNotifier) MessageSent(domain.Message)        {}
func (nopNotifier) PrivateMessageSent(domain.Message) {}
func (nopNotifier) UserJoined(domain.Session)         {}
func (nopNotifier) UserLeft(domain.Session, string)   {}
func (nopNotifier) RoomCreated(Room, string)          {}

// outcome collects what a command produced: events to fan out and facts to
// report once the state lock is released.
type outcome struct {
	events  []Event
	notices []func(Notifier)
}

func (o *outcome) emit(evs ...Event) {
	o.events = append(o.events, evs...)
}

func (o *outcome) notify(fn func(Notifier)) {
	o.notices = append(o.notices, fn)
}
