package eventbridge

import (
	"strings"
	"sync"
)

const (
	defaultQueueSize   = 100
	defaultBacklogSize = 50
	defaultDedupeSize  = 1024
)

// RouterLimits bounds router memory. Zero fields take the defaults.
type RouterLimits struct {
	// Queue is the buffered channel size of each subscription.
	Queue int
	// Backlog is how many events of a type wait for a first subscriber.
	Backlog int
	// Dedupe is how many recent event ids are remembered.
	Dedupe int
}

func (l RouterLimits) withDefaults() RouterLimits {
	if l.Queue <= 0 {
		l.Queue = defaultQueueSize
	}
	if l.Backlog <= 0 {
		l.Backlog = defaultBacklogSize
	}
	if l.Dedupe <= 0 {
		l.Dedupe = defaultDedupeSize
	}
	return l
}

// Router fans bridge events out to subscribers of their type. Events of a
// type nobody listens to yet are held in a bounded backlog, and event ids
// seen recently are dropped as duplicates. Delivery never blocks.
type Router struct {
	limits RouterLimits
	logger Logger

	mu      sync.Mutex
	subs    map[string][]*subscriber
	backlog map[string][]Event
	seen    idWindow
}

// Subscription is a live feed of one event type.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription and closes Events.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router. logger may be nil.
func NewRouter(limits RouterLimits, logger Logger) *Router {
	if logger == nil {
		logger = nopLogger{}
	}
	limits = limits.withDefaults()
	return &Router{
		limits:  limits,
		logger:  logger,
		subs:    map[string][]*subscriber{},
		backlog: map[string][]Event{},
		seen:    newIDWindow(limits.Dedupe),
	}
}

// Subscribe registers for events of eventType. Backlogged events of that
// type are delivered first, in arrival order.
func (r *Router) Subscribe(eventType string) Subscription {
	kind := normalizeType(eventType)
	sub := newSubscriber(r.limits.Queue, r.logger)
	r.mu.Lock()
	r.subs[kind] = append(r.subs[kind], sub)
	for _, event := range r.backlog[kind] {
		sub.deliver(event)
	}
	delete(r.backlog, kind)
	r.mu.Unlock()
	return Subscription{
		Events: sub.ch,
		cancel: func() { r.unsubscribe(kind, sub) },
	}
}

// HandleEvent satisfies EventProcessor.
func (r *Router) HandleEvent(event Event) error {
	r.Route(event)
	return nil
}

// Route delivers the event to subscribers of its type or holds it.
func (r *Router) Route(event Event) {
	kind := normalizeType(event.Type)
	if kind == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.EventID != "" && !r.seen.add(event.EventID) {
		return
	}
	subs := r.subs[kind]
	if len(subs) == 0 {
		r.hold(kind, event)
		return
	}
	for _, sub := range subs {
		sub.deliver(event)
	}
}

// hold appends to the backlog, evicting the oldest event at the limit.
// Callers hold r.mu.
func (r *Router) hold(kind string, event Event) {
	queue := r.backlog[kind]
	if len(queue) >= r.limits.Backlog {
		queue = queue[1:]
		r.logger.Printf("eventbridge: backlog drop for %s (limit %d)", kind, r.limits.Backlog)
	}
	r.backlog[kind] = append(queue, event)
}

func (r *Router) unsubscribe(kind string, sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subs[kind]
	for i, s := range subs {
		if s == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.subs, kind)
	} else {
		r.subs[kind] = subs
	}
	sub.close()
}

func normalizeType(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

// idWindow remembers the last size ids added.
type idWindow struct {
	size  int
	set   map[string]struct{}
	order []string
}

func newIDWindow(size int) idWindow {
	return idWindow{size: size, set: make(map[string]struct{}, size)}
}

// add records id and reports whether it was new.
func (w *idWindow) add(id string) bool {
	if _, ok := w.set[id]; ok {
		return false
	}
	w.set[id] = struct{}{}
	w.order = append(w.order, id)
	if len(w.order) > w.size {
		delete(w.set, w.order[0])
		w.order = w.order[1:]
	}
	return true
}

type subscriber struct {
	ch     chan Event
	logger Logger

	mu     sync.Mutex
	closed bool
}

func newSubscriber(capacity int, logger Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultQueueSize
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &subscriber{ch: make(chan Event, capacity), logger: logger}
}

// deliver never blocks. When the queue is full it evicts the oldest queued
// event and keeps whichever of it and the incoming event ranks lower.
func (s *subscriber) deliver(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
		return
	default:
	}
	select {
	case oldest := <-s.ch:
		if dropRank(oldest.Type) >= dropRank(event.Type) {
			s.ch <- event
			s.logger.Printf("eventbridge: dropped %s (queue overflow)", oldest.Type)
		} else {
			s.ch <- oldest
			s.logger.Printf("eventbridge: dropped %s (queue overflow:incoming)", event.Type)
		}
	default:
		// drained since the first attempt
		s.ch <- event
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// dropRank orders event types by how readily they are dropped on overflow.
// Shutdown and error events drive housekeeping and rank lowest.
func dropRank(kind string) int {
	switch normalizeType(kind) {
	case TypeSessionShutdown, TypeError:
		return 0
	case TypeTurnEnd:
		return 2
	}
	return 1
}
