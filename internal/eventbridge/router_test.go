package eventbridge

import (
	"fmt"
	"strings"
	"testing"
)

func TestRouterBuffersAndFlushes(t *testing.T) {
	router := NewRouter(RouterLimits{Queue: 4}, nil)
	first := Event{EventID: "evt-1", SessionID: "s", Type: TypeTurnEnd}
	second := Event{EventID: "evt-2", SessionID: "s", Type: TypeTurnEnd}
	router.Route(first)
	router.Route(second)
	sub := router.Subscribe(TypeTurnEnd)
	defer sub.Close()
	if got := <-sub.Events; got.EventID != first.EventID {
		t.Fatalf("expected first buffered event, got %s", got.EventID)
	}
	if got := <-sub.Events; got.EventID != second.EventID {
		t.Fatalf("expected second buffered event, got %s", got.EventID)
	}
}

func TestRouterRoutesByType(t *testing.T) {
	router := NewRouter(RouterLimits{}, nil)
	shutdowns := router.Subscribe("SESSION_SHUTDOWN")
	defer shutdowns.Close()
	router.Route(Event{EventID: "evt-1", Type: TypeTurnEnd})
	router.Route(Event{EventID: "evt-2", Type: TypeSessionShutdown})
	if got := <-shutdowns.Events; got.EventID != "evt-2" {
		t.Fatalf("expected shutdown event, got %s", got.EventID)
	}
	select {
	case got := <-shutdowns.Events:
		t.Fatalf("unexpected event %s", got.EventID)
	default:
	}
}

func TestRouterBacklogLimit(t *testing.T) {
	router := NewRouter(RouterLimits{Backlog: 2}, nil)
	for _, id := range []string{"a", "b", "c"} {
		router.Route(Event{EventID: id, Type: TypeTurnEnd})
	}
	sub := router.Subscribe(TypeTurnEnd)
	defer sub.Close()
	if got := <-sub.Events; got.EventID != "b" {
		t.Fatalf("expected oldest to be dropped, got %s", got.EventID)
	}
	if got := <-sub.Events; got.EventID != "c" {
		t.Fatalf("expected c, got %s", got.EventID)
	}
}

func TestRouterDedupeByEventID(t *testing.T) {
	router := NewRouter(RouterLimits{}, nil)
	sub := router.Subscribe(TypeTurnEnd)
	defer sub.Close()
	event := Event{EventID: "evt-1", Type: TypeTurnEnd}
	router.Route(event)
	router.Route(event)
	select {
	case got := <-sub.Events:
		if got.EventID != event.EventID {
			t.Fatalf("unexpected event: %s", got.EventID)
		}
	default:
		t.Fatalf("expected first delivery")
	}
	select {
	case <-sub.Events:
		t.Fatalf("duplicate event delivered")
	default:
	}
}

func TestRouterDedupeWindowForgets(t *testing.T) {
	router := NewRouter(RouterLimits{Dedupe: 1}, nil)
	sub := router.Subscribe(TypeTurnEnd)
	defer sub.Close()
	router.Route(Event{EventID: "a", Type: TypeTurnEnd})
	router.Route(Event{EventID: "b", Type: TypeTurnEnd})
	router.Route(Event{EventID: "a", Type: TypeTurnEnd})
	for _, want := range []string{"a", "b", "a"} {
		if got := <-sub.Events; got.EventID != want {
			t.Fatalf("expected %s, got %s", want, got.EventID)
		}
	}
}

func TestRouterKeepsCriticalOnOverflow(t *testing.T) {
	cases := []struct {
		name   string
		first  string
		second string
		want   string
	}{
		{"incoming critical beats queued turn end", TypeTurnEnd, TypeSessionShutdown, "evt-2"},
		{"queued critical survives turn end", TypeSessionShutdown, TypeTurnEnd, "evt-1"},
		{"queued turn end dropped for session start", TypeTurnEnd, TypeSessionStart, "evt-2"},
		{"incoming turn end dropped", TypeSessionStart, TypeTurnEnd, "evt-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := newSubscriber(1, nil)
			defer sub.close()
			sub.deliver(Event{EventID: "evt-1", Type: tc.first})
			sub.deliver(Event{EventID: "evt-2", Type: tc.second})
			if got := <-sub.ch; got.EventID != tc.want {
				t.Fatalf("expected %s to remain, got %s", tc.want, got.EventID)
			}
			select {
			case got := <-sub.ch:
				t.Fatalf("unexpected extra event %s", got.EventID)
			default:
			}
		})
	}
}

func TestRouterOverflowThroughRoute(t *testing.T) {
	router := NewRouter(RouterLimits{Queue: 1}, nil)
	sub := router.Subscribe(TypeSessionShutdown)
	defer sub.Close()
	router.Route(Event{EventID: "evt-1", Type: TypeSessionShutdown})
	router.Route(Event{EventID: "evt-2", Type: TypeSessionShutdown})
	if got := <-sub.Events; got.EventID != "evt-2" {
		t.Fatalf("expected newest of equal priority to win, got %s", got.EventID)
	}
}

func TestSubscriptionCloseStopsDelivery(t *testing.T) {
	router := NewRouter(RouterLimits{}, nil)
	sub := router.Subscribe(TypeTurnEnd)
	sub.Close()
	router.Route(Event{EventID: "late", Type: TypeTurnEnd})
	if _, ok := <-sub.Events; ok {
		t.Fatalf("expected closed channel")
	}
	sub.Close()
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestRouterLogsDrops(t *testing.T) {
	logger := &recordingLogger{}
	router := NewRouter(RouterLimits{Queue: 1, Backlog: 1}, logger)
	router.Route(Event{EventID: "held-1", Type: TypeTurnEnd})
	router.Route(Event{EventID: "held-2", Type: TypeTurnEnd})
	sub := router.Subscribe(TypeTurnEnd)
	defer sub.Close()
	router.Route(Event{EventID: "live", Type: TypeTurnEnd})

	want := []string{
		"eventbridge: backlog drop for turn_end (limit 1)",
		"eventbridge: dropped turn_end (queue overflow)",
	}
	if strings.Join(logger.lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected log lines %q", logger.lines)
	}
	if got := <-sub.Events; got.EventID != "live" {
		t.Fatalf("expected newest event to remain, got %s", got.EventID)
	}
}
