package eventbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/agentx/internal/host"
)

const (
	// ProtocolVersion identifies the bridge contract version exposed via /health.
	ProtocolVersion = "1.0.0"
	// EventSchemaVersion is the currently supported inbound event version.
	EventSchemaVersion = 1
)

// Event types the host posts.
const (
	TypeSessionStart    = "session_start"
	TypeTurnEnd         = "turn_end"
	TypeSessionShutdown = "session_shutdown"
	TypeError           = "error"
)

// Event captures a single notification emitted by the agent host.
type Event struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	Sequence   int64           `json:"sequence"`
	Type       string          `json:"type"`
	ClientTime time.Time       `json:"client_time"`
	ServerTime time.Time       `json:"server_time"`
	SessionID  string          `json:"session_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Normalize applies defaults and canonical formatting before validation. A
// missing event id is replaced with a random one.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Version == 0 {
		e.Version = EventSchemaVersion
	}
	e.EventID = strings.TrimSpace(e.EventID)
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	e.SessionID = strings.TrimSpace(e.SessionID)
}

// StampServerTime overwrites ServerTime with the supplied clock reading (UTC).
func (e *Event) StampServerTime(now time.Time) {
	if e == nil {
		return
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	e.ServerTime = now.UTC()
}

// Validate enforces baseline schema requirements for incoming events.
func (e Event) Validate() error {
	if e.Version != EventSchemaVersion {
		return fmt.Errorf("version %d not supported", e.Version)
	}
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.Type == "" {
		return errors.New("type is required")
	}
	if e.SessionID == "" {
		return errors.New("session_id is required")
	}
	return nil
}

// ShutdownPayload is the payload of a session_shutdown event.
type ShutdownPayload struct {
	Reason string `json:"reason,omitempty"`
}

// ShutdownReason decodes the payload reason, tolerating absent or foreign payloads.
func (e Event) ShutdownReason() string {
	if len(e.Payload) == 0 {
		return ""
	}
	var p ShutdownPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return ""
	}
	return strings.TrimSpace(p.Reason)
}

// EventProcessor consumes validated events.
type EventProcessor interface {
	HandleEvent(Event) error
}

// EventProcessorFunc adapts a function into an EventProcessor.
type EventProcessorFunc func(Event) error

// HandleEvent executes f(e).
func (f EventProcessorFunc) HandleEvent(e Event) error {
	if f == nil {
		return nil
	}
	return f(e)
}

// Logger records bridge status information. logging.Printf satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

// BeforeAgentStartRequest is the body of POST /hooks/before-agent-start.
type BeforeAgentStartRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

// BeforeAgentStartResponse lists the messages to inject ahead of the turn.
type BeforeAgentStartResponse struct {
	Messages []host.Message `json:"messages"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	RouterReady   bool   `json:"router_ready"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type eventResponse struct {
	Status     string    `json:"status"`
	EventID    string    `json:"event_id"`
	ServerTime time.Time `json:"server_time"`
}
