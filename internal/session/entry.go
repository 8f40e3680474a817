// Package session models the host's conversation branch: an ordered list of
// entries whose message content is a sequence of tagged segments.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Role identifies who authored a message entry.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "toolResult"
	RoleSystem     Role = "system"
)

// KindMessage marks entries that carry a conversation message. Other kinds
// (model changes, labels, custom extension entries) are kept but never read.
const KindMessage = "message"

// Segment is one typed block of message content.
type Segment interface {
	segmentType() string
}

// TextSegment is plain visible text.
type TextSegment struct {
	Text string
}

// ThinkingSegment is model reasoning the user may not see.
type ThinkingSegment struct {
	Thinking string
}

// ToolCallSegment is an assistant request to run a tool.
type ToolCallSegment struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResultSegment is tool output echoed into the conversation.
type ToolResultSegment struct {
	ToolCallID string
	Output     string
}

// ImageSegment is an attached image.
type ImageSegment struct {
	MimeType string
	Data     string
}

// UnknownSegment preserves a segment type this package does not model.
type UnknownSegment struct {
	Type string
	Raw  json.RawMessage
}

func (TextSegment) segmentType() string       { return "text" }
func (ThinkingSegment) segmentType() string   { return "thinking" }
func (ToolCallSegment) segmentType() string   { return "toolCall" }
func (ToolResultSegment) segmentType() string { return "toolResult" }
func (ImageSegment) segmentType() string      { return "image" }
func (u UnknownSegment) segmentType() string  { return u.Type }

// Entry is one element of the branch.
type Entry struct {
	ID       string
	Kind     string
	Role     Role
	Segments []Segment
}

// IsMessage reports whether the entry carries a conversation message.
func (e Entry) IsMessage() bool {
	return e.Kind == "" || e.Kind == KindMessage
}

type wireEntry struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type,omitempty"`
	Role    Role            `json:"role,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

type wireSegment struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	Thinking   string          `json:"thinking,omitempty"`
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	Output     string          `json:"output,omitempty"`
	MimeType   string          `json:"mimeType,omitempty"`
	Data       string          `json:"data,omitempty"`
}

// UnmarshalJSON decodes an entry; content may be a string or a segment array.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.ID = w.ID
	e.Kind = w.Type
	e.Role = w.Role
	e.Segments = nil
	content := bytes.TrimSpace(w.Content)
	if len(content) == 0 || bytes.Equal(content, []byte("null")) {
		return nil
	}
	if content[0] == '"' {
		var text string
		if err := json.Unmarshal(content, &text); err != nil {
			return err
		}
		e.Segments = []Segment{TextSegment{Text: text}}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(content, &raws); err != nil {
		return fmt.Errorf("session: content must be a string or array: %w", err)
	}
	for _, raw := range raws {
		var ws wireSegment
		if err := json.Unmarshal(raw, &ws); err != nil {
			return fmt.Errorf("session: decode segment: %w", err)
		}
		e.Segments = append(e.Segments, ws.segment(raw))
	}
	return nil
}

// MarshalJSON encodes an entry in the same shape UnmarshalJSON accepts.
func (e Entry) MarshalJSON() ([]byte, error) {
	segments := make([]json.RawMessage, 0, len(e.Segments))
	for _, seg := range e.Segments {
		var ws wireSegment
		switch s := seg.(type) {
		case TextSegment:
			ws = wireSegment{Type: s.segmentType(), Text: s.Text}
		case ThinkingSegment:
			ws = wireSegment{Type: s.segmentType(), Thinking: s.Thinking}
		case ToolCallSegment:
			ws = wireSegment{Type: s.segmentType(), ID: s.ID, Name: s.Name, Arguments: s.Arguments}
		case ToolResultSegment:
			ws = wireSegment{Type: s.segmentType(), ToolCallID: s.ToolCallID, Output: s.Output}
		case ImageSegment:
			ws = wireSegment{Type: s.segmentType(), MimeType: s.MimeType, Data: s.Data}
		case UnknownSegment:
			segments = append(segments, s.Raw)
			continue
		default:
			return nil, fmt.Errorf("session: unsupported segment %T", seg)
		}
		raw, err := json.Marshal(ws)
		if err != nil {
			return nil, err
		}
		segments = append(segments, raw)
	}
	content, err := json.Marshal(segments)
	if err != nil {
		return nil, err
	}
	kind := e.Kind
	if kind == "" {
		kind = KindMessage
	}
	return json.Marshal(wireEntry{ID: e.ID, Type: kind, Role: e.Role, Content: content})
}

func (ws wireSegment) segment(raw json.RawMessage) Segment {
	switch ws.Type {
	case "text":
		return TextSegment{Text: ws.Text}
	case "thinking":
		return ThinkingSegment{Thinking: ws.Thinking}
	case "toolCall":
		return ToolCallSegment{ID: ws.ID, Name: ws.Name, Arguments: ws.Arguments}
	case "toolResult":
		return ToolResultSegment{ToolCallID: ws.ToolCallID, Output: ws.Output}
	case "image":
		return ImageSegment{MimeType: ws.MimeType, Data: ws.Data}
	default:
		return UnknownSegment{Type: ws.Type, Raw: append(json.RawMessage(nil), raw...)}
	}
}

// ReadBranch decodes a JSONL branch, one entry per non-blank line.
func ReadBranch(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var entries []Entry
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			return nil, fmt.Errorf("session: line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("session: read branch: %w", err)
	}
	return entries, nil
}

// LastAssistantText scans newest to oldest for the first assistant message
// holding at least one text segment and returns its text segments joined by a
// blank line. Thinking, tool and image segments are ignored.
func LastAssistantText(entries []Entry) (string, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if !entry.IsMessage() || entry.Role != RoleAssistant {
			continue
		}
		var texts []string
		for _, seg := range entry.Segments {
			if text, ok := seg.(TextSegment); ok {
				texts = append(texts, text.Text)
			}
		}
		if len(texts) > 0 {
			return strings.Join(texts, "\n\n"), true
		}
	}
	return "", false
}
