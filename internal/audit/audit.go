// Package audit carries the security event trail for the authentication
// lifecycle. Events are emitted off the hot path through an asynchronous
// dispatcher; a slow or absent sink never blocks a login.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types emitted by the authentication engine.
const (
	TypeLogin           = "login"
	TypeRegister        = "register"
	TypeRefresh         = "refresh"
	TypeRefreshReplay   = "refresh_replay"
	TypeLogout          = "logout"
	TypeLogoutAll       = "logout_all"
	TypeAccountLocked   = "account_locked"
	TypeBootstrapAdmin  = "bootstrap_admin"
	TypeTokenRejected   = "token_rejected"
	TypeProviderFailure = "provider_failure"
)

// Event is one security-relevant occurrence. Email identifies the presented
// identifier even when no account exists; UserID is set only for resolved
// accounts. Error carries the internal cause, never the client-facing one.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Email     string            `json:"email,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives dispatched events. Emit must tolerate concurrent calls.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink forwards events into a buffered channel, mainly for tests and
// in-process consumers.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line to the writer. Marshal
// failures drop the event rather than corrupt the stream.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Write(append(data, '\n'))
}
