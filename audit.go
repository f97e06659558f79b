package authcore

import (
	"io"

	"github.com/keelworks/authcore/internal/audit"
)

// AuditEvent is one security-relevant occurrence emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives dispatched audit events. Implementations must tolerate
// concurrent Emit calls; the dispatcher serializes delivery but sinks may be
// shared across engines.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// Audit event types emitted by the engine.
const (
	AuditLogin           = audit.TypeLogin
	AuditRegister        = audit.TypeRegister
	AuditRefresh         = audit.TypeRefresh
	AuditRefreshReplay   = audit.TypeRefreshReplay
	AuditLogout          = audit.TypeLogout
	AuditLogoutAll       = audit.TypeLogoutAll
	AuditAccountLocked   = audit.TypeAccountLocked
	AuditBootstrapAdmin  = audit.TypeBootstrapAdmin
	AuditTokenRejected   = audit.TypeTokenRejected
	AuditProviderFailure = audit.TypeProviderFailure
)

// NewChannelSink returns a sink forwarding events into a buffered channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
