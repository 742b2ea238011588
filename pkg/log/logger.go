package log

// Logger is the sink for protocol events emitted by the transport,
// secure, and session layers. A nil Logger on a session disables
// capture; NoopLogger does the same explicitly.
type Logger interface {
	// Log records one event. Called from session read and write
	// paths concurrently, so implementations must be safe for that
	// and should not block.
	Log(event Event)
}

// NoopLogger drops every event. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
