// Package examples provides reference application handlers
// demonstrating how to build media handlers behind a gate.
//
// Available examples:
//   - Echo: returns every payload to its sender
//   - Sink: counts and discards payloads
//
// Both can serve as templates for real media session handlers: they
// show the admission, message, and close callbacks, and how much (or
// little) per-session state a handler needs to track.
package examples
