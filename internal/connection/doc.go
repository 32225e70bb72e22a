// Package connection manages the one persistent WebSocket connection to
// the wheel backend: transport handshake, token authentication, keepalive,
// fixed-delay reconnect and the raw event feed consumed by the stream
// adapter.
package connection
