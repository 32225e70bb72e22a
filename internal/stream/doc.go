// Package stream adapts the connection manager's push callbacks into a
// single ordered, consumable sequence of typed events with deterministic
// teardown. Wire frames are decoded exactly once here; downstream code
// never sees message-type strings.
package stream
