// Package reconcile resolves ordering between request replies and push
// events that touch the same ledger fields. One loop consumes the event
// stream; request replies enter through ApplyReply; both paths share a
// single serialization point so field-level last-write-wins by arrival
// order is well-defined.
package reconcile
