// Package router carries dialogs between agents over RabbitMQ. It owns the
// in-memory conversation registry, the broker connection lifecycle, the
// server consume loop with its correlated-merge semantics, and the blocking
// agent invocation facade layered on top.
package router
