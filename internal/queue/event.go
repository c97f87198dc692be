// Package queue defines the message payloads exchanged over the broker
// between business controllers and the realtime gateway.
package queue

import "encoding/json"

// NotificationsQueue is the durable queue business controllers publish
// domain events to; the consumer in this package bridges them onto open
// websockets.
const NotificationsQueue = "notifications.push"

// Delivery scopes.  They map one-to-one onto the broadcast primitives.
const (
	ScopeStudent = "student"
	ScopeAdmins  = "admins"
	ScopeRole    = "role"
	ScopeUser    = "user"
)

// Target selects which sockets receive a notification.  Exactly one of the
// id fields is meaningful depending on Scope; Role additionally narrows
// ScopeUser deliveries to that user's sockets holding the role.
type Target struct {
	Scope     string `json:"scope"`
	StudentID uint64 `json:"student_id,omitempty"`
	Role      string `json:"role,omitempty"`
	UserID    uint64 `json:"user_id,omitempty"`
}

// NotificationEvent is the broker envelope.  Message is the client-facing
// frame delivered verbatim, e.g. {"type":"student_status","payload":{...}}
// or {"type":"admin_asesor_message","data":{...}} — the publisher owns the
// frame shape, the bridge only routes it.
type NotificationEvent struct {
	Target  Target          `json:"target"`
	Message json.RawMessage `json:"message"`
}
