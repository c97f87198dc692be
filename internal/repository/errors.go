// Package repository defines error types that are reused across
// repositories.  These sentinel values let higher layers such as handlers
// and the websocket gateway distinguish "the principal does not exist"
// (an authentication outcome) from a transient database failure (a 500).
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Handlers translate
// it into a 401 with reason "user-not-found"; the websocket gateway closes
// the connection with code 4003.
var ErrNotFound = errors.New("not found")
