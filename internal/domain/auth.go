package domain

import "time"

// Actor is the explicit caller identity passed to every operation that needs one.
type Actor struct {
	ID   string
	Role Role
}

// Session is the result of a successful authentication.
type Session struct {
	Actor     Actor
	Token     string
	ExpiresAt time.Time
}
