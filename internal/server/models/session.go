package models

import "time"

// Session binds an opaque token to an authenticated login. Liveness is
// record existence: there is no server-side expiry field, and the unique
// constraint on Login enforces at most one live session per login. The
// cookie max-age handed to browsers is advisory only.
type Session struct {
	Token     string
	Login     string
	UserID    string
	CreatedAt time.Time
}
