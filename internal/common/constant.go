package common

// SessionCookieName is the cookie that carries the opaque session token.
// The HTTP layer extracts it and passes the value to SessionService.Resolve;
// no other component ever parses cookies.
const SessionCookieName = "user_session_id"
