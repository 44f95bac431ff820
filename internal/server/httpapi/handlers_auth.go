package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/mycloud/internal/common"
)

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// login verifies credentials, opens the single live session, and sets the
// session cookie. A login that already has a live session answers 409.
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidArgument)
		return
	}

	session, info, err := h.sessions.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, session.Token, int(h.cookieTTL.Seconds()))
	writeSuccess(w, http.StatusOK, "logged in", info)
}

// logout revokes the subject's live session and expires the cookie. Calling
// it without a live session is not an error; the cookie is cleared either
// way.
func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	subject := subjectFrom(r.Context())
	if subject == nil {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	removed, err := h.sessions.Logout(r.Context(), subject.Login)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, "", -1)
	writeSuccess(w, http.StatusOK, "logged out", map[string]bool{"session_removed": removed})
}

// whoami returns the account behind the session cookie.
func (h *Handlers) whoami(w http.ResponseWriter, r *http.Request) {
	subject := subjectFrom(r.Context())
	if subject == nil {
		writeError(w, common.ErrorUnauthorized)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", subject)
}

// checkSession confirms that the supplied credentials belong to a login
// with a live session.
func (h *Handlers) checkSession(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidArgument)
		return
	}

	info, err := h.sessions.CheckSession(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "session is live", info)
}
