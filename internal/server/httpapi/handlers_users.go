package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// register creates a regular account. Open endpoint, no session required.
func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidArgument)
		return
	}

	info, err := h.users.Register(r.Context(), req.Name, req.Login, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "registered", info)
}

// listUsers returns all accounts. Admin only.
func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), subjectFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", users)
}

// getUser returns one account's public projection (self or admin).
func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	info, err := h.users.Get(r.Context(), subjectFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", info)
}

// updateUser applies a partial account change.
func (h *Handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	var change models.UserChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeError(w, common.ErrorInvalidArgument)
		return
	}

	info, err := h.users.Update(r.Context(), subjectFrom(r.Context()), r.PathValue("id"), &change)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "updated", info)
}

// deleteUser removes an account with its files. Admin only.
func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), subjectFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "deleted", nil)
}
