package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/mycloud/internal/common"
	"github.com/dmitrijs2005/mycloud/internal/server/models"
)

// maxUploadMemory bounds how much of a multipart body is buffered in memory;
// the rest spills to temp files.
const maxUploadMemory = 32 << 20

// uploadFile accepts a multipart form with a "file" part, an optional
// "comment" field, and an optional "user_id" field for admins uploading on
// behalf of another account.
func (h *Handlers) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, fmt.Errorf("%w: malformed multipart body", common.ErrorInvalidArgument))
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: file part is required", common.ErrorInvalidArgument))
		return
	}
	defer part.Close()

	file, err := h.files.Upload(r.Context(), subjectFrom(r.Context()),
		r.FormValue("user_id"), header.Filename, r.FormValue("comment"), header.Size, part)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "uploaded", file)
}

// updateFile changes the display name and/or comment of a file. Both fields
// go to the service as one change so they apply together or not at all.
func (h *Handlers) updateFile(w http.ResponseWriter, r *http.Request) {
	var change models.FileChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeError(w, common.ErrorInvalidArgument)
		return
	}

	file, err := h.files.Update(r.Context(), subjectFrom(r.Context()), r.PathValue("id"), &change)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "updated", file)
}

// deleteFile removes a file's record, quota share, and content.
func (h *Handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Delete(r.Context(), subjectFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "deleted", nil)
}

type userFilesRequest struct {
	UserID string `json:"user_id"`
}

// getUserFiles lists a user's files, newest first. An empty or missing
// user_id means the caller's own files.
func (h *Handlers) getUserFiles(w http.ResponseWriter, r *http.Request) {
	subject := subjectFrom(r.Context())
	if subject == nil {
		writeError(w, common.ErrorUnauthorized)
		return
	}

	var req userFilesRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.UserID == "" {
		req.UserID = subject.ID
	}

	files, err := h.files.ListByUser(r.Context(), subject, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", files)
}

type linkRequest struct {
	FileID string `json:"file_id"`
}

// getLinkForFile returns the file's share token, creating it on first
// request.
func (h *Handlers) getLinkForFile(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, common.ErrorInvalidArgument)
		return
	}

	link, err := h.files.GetLink(r.Context(), subjectFrom(r.Context()), req.FileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", map[string]string{"link": link})
}

// retrieveByLink resolves a share token to the file's metadata. Public
// endpoint: whoever holds the token can see what it points to and proceed
// to download.
func (h *Handlers) retrieveByLink(w http.ResponseWriter, r *http.Request) {
	file, err := h.files.LookupByLink(r.Context(), r.URL.Query().Get("link"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "ok", file)
}

// downloadFile streams the file's content. Access is either an owner/admin
// session or a valid share token for this exact file passed as ?link=.
func (h *Handlers) downloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")

	shared := false
	if link := r.URL.Query().Get("link"); link != "" {
		linked, err := h.files.LookupByLink(r.Context(), link)
		if err != nil {
			writeError(w, err)
			return
		}
		shared = linked.ID == fileID
	}

	file, rc, err := h.files.Download(r.Context(), subjectFrom(r.Context()), fileID, shared)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))

	if _, err := io.Copy(w, rc); err != nil {
		// Headers are out; nothing to do beyond noting the broken stream.
		h.logger.Warn(r.Context(), "download stream aborted", "file_id", file.ID, "error", err)
	}
}
