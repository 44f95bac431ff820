package httpapi

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// Router assembles the API surface. Every route passes through the session
// middleware (anonymous requests carry a nil subject), then CORS and the
// request logger wrap the whole mux.
func (h *Handlers) Router(corsOrigins string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Accounts.
	mux.HandleFunc("POST /api/users/", h.register)
	mux.HandleFunc("GET /api/users/", h.listUsers)
	mux.HandleFunc("POST /api/get_users/", h.listUsers)
	mux.HandleFunc("GET /api/users/{id}", h.getUser)
	mux.HandleFunc("PATCH /api/users/{id}", h.updateUser)
	mux.HandleFunc("DELETE /api/users/{id}", h.deleteUser)

	// Sessions.
	mux.HandleFunc("POST /api/login/", h.login)
	mux.HandleFunc("DELETE /api/logout/", h.logout)
	mux.HandleFunc("GET /api/get_mycloud_user/", h.whoami)
	mux.HandleFunc("POST /api/check_session/", h.checkSession)

	// Files.
	mux.HandleFunc("POST /api/files/", h.uploadFile)
	mux.HandleFunc("PATCH /api/files/{id}", h.updateFile)
	mux.HandleFunc("DELETE /api/files/{id}", h.deleteFile)
	mux.HandleFunc("POST /api/get_user_files/", h.getUserFiles)
	mux.HandleFunc("PATCH /api/get_link_for_file/", h.getLinkForFile)
	mux.HandleFunc("GET /api/retrieve_by_link/", h.retrieveByLink)
	mux.HandleFunc("GET /api/download_file/{id}", h.downloadFile)

	c := cors.New(cors.Options{
		AllowedOrigins:   splitOrigins(corsOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	var handler http.Handler = mux
	handler = h.sessionMiddleware(handler)
	handler = c.Handler(handler)
	handler = requestLogger(h.logger, handler)
	return handler
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
