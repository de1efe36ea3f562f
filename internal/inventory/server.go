package inventory

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// Server exposes the reconciliation workflow and the inventory as a JSON API.
type Server struct {
	service   *Service
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials. Empty credentials disable
// authentication.
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a Server with a default mux.
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a Server with a custom mux for testing.
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials.
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			s.setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Pantry Tracker"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response.
func (s *Server) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes, most specific paths first.
func (s *Server) registerRoutes() {
	// Pending receipts
	s.mux.HandleFunc("PUT /api/receipts/{id}/text", s.requireAuth(s.handleUpdatePendingText))
	s.mux.HandleFunc("POST /api/receipts/{id}/analyze", s.requireAuth(s.handleAnalyzePending))
	s.mux.HandleFunc("POST /api/receipts/{id}/commit", s.requireAuth(s.handleCommitPending))
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.requireAuth(s.handleDeletePending))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListPending))
	s.mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleUploadReceipt))

	// Inventory items
	s.mux.HandleFunc("PUT /api/items/{id}", s.requireAuth(s.handleUpdateItem))
	s.mux.HandleFunc("DELETE /api/items/{id}", s.requireAuth(s.handleDeleteItem))
	s.mux.HandleFunc("GET /api/items", s.requireAuth(s.handleListItems))
	s.mux.HandleFunc("POST /api/items", s.requireAuth(s.handleCreateItem))

	// Dashboard
	s.mux.HandleFunc("GET /api/stats", s.requireAuth(s.handleStats))
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
