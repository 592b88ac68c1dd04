// Package server implements the vaultd HTTP surface: per-identity vault
// documents over REST plus a websocket watch feed that mirrors every
// accepted write to the identity's other devices.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/linkmeir/linkvault/internal/auth"
	apperrors "github.com/linkmeir/linkvault/internal/errors"
	"github.com/linkmeir/linkvault/internal/logging"
	"github.com/linkmeir/linkvault/internal/models"
	"github.com/linkmeir/linkvault/internal/remote"
	"github.com/linkmeir/linkvault/internal/store"
)

type contextKey string

const identityContextKey contextKey = "identity"

func contextWithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the identity attached by requireAuth.
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityContextKey).(*models.Identity)
	return identity
}

// Server exposes the vault document store.
type Server struct {
	db       *store.DB
	verifier *auth.Verifier
	hub      *Hub
}

// New creates a Server backed by the given database and token verifier.
func New(db *store.DB, verifier *auth.Verifier) *Server {
	return &Server{
		db:       db,
		verifier: verifier,
		hub:      NewHub(),
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPut,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)

	r.Route("/v1/users/{uid}", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/vault", s.handleGetVault)
		r.Put("/vault", s.handlePutVault)
		r.Get("/watch", s.handleWatch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// requireAuth verifies the bearer token and pins the request to the path
// uid: a valid token for a different identity is rejected, not ignored.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, apperrors.ErrAuthFailed, "missing bearer token")
			return
		}

		identity, err := s.verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, apperrors.ErrAuthFailed, "invalid token")
			return
		}

		uid := chi.URLParam(r, "uid")
		if uid != identity.UID {
			logging.Warn("token subject does not match requested vault", map[string]interface{}{
				"subject": identity.UID,
				"uid":     uid,
			})
			writeError(w, http.StatusForbidden, apperrors.ErrPermission, "token does not grant access to this vault")
			return
		}

		ctx := contextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the credential from the Authorization header, with
// a query fallback for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	return r.URL.Query().Get("token")
}

func (s *Server) handleGetVault(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	doc, ok, err := s.db.GetDocument(uid)
	if err != nil {
		logging.Error("failed to load vault document", err, map[string]interface{}{"uid": uid})
		writeError(w, http.StatusInternalServerError, apperrors.ErrDatabase, "failed to load vault")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, apperrors.ErrNotFound, "no vault document for this identity")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// vaultWriteRequest carries a merge write. A nil array leaves the stored
// array untouched; a present array replaces it wholesale.
type vaultWriteRequest struct {
	Items *[]models.Item `json:"items"`
	Trash *[]models.Item `json:"trash"`
}

func (s *Server) handlePutVault(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	var req vaultWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrParse, "malformed request body")
		return
	}

	doc, _, err := s.db.GetDocument(uid)
	if err != nil {
		logging.Error("failed to load vault document", err, map[string]interface{}{"uid": uid})
		writeError(w, http.StatusInternalServerError, apperrors.ErrDatabase, "failed to load vault")
		return
	}
	doc.Normalize()

	if req.Items != nil {
		doc.Items = *req.Items
	}
	if req.Trash != nil {
		doc.Trash = *req.Trash
	}
	doc.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	doc.Normalize()

	if err := s.db.PutDocument(uid, doc); err != nil {
		logging.Error("failed to store vault document", err, map[string]interface{}{"uid": uid})
		writeError(w, http.StatusInternalServerError, apperrors.ErrDatabase, "failed to store vault")
		return
	}

	logging.Debug("vault document updated", map[string]interface{}{
		"uid":   uid,
		"items": len(doc.Items),
		"trash": len(doc.Trash),
	})
	s.hub.Broadcast(uid, remote.WatchEvent{
		Type:     remote.EventUpdate,
		Exists:   true,
		Document: doc,
	})
	writeJSON(w, http.StatusOK, doc)
}

// handleWatch upgrades to a websocket and streams the current document
// followed by every later write for this identity.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	doc, exists, err := s.db.GetDocument(uid)
	if err != nil {
		logging.Error("failed to load vault document", err, map[string]interface{}{"uid": uid})
		writeError(w, http.StatusInternalServerError, apperrors.ErrDatabase, "failed to load vault")
		return
	}
	doc.Normalize()

	snapshot := remote.WatchEvent{
		Type:     remote.EventSnapshot,
		Exists:   exists,
		Document: doc,
	}
	s.hub.Serve(w, r, uid, snapshot)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", err)
	}
}

func writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    string(code),
		Message: message,
	}})
}
