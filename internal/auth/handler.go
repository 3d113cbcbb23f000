package auth

import (
	"net/http"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/frahmantamala/hrm-access/internal/transport"
	"github.com/frahmantamala/hrm-access/pkg/logger"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	result, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if token == "" {
		h.HandleServiceError(w, internal.ErrNotLoggedIn)
		return
	}

	if err := h.Service.Logout(r.Context(), token); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CurrentSession handles GET /auth/session
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, session)
}

// AuthMiddleware attaches the token's session to the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.HandleServiceError(w, internal.ErrNotLoggedIn)
			return
		}

		session, err := h.Service.SessionFromToken(token)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}

		ctx := internal.ContextWithSession(r.Context(), session)
		ctx = logger.With(ctx, "user_id", session.UserID, "username", session.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PermissionCatalog handles GET /permissions/catalog
func (h *Handler) PermissionCatalog(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, permission.Catalog())
}

// RolePermissions handles GET /roles/{role}/permissions. Unknown roles
// resolve to viewer.
func (h *Handler) RolePermissions(w http.ResponseWriter, r *http.Request) {
	role := permission.Role(chi.URLParam(r, "role"))
	h.WriteJSON(w, http.StatusOK, permission.Resolve(role))
}
