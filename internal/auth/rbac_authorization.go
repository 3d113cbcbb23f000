package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/frahmantamala/hrm-access/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
	checker PermissionChecker
}

func NewRBACAuthorization(checker PermissionChecker, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		checker:     checker,
	}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, capabilities ...permission.Capability) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := internal.SessionFromContext(r.Context())
		if session == nil {
			ra.Logger.Warn("authorization check failed: session not found in context")
			ra.HandleServiceError(w, internal.ErrNotLoggedIn)
			return
		}

		if !ra.checker.HasAll(session, capabilities...) {
			missing := missingCapabilities(session, capabilities)
			ra.Logger.WarnContext(r.Context(), "access denied: missing capability",
				"user_id", session.UserID,
				"required_capability", missing,
				"role", session.Role)
			ra.HandleServiceError(w, internal.ErrPermissionDenied.WithDetails(map[string]string{"capability": strings.Join(missing, ",")}))
			return
		}

		next.ServeHTTP(w, r)
	}
}

// RequireCapability gates a route on every listed capability.
func (ra *RBACAuthorization) RequireCapability(capabilities ...permission.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, capabilities...)
	}
}

func missingCapabilities(session *permission.Session, capabilities []permission.Capability) []string {
	var missing []string
	for _, c := range capabilities {
		if !session.Permissions.Has(c) {
			missing = append(missing, string(c))
		}
	}
	return missing
}
