package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/account"
	"github.com/frahmantamala/hrm-access/internal/audit"
	"github.com/frahmantamala/hrm-access/internal/auth"
	"github.com/frahmantamala/hrm-access/internal/backup"
	"github.com/frahmantamala/hrm-access/internal/department"
	"github.com/frahmantamala/hrm-access/internal/metrics"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/frahmantamala/hrm-access/internal/transport/middleware"
	"github.com/frahmantamala/hrm-access/internal/transport/swagger"
	"github.com/go-chi/chi"
)

type Handlers struct {
	Auth       *auth.Handler
	Account    *account.Handler
	Department *department.Handler
	Audit      *audit.Handler
	Backup     *backup.Handler
	RBAC       *auth.RBACAuthorization
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, cfg *internal.Config, openAPI []byte, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db, cfg.Database.Driver, cfg.Database.QueryTimeout)
	rbac := h.RBAC

	router.Use(middleware.RequestID)
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get(swagger.SpecPath, swagger.SpecHandler(openAPI))
	router.Handle("/swagger/*", swagger.Handler())
	if cfg.Observability.Metrics.Enabled {
		router.Handle(cfg.Observability.Metrics.Path, metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Post("/auth/login", h.Auth.Login)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Post("/auth/logout", h.Auth.Logout)
			pr.Get("/auth/session", h.Auth.CurrentSession)
			pr.Post("/auth/password", h.Account.ChangeOwnPassword)

			pr.Get("/permissions/catalog", h.Auth.PermissionCatalog)
			pr.Get("/roles/{role}/permissions", h.Auth.RolePermissions)

			if h.Department != nil {
				pr.Get("/departments", h.Department.ListDepartments)
			}

			pr.Route("/accounts", func(ar chi.Router) {
				ar.Use(rbac.RequireCapability(permission.ManageUsers))

				ar.Get("/", h.Account.ListAccounts)
				ar.Post("/", h.Account.CreateAccount)
				ar.With(rbac.RequireCapability(permission.ExportData)).Get("/export", h.Account.ExportAccounts)
				ar.Get("/{id}", h.Account.GetAccount)
				ar.Put("/{id}", h.Account.UpdateAccount)
				ar.Delete("/{id}", h.Account.DeleteAccount)
				ar.Post("/{id}/reset-password", h.Account.ResetPassword)
			})

			if h.Audit != nil {
				pr.Group(func(rr chi.Router) {
					rr.Use(rbac.RequireCapability(permission.ViewReports))
					rr.Get("/audit-logs", h.Audit.ListAuditLogs)
					rr.Get("/audit-logs/summary", h.Audit.GetSummary)
				})
			}

			if h.Backup != nil {
				pr.Group(func(br chi.Router) {
					br.Use(rbac.RequireCapability(permission.ManageSettings))
					br.Post("/backups", h.Backup.CreateBackup)
					br.Get("/backups/info", h.Backup.GetInfo)
				})
			}
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.Auth.HandleServiceError(w, internal.NewNotFoundError("route not found", internal.ErrCodeRouteNotFound))
	})
}
