package backup

import (
	"context"
	"net/http"

	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/frahmantamala/hrm-access/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, session *permission.Session) (*Backup, error)
	Info(ctx context.Context, session *permission.Session) (*Info, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// CreateBackup handles POST /backups
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	b, err := h.Service.Create(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, b)
}

// GetInfo handles GET /backups/info
func (h *Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	info, err := h.Service.Info(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, info)
}
