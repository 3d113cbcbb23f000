package department

import (
	"context"
	"net/http"

	"github.com/frahmantamala/hrm-access/internal/auth"
	"github.com/frahmantamala/hrm-access/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context) ([]string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Policy  *auth.DepartmentPolicy
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Policy:      &auth.DepartmentPolicy{},
	}
}

type DepartmentsResponse struct {
	Departments []string `json:"departments"`
}

// ListDepartments handles GET /departments
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	departments, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, DepartmentsResponse{Departments: h.Policy.Visible(session, departments)})
}
