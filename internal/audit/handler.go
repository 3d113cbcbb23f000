package audit

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/frahmantamala/hrm-access/internal/transport"
)

const dateLayout = "2006-01-02"

type ServiceAPI interface {
	List(ctx context.Context, session *permission.Session, filter Filter) (*Result, error)
	Summary(ctx context.Context, session *permission.Session) (*Summary, error)
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

// ListAuditLogs handles GET /audit-logs
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	filter, appErr := ParseFilter(r.URL.Query())
	if appErr != nil {
		h.HandleServiceError(w, appErr)
		return
	}

	result, err := h.Service.List(r.Context(), session, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// GetSummary handles GET /audit-logs/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.Summary(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

// ParseFilter reads username, action, entity_type, from, to, limit and offset.
func ParseFilter(q url.Values) (Filter, *internal.AppError) {
	filter := Filter{
		Username:   q.Get("username"),
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError(p.name, "date must be YYYY-MM-DD", internal.ErrCodeValidationFailed)
		}
		*p.dst = &t
	}

	for _, p := range []struct {
		name string
		dst  *uint64
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError(p.name, p.name+" must be a non-negative integer", internal.ErrCodeValidationFailed)
		}
		*p.dst = n
	}

	return filter, nil
}
