package account

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/frahmantamala/hrm-access/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, session *permission.Session, dto CreateAccountDTO) (*Account, error)
	Update(ctx context.Context, session *permission.Session, dto UpdateAccountDTO) (*Account, error)
	Get(ctx context.Context, session *permission.Session, id int64) (*Account, error)
	EditState(ctx context.Context, session *permission.Session, id int64) (*EditState, *permission.Editor, error)
	List(ctx context.Context, session *permission.Session) ([]*Account, error)
	Delete(ctx context.Context, session *permission.Session, id int64) error
	ResetPassword(ctx context.Context, session *permission.Session, id int64, newPassword string) error
	ChangeOwnPassword(ctx context.Context, session *permission.Session, current, newPassword string) error
	Export(ctx context.Context, session *permission.Session) ([]byte, error)
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

// ListAccounts handles GET /accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	accounts, err := h.Service.List(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, AccountsResponse{Accounts: accounts})
}

// CreateAccount handles POST /accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	var dto CreateAccountDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	acc, err := h.Service.Create(r.Context(), session, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, acc)
}

// GetAccount handles GET /accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	state, _, err := h.Service.EditState(r.Context(), session, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, state)
}

// UpdateAccount handles PUT /accounts/{id}
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	var dto UpdateAccountDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	dto.ID = id

	acc, err := h.Service.Update(r.Context(), session, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, acc)
}

// DeleteAccount handles DELETE /accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), session, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /accounts/{id}/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}
	id, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	var dto ResetPasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.ResetPassword(r.Context(), session, id, dto.NewPassword); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangeOwnPassword handles POST /auth/password
func (h *Handler) ChangeOwnPassword(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	var dto ChangePasswordDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if err := h.Service.ChangeOwnPassword(r.Context(), session, dto.CurrentPassword, dto.NewPassword); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportAccounts handles GET /accounts/export
func (h *Handler) ExportAccounts(w http.ResponseWriter, r *http.Request) {
	session, ok := h.Session(w, r)
	if !ok {
		return
	}

	data, err := h.Service.Export(r.Context(), session)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("users_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.Logger.Error("ExportAccounts: failed to write workbook", "error", err)
	}
}
