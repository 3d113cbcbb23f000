package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/user"
	"github.com/frahmantamala/hrm-access/internal/core/events"
	"github.com/frahmantamala/hrm-access/internal/metrics"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"golang.org/x/crypto/bcrypt"
)

const entityType = "user"

type RepositoryAPI interface {
	Create(ctx context.Context, user *userDatamodel.User) error
	Update(ctx context.Context, user *userDatamodel.User) error
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	List(ctx context.Context) ([]*userDatamodel.User, error)
	Delete(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Exporter interface {
	Roster(accounts []*Account) ([]byte, error)
}

type Options struct {
	BCryptCost   int
	QueryTimeout time.Duration
}

type Service struct {
	repo         RepositoryAPI
	publisher    Publisher
	exporter     Exporter
	logger       *slog.Logger
	bcryptCost   int
	queryTimeout time.Duration
}

func NewService(repo RepositoryAPI, publisher Publisher, exporter Exporter, logger *slog.Logger, opts Options) *Service {
	cost := opts.BCryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		repo:         repo,
		publisher:    publisher,
		exporter:     exporter,
		logger:       logger,
		bcryptCost:   cost,
		queryTimeout: opts.QueryTimeout,
	}
}

func (s *Service) Create(ctx context.Context, session *permission.Session, dto CreateAccountDTO) (*Account, error) {
	if err := s.authorize(session, permission.ManageUsers); err != nil {
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	role, _ := permission.ParseRole(dto.Role)
	role, perms := permission.Normalize(role, dto.Permissions)

	hash, err := s.hashPassword(dto.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if dto.IsActive != nil {
		active = *dto.IsActive
	}

	acc := &Account{
		Username:         dto.Username,
		PasswordHash:     hash,
		FullName:         dto.FullName,
		Role:             role,
		DepartmentAccess: dto.DepartmentAccess,
		Permissions:      perms,
		IsActive:         active,
	}

	model := ToDataModel(acc)
	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, model)
	})
	metrics.RecordMutation("create", err)
	if err != nil {
		s.logger.Error("failed to create account", "username", dto.Username, "error", err)
		return nil, err
	}

	created := FromDataModel(model)
	s.logger.Info("account created",
		"account_id", created.ID,
		"username", created.Username,
		"role", created.Role,
		"by", session.Username)

	s.publish(ctx, session, events.EventTypeAccountCreated, created.ID, "", created.snapshot(),
		"Created user "+created.Username+" with role "+string(created.Role))
	return created, nil
}

func (s *Service) Update(ctx context.Context, session *permission.Session, dto UpdateAccountDTO) (*Account, error) {
	if err := s.authorize(session, permission.ManageUsers); err != nil {
		return nil, err
	}
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	existing, err := s.load(ctx, dto.ID)
	if err != nil {
		return nil, err
	}

	role, _ := permission.ParseRole(dto.Role)
	explicit := dto.Permissions
	if explicit == nil && role == permission.RoleCustom {
		// custom without a set keeps the stored flags
		kept := existing.Permissions
		explicit = &kept
	}
	role, perms := permission.Normalize(role, explicit)

	active := existing.IsActive
	if dto.IsActive != nil {
		active = *dto.IsActive
	}

	if dto.ID == session.UserID && (!active || !perms.ManageUsers) {
		s.logger.Warn("refused self lockout", "account_id", dto.ID, "active", active, "manage_users", perms.ManageUsers)
		metrics.RecordMutation("update", internal.ErrSelfLockout)
		return nil, internal.ErrSelfLockout
	}

	before := existing.snapshot()
	updated := *existing
	updated.FullName = dto.FullName
	updated.Role = role
	updated.Permissions = perms
	updated.DepartmentAccess = dto.DepartmentAccess
	updated.IsActive = active

	model := ToDataModel(&updated)
	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, model)
	})
	metrics.RecordMutation("update", err)
	if err != nil {
		s.logger.Error("failed to update account", "account_id", dto.ID, "error", err)
		return nil, err
	}

	result := FromDataModel(model)
	s.logger.Info("account updated",
		"account_id", result.ID,
		"role", result.Role,
		"is_active", result.IsActive,
		"by", session.Username)

	s.publish(ctx, session, events.EventTypeAccountUpdated, result.ID, before, result.snapshot(),
		"Updated user "+result.Username)
	return result, nil
}

func (s *Service) Get(ctx context.Context, session *permission.Session, id int64) (*Account, error) {
	if err := s.authorize(session, permission.ManageUsers); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// EditState loads an account for editing and reports the controls the
// session may not switch off.
func (s *Service) EditState(ctx context.Context, session *permission.Session, id int64) (*EditState, *permission.Editor, error) {
	acc, err := s.Get(ctx, session, id)
	if err != nil {
		return nil, nil, err
	}

	editor := permission.EditorFor(acc.Role, acc.Permissions, acc.IsActive, acc.ID == session.UserID)
	state := &EditState{
		Account:          acc,
		IsCustom:         editor.Role() == permission.RoleCustom,
		ActiveLocked:     editor.ActiveLocked(),
		DisabledControls: []string{},
	}
	for _, c := range permission.Capabilities {
		if editor.Disabled(c) {
			state.DisabledControls = append(state.DisabledControls, string(c))
		}
	}
	return state, editor, nil
}

// SubmitEditor persists the snapshot of editor for account id.
func (s *Service) SubmitEditor(ctx context.Context, session *permission.Session, id int64, fullName string, departmentAccess *string, editor *permission.Editor) (*Account, error) {
	role, perms := editor.Snapshot()
	active := editor.Active()
	return s.Update(ctx, session, UpdateAccountDTO{
		ID:               id,
		FullName:         fullName,
		Role:             string(role),
		Permissions:      &perms,
		DepartmentAccess: departmentAccess,
		IsActive:         &active,
	})
}

func (s *Service) List(ctx context.Context, session *permission.Session) ([]*Account, error) {
	if err := s.authorize(session, permission.ManageUsers); err != nil {
		return nil, err
	}

	var rows []*userDatamodel.User
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.List(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("failed to list accounts", "error", err)
		return nil, err
	}

	accounts := make([]*Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, FromDataModel(row))
	}
	return accounts, nil
}

func (s *Service) Delete(ctx context.Context, session *permission.Session, id int64) error {
	if err := s.authorize(session, permission.ManageUsers); err != nil {
		return err
	}
	if id == session.UserID {
		return internal.ErrCannotDeleteSelf
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
	metrics.RecordMutation("delete", err)
	if err != nil {
		s.logger.Error("failed to delete account", "account_id", id, "error", err)
		return err
	}

	s.logger.Info("account deleted", "account_id", id, "username", existing.Username, "by", session.Username)
	s.publish(ctx, session, events.EventTypeAccountDeleted, id, existing.snapshot(), "",
		"Deleted user "+existing.Username)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, session *permission.Session, id int64, newPassword string) error {
	if err := s.authorize(session, permission.ManageUsers); err != nil {
		return err
	}
	if appErr := validation.ValidatePassword("new_password", newPassword); appErr != nil {
		return appErr
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.repo.UpdatePassword(ctx, id, hash)
	})
	metrics.RecordMutation("reset_password", err)
	if err != nil {
		return err
	}

	s.logger.Info("password reset", "account_id", id, "by", session.Username)
	s.publish(ctx, session, events.EventTypeAccountPasswordReset, id, "", "",
		"Reset password for user "+existing.Username)
	return nil
}

// ChangeOwnPassword lets any logged-in account replace its password after
// proving the current one.
func (s *Service) ChangeOwnPassword(ctx context.Context, session *permission.Session, current, newPassword string) error {
	if session == nil {
		return internal.ErrNotLoggedIn
	}
	if appErr := validation.ValidatePassword("new_password", newPassword); appErr != nil {
		return appErr
	}

	own, err := s.load(ctx, session.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(own.PasswordHash), []byte(current)) != nil {
		return internal.ErrWrongPassword
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.withStore(ctx, func(ctx context.Context) error {
		return s.repo.UpdatePassword(ctx, own.ID, hash)
	})
	metrics.RecordMutation("change_password", err)
	if err != nil {
		return err
	}

	s.publish(ctx, session, events.EventTypePasswordChanged, own.ID, "", "", "User changed own password")
	return nil
}

// Export renders the account roster as an xlsx workbook.
func (s *Service) Export(ctx context.Context, session *permission.Session) ([]byte, error) {
	if err := s.authorize(session, permission.ManageUsers, permission.ExportData); err != nil {
		return nil, err
	}
	accounts, err := s.List(ctx, session)
	if err != nil {
		return nil, err
	}
	data, err := s.exporter.Roster(accounts)
	if err != nil {
		return nil, internal.NewInternalError("failed to export accounts", err)
	}
	return data, nil
}

func (s *Service) authorize(session *permission.Session, required ...permission.Capability) error {
	if session == nil {
		return internal.ErrNotLoggedIn
	}
	for _, c := range required {
		allowed := permission.AuthorizeCapability(session, c)
		metrics.RecordAuthorization(string(c), allowed)
		if !allowed {
			s.logger.Warn("authorization denied", "user_id", session.UserID, "capability", c)
			return internal.ErrPermissionDenied.WithDetails(map[string]string{"capability": string(c)})
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Account, error) {
	var row *userDatamodel.User
	err := s.withStore(ctx, func(ctx context.Context) error {
		var err error
		row, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, internal.ErrAccountNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", internal.NewInternalError("failed to hash password", err)
	}
	return string(hash), nil
}

// withStore runs fn under the query timeout and maps its error.
func (s *Service) withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := internal.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !internal.IsTimeout(err) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return StoreError(err)
}

// StoreError maps a repository error onto the service error kinds.
func StoreError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	if errors.Is(err, ErrUsernameConflict) {
		return internal.ErrUsernameTaken.WithCause(err)
	}
	if internal.IsTimeout(err) {
		return internal.NewTimeoutError("account store did not respond in time", err)
	}
	return internal.NewPersistenceError(err)
}

func (s *Service) publish(ctx context.Context, session *permission.Session, eventType string, id int64, oldValue, newValue, details string) {
	if s.publisher == nil {
		return
	}
	actorID := session.UserID
	event := events.NewActivityEvent(eventType, &actorID, session.Username, entityType, strconv.FormatInt(id, 10)).
		WithValues(oldValue, newValue).
		WithDetails(details)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish account event", "event_type", eventType, "error", err)
	}
}
