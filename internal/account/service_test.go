package account_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/account"
	userDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/user"
	"github.com/frahmantamala/hrm-access/internal/core/events"
	"github.com/frahmantamala/hrm-access/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAccountService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Account Service Suite")
}

// MockRepository implements account.RepositoryAPI for testing
type MockRepository struct {
	mu         sync.Mutex
	users      map[int64]*userDatamodel.User
	nextID     int64
	shouldFail bool
	failError  error
	block      bool
	calls      int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		users:  make(map[int64]*userDatamodel.User),
		nextID: 1,
	}
}

func (m *MockRepository) fail(ctx context.Context) error {
	m.calls++
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.shouldFail {
		return m.failError
	}
	return nil
}

func (m *MockRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx); err != nil {
		return err
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return account.ErrUsernameConflict
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MockRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx); err != nil {
		return err
	}
	cp := *u
	cp.PasswordHash = m.users[u.ID].PasswordHash
	m.users[u.ID] = &cp
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MockRepository) GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) List(ctx context.Context) ([]*userDatamodel.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx); err != nil {
		return nil, err
	}
	var result []*userDatamodel.User
	for _, u := range m.users {
		cp := *u
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx); err != nil {
		return err
	}
	delete(m.users, id)
	return nil
}

func (m *MockRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(ctx); err != nil {
		return err
	}
	m.users[id].PasswordHash = hash
	return nil
}

func (m *MockRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].LastLogin = &at
	return nil
}

func (m *MockRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

// Helper methods for testing
func (m *MockRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

func (m *MockRepository) Seed(username, password string, role permission.Role) *userDatamodel.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	acc := &account.Account{
		Username:     username,
		PasswordHash: string(hash),
		FullName:     username + " test",
		Role:         role,
		Permissions:  permission.Resolve(role),
		IsActive:     true,
	}
	model := account.ToDataModel(acc)
	Expect(m.Create(context.Background(), model)).To(Succeed())
	return model
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

type stubExporter struct {
	got []*account.Account
}

func (s *stubExporter) Roster(accounts []*account.Account) ([]byte, error) {
	s.got = accounts
	return []byte("xlsx"), nil
}

func sessionFor(u *userDatamodel.User) *permission.Session {
	return account.FromDataModel(u).Session()
}

func appErrorType(err error) internal.ErrorType {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected AppError, got %v", err)
	return appErr.Type
}

var _ = Describe("Account Service", func() {
	var (
		mockRepo  *MockRepository
		publisher *recordingPublisher
		exporter  *stubExporter
		service   *account.Service
		logger    *slog.Logger
		ctx       context.Context
		admin     *userDatamodel.User
		adminSess *permission.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockRepo = NewMockRepository()
		publisher = &recordingPublisher{}
		exporter = &stubExporter{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = account.NewService(mockRepo, publisher, exporter, logger, account.Options{
			BCryptCost:   bcrypt.MinCost,
			QueryTimeout: time.Second,
		})
		admin = mockRepo.Seed("admin", "admin123", permission.RoleAdmin)
		adminSess = sessionFor(admin)
	})

	Describe("Create", func() {
		var dto account.CreateAccountDTO

		BeforeEach(func() {
			dto = account.CreateAccountDTO{
				Username: "kamala.p",
				Password: "secret1",
				FullName: "Kamala Perera",
				Role:     "hr_staff",
			}
		})

		It("stores the preset of the requested role", func() {
			acc, err := service.Create(ctx, adminSess, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.ID).To(BeNumerically(">", 0))
			Expect(acc.Role).To(Equal(permission.RoleHRStaff))
			Expect(acc.Permissions).To(Equal(permission.Resolve(permission.RoleHRStaff)))
			Expect(acc.IsActive).To(BeTrue())
			Expect(bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("secret1"))).To(Succeed())
			Expect(publisher.Types()).To(ContainElement(events.EventTypeAccountCreated))
		})

		It("relabels an explicit set that drifted from the role as custom", func() {
			perms := permission.Resolve(permission.RoleViewer)
			perms.ExportData = true
			dto.Role = "viewer"
			dto.Permissions = &perms

			acc, err := service.Create(ctx, adminSess, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal(permission.RoleCustom))
			Expect(acc.Permissions.ExportData).To(BeTrue())
		})

		It("gives custom without permissions the viewer preset", func() {
			dto.Role = "custom"
			acc, err := service.Create(ctx, adminSess, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal(permission.RoleViewer))
			Expect(acc.Permissions).To(Equal(permission.Resolve(permission.RoleViewer)))
		})

		It("requires manage_users", func() {
			staff := mockRepo.Seed("staff", "secret1", permission.RoleHRStaff)
			calls := mockRepo.calls

			_, err := service.Create(ctx, sessionFor(staff), dto)
			Expect(err).To(MatchError(internal.ErrPermissionDenied))
			Expect(mockRepo.calls).To(Equal(calls))
		})

		It("rejects a missing session", func() {
			_, err := service.Create(ctx, nil, dto)
			Expect(err).To(MatchError(internal.ErrNotLoggedIn))
		})

		DescribeTable("validates before touching the store",
			func(mutate func(*account.CreateAccountDTO)) {
				mutate(&dto)
				calls := mockRepo.calls
				_, err := service.Create(ctx, adminSess, dto)
				Expect(err).To(HaveOccurred())
				Expect(appErrorType(err)).To(Equal(internal.ErrorTypeValidation))
				Expect(mockRepo.calls).To(Equal(calls))
			},
			Entry("short username", func(d *account.CreateAccountDTO) { d.Username = "ab" }),
			Entry("long username", func(d *account.CreateAccountDTO) { d.Username = "abcdefghijklmnopqrstuvwxyz0123456" }),
			Entry("username with spaces", func(d *account.CreateAccountDTO) { d.Username = "kamala p" }),
			Entry("short password", func(d *account.CreateAccountDTO) { d.Password = "12345" }),
			Entry("empty full name", func(d *account.CreateAccountDTO) { d.FullName = "" }),
			Entry("unknown role", func(d *account.CreateAccountDTO) { d.Role = "superuser" }),
		)

		It("reports a duplicate username as a conflict", func() {
			dto.Username = "admin"
			_, err := service.Create(ctx, adminSess, dto)
			Expect(err).To(MatchError(internal.ErrUsernameTaken))
			Expect(appErrorType(err)).To(Equal(internal.ErrorTypeConflict))
		})

		It("passes store failures through verbatim", func() {
			mockRepo.SetShouldFail(true, errors.New("disk I/O error"))
			_, err := service.Create(ctx, adminSess, dto)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypePersistence))
			Expect(appErr.Message).To(Equal("disk I/O error"))
		})

		It("bounds the store call with the query timeout", func() {
			service = account.NewService(mockRepo, publisher, exporter, logger, account.Options{
				BCryptCost:   bcrypt.MinCost,
				QueryTimeout: 20 * time.Millisecond,
			})
			mockRepo.block = true

			_, err := service.Create(ctx, adminSess, dto)
			Expect(appErrorType(err)).To(Equal(internal.ErrorTypeTimeout))
		})
	})

	Describe("Update", func() {
		var staff *userDatamodel.User

		BeforeEach(func() {
			staff = mockRepo.Seed("nimal", "secret1", permission.RoleHRStaff)
		})

		It("switches the account to a new preset", func() {
			acc, err := service.Update(ctx, adminSess, account.UpdateAccountDTO{
				ID:       staff.ID,
				FullName: "Nimal Silva",
				Role:     "hr_manager",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal(permission.RoleHRManager))
			Expect(acc.Permissions).To(Equal(permission.Resolve(permission.RoleHRManager)))
			Expect(acc.FullName).To(Equal("Nimal Silva"))
			Expect(acc.PasswordHash).To(Equal(staff.PasswordHash))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeAccountUpdated))
		})

		It("keeps stored flags when custom is given without a set", func() {
			perms := permission.Set{ViewEmployees: true, ExportData: true, ViewReports: true}
			created, err := service.Create(ctx, adminSess, account.CreateAccountDTO{
				Username:    "nimal.p",
				Password:    "secret1",
				FullName:    "Nimal",
				Role:        "custom",
				Permissions: &perms,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Role).To(Equal(permission.RoleCustom))

			acc, err := service.Update(ctx, adminSess, account.UpdateAccountDTO{
				ID: created.ID, FullName: "Nimal P", Role: "custom",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal(permission.RoleCustom))
			Expect(acc.Permissions).To(Equal(perms))
			Expect(acc.FullName).To(Equal("Nimal P"))
		})

		It("keeps the activity flag when none is given", func() {
			acc, err := service.Update(ctx, adminSess, account.UpdateAccountDTO{
				ID: staff.ID, FullName: "Nimal", Role: "hr_staff",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.IsActive).To(BeTrue())
		})

		It("returns not found for a missing account", func() {
			_, err := service.Update(ctx, adminSess, account.UpdateAccountDTO{
				ID: 999, FullName: "Nobody", Role: "viewer",
			})
			Expect(err).To(MatchError(internal.ErrAccountNotFound))
		})

		Context("on the session's own account", func() {
			It("refuses a role without manage_users", func() {
				_, err := service.Update(ctx, adminSess, account.UpdateAccountDTO{
					ID: admin.ID, FullName: "Admin", Role: "hr_manager",
				})
				Expect(err).To(MatchError(internal.ErrSelfLockout))
				Expect(appErrorType(err)).To(Equal(internal.ErrorTypeSelfLockout))
			})

			It("refuses deactivation", func() {
				inactive := false
				_, err := service.Update(ctx, adminSess, account.UpdateAccountDTO{
					ID: admin.ID, FullName: "Admin", Role: "admin", IsActive: &inactive,
				})
				Expect(err).To(MatchError(internal.ErrSelfLockout))
			})

			It("allows edits that keep manage_users", func() {
				perms := permission.Resolve(permission.RoleAdmin)
				perms.ManageSettings = false
				acc, err := service.Update(ctx, adminSess, account.UpdateAccountDTO{
					ID: admin.ID, FullName: "Admin", Role: "admin", Permissions: &perms,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(acc.Role).To(Equal(permission.RoleCustom))
			})
		})
	})

	Describe("EditState and SubmitEditor", func() {
		It("disables manage_users and activity for the session's own account", func() {
			state, editor, err := service.EditState(ctx, adminSess, admin.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.DisabledControls).To(ConsistOf("manage_users"))
			Expect(state.ActiveLocked).To(BeTrue())
			Expect(editor.Toggle(permission.ManageUsers, false)).To(MatchError(permission.ErrSelfLockout))
		})

		It("persists the editor snapshot", func() {
			staff := mockRepo.Seed("ruwan", "secret1", permission.RoleHRStaff)
			_, editor, err := service.EditState(ctx, adminSess, staff.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(editor.Toggle(permission.EditEmployees, true)).To(Succeed())

			acc, err := service.SubmitEditor(ctx, adminSess, staff.ID, "Ruwan", nil, editor)
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Role).To(Equal(permission.RoleCustom))
			Expect(acc.Permissions.EditEmployees).To(BeTrue())
		})
	})

	Describe("List", func() {
		It("requires manage_users", func() {
			viewer := mockRepo.Seed("viewer", "secret1", permission.RoleViewer)
			_, err := service.List(ctx, sessionFor(viewer))
			Expect(err).To(MatchError(internal.ErrPermissionDenied))
		})

		It("returns every account", func() {
			mockRepo.Seed("viewer", "secret1", permission.RoleViewer)
			accounts, err := service.List(ctx, adminSess)
			Expect(err).NotTo(HaveOccurred())
			Expect(accounts).To(HaveLen(2))
		})
	})

	Describe("Delete", func() {
		It("refuses to delete the session's own account", func() {
			err := service.Delete(ctx, adminSess, admin.ID)
			Expect(err).To(MatchError(internal.ErrCannotDeleteSelf))
			Expect(err).NotTo(MatchError(internal.ErrSelfLockout))

			var appErr *internal.AppError
			Expect(errors.As(err, &appErr)).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeCannotDeleteSelf))
			Expect(appErr.Type).To(Equal(internal.ErrorTypeSelfLockout))
		})

		It("deletes another account", func() {
			other := mockRepo.Seed("other", "secret1", permission.RoleViewer)
			Expect(service.Delete(ctx, adminSess, other.ID)).To(Succeed())
			_, err := service.Get(ctx, adminSess, other.ID)
			Expect(err).To(MatchError(internal.ErrAccountNotFound))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeAccountDeleted))
		})
	})

	Describe("ResetPassword", func() {
		It("rejects a short password", func() {
			err := service.ResetPassword(ctx, adminSess, admin.ID, "123")
			Expect(appErrorType(err)).To(Equal(internal.ErrorTypeValidation))
		})

		It("replaces the password hash", func() {
			other := mockRepo.Seed("other", "secret1", permission.RoleViewer)
			Expect(service.ResetPassword(ctx, adminSess, other.ID, "newpass")).To(Succeed())
			stored, _ := mockRepo.GetByID(ctx, other.ID)
			Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpass"))).To(Succeed())
		})
	})

	Describe("ChangeOwnPassword", func() {
		It("does not need manage_users", func() {
			viewer := mockRepo.Seed("viewer", "secret1", permission.RoleViewer)
			Expect(service.ChangeOwnPassword(ctx, sessionFor(viewer), "secret1", "secret2")).To(Succeed())
		})

		It("verifies the current password", func() {
			err := service.ChangeOwnPassword(ctx, adminSess, "wrong", "secret2")
			Expect(err).To(MatchError(internal.ErrWrongPassword))
		})
	})

	Describe("Export", func() {
		It("requires export_data in addition to manage_users", func() {
			perms := permission.Resolve(permission.RoleViewer)
			perms.ManageUsers = true
			session := &permission.Session{UserID: 50, Username: "custom", Role: permission.RoleCustom, Permissions: perms}

			_, err := service.Export(ctx, session)
			Expect(err).To(MatchError(internal.ErrPermissionDenied))
		})

		It("hands every account to the exporter", func() {
			data, err := service.Export(ctx, adminSess)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte("xlsx")))
			Expect(exporter.got).To(HaveLen(1))
		})
	})
})

var _ = Describe("account DTO decoding", func() {
	It("rejects a partial permission set", func() {
		var dto account.CreateAccountDTO
		body := `{"username":"kamala","password":"secret1","full_name":"Kamala","role":"viewer",` +
			`"permissions":{"can_export_data":true}}`
		Expect(json.Unmarshal([]byte(body), &dto)).To(MatchError(permission.ErrInvalidSet))
	})

	It("rejects a misspelled permission key", func() {
		var dto account.UpdateAccountDTO
		body := `{"full_name":"Kamala","role":"viewer",` +
			`"permissions":{"can_export_data":true,"can_manage_userz":true}}`
		Expect(json.Unmarshal([]byte(body), &dto)).To(MatchError(permission.ErrInvalidSet))
	})

	It("leaves permissions nil when omitted", func() {
		var dto account.CreateAccountDTO
		Expect(json.Unmarshal([]byte(`{"username":"kamala","role":"viewer"}`), &dto)).To(Succeed())
		Expect(dto.Permissions).To(BeNil())
	})
})
