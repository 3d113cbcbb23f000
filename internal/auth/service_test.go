package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/account"
	userDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/user"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/frahmantamala/hrm-access/internal/transport"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock UserRepository for testing
type mockUserRepository struct {
	users         map[string]*userDatamodel.User
	touched       map[int64]time.Time
	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)
	dept := "Sewing"

	build := func(id int64, username string, role permission.Role, active bool, department *string) *userDatamodel.User {
		u := account.ToDataModel(&account.Account{
			ID:               id,
			Username:         username,
			PasswordHash:     string(hashedPassword),
			FullName:         username + " user",
			Role:             role,
			Permissions:      permission.Resolve(role),
			DepartmentAccess: department,
			IsActive:         active,
		})
		return u
	}

	return &mockUserRepository{
		users: map[string]*userDatamodel.User{
			"admin":   build(1, "admin", permission.RoleAdmin, true, nil),
			"staff":   build(2, "staff", permission.RoleHRStaff, true, &dept),
			"retired": build(3, "retired", permission.RoleViewer, false, nil),
		},
		touched: map[int64]time.Time{},
	}
}

func (m *mockUserRepository) GetByUsername(_ context.Context, username string) (*userDatamodel.User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepository) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	m.touched[id] = at
	return nil
}

func (m *mockUserRepository) setError(err error) {
	m.returnError = true
	m.errorToReturn = err
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		tokenGen *JWTTokenGenerator
		logger   *slog.Logger
		ctx      context.Context
		secret   = "test-secret-with-at-least-32-characters"
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator(secret, time.Hour)
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, tokenGen, nil, logger, time.Second)
	})

	ginkgo.Describe("Login", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return a token carrying the session snapshot", func() {
				// Given
				dto := LoginDTO{Username: "staff", Password: "correct_password"}

				// When
				result, err := service.Login(ctx, dto)

				// Then
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(result.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(result.Session.Role).To(gomega.Equal(permission.RoleHRStaff))
				gomega.Expect(result.Session.Permissions).To(gomega.Equal(permission.Resolve(permission.RoleHRStaff)))
				gomega.Expect(*result.Session.DepartmentAccess).To(gomega.Equal("Sewing"))
				gomega.Expect(mockRepo.touched).To(gomega.HaveKey(int64(2)))
			})

			ginkgo.It("should rebuild the same session from the token", func() {
				result, err := service.Login(ctx, LoginDTO{Username: "admin", Password: "correct_password"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				session, err := service.SessionFromToken(result.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(session).To(gomega.Equal(result.Session))
			})

			ginkgo.It("should keep the snapshot when the stored account changes", func() {
				result, err := service.Login(ctx, LoginDTO{Username: "admin", Password: "correct_password"})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				mockRepo.users["admin"].CanManageUsers = false

				session, err := service.SessionFromToken(result.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(permission.Authorize(session, "manage_users")).To(gomega.BeTrue())
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should return error for unknown username", func() {
				_, err := service.Login(ctx, LoginDTO{Username: "ghost", Password: "any_password"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})

			ginkgo.It("should still run a bcrypt comparison for an unknown username", func() {
				var compared [][]byte
				original := compareHash
				compareHash = func(hash, password []byte) error {
					compared = append(compared, hash)
					return original(hash, password)
				}
				ginkgo.DeferCleanup(func() { compareHash = original })

				_, err := service.Login(ctx, LoginDTO{Username: "ghost", Password: "any_password"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
				gomega.Expect(compared).To(gomega.HaveLen(1))
				gomega.Expect(compared[0]).To(gomega.Equal(unknownUserHash()))

				_, err = service.Login(ctx, LoginDTO{Username: "admin", Password: "wrong"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
				gomega.Expect(compared).To(gomega.HaveLen(2))
			})

			ginkgo.It("should return error for invalid password", func() {
				_, err := service.Login(ctx, LoginDTO{Username: "admin", Password: "wrong"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})

			ginkgo.It("should reject empty fields", func() {
				_, err := service.Login(ctx, LoginDTO{})
				appErr, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
			})
		})

		ginkgo.Context("when the account is deactivated", func() {
			ginkgo.It("should refuse the login after verifying the password", func() {
				_, err := service.Login(ctx, LoginDTO{Username: "retired", Password: "correct_password"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrUserInactive))

				_, err = service.Login(ctx, LoginDTO{Username: "retired", Password: "wrong"})
				gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
			})
		})

		ginkgo.Context("when the store fails", func() {
			ginkgo.It("should surface a persistence error", func() {
				mockRepo.setError(errors.New("connection refused"))
				_, err := service.Login(ctx, LoginDTO{Username: "admin", Password: "correct_password"})
				appErr, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypePersistence))
			})
		})
	})

	ginkgo.Describe("Tokens", func() {
		ginkgo.It("should reject tokens signed with another secret", func() {
			other := NewJWTTokenGenerator("another-secret-with-at-least-32-chars", time.Hour)
			token, _, err := other.GenerateAccessToken(&permission.Session{UserID: 1, Username: "admin"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.SessionFromToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("should reject expired tokens", func() {
			tokenGen.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
			token, _, err := tokenGen.GenerateAccessToken(&permission.Session{UserID: 1, Username: "admin"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			tokenGen.Now = time.Now

			_, err = service.SessionFromToken(token)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})

		ginkgo.It("should reject garbage", func() {
			_, err := service.SessionFromToken("not-a-token")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should revoke the token", func() {
			result, err := service.Login(ctx, LoginDTO{Username: "admin", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.Logout(ctx, result.AccessToken)).To(gomega.Succeed())

			_, err = service.SessionFromToken(result.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
			gomega.Expect(service.Logout(ctx, result.AccessToken)).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})
})

var _ = ginkgo.Describe("RBACAuthorization", func() {
	var (
		rbac   *RBACAuthorization
		called bool
		next   http.HandlerFunc
	)

	ginkgo.BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		rbac = NewRBACAuthorization(NewPermissionChecker(), logger)
		called = false
		next = func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}
	})

	serve := func(session *permission.Session, caps ...permission.Capability) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
		if session != nil {
			req = req.WithContext(internal.ContextWithSession(req.Context(), session))
		}
		w := httptest.NewRecorder()
		rbac.RequireCapability(caps...)(next).ServeHTTP(w, req)
		return w
	}

	ginkgo.It("should return 401 without a session", func() {
		w := serve(nil, permission.ManageUsers)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(called).To(gomega.BeFalse())
	})

	ginkgo.It("should return 403 when a capability is missing", func() {
		session := &permission.Session{UserID: 2, Role: permission.RoleHRManager, Permissions: permission.Resolve(permission.RoleHRManager)}
		w := serve(session, permission.ManageUsers)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(called).To(gomega.BeFalse())
	})

	ginkgo.It("should require every listed capability", func() {
		perms := permission.Resolve(permission.RoleViewer)
		perms.ManageUsers = true
		session := &permission.Session{UserID: 3, Role: permission.RoleCustom, Permissions: perms}
		w := serve(session, permission.ManageUsers, permission.ExportData, permission.ViewReports)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(w.Body.String()).To(gomega.ContainSubstring("export_data,view_reports"))
		gomega.Expect(called).To(gomega.BeFalse())
	})

	ginkgo.It("should pass through when allowed", func() {
		session := &permission.Session{UserID: 1, Role: permission.RoleAdmin, Permissions: permission.Resolve(permission.RoleAdmin)}
		w := serve(session, permission.ManageUsers, permission.ExportData)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(called).To(gomega.BeTrue())
	})
})

var _ = ginkgo.Describe("AuthMiddleware", func() {
	ginkgo.It("should attach the session to the request context", func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc := NewService(newMockUserRepository(), NewJWTTokenGenerator("test-secret-with-at-least-32-characters", time.Hour), nil, logger, time.Second)
		h := NewHandler(transport.NewBaseHandler(logger), svc)

		result, err := svc.Login(context.Background(), LoginDTO{Username: "staff", Password: "correct_password"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		var seen *permission.Session
		protected := h.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = internal.SessionFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.Header.Set("Authorization", "Bearer "+result.AccessToken)
		protected.ServeHTTP(httptest.NewRecorder(), req)

		gomega.Expect(seen).ToNot(gomega.BeNil())
		gomega.Expect(seen.Username).To(gomega.Equal("staff"))

		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
	})
})

var _ = ginkgo.Describe("DepartmentPolicy", func() {
	policy := &DepartmentPolicy{}
	dept := "Cutting"

	ginkgo.It("should scope a restricted session to its department", func() {
		session := &permission.Session{DepartmentAccess: &dept, Permissions: permission.Resolve(permission.RoleHRStaff)}
		gomega.Expect(policy.Visible(session, []string{"Cutting", "Sewing"})).To(gomega.Equal([]string{"Cutting"}))
		gomega.Expect(policy.Allow(session, "Sewing")).To(gomega.BeFalse())
	})

	ginkgo.It("should let view_all_departments override the scope", func() {
		session := &permission.Session{DepartmentAccess: &dept, Permissions: permission.Resolve(permission.RoleHRManager)}
		gomega.Expect(policy.Visible(session, []string{"Cutting", "Sewing"})).To(gomega.HaveLen(2))
	})

	ginkgo.It("should deny a nil session", func() {
		gomega.Expect(policy.Allow(nil, "Cutting")).To(gomega.BeFalse())
	})
})
