package department_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/hrm-access/internal"
	"github.com/frahmantamala/hrm-access/internal/department"
	"github.com/frahmantamala/hrm-access/internal/permission"
	"github.com/frahmantamala/hrm-access/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDepartment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Department Suite")
}

type stubRepository struct {
	departments []string
	err         error
}

func (s *stubRepository) List(ctx context.Context) ([]string, error) {
	return s.departments, s.err
}

var _ = Describe("Department Service", func() {
	var (
		repo    *stubRepository
		service *department.Service
		logger  *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = &stubRepository{departments: []string{"Cutting", "Finishing", "Sewing"}}
		service = department.NewService(repo, logger, time.Second)
	})

	It("returns the repository list", func() {
		departments, err := service.List(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(departments).To(Equal([]string{"Cutting", "Finishing", "Sewing"}))
	})

	It("returns an empty list rather than nil", func() {
		repo.departments = nil
		departments, err := service.List(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(departments).NotTo(BeNil())
		Expect(departments).To(BeEmpty())
	})

	It("maps store failures to persistence errors", func() {
		repo.err = errors.New("no such table: employees")
		_, err := service.List(context.Background())
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypePersistence))
		Expect(appErr.Message).To(Equal("no such table: employees"))
	})

	Describe("Handler", func() {
		list := func(session *permission.Session) *httptest.ResponseRecorder {
			h := department.NewHandler(transport.NewBaseHandler(logger), service)
			req := httptest.NewRequest(http.MethodGet, "/departments", nil)
			if session != nil {
				req = req.WithContext(internal.ContextWithSession(req.Context(), session))
			}
			w := httptest.NewRecorder()
			h.ListDepartments(w, req)
			return w
		}

		It("narrows the list to the session's department", func() {
			dept := "Sewing"
			w := list(&permission.Session{UserID: 2, DepartmentAccess: &dept, Permissions: permission.Resolve(permission.RoleHRStaff)})
			Expect(w.Code).To(Equal(http.StatusOK))

			var body department.DepartmentsResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Departments).To(Equal([]string{"Sewing"}))
		})

		It("shows everything to unrestricted sessions", func() {
			w := list(&permission.Session{UserID: 1, Permissions: permission.Resolve(permission.RoleViewer)})
			var body department.DepartmentsResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Departments).To(HaveLen(3))
		})

		It("requires a session", func() {
			Expect(list(nil).Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
