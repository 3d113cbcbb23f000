package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/frahmantamala/hrm-access/internal/account"
	accountPostgres "github.com/frahmantamala/hrm-access/internal/account/postgres"
	userDatamodel "github.com/frahmantamala/hrm-access/internal/core/datamodel/user"
	"github.com/frahmantamala/hrm-access/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAccountPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Account Repository Suite")
}

func newUser(username string, role permission.Role) *userDatamodel.User {
	return account.ToDataModel(&account.Account{
		Username:     username,
		PasswordHash: "hash-" + username,
		FullName:     username + " full",
		Role:         role,
		Permissions:  permission.Resolve(role),
		IsActive:     true,
	})
}

var _ = Describe("Account Repository", func() {
	var (
		db   *gorm.DB
		repo account.RepositoryAPI
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&userDatamodel.User{})).To(Succeed())
		repo = accountPostgres.NewAccountRepository(db)
	})

	Describe("Create", func() {
		It("stores the nine flags and assigns an id", func() {
			u := newUser("admin", permission.RoleAdmin)
			Expect(repo.Create(ctx, u)).To(Succeed())
			Expect(u.ID).To(BeNumerically(">", 0))
			Expect(u.CreatedAt).NotTo(BeZero())

			stored, err := repo.GetByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.FromDataModel(stored).Permissions).To(Equal(permission.Resolve(permission.RoleAdmin)))
		})

		It("translates a duplicate username", func() {
			Expect(repo.Create(ctx, newUser("dup", permission.RoleViewer))).To(Succeed())
			err := repo.Create(ctx, newUser("dup", permission.RoleViewer))
			Expect(err).To(MatchError(account.ErrUsernameConflict))
		})
	})

	Describe("GetByUsername", func() {
		It("returns nil for an unknown username", func() {
			u, err := repo.GetByUsername(ctx, "ghost")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNil())
		})

		It("is case sensitive", func() {
			Expect(repo.Create(ctx, newUser("nimal", permission.RoleViewer))).To(Succeed())
			u, err := repo.GetByUsername(ctx, "NIMAL")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNil())
		})
	})

	Describe("Update", func() {
		var u *userDatamodel.User

		BeforeEach(func() {
			u = newUser("staff", permission.RoleHRStaff)
			Expect(repo.Create(ctx, u)).To(Succeed())
		})

		It("writes cleared flags and keeps the password hash", func() {
			changed := account.FromDataModel(u)
			changed.Role = permission.RoleViewer
			changed.Permissions = permission.Resolve(permission.RoleViewer)
			changed.IsActive = false
			changed.PasswordHash = ""

			Expect(repo.Update(ctx, account.ToDataModel(changed))).To(Succeed())

			stored, err := repo.GetByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Role).To(Equal("viewer"))
			Expect(stored.CanAddEmployees).To(BeFalse())
			Expect(stored.IsActive).To(BeFalse())
			Expect(stored.PasswordHash).To(Equal("hash-staff"))
		})
	})

	Describe("passwords and logins", func() {
		It("updates the hash and last login", func() {
			u := newUser("login", permission.RoleViewer)
			Expect(repo.Create(ctx, u)).To(Succeed())

			Expect(repo.UpdatePassword(ctx, u.ID, "new-hash")).To(Succeed())
			at := time.Now().Truncate(time.Second)
			Expect(repo.TouchLastLogin(ctx, u.ID, at)).To(Succeed())

			stored, err := repo.GetByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.PasswordHash).To(Equal("new-hash"))
			Expect(stored.LastLogin).NotTo(BeNil())
			Expect(stored.LastLogin.Unix()).To(Equal(at.Unix()))
		})
	})

	Describe("List, Count and Delete", func() {
		BeforeEach(func() {
			for _, name := range []string{"zara", "amal", "mala"} {
				Expect(repo.Create(ctx, newUser(name, permission.RoleViewer))).To(Succeed())
			}
		})

		It("lists ordered by username", func() {
			users, err := repo.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(3))
			Expect(users[0].Username).To(Equal("amal"))
			Expect(users[2].Username).To(Equal("zara"))
		})

		It("deletes by id", func() {
			u, err := repo.GetByUsername(ctx, "mala")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.Delete(ctx, u.ID)).To(Succeed())

			n, err := repo.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))
		})
	})
})
