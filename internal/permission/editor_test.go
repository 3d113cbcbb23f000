package permission_test

import (
	"github.com/frahmantamala/hrm-access/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Editor", func() {
	Describe("new account", func() {
		It("starts in Preset(viewer)", func() {
			e := permission.NewEditor()
			Expect(e.Role()).To(Equal(permission.RoleViewer))
			Expect(e.Permissions()).To(Equal(permission.Resolve(permission.RoleViewer)))
			Expect(e.Active()).To(BeTrue())
		})

		It("records custom when export_data is granted to a viewer before submit", func() {
			e := permission.NewEditor()
			Expect(e.SelectRole(permission.RoleViewer)).To(Succeed())
			Expect(e.Toggle(permission.ExportData, true)).To(Succeed())

			role, perms := e.Snapshot()
			Expect(role).To(Equal(permission.RoleCustom))
			Expect(perms.ExportData).To(BeTrue())

			expected := permission.Resolve(permission.RoleViewer)
			expected.ExportData = true
			Expect(perms).To(Equal(expected))
		})
	})

	Describe("toggling", func() {
		var e *permission.Editor

		BeforeEach(func() {
			e = permission.NewEditor()
			Expect(e.SelectRole(permission.RoleHRStaff)).To(Succeed())
		})

		It("moves hr_staff to custom when edit_employees is granted", func() {
			Expect(e.Permissions()).To(Equal(permission.Set{ViewEmployees: true, AddEmployees: true}))

			Expect(e.Toggle(permission.EditEmployees, true)).To(Succeed())

			Expect(e.Role()).To(Equal(permission.RoleCustom))
			Expect(e.Permissions()).To(Equal(permission.Set{
				ViewEmployees: true, AddEmployees: true, EditEmployees: true,
			}))
			Expect(e.Base()).To(Equal(permission.RoleHRStaff))
		})

		It("returns to the preset when a flag is toggled on and back off", func() {
			Expect(e.Flip(permission.ViewReports)).To(Succeed())
			Expect(e.Role()).To(Equal(permission.RoleCustom))

			Expect(e.Flip(permission.ViewReports)).To(Succeed())
			Expect(e.Role()).To(Equal(permission.RoleHRStaff))
		})

		It("stays in the preset when the flag already had the value", func() {
			Expect(e.Toggle(permission.AddEmployees, true)).To(Succeed())
			Expect(e.Role()).To(Equal(permission.RoleHRStaff))
		})

		It("compares against the last concrete role even when the set matches another preset", func() {
			Expect(e.Toggle(permission.AddEmployees, false)).To(Succeed())
			Expect(e.Permissions()).To(Equal(permission.Resolve(permission.RoleViewer)))
			Expect(e.Role()).To(Equal(permission.RoleCustom))
		})

		It("rejects unknown capabilities", func() {
			err := e.Toggle(permission.Capability("fly"), true)
			Expect(err).To(MatchError(permission.ErrUnknownCapability))
			Expect(e.Role()).To(Equal(permission.RoleHRStaff))
		})
	})

	Describe("selecting a role", func() {
		It("discards custom flags and equals the new preset exactly", func() {
			e := permission.NewEditor()
			Expect(e.Toggle(permission.ManageSettings, true)).To(Succeed())
			Expect(e.Toggle(permission.DeleteEmployees, true)).To(Succeed())
			Expect(e.Role()).To(Equal(permission.RoleCustom))

			Expect(e.SelectRole(permission.RoleHRManager)).To(Succeed())

			Expect(e.Role()).To(Equal(permission.RoleHRManager))
			Expect(e.Permissions()).To(Equal(permission.Resolve(permission.RoleHRManager)))
		})

		It("refuses custom", func() {
			e := permission.NewEditor()
			Expect(e.SelectRole(permission.RoleCustom)).To(MatchError(permission.ErrNotPreset))
		})
	})

	Describe("existing account", func() {
		It("starts in Preset(stored role)", func() {
			e := permission.EditorFor(permission.RoleHRManager, permission.Resolve(permission.RoleHRManager), true, false)
			Expect(e.Role()).To(Equal(permission.RoleHRManager))
		})

		It("keeps a stored custom set and compares it with viewer", func() {
			stored := permission.Set{ViewEmployees: true, ViewReports: true}
			e := permission.EditorFor(permission.RoleCustom, stored, true, false)
			Expect(e.Role()).To(Equal(permission.RoleCustom))
			Expect(e.Permissions()).To(Equal(stored))

			Expect(e.Toggle(permission.ViewReports, false)).To(Succeed())
			Expect(e.Role()).To(Equal(permission.RoleViewer))
		})
	})

	Describe("self protection", func() {
		var e *permission.Editor

		BeforeEach(func() {
			e = permission.EditorFor(permission.RoleAdmin, permission.Resolve(permission.RoleAdmin), true, true)
		})

		It("refuses to switch off the editor's own manage_users", func() {
			Expect(e.Disabled(permission.ManageUsers)).To(BeTrue())
			Expect(e.Toggle(permission.ManageUsers, false)).To(MatchError(permission.ErrSelfLockout))

			role, perms := e.Snapshot()
			Expect(role).To(Equal(permission.RoleAdmin))
			Expect(perms.ManageUsers).To(BeTrue())
		})

		It("refuses roles that lack manage_users", func() {
			Expect(e.SelectRole(permission.RoleHRManager)).To(MatchError(permission.ErrSelfLockout))
			Expect(e.Role()).To(Equal(permission.RoleAdmin))
		})

		It("refuses to deactivate the editor's own account", func() {
			Expect(e.ActiveLocked()).To(BeTrue())
			Expect(e.SetActive(false)).To(MatchError(permission.ErrSelfLockout))
			Expect(e.Active()).To(BeTrue())
		})

		It("still allows other edits", func() {
			Expect(e.Toggle(permission.ExportData, false)).To(Succeed())
			Expect(e.Role()).To(Equal(permission.RoleCustom))
			Expect(e.Disabled(permission.ExportData)).To(BeFalse())
		})

		It("does not restrict edits of other accounts", func() {
			other := permission.EditorFor(permission.RoleAdmin, permission.Resolve(permission.RoleAdmin), true, false)
			Expect(other.Toggle(permission.ManageUsers, false)).To(Succeed())
			Expect(other.SetActive(false)).To(Succeed())
		})
	})
})
