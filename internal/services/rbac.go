package services

import (
	"github.com/mikespook/gorbac/v2"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

// Permission ids checked by the admin routes.
const (
	PermEntriesRead     = "entries.read"
	PermEntriesAnnotate = "entries.annotate"
	PermEntriesDelete   = "entries.delete"
	PermActivityRead    = "activity.read"
	PermBackupManage    = "backup.manage"
	PermConsentsRead    = "consents.read"
)

// RBAC maps staff roles to permissions. Admins inherit everything a
// counselor can do.
type RBAC struct {
	rbac *gorbac.RBAC
}

func NewRBAC() *RBAC {
	rbac := gorbac.New()

	counselor := gorbac.NewStdRole(models.RoleCounselor)
	for _, p := range []string{PermEntriesRead, PermEntriesAnnotate, PermActivityRead} {
		counselor.Assign(gorbac.NewStdPermission(p))
	}

	admin := gorbac.NewStdRole(models.RoleAdmin)
	for _, p := range []string{PermEntriesDelete, PermBackupManage, PermConsentsRead} {
		admin.Assign(gorbac.NewStdPermission(p))
	}

	rbac.Add(counselor)
	rbac.Add(admin)
	rbac.SetParent(models.RoleAdmin, models.RoleCounselor)
	return &RBAC{rbac: rbac}
}

// IsGranted reports whether role holds permission.
func (r *RBAC) IsGranted(role, permission string) bool {
	return r.rbac.IsGranted(role, gorbac.NewStdPermission(permission), nil)
}
