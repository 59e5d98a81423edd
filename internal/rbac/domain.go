package rbac

// Roles assigned to users.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Managers are the roles allowed to run destructive operations.
var Managers = []string{RoleOwner, RoleAdmin}
