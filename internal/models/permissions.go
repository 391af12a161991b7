package models

// Permission constants
const (
	// Session permissions
	PermissionSessionScan    = "session:scan"
	PermissionSessionOperate = "session:operate"
	PermissionSessionRead    = "session:read"

	// Terminal permissions
	PermissionTerminalManage = "terminal:manage"

	// Credit permissions
	PermissionCreditRead = "credit:read"

	// Admin permissions
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"
)

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionReadAdmin,
			PermissionWriteAdmin,
			PermissionSessionRead,
			PermissionTerminalManage,
			PermissionCreditRead,
		}
	case RoleMerchant:
		return []string{
			PermissionSessionOperate,
			PermissionSessionRead,
			PermissionTerminalManage,
			PermissionCreditRead,
		}
	case RoleTerminal:
		return []string{
			PermissionSessionOperate,
			PermissionSessionRead,
			PermissionCreditRead,
		}
	case RoleCustomer, "user":
		return []string{
			PermissionSessionScan,
			PermissionSessionOperate,
			PermissionSessionRead,
			PermissionCreditRead,
		}
	default:
		return []string{}
	}
}
