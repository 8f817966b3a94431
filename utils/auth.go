package utils

import "slices"

// Permission levels
const (
	AdminPermission = "admin"
	CrewPermission  = "crew"
	UserPermission  = "user"
)

// CheckPermission returns the highest permission level of a member. isAdministrator
// carries the Discord administrator bit (or guild ownership) resolved by the caller.
func CheckPermission(memberRoleIDs []string, isAdministrator bool, adminRoleIDs, crewRoleIDs []string) string {
	if isAdministrator {
		return AdminPermission
	}
	for _, id := range memberRoleIDs {
		if id != "" && slices.Contains(adminRoleIDs, id) {
			return AdminPermission
		}
	}
	for _, id := range memberRoleIDs {
		if id != "" && slices.Contains(crewRoleIDs, id) {
			return CrewPermission
		}
	}
	return UserPermission
}

// CanManage reports whether level may cancel/reroll giveaways and use the dashboard.
func CanManage(level string) bool {
	return level == AdminPermission || level == CrewPermission
}
