// Package authz gates privileged operations on the static role/permission
// matrix of the portal.
package authz

import "github.com/societyhub/societyhub/internal/roles"

// Action identifiers. These exact strings are the contract between the
// guard and every caller; renaming one is a breaking change.
const (
	PermCreateUsers            = "create_users"
	PermManageEvents           = "manage_events"
	PermManagePayments         = "manage_payments"
	PermJoinEvents             = "join_events"
	PermViewReports            = "view_reports"
	PermApproveMemberships     = "approve_memberships"
	PermManageEID              = "manage_eid"
	PermSendNotifications      = "send_notifications"
	PermManageSettings         = "manage_settings"
	PermManageEventsLimited    = "manage_events_limited"
	PermMarkAttendance         = "mark_attendance"
	PermViewEventRegistrations = "view_event_registrations"
	PermViewEID                = "view_eid"
	PermViewPaymentHistory     = "view_payment_history"
	PermViewEventHistory       = "view_event_history"
)

var rolePermissions = map[roles.Role][]string{
	roles.RoleAdmin: {
		PermCreateUsers,
		PermManageEvents,
		PermManagePayments,
		PermJoinEvents,
		PermViewReports,
		PermApproveMemberships,
		PermManageEID,
		PermSendNotifications,
		PermManageSettings,
	},
	roles.RoleStaff: {
		PermManageEventsLimited,
		PermJoinEvents,
		PermMarkAttendance,
		PermViewEventRegistrations,
	},
	roles.RoleStudent: {
		PermJoinEvents,
		PermViewEID,
		PermMarkAttendance,
		PermViewPaymentHistory,
		PermViewEventHistory,
	},
}

// PermissionsFor returns the set of actions allowed for role. Unknown or
// unassigned roles yield an empty set.
func PermissionsFor(role roles.Role) map[string]struct{} {
	actions := rolePermissions[role]
	set := make(map[string]struct{}, len(actions))
	for _, action := range actions {
		set[action] = struct{}{}
	}
	return set
}

// Allows reports whether role grants action without resolving anything.
func Allows(role roles.Role, action string) bool {
	for _, granted := range rolePermissions[role] {
		if granted == action {
			return true
		}
	}
	return false
}
