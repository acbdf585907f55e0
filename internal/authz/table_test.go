package authz

import (
	"testing"

	"github.com/societyhub/societyhub/internal/roles"
)

func TestRolePermissionMatrix(t *testing.T) {
	cases := []struct {
		role    roles.Role
		granted []string
	}{
		{roles.RoleAdmin, []string{
			PermCreateUsers,
			PermManageEvents,
			PermManagePayments,
			PermJoinEvents,
			PermViewReports,
			PermApproveMemberships,
			PermManageEID,
			PermSendNotifications,
			PermManageSettings,
		}},
		{roles.RoleStaff, []string{
			PermManageEventsLimited,
			PermJoinEvents,
			PermMarkAttendance,
			PermViewEventRegistrations,
		}},
		{roles.RoleStudent, []string{
			PermJoinEvents,
			PermViewEID,
			PermMarkAttendance,
			PermViewPaymentHistory,
			PermViewEventHistory,
		}},
	}

	all := map[string]struct{}{}
	for _, tc := range cases {
		for _, action := range tc.granted {
			all[action] = struct{}{}
		}
	}

	for _, tc := range cases {
		set := PermissionsFor(tc.role)
		if len(set) != len(tc.granted) {
			t.Fatalf("%s: expected %d permissions, got %d", tc.role, len(tc.granted), len(set))
		}
		for _, action := range tc.granted {
			if !Allows(tc.role, action) {
				t.Fatalf("%s should allow %s", tc.role, action)
			}
		}
		for action := range all {
			if _, expected := set[action]; !expected && Allows(tc.role, action) {
				t.Fatalf("%s must not allow %s", tc.role, action)
			}
		}
	}
}

func TestUnknownRoleHasNoPermissions(t *testing.T) {
	for _, role := range []roles.Role{roles.RoleNone, roles.Role("superuser")} {
		if len(PermissionsFor(role)) != 0 {
			t.Fatalf("role %q should carry no permissions", role)
		}
		if Allows(role, PermJoinEvents) {
			t.Fatalf("role %q must not be granted anything", role)
		}
	}
}

func TestStaffCannotManageFullEvents(t *testing.T) {
	if Allows(roles.RoleStaff, PermManageEvents) {
		t.Fatalf("staff only get the limited event permission")
	}
	if !Allows(roles.RoleStaff, PermManageEventsLimited) {
		t.Fatalf("staff should hold the limited event permission")
	}
}
