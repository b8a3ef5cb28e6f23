package permission

import (
	"errors"
	"testing"
)

func hrRole(active bool, grantActive bool, actions ...Action) RoleGrant {
	return RoleGrant{
		Name:   "hr-manager",
		Level:  50,
		Active: active,
		Grants: []ResourceGrant{
			{
				Resource:         "employee-records",
				Actions:          actions,
				PermissionActive: grantActive,
			},
		},
	}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name      string
		roles     []RoleGrant
		overrides []Override
		resource  string
		action    Action
		want      bool
	}{
		{
			name:     "active role grant allows",
			roles:    []RoleGrant{hrRole(true, true, ActionRead, ActionUpdate)},
			resource: "employee-records",
			action:   ActionRead,
			want:     true,
		},
		{
			name:     "action not in grant denies",
			roles:    []RoleGrant{hrRole(true, true, ActionRead)},
			resource: "employee-records",
			action:   ActionDelete,
			want:     false,
		},
		{
			name:     "inactive role denies",
			roles:    []RoleGrant{hrRole(false, true, ActionRead)},
			resource: "employee-records",
			action:   ActionRead,
			want:     false,
		},
		{
			name:     "inactive grant denies",
			roles:    []RoleGrant{hrRole(true, false, ActionRead)},
			resource: "employee-records",
			action:   ActionRead,
			want:     false,
		},
		{
			name:     "unknown resource denies",
			roles:    []RoleGrant{hrRole(true, true, ActionRead)},
			resource: "payroll-runs",
			action:   ActionRead,
			want:     false,
		},
		{
			name:  "revocation beats role grant",
			roles: []RoleGrant{hrRole(true, true, ActionRead, ActionUpdate)},
			overrides: []Override{
				{Resource: "employee-records", Revoked: true},
			},
			resource: "employee-records",
			action:   ActionRead,
			want:     false,
		},
		{
			name:  "grant override adds actions beyond roles",
			roles: []RoleGrant{hrRole(true, true, ActionRead)},
			overrides: []Override{
				{Resource: "employee-records", Actions: []Action{ActionExport}},
			},
			resource: "employee-records",
			action:   ActionExport,
			want:     true,
		},
		{
			name:  "grant override without the action falls back to roles",
			roles: []RoleGrant{hrRole(true, true, ActionRead)},
			overrides: []Override{
				{Resource: "employee-records", Actions: []Action{ActionExport}},
			},
			resource: "employee-records",
			action:   ActionRead,
			want:     true,
		},
		{
			name:  "first override for a resource is authoritative",
			roles: []RoleGrant{hrRole(true, true, ActionRead)},
			overrides: []Override{
				{Resource: "employee-records", Revoked: true},
				{Resource: "employee-records", Actions: []Action{ActionRead}},
			},
			resource: "employee-records",
			action:   ActionRead,
			want:     false,
		},
		{
			name:  "override for another resource is ignored",
			roles: []RoleGrant{hrRole(true, true, ActionRead)},
			overrides: []Override{
				{Resource: "payroll-runs", Revoked: true},
			},
			resource: "employee-records",
			action:   ActionRead,
			want:     true,
		},
		{
			name:     "no roles no overrides denies",
			resource: "employee-records",
			action:   ActionRead,
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.roles, tt.overrides, tt.resource, tt.action)
			if got != tt.want {
				t.Fatalf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove, ActionReject, ActionExport} {
		if !a.Valid() {
			t.Fatalf("expected %q to be valid", a)
		}
	}
	if Action("teleport").Valid() {
		t.Fatal("expected unknown action to be invalid")
	}
	if Action("").Valid() {
		t.Fatal("expected empty action to be invalid")
	}
}

func TestValidateOverrides(t *testing.T) {
	ok := []Override{
		{Resource: "employee-records", Actions: []Action{ActionRead}},
		{Resource: "payroll-runs", Revoked: true},
	}
	if err := ValidateOverrides(ok); err != nil {
		t.Fatalf("expected valid overrides, got %v", err)
	}

	if err := ValidateOverrides([]Override{{Resource: ""}}); err == nil {
		t.Fatal("expected empty resource to be rejected")
	}

	dup := []Override{
		{Resource: "employee-records", Revoked: true},
		{Resource: "employee-records", Actions: []Action{ActionRead}},
	}
	if err := ValidateOverrides(dup); !errors.Is(err, ErrDuplicateOverride) {
		t.Fatalf("expected ErrDuplicateOverride, got %v", err)
	}

	bad := []Override{
		{Resource: "employee-records", Actions: []Action{Action("teleport")}},
	}
	if err := ValidateOverrides(bad); err == nil {
		t.Fatal("expected unknown action to be rejected")
	}
}
