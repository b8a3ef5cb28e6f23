package permission

import (
	"errors"
	"fmt"
)

// Action defines a public type used by staffauth APIs.
//
// Action instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Action string

const (
	// ActionCreate is an exported constant or variable used by the access control engine.
	ActionCreate Action = "create"
	// ActionRead is an exported constant or variable used by the access control engine.
	ActionRead Action = "read"
	// ActionUpdate is an exported constant or variable used by the access control engine.
	ActionUpdate Action = "update"
	// ActionDelete is an exported constant or variable used by the access control engine.
	ActionDelete Action = "delete"
	// ActionApprove is an exported constant or variable used by the access control engine.
	ActionApprove Action = "approve"
	// ActionReject is an exported constant or variable used by the access control engine.
	ActionReject Action = "reject"
	// ActionExport is an exported constant or variable used by the access control engine.
	ActionExport Action = "export"
)

var knownActions = map[Action]struct{}{
	ActionCreate:  {},
	ActionRead:    {},
	ActionUpdate:  {},
	ActionDelete:  {},
	ActionApprove: {},
	ActionReject:  {},
	ActionExport:  {},
}

// Valid reports whether the action is one of the recognized action verbs.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// ActionSet defines a public type used by staffauth APIs.
//
// ActionSet instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ActionSet []Action

// Contains reports whether the set includes the given action.
func (s ActionSet) Contains(action Action) bool {
	for _, a := range s {
		if a == action {
			return true
		}
	}
	return false
}

// ResourceGrant is a single resource entry inside a role: the resource name,
// the actions the role allows on it, and whether the underlying permission
// record is still active. Inactive permissions grant nothing.
type ResourceGrant struct {
	Resource         string
	Actions          ActionSet
	PermissionActive bool
}

// RoleGrant is the resolved projection of one role assigned to a staff
// member. Inactive roles grant nothing but remain visible for display.
type RoleGrant struct {
	Name   string
	Level  int
	Active bool
	Grants []ResourceGrant
}

// Override is a per-staff permission exception. A revocation override
// removes access to the resource regardless of role grants; a grant
// override adds the listed actions on top of role grants.
type Override struct {
	Resource string
	Actions  ActionSet
	Revoked  bool
}

// ErrDuplicateOverride is returned by [ValidateOverrides] when two override
// entries target the same resource.
var ErrDuplicateOverride = errors.New("duplicate override resource")

// Resolve computes the effective permission decision for one resource and
// action from the staff member's role grants and overrides.
//
// Precedence: the first override matching the resource is authoritative.
// A revocation override denies regardless of any role grant; a grant
// override allows when it lists the action, otherwise the role-derived
// decision applies. With no matching override, access is granted when any
// active role carries an active grant for the resource that includes the
// action.
func Resolve(roles []RoleGrant, overrides []Override, resource string, action Action) bool {
	fromRoles := roleDecision(roles, resource, action)

	for _, ov := range overrides {
		if ov.Resource != resource {
			continue
		}
		if ov.Revoked {
			return false
		}
		if ov.Actions.Contains(action) {
			return true
		}
		return fromRoles
	}

	return fromRoles
}

func roleDecision(roles []RoleGrant, resource string, action Action) bool {
	for _, role := range roles {
		if !role.Active {
			continue
		}
		for _, grant := range role.Grants {
			if !grant.PermissionActive || grant.Resource != resource {
				continue
			}
			if grant.Actions.Contains(action) {
				return true
			}
		}
	}
	return false
}

// ValidateOverrides enforces the single-entry-per-resource invariant on an
// override list. Callers should run it before persisting overrides so the
// first-match rule in [Resolve] never has to arbitrate duplicates.
func ValidateOverrides(overrides []Override) error {
	seen := make(map[string]struct{}, len(overrides))
	for _, ov := range overrides {
		if ov.Resource == "" {
			return errors.New("override resource must not be empty")
		}
		if _, dup := seen[ov.Resource]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOverride, ov.Resource)
		}
		seen[ov.Resource] = struct{}{}

		for _, a := range ov.Actions {
			if !a.Valid() {
				return fmt.Errorf("override for %s contains unknown action %q", ov.Resource, a)
			}
		}
	}
	return nil
}
