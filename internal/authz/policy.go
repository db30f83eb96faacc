package authz

import "github.com/mehmetcc/medgate/internal/person"

type Operation string

const (
	OpWhoAmI        Operation = "auth.me"
	OpRegisterStaff Operation = "auth.register"
	OpListPatients  Operation = "patients.list"
	OpListEquipment Operation = "equipment.list"
	OpListStaff     Operation = "staff.list"
)

// Policy maps each protected operation to the roles allowed to call it.
// An empty role list admits any authenticated principal.
type Policy map[Operation][]person.Role

var DefaultPolicy = Policy{
	OpWhoAmI:        {},
	OpRegisterStaff: {person.RoleAdmin},
	OpListPatients:  {person.RoleDoctor, person.RoleNurse, person.RoleAdmin},
	OpListEquipment: {},
	OpListStaff:     {person.RoleAdmin},
}

func (p Policy) Allowed(op Operation) ([]person.Role, bool) {
	roles, ok := p[op]
	return roles, ok
}

// Authorize is the single authorization check. A nil principal is
// unauthenticated; a principal outside a non-empty allow-list is forbidden.
func Authorize(principal *person.Principal, allowed []person.Role) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, r := range allowed {
		if principal.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// Check authorizes an operation by name. Operations missing from the
// policy are denied.
func (p Policy) Check(principal *person.Principal, op Operation) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	allowed, ok := p.Allowed(op)
	if !ok {
		return ErrForbidden
	}
	return Authorize(principal, allowed)
}
