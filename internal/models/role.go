package models

// Role is the privilege level of a user. Roles are totally ordered:
// regular < cashier < manager < superuser.
type Role string

const (
	RoleRegular   Role = "regular"
	RoleCashier   Role = "cashier"
	RoleManager   Role = "manager"
	RoleSuperuser Role = "superuser"
)

var roleLevels = map[Role]int{
	RoleRegular:   0,
	RoleCashier:   1,
	RoleManager:   2,
	RoleSuperuser: 3,
}

func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether r carries at least the privilege of other.
// Every authorization check in the codebase goes through this helper.
func (r Role) AtLeast(other Role) bool {
	return roleLevels[r] >= roleLevels[other]
}
