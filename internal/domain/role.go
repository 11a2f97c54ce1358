package domain

// Role is the kind of user acting on the system.
type Role string

const (
	RoleGovernment Role = "government"
	RoleBidder     Role = "bidder"
	RoleEvaluator  Role = "evaluator"
	RolePublic     Role = "public"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleGovernment, RoleBidder, RoleEvaluator, RolePublic:
		return true
	}
	return false
}
