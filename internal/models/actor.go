package models

// Role is the staff role attached to an authenticated actor. The core
// never sees credentials or sessions; it trusts the (id, role) pair the
// transport layer resolved.
type Role string

const (
	RoleServer    Role = "server"
	RoleCashier   Role = "cashier"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Actor is an authenticated staff member performing an operation.
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// CanManageOrders reports whether the role may mutate orders it does not
// own and cancel orders.
func (r Role) CanManageOrders() bool {
	return r == RoleAdmin || r == RoleModerator
}

// CanSettle reports whether the role may record payments.
func (r Role) CanSettle() bool {
	return r == RoleAdmin || r == RoleCashier
}

// IsAdmin reports whether the actor may use admin overrides.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanMutateOrder reports whether the actor may change the given order:
// the owning server always can, admins and moderators can for any order.
func (a Actor) CanMutateOrder(o *Order) bool {
	return a.ID == o.ServerID || a.Role.CanManageOrders()
}
