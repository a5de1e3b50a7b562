package domain

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

// Cashier is the identity stamped onto transactions. Password digests stay
// inside the cashier repository and never leave it.
type Cashier struct {
	ID        int64
	Username  string
	Role      Role
	FullName  string
	CreatedAt time.Time
}
