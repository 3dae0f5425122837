package shared

import "fmt"

// Role names supplied by the authentication collaborator.
const (
	RoleBooker   = "booker"
	RoleKPO      = "kpo"
	RoleSalesman = "salesman"
	RoleAdmin    = "admin"
)

// Actor is the current user identity as provided by the auth collaborator.
type Actor struct {
	ID   string
	Name string
	Role string
}

// CanBookOrders reports whether the actor may create, edit and submit orders.
func (a *Actor) CanBookOrders() error {
	return a.require("book orders", RoleBooker, RoleAdmin)
}

// CanRequestEdit reports whether the actor may request an edit on the order
// booked by ownerID.
func (a *Actor) CanRequestEdit(ownerID string) error {
	if a == nil {
		return fmt.Errorf("%w: no actor", ErrForbidden)
	}
	if a.Role == RoleAdmin {
		return nil
	}
	if a.Role == RoleBooker && a.ID == ownerID {
		return nil
	}
	return fmt.Errorf("%w: %s may not request edit on another booker's order", ErrForbidden, a.Role)
}

// CanApproveOrders reports whether the actor may approve, reject or finalize orders.
func (a *Actor) CanApproveOrders() error {
	return a.require("approve orders", RoleKPO, RoleAdmin)
}

// CanBill reports whether the actor may derive bills and load forms.
func (a *Actor) CanBill() error {
	return a.require("bill orders", RoleKPO, RoleAdmin)
}

// CanCollect reports whether the actor may record payment collections.
func (a *Actor) CanCollect() error {
	return a.require("collect payments", RoleSalesman, RoleKPO, RoleAdmin)
}

// CanDeliver reports whether the actor may progress delivery statuses.
func (a *Actor) CanDeliver() error {
	return a.require("progress deliveries", RoleSalesman, RoleKPO, RoleAdmin)
}

// CanResetDiscounts reports whether the actor may apply salary deductions.
func (a *Actor) CanResetDiscounts() error {
	return a.require("reset unauthorized discounts", RoleKPO, RoleAdmin)
}

// CanManageShops reports whether the actor may create or update shops.
func (a *Actor) CanManageShops() error {
	return a.require("manage shops", RoleBooker, RoleKPO, RoleAdmin)
}

func (a *Actor) require(action string, roles ...string) error {
	if a == nil {
		return fmt.Errorf("%w: no actor", ErrForbidden)
	}
	for _, role := range roles {
		if a.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not %s", ErrForbidden, a.Role, action)
}
