package services

import "nexusmarket/internal/domain"

// Caller is the authenticated principal behind a request.
type Caller struct {
	ID   int64
	Role domain.Role
}

// Authorizer holds every ownership and capability rule in one place.
type Authorizer struct{}

func (Authorizer) CanSell(c Caller) error {
	if c.Role != domain.RoleSeller {
		return newErr(ErrForbidden, "only sellers can manage products")
	}
	return nil
}

// CanMutateProduct allows only the owning seller to change a product.
func (a Authorizer) CanMutateProduct(c Caller, p domain.Product) error {
	if err := a.CanSell(c); err != nil {
		return err
	}
	if p.SellerID != c.ID {
		return newErr(ErrForbidden, "you can only modify your own products")
	}
	return nil
}

// CanFulfill gates order status changes.
func (Authorizer) CanFulfill(c Caller) error {
	if c.Role != domain.RoleAdmin {
		return newErr(ErrForbidden, "fulfillment access required")
	}
	return nil
}
