package domain

type Role string

const (
	RoleClient Role = "client"
	RoleSeller Role = "seller"
	// RoleAdmin is the fulfillment actor. It is never granted through self-registration.
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        int64  `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
	Hash      string `db:"password_hash" json:"-"`
	Phone     string `db:"phone" json:"phone,omitempty"`
	Role      Role   `db:"role" json:"role"`
	CreatedAt string `db:"created_at" json:"createdAt"`
	UpdatedAt string `db:"updated_at" json:"updatedAt"`
}

// DisplayName is what order lines record as the seller name.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserSummary is the public part of a user returned next to auth tokens.
type UserSummary struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}
