package domain

import "time"

const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

type User struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	BrandID   *uint     `json:"brand_id,omitempty"` // staff only
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) IsStaffOf(brandID uint) bool {
	return u.Role == RoleStaff && u.BrandID != nil && *u.BrandID == brandID
}
