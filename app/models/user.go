package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a shopper or a store admin. Admins carry the ID of the store
// they manage.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	FirstName string    `gorm:"size:120" json:"firstName"`
	LastName  string    `gorm:"size:120" json:"lastName"`
	Role      string    `gorm:"size:20;not null;default:user;index" json:"role"`
	StoreID   string    `gorm:"size:36;index" json:"store,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// OwnerSummary is the slice of a user shown next to a store.
type OwnerSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (u *User) Summary() *OwnerSummary {
	if u == nil {
		return nil
	}
	return &OwnerSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}
