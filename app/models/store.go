package models

import "time"

// Store is a tenant storefront. OwnerID is set right after the owning admin
// is created in the same registration.
type Store struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	StoreName string    `gorm:"size:160;not null" json:"storeName"`
	Address   string    `gorm:"size:255;not null" json:"address"`
	WhatsApp  string    `gorm:"column:whatsapp;size:32" json:"whatsapp,omitempty"`
	OwnerID   string    `gorm:"size:36;index" json:"ownerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StoreWithOwner is a store as listed publicly, with its owner's summary
// in place of the bare owner ID.
type StoreWithOwner struct {
	Store
	Owner *OwnerSummary `json:"owner"`
}
